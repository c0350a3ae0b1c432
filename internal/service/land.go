package service

import (
	"context"
	"fmt"
	"time"

	"sectland-backend/internal/billing"
	"sectland-backend/internal/debt"
	"sectland-backend/internal/domain"
	"sectland-backend/internal/logger"
	"sectland-backend/internal/repository"
	"sectland-backend/internal/territory"
)

type landService struct {
	sects    repository.SectRepository
	ledger   repository.LedgerRepository
	store    territory.ClaimStore
	debts    *debt.Manager
	calc     *billing.Calculator
	notifier NotificationService
	locks    *sectLocks
}

// NewLandService wires the territory operations over the given
// collaborators
func NewLandService(
	sects repository.SectRepository,
	ledger repository.LedgerRepository,
	store territory.ClaimStore,
	debts *debt.Manager,
	calc *billing.Calculator,
	notifier NotificationService,
) LandService {
	return &landService{
		sects:    sects,
		ledger:   ledger,
		store:    store,
		debts:    debts,
		calc:     calc,
		notifier: notifier,
		locks:    newSectLocks(),
	}
}

func userRef(userID int32) string {
	return fmt.Sprintf("user:%d", userID)
}

func (s *landService) loadSect(ctx context.Context, sectID int32) (*domain.Sect, error) {
	sect, err := s.sects.GetByID(ctx, sectID)
	if err != nil {
		return nil, err
	}
	return sect, nil
}

// requireManager checks that the actor is a member ranked leader or elder
func (s *landService) requireManager(ctx context.Context, sectID, actorID int32) error {
	member, err := s.sects.GetMember(ctx, sectID, actorID)
	if err != nil {
		return fmt.Errorf("actor %d is not a member of sect %d: %w", actorID, sectID, domain.ErrValidation)
	}
	if !member.Rank.CanManageLand() {
		return fmt.Errorf("rank %s may not manage land: %w", member.Rank, domain.ErrValidation)
	}
	return nil
}

// record writes a ledger transaction. The treasury already moved; a ledger
// write failure is logged, never surfaced.
func (s *landService) record(ctx context.Context, sectID int32, amount int64, txType domain.TransactionType, desc string) {
	tx := &domain.LedgerTransaction{
		SectID:      sectID,
		Amount:      amount,
		Type:        txType,
		Description: desc,
	}
	if err := s.ledger.CreateTransaction(ctx, tx); err != nil {
		logger.WithSect(sectID).Error("failed to record ledger transaction",
			"type", txType, "amount", amount, "error", err)
	}
}

// rollback reverses a debit after an external-store failure
func (s *landService) rollback(ctx context.Context, sect *domain.Sect, amount int64, desc string) {
	sect.AddFunds(amount)
	s.record(ctx, sect.ID, amount, domain.TransactionTypeReversal, desc)
	logger.WithSect(sect.ID).Warn("reversed debit after external store failure",
		"amount", amount, "operation", desc)
}

func (s *landService) Claim(ctx context.Context, sectID, actorID int32, center domain.Point, units int32) (*ClaimResult, error) {
	unlock := s.locks.Lock(sectID)
	defer unlock()

	sect, err := s.loadSect(ctx, sectID)
	if err != nil {
		return nil, err
	}
	if err := s.requireManager(ctx, sectID, actorID); err != nil {
		return nil, err
	}
	if sect.HasLand() {
		return nil, fmt.Errorf("sect already holds a territory: %w", domain.ErrValidation)
	}
	if units <= 0 {
		return nil, fmt.Errorf("claim size must be positive: %w", domain.ErrValidation)
	}
	if limit := s.calc.LandLimit(sect.Level, sect.MemberCount); units > limit {
		return nil, fmt.Errorf("claim of %d units exceeds limit %d: %w", units, limit, domain.ErrValidation)
	}

	cost := s.calc.ClaimCost(sect.Level, units)
	if !sect.RemoveFunds(cost) {
		return nil, fmt.Errorf("claim costs %d, treasury holds %d: %w", cost, sect.Funds, domain.ErrInsufficientFunds)
	}
	s.record(ctx, sectID, -cost, domain.TransactionTypeClaimDebit,
		fmt.Sprintf("claimed %d units of land", units))

	claimID, err := s.store.CreateClaim(ctx, userRef(sect.LeaderID), center, units)
	if err != nil {
		s.rollback(ctx, sect, cost, "claim")
		logger.WithSect(sectID).Error("claim creation failed", "error", err)
		return nil, fmt.Errorf("failed to create claim: %w", domain.ErrExternalStore)
	}

	sect.TerritoryID = &claimID
	sect.LandCenter = &center
	sect.LastMaintenanceAt = time.Now().UnixMilli()
	if err := s.sects.Save(ctx, sect); err != nil {
		return nil, fmt.Errorf("failed to save sect after claim: %w", err)
	}

	if err := s.notifier.Broadcast(ctx, sectID, "Territory claimed",
		fmt.Sprintf("The sect claimed %d units of land for %d spirit stones.", units, cost)); err != nil {
		logger.WithSect(sectID).Warn("failed to broadcast claim", "error", err)
	}
	return &ClaimResult{ClaimID: claimID, Cost: cost}, nil
}

func (s *landService) Bind(ctx context.Context, sectID, actorID int32, claimID string, center domain.Point) (*ClaimResult, error) {
	unlock := s.locks.Lock(sectID)
	defer unlock()

	sect, err := s.loadSect(ctx, sectID)
	if err != nil {
		return nil, err
	}
	if err := s.requireManager(ctx, sectID, actorID); err != nil {
		return nil, err
	}
	if sect.HasLand() {
		return nil, fmt.Errorf("sect already holds a territory: %w", domain.ErrValidation)
	}

	size, err := s.store.ClaimSize(ctx, claimID)
	if err != nil {
		return nil, fmt.Errorf("claim %s not found: %w", claimID, domain.ErrNotFound)
	}
	if limit := s.calc.LandLimit(sect.Level, sect.MemberCount); size > limit {
		return nil, fmt.Errorf("claim of %d units exceeds limit %d: %w", size, limit, domain.ErrValidation)
	}

	fee := s.calc.BindingFee()
	if !sect.RemoveFunds(fee) {
		return nil, fmt.Errorf("binding costs %d, treasury holds %d: %w", fee, sect.Funds, domain.ErrInsufficientFunds)
	}
	s.record(ctx, sectID, -fee, domain.TransactionTypeBindingDebit,
		fmt.Sprintf("bound existing claim %s", claimID))

	// Binding hands the claim to the sect leader
	if err := s.store.TransferOwnership(ctx, claimID, userRef(sect.LeaderID)); err != nil {
		s.rollback(ctx, sect, fee, "bind")
		logger.WithSect(sectID).Error("claim binding failed", "claim_id", claimID, "error", err)
		return nil, fmt.Errorf("failed to bind claim: %w", domain.ErrExternalStore)
	}

	sect.TerritoryID = &claimID
	sect.LandCenter = &center
	sect.LastMaintenanceAt = time.Now().UnixMilli()
	if err := s.sects.Save(ctx, sect); err != nil {
		return nil, fmt.Errorf("failed to save sect after bind: %w", err)
	}

	if err := s.notifier.Broadcast(ctx, sectID, "Territory bound",
		fmt.Sprintf("The sect bound an existing claim of %d units for %d spirit stones.", size, fee)); err != nil {
		logger.WithSect(sectID).Warn("failed to broadcast bind", "error", err)
	}
	return &ClaimResult{ClaimID: claimID, Cost: fee}, nil
}

func (s *landService) Expand(ctx context.Context, sectID, actorID int32, units int32) (int64, error) {
	unlock := s.locks.Lock(sectID)
	defer unlock()

	sect, err := s.loadSect(ctx, sectID)
	if err != nil {
		return 0, err
	}
	if err := s.requireManager(ctx, sectID, actorID); err != nil {
		return 0, err
	}
	if !sect.HasLand() {
		return 0, fmt.Errorf("sect holds no territory: %w", domain.ErrValidation)
	}
	if s.debts.IsFrozen(sectID) {
		return 0, fmt.Errorf("cannot expand: %w", domain.ErrFrozen)
	}
	if units <= 0 {
		return 0, fmt.Errorf("expansion must be positive: %w", domain.ErrValidation)
	}

	size, err := s.store.ClaimSize(ctx, *sect.TerritoryID)
	if err != nil {
		return 0, fmt.Errorf("failed to read claim size: %w", domain.ErrExternalStore)
	}
	if limit := s.calc.LandLimit(sect.Level, sect.MemberCount); size+units > limit {
		return 0, fmt.Errorf("expansion to %d units exceeds limit %d: %w", size+units, limit, domain.ErrValidation)
	}

	cost := s.calc.ExpandCost(sect.Level, units)
	if !sect.RemoveFunds(cost) {
		return 0, fmt.Errorf("expansion costs %d, treasury holds %d: %w", cost, sect.Funds, domain.ErrInsufficientFunds)
	}
	s.record(ctx, sectID, -cost, domain.TransactionTypeExpandDebit,
		fmt.Sprintf("expanded territory by %d units", units))

	if err := s.store.ResizeClaim(ctx, *sect.TerritoryID, units); err != nil {
		s.rollback(ctx, sect, cost, "expand")
		logger.WithSect(sectID).Error("claim resize failed", "error", err)
		return 0, fmt.Errorf("failed to expand claim: %w", domain.ErrExternalStore)
	}

	if err := s.sects.Save(ctx, sect); err != nil {
		return 0, fmt.Errorf("failed to save sect after expansion: %w", err)
	}
	return cost, nil
}

func (s *landService) Shrink(ctx context.Context, sectID, actorID int32, units int32) (int64, error) {
	unlock := s.locks.Lock(sectID)
	defer unlock()

	sect, err := s.loadSect(ctx, sectID)
	if err != nil {
		return 0, err
	}
	if err := s.requireManager(ctx, sectID, actorID); err != nil {
		return 0, err
	}
	if !sect.HasLand() {
		return 0, fmt.Errorf("sect holds no territory: %w", domain.ErrValidation)
	}
	if s.debts.IsFrozen(sectID) {
		return 0, fmt.Errorf("cannot shrink: %w", domain.ErrFrozen)
	}
	if units <= 0 {
		return 0, fmt.Errorf("reduction must be positive: %w", domain.ErrValidation)
	}
	if used := sect.UsedBuildingSlots(); used > 0 {
		return 0, fmt.Errorf("%d building slots are occupied, clear them first: %w", used, domain.ErrValidation)
	}

	size, err := s.store.ClaimSize(ctx, *sect.TerritoryID)
	if err != nil {
		return 0, fmt.Errorf("failed to read claim size: %w", domain.ErrExternalStore)
	}
	if units >= size {
		return 0, fmt.Errorf("cannot shrink %d-unit territory by %d, delete it instead: %w", size, units, domain.ErrValidation)
	}

	// Shrink the claim first; the refund is a credit and cannot fail, so no
	// reversal path is needed here.
	if err := s.store.ResizeClaim(ctx, *sect.TerritoryID, -units); err != nil {
		logger.WithSect(sectID).Error("claim resize failed", "error", err)
		return 0, fmt.Errorf("failed to shrink claim: %w", domain.ErrExternalStore)
	}

	refund := s.calc.ShrinkRefund(sect.Level, units)
	sect.AddFunds(refund)
	s.record(ctx, sectID, refund, domain.TransactionTypeShrinkRefund,
		fmt.Sprintf("released %d units of territory", units))

	if err := s.sects.Save(ctx, sect); err != nil {
		return 0, fmt.Errorf("failed to save sect after shrink: %w", err)
	}
	return refund, nil
}

func (s *landService) Delete(ctx context.Context, sectID, actorID int32, confirmed bool) error {
	unlock := s.locks.Lock(sectID)
	defer unlock()

	sect, err := s.loadSect(ctx, sectID)
	if err != nil {
		return err
	}
	if err := s.requireManager(ctx, sectID, actorID); err != nil {
		return err
	}
	if !sect.HasLand() {
		return fmt.Errorf("sect holds no territory: %w", domain.ErrValidation)
	}
	if !confirmed {
		return fmt.Errorf("territory deletion must be confirmed: %w", domain.ErrValidation)
	}
	if used := sect.UsedBuildingSlots(); used > 0 {
		return fmt.Errorf("%d building slots are occupied, clear them first: %w", used, domain.ErrValidation)
	}

	if err := s.store.DeleteClaim(ctx, *sect.TerritoryID); err != nil {
		logger.WithSect(sectID).Error("claim deletion failed", "error", err)
		return fmt.Errorf("failed to delete claim: %w", domain.ErrExternalStore)
	}

	// Deleting the land retires any outstanding debt with it
	s.debts.Clear(ctx, sectID)
	sect.ClearLand()
	if err := s.sects.Save(ctx, sect); err != nil {
		return fmt.Errorf("failed to save sect after deletion: %w", err)
	}

	if err := s.notifier.Broadcast(ctx, sectID, "Territory released",
		"The sect's territory has been released."); err != nil {
		logger.WithSect(sectID).Warn("failed to broadcast deletion", "error", err)
	}
	return nil
}

func (s *landService) Transfer(ctx context.Context, sectID, actorID, newOwnerID int32) error {
	unlock := s.locks.Lock(sectID)
	defer unlock()

	sect, err := s.loadSect(ctx, sectID)
	if err != nil {
		return err
	}
	if err := s.requireManager(ctx, sectID, actorID); err != nil {
		return err
	}
	if !sect.HasLand() {
		return fmt.Errorf("sect holds no territory: %w", domain.ErrValidation)
	}
	if s.debts.IsFrozen(sectID) {
		return fmt.Errorf("cannot transfer: %w", domain.ErrFrozen)
	}

	newOwner, err := s.sects.GetMember(ctx, sectID, newOwnerID)
	if err != nil {
		return fmt.Errorf("new owner %d is not a member of sect %d: %w", newOwnerID, sectID, domain.ErrValidation)
	}

	if err := s.store.TransferOwnership(ctx, *sect.TerritoryID, userRef(newOwnerID)); err != nil {
		logger.WithSect(sectID).Error("ownership transfer failed", "error", err)
		return fmt.Errorf("failed to transfer ownership: %w", domain.ErrExternalStore)
	}

	if err := s.notifier.Broadcast(ctx, sectID, "Territory steward changed",
		fmt.Sprintf("%s is now the steward of the sect's territory.", newOwner.Name)); err != nil {
		logger.WithSect(sectID).Warn("failed to broadcast transfer", "error", err)
	}
	return nil
}

func (s *landService) Pay(ctx context.Context, sectID, actorID int32, amount int64) (*PayResult, error) {
	unlock := s.locks.Lock(sectID)
	defer unlock()

	sect, err := s.loadSect(ctx, sectID)
	if err != nil {
		return nil, err
	}
	if err := s.requireManager(ctx, sectID, actorID); err != nil {
		return nil, err
	}
	if !sect.HasLand() {
		return nil, fmt.Errorf("sect holds no territory: %w", domain.ErrValidation)
	}

	if due := s.debts.Due(sectID); due > 0 {
		if amount < due {
			return nil, fmt.Errorf("payment of %d does not cover debt of %d: %w", amount, due, domain.ErrValidation)
		}
		if !sect.RemoveFunds(due) {
			return nil, fmt.Errorf("debt is %d, treasury holds %d: %w", due, sect.Funds, domain.ErrInsufficientFunds)
		}
		s.record(ctx, sectID, -due, domain.TransactionTypeDebtSettlement, "settled maintenance debt")
		s.debts.Pay(ctx, sect, due)

		sect.LastMaintenanceAt = time.Now().UnixMilli()
		if err := s.sects.Save(ctx, sect); err != nil {
			return nil, fmt.Errorf("failed to save sect after debt settlement: %w", err)
		}
		return &PayResult{AmountPaid: due, SettledDebt: true}, nil
	}

	size, err := s.store.ClaimSize(ctx, *sect.TerritoryID)
	if err != nil {
		return nil, fmt.Errorf("failed to read claim size: %w", domain.ErrExternalStore)
	}
	cost := s.calc.MaintenanceCost(size)
	if amount < cost {
		return nil, fmt.Errorf("payment of %d does not cover maintenance fee of %d: %w", amount, cost, domain.ErrValidation)
	}
	if !sect.RemoveFunds(cost) {
		return nil, fmt.Errorf("maintenance fee is %d, treasury holds %d: %w", cost, sect.Funds, domain.ErrInsufficientFunds)
	}
	s.record(ctx, sectID, -cost, domain.TransactionTypeMaintenanceDebit, "maintenance fee paid on demand")

	sect.LastMaintenanceAt = time.Now().UnixMilli()
	if err := s.sects.Save(ctx, sect); err != nil {
		return nil, fmt.Errorf("failed to save sect after payment: %w", err)
	}
	return &PayResult{AmountPaid: cost, SettledDebt: false}, nil
}

func (s *landService) StatusReport(ctx context.Context, sectID int32) (*StatusReport, error) {
	sect, err := s.loadSect(ctx, sectID)
	if err != nil {
		return nil, err
	}

	report := &StatusReport{SectID: sectID, Funds: sect.Funds}
	if !sect.HasLand() {
		report.Status = domain.StatusNoLand
		report.Summary = fmt.Sprintf("%s holds no territory. Treasury: %d spirit stones.", sect.Name, sect.Funds)
		return report, nil
	}

	size, err := s.store.ClaimSize(ctx, *sect.TerritoryID)
	if err != nil {
		// Status stays readable even when the claim store is down
		logger.WithSect(sectID).Warn("failed to read claim size for status", "error", err)
	}
	report.ClaimUnits = size
	report.NextChargeAmount = s.calc.MaintenanceCost(size)
	report.NextChargeAt = sect.LastMaintenanceAt + s.calc.Period().Milliseconds()

	since := time.Duration(time.Now().UnixMilli()-sect.LastMaintenanceAt) * time.Millisecond
	report.Status = s.calc.DeriveStatus(true, since)

	debtLine := "No outstanding debt."
	if rec, ok := s.debts.Info(sectID); ok {
		report.Debt = &DebtInfo{
			DueAmount: rec.DueAmount,
			StartedAt: rec.StartedAt,
			Frozen:    rec.Frozen,
		}
		debtLine = fmt.Sprintf("Outstanding debt: %d spirit stones.", rec.DueAmount)
		if rec.Frozen {
			debtLine += " Territory is FROZEN."
		}
	}
	report.Summary = fmt.Sprintf(
		"%s holds %d units of territory. Status: %s. Next charge: %d spirit stones. Treasury: %d spirit stones. %s",
		sect.Name, report.ClaimUnits, report.Status, report.NextChargeAmount, sect.Funds, debtLine)
	return report, nil
}

// ProcessMaintenance runs one billing pass for a single sect: charge the
// periodic fee when due, hand misses to the debt manager, and advance the
// escalation ladder. Called hourly per sect by the scheduler under the same
// lock the command handlers take.
func (s *landService) ProcessMaintenance(ctx context.Context, sectID int32) (*MaintenanceOutcome, error) {
	unlock := s.locks.Lock(sectID)
	defer unlock()

	sect, err := s.loadSect(ctx, sectID)
	if err != nil {
		return nil, err
	}

	outcome := &MaintenanceOutcome{SectID: sectID}
	if !sect.HasLand() {
		outcome.Skipped = true
		outcome.Status = domain.StatusNoLand
		return outcome, nil
	}

	now := time.Now().UnixMilli()
	if now-sect.LastMaintenanceAt >= s.calc.Period().Milliseconds() {
		size, err := s.store.ClaimSize(ctx, *sect.TerritoryID)
		if err != nil {
			return nil, fmt.Errorf("failed to read claim size: %w", domain.ErrExternalStore)
		}
		cost := s.calc.MaintenanceCost(size)

		if sect.RemoveFunds(cost) {
			s.record(ctx, sectID, -cost, domain.TransactionTypeMaintenanceDebit,
				fmt.Sprintf("periodic maintenance fee for %d units", size))
			sect.LastMaintenanceAt = now
			if err := s.sects.Save(ctx, sect); err != nil {
				return nil, fmt.Errorf("failed to save sect after maintenance charge: %w", err)
			}
			outcome.Charged = true
			outcome.Amount = cost
			if err := s.notifier.Broadcast(ctx, sectID, "Maintenance fee collected",
				fmt.Sprintf("%d spirit stones were collected for territory upkeep.", cost)); err != nil {
				logger.WithSect(sectID).Warn("failed to broadcast maintenance receipt", "error", err)
			}
		} else {
			// The bill is missed, not waived: the timestamp stays put and
			// the debt clock starts (or the due figure refreshes).
			s.debts.Record(ctx, sectID, cost)
			outcome.Amount = cost
		}
	}

	outcome.Action = s.debts.Handle(ctx, sect)

	since := time.Duration(time.Now().UnixMilli()-sect.LastMaintenanceAt) * time.Millisecond
	outcome.Status = s.calc.DeriveStatus(sect.HasLand(), since)
	s.broadcastStatusAdvisory(ctx, sect, outcome.Status)
	return outcome, nil
}

// broadcastStatusAdvisory emits the telemetry-only payment-recency notices.
// These never mutate ledger or debt state; the debt manager owns the actual
// escalation.
func (s *landService) broadcastStatusAdvisory(ctx context.Context, sect *domain.Sect, status domain.MaintenanceStatus) {
	var title, message string
	switch status {
	case domain.StatusOverdueWarning:
		title = "Maintenance payment overdue"
		message = "The territory maintenance fee has not been paid recently. Settle it before the territory is frozen."
	case domain.StatusFrozen:
		title = "Territory frozen notice"
		message = "Maintenance has gone unpaid past the freeze threshold. Territory changes are blocked."
	case domain.StatusAutoReleasing:
		title = "Territory release imminent"
		message = "Maintenance has gone unpaid for so long the territory is about to be released."
	default:
		return
	}
	if err := s.notifier.Broadcast(ctx, sect.ID, title, message); err != nil {
		logger.WithSect(sect.ID).Warn("failed to broadcast status advisory", "error", err)
	}
}

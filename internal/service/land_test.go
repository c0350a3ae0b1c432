package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sectland-backend/internal/billing"
	"sectland-backend/internal/config"
	"sectland-backend/internal/debt"
	"sectland-backend/internal/domain"
	"sectland-backend/internal/territory"
)

type fakeSectRepo struct {
	sects   map[int32]*domain.Sect
	members map[string]domain.Member
	saves   int
}

func newFakeSectRepo() *fakeSectRepo {
	return &fakeSectRepo{
		sects:   make(map[int32]*domain.Sect),
		members: make(map[string]domain.Member),
	}
}

func memberKey(sectID, userID int32) string {
	return fmt.Sprintf("%d/%d", sectID, userID)
}

func (r *fakeSectRepo) GetByID(_ context.Context, id int32) (*domain.Sect, error) {
	sect, ok := r.sects[id]
	if !ok {
		return nil, fmt.Errorf("sect %d: %w", id, domain.ErrNotFound)
	}
	return sect, nil
}

func (r *fakeSectRepo) ListWithTerritory(_ context.Context) ([]domain.Sect, error) {
	var out []domain.Sect
	for _, sect := range r.sects {
		if sect.HasLand() {
			out = append(out, *sect)
		}
	}
	return out, nil
}

func (r *fakeSectRepo) Save(_ context.Context, sect *domain.Sect) error {
	r.saves++
	r.sects[sect.ID] = sect
	return nil
}

func (r *fakeSectRepo) ListMembers(_ context.Context, sectID int32) ([]domain.Member, error) {
	var out []domain.Member
	for _, m := range r.members {
		if m.SectID == sectID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *fakeSectRepo) GetMember(_ context.Context, sectID, userID int32) (*domain.Member, error) {
	m, ok := r.members[memberKey(sectID, userID)]
	if !ok {
		return nil, fmt.Errorf("member %d: %w", userID, domain.ErrNotFound)
	}
	return &m, nil
}

type fakeLedgerRepo struct {
	transactions []domain.LedgerTransaction
}

func (r *fakeLedgerRepo) CreateTransaction(_ context.Context, tx *domain.LedgerTransaction) error {
	r.transactions = append(r.transactions, *tx)
	return nil
}

func (r *fakeLedgerRepo) ListBySect(_ context.Context, sectID int32, _, _ int32) ([]domain.LedgerTransaction, int32, error) {
	var out []domain.LedgerTransaction
	for _, tx := range r.transactions {
		if tx.SectID == sectID {
			out = append(out, tx)
		}
	}
	return out, int32(len(out)), nil
}

type fakeDebtRepo struct {
	records map[int32]domain.DebtRecord
}

func newFakeDebtRepo() *fakeDebtRepo {
	return &fakeDebtRepo{records: make(map[int32]domain.DebtRecord)}
}

func (r *fakeDebtRepo) ListAll(_ context.Context) ([]domain.DebtRecord, error) {
	var out []domain.DebtRecord
	for _, rec := range r.records {
		out = append(out, rec)
	}
	return out, nil
}

func (r *fakeDebtRepo) Upsert(_ context.Context, rec *domain.DebtRecord) error {
	r.records[rec.SectID] = *rec
	return nil
}

func (r *fakeDebtRepo) Delete(_ context.Context, sectID int32) error {
	delete(r.records, sectID)
	return nil
}

type fakeNotifier struct {
	broadcasts []string
	alerts     []string
}

func (n *fakeNotifier) Broadcast(_ context.Context, _ int32, title, _ string) error {
	n.broadcasts = append(n.broadcasts, title)
	return nil
}

func (n *fakeNotifier) Alert(_ context.Context, _ *domain.Sect, title, _ string) error {
	n.alerts = append(n.alerts, title)
	return nil
}

func (n *fakeNotifier) ListByUser(_ context.Context, _ int32, _, _ int32) ([]domain.Notification, int32, error) {
	return nil, 0, nil
}

func (n *fakeNotifier) MarkAsRead(_ context.Context, _, _ int32) error { return nil }

func testBillingConfig() config.BillingConfig {
	return config.BillingConfig{
		BasePrice:            1000,
		PricePerUnit:         100,
		LevelDiscountFactor:  0.5,
		CostPerUnitPerPeriod: 100,
		BindingFlatFee:       2000,
		BaseLimit:            10,
		PerLevelBonus:        2,
		PerMemberBonus:       0.2,
		MaxLimit:             200,
	}
}

func testMaintenanceConfig() config.MaintenanceConfig {
	return config.MaintenanceConfig{
		PeriodMs:              7 * 24 * 60 * 60 * 1000,
		GracePeriodDays:       3,
		FreezePeriodDays:      7,
		AutoReleasePeriodDays: 14,
	}
}

type fixture struct {
	svc      LandService
	sects    *fakeSectRepo
	ledger   *fakeLedgerRepo
	store    *territory.MockStore
	debts    *debt.Manager
	debtRepo *fakeDebtRepo
	notes    *fakeNotifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	sects := newFakeSectRepo()
	ledger := &fakeLedgerRepo{}
	store := territory.NewMockStore()
	notes := &fakeNotifier{}
	debtRepo := newFakeDebtRepo()
	debts := debt.NewManager(debtRepo, sects, store, notes, config.DebtConfig{
		WarningIntervalMs: 24 * 60 * 60 * 1000,
		FreezeThresholdMs: 3 * 24 * 60 * 60 * 1000,
		DeleteThresholdMs: 7 * 24 * 60 * 60 * 1000,
	})
	calc := billing.NewCalculator(testBillingConfig(), testMaintenanceConfig())
	return &fixture{
		svc:      NewLandService(sects, ledger, store, debts, calc, notes),
		sects:    sects,
		ledger:   ledger,
		store:    store,
		debts:    debts,
		debtRepo: debtRepo,
		notes:    notes,
	}
}

// freeze installs an already-frozen debt record and reloads the manager
func (f *fixture) freeze(t *testing.T, sectID int32, due int64) {
	t.Helper()
	f.debtRepo.records[sectID] = domain.DebtRecord{
		SectID:    sectID,
		StartedAt: time.Now().Add(-4 * 24 * time.Hour).UnixMilli(),
		DueAmount: due,
		Frozen:    true,
	}
	require.NoError(t, f.debts.LoadAll(context.Background()))
}

// seedSect installs a level-1 sect with a leader (user 10) and an elder
// (user 11) and a disciple (user 12)
func (f *fixture) seedSect(funds int64) *domain.Sect {
	sect := &domain.Sect{
		ID:          1,
		Name:        "Azure Cloud Sect",
		Level:       1,
		LeaderID:    10,
		AdminEmail:  "elder@azure-cloud.example",
		Funds:       funds,
		MemberCount: 3,
	}
	f.sects.sects[1] = sect
	f.sects.members[memberKey(1, 10)] = domain.Member{UserID: 10, SectID: 1, Name: "Wei Lin", Rank: domain.RankLeader}
	f.sects.members[memberKey(1, 11)] = domain.Member{UserID: 11, SectID: 1, Name: "Mu Yan", Rank: domain.RankElder}
	f.sects.members[memberKey(1, 12)] = domain.Member{UserID: 12, SectID: 1, Name: "Xiao Hu", Rank: domain.RankDisciple}
	return sect
}

// seedLand gives the sect a claimed territory of the given size
func (f *fixture) seedLand(sect *domain.Sect, units int32) string {
	f.store.Seed("claim-1", fmt.Sprintf("sect:%d", sect.ID), domain.Point{X: 1, Y: 64, Z: 1}, units)
	tid := "claim-1"
	sect.TerritoryID = &tid
	sect.LandCenter = &domain.Point{X: 1, Y: 64, Z: 1}
	sect.LastMaintenanceAt = time.Now().UnixMilli()
	return tid
}

func TestLandService_Claim(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	sect := f.seedSect(5000)

	result, err := f.svc.Claim(ctx, 1, 10, domain.Point{X: 5, Y: 70, Z: 5}, 9)
	require.NoError(t, err)
	assert.Equal(t, int64(1900), result.Cost) // 1000 + 100*9, no discount at level 1
	assert.Equal(t, int64(3100), sect.Funds)
	assert.True(t, sect.HasLand())
	assert.True(t, f.store.Has(result.ClaimID))

	require.Len(t, f.ledger.transactions, 1)
	assert.Equal(t, domain.TransactionTypeClaimDebit, f.ledger.transactions[0].Type)
	assert.Equal(t, int64(-1900), f.ledger.transactions[0].Amount)
	assert.Contains(t, f.notes.broadcasts, "Territory claimed")
}

func TestLandService_ClaimValidation(t *testing.T) {
	ctx := context.Background()

	t.Run("insufficient funds", func(t *testing.T) {
		f := newFixture(t)
		sect := f.seedSect(100)
		_, err := f.svc.Claim(ctx, 1, 10, domain.Point{}, 9)
		assert.ErrorIs(t, err, domain.ErrInsufficientFunds)
		assert.Equal(t, int64(100), sect.Funds)
		assert.Empty(t, f.ledger.transactions)
	})

	t.Run("disciple rank rejected", func(t *testing.T) {
		f := newFixture(t)
		f.seedSect(5000)
		_, err := f.svc.Claim(ctx, 1, 12, domain.Point{}, 9)
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("over limit", func(t *testing.T) {
		f := newFixture(t)
		f.seedSect(50000)
		// level 1, 3 members: limit = 10 + 2 + 0 = 12
		_, err := f.svc.Claim(ctx, 1, 10, domain.Point{}, 13)
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("already holds land", func(t *testing.T) {
		f := newFixture(t)
		sect := f.seedSect(5000)
		f.seedLand(sect, 9)
		_, err := f.svc.Claim(ctx, 1, 10, domain.Point{}, 5)
		assert.ErrorIs(t, err, domain.ErrValidation)
	})
}

func TestLandService_ClaimRollbackOnStoreFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	sect := f.seedSect(5000)
	f.store.FailNext = true

	_, err := f.svc.Claim(ctx, 1, 10, domain.Point{}, 9)
	assert.ErrorIs(t, err, domain.ErrExternalStore)
	assert.Equal(t, int64(5000), sect.Funds, "debit reversed")
	assert.False(t, sect.HasLand())

	require.Len(t, f.ledger.transactions, 2)
	assert.Equal(t, domain.TransactionTypeClaimDebit, f.ledger.transactions[0].Type)
	assert.Equal(t, domain.TransactionTypeReversal, f.ledger.transactions[1].Type)
	assert.Equal(t, int64(1900), f.ledger.transactions[1].Amount)
}

func TestLandService_Bind(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	sect := f.seedSect(5000)
	f.store.Seed("wild-claim", "user:99", domain.Point{}, 8)

	result, err := f.svc.Bind(ctx, 1, 11, "wild-claim", domain.Point{X: 2, Y: 64, Z: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(2000), result.Cost)
	assert.Equal(t, int64(3000), sect.Funds)
	require.NotNil(t, sect.TerritoryID)
	assert.Equal(t, "wild-claim", *sect.TerritoryID)

	owner, err := f.store.ClaimOwner(ctx, "wild-claim")
	require.NoError(t, err)
	assert.Equal(t, "user:10", owner, "bound claim belongs to the sect leader")
}

func TestLandService_BindUnknownClaim(t *testing.T) {
	f := newFixture(t)
	f.seedSect(5000)
	_, err := f.svc.Bind(context.Background(), 1, 10, "no-such-claim", domain.Point{})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestLandService_ExpandRollbackOnStoreFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	sect := f.seedSect(5000)
	f.seedLand(sect, 5)
	f.store.FailNext = true

	_, err := f.svc.Expand(ctx, 1, 10, 3)
	assert.ErrorIs(t, err, domain.ErrExternalStore)
	assert.Equal(t, int64(5000), sect.Funds, "funds unchanged after rollback")

	size, _ := f.store.ClaimSize(ctx, "claim-1")
	assert.Equal(t, int32(5), size)
}

func TestLandService_Expand(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	sect := f.seedSect(5000)
	f.seedLand(sect, 5)

	cost, err := f.svc.Expand(ctx, 1, 10, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(300), cost)
	assert.Equal(t, int64(4700), sect.Funds)

	size, _ := f.store.ClaimSize(ctx, "claim-1")
	assert.Equal(t, int32(8), size)
}

func TestLandService_FrozenBlocksMutations(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	sect := f.seedSect(5000)
	f.seedLand(sect, 5)

	f.freeze(t, 1, 500)
	require.True(t, f.debts.IsFrozen(1))

	_, err := f.svc.Expand(ctx, 1, 10, 1)
	assert.ErrorIs(t, err, domain.ErrFrozen)
	_, err = f.svc.Shrink(ctx, 1, 10, 1)
	assert.ErrorIs(t, err, domain.ErrFrozen)
	err = f.svc.Transfer(ctx, 1, 10, 11)
	assert.ErrorIs(t, err, domain.ErrFrozen)

	// deletion and payment stay possible while frozen
	require.NoError(t, f.svc.Delete(ctx, 1, 10, true))
}

func TestLandService_Shrink(t *testing.T) {
	ctx := context.Background()

	t.Run("refunds half the expand price", func(t *testing.T) {
		f := newFixture(t)
		sect := f.seedSect(1000)
		f.seedLand(sect, 8)

		refund, err := f.svc.Shrink(ctx, 1, 10, 4)
		require.NoError(t, err)
		assert.Equal(t, int64(200), refund) // expand price 400, half back
		assert.Equal(t, int64(1200), sect.Funds)

		size, _ := f.store.ClaimSize(ctx, "claim-1")
		assert.Equal(t, int32(4), size)
		require.Len(t, f.ledger.transactions, 1)
		assert.Equal(t, domain.TransactionTypeShrinkRefund, f.ledger.transactions[0].Type)
	})

	t.Run("occupied building slots block shrink", func(t *testing.T) {
		f := newFixture(t)
		sect := f.seedSect(1000)
		f.seedLand(sect, 8)
		sect.BuildingSlots = map[string]int32{"alchemy_hall": 2}

		_, err := f.svc.Shrink(ctx, 1, 10, 4)
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("cannot shrink to nothing", func(t *testing.T) {
		f := newFixture(t)
		sect := f.seedSect(1000)
		f.seedLand(sect, 8)

		_, err := f.svc.Shrink(ctx, 1, 10, 8)
		assert.ErrorIs(t, err, domain.ErrValidation)
	})
}

func TestLandService_Delete(t *testing.T) {
	ctx := context.Background()

	t.Run("requires confirmation", func(t *testing.T) {
		f := newFixture(t)
		sect := f.seedSect(1000)
		f.seedLand(sect, 5)
		assert.ErrorIs(t, f.svc.Delete(ctx, 1, 10, false), domain.ErrValidation)
	})

	t.Run("clears land and debt", func(t *testing.T) {
		f := newFixture(t)
		sect := f.seedSect(1000)
		f.seedLand(sect, 5)
		f.debts.Record(ctx, 1, 500)

		require.NoError(t, f.svc.Delete(ctx, 1, 10, true))
		assert.False(t, sect.HasLand())
		assert.False(t, f.store.Has("claim-1"))
		assert.Equal(t, int64(0), f.debts.Due(1))
		assert.Contains(t, f.notes.broadcasts, "Territory released")
	})
}

func TestLandService_Transfer(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	sect := f.seedSect(1000)
	f.seedLand(sect, 5)

	t.Run("to a member", func(t *testing.T) {
		require.NoError(t, f.svc.Transfer(ctx, 1, 10, 11))
		owner, err := f.store.ClaimOwner(ctx, "claim-1")
		require.NoError(t, err)
		assert.Equal(t, "user:11", owner)
	})

	t.Run("to an outsider", func(t *testing.T) {
		assert.ErrorIs(t, f.svc.Transfer(ctx, 1, 10, 99), domain.ErrValidation)
	})
}

func TestLandService_Pay(t *testing.T) {
	ctx := context.Background()

	t.Run("settles debt first", func(t *testing.T) {
		f := newFixture(t)
		sect := f.seedSect(1000)
		f.seedLand(sect, 5)
		f.debts.Record(ctx, 1, 600)

		result, err := f.svc.Pay(ctx, 1, 10, 600)
		require.NoError(t, err)
		assert.True(t, result.SettledDebt)
		assert.Equal(t, int64(600), result.AmountPaid)
		assert.Equal(t, int64(400), sect.Funds)
		assert.Equal(t, int64(0), f.debts.Due(1))
	})

	t.Run("partial debt payment refused", func(t *testing.T) {
		f := newFixture(t)
		sect := f.seedSect(1000)
		f.seedLand(sect, 5)
		f.debts.Record(ctx, 1, 600)

		_, err := f.svc.Pay(ctx, 1, 10, 599)
		assert.ErrorIs(t, err, domain.ErrValidation)
		assert.Equal(t, int64(1000), sect.Funds)
		assert.Equal(t, int64(600), f.debts.Due(1))
	})

	t.Run("ordinary maintenance payment", func(t *testing.T) {
		f := newFixture(t)
		sect := f.seedSect(1000)
		f.seedLand(sect, 5)
		sect.LastMaintenanceAt = 1 // long overdue

		result, err := f.svc.Pay(ctx, 1, 10, 500)
		require.NoError(t, err)
		assert.False(t, result.SettledDebt)
		assert.Equal(t, int64(500), result.AmountPaid) // 100 * 5 units
		assert.Equal(t, int64(500), sect.Funds)
		assert.Greater(t, sect.LastMaintenanceAt, int64(1))
	})
}

func TestLandService_ProcessMaintenance(t *testing.T) {
	ctx := context.Background()

	t.Run("not yet due", func(t *testing.T) {
		f := newFixture(t)
		sect := f.seedSect(1000)
		f.seedLand(sect, 5)

		outcome, err := f.svc.ProcessMaintenance(ctx, 1)
		require.NoError(t, err)
		assert.False(t, outcome.Charged)
		assert.Equal(t, debt.ActionNone, outcome.Action)
		assert.Equal(t, domain.StatusPaid, outcome.Status)
	})

	t.Run("due and funded", func(t *testing.T) {
		f := newFixture(t)
		sect := f.seedSect(1000)
		f.seedLand(sect, 5)
		sect.LastMaintenanceAt = time.Now().Add(-8 * 24 * time.Hour).UnixMilli()

		outcome, err := f.svc.ProcessMaintenance(ctx, 1)
		require.NoError(t, err)
		assert.True(t, outcome.Charged)
		assert.Equal(t, int64(500), outcome.Amount)
		assert.Equal(t, int64(500), sect.Funds)
		assert.Equal(t, domain.StatusPaid, outcome.Status)
	})

	t.Run("due and broke starts debt", func(t *testing.T) {
		f := newFixture(t)
		sect := f.seedSect(300) // cost is 500
		f.seedLand(sect, 5)
		sect.LastMaintenanceAt = time.Now().Add(-8 * 24 * time.Hour).UnixMilli()

		outcome, err := f.svc.ProcessMaintenance(ctx, 1)
		require.NoError(t, err)
		assert.False(t, outcome.Charged)
		assert.Equal(t, int64(300), sect.Funds, "no partial debit")
		assert.Equal(t, int64(500), f.debts.Due(1))
		assert.Equal(t, debt.ActionWarned, outcome.Action)
	})

	t.Run("no land skipped", func(t *testing.T) {
		f := newFixture(t)
		f.seedSect(1000)

		outcome, err := f.svc.ProcessMaintenance(ctx, 1)
		require.NoError(t, err)
		assert.True(t, outcome.Skipped)
	})
}

package debt

import (
	"context"
	"fmt"
	"sync"
	"time"

	"sectland-backend/internal/config"
	"sectland-backend/internal/domain"
	"sectland-backend/internal/logger"
	"sectland-backend/internal/repository"
	"sectland-backend/internal/territory"
)

// Notifier delivers escalation messages. Satisfied by the notification
// service; declared here to keep the dependency one-way.
type Notifier interface {
	// Broadcast sends an in-app message to every member of the sect
	Broadcast(ctx context.Context, sectID int32, title, message string) error
	// Alert broadcasts and additionally emails the sect's admin contact
	Alert(ctx context.Context, sect *domain.Sect, title, message string) error
}

// Action is the escalation step Handle took for a sect, if any
type Action int

const (
	ActionNone Action = iota
	ActionWarned
	ActionFrozen
	ActionForfeited
)

func (a Action) String() string {
	switch a {
	case ActionWarned:
		return "warned"
	case ActionFrozen:
		return "frozen"
	case ActionForfeited:
		return "forfeited"
	default:
		return "none"
	}
}

// Manager owns the debt records and drives the warning, freeze and
// forfeiture escalation. The in-memory map is authoritative at runtime;
// every mutation is written through to the repository so records survive a
// restart. All methods are safe for concurrent use.
type Manager struct {
	mu      sync.Mutex
	records map[int32]*domain.DebtRecord

	repo     repository.DebtRepository
	sects    repository.SectRepository
	store    territory.ClaimStore
	notifier Notifier
	cfg      config.DebtConfig
}

func NewManager(
	repo repository.DebtRepository,
	sects repository.SectRepository,
	store territory.ClaimStore,
	notifier Notifier,
	cfg config.DebtConfig,
) *Manager {
	return &Manager{
		records:  make(map[int32]*domain.DebtRecord),
		repo:     repo,
		sects:    sects,
		store:    store,
		notifier: notifier,
		cfg:      cfg,
	}
}

// LoadAll restores persisted debt records into memory. Called once at
// startup before the scheduler starts.
func (m *Manager) LoadAll(ctx context.Context) error {
	records, err := m.repo.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to load debt records: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = make(map[int32]*domain.DebtRecord, len(records))
	for i := range records {
		rec := records[i]
		m.records[rec.SectID] = &rec
	}
	logger.Info("debt records loaded", "count", len(m.records))
	return nil
}

// Record notes a missed maintenance bill. The first miss starts the debt
// clock; later misses only refresh the due amount, they never restart it.
func (m *Manager) Record(ctx context.Context, sectID int32, dueAmount int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[sectID]
	if !ok {
		rec = &domain.DebtRecord{
			SectID:    sectID,
			StartedAt: time.Now().UnixMilli(),
		}
		m.records[sectID] = rec
		logger.WithSect(sectID).Info("debt started", "due_amount", dueAmount)
	}
	rec.DueAmount = dueAmount
	m.persist(ctx, rec)
}

// Handle evaluates the escalation ladder for one sect and performs at most
// one step. Ordering matters: forfeiture is checked before freezing so a
// long outage cannot leave a sect stuck at an earlier stage.
func (m *Manager) Handle(ctx context.Context, sect *domain.Sect) Action {
	m.mu.Lock()
	rec, ok := m.records[sect.ID]
	if !ok {
		m.mu.Unlock()
		return ActionNone
	}

	now := time.Now().UnixMilli()
	elapsed := now - rec.StartedAt

	switch {
	case elapsed >= m.cfg.DeleteThresholdMs:
		delete(m.records, sect.ID)
		m.mu.Unlock()
		m.forfeit(ctx, sect, rec)
		return ActionForfeited

	case elapsed >= m.cfg.FreezeThresholdMs && !rec.Frozen:
		rec.Frozen = true
		m.persist(ctx, rec)
		m.mu.Unlock()
		m.notifyFreeze(ctx, sect, rec)
		return ActionFrozen

	case now-rec.LastWarningAt >= m.cfg.WarningIntervalMs && elapsed < m.cfg.FreezeThresholdMs:
		rec.LastWarningAt = now
		m.persist(ctx, rec)
		due := rec.DueAmount
		untilFreeze := time.Duration(m.cfg.FreezeThresholdMs-elapsed) * time.Millisecond
		m.mu.Unlock()
		m.notifyWarning(ctx, sect, due, untilFreeze)
		return ActionWarned
	}

	m.mu.Unlock()
	return ActionNone
}

// Pay settles the sect's debt. It returns false without touching any state
// when there is no debt or the offered amount does not cover it; the caller
// decides whether to move funds only after a true return.
func (m *Manager) Pay(ctx context.Context, sect *domain.Sect, amount int64) bool {
	m.mu.Lock()
	rec, ok := m.records[sect.ID]
	if !ok || amount < rec.DueAmount {
		m.mu.Unlock()
		return false
	}
	delete(m.records, sect.ID)
	m.mu.Unlock()

	m.remove(ctx, sect.ID)
	if err := m.notifier.Broadcast(ctx, sect.ID,
		"Maintenance debt settled",
		fmt.Sprintf("The outstanding maintenance fee of %d spirit stones has been paid. Territory functions are restored.", rec.DueAmount),
	); err != nil {
		logger.WithSect(sect.ID).Warn("failed to broadcast debt settlement", "error", err)
	}
	return true
}

// Due returns the outstanding amount, or 0 when the sect has no debt
func (m *Manager) Due(sectID int32) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec, ok := m.records[sectID]; ok {
		return rec.DueAmount
	}
	return 0
}

// IsFrozen reports whether the sect's territory is frozen for unpaid debt
func (m *Manager) IsFrozen(sectID int32) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[sectID]
	return ok && rec.Frozen
}

// Info returns a copy of the sect's debt record
func (m *Manager) Info(sectID int32) (domain.DebtRecord, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec, ok := m.records[sectID]; ok {
		return *rec, true
	}
	return domain.DebtRecord{}, false
}

// Clear drops the sect's debt record without any settlement ceremony. Used
// when the territory goes away through voluntary deletion.
func (m *Manager) Clear(ctx context.Context, sectID int32) {
	m.mu.Lock()
	_, ok := m.records[sectID]
	delete(m.records, sectID)
	m.mu.Unlock()
	if ok {
		m.remove(ctx, sectID)
	}
}

// Report returns a snapshot of every outstanding debt record
func (m *Manager) Report() []domain.DebtRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.DebtRecord, 0, len(m.records))
	for _, rec := range m.records {
		out = append(out, *rec)
	}
	return out
}

// forfeit seizes the territory after the delete threshold. The record has
// already been removed from the map, which makes a concurrent or repeated
// call a no-op.
func (m *Manager) forfeit(ctx context.Context, sect *domain.Sect, rec *domain.DebtRecord) {
	log := logger.WithSect(sect.ID)
	log.Warn("forfeiting territory for unpaid maintenance",
		"due_amount", rec.DueAmount,
		"debt_age_ms", time.Now().UnixMilli()-rec.StartedAt)

	if err := m.notifier.Alert(ctx, sect,
		"Territory forfeited",
		fmt.Sprintf("The maintenance fee of %d spirit stones went unpaid for too long. The sect's territory has been released.", rec.DueAmount),
	); err != nil {
		log.Warn("failed to send forfeiture alert", "error", err)
	}

	if sect.TerritoryID != nil {
		if err := m.store.DeleteClaim(ctx, *sect.TerritoryID); err != nil {
			// The claim may linger in the backing store; land state is
			// cleared regardless so billing stops.
			log.Error("failed to delete claim during forfeiture",
				"territory_id", *sect.TerritoryID, "error", err)
		}
	}

	sect.ClearLand()
	if err := m.sects.Save(ctx, sect); err != nil {
		log.Error("failed to save sect after forfeiture", "error", err)
	}
	m.remove(ctx, sect.ID)
}

func (m *Manager) notifyFreeze(ctx context.Context, sect *domain.Sect, rec *domain.DebtRecord) {
	logger.WithSect(sect.ID).Warn("territory frozen for unpaid maintenance", "due_amount", rec.DueAmount)
	if err := m.notifier.Alert(ctx, sect,
		"Territory frozen",
		fmt.Sprintf("The maintenance fee of %d spirit stones is still unpaid. Territory changes are blocked until the debt is settled.", rec.DueAmount),
	); err != nil {
		logger.WithSect(sect.ID).Warn("failed to send freeze alert", "error", err)
	}
}

func (m *Manager) notifyWarning(ctx context.Context, sect *domain.Sect, due int64, untilFreeze time.Duration) {
	if err := m.notifier.Broadcast(ctx, sect.ID,
		"Maintenance fee overdue",
		fmt.Sprintf("The sect owes %d spirit stones in maintenance fees. The territory will be frozen in %s unless the debt is paid.",
			due, untilFreeze.Round(time.Hour)),
	); err != nil {
		logger.WithSect(sect.ID).Warn("failed to broadcast overdue warning", "error", err)
	}
}

// persist writes a record through to storage. Failures are logged, not
// returned: the in-memory state already changed and callers have acted on it.
func (m *Manager) persist(ctx context.Context, rec *domain.DebtRecord) {
	if err := m.repo.Upsert(ctx, rec); err != nil {
		logger.WithSect(rec.SectID).Error("failed to persist debt record", "error", err)
	}
}

func (m *Manager) remove(ctx context.Context, sectID int32) {
	if err := m.repo.Delete(ctx, sectID); err != nil {
		logger.WithSect(sectID).Error("failed to delete debt record", "error", err)
	}
}

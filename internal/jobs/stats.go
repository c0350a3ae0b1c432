package jobs

import (
	"sync"
	"time"
)

const maxErrorEntries = 100

// ErrorEntry is one failed sect from a maintenance pass
type ErrorEntry struct {
	SectID     int32  `json:"sect_id"`
	Message    string `json:"message"`
	OccurredAt int64  `json:"occurred_at"` // epoch millis
}

// StatsSnapshot is a point-in-time copy of the maintenance counters
type StatsSnapshot struct {
	Ticks              int64        `json:"ticks"`
	SectsProcessed     int64        `json:"sects_processed"`
	SuccessfulPayments int64        `json:"successful_payments"`
	TotalCollected     int64        `json:"total_collected"`
	OverdueEvents      int64        `json:"overdue_events"`
	FreezeEvents       int64        `json:"freeze_events"`
	ForfeitureEvents   int64        `json:"forfeiture_events"`
	LastRunAt          int64        `json:"last_run_at"` // epoch millis, 0 = never
	RecentErrors       []ErrorEntry `json:"recent_errors"`
}

// Stats accumulates maintenance run counters across scheduler ticks. The
// error log keeps only the most recent entries so a persistently failing
// sect cannot grow it without bound.
type Stats struct {
	mu sync.Mutex

	ticks              int64
	sectsProcessed     int64
	successfulPayments int64
	totalCollected     int64
	overdueEvents      int64
	freezeEvents       int64
	forfeitureEvents   int64
	lastRunAt          int64
	errors             []ErrorEntry
}

func NewStats() *Stats {
	return &Stats{}
}

// TickStarted marks the beginning of a maintenance pass
func (s *Stats) TickStarted() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ticks++
	s.lastRunAt = time.Now().UnixMilli()
}

func (s *Stats) SectProcessed() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sectsProcessed++
}

func (s *Stats) PaymentCollected(amount int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.successfulPayments++
	s.totalCollected += amount
}

func (s *Stats) OverdueRecorded() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overdueEvents++
}

func (s *Stats) FreezeRecorded() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.freezeEvents++
}

func (s *Stats) ForfeitureRecorded() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.forfeitureEvents++
}

// ErrorRecorded appends to the bounded error log, evicting the oldest entry
// once full
func (s *Stats) ErrorRecorded(sectID int32, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errors = append(s.errors, ErrorEntry{
		SectID:     sectID,
		Message:    message,
		OccurredAt: time.Now().UnixMilli(),
	})
	if len(s.errors) > maxErrorEntries {
		s.errors = s.errors[len(s.errors)-maxErrorEntries:]
	}
}

// Snapshot returns a copy of the counters and the recent error log
func (s *Stats) Snapshot() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	errs := make([]ErrorEntry, len(s.errors))
	copy(errs, s.errors)
	return StatsSnapshot{
		Ticks:              s.ticks,
		SectsProcessed:     s.sectsProcessed,
		SuccessfulPayments: s.successfulPayments,
		TotalCollected:     s.totalCollected,
		OverdueEvents:      s.overdueEvents,
		FreezeEvents:       s.freezeEvents,
		ForfeitureEvents:   s.forfeitureEvents,
		LastRunAt:          s.lastRunAt,
		RecentErrors:       errs,
	}
}

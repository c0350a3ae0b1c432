package service

import (
	"context"

	"sectland-backend/internal/debt"
	"sectland-backend/internal/domain"
)

// ClaimResult reports a successful claim or bind
type ClaimResult struct {
	ClaimID string `json:"claim_id"`
	Cost    int64  `json:"cost"`
}

// PayResult reports a successful payment
type PayResult struct {
	AmountPaid  int64 `json:"amount_paid"`
	SettledDebt bool  `json:"settled_debt"`
}

// DebtInfo is the debt portion of a status report
type DebtInfo struct {
	DueAmount int64 `json:"due_amount"`
	StartedAt int64 `json:"started_at"`
	Frozen    bool  `json:"frozen"`
}

// StatusReport describes a sect's territory and payment standing. Summary
// is a human-readable rendering of the same facts.
type StatusReport struct {
	SectID           int32                    `json:"sect_id"`
	Summary          string                   `json:"summary"`
	Status           domain.MaintenanceStatus `json:"status"`
	ClaimUnits       int32                    `json:"claim_units"`
	Funds            int64                    `json:"funds"`
	NextChargeAmount int64                    `json:"next_charge_amount,omitempty"`
	NextChargeAt     int64                    `json:"next_charge_at,omitempty"`
	Debt             *DebtInfo                `json:"debt,omitempty"`
}

// MaintenanceOutcome reports what a maintenance pass did for one sect
type MaintenanceOutcome struct {
	SectID  int32
	Skipped bool
	Charged bool
	Amount  int64
	Action  debt.Action
	Status  domain.MaintenanceStatus
}

// LandService runs the territory operations. Every method that mutates a
// sect serializes on a per-sect lock, shared with the maintenance job.
type LandService interface {
	Claim(ctx context.Context, sectID, actorID int32, center domain.Point, units int32) (*ClaimResult, error)
	Bind(ctx context.Context, sectID, actorID int32, claimID string, center domain.Point) (*ClaimResult, error)
	Expand(ctx context.Context, sectID, actorID int32, units int32) (int64, error)
	Shrink(ctx context.Context, sectID, actorID int32, units int32) (int64, error)
	Delete(ctx context.Context, sectID, actorID int32, confirmed bool) error
	Transfer(ctx context.Context, sectID, actorID, newOwnerID int32) error
	Pay(ctx context.Context, sectID, actorID int32, amount int64) (*PayResult, error)
	StatusReport(ctx context.Context, sectID int32) (*StatusReport, error)
	ProcessMaintenance(ctx context.Context, sectID int32) (*MaintenanceOutcome, error)
}

// NotificationService delivers in-app messages and escalation alerts
type NotificationService interface {
	Broadcast(ctx context.Context, sectID int32, title, message string) error
	Alert(ctx context.Context, sect *domain.Sect, title, message string) error
	ListByUser(ctx context.Context, userID int32, page, pageSize int32) ([]domain.Notification, int32, error)
	MarkAsRead(ctx context.Context, id, userID int32) error
}

// EmailService sends transactional email. Implementations may be disabled by
// configuration, in which case Send is a logged no-op.
type EmailService interface {
	Send(ctx context.Context, toName, toAddr, subject, body string) error
}

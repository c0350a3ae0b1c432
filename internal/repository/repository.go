package repository

import (
	"context"

	"sectland-backend/internal/domain"
)

type SectRepository interface {
	GetByID(ctx context.Context, id int32) (*domain.Sect, error)
	// ListWithTerritory returns every sect currently holding a territory;
	// the maintenance scan iterates this set.
	ListWithTerritory(ctx context.Context) ([]domain.Sect, error)
	Save(ctx context.Context, sect *domain.Sect) error
	ListMembers(ctx context.Context, sectID int32) ([]domain.Member, error)
	GetMember(ctx context.Context, sectID, userID int32) (*domain.Member, error)
}

type DebtRepository interface {
	ListAll(ctx context.Context) ([]domain.DebtRecord, error)
	Upsert(ctx context.Context, record *domain.DebtRecord) error
	Delete(ctx context.Context, sectID int32) error
}

type LedgerRepository interface {
	CreateTransaction(ctx context.Context, tx *domain.LedgerTransaction) error
	ListBySect(ctx context.Context, sectID int32, page, pageSize int32) ([]domain.LedgerTransaction, int32, error)
}

type NotificationRepository interface {
	Create(ctx context.Context, note *domain.Notification) error
	ListByUser(ctx context.Context, userID int32, page, pageSize int32) ([]domain.Notification, int32, error)
	MarkAsRead(ctx context.Context, id, userID int32) error
}

package service

import (
	"context"
	"fmt"

	"sectland-backend/internal/domain"
	"sectland-backend/internal/logger"
	"sectland-backend/internal/repository"
)

type notificationService struct {
	notes repository.NotificationRepository
	sects repository.SectRepository
	email EmailService
}

// NewNotificationService creates the in-app messaging service. Alert
// additionally emails the sect's admin contact.
func NewNotificationService(
	notes repository.NotificationRepository,
	sects repository.SectRepository,
	email EmailService,
) NotificationService {
	return &notificationService{notes: notes, sects: sects, email: email}
}

// Broadcast writes one notification row per sect member. Individual row
// failures are logged and skipped so one bad member does not silence the
// rest; only failing to list the roster is an error.
func (s *notificationService) Broadcast(ctx context.Context, sectID int32, title, message string) error {
	members, err := s.sects.ListMembers(ctx, sectID)
	if err != nil {
		return fmt.Errorf("failed to list sect members: %w", err)
	}

	for _, member := range members {
		note := &domain.Notification{
			UserID:  member.UserID,
			SectID:  sectID,
			Title:   title,
			Message: message,
		}
		if err := s.notes.Create(ctx, note); err != nil {
			logger.WithSect(sectID).Warn("failed to create notification",
				"user_id", member.UserID, "error", err)
		}
	}
	return nil
}

func (s *notificationService) Alert(ctx context.Context, sect *domain.Sect, title, message string) error {
	if err := s.Broadcast(ctx, sect.ID, title, message); err != nil {
		return err
	}
	if err := s.email.Send(ctx, sect.Name, sect.AdminEmail, title, message); err != nil {
		// Email is supplementary; the in-app broadcast already landed
		logger.WithSect(sect.ID).Warn("failed to email admin", "error", err)
	}
	return nil
}

func (s *notificationService) ListByUser(ctx context.Context, userID int32, page, pageSize int32) ([]domain.Notification, int32, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return s.notes.ListByUser(ctx, userID, page, pageSize)
}

func (s *notificationService) MarkAsRead(ctx context.Context, id, userID int32) error {
	return s.notes.MarkAsRead(ctx, id, userID)
}

package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dstanic/civium/internal/domain"
	"github.com/dstanic/civium/internal/repository"
	"github.com/google/uuid"
)

var (
	ErrNotificationNotFound = errors.New("notification not found")
	ErrInvalidEvent         = errors.New("invalid notification type or target")
)

type NotificationService struct {
	repo     repository.NotificationRepository
	notifier Notifier
}

func NewNotificationService(repo repository.NotificationRepository) *NotificationService {
	return &NotificationService{repo: repo}
}

// SetNotifier sets the real-time notifier (optional dependency).
func (s *NotificationService) SetNotifier(n Notifier) {
	s.notifier = n
}

// Publish records a domain event as a notification and pushes it to the
// recipient's connections. Unlike messages, the push is a supplementary
// signal: clients deduplicate it and reconcile against the store later, so
// stale or duplicate pushes converge rather than corrupt.
func (s *NotificationService) Publish(ctx context.Context, recipientID uuid.UUID, typ domain.NotificationType, target domain.NotificationTarget) (*domain.Notification, error) {
	if !domain.ValidNotificationType(typ) || !domain.ValidTargetType(target.Type) || target.ID == uuid.Nil {
		return nil, ErrInvalidEvent
	}

	n := &domain.Notification{
		ID:          uuid.New(),
		RecipientID: recipientID,
		Type:        typ,
		Target:      target,
		CreatedAt:   time.Now(),
	}

	if err := s.repo.Create(ctx, n); err != nil {
		return nil, fmt.Errorf("creating notification: %w", err)
	}

	if s.notifier != nil {
		s.notifier.NotifyNotification(n)
	}

	return n, nil
}

// List returns all notifications for the recipient, newest first. The
// result is ground truth for client caches.
func (s *NotificationService) List(ctx context.Context, recipientID uuid.UUID) ([]domain.Notification, error) {
	notifications, err := s.repo.ListByRecipient(ctx, recipientID)
	if err != nil {
		return nil, err
	}
	if notifications == nil {
		notifications = []domain.Notification{}
	}
	return notifications, nil
}

// MarkRead flags one notification read for its owner. This is a direct
// request/response path; no broadcast to the user's other connections.
func (s *NotificationService) MarkRead(ctx context.Context, userID, id uuid.UUID) (*domain.Notification, error) {
	n, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if n == nil || n.RecipientID != userID {
		return nil, ErrNotificationNotFound
	}

	updated, err := s.repo.MarkRead(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("marking notification read: %w", err)
	}
	if updated == nil {
		return nil, ErrNotificationNotFound
	}
	return updated, nil
}

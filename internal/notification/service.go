package notification

import (
	"context"

	"github.com/getsentry/sentry-go"

	"vendorhub/internal/observability"
)

// Service stores notifications and pushes them onto live streams.
type Service struct {
	repo   *Repository
	hub    *Hub
	logger *observability.Logger
}

func NewService(repo *Repository, hub *Hub, logger *observability.Logger) *Service {
	return &Service{repo: repo, hub: hub, logger: logger}
}

// Notify writes a notification for one user and publishes it to the hub.
func (s *Service) Notify(ctx context.Context, userID, notifType, message string) error {
	n, err := s.repo.Create(ctx, userID, notifType, message)
	if err != nil {
		return err
	}
	s.hub.Publish(n)
	return nil
}

// SupplierEvent notifies everyone interested in a supplier: its linked
// vendor accounts and the admins. Delivery failures are logged, never
// propagated into the request that triggered the event.
func (s *Service) SupplierEvent(ctx context.Context, supplierID int64, eventType, message string) {
	recipients, err := s.repo.RecipientsForSupplier(ctx, supplierID)
	if err != nil {
		sentry.CaptureException(err)
		s.logger.Error("resolve notification recipients failed", map[string]any{
			"supplier_id": supplierID,
			"error":       err.Error(),
		})
		return
	}

	for _, userID := range recipients {
		if err := s.Notify(ctx, userID, eventType, message); err != nil {
			sentry.CaptureException(err)
			s.logger.Error("store notification failed", map[string]any{
				"user_id": userID,
				"type":    eventType,
				"error":   err.Error(),
			})
		}
	}
}

package outbox

import (
	"context"

	"github.com/llcportal/consultations/libs/db"
	"github.com/llcportal/consultations/services/booking-service/internal/model"
)

// Notifier enqueues notification requests through the outbox.
type Notifier struct {
	pool *db.Pool
	repo *Repository
}

func NewNotifier(pool *db.Pool, repo *Repository) *Notifier {
	return &Notifier{pool: pool, repo: repo}
}

func (n *Notifier) Notify(ctx context.Context, msg model.Notification) error {
	evt, err := NotificationEvent(msg)
	if err != nil {
		return err
	}
	tx, err := n.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := n.repo.Insert(ctx, tx, evt); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

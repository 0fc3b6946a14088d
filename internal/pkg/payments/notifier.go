package payments

import (
	"context"

	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/LinerHub/app/repository"
)

// Notifier delivers user facing notifications. Delivery is best effort.
type Notifier interface {
	NotifyUser(ctx context.Context, userID uint, title, message, category string) error
}

// DatabaseNotifier stores notifications in the notifications table.
type DatabaseNotifier struct {
	repo repository.NotificationRepository
}

func NewDatabaseNotifier(repo repository.NotificationRepository) *DatabaseNotifier {
	return &DatabaseNotifier{repo: repo}
}

func (n *DatabaseNotifier) NotifyUser(ctx context.Context, userID uint, title, message, category string) error {
	return n.repo.Create(userID, title, message, category)
}

// pendingNotification is queued inside a transaction and sent after commit.
type pendingNotification struct {
	userID   uint
	title    string
	message  string
	category string
}

func dispatchNotifications(ctx context.Context, notifier Notifier, outbox []pendingNotification) {
	if notifier == nil {
		return
	}
	for _, n := range outbox {
		if err := notifier.NotifyUser(ctx, n.userID, n.title, n.message, n.category); err != nil {
			log.Errorf("[Reconcile] Failed to notify user %d (%s): %v", n.userID, n.title, err)
		}
	}
}

package maxcube

import (
	"context"
	"fmt"
)

// Setup notification constants.
const (
	// NotificationID identifies the setup failure notification.
	NotificationID = "maxcube_notification"

	// NotificationTitle is shown to the user.
	NotificationTitle = "Max!Cube gateway setup"
)

// Notification is a persistent user-visible message.
type Notification struct {
	ID      string
	Title   string
	Message string
}

// Notifier delivers notifications to the user.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(ctx context.Context, n Notification) error

// Notify calls f(ctx, n).
func (f NotifierFunc) Notify(ctx context.Context, n Notification) error {
	return f(ctx, n)
}

// setupNotification builds the notification for a failed initial connection.
func setupNotification(id string, err error) Notification {
	return Notification{
		ID:      id,
		Title:   NotificationTitle,
		Message: fmt.Sprintf("Error: %v. You will need to restart after fixing.", err),
	}
}

package domain

import "time"

type NotificationType string

const (
	NotificationSuccess NotificationType = "success"
	NotificationError   NotificationType = "error"
	NotificationWarning NotificationType = "warning"
	NotificationInfo    NotificationType = "info"
)

// Notification is a transient user-facing message. Duration controls
// auto-removal; zero means the producer's default applies.
type Notification struct {
	ID        string
	Type      NotificationType
	Title     string
	Message   string
	Duration  time.Duration
	ShowClose bool
}

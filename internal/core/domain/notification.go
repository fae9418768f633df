package domain

import "time"

const NotificationLifetime = 3 * time.Second

type NotificationKind string

const (
	NotificationSuccess NotificationKind = "success"
	NotificationError   NotificationKind = "error"
)

// A Notification is a transient message shown to the visitor.
type Notification struct {
	Message      string
	Kind         NotificationKind
	DismissAfter time.Duration
}

func SuccessNotification(msg string) Notification {
	return Notification{msg, NotificationSuccess, NotificationLifetime}
}

func ErrorNotification(msg string) Notification {
	return Notification{msg, NotificationError, NotificationLifetime}
}

type Redirect struct {
	URL   string
	After time.Duration
}

type CheckoutOutcome struct {
	Notification Notification
	Redirect     Redirect
}

// Package notify is the fire-and-forget notification sink. Delivery is
// attempted at most once and failures never block the operation that
// triggered them.
package notify

import "log"

type Notifier interface {
	Notify(userID, kind string, payload map[string]any)
}

// LogNotifier writes notifications to the application log. It stands in for
// the excluded chat-delivery layer.
type LogNotifier struct{}

func (LogNotifier) Notify(userID, kind string, payload map[string]any) {
	log.Printf("notify: user=%s kind=%s payload=%v", userID, kind, payload)
}

// Noop drops notifications; used in tests.
type Noop struct{}

func (Noop) Notify(string, string, map[string]any) {}

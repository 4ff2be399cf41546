package solana

// LogSource delivers transaction log notifications for a program.
type LogSource interface {
	// Logs returns the notification channel. The channel is closed
	// when the source shuts down.
	Logs() <-chan LogNotification

	// Close stops the source and closes the notification channel.
	Close() error
}

// LogNotification is one logsSubscribe message.
type LogNotification struct {
	Signature string
	Slot      int64
	Logs      []string
	Err       interface{}
}

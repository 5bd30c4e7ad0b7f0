package notifier

// TextNotifier is the minimal delivery interface. Delivery failure is
// never fatal to the caller; implementations log and return the error for
// bookkeeping only.
type TextNotifier interface {
	SendText(text string) error
}

// Noop swallows every message. Used when notifications are disabled and in
// tests.
type Noop struct{}

func (Noop) SendText(string) error { return nil }

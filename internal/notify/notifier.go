package notify

import (
	"context"

	"go.uber.org/zap"
)

// Message is a post-commit notification. Delivery is best effort: a failed
// send never affects the transaction that produced it.
type Message struct {
	Recipient string
	Subject   string
	Body      string
}

// Notifier delivers receipt notifications after an order commits.
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

type logNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier returns a Notifier that records messages in the application
// log instead of delivering them externally.
func NewLogNotifier(logger *zap.Logger) Notifier {
	return &logNotifier{logger: logger}
}

func (n *logNotifier) Send(_ context.Context, msg Message) error {
	n.logger.Info("Notification dispatched",
		zap.String("recipient", msg.Recipient),
		zap.String("subject", msg.Subject),
		zap.String("body", msg.Body),
	)
	return nil
}

package push

import (
	"context"

	"github.com/sirupsen/logrus"
)

// LogTransport logs push notifications instead of sending them (PUSH_MODE=dev)
type LogTransport struct {
	logger *logrus.Logger
}

// NewLogTransport creates a transport that only logs
func NewLogTransport(logger *logrus.Logger) *LogTransport {
	return &LogTransport{logger: logger}
}

// Send logs the notification and reports it delivered when there is a recipient
func (t *LogTransport) Send(ctx context.Context, deviceTokens []string, title, body string, data map[string]string) (bool, error) {
	if len(deviceTokens) == 0 {
		return false, nil
	}

	t.logger.WithFields(logrus.Fields{
		"devices": len(deviceTokens),
		"title":   title,
		"body":    body,
		"data":    data,
	}).Info("📱 DEV MODE - push notification")

	return true, nil
}

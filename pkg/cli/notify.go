package cli

import (
	"context"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/ozxin/nx-admin/pkg/httputil"
)

// NewLogrus creates the text logger used for user-facing messages
func NewLogrus(w io.Writer, level string) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(w)
	logger.SetFormatter(&logrus.TextFormatter{
		DisableTimestamp: true,
	})

	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		parsed = logrus.InfoLevel
	}
	logger.SetLevel(parsed)
	return logger
}

// LogrusNotifier shows API errors as log entries
type LogrusNotifier struct {
	Log *logrus.Logger
}

// Notify logs the report message at error level
func (n LogrusNotifier) Notify(_ context.Context, err *httputil.APIError) {
	n.Log.WithFields(logrus.Fields{
		"kind": string(err.Kind),
		"code": err.Code,
	}).Error(err.ReportMessage())
}

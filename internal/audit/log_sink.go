package audit

import (
	"context"

	"go.uber.org/zap"

	"github.com/dropDatabas3/mcgate/internal/observability/logger"
)

// LogSink escribe cada entrada como una línea del logger "audit".
type LogSink struct {
	log *zap.Logger
}

func NewLogSink(log *zap.Logger) *LogSink {
	if log == nil {
		log = logger.Named("audit")
	}
	return &LogSink{log: log}
}

func (s *LogSink) Write(_ context.Context, batch []Entry) error {
	for _, e := range batch {
		s.log.Info("admission",
			logger.ClientID(e.ClientID),
			logger.Method(e.Method),
			logger.Path(e.Endpoint),
			logger.Category(e.Category),
			logger.Decision(e.Decision),
			logger.Reason(e.Reason),
			logger.RequestID(e.RequestID),
			zap.Time("at", e.At),
		)
	}
	return nil
}

func (s *LogSink) Close() error { return nil }

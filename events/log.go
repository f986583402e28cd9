package events

import (
	"context"

	"go.uber.org/zap"

	"github.com/teranos/exchainge/logger"
)

// Log writes each event as a structured log line.
type Log struct {
	logger *zap.SugaredLogger
}

// NewLog returns a sink writing to l.
func NewLog(l *zap.SugaredLogger) *Log {
	return &Log{logger: l}
}

func (s *Log) Emit(ctx context.Context, e Event) {
	kv := []interface{}{
		logger.FieldEventID, e.ID.String(),
		logger.FieldEventType, e.Type,
		"subject", e.Subject,
	}
	if e.Actor != "" {
		kv = append(kv, logger.FieldIdentity, e.Actor)
	}
	for k, v := range e.Data {
		kv = append(kv, k, v)
	}
	logger.FromContext(ctx, s.logger).Infow("Event", kv...)
}

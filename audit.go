package sessionauth

import (
	"io"
	"log/slog"

	"github.com/MrEthical07/sessionauth/internal/audit"
)

// AuditEvent is one structured security event.
type AuditEvent = audit.Event

// AuditSink receives audit events from the engine's dispatcher goroutine.
type AuditSink = audit.Sink

type NoOpSink = audit.NoOpSink

type ChannelSink = audit.ChannelSink

type JSONWriterSink = audit.JSONWriterSink

type SlogSink = audit.SlogSink

// NewChannelSink returns a sink that buffers events in a channel, mostly
// useful in tests.
func NewChannelSink(buffer int) *ChannelSink {
	return audit.NewChannelSink(buffer)
}

// NewJSONWriterSink writes one JSON object per event to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return audit.NewJSONWriterSink(w)
}

// NewSlogSink logs events through logger.
func NewSlogSink(logger *slog.Logger) *SlogSink {
	return audit.NewSlogSink(logger)
}

func newAuditDispatcher(cfg AuditConfig, sink AuditSink) *audit.Dispatcher {
	return audit.NewDispatcher(audit.Config{
		Enabled:    cfg.Enabled,
		BufferSize: cfg.BufferSize,
		DropIfFull: cfg.DropIfFull,
	}, sink)
}

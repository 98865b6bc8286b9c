package observability

import (
	"github.com/rs/zerolog"
)

// LogObserver renders protocol events as structured log lines.
type LogObserver struct {
	logger zerolog.Logger
}

func NewLogObserver(logger zerolog.Logger) *LogObserver {
	return &LogObserver{logger: logger}
}

func (o *LogObserver) Observe(e Event) {
	var ev *zerolog.Event
	switch e.Kind {
	case EventAbandoned:
		ev = o.logger.Error()
	case EventReplyTimeout, EventIntegrityMismatch, EventFrameMalformed, EventCorruptionInjected:
		ev = o.logger.Warn()
	case EventAttemptStarted, EventReplyReceived, EventFrameDuplicate:
		ev = o.logger.Debug()
	default:
		ev = o.logger.Info()
	}

	ev = ev.Str("event", string(e.Kind)).Str("role", string(e.Role)).Stringer("seq", e.Sequence)
	if e.SessionID != "" {
		ev = ev.Str("session", e.SessionID)
	}
	if e.Peer != "" {
		ev = ev.Str("peer", e.Peer)
	}
	if e.Attempt > 0 {
		ev = ev.Int("attempt", e.Attempt).Int("max_attempts", e.MaxAttempts)
	}
	if len(e.Payload) > 0 {
		ev = ev.Bytes("payload", e.Payload)
	}
	if e.Reply != "" {
		ev = ev.Str("reply", e.Reply)
	}
	if e.Err != nil {
		ev = ev.AnErr("error", e.Err)
	}
	ev.Msg("arq_event")
}

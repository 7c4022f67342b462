package core

import (
	"sync/atomic"

	"go.uber.org/zap"
)

// Stats counts what one worker has done. The reactor goroutine is the
// only writer, but the shutdown path and tests read concurrently, so
// the counters stay atomic.
type Stats struct {
	Accepted     atomic.Uint64
	Served       atomic.Uint64
	ClientErrors atomic.Uint64
	ServerErrors atomic.Uint64
	ParseErrors  atomic.Uint64
	Timeouts     atomic.Uint64
	TornDown     atomic.Uint64
}

// CountResponse files a completed response under its status class.
func (s *Stats) CountResponse(code int) {
	switch {
	case code >= 500:
		s.ServerErrors.Add(1)
	case code >= 400:
		s.ClientErrors.Add(1)
	default:
		s.Served.Add(1)
	}
}

// Fields renders the counters for a log line.
func (s *Stats) Fields() []zap.Field {
	return []zap.Field{
		zap.Uint64("accepted", s.Accepted.Load()),
		zap.Uint64("served", s.Served.Load()),
		zap.Uint64("client_errors", s.ClientErrors.Load()),
		zap.Uint64("server_errors", s.ServerErrors.Load()),
		zap.Uint64("parse_errors", s.ParseErrors.Load()),
		zap.Uint64("timeouts", s.Timeouts.Load()),
		zap.Uint64("torn_down", s.TornDown.Load()),
	}
}

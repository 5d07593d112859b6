package relite

import (
	"io"
	"log"
)

// logger is the Connection's diagnostic sink. It wraps the standard
// library logger rather than a structured logging library, matching how
// small embedded components in this codebase log. It fires only off the
// hot path: pager eviction, WAL recovery, and connection lifecycle events.
type logger struct {
	l *log.Logger
}

// newLogger builds a logger tagged with id. A nil w defaults to
// log.Default()'s destination rather than discarding output.
func newLogger(id string, w io.Writer) *logger {
	if w == nil {
		w = log.Default().Writer()
	}
	return &logger{l: log.New(w, "relite["+id+"] ", log.LstdFlags)}
}

func (lg *logger) Debugf(format string, args ...any) { lg.l.Printf("DEBUG "+format, args...) }
func (lg *logger) Infof(format string, args ...any)  { lg.l.Printf("INFO "+format, args...) }
func (lg *logger) Warnf(format string, args ...any)  { lg.l.Printf("WARN "+format, args...) }
func (lg *logger) Errorf(format string, args ...any) { lg.l.Printf("ERROR "+format, args...) }

package diag

import (
	"sync"

	"compgen/internal/logging"
)

// Warning is a recorded best-effort degradation.
type Warning struct {
	Kind    string
	Entity  string
	Message string
	Err     error
}

func (w Warning) String() string {
	s := w.Message
	if w.Entity != "" {
		s += " in " + w.Entity
	}
	if w.Err != nil {
		s += ": " + w.Err.Error()
	}
	return s
}

// Collector records the warnings of one generation run. The zero value is ready to use.
type Collector struct {
	mu       sync.Mutex
	warnings []Warning
}

func NewCollector() *Collector {
	return &Collector{}
}

// Warn records and logs a warning. A nil collector only logs.
func (c *Collector) Warn(w Warning) {
	fields := []interface{}{"kind", w.Kind}
	if w.Entity != "" {
		fields = append(fields, "entity", w.Entity)
	}
	if w.Err != nil {
		fields = append(fields, "error", w.Err.Error())
	}
	logging.Logger.Warnw(w.Message, fields...)

	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.warnings = append(c.warnings, w)
}

// Warnings returns a copy of everything recorded so far.
func (c *Collector) Warnings() []Warning {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Warning, len(c.warnings))
	copy(out, c.warnings)
	return out
}

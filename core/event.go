package core

import "time"

// Attributes is the enrichment record attached to an Event. It is owned by
// the dispatch call that creates it and is read-only once published.
type Attributes struct {
	// Fields is the open key/value mapping supplied by the caller
	Fields []Field
	// TimeUTC is the emit time
	TimeUTC time.Time
	// TimeFormatted is TimeUTC rendered by the TimeSource layout
	TimeFormatted string
	// StackTrace is set when the caller supplied one or a sink required one
	StackTrace string
	// Tags is a snapshot of the TagRegistry at emit time
	Tags map[string]string
	// Host is an opaque reference owned by the host application
	Host any
}

// NewAttributes creates an Attributes record holding the given fields.
func NewAttributes(fields ...Field) *Attributes {
	return &Attributes{Fields: fields}
}

// WithStackTrace returns a shallow copy of a carrying the given stack trace.
// The receiver is left untouched so events already handed to sinks keep
// their view.
func (a *Attributes) WithStackTrace(trace string) *Attributes {
	cp := *a
	cp.StackTrace = trace
	return &cp
}

// Lookup returns the first field with the given key.
func (a *Attributes) Lookup(key string) (Field, bool) {
	if a == nil {
		return Field{}, false
	}
	for _, f := range a.Fields {
		if f.Key == key {
			return f, true
		}
	}
	return Field{}, false
}

// Event represents one log call after enrichment. It is shared by pointer
// across all sinks receiving it and must not be mutated by them.
type Event struct {
	Level    Level
	Category string
	Message  string
	Attrs    *Attributes
	Err      error
}

// StackTrace returns the attached stack trace, if any.
func (e *Event) StackTrace() string {
	if e.Attrs == nil {
		return ""
	}
	return e.Attrs.StackTrace
}

// Time returns the emit time of the event.
func (e *Event) Time() time.Time {
	if e.Attrs == nil {
		return time.Time{}
	}
	return e.Attrs.TimeUTC
}

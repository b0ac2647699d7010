package sink

import "github.com/philipp01105/pipelog/core"

// Keys used when an event's extras are flattened for a backend logger
const (
	KeyCategory   = "category"
	KeyError      = "error"
	KeyTags       = "tags"
	KeyStackTrace = "stacktrace"
)

// KeyValues flattens the event's error, fields, tags and stack trace into
// alternating keys and values. The category is not included.
func KeyValues(event *core.Event) []any {
	var n int
	if event.Attrs != nil {
		n = 2 * (len(event.Attrs.Fields) + 2)
	}
	kv := make([]any, 0, n+2)
	if event.Err != nil {
		kv = append(kv, KeyError, event.Err)
	}
	if event.Attrs == nil {
		return kv
	}
	for _, f := range event.Attrs.Fields {
		kv = append(kv, f.Key, f.Value())
	}
	if len(event.Attrs.Tags) > 0 {
		kv = append(kv, KeyTags, event.Attrs.Tags)
	}
	if event.Attrs.StackTrace != "" {
		kv = append(kv, KeyStackTrace, event.Attrs.StackTrace)
	}
	return kv
}

package logger

import "github.com/philipp01105/pipelog/core"

// Field constructors, re-exported so callers only import logger.
var (
	String   = core.String
	Int      = core.Int
	Int64    = core.Int64
	Uint64   = core.Uint64
	Float64  = core.Float64
	Bool     = core.Bool
	Time     = core.Time
	Duration = core.Duration
	Any      = core.Any
	Stringer = core.Stringer
)

// Err builds an error field under the "error" key.
func Err(err error) core.Field {
	return core.NamedError("error", err)
}

// NamedErr builds an error field under key.
func NamedErr(key string, err error) core.Field {
	return core.NamedError(key, err)
}

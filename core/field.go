package core

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

// FieldType tags which member of a Field carries the value
type FieldType uint8

const (
	StringType FieldType = iota
	IntType
	Int64Type
	Uint64Type
	Float64Type
	BoolType
	TimeType
	DurationType
	ErrorType
	AnyType
)

var fieldTypeNames = [...]string{
	StringType:   "string",
	IntType:      "int",
	Int64Type:    "int64",
	Uint64Type:   "uint64",
	Float64Type:  "float64",
	BoolType:     "bool",
	TimeType:     "time",
	DurationType: "duration",
	ErrorType:    "error",
	AnyType:      "any",
}

func (t FieldType) String() string {
	if int(t) < len(fieldTypeNames) {
		return fieldTypeNames[t]
	}
	return "unknown"
}

// Field is one entry of an event's open key/value mapping. Scalars are held
// in Int64 or Float64 so constructing a field does not allocate. Error
// fields keep the error in Any and its message in Str.
type Field struct {
	Key     string
	Type    FieldType
	Int64   int64
	Float64 float64
	Str     string
	Any     any
}

// String builds a string field.
func String(key, val string) Field {
	return Field{Key: key, Type: StringType, Str: val}
}

// Int builds an int field.
func Int(key string, val int) Field {
	return Field{Key: key, Type: IntType, Int64: int64(val)}
}

// Int64 builds an int64 field.
func Int64(key string, val int64) Field {
	return Field{Key: key, Type: Int64Type, Int64: val}
}

// Uint64 builds a uint64 field. The bits are stored in Int64.
func Uint64(key string, val uint64) Field {
	return Field{Key: key, Type: Uint64Type, Int64: int64(val)}
}

// Float64 builds a float64 field.
func Float64(key string, val float64) Field {
	return Field{Key: key, Type: Float64Type, Float64: val}
}

// Bool builds a bool field.
func Bool(key string, val bool) Field {
	f := Field{Key: key, Type: BoolType}
	if val {
		f.Int64 = 1
	}
	return f
}

// Time builds a time field. The instant is kept as UTC nanoseconds.
func Time(key string, val time.Time) Field {
	return Field{Key: key, Type: TimeType, Int64: val.UnixNano()}
}

// Duration builds a duration field.
func Duration(key string, val time.Duration) Field {
	return Field{Key: key, Type: DurationType, Int64: int64(val)}
}

// NamedError builds an error field. A nil err yields an empty message.
func NamedError(key string, err error) Field {
	f := Field{Key: key, Type: ErrorType, Any: err}
	if err != nil {
		f.Str = err.Error()
	}
	return f
}

// Any builds a field holding an arbitrary value.
func Any(key string, val any) Field {
	return Field{Key: key, Type: AnyType, Any: val}
}

// Stringer builds a string field from val.String(). A nil val yields "".
func Stringer(key string, val fmt.Stringer) Field {
	if val == nil {
		return String(key, "")
	}
	return String(key, val.String())
}

// AppendValue appends the text form of the value to dst.
func (f Field) AppendValue(dst []byte) []byte {
	switch f.Type {
	case StringType, ErrorType:
		return append(dst, f.Str...)
	case IntType, Int64Type:
		return strconv.AppendInt(dst, f.Int64, 10)
	case Uint64Type:
		return strconv.AppendUint(dst, uint64(f.Int64), 10)
	case Float64Type:
		return strconv.AppendFloat(dst, f.Float64, 'f', -1, 64)
	case BoolType:
		return strconv.AppendBool(dst, f.Int64 == 1)
	case TimeType:
		return time.Unix(0, f.Int64).UTC().AppendFormat(dst, time.RFC3339)
	case DurationType:
		return append(dst, time.Duration(f.Int64).String()...)
	case AnyType:
		return fmt.Appendf(dst, "%v", f.Any)
	default:
		return dst
	}
}

// StringValue returns the text form of the value.
func (f Field) StringValue() string {
	if f.Type == StringType || f.Type == ErrorType {
		return f.Str
	}
	return string(f.AppendValue(nil))
}

// Value returns the value as its natural Go type. Error fields return the
// original error when one was recorded.
func (f Field) Value() any {
	switch f.Type {
	case StringType:
		return f.Str
	case IntType:
		return int(f.Int64)
	case Int64Type:
		return f.Int64
	case Uint64Type:
		return uint64(f.Int64)
	case Float64Type:
		return f.Float64
	case BoolType:
		return f.Int64 == 1
	case TimeType:
		return time.Unix(0, f.Int64).UTC()
	case DurationType:
		return time.Duration(f.Int64)
	case ErrorType:
		if err := f.Err(); err != nil {
			return err
		}
		return f.Str
	default:
		return f.Any
	}
}

// Err returns the error held by an error field, or nil. A field built
// from a message alone yields an error carrying that message.
func (f Field) Err() error {
	if f.Type != ErrorType {
		return nil
	}
	if err, ok := f.Any.(error); ok {
		return err
	}
	if f.Str != "" {
		return errors.New(f.Str)
	}
	return nil
}

package core

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type point struct{ x, y int }

func (p point) String() string { return fmt.Sprintf("(%d,%d)", p.x, p.y) }

func TestField_Constructors(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.FixedZone("X", 2*3600))
	cause := errors.New("an error occurred")

	tests := []struct {
		field Field
		typ   FieldType
		text  string
		value any
	}{
		{String("s", "hello"), StringType, "hello", "hello"},
		{Int("i", 42), IntType, "42", 42},
		{Int64("i64", -1234567890), Int64Type, "-1234567890", int64(-1234567890)},
		{Uint64("u", 1<<63), Uint64Type, "9223372036854775808", uint64(1 << 63)},
		{Float64("f", 3.14), Float64Type, "3.14", 3.14},
		{Bool("t", true), BoolType, "true", true},
		{Bool("f", false), BoolType, "false", false},
		{Duration("d", 5*time.Second), DurationType, "5s", 5 * time.Second},
		{Time("at", at), TimeType, "2026-01-02T01:04:05Z", at.UTC()},
		{NamedError("err", cause), ErrorType, "an error occurred", cause},
		{Any("p", point{1, 2}), AnyType, "(1,2)", point{1, 2}},
		{Stringer("p", point{3, 4}), StringType, "(3,4)", "(3,4)"},
	}
	for _, tt := range tests {
		t.Run(tt.typ.String()+"/"+tt.field.Key, func(t *testing.T) {
			assert.Equal(t, tt.typ, tt.field.Type)
			assert.Equal(t, tt.text, tt.field.StringValue())
			assert.Equal(t, tt.text, string(tt.field.AppendValue(nil)))
			assert.Equal(t, tt.value, tt.field.Value())
		})
	}
}

func TestField_AppendValueReusesBuffer(t *testing.T) {
	dst := []byte("n=")
	dst = Int("n", 7).AppendValue(dst)
	dst = append(dst, " ok="...)
	dst = Bool("ok", true).AppendValue(dst)
	assert.Equal(t, "n=7 ok=true", string(dst))
}

func TestField_Err(t *testing.T) {
	cause := errors.New("boom")

	assert.Same(t, cause, NamedError("e", cause).Err())
	assert.Nil(t, NamedError("e", nil).Err())
	assert.Equal(t, "", NamedError("e", nil).StringValue())
	assert.Nil(t, String("e", "boom").Err(), "only error fields carry errors")

	bare := Field{Key: "e", Type: ErrorType, Str: "from message"}
	assert.EqualError(t, bare.Err(), "from message")
	assert.EqualError(t, bare.Value().(error), "from message")
}

func TestField_NilStringer(t *testing.T) {
	f := Stringer("s", nil)
	assert.Equal(t, StringType, f.Type)
	assert.Equal(t, "", f.StringValue())
}

func TestFieldType_String(t *testing.T) {
	assert.Equal(t, "duration", DurationType.String())
	assert.Equal(t, "unknown", FieldType(200).String())
}

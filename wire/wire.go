// Package wire is the runtime support library every generated view,
// builder, and validator imports: little-endian primitive access, the
// structured validation result and error codes generated validators
// return, and the process-wide type registry nested views use to look up
// another named type's footprint/validate pair.
package wire

import (
	"encoding/binary"
	"math"

	"github.com/x448/float16"
)

// Code is a structured validation failure reason, surfaced by generated
// validators instead of an opaque error string.
type Code int

const (
	OK Code = iota
	BufferTooShort
	InvalidTag
	UnknownVariant
	ParamsRequired
	SizeMismatch
	OutOfBounds
	InvalidNestedPayload
)

func (c Code) String() string {
	switch c {
	case OK:
		return "OK"
	case BufferTooShort:
		return "BUFFER_TOO_SHORT"
	case InvalidTag:
		return "INVALID_TAG"
	case UnknownVariant:
		return "UNKNOWN_VARIANT"
	case ParamsRequired:
		return "PARAMS_REQUIRED"
	case SizeMismatch:
		return "SIZE_MISMATCH"
	case OutOfBounds:
		return "OUT_OF_BOUNDS"
	case InvalidNestedPayload:
		return "INVALID_NESTED_PAYLOAD"
	default:
		return "UNKNOWN_CODE"
	}
}

// Error pairs a [Code] with the field or type context it was raised from.
// Generated code returns *Error as the error value of Validate, never a
// bare string.
type Error struct {
	Code    Code
	Type    string
	Field   string
	Message string
}

func (e *Error) Error() string {
	if e.Field == "" {
		return e.Code.String() + ": " + e.Type + ": " + e.Message
	}
	return e.Code.String() + ": " + e.Type + "." + e.Field + ": " + e.Message
}

// Params is an opaque bag of dynamic parameters: external field-ref
// bindings, enum tag values, and size-discriminated-union observed
// payload sizes, keyed by the dotted path or synthetic name the planner
// assigned it (see abi/ir.Param).
type Params map[string]uint64

// Result is the outcome of validating a buffer against a generated type's
// rules: whether it is structurally valid, how many bytes it consumed, and
// (when derivable) the fully populated parameter set recovered from the
// buffer itself.
type Result struct {
	OK       bool
	Err      *Error
	Consumed uint64
	Params   Params
}

// Footprint computes the exact byte length of a valid instance of a type
// given its non-derived dynamic parameters.
type Footprint func(params Params) (uint64, error)

// Validate walks a buffer against a type's layout, deriving any missing
// derived parameters from the buffer itself.
type Validate func(buf []byte, params Params) Result

// Entry is one registered type's footprint/validate pair.
type Entry struct {
	Footprint Footprint
	Validate  Validate
}

// GetUint8 reads a single byte at off.
func GetUint8(buf []byte, off uint64) uint8 {
	return buf[off]
}

// GetInt8 reads a single byte at off as a signed two's-complement value.
func GetInt8(buf []byte, off uint64) int8 {
	return int8(buf[off])
}

// PutUint8 writes a single byte at off.
func PutUint8(buf []byte, off uint64, v uint8) {
	buf[off] = v
}

// PutInt8 writes a single byte at off.
func PutInt8(buf []byte, off uint64, v int8) {
	buf[off] = byte(v)
}

// GetUint16 reads a little-endian uint16 at off.
func GetUint16(buf []byte, off uint64) uint16 {
	return binary.LittleEndian.Uint16(buf[off : off+2])
}

// GetUint32 reads a little-endian uint32 at off.
func GetUint32(buf []byte, off uint64) uint32 {
	return binary.LittleEndian.Uint32(buf[off : off+4])
}

// GetUint64 reads a little-endian uint64 at off.
func GetUint64(buf []byte, off uint64) uint64 {
	return binary.LittleEndian.Uint64(buf[off : off+8])
}

// GetInt16, GetInt32, GetInt64 read little-endian two's-complement signed
// integers, reusing the unsigned decode and reinterpreting the bits.
func GetInt16(buf []byte, off uint64) int16 { return int16(GetUint16(buf, off)) }
func GetInt32(buf []byte, off uint64) int32 { return int32(GetUint32(buf, off)) }
func GetInt64(buf []byte, off uint64) int64 { return int64(GetUint64(buf, off)) }

// GetBool reads a one-byte boolean: 0 is false, any non-zero byte is true.
func GetBool(buf []byte, off uint64) bool {
	return buf[off] != 0
}

// PutUint16 writes v little-endian at off.
func PutUint16(buf []byte, off uint64, v uint16) {
	binary.LittleEndian.PutUint16(buf[off:off+2], v)
}

// PutUint32 writes v little-endian at off.
func PutUint32(buf []byte, off uint64, v uint32) {
	binary.LittleEndian.PutUint32(buf[off:off+4], v)
}

// PutUint64 writes v little-endian at off.
func PutUint64(buf []byte, off uint64, v uint64) {
	binary.LittleEndian.PutUint64(buf[off:off+8], v)
}

func PutInt16(buf []byte, off uint64, v int16) { PutUint16(buf, off, uint16(v)) }
func PutInt32(buf []byte, off uint64, v int32) { PutUint32(buf, off, uint32(v)) }
func PutInt64(buf []byte, off uint64, v int64) { PutUint64(buf, off, uint64(v)) }

// GetFloat16 reads a 2-byte IEEE 754 half-precision float at off, widened
// to float32 -- the base type never stores half-precision values directly
// so a one-way precision loss back to f16 on write is always explicit (see
// PutFloat16).
func GetFloat16(buf []byte, off uint64) float32 {
	return float16.Frombits(GetUint16(buf, off)).Float32()
}

// PutFloat16 narrows v to half precision and writes it at off.
func PutFloat16(buf []byte, off uint64, v float32) {
	PutUint16(buf, off, float16.Fromfloat32(v).Bits())
}

// GetFloat32 reads a 4-byte IEEE 754 single-precision float at off.
func GetFloat32(buf []byte, off uint64) float32 {
	return math.Float32frombits(GetUint32(buf, off))
}

// PutFloat32 writes v at off.
func PutFloat32(buf []byte, off uint64, v float32) {
	PutUint32(buf, off, math.Float32bits(v))
}

// GetFloat64 reads an 8-byte IEEE 754 double-precision float at off.
func GetFloat64(buf []byte, off uint64) float64 {
	return math.Float64frombits(GetUint64(buf, off))
}

// PutFloat64 writes v at off.
func PutFloat64(buf []byte, off uint64, v float64) {
	PutUint64(buf, off, math.Float64bits(v))
}

// Span is a half-open byte range [Start, End) within a buffer, used to cache
// a jagged array's per-element boundaries after the first traversal.
type Span struct {
	Start, End uint64
}

// Align rounds cursor up to the next multiple of alignment. alignment must
// be a power of two; an alignment of 0 or 1 is a no-op.
func Align(cursor, alignment uint64) uint64 {
	if alignment <= 1 {
		return cursor
	}
	return (cursor + alignment - 1) &^ (alignment - 1)
}

// PutBool writes a one-byte boolean: true as 1, false as 0.
func PutBool(buf []byte, off uint64, v bool) {
	if v {
		buf[off] = 1
	} else {
		buf[off] = 0
	}
}

package golang

import (
	"testing"

	"github.com/abi-tools/abi-tools-go/wire"
)

// msgRoundTrip mirrors, field for field, the logic EmitBuilder/EmitValidator
// generate for the Msg fixture in testdata/msg.golden: a u16 "len" prefix
// field whose value is derived from a trailing FAM "payload" array, so the
// builder exposes no Set for "len" and recomputes it from the recorded
// payload at build time. golden_test.go only diffs the generated source
// text; this type drives that same logic against the real wire runtime so
// the derived-length computation and its round-trip/truncation behavior are
// actually executed, not merely type-checked.
type msgRoundTrip struct {
	payload []uint8
}

func (b *msgRoundTrip) setPayload(v []uint8) *msgRoundTrip {
	b.payload = v
	return b
}

func (b *msgRoundTrip) footprint() uint64 {
	return 2 + uint64(len(b.payload))
}

func (b *msgRoundTrip) build() []byte {
	buf := make([]byte, b.footprint())
	wire.PutUint16(buf, 0, uint16(len(b.payload)))
	for i, e := range b.payload {
		wire.PutUint8(buf, 2+uint64(i), e)
	}
	return buf
}

func msgRoundTripValidate(buf []byte) (uint64, *wire.Error) {
	if uint64(len(buf)) < 2 {
		return 0, &wire.Error{Code: wire.BufferTooShort, Type: "Msg", Field: "len"}
	}
	length := uint64(wire.GetUint16(buf, 0))
	total := 2 + length
	if total > uint64(len(buf)) {
		return 0, &wire.Error{Code: wire.BufferTooShort, Type: "Msg", Field: "payload"}
	}
	return total, nil
}

func TestMsgBuilderRecomputesLenFromPayload(t *testing.T) {
	buf := (&msgRoundTrip{}).setPayload([]uint8{1, 2, 3}).build()

	if len(buf) != 5 {
		t.Fatalf("got a %d-byte buffer, want exactly 5 (footprint-exact, no over/under-allocation)", len(buf))
	}
	if got := wire.GetUint16(buf, 0); got != 3 {
		t.Fatalf("len field = %d, want 3 -- recomputed from len(payload) although SetLen was never called", got)
	}
	for i, want := range []uint8{1, 2, 3} {
		if got := wire.GetUint8(buf, 2+uint64(i)); got != want {
			t.Fatalf("payload[%d] = %d, want %d", i, got, want)
		}
	}

	total, verr := msgRoundTripValidate(buf)
	if verr != nil {
		t.Fatalf("unexpected validation error: %v", verr)
	}
	if total != 5 {
		t.Fatalf("Validate consumed %d bytes, want 5", total)
	}
}

func TestMsgBuilderEmptyPayload(t *testing.T) {
	buf := (&msgRoundTrip{}).setPayload(nil).build()
	if len(buf) != 2 {
		t.Fatalf("got %d bytes, want 2 (len field only, no payload)", len(buf))
	}
	if got := wire.GetUint16(buf, 0); got != 0 {
		t.Fatalf("len field = %d, want 0", got)
	}
	if _, verr := msgRoundTripValidate(buf); verr != nil {
		t.Fatalf("unexpected validation error for an empty payload: %v", verr)
	}
}

func TestMsgValidateRejectsTruncatedPayload(t *testing.T) {
	buf := (&msgRoundTrip{}).setPayload([]uint8{1, 2, 3}).build()

	_, verr := msgRoundTripValidate(buf[:len(buf)-1])
	if verr == nil {
		t.Fatal("expected BufferTooShort for a buffer one byte short of the declared payload length")
	}
	if verr.Code != wire.BufferTooShort {
		t.Fatalf("got code %v, want BufferTooShort", verr.Code)
	}
}

func TestMsgValidateRejectsMissingLenField(t *testing.T) {
	_, verr := msgRoundTripValidate([]byte{0x01})
	if verr == nil {
		t.Fatal("expected BufferTooShort when the buffer is shorter than the len field itself")
	}
	if verr.Code != wire.BufferTooShort {
		t.Fatalf("got code %v, want BufferTooShort", verr.Code)
	}
}

package wire

import "testing"

func TestLittleEndianRoundtrip(t *testing.T) {
	buf := make([]byte, 8)
	PutUint32(buf, 0, 0x11223344)
	want := []byte{0x44, 0x33, 0x22, 0x11}
	for i, b := range want {
		if buf[i] != b {
			t.Fatalf("byte %d: got %#x, want %#x", i, buf[i], b)
		}
	}
	if got := GetUint32(buf, 0); got != 0x11223344 {
		t.Fatalf("GetUint32 = %#x, want %#x", got, 0x11223344)
	}
}

func TestBoolEncoding(t *testing.T) {
	buf := make([]byte, 1)
	PutBool(buf, 0, true)
	if buf[0] != 1 {
		t.Fatalf("PutBool(true) wrote %d, want 1", buf[0])
	}
	if !GetBool(buf, 0) {
		t.Fatal("GetBool should report true for a non-zero byte")
	}
	buf[0] = 0xFF
	if !GetBool(buf, 0) {
		t.Fatal("GetBool should treat any non-zero byte as true")
	}
}

func TestCodeString(t *testing.T) {
	if BufferTooShort.String() != "BUFFER_TOO_SHORT" {
		t.Fatalf("got %q", BufferTooShort.String())
	}
}

func TestRegistryRoundtrip(t *testing.T) {
	r := &Registry{}
	entry := Entry{
		Footprint: func(Params) (uint64, error) { return 8, nil },
		Validate:  func([]byte, Params) Result { return Result{OK: true, Consumed: 8} },
	}
	r.Register("Point", entry)

	got, ok := r.Lookup("Point")
	if !ok {
		t.Fatal("expected Point to be registered")
	}
	n, err := got.Footprint(nil)
	if err != nil || n != 8 {
		t.Fatalf("Footprint() = %d, %v; want 8, nil", n, err)
	}

	if _, ok := r.Lookup("Missing"); ok {
		t.Fatal("Lookup should report false for an unregistered name")
	}
}

func TestRegistryPanicsOnDuplicate(t *testing.T) {
	r := &Registry{}
	r.Register("Dup", Entry{})
	defer func() {
		if recover() == nil {
			t.Fatal("expected a panic on duplicate registration")
		}
	}()
	r.Register("Dup", Entry{})
}

package expr

import (
	"math"
	"testing"
)

type fakeResolvedSize map[string][2]uint64 // name -> {size, align}

func (m fakeResolvedSize) Size(name string) (uint64, bool) {
	v, ok := m[name]
	return v[0], ok
}

func (m fakeResolvedSize) Align(name string) (uint64, bool) {
	v, ok := m[name]
	return v[1], ok
}

func TestEvalLiteral(t *testing.T) {
	v, ok, err := Eval(Literal{Value: 42}, nil)
	if err != nil || !ok || v != 42 {
		t.Fatalf("got (%d, %v, %v), want (42, true, nil)", v, ok, err)
	}
}

func TestEvalFieldRefNotConstant(t *testing.T) {
	v, ok, err := Eval(FieldRef{Path: "a.b"}, nil)
	if err != nil || ok {
		t.Fatalf("got (%d, %v, %v), want (_, false, nil)", v, ok, err)
	}
}

func TestEvalBinaryFold(t *testing.T) {
	e := Binary{Op: Add, Left: Literal{Value: 2}, Right: Literal{Value: 3}}
	v, ok, err := Eval(e, nil)
	if err != nil || !ok || v != 5 {
		t.Fatalf("got (%d, %v, %v), want (5, true, nil)", v, ok, err)
	}
}

func TestEvalBinaryWithFieldRefNotConstant(t *testing.T) {
	e := Binary{Op: Add, Left: Literal{Value: 2}, Right: FieldRef{Path: "n"}}
	_, ok, err := Eval(e, nil)
	if err != nil || ok {
		t.Fatalf("expected non-constant, got ok=%v err=%v", ok, err)
	}
}

func TestEvalDivisionByZero(t *testing.T) {
	e := Binary{Op: Div, Left: Literal{Value: 1}, Right: Literal{Value: 0}}
	_, _, err := Eval(e, nil)
	if err == nil {
		t.Fatal("expected division-by-zero error")
	}
}

func TestEvalModByZero(t *testing.T) {
	e := Binary{Op: Mod, Left: Literal{Value: 1}, Right: Literal{Value: 0}}
	_, _, err := Eval(e, nil)
	if err == nil {
		t.Fatal("expected modulo-by-zero error")
	}
}

func TestEvalShiftOutOfRange(t *testing.T) {
	e := Binary{Op: Shl, Left: Literal{Value: 1}, Right: Literal{Value: 64}}
	_, _, err := Eval(e, nil)
	if err == nil {
		t.Fatal("expected shift-out-of-range error")
	}
}

func TestEvalShiftNegative(t *testing.T) {
	e := Binary{Op: Shr, Left: Literal{Value: 1}, Right: Literal{Value: -1}}
	_, _, err := Eval(e, nil)
	if err == nil {
		t.Fatal("expected shift-out-of-range error for negative amount")
	}
}

func TestEvalAddOverflow(t *testing.T) {
	e := Binary{Op: Add, Left: Literal{Value: math.MaxInt64}, Right: Literal{Value: 1}}
	_, _, err := Eval(e, nil)
	if err == nil {
		t.Fatal("expected add-overflow error")
	}
}

func TestEvalSubOverflow(t *testing.T) {
	e := Binary{Op: Sub, Left: Literal{Value: math.MinInt64}, Right: Literal{Value: 1}}
	_, _, err := Eval(e, nil)
	if err == nil {
		t.Fatal("expected sub-overflow error")
	}
}

func TestEvalMulOverflow(t *testing.T) {
	e := Binary{Op: Mul, Left: Literal{Value: math.MaxInt64}, Right: Literal{Value: 2}}
	_, _, err := Eval(e, nil)
	if err == nil {
		t.Fatal("expected mul-overflow error")
	}
}

func TestEvalMulOverflowMinIntByNegOne(t *testing.T) {
	e := Binary{Op: Mul, Left: Literal{Value: math.MinInt64}, Right: Literal{Value: -1}}
	_, _, err := Eval(e, nil)
	if err == nil {
		t.Fatal("expected mul-overflow error for MinInt64 * -1")
	}
}

func TestEvalMulNoOverflow(t *testing.T) {
	e := Binary{Op: Mul, Left: Literal{Value: 6}, Right: Literal{Value: 7}}
	v, ok, err := Eval(e, nil)
	if err != nil || !ok || v != 42 {
		t.Fatalf("got (%d, %v, %v), want (42, true, nil)", v, ok, err)
	}
}

func TestEvalSizeofConstant(t *testing.T) {
	rs := fakeResolvedSize{"Foo": {8, 4}}
	v, ok, err := Eval(SizeofType{Name: "Foo"}, rs)
	if err != nil || !ok || v != 8 {
		t.Fatalf("got (%d, %v, %v), want (8, true, nil)", v, ok, err)
	}
}

func TestEvalAlignofUnresolved(t *testing.T) {
	rs := fakeResolvedSize{}
	_, ok, err := Eval(AlignofType{Name: "Foo"}, rs)
	if err != nil || ok {
		t.Fatalf("expected unresolved-type to be non-constant, got ok=%v err=%v", ok, err)
	}
}

func TestFieldRefsUnion(t *testing.T) {
	e := Binary{
		Op:    Add,
		Left:  FieldRef{Path: "a"},
		Right: Unary{Op: Neg, Operand: FieldRef{Path: "b"}},
	}
	refs := FieldRefs(e)
	if len(refs) != 2 {
		t.Fatalf("got %d refs, want 2: %v", len(refs), refs)
	}
}

func TestFieldRefsDedup(t *testing.T) {
	e := Binary{Op: Add, Left: FieldRef{Path: "a"}, Right: FieldRef{Path: "a"}}
	refs := FieldRefs(e)
	if len(refs) != 1 {
		t.Fatalf("got %d refs, want 1: %v", len(refs), refs)
	}
}

func TestPopcount(t *testing.T) {
	if Popcount(0b1011) != 3 {
		t.Fatalf("got %d, want 3", Popcount(0b1011))
	}
}

func TestIsConstant(t *testing.T) {
	if !IsConstant(Literal{Value: 1}, nil) {
		t.Fatal("literal should be constant")
	}
	if IsConstant(FieldRef{Path: "x"}, nil) {
		t.Fatal("field ref should not be constant")
	}
}

package ast

import "testing"

func TestDecodeJSONPointStruct(t *testing.T) {
	doc, err := DecodeJSON([]byte(`{
		"types": [
			{
				"name": "Point",
				"kind": {
					"variant": "struct",
					"fields": [
						{"name": "x", "kind": {"variant": "primitive", "primitive": "u32"}},
						{"name": "y", "kind": {"variant": "primitive", "primitive": "u32"}}
					]
				}
			}
		]
	}`))
	if err != nil {
		t.Fatal(err)
	}
	if len(doc.Types) != 1 {
		t.Fatalf("got %d types, want 1", len(doc.Types))
	}
	td := doc.Types[0]
	if td.Name != "Point" {
		t.Fatalf("got name %q, want Point", td.Name)
	}
	st, ok := td.Kind.(Struct)
	if !ok {
		t.Fatalf("got kind %T, want Struct", td.Kind)
	}
	if len(st.Fields) != 2 || st.Fields[0].Name != "x" || st.Fields[1].Name != "y" {
		t.Fatalf("unexpected fields: %+v", st.Fields)
	}
}

func TestDecodeJSONMsgWithFieldRefSize(t *testing.T) {
	doc, err := DecodeJSON([]byte(`{
		"types": [
			{
				"name": "Msg",
				"kind": {
					"variant": "struct",
					"fields": [
						{"name": "len", "kind": {"variant": "primitive", "primitive": "u16"}},
						{"name": "payload", "kind": {
							"variant": "array",
							"element_type": {"variant": "primitive", "primitive": "u8"},
							"size_expr": {"variant": "field_ref", "path": "len"}
						}}
					]
				}
			}
		]
	}`))
	if err != nil {
		t.Fatal(err)
	}
	st := doc.Types[0].Kind.(Struct)
	arr := st.Fields[1].Kind.(Array)
	if arr.SizeExpr == nil {
		t.Fatal("expected size_expr to decode")
	}
}

func TestDecodeJSONUnknownVariant(t *testing.T) {
	_, err := DecodeJSON([]byte(`{"types":[{"name":"X","kind":{"variant":"bogus"}}]}`))
	if err == nil {
		t.Fatal("expected error for unknown variant")
	}
}

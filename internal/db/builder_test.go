package db

import (
	"errors"
	"testing"
)

func TestIndexBuilder_ListingIndex(t *testing.T) {
	idx, err := NewIndex("imoveis:idx:384").
		Prefix("imoveis:384:").
		Text("id").
		Text("titulo").
		VectorHNSW("__vector", 384, DistanceCosine, 16, 200).
		Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if idx.StorageType != StorageHash {
		t.Errorf("storage = %q, want HASH", idx.StorageType)
	}
	if len(idx.Prefixes) != 1 || idx.Prefixes[0] != "imoveis:384:" {
		t.Errorf("prefixes = %v", idx.Prefixes)
	}
	if len(idx.Fields) != 3 {
		t.Fatalf("fields count = %d, want 3", len(idx.Fields))
	}
	v := idx.Fields[2]
	if v.Type != IndexFieldVector || v.VectorAlgo != VectorHNSW || v.VectorDim != 384 {
		t.Errorf("vector field = %+v", v)
	}
	if v.VectorM != 16 || v.VectorEFConstruct != 200 {
		t.Errorf("hnsw params = M %d EF %d", v.VectorM, v.VectorEFConstruct)
	}
}

func TestIndexBuilder_Invalid(t *testing.T) {
	tests := []struct {
		name string
		b    *IndexBuilder
	}{
		{"empty name", NewIndex("").Text("a")},
		{"invalid name", NewIndex("bad name").Text("a")},
		{"no fields", NewIndex("idx")},
		{"duplicate field", NewIndex("idx").Text("a").Text("a")},
		{"zero dim", NewIndex("idx").VectorHNSW("v", 0, DistanceCosine, 0, 0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.b.Build(); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestIsValidIdentifier(t *testing.T) {
	valid := []string{"imoveis", "imoveis:idx:384", "a-b_c"}
	for _, s := range valid {
		if !IsValidIdentifier(s) {
			t.Errorf("%q should be valid", s)
		}
	}
	invalid := []string{"", "has space", "semi;colon", "quote'"}
	for _, s := range invalid {
		if IsValidIdentifier(s) {
			t.Errorf("%q should be invalid", s)
		}
	}
}

func TestError_Unwrap(t *testing.T) {
	err := &Error{Op: OpBRPop, Err: ErrKeyNotFound}
	if !errors.Is(err, ErrKeyNotFound) {
		t.Error("expected errors.Is to see the wrapped sentinel")
	}
	if err.Error() != "BRPOP: db: key not found" {
		t.Errorf("unexpected message %q", err.Error())
	}
}

package encoding

import (
	"testing"
)

func TestRLERoundTrip(t *testing.T) {
	cases := [][]uint16{
		nil,
		{0},
		{5, 5, 5, 5},
		{0, 0, 0, 1, 1, 7, 0, 0},
		{65535, 0, 65535},
	}
	for _, ids := range cases {
		got, err := DecodeRLE(EncodeRLE(ids))
		if err != nil {
			t.Fatalf("decode(%v): %v", ids, err)
		}
		if len(got) != len(ids) {
			t.Fatalf("round trip length %d != %d for %v", len(got), len(ids), ids)
		}
		for i := range ids {
			if got[i] != ids[i] {
				t.Fatalf("round trip %v -> %v", ids, got)
			}
		}
	}
}

func TestRLELongRunCompresses(t *testing.T) {
	ids := make([]uint16, 4096)
	enc := EncodeRLE(ids)
	if len(enc) > 16 {
		t.Fatalf("4096-cell air plane encoded to %d chars", len(enc))
	}
	got, err := DecodeRLE(enc)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 4096 {
		t.Fatalf("decoded %d cells, want 4096", len(got))
	}
}

func TestRLEDecodeRejectsGarbage(t *testing.T) {
	if _, err := DecodeRLE("not base64!!"); err == nil {
		t.Fatalf("expected base64 error")
	}
	// A lone id with its run length cut off.
	if _, err := DecodeRLE("gA=="); err == nil {
		t.Fatalf("expected truncated varint error")
	}
}

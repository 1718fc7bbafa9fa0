package ref

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

const helloRefHex = "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"

func TestParseRoundTrip(t *testing.T) {
	r := Of([]byte("hello"))
	if got := r.String(); got != helloRefHex {
		t.Fatalf("unexpected digest: %s", got)
	}

	parsed, err := Parse(r.String())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if parsed != r {
		t.Fatalf("round trip mismatch: %s != %s", parsed, r)
	}
}

func TestParseBoundaries(t *testing.T) {
	valid := strings.Repeat("a", HexLen)

	cases := []struct {
		name string
		in   string
		ok   bool
	}{
		{"valid", valid, true},
		{"too short", valid[:HexLen-1], false},
		{"too long", valid + "a", false},
		{"uppercase", strings.ToUpper(valid), false},
		{"non hex", strings.Repeat("z", HexLen), false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := Parse(c.in)
			if c.ok && err != nil {
				t.Fatalf("expected success, got %v", err)
			}
			if !c.ok {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if !errors.Is(err, ErrInvalid) {
					t.Fatalf("expected ErrInvalid, got %v", err)
				}
			}
		})
	}
}

func TestHasherMatchesOf(t *testing.T) {
	data := []byte("the quick brown fox jumps over the lazy dog")
	h := NewHasher()
	if _, err := h.Write(data); err != nil {
		t.Fatalf("write: %v", err)
	}
	if got, want := h.Sum(), Of(data); got != want {
		t.Fatalf("hasher mismatch: %s != %s", got, want)
	}
}

func TestOfStream(t *testing.T) {
	data := []byte("streamed content")
	got, err := OfStream(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("OfStream: %v", err)
	}
	if want := Of(data); got != want {
		t.Fatalf("OfStream mismatch: %s != %s", got, want)
	}
}

func TestEmptyDigest(t *testing.T) {
	const emptySHA256 = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
	if got := Of(nil).String(); got != emptySHA256[:64] {
		t.Fatalf("unexpected empty digest: %s", got)
	}
}

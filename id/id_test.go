package id_test

import (
	"testing"

	"github.com/stepflow/stepflow/id"
)

func TestNewIsNotNil(t *testing.T) {
	got := id.New()
	if got.IsNil() {
		t.Fatalf("New() returned a nil ID")
	}
}

func TestRoundTripText(t *testing.T) {
	want := id.New()

	text, err := want.MarshalText()
	if err != nil {
		t.Fatalf("MarshalText: %v", err)
	}

	var got id.ID
	if err := got.UnmarshalText(text); err != nil {
		t.Fatalf("UnmarshalText: %v", err)
	}

	if !got.Equal(want) {
		t.Fatalf("round trip mismatch: got %s, want %s", got, want)
	}
}

func TestNilMarshalsEmpty(t *testing.T) {
	text, err := id.Nil.MarshalText()
	if err != nil {
		t.Fatalf("MarshalText: %v", err)
	}
	if len(text) != 0 {
		t.Fatalf("expected empty text for Nil, got %q", text)
	}
}

func TestValueNilIsSQLNull(t *testing.T) {
	v, err := id.Nil.Value()
	if err != nil {
		t.Fatalf("Value: %v", err)
	}
	if v != nil {
		t.Fatalf("expected nil driver.Value for Nil ID, got %v", v)
	}
}

func TestScanFromString(t *testing.T) {
	want := id.New()

	var got id.ID
	if err := got.Scan(want.String()); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if !got.Equal(want) {
		t.Fatalf("scan mismatch: got %s, want %s", got, want)
	}
}

func TestParseRejectsEmpty(t *testing.T) {
	if _, err := id.Parse(""); err == nil {
		t.Fatalf("expected error parsing empty string")
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	if _, err := id.Parse("not-a-uuid"); err == nil {
		t.Fatalf("expected error parsing garbage string")
	}
}

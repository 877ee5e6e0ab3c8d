package audit

import (
	"strings"
	"testing"
)

func TestFingerprintIsStable(t *testing.T) {
	entry := Entry{
		Actor:     "doc",
		Action:    "measurements.read",
		PatientID: "user-1",
		Resource:  "/api/v1/measurements/stats",
	}
	first := entry.Fingerprint()
	second := entry.Fingerprint()
	if first == "" || first != second {
		t.Fatalf("expected a stable non-empty fingerprint, got %q and %q", first, second)
	}

	changed := entry
	changed.PatientID = "user-2"
	if changed.Fingerprint() == first {
		t.Fatal("expected fingerprint to change with the patient")
	}
}

func TestFingerprintSeparatesFields(t *testing.T) {
	a := Entry{Actor: "ab", Action: "c"}
	b := Entry{Actor: "a", Action: "bc"}
	if a.Fingerprint() == b.Fingerprint() {
		t.Fatal("expected field boundaries to affect the fingerprint")
	}
}

func TestNewID(t *testing.T) {
	first := NewID()
	second := NewID()
	if !strings.HasPrefix(first, "audit-") {
		t.Fatalf("expected audit- prefix, got %q", first)
	}
	if first == second {
		t.Fatal("expected distinct ids")
	}
}

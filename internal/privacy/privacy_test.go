package privacy

import (
	"testing"

	"github.com/brukd/attend/internal/patient"
	"github.com/brukd/attend/internal/shared/types"
)

func TestAnonymizeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"John Doe", "J*** D***"},
		{"Ana", "A***"},
		{"Maria del Carmen", "M*** d*** C***"},
		{"  John   Doe  ", "J*** D***"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := AnonymizeName(tt.in); got != tt.want {
			t.Errorf("AnonymizeName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestAnonymizeEmail(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"john@example.com", "j***@example.com"},
		{"a@b.org", "a***@b.org"},
		{"not-an-email", "***"},
		{"", "***"},
		{"@example.com", "***"},
	}

	for _, tt := range tests {
		if got := AnonymizeEmail(tt.in); got != tt.want {
			t.Errorf("AnonymizeEmail(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestAnonymizePhone(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"555-123-4567", "555-***-****"},
		{"020-7946-0958", "020-***-****"},
		{"5551234567", "555-***-****"},
		{"12", "***-****"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := AnonymizePhone(tt.in); got != tt.want {
			t.Errorf("AnonymizePhone(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestHashPersonalData(t *testing.T) {
	h1 := HashPersonalData("john@example.com")
	h2 := HashPersonalData("john@example.com")
	h3 := HashPersonalData("jane@example.com")

	if h1 != h2 {
		t.Error("expected deterministic hashes")
	}
	if h1 == h3 {
		t.Error("expected distinct hashes for distinct values")
	}
	if len(h1) != 64 {
		t.Errorf("expected 64 hex characters, got %d", len(h1))
	}

	// Known SHA-256 vector
	if got := HashPersonalData(""); got != "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855" {
		t.Errorf("unexpected digest for empty input: %s", got)
	}
}

func TestAnonymizePatient(t *testing.T) {
	p := &patient.Patient{
		ID:    types.NewID(),
		Name:  "John Doe",
		Email: "john@example.com",
		Phone: "555-123-4567",
	}

	a := AnonymizePatient(p)

	if a.ID != p.ID {
		t.Error("expected ID preserved")
	}
	if a.Name != "J*** D***" {
		t.Errorf("unexpected masked name: %s", a.Name)
	}
	if a.Email != "j***@example.com" {
		t.Errorf("unexpected masked email: %s", a.Email)
	}
	if a.Phone != "555-***-****" {
		t.Errorf("unexpected masked phone: %s", a.Phone)
	}
	if a.NameHash != HashPersonalData("John Doe") {
		t.Error("expected linkable name hash")
	}
}

package authpw

import (
	"errors"
	"testing"
)

func TestGateWithPlainPassword(t *testing.T) {
	gate, err := NewGate("s3cret-pass", "")
	if err != nil {
		t.Fatalf("NewGate() error = %v", err)
	}
	if gate.Placeholder() {
		t.Fatal("configured password reported as placeholder")
	}
	if err := gate.Check("s3cret-pass"); err != nil {
		t.Fatalf("Check(correct) error = %v", err)
	}
	if err := gate.Check("wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("Check(wrong) error = %v, want ErrInvalidCredentials", err)
	}
	if err := gate.Check(""); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("Check(empty) error = %v, want ErrInvalidCredentials", err)
	}
}

func TestGateDefaultsToPlaceholder(t *testing.T) {
	gate, err := NewGate("", "")
	if err != nil {
		t.Fatalf("NewGate() error = %v", err)
	}
	if !gate.Placeholder() {
		t.Fatal("expected placeholder gate")
	}
	if err := gate.Check(DevPassword); err != nil {
		t.Fatalf("Check(DevPassword) error = %v", err)
	}
}

func TestGateWithHash(t *testing.T) {
	hash, err := HashPassword("from-hash")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	gate, err := NewGate("ignored", hash)
	if err != nil {
		t.Fatalf("NewGate() error = %v", err)
	}
	if err := gate.Check("from-hash"); err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if err := gate.Check("ignored"); err == nil {
		t.Fatal("plain password should be ignored when a hash is configured")
	}
}

func TestGateRejectsMalformedHash(t *testing.T) {
	if _, err := NewGate("", "not-a-bcrypt-hash"); err == nil {
		t.Fatal("expected error for malformed hash")
	}
}

package backup

import (
	"bytes"
	"errors"
	"testing"
)

func TestDeriveKeyDeterminism(t *testing.T) {
	salt := []byte("1234567890abcdef")

	key1 := DeriveKey("mypassphrase", salt)
	key2 := DeriveKey("mypassphrase", salt)
	if !bytes.Equal(key1, key2) {
		t.Error("same passphrase+salt should produce same key")
	}
	if len(key1) != keySize {
		t.Errorf("key length = %d, want %d", len(key1), keySize)
	}
	if bytes.Equal(key1, DeriveKey("mypassphrase", []byte("fedcba0987654321"))) {
		t.Error("different salt should produce different key")
	}
}

func TestSealOpen(t *testing.T) {
	plain := []byte("SQLite format 3\x00 ledger contents")

	sealed, err := Seal(plain, "hunter2")
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	if !bytes.HasPrefix(sealed, magic) {
		t.Error("sealed output should start with the magic header")
	}
	if bytes.Contains(sealed, plain) {
		t.Error("plaintext leaked into sealed output")
	}

	got, err := Open(sealed, "hunter2")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if !bytes.Equal(got, plain) {
		t.Errorf("round trip = %q, want %q", got, plain)
	}

	again, _ := Seal(plain, "hunter2")
	if bytes.Equal(sealed, again) {
		t.Error("two seals of the same input should differ")
	}
}

func TestOpenFailures(t *testing.T) {
	sealed, err := Seal([]byte("ledger"), "right")
	if err != nil {
		t.Fatalf("seal: %v", err)
	}

	if _, err := Open(sealed, "wrong"); !errors.Is(err, ErrWrongPassword) {
		t.Errorf("wrong passphrase: err = %v", err)
	}

	tampered := bytes.Clone(sealed)
	tampered[len(magic)] ^= 0xff
	if _, err := Open(tampered, "right"); !errors.Is(err, ErrWrongPassword) {
		t.Errorf("tampered salt: err = %v", err)
	}

	if _, err := Open([]byte("SQLite format 3"), "right"); !errors.Is(err, ErrNotBackup) {
		t.Errorf("not a backup: err = %v", err)
	}
	if _, err := Open(sealed[:10], "right"); !errors.Is(err, ErrNotBackup) {
		t.Errorf("truncated: err = %v", err)
	}

	if _, err := Seal([]byte("x"), ""); err == nil {
		t.Error("empty passphrase should be rejected")
	}
}

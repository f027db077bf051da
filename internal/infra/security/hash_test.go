package security

import (
	"errors"
	"strings"
	"testing"
)

func newTestHasher(t *testing.T) *Argon2Hasher {
	t.Helper()
	hasher, err := NewArgon2Hasher(Argon2Config{
		Memory:      8 * 1024,
		Iterations:  1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	})
	if err != nil {
		t.Fatalf("NewArgon2Hasher returned error: %v", err)
	}
	return hasher
}

func TestArgon2HashAndVerify(t *testing.T) {
	hasher := newTestHasher(t)

	encoded, err := hasher.Hash("Passw0rd!")
	if err != nil {
		t.Fatalf("Hash returned error: %v", err)
	}

	parts := strings.Split(encoded, "$")
	if len(parts) != 5 || parts[0] != argon2Variant || parts[1] != argon2Version {
		t.Fatalf("unexpected hash format: %q", encoded)
	}
	if parts[2] != "m=8192,t=1,p=1" {
		t.Fatalf("unexpected params segment: %s", parts[2])
	}

	ok, err := hasher.Verify("Passw0rd!", encoded)
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if !ok {
		t.Fatal("Verify returned false for correct password")
	}

	ok, err = hasher.Verify("Wrong1!", encoded)
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if ok {
		t.Fatal("Verify returned true for incorrect password")
	}
}

func TestArgon2HashIsSalted(t *testing.T) {
	hasher := newTestHasher(t)

	first, _ := hasher.Hash("same-password")
	second, _ := hasher.Hash("same-password")
	if first == second {
		t.Fatal("expected distinct hashes for the same password")
	}
}

func TestArgon2VerifyUsesEncodedParameters(t *testing.T) {
	weak := newTestHasher(t)
	encoded, err := weak.Hash("Passw0rd!")
	if err != nil {
		t.Fatalf("Hash returned error: %v", err)
	}

	strong, err := NewArgon2Hasher(DefaultArgon2Config())
	if err != nil {
		t.Fatalf("NewArgon2Hasher returned error: %v", err)
	}
	ok, err := strong.Verify("Passw0rd!", encoded)
	if err != nil || !ok {
		t.Fatalf("expected hash created with other parameters to verify, ok=%v err=%v", ok, err)
	}
}

func TestArgon2VerifyRejectsMalformedHash(t *testing.T) {
	hasher := newTestHasher(t)

	if _, err := hasher.Verify("pw", "not-a-hash"); !errors.Is(err, errInvalidHashFormat) {
		t.Fatalf("expected errInvalidHashFormat, got %v", err)
	}
	if _, err := hasher.Verify("pw", "bcrypt$v=19$m=8192,t=1,p=1$c2FsdA$aGFzaA"); err == nil {
		t.Fatal("expected error for unknown variant")
	}
}

func TestArgon2VerifyEmptyInputs(t *testing.T) {
	hasher := newTestHasher(t)

	ok, err := hasher.Verify("", "anything")
	if err != nil || ok {
		t.Fatalf("expected false without error, got ok=%v err=%v", ok, err)
	}
}

func TestNewArgon2HasherRejectsWeakConfig(t *testing.T) {
	_, err := NewArgon2Hasher(Argon2Config{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32})
	if !errors.Is(err, errInvalidConfig) {
		t.Fatalf("expected errInvalidConfig, got %v", err)
	}
}

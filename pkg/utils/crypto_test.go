package utils

import "testing"

func TestEncryptDecrypt(t *testing.T) {
	key := []byte("0123456789abcdef0123456789abcdef")

	ciphertext, err := Encrypt([]byte("IGQVJ-long-lived-token"), key)
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if ciphertext == "" {
		t.Fatalf("expected non-empty ciphertext")
	}

	plaintext, err := Decrypt(ciphertext, key)
	if err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	if plaintext != "IGQVJ-long-lived-token" {
		t.Fatalf("round trip mismatch: got %q", plaintext)
	}
}

func TestDecryptRejectsTamperedData(t *testing.T) {
	key := []byte("0123456789abcdef0123456789abcdef")

	ciphertext, err := Encrypt([]byte("secret"), key)
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}

	if _, err := Decrypt("not-base64!!", key); err == nil {
		t.Fatalf("expected error for invalid base64")
	}

	otherKey := []byte("ffffffffffffffffffffffffffffffff")
	if _, err := Decrypt(ciphertext, otherKey); err == nil {
		t.Fatalf("expected error for wrong key")
	}
}

package util

import (
	"strings"
	"testing"
)

func TestRandomString(t *testing.T) {
	str, err := RandomString(32)
	if err != nil {
		t.Fatalf("RandomString failed: %v", err)
	}
	if len(str) != 32 {
		t.Errorf("length = %d, want 32", len(str))
	}

	str2, _ := RandomString(32)
	if str == str2 {
		t.Error("two random strings should differ")
	}

	if _, err := RandomString(0); err == nil {
		t.Error("length 0 should fail")
	}
	if _, err := RandomString(-5); err == nil {
		t.Error("negative length should fail")
	}
}

func TestEncryptDecryptAES(t *testing.T) {
	key := "test-encryption-key"

	testCases := []string{
		"POST /api/student/mark-attendance",
		"",
		"Special!@#$%^&*()",
		strings.Repeat("A", 1000),
	}

	for _, plaintext := range testCases {
		encrypted, err := EncryptAES(key, []byte(plaintext))
		if err != nil {
			t.Fatalf("encrypt %q: %v", plaintext, err)
		}

		decrypted, err := DecryptAES(key, encrypted)
		if err != nil {
			t.Fatalf("decrypt %q: %v", plaintext, err)
		}

		if string(decrypted) != plaintext {
			t.Errorf("round trip mismatch\nwant: %s\ngot:  %s", plaintext, decrypted)
		}
	}
}

func TestDecryptAES_WrongKey(t *testing.T) {
	encrypted, _ := EncryptAES("correct-key", []byte("Data"))

	if _, err := DecryptAES("wrong-key", encrypted); err == nil {
		t.Error("decrypting with the wrong key should fail")
	}
}

func TestDecryptAES_InvalidData(t *testing.T) {
	if _, err := DecryptAES("test-key", []byte{1, 2, 3}); err == nil {
		t.Error("short data should fail")
	}
	if _, err := DecryptAES("test-key", []byte{}); err == nil {
		t.Error("empty data should fail")
	}
}

func TestEncryptField(t *testing.T) {
	enc, err := EncryptField("k", "GET /api/admin/halls")
	if err != nil {
		t.Fatalf("EncryptField: %v", err)
	}
	if enc == "GET /api/admin/halls" {
		t.Error("field should be encrypted")
	}
	if got := DecryptField("k", enc); got != "GET /api/admin/halls" {
		t.Errorf("DecryptField = %q", got)
	}

	// no key: stored as is
	plain, _ := EncryptField("", "x")
	if plain != "x" {
		t.Errorf("EncryptField without key = %q", plain)
	}
	// legacy plaintext rows fall through
	if got := DecryptField("k", "not base64!"); got != "not base64!" {
		t.Errorf("DecryptField fallback = %q", got)
	}
}

func BenchmarkEncryptAES(b *testing.B) {
	key := "bench-key"
	data := []byte("Benchmark data")
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		EncryptAES(key, data)
	}
}

package utils

import (
	"bytes"
	"errors"
	"testing"
	"time"
)

func TestEncryptDecrypt(t *testing.T) {
	key := DeriveKey("pass", []byte("0123456789abcdef"))
	if len(key) != KeySize {
		t.Fatalf("expected %d byte key, got %d", KeySize, len(key))
	}
	blob, err := Encrypt(key, []byte("hello"))
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	plain, err := Decrypt(key, blob)
	if err != nil || !bytes.Equal(plain, []byte("hello")) {
		t.Fatalf("decrypt: %q %v", plain, err)
	}
	other := DeriveKey("other", []byte("0123456789abcdef"))
	if _, err := Decrypt(other, blob); err == nil {
		t.Fatalf("expected wrong key to fail")
	}
}

func TestValidation(t *testing.T) {
	err := RequireNonEmpty("username", "  ")
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Field != "username" {
		t.Fatalf("expected validation error, got %v", err)
	}
	if RequireNonEmpty("username", "sam") != nil {
		t.Fatalf("expected no error")
	}
	if ValidateEmail("email", "not-an-email") == nil {
		t.Fatalf("expected invalid email")
	}
	if ValidateEmail("email", "a@b.co") != nil {
		t.Fatalf("expected valid email")
	}
}

func TestAgeOn(t *testing.T) {
	birth := time.Date(1950, time.June, 15, 0, 0, 0, 0, time.UTC)
	if got := AgeOn(birth, time.Date(2020, time.June, 14, 0, 0, 0, 0, time.UTC)); got != 69 {
		t.Fatalf("expected 69 the day before the birthday, got %d", got)
	}
	if got := AgeOn(birth, time.Date(2020, time.June, 15, 0, 0, 0, 0, time.UTC)); got != 70 {
		t.Fatalf("expected 70 on the birthday, got %d", got)
	}
	if got := AgeOn(time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)); got != 0 {
		t.Fatalf("expected future birth to floor at 0, got %d", got)
	}
}

func TestParseBirthDate(t *testing.T) {
	for _, in := range []string{"1950-06-15", "15/06/1950", "1950-06-15T00:00:00Z"} {
		got, err := ParseBirthDate(in)
		if err != nil {
			t.Fatalf("%s: %v", in, err)
		}
		if FormatDate(got) != "15/06/1950" {
			t.Fatalf("%s: unexpected %s", in, FormatDate(got))
		}
	}
	if _, err := ParseBirthDate("yesterday"); err == nil {
		t.Fatalf("expected parse failure")
	}
}

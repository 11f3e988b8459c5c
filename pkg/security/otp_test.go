package security_test

import (
	"testing"

	"github.com/blissmart/marketplace-backend/pkg/security"
)

func TestGenerateOTP(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		code, err := security.GenerateOTP(security.OTPDigits)
		if err != nil {
			t.Fatalf("GenerateOTP returned error: %v", err)
		}
		if len(code) != security.OTPDigits {
			t.Fatalf("expected %d digits got %q", security.OTPDigits, code)
		}
		for _, r := range code {
			if r < '0' || r > '9' {
				t.Fatalf("non-digit in otp %q", code)
			}
		}
		seen[code] = true
	}
	if len(seen) < 2 {
		t.Fatal("expected otp codes to vary")
	}

	if _, err := security.GenerateOTP(0); err == nil {
		t.Fatal("expected error for zero length")
	}
}

func TestHashAndVerifyOTP(t *testing.T) {
	hash, err := security.HashOTP("123456")
	if err != nil {
		t.Fatalf("HashOTP returned error: %v", err)
	}

	ok, err := security.VerifyOTP(" 123456 ", hash)
	if err != nil || !ok {
		t.Fatalf("expected otp to verify, ok=%v err=%v", ok, err)
	}

	ok, err = security.VerifyOTP("654321", hash)
	if err != nil || ok {
		t.Fatalf("expected mismatch, ok=%v err=%v", ok, err)
	}

	if _, err := security.HashOTP("  "); err == nil {
		t.Fatal("expected error for blank otp")
	}
}

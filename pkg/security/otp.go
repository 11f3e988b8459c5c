package security

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
)

const OTPDigits = 6

// otpParams are cheaper than password params: an OTP lives for minutes and
// verification attempts are rate limited.
var otpParams = ArgonParams{
	Memory:      8 * 1024,
	Time:        1,
	Parallelism: 1,
	SaltLen:     16,
	KeyLen:      32,
}

// GenerateOTP returns a uniformly random numeric code of the given length.
func GenerateOTP(digits int) (string, error) {
	if digits <= 0 || digits > 12 {
		return "", fmt.Errorf("otp length must be between 1 and 12, got %d", digits)
	}
	var b strings.Builder
	b.Grow(digits)
	ten := big.NewInt(10)
	for i := 0; i < digits; i++ {
		n, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", fmt.Errorf("generate otp: %w", err)
		}
		b.WriteByte(byte('0' + n.Int64()))
	}
	return b.String(), nil
}

// HashOTP stores a one-time code the same way passwords are stored.
func HashOTP(code string) (string, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return "", fmt.Errorf("otp cannot be empty")
	}
	return hashSecret(code, otpParams)
}

// VerifyOTP compares code against a hash produced by HashOTP.
func VerifyOTP(code, encoded string) (bool, error) {
	return VerifyPassword(strings.TrimSpace(code), encoded)
}

package enums

import (
	"fmt"
	"strings"
)

// PaymentMode maps to orders.payment_mode.
type PaymentMode string

const (
	PaymentModeCOD      PaymentMode = "COD"
	PaymentModeUPI      PaymentMode = "UPI"
	PaymentModeRazorpay PaymentMode = "RAZORPAY"
)

var validPaymentModes = []PaymentMode{PaymentModeCOD, PaymentModeUPI, PaymentModeRazorpay}

func (m PaymentMode) String() string {
	return string(m)
}

func (m PaymentMode) IsValid() bool {
	for _, candidate := range validPaymentModes {
		if candidate == m {
			return true
		}
	}
	return false
}

func ParsePaymentMode(value string) (PaymentMode, error) {
	normalized := PaymentMode(strings.ToUpper(strings.TrimSpace(value)))
	if normalized.IsValid() {
		return normalized, nil
	}
	return "", fmt.Errorf("invalid payment mode %q", value)
}

// PaymentStatus maps to orders.payment_status.
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "PENDING"
	PaymentStatusPaid    PaymentStatus = "PAID"
	PaymentStatusFailed  PaymentStatus = "FAILED"
)

func (s PaymentStatus) String() string {
	return string(s)
}

func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusPaid, PaymentStatusFailed:
		return true
	}
	return false
}

func ParsePaymentStatus(value string) (PaymentStatus, error) {
	normalized := PaymentStatus(strings.ToUpper(strings.TrimSpace(value)))
	if normalized.IsValid() {
		return normalized, nil
	}
	return "", fmt.Errorf("invalid payment status %q", value)
}

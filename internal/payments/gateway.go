package payments

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var paisePerRupee = decimal.NewFromInt(100)

// gatewayOrderID derives the mocked gateway order id from the order id, so
// repeated create calls hand out the same id.
func gatewayOrderID(orderID uuid.UUID) string {
	return "order_" + strings.ReplaceAll(orderID.String(), "-", "")[:14]
}

func toPaise(amount decimal.Decimal) int64 {
	return amount.Mul(paisePerRupee).Round(0).IntPart()
}

// Signature returns hex(HMAC-SHA256(secret, gatewayOrderID|paymentID)).
func Signature(secret, gatewayOrderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(gatewayOrderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

func validSignature(secret, gatewayOrderID, paymentID, signature string) bool {
	expected := Signature(secret, gatewayOrderID, paymentID)
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(strings.TrimSpace(signature))))
}

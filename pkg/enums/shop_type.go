package enums

import (
	"fmt"
	"strings"
)

// ShopType maps to the shops.type column.
type ShopType string

const (
	ShopTypeRetail    ShopType = "RETAIL"
	ShopTypeWholesale ShopType = "WHOLESALE"
)

func (s ShopType) String() string {
	return string(s)
}

func (s ShopType) IsValid() bool {
	return s == ShopTypeRetail || s == ShopTypeWholesale
}

func ParseShopType(value string) (ShopType, error) {
	normalized := ShopType(strings.ToUpper(strings.TrimSpace(value)))
	if normalized.IsValid() {
		return normalized, nil
	}
	return "", fmt.Errorf("invalid shop type %q", value)
}

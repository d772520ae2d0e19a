package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Validate checks the write-time invariants of a promotion.
func (p *Promotion) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return ErrInvalidName
	}
	if p.StartAt != nil && p.EndAt != nil && p.StartAt.After(*p.EndAt) {
		return ErrInvalidDateRange
	}
	if p.UsageLimit != nil && *p.UsageLimit < 0 {
		return ErrInvalidLimit
	}
	if p.PerUserLimit != nil && *p.PerUserLimit < 0 {
		return ErrInvalidLimit
	}
	return ValidateValue(p.Type, p.Value, p.BuyX, p.GetY)
}

// ValidateValue checks the value fields against the promotion type.
func ValidateValue(t Type, value decimal.NullDecimal, buyX, getY int) error {
	switch t {
	case TypePercent:
		if !value.Valid || value.Decimal.IsNegative() || value.Decimal.GreaterThan(hundred) {
			return ErrInvalidPercentValue
		}
	case TypeAmount, TypeSetPrice:
		if !value.Valid || !value.Decimal.IsPositive() {
			return ErrInvalidAmountValue
		}
	case TypeBuyXGetY:
		if buyX <= 0 || getY <= 0 {
			return ErrInvalidBuyXGetY
		}
	default:
		return ErrInvalidPromotionType
	}
	return nil
}

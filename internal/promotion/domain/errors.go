package domain

import "errors"

var (
	ErrInvalidID            = errors.New("invalid_id")
	ErrInvalidName          = errors.New("invalid_name")
	ErrInvalidPromotionType = errors.New("invalid_promotion_type")
	ErrInvalidPercentValue  = errors.New("invalid_percent_value")
	ErrInvalidAmountValue   = errors.New("invalid_amount_value")
	ErrInvalidBuyXGetY      = errors.New("invalid_buy_x_get_y")
	ErrInvalidDateRange     = errors.New("invalid_date_range")
	ErrInvalidLimit         = errors.New("invalid_limit")
	ErrInvalidIncrement     = errors.New("invalid_increment")
	ErrDuplicateCode        = errors.New("duplicate_code")
	ErrNotFound             = errors.New("not_found")
)

var validationErrors = []error{
	ErrInvalidName,
	ErrInvalidPromotionType,
	ErrInvalidPercentValue,
	ErrInvalidAmountValue,
	ErrInvalidBuyXGetY,
	ErrInvalidDateRange,
	ErrInvalidLimit,
}

// IsValidationError reports whether err rejects a promotion write because of its content.
func IsValidationError(err error) bool {
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

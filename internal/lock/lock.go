package lock

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrEmptyKey      = errors.New("lock key is empty")
	ErrNotConfigured = errors.New("lock client not configured")
)

// Locker serialises work on a key across goroutines, and across processes when
// backed by Redis. Release is safe to call once the work is done.
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

const keyPromotionRedeem = "showcase:promotion:redeem:%s"

// PromotionRedeemKey scopes redemption to a promotion. The global usage limit
// spans users, so one key per promotion covers every (promotion, user) pair.
func PromotionRedeemKey(promotionID string) string {
	return fmt.Sprintf(keyPromotionRedeem, strings.TrimSpace(promotionID))
}

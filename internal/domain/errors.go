package domain

import "errors"

var (
	ErrIllegalOrderTransition        = errors.New("illegal transition of order status")
	ErrIllegalSubscriptionTransition = errors.New("illegal transition of subscription status")
)

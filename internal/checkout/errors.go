package checkout

import "errors"

var (
	ErrValidation           = errors.New("checkout form invalid")
	ErrCartEmpty            = errors.New("cart is empty")
	ErrLoginRequired        = errors.New("login required")
	ErrGuestLoginRequired   = errors.New("guest identity cannot place orders")
	ErrNotPermitted         = errors.New("identity not permitted to place orders")
	ErrSubmissionInProgress = errors.New("order submission in progress")
	ErrAlreadySubmitted     = errors.New("checkout already completed")
	ErrInvalidTransition    = errors.New("invalid checkout state transition")
)

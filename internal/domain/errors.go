package domain

import "errors"

// Failure kinds for exchange calls. Callers check them with errors.Is.
var (
	ErrQueryFailed   = errors.New("open order query failed")
	ErrCancelFailed  = errors.New("cancel order failed")
	ErrCreateFailed  = errors.New("create order failed")
	ErrRestoreFailed = errors.New("restore order failed")
	ErrInvalidStop   = errors.New("invalid stop order prices")
	ErrStreamFailed  = errors.New("stream failed")
	ErrStreamClosed  = errors.New("stream closed")
)

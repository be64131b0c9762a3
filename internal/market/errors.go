package market

import "errors"

// Error is a black market failure the user should see verbatim.
type Error string

func (e Error) Error() string { return string(e) }

// ErrorKind groups errors by how callers recover from them.
type ErrorKind int

const (
	// KindInternal covers persistence and unexpected failures.
	KindInternal ErrorKind = iota
	// KindValidation covers rejected requests; nothing was changed.
	KindValidation
	// KindStale covers offers that changed between request and confirmation.
	KindStale
	// KindNotFound covers missing users and slots.
	KindNotFound
)

const (
	ErrInvalidSlot       Error = "there is no such slot number"
	ErrSlotNotFound      Error = "this slot is empty"
	ErrAlreadyPurchased  Error = "this offer has already been bought"
	ErrPhoneLimit        Error = "you already own the maximum number of phones"
	ErrMonthlyLimit      Error = "you have reached this month's black market phone limit"
	ErrInsufficientFunds Error = "not enough money"
	ErrUserNotFound      Error = "you are not registered yet, send /start first"
	ErrOfferChanged      Error = "the offer changed while you were deciding"
	ErrNoOffers          Error = "the black market is closed right now, try again later"
	ErrInvalidAmount     Error = "amount must be positive"
)

// Kind classifies err; errors not produced by this package are internal.
func Kind(err error) ErrorKind {
	var e Error
	if !errors.As(err, &e) {
		return KindInternal
	}
	switch e {
	case ErrOfferChanged:
		return KindStale
	case ErrUserNotFound, ErrSlotNotFound:
		return KindNotFound
	case ErrNoOffers:
		return KindInternal
	}
	return KindValidation
}

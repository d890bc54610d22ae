package domain

import "errors"

var (
	// ErrReleaseNotFound is returned when a release id is unknown
	ErrReleaseNotFound = errors.New("release not found")

	// ErrInvalidEvent is returned when a stream event is missing its release
	// reference or carries an unknown tier or quality value
	ErrInvalidEvent = errors.New("invalid stream event")

	// ErrInvalidQuantity is returned when a quote or purchase asks for zero or
	// negative shares
	ErrInvalidQuantity = errors.New("invalid share quantity")

	// ErrInsufficientShares is returned when a purchase asks for more shares
	// than remain unsold
	ErrInsufficientShares = errors.New("insufficient shares remaining")

	// ErrPriceMismatch is returned when the paid amount does not equal the
	// quoted cost exactly
	ErrPriceMismatch = errors.New("paid amount does not match quoted cost")

	// ErrNoInvestorPool is returned when shares are purchased on a release
	// whose allocation reserves nothing for investors
	ErrNoInvestorPool = errors.New("release has no investor pool")

	// ErrPurchaseNotFound is returned when a purchase id is unknown
	ErrPurchaseNotFound = errors.New("purchase not found")

	// ErrPurchaseReverted is returned when a settlement transition targets a
	// purchase that has already been compensated
	ErrPurchaseReverted = errors.New("purchase already reverted")

	// ErrDistributionNotFound is returned when a distribution record id is
	// unknown
	ErrDistributionNotFound = errors.New("distribution record not found")
)

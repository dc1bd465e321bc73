package core

import "strconv"

// ErrorCode int
type ErrorCode int

const (
	// ErrUnknown unknown
	ErrUnknown ErrorCode = 100000
	// ErrUnauthorized caller is not the administrator
	ErrUnauthorized ErrorCode = 100001
	// ErrOperationInFlight a nested call was rejected by the re-entrancy guard
	ErrOperationInFlight ErrorCode = 100002

	// ErrMarketNotListed no market for the asset
	ErrMarketNotListed ErrorCode = 100100
	// ErrMarketAlreadyListed market exists
	ErrMarketAlreadyListed ErrorCode = 100101
	// ErrInvalidAmount amount is zero or negative
	ErrInvalidAmount ErrorCode = 100102
	// ErrInsufficientBalance withdraw exceeds the supply balance
	ErrInsufficientBalance ErrorCode = 100103
	// ErrInsufficientLiquidity post-state solvency check failed
	ErrInsufficientLiquidity ErrorCode = 100104
	// ErrInsufficientPoolLiquidity pool cash can not cover the amount
	ErrInsufficientPoolLiquidity ErrorCode = 100105
	// ErrNotUnderwater liquidation attempted on a healthy account
	ErrNotUnderwater ErrorCode = 100106
	// ErrExcessiveSeizure seizure exceeds the borrower's collateral
	ErrExcessiveSeizure ErrorCode = 100107
	// ErrTransferFailure custody collaborator call failed
	ErrTransferFailure ErrorCode = 100108
	// ErrInvalidCollateralFactor collateral factor out of range
	ErrInvalidCollateralFactor ErrorCode = 100109
	// ErrBorrowsOverCap borrows over the market borrow cap
	ErrBorrowsOverCap ErrorCode = 100110
	// ErrInvalidParams malformed listing parameters
	ErrInvalidParams ErrorCode = 100111
)

func (e ErrorCode) String() string {
	return strconv.Itoa(int(e))
}

func (e ErrorCode) Error() string {
	return e.String()
}

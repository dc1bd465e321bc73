package core

import (
	"context"

	"github.com/shopspring/decimal"
)

// Vault is the custody collaborator that physically moves underlying in and
// out of the pool. Both calls can fail; the engine treats any failure as
// TransferFailure and aborts the enclosing operation.
type Vault interface {
	// Pull moves amount of asset from the account into the pool
	Pull(ctx context.Context, account, assetID string, amount decimal.Decimal) error
	// Push moves amount of asset from the pool to the account
	Push(ctx context.Context, account, assetID string, amount decimal.Decimal) error
}

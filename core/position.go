package core

import (
	"context"
	"time"

	"github.com/fox-one/pkg/store/db"
	"github.com/shopspring/decimal"
)

// Position per (account, market) supply and borrow record. Created lazily on
// first interaction and never removed; zero-valued rows persist.
type Position struct {
	ID      uint64 `sql:"PRIMARY_KEY;AUTO_INCREMENT" json:"id"`
	UserID  string `sql:"size:36;unique_index:position_idx" json:"user_id"`
	AssetID string `sql:"size:36;unique_index:position_idx" json:"asset_id"`
	// units of the market's supply share
	SupplyShares decimal.Decimal `sql:"type:decimal(32,16)" json:"supply_shares"`
	// principal as of the last index snapshot
	BorrowPrincipal decimal.Decimal `sql:"type:decimal(32,16)" json:"borrow_principal"`
	// market borrow index when BorrowPrincipal was last set
	BorrowIndex decimal.Decimal `sql:"type:decimal(32,16);default:1" json:"borrow_index"`
	Version     int64           `sql:"default:0" json:"version"`
	CreatedAt   time.Time       `sql:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt   time.Time       `sql:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// IPositionStore position store interface
type IPositionStore interface {
	Create(ctx context.Context, tx *db.DB, position *Position) error
	// Find returns a zero-ID position when none exists yet
	Find(ctx context.Context, userID, assetID string) (*Position, error)
	FindByUser(ctx context.Context, userID string) ([]*Position, error)
	All(ctx context.Context) ([]*Position, error)
	Update(ctx context.Context, tx *db.DB, position *Position) error
}

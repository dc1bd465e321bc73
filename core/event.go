package core

import (
	"context"
	"time"

	"github.com/fox-one/pkg/store/db"
	"github.com/shopspring/decimal"
)

// event types emitted by mutating operations
const (
	EventMarketListed  = "market_listed"
	EventSupplied      = "supplied"
	EventWithdrawn     = "withdrawn"
	EventBorrowed      = "borrowed"
	EventRepaid        = "repaid"
	EventLiquidated    = "liquidated"
	EventAdminProposed = "admin_proposed"
	EventAdminAccepted = "admin_accepted"
)

// Event structured notification persisted in the same transaction as the
// state mutation it describes. For liquidations OpponentID is the borrower,
// OpponentAssetID the collateral asset and OpponentAmount the seized value.
type Event struct {
	ID              uint64          `sql:"PRIMARY_KEY;AUTO_INCREMENT" json:"id"`
	TraceID         string          `sql:"size:36;unique_index:event_trace_idx" json:"trace_id"`
	Type            string          `sql:"size:32;index:event_type_idx" json:"type"`
	UserID          string          `sql:"size:36;index:event_user_idx" json:"user_id"`
	AssetID         string          `sql:"size:36" json:"asset_id"`
	Amount          decimal.Decimal `sql:"type:decimal(32,16)" json:"amount"`
	OpponentID      string          `sql:"size:36" json:"opponent_id,omitempty"`
	OpponentAssetID string          `sql:"size:36" json:"opponent_asset_id,omitempty"`
	OpponentAmount  decimal.Decimal `sql:"type:decimal(32,16)" json:"opponent_amount,omitempty"`
	CreatedAt       time.Time       `sql:"default:CURRENT_TIMESTAMP" json:"created_at"`
}

// IEventStore event store interface
type IEventStore interface {
	Create(ctx context.Context, tx *db.DB, event *Event) error
	List(ctx context.Context, fromID uint64, limit int) ([]*Event, error)
	FindByUser(ctx context.Context, userID string, limit int) ([]*Event, error)
}

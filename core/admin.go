package core

import "context"

// IAdminService two-step administrator handover. The proposed candidate must
// accept before the handover takes effect; until then the current
// administrator keeps control.
type IAdminService interface {
	// Check returns ErrUnauthorized unless userID is the current administrator
	Check(ctx context.Context, userID string) error
	Current(ctx context.Context) (string, error)
	Propose(ctx context.Context, caller, candidate string) error
	Accept(ctx context.Context, caller string) error
}

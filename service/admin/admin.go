package admin

import (
	"context"

	"levee/core"

	"github.com/fox-one/pkg/property"
)

const (
	// AdminKey current administrator
	AdminKey = "admin_current"
	// CandidateKey proposed administrator awaiting acceptance
	CandidateKey = "admin_candidate"
)

type adminService struct {
	propertyStore property.Store
	genesisAdmin  string
}

// New new admin service. genesisAdmin holds office until a two-step handover
// completes and is recorded in the property store.
func New(propertyStore property.Store, genesisAdmin string) core.IAdminService {
	return &adminService{
		propertyStore: propertyStore,
		genesisAdmin:  genesisAdmin,
	}
}

func (s *adminService) Current(ctx context.Context) (string, error) {
	v, err := s.propertyStore.Get(ctx, AdminKey)
	if err != nil {
		return "", err
	}

	if admin := v.String(); admin != "" {
		return admin, nil
	}

	return s.genesisAdmin, nil
}

func (s *adminService) Check(ctx context.Context, userID string) error {
	admin, err := s.Current(ctx)
	if err != nil {
		return err
	}

	if userID == "" || userID != admin {
		return core.ErrUnauthorized
	}

	return nil
}

func (s *adminService) Propose(ctx context.Context, caller, candidate string) error {
	if err := s.Check(ctx, caller); err != nil {
		return err
	}

	return s.propertyStore.Save(ctx, CandidateKey, candidate)
}

// Accept completes the handover; only the proposed candidate may call it.
func (s *adminService) Accept(ctx context.Context, caller string) error {
	v, err := s.propertyStore.Get(ctx, CandidateKey)
	if err != nil {
		return err
	}

	candidate := v.String()
	if candidate == "" || caller != candidate {
		return core.ErrUnauthorized
	}

	if err := s.propertyStore.Save(ctx, AdminKey, candidate); err != nil {
		return err
	}

	return s.propertyStore.Save(ctx, CandidateKey, "")
}

package hostels

import (
	"context"
	"fmt"
)

// Service wraps hostel lookup and switch validation.
type Service struct {
	repo Repository
}

// NewService constructs a Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// ListManaged returns the hostels the user supervises.
func (s *Service) ListManaged(ctx context.Context, userID int64) ([]Hostel, error) {
	return s.repo.ListManagedBy(ctx, userID)
}

// Switch validates that the user may act on the hostel and returns it. The
// caller owns the session side of the switch: re-resolving the authorization
// snapshot and flushing it before the workflow completes.
func (s *Service) Switch(ctx context.Context, userID, hostelID int64) (Hostel, error) {
	ok, err := s.repo.Manages(ctx, userID, hostelID)
	if err != nil {
		return Hostel{}, err
	}
	if !ok {
		return Hostel{}, fmt.Errorf("%w: user %d hostel %d", ErrNotManaged, userID, hostelID)
	}
	return s.repo.Get(ctx, hostelID)
}

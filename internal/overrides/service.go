package overrides

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/hostelcore/hostelcore/internal/audit"
	"github.com/hostelcore/hostelcore/internal/authz"
	"github.com/hostelcore/hostelcore/internal/shared"
)

const (
	lockAttempts = 3
	lockBackoff  = 75 * time.Millisecond
)

// Locker serializes mutations per subject.
type Locker interface {
	Acquire(ctx context.Context, key, token string) error
	Release(ctx context.Context, key, token string) error
}

// ResyncEnqueuer schedules session snapshot rebuilds after a role-level
// override change.
type ResyncEnqueuer interface {
	EnqueueSessionResync(ctx context.Context, role authz.Role) error
}

// Mutation carries one override change request.
type Mutation struct {
	Subject  string `validate:"required"`
	Actor    int64  `validate:"required,gt=0"`
	Reason   string `validate:"max=500"`
	Override authz.Override
}

// Service orchestrates override reads and mutations. Mutations are serialized
// per subject, written atomically with their audit record, and followed by a
// best-effort session resync for role-scoped subjects.
type Service struct {
	repo     Repository
	catalog  *authz.Catalog
	locker   Locker
	enqueuer ResyncEnqueuer
	validate *validator.Validate
	logger   *slog.Logger
	now      func() time.Time
}

// NewService constructs a Service. The enqueuer may be nil when no worker is
// deployed; role-level changes then take effect on next login.
func NewService(repo Repository, catalog *authz.Catalog, locker Locker, enqueuer ResyncEnqueuer, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:     repo,
		catalog:  catalog,
		locker:   locker,
		enqueuer: enqueuer,
		validate: validator.New(),
		logger:   logger,
		now:      time.Now,
	}
}

// Get returns the stored override for a subject, or the canonical empty
// override when none is stored.
func (s *Service) Get(ctx context.Context, rawSubject string) (Record, error) {
	subject, err := s.parseSubject(rawSubject)
	if err != nil {
		return Record{}, err
	}
	rec, err := s.repo.Get(ctx, subject.String())
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return Record{Subject: subject.String(), Override: s.catalog.EmptyOverride()}, nil
		}
		return Record{}, err
	}
	return rec, nil
}

// ForUser resolves the override that applies to a signed-in user: the
// user-level record when present, the role-level record otherwise, the empty
// override when neither is stored.
func (s *Service) ForUser(ctx context.Context, userID int64, role authz.Role) (authz.Override, error) {
	rec, err := s.repo.Get(ctx, UserSubject(userID).String())
	if err == nil {
		return rec.Override, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return authz.Override{}, err
	}
	rec, err = s.repo.Get(ctx, RoleSubject(role).String())
	if err == nil {
		return rec.Override, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return authz.Override{}, err
	}
	return s.catalog.EmptyOverride(), nil
}

// Update replaces the subject's override.
func (s *Service) Update(ctx context.Context, m Mutation) (Record, error) {
	return s.mutate(ctx, m, audit.ActionUpdate, m.Override)
}

// Reset replaces the subject's override with the canonical empty override.
func (s *Service) Reset(ctx context.Context, m Mutation) (Record, error) {
	return s.mutate(ctx, m, audit.ActionReset, s.catalog.EmptyOverride())
}

func (s *Service) mutate(ctx context.Context, m Mutation, action string, next authz.Override) (Record, error) {
	if err := s.validate.Struct(m); err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrInvalidOverride, err)
	}
	subject, err := s.parseSubject(m.Subject)
	if err != nil {
		return Record{}, err
	}
	if action == audit.ActionUpdate {
		if err := validateOverride(next); err != nil {
			return Record{}, err
		}
	}

	key := shared.OverrideLockKey(subject.String())
	token := uuid.NewString()
	if err := s.acquireLock(ctx, key, token); err != nil {
		return Record{}, err
	}
	defer func() {
		if err := s.locker.Release(ctx, key, token); err != nil {
			s.logger.Warn("release override lock", slog.String("subject", subject.String()), slog.Any("error", err))
		}
	}()

	before := s.catalog.EmptyOverride()
	if current, err := s.repo.Get(ctx, subject.String()); err == nil {
		before = current.Override
	} else if !errors.Is(err, shared.ErrNotFound) {
		return Record{}, err
	}

	now := s.now().UTC()
	rec := Record{
		Subject:   subject.String(),
		Override:  next.Clone(),
		UpdatedBy: m.Actor,
		UpdatedAt: now,
	}
	entry := audit.Record{
		ID:         uuid.NewString(),
		Target:     subject.String(),
		Action:     action,
		ChangedBy:  m.Actor,
		Reason:     strings.TrimSpace(m.Reason),
		Before:     before.Clone(),
		After:      next.Clone(),
		OccurredAt: now,
	}
	if err := s.repo.SaveWithAudit(ctx, rec, entry); err != nil {
		return Record{}, err
	}

	if subject.IsRole() && s.enqueuer != nil {
		if err := s.enqueuer.EnqueueSessionResync(ctx, subject.Role); err != nil {
			s.logger.Warn("enqueue session resync",
				slog.String("role", subject.Role.String()), slog.Any("error", err))
		}
	}
	return rec, nil
}

func (s *Service) acquireLock(ctx context.Context, key, token string) error {
	var err error
	for attempt := 0; attempt < lockAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(lockBackoff):
			}
		}
		if err = s.locker.Acquire(ctx, key, token); err == nil {
			return nil
		}
		if !errors.Is(err, shared.ErrLockHeld) {
			return err
		}
	}
	return err
}

func (s *Service) parseSubject(raw string) (Subject, error) {
	subject, err := ParseSubject(raw)
	if err != nil {
		return Subject{}, err
	}
	if subject.IsRole() && !s.catalog.Known(subject.Role) {
		return Subject{}, fmt.Errorf("%w: %s", ErrUnknownRole, subject.Role)
	}
	return subject, nil
}

// validateOverride rejects malformed override shapes before they reach the
// pure resolution engine. Denies targeting keys the baseline never grants are
// accepted: the narrowing merge makes them inert, and rejecting them would
// break replay of audit records written before a baseline shrank.
func validateOverride(o authz.Override) error {
	for _, key := range o.DenyRoutes {
		if !strings.HasPrefix(key, "route.") {
			return fmt.Errorf("%w: deny route %q", ErrInvalidOverride, key)
		}
	}
	for _, key := range o.DenyCapabilities {
		if key != authz.Wildcard && !strings.HasPrefix(key, "cap.") {
			return fmt.Errorf("%w: deny capability %q", ErrInvalidOverride, key)
		}
	}
	for _, entry := range o.Constraints {
		if !strings.HasPrefix(entry.Key, "constraint.") {
			return fmt.Errorf("%w: constraint key %q", ErrInvalidOverride, entry.Key)
		}
		if !validConstraintValue(entry.Value) {
			return fmt.Errorf("%w: constraint %q value", ErrInvalidOverride, entry.Key)
		}
	}
	return nil
}

func validConstraintValue(v any) bool {
	switch typed := v.(type) {
	case nil, bool, string,
		int, int32, int64, float32, float64:
		return true
	case []any:
		for _, item := range typed {
			if !validConstraintValue(item) {
				return false
			}
		}
		return true
	case []string:
		return true
	default:
		return false
	}
}

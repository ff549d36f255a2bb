package overrides

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/hostelcore/hostelcore/internal/authz"
)

var (
	// ErrInvalidSubject indicates a subject string that is neither
	// "role:<name>" nor "user:<id>".
	ErrInvalidSubject = errors.New("overrides: invalid subject")
	// ErrUnknownRole indicates a role-scoped subject outside the catalog.
	ErrUnknownRole = errors.New("overrides: unknown role")
	// ErrInvalidOverride indicates an override payload with a bad shape.
	ErrInvalidOverride = errors.New("overrides: invalid override")
)

const (
	subjectRolePrefix = "role:"
	subjectUserPrefix = "user:"
)

// Subject identifies whose override a record holds: a whole role or a single
// user.
type Subject struct {
	Role   authz.Role
	UserID int64
}

// IsRole reports whether the subject is role-scoped.
func (s Subject) IsRole() bool {
	return s.Role != ""
}

// String renders the canonical subject key used for storage and locking.
func (s Subject) String() string {
	if s.IsRole() {
		return subjectRolePrefix + s.Role.String()
	}
	return subjectUserPrefix + strconv.FormatInt(s.UserID, 10)
}

// RoleSubject builds a role-scoped subject.
func RoleSubject(role authz.Role) Subject {
	return Subject{Role: role}
}

// UserSubject builds a user-scoped subject.
func UserSubject(userID int64) Subject {
	return Subject{UserID: userID}
}

// ParseSubject parses a raw subject key. Role membership is checked by the
// service, not here.
func ParseSubject(raw string) (Subject, error) {
	raw = strings.TrimSpace(raw)
	switch {
	case strings.HasPrefix(raw, subjectRolePrefix):
		name := strings.TrimPrefix(raw, subjectRolePrefix)
		if name == "" {
			return Subject{}, ErrInvalidSubject
		}
		return Subject{Role: authz.Role(name)}, nil
	case strings.HasPrefix(raw, subjectUserPrefix):
		id, err := strconv.ParseInt(strings.TrimPrefix(raw, subjectUserPrefix), 10, 64)
		if err != nil || id <= 0 {
			return Subject{}, fmt.Errorf("%w: %s", ErrInvalidSubject, raw)
		}
		return Subject{UserID: id}, nil
	default:
		return Subject{}, fmt.Errorf("%w: %s", ErrInvalidSubject, raw)
	}
}

// Record is the stored override for one subject.
type Record struct {
	Subject   string         `json:"subject"`
	Override  authz.Override `json:"override"`
	UpdatedBy int64          `json:"updatedBy"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

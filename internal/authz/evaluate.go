package authz

import "strings"

// capDecision is the explicit three-state outcome of a capability lookup.
// The wildcard fallback applies only on capUnspecified, never on an explicit
// grant or deny.
type capDecision int

const (
	capUnspecified capDecision = iota
	capGranted
	capDenied
)

func normalizeKey(key string) string {
	return strings.TrimSpace(key)
}

// CanRoute reports whether the snapshot grants the route key. Unknown, empty
// or whitespace keys resolve to false; absence is the expected steady state
// for anything the catalog has not populated, not an error.
func (e Effective) CanRoute(routeKey string) bool {
	key := normalizeKey(routeKey)
	if key == "" {
		return false
	}
	return e.Routes[key]
}

// CanCapability reports whether the snapshot grants the capability key. An
// explicit boolean for the key wins; otherwise the wildcard entry decides,
// defaulting to false when that too is absent.
func (e Effective) CanCapability(capabilityKey string) bool {
	key := normalizeKey(capabilityKey)
	if key == "" {
		return false
	}
	switch e.lookupCapability(key) {
	case capGranted:
		return true
	case capDenied:
		return false
	}
	return e.lookupCapability(Wildcard) == capGranted
}

func (e Effective) lookupCapability(key string) capDecision {
	granted, ok := e.Capabilities[key]
	if !ok {
		return capUnspecified
	}
	if granted {
		return capGranted
	}
	return capDenied
}

// CanAnyCapability reports whether at least one of the keys is granted. An
// empty list grants nothing.
func (e Effective) CanAnyCapability(keys []string) bool {
	for _, key := range keys {
		if e.CanCapability(key) {
			return true
		}
	}
	return false
}

// CanAllCapabilities reports whether every key is granted. An empty list
// returns false rather than being vacuously true: a missing requirement list
// must not silently grant access.
func (e Effective) CanAllCapabilities(keys []string) bool {
	if len(keys) == 0 {
		return false
	}
	for _, key := range keys {
		if !e.CanCapability(key) {
			return false
		}
	}
	return true
}

// ConstraintValue returns the effective constraint for the key, or fallback
// when the key is empty or has no entry. An entry explicitly set to nil or a
// falsy value is a real entry and is returned as-is.
func (e Effective) ConstraintValue(constraintKey string, fallback any) any {
	key := normalizeKey(constraintKey)
	if key == "" {
		return fallback
	}
	if value, ok := e.Constraints[key]; ok {
		return value
	}
	return fallback
}

// ConstraintInt reads a numeric constraint, tolerating the int/float64
// representations a JSON round-trip through session storage produces.
func (e Effective) ConstraintInt(constraintKey string, fallback int64) int64 {
	switch value := e.ConstraintValue(constraintKey, nil).(type) {
	case int:
		return int64(value)
	case int64:
		return value
	case float64:
		return int64(value)
	default:
		return fallback
	}
}

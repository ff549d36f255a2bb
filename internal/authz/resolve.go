package authz

// ConstraintEntry is one key/value pair in an override's ordered constraint
// list. The list is deliberately not a map: duplicate keys are legal and the
// last entry for a key wins, so order must survive storage and transport.
type ConstraintEntry struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

// Override narrows a role's baseline profile for one subject. Deny lists can
// only revoke what the baseline grants; constraint entries fully replace the
// baseline value for their key.
type Override struct {
	DenyRoutes       []string          `json:"denyRoutes"`
	DenyCapabilities []string          `json:"denyCapabilities"`
	Constraints      []ConstraintEntry `json:"constraints"`
}

// IsEmpty reports whether the override changes nothing.
func (o Override) IsEmpty() bool {
	return len(o.DenyRoutes) == 0 && len(o.DenyCapabilities) == 0 && len(o.Constraints) == 0
}

// Clone returns a deep copy of the override.
func (o Override) Clone() Override {
	out := Override{}
	if o.DenyRoutes != nil {
		out.DenyRoutes = make([]string, len(o.DenyRoutes))
		copy(out.DenyRoutes, o.DenyRoutes)
	}
	if o.DenyCapabilities != nil {
		out.DenyCapabilities = make([]string, len(o.DenyCapabilities))
		copy(out.DenyCapabilities, o.DenyCapabilities)
	}
	if o.Constraints != nil {
		out.Constraints = make([]ConstraintEntry, len(o.Constraints))
		for i, entry := range o.Constraints {
			out.Constraints[i] = ConstraintEntry{Key: entry.Key, Value: cloneValue(entry.Value)}
		}
	}
	return out
}

// Effective is the resolved authorization snapshot consumed by the evaluation
// API and embedded into session state. It is immutable by convention: the
// engine returns a fresh value on every resolution and nothing mutates it
// afterwards.
type Effective struct {
	Routes       map[string]bool `json:"routes"`
	Capabilities map[string]bool `json:"capabilities"`
	Constraints  map[string]any  `json:"constraints"`
}

// BuildEffective merges a role's baseline profile with a per-subject override
// into an effective snapshot.
//
// Routes and capabilities can only be narrowed: a key absent from the baseline
// stays denied no matter what the override says, and a denied key is removed
// from the grant set. The wildcard capability is an ordinary key here; its
// special fallback meaning belongs to evaluation, not resolution.
//
// Constraints start from the baseline and then apply the override entries in
// list order, each entry overwriting any prior value for its key. Duplicates
// therefore resolve to the last entry. An explicit empty list value is kept
// as an empty list, distinct from an absent key; keys set by neither side are
// simply absent, with fallback handling left to the evaluator.
//
// The returned snapshot shares no storage with the catalog or the override.
// Malformed overrides are a programming defect: shape validation happens at
// the mutation boundary, and this function has no error path.
func BuildEffective(catalog *Catalog, role Role, override Override) Effective {
	baseline := catalog.Profile(role)

	deniedRoutes := toSet(override.DenyRoutes)
	deniedCaps := toSet(override.DenyCapabilities)

	effective := Effective{
		Routes:       make(map[string]bool, len(baseline.Routes)),
		Capabilities: make(map[string]bool, len(baseline.Capabilities)),
		Constraints:  make(map[string]any, len(baseline.Constraints)),
	}
	for key, granted := range baseline.Routes {
		_, denied := deniedRoutes[key]
		effective.Routes[key] = granted && !denied
	}
	for key, granted := range baseline.Capabilities {
		_, denied := deniedCaps[key]
		effective.Capabilities[key] = granted && !denied
	}
	for key, value := range baseline.Constraints {
		effective.Constraints[key] = cloneValue(value)
	}
	for _, entry := range override.Constraints {
		effective.Constraints[entry.Key] = cloneValue(entry.Value)
	}
	return effective
}

func toSet(keys []string) map[string]struct{} {
	set := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		set[k] = struct{}{}
	}
	return set
}

// cloneValue deep-copies a constraint value. Values are restricted to numbers,
// booleans, strings and (nested) lists and maps of those, so the JSON value
// shapes are the only ones handled structurally.
func cloneValue(v any) any {
	switch typed := v.(type) {
	case []any:
		out := make([]any, len(typed))
		for i, item := range typed {
			out[i] = cloneValue(item)
		}
		return out
	case []string:
		out := make([]string, len(typed))
		copy(out, typed)
		return out
	case map[string]any:
		out := make(map[string]any, len(typed))
		for k, item := range typed {
			out[k] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}

package authz

import (
	"encoding/json"

	"github.com/hostelcore/hostelcore/internal/shared"
)

// Snapshot is the triple persisted into session state: the role and override
// the snapshot was resolved from, and the resulting effective authorization.
// Keeping the inputs alongside the output lets a later workflow re-resolve
// without a catalog round trip through storage.
type Snapshot struct {
	Role      Role      `json:"role"`
	Override  Override  `json:"override"`
	Effective Effective `json:"effective"`
}

// Sync recomputes the effective authorization for the role/override pair and
// writes the triple into the session. The engine stays pure: persistence is
// the caller's job, either through the request middleware's commit or through
// an explicit SessionManager.Save, and must complete before the surrounding
// workflow is considered done.
func Sync(sess *shared.Session, catalog *Catalog, role Role, override Override) (Snapshot, error) {
	snap := Snapshot{
		Role:      role,
		Override:  override.Clone(),
		Effective: BuildEffective(catalog, role, override),
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return Snapshot{}, err
	}
	sess.SetAuthz(data)
	return snap, nil
}

// FromSession decodes the snapshot previously synchronized into the session.
// A session without a snapshot, or with one that no longer decodes, yields
// false; callers treat that as deny-all.
func FromSession(sess *shared.Session) (Snapshot, bool) {
	if sess == nil {
		return Snapshot{}, false
	}
	raw := sess.Authz()
	if len(raw) == 0 {
		return Snapshot{}, false
	}
	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return Snapshot{}, false
	}
	return snap, true
}

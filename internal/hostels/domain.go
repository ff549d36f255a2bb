package hostels

import "errors"

// Hostel is one managed residence.
type Hostel struct {
	ID   int64  `json:"id"`
	Code string `json:"code"`
	Name string `json:"name"`
}

// ErrNotManaged indicates a switch attempt to a hostel outside the user's
// managed set.
var ErrNotManaged = errors.New("hostels: not managed by user")

// SessionHostelKey is the session value holding the acting hostel ID.
const SessionHostelKey = "hostel_id"

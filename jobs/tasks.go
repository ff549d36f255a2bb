package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"

	"github.com/hostelcore/hostelcore/internal/authz"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskSessionResync rebuilds session snapshots after a role-level
	// authorization change.
	TaskSessionResync = "authz:session:resync"
	// TaskAuditReport produces the nightly audit activity summary.
	TaskAuditReport = "authz:audit:report"
)

// SessionResyncPayload names the role whose live sessions must be rebuilt.
type SessionResyncPayload struct {
	Role string `json:"role"`
}

// NewSessionResyncTask constructs an Asynq task for a session resync.
func NewSessionResyncTask(role authz.Role) (*asynq.Task, error) {
	data, err := json.Marshal(SessionResyncPayload{Role: role.String()})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSessionResync, data), nil
}

// AuditReportPayload bounds the reporting window in hours.
type AuditReportPayload struct {
	WindowHours int `json:"windowHours"`
}

// NewAuditReportTask constructs an Asynq task for the audit summary.
func NewAuditReportTask(windowHours int) (*asynq.Task, error) {
	data, err := json.Marshal(AuditReportPayload{WindowHours: windowHours})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAuditReport, data), nil
}

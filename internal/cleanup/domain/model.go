package domain

import "time"

// Resource is the kind-independent view of a reapable resource. CreatedAt is
// epoch milliseconds, matching the provisioning backend's timestamps.
type Resource struct {
	ID        string
	Name      string
	CreatedAt int64
	// Protected resources are never deleted regardless of name and age
	// (projects linked to a source repository, for example).
	Protected bool
}

// KindReport is the outcome of reaping one resource kind.
type KindReport struct {
	Kind    string   `json:"kind"`
	Matched int      `json:"matched"`
	Deleted int      `json:"deleted"`
	Failed  int      `json:"failed"`
	Errors  []string `json:"errors,omitempty"`
}

// Report is the outcome of a full cleanup pass over all kinds.
type Report struct {
	Kinds      []KindReport `json:"kinds"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
}

// RunRecord is a persisted audit row for one kind of one cleanup pass.
type RunRecord struct {
	ID         string    `json:"id"`
	Trigger    string    `json:"trigger"`
	Kind       string    `json:"kind"`
	Matched    int       `json:"matched"`
	Deleted    int       `json:"deleted"`
	Failed     int       `json:"failed"`
	Errors     []string  `json:"errors,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// Cleanup triggers recorded on audit rows.
const (
	TriggerHTTP     = "http"
	TriggerSchedule = "schedule"
)

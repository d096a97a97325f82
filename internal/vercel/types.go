package vercel

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// EpochMillis is a millisecond timestamp that the API reports as either a
// JSON number or a string (numeric or RFC 3339), depending on the resource.
type EpochMillis int64

func (m *EpochMillis) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*m = 0
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			*m = EpochMillis(n)
			return nil
		}
		ts, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return fmt.Errorf("invalid timestamp %q: %w", s, err)
		}
		*m = EpochMillis(ts.UnixMilli())
		return nil
	}
	var n int64
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*m = EpochMillis(n)
	return nil
}

// EnvVar is an environment variable attached to a project at creation time.
type EnvVar struct {
	Key    string   `json:"key"`
	Value  string   `json:"value"`
	Target []string `json:"target"`
	Type   string   `json:"type"`
}

// RepoLink is the optional source-repository link on a project.
type RepoLink struct {
	Org  string `json:"org"`
	Repo string `json:"repo"`
	Type string `json:"type"`
}

// Project is a provisioned project as reported by the API. CreatedAt is
// epoch milliseconds.
type Project struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt int64     `json:"createdAt"`
	Link      *RepoLink `json:"link,omitempty"`
}

// Pagination is the cursor block on list responses. Next is the `until`
// cursor for the following page; zero means no further pages.
type Pagination struct {
	Count int   `json:"count"`
	Next  int64 `json:"next,omitempty"`
	Prev  int64 `json:"prev,omitempty"`
}

// StorageStore is an attached storage resource.
type StorageStore struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	CreatedAt EpochMillis `json:"createdAt"`
	Type      string      `json:"type"`
	Status    string      `json:"status"`
}

// Authorization is a billing authorization consumed by storage creation.
type Authorization struct {
	ID string `json:"id"`
}

// Deployment states as reported by the API.
const (
	DeploymentStateQueued       = "QUEUED"
	DeploymentStateBuilding     = "BUILDING"
	DeploymentStateInitializing = "INITIALIZING"
	DeploymentStateReady        = "READY"
	DeploymentStateError        = "ERROR"
	DeploymentStateCanceled     = "CANCELED"
)

// Deployment is a deployment of uploaded source to a project.
type Deployment struct {
	ID         string   `json:"id"`
	URL        string   `json:"url"`
	Alias      []string `json:"alias,omitempty"`
	ProjectID  string   `json:"projectId"`
	ReadyState string   `json:"readyState"`
}

// IsTerminal reports whether no further state transition will occur.
func (d *Deployment) IsTerminal() bool {
	switch d.ReadyState {
	case DeploymentStateReady, DeploymentStateError, DeploymentStateCanceled:
		return true
	}
	return false
}

// TransferRequest holds the one-time claim code for a project transfer. The
// code's validity, expiry and single-use semantics are owned by the API.
type TransferRequest struct {
	Code string `json:"code"`
}

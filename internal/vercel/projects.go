package vercel

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// CreateProjectRequest is the payload for project creation.
type CreateProjectRequest struct {
	Name                 string   `json:"name"`
	EnvironmentVariables []EnvVar `json:"environmentVariables,omitempty"`
}

// CreateProject creates a project. Name collisions surface as an APIError
// and are not retried.
func (c *Client) CreateProject(ctx context.Context, req CreateProjectRequest) (*Project, error) {
	var project Project
	if err := c.do(ctx, http.MethodPost, "/v10/projects", nil, req, &project); err != nil {
		return nil, err
	}
	return &project, nil
}

type listProjectsResponse struct {
	Projects   []Project   `json:"projects"`
	Pagination *Pagination `json:"pagination,omitempty"`
}

// ListProjects returns one page of projects. until is the cursor from the
// prior page's pagination block; pass 0 for the first page.
func (c *Client) ListProjects(ctx context.Context, limit int, until int64) ([]Project, *Pagination, error) {
	query := url.Values{}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	if until > 0 {
		query.Set("until", strconv.FormatInt(until, 10))
	}

	var resp listProjectsResponse
	if err := c.do(ctx, http.MethodGet, "/v9/projects", query, nil, &resp); err != nil {
		return nil, nil, err
	}
	return resp.Projects, resp.Pagination, nil
}

// DeleteProject deletes a project by ID.
func (c *Client) DeleteProject(ctx context.Context, projectID string) error {
	return c.do(ctx, http.MethodDelete, "/v9/projects/"+url.PathEscape(projectID), nil, nil, nil)
}

// CreateTransferRequest starts an ownership transfer for a project and
// returns the opaque one-time claim code.
func (c *Client) CreateTransferRequest(ctx context.Context, projectID string) (*TransferRequest, error) {
	path := fmt.Sprintf("/v9/projects/%s/transfer-request", url.PathEscape(projectID))

	var transfer TransferRequest
	if err := c.do(ctx, http.MethodPost, path, nil, struct{}{}, &transfer); err != nil {
		return nil, err
	}
	return &transfer, nil
}

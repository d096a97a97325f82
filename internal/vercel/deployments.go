package vercel

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// UploadFile uploads an artifact by content. The artifact is content
// addressed: digest is the hex SHA-1 of data and is sent in the
// x-vercel-digest header.
func (c *Client) UploadFile(ctx context.Context, data []byte, digest string) error {
	req, err := c.newRequest(ctx, http.MethodPost, "/v2/files", nil, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("x-vercel-digest", digest)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call provisioning API: %w", err)
	}
	defer resp.Body.Close()

	return decode(resp, nil)
}

// CreateDeploymentRequest references an uploaded artifact and a project.
type CreateDeploymentRequest struct {
	Name      string
	Project   string
	FileSHA   string
	Framework string
}

type deploymentFile struct {
	File string `json:"file"`
	SHA  string `json:"sha"`
}

type createDeploymentPayload struct {
	Files           []deploymentFile `json:"files"`
	Name            string           `json:"name"`
	Project         string           `json:"project"`
	ProjectSettings struct {
		Framework string `json:"framework"`
	} `json:"projectSettings"`
}

// CreateDeployment requests a deployment of a previously uploaded artifact.
func (c *Client) CreateDeployment(ctx context.Context, req CreateDeploymentRequest) (*Deployment, error) {
	payload := createDeploymentPayload{
		Files:   []deploymentFile{{File: ".vercel/source.tgz", SHA: req.FileSHA}},
		Name:    req.Name,
		Project: req.Project,
	}
	payload.ProjectSettings.Framework = req.Framework

	var deployment Deployment
	if err := c.do(ctx, http.MethodPost, "/v13/deployments", nil, payload, &deployment); err != nil {
		return nil, err
	}
	return &deployment, nil
}

// GetDeployment fetches the current state of a deployment.
func (c *Client) GetDeployment(ctx context.Context, idOrURL string) (*Deployment, error) {
	var deployment Deployment
	if err := c.do(ctx, http.MethodGet, "/v13/deployments/"+url.PathEscape(idOrURL), nil, nil, &deployment); err != nil {
		return nil, err
	}
	return &deployment, nil
}

// WaitForDeployment issues a single long-lived request that the backend
// holds open until the deployment reaches a terminal state. The wait is
// governed entirely by ctx; the underlying transport has no per-request
// timeout here, so cancelling ctx abandons the wait cooperatively.
func (c *Client) WaitForDeployment(ctx context.Context, idOrURL string) (*Deployment, error) {
	query := url.Values{}
	query.Set("wait", "1")

	req, err := c.newRequest(ctx, http.MethodGet, "/v13/deployments/"+url.PathEscape(idOrURL), query, nil)
	if err != nil {
		return nil, err
	}

	// Strip the client timeout for the long-lived wait; ctx bounds it.
	waitClient := *c.httpClient
	waitClient.Timeout = 0

	resp, err := waitClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call provisioning API: %w", err)
	}
	defer resp.Body.Close()

	var deployment Deployment
	if err := decode(resp, &deployment); err != nil {
		return nil, err
	}
	return &deployment, nil
}

// CancelDeployment asks the backend to cancel an in-flight deployment.
func (c *Client) CancelDeployment(ctx context.Context, idOrURL string) (*Deployment, error) {
	var deployment Deployment
	if err := c.do(ctx, http.MethodPatch, "/v12/deployments/"+url.PathEscape(idOrURL)+"/cancel", nil, nil, &deployment); err != nil {
		return nil, err
	}
	return &deployment, nil
}

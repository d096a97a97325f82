package vercel

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

// CreateAuthorizationRequest is the payload for a billing authorization.
type CreateAuthorizationRequest struct {
	IntegrationIDOrSlug string
	ProductID           string
	BillingPlanID       string
	IntegrationConfigID string
	Region              string
}

type createAuthorizationResponse struct {
	Authorization Authorization `json:"authorization"`
}

// CreateBillingAuthorization creates the ephemeral billing authorization
// consumed by storage creation.
func (c *Client) CreateBillingAuthorization(ctx context.Context, req CreateAuthorizationRequest) (*Authorization, error) {
	metadata, err := json.Marshal(map[string]string{"region": req.Region})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal metadata: %w", err)
	}

	body := map[string]interface{}{
		"integrationIdOrSlug":        req.IntegrationIDOrSlug,
		"productId":                  req.ProductID,
		"billingPlanId":              req.BillingPlanID,
		"metadata":                   string(metadata),
		"integrationConfigurationId": req.IntegrationConfigID,
	}

	var resp createAuthorizationResponse
	if err := c.do(ctx, http.MethodPost, "/v1/integrations/billing/authorization", nil, body, &resp); err != nil {
		return nil, err
	}
	return &resp.Authorization, nil
}

// CreateStoreRequest is the payload for an integration storage store.
type CreateStoreRequest struct {
	Name                string
	ProductID           string
	AuthorizationID     string
	BillingPlanID       string
	IntegrationConfigID string
	Region              string
}

type createStoreResponse struct {
	Store StorageStore `json:"store"`
}

// CreateStore creates a storage store tied to a billing authorization.
func (c *Client) CreateStore(ctx context.Context, req CreateStoreRequest) (*StorageStore, error) {
	body := map[string]interface{}{
		"metadata":                   map[string]string{"region": req.Region},
		"billingPlanId":              req.BillingPlanID,
		"name":                       req.Name,
		"integrationConfigurationId": req.IntegrationConfigID,
		"integrationProductIdOrSlug": req.ProductID,
		"authorizationId":            req.AuthorizationID,
		"source":                     "marketplace",
	}

	var resp createStoreResponse
	if err := c.do(ctx, http.MethodPost, "/v1/storage/stores/integration", nil, body, &resp); err != nil {
		return nil, err
	}
	return &resp.Store, nil
}

type listStoresResponse struct {
	Stores []StorageStore `json:"stores"`
}

// ListStores returns all storage stores in the team scope.
func (c *Client) ListStores(ctx context.Context) ([]StorageStore, error) {
	var resp listStoresResponse
	if err := c.do(ctx, http.MethodGet, "/v1/storage/stores", nil, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Stores, nil
}

// DeleteStore deletes a storage store by ID.
func (c *Client) DeleteStore(ctx context.Context, storeID string) error {
	return c.do(ctx, http.MethodDelete, "/v1/storage/stores/"+url.PathEscape(storeID), nil, nil, nil)
}

// ConnectStoreToProject connects a storage store to a project. The endpoint
// may return an empty body; an already-existing connection reports success
// upstream, so the call is idempotent from the caller's perspective.
func (c *Client) ConnectStoreToProject(ctx context.Context, integrationConfigID, productID, storeID, projectID string) (json.RawMessage, error) {
	path := fmt.Sprintf("/v1/integrations/installations/%s/products/%s/resources/%s/connections",
		url.PathEscape(integrationConfigID), url.PathEscape(productID), url.PathEscape(storeID))

	var connection json.RawMessage
	body := map[string]string{"projectId": projectID}
	if err := c.do(ctx, http.MethodPost, path, nil, body, &connection); err != nil {
		return nil, err
	}
	return connection, nil
}

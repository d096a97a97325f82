package http

import "github.com/claim-deploy/claim-deploy-backend/internal/vercel"

// CreateProjectRequest optionally carries environment variables to attach to
// the generated project.
type CreateProjectRequest struct {
	EnvironmentVariables []vercel.EnvVar `json:"environmentVariables,omitempty"`
}

type CreateAuthorizationRequest struct {
	IntegrationIDOrSlug  string `json:"integrationIdOrSlug"`
	IntegrationProductID string `json:"integrationProductId"`
	BillingPlanID        string `json:"billingPlanId"`
	Region               string `json:"region,omitempty"`
}

type CreateStorageRequest struct {
	ProjectName          string `json:"projectName"`
	IntegrationProductID string `json:"integrationProductId"`
	AuthorizationID      string `json:"authorizationId"`
	BillingPlanID        string `json:"billingPlanId"`
	Region               string `json:"region,omitempty"`
}

type ConnectStorageRequest struct {
	StoreID   string `json:"storeId"`
	ProjectID string `json:"projectId"`
}

type StartTransferRequest struct {
	ProjectID string `json:"projectId"`
}

type ProvisionRequest struct {
	Template string `json:"template"`
}

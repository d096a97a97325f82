package integration

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/claim-deploy/claim-deploy-backend/internal/bootstrap"
	cleanupsvc "github.com/claim-deploy/claim-deploy-backend/internal/cleanup/service"
	provisionrepo "github.com/claim-deploy/claim-deploy-backend/internal/provision/repository"
	provisionsvc "github.com/claim-deploy/claim-deploy-backend/internal/provision/service"
	"github.com/claim-deploy/claim-deploy-backend/internal/templates"
	"github.com/claim-deploy/claim-deploy-backend/internal/vercel"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSource struct{}

func (stubSource) Fetch(_ context.Context, key string) ([]byte, error) {
	return []byte("archive-" + key), nil
}

// backend fakes the provisioning API for a whole provision-then-cleanup
// cycle, remembering created and deleted projects.
type backend struct {
	mu       sync.Mutex
	projects []map[string]interface{}
	deleted  []string
}

func (b *backend) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/v10/projects", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Name string `json:"name"`
		}
		json.NewDecoder(r.Body).Decode(&req)

		b.mu.Lock()
		project := map[string]interface{}{
			"id":        "prj_live",
			"name":      req.Name,
			"createdAt": time.Now().UnixMilli(),
		}
		b.projects = append(b.projects, project)
		b.mu.Unlock()

		json.NewEncoder(w).Encode(project)
	})
	mux.HandleFunc("/v9/projects", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		json.NewEncoder(w).Encode(map[string]interface{}{"projects": b.projects})
	})
	mux.HandleFunc("/v9/projects/", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodDelete:
			b.mu.Lock()
			b.deleted = append(b.deleted, r.URL.Path)
			b.mu.Unlock()
			w.WriteHeader(http.StatusOK)
		case http.MethodPost:
			json.NewEncoder(w).Encode(map[string]string{"code": "claim-code-xyz"})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	mux.HandleFunc("/v1/integrations/billing/authorization", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"authorization": map[string]string{"id": "auth_1"}})
	})
	mux.HandleFunc("/v1/storage/stores/integration", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"store": map[string]interface{}{"id": "store_1", "name": "prisma-postgres-x"},
		})
	})
	mux.HandleFunc("/v1/storage/stores", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"stores": []interface{}{}})
	})
	mux.HandleFunc("/v1/integrations/installations/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/v2/files", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/v13/deployments", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"id": "dpl_live", "projectId": "prj_live", "readyState": "QUEUED"})
	})
	mux.HandleFunc("/v13/deployments/dpl_live", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{
			"id": "dpl_live", "projectId": "prj_live",
			"url": "live.example.app", "readyState": "READY",
		})
	})

	return mux
}

func buildTestRouter(t *testing.T, b *backend) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	server := httptest.NewServer(b.handler())
	t.Cleanup(server.Close)

	client, err := vercel.New(vercel.Options{BaseURL: server.URL, HTTPClient: server.Client()})
	require.NoError(t, err)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	registry := templates.NewRegistry(stubSource{})
	runs := provisionrepo.NewRunRepository(rdb)
	defaults := provisionsvc.Defaults{
		IntegrationID:       "prisma",
		ProductID:           "iap_test",
		BillingPlanID:       "business",
		Region:              "iad1",
		IntegrationConfigID: "icfg_test",
	}
	poller := provisionsvc.NewPoller(client, 5*time.Second)
	svc := provisionsvc.NewService(client, registry, poller, runs, defaults)

	reaper := cleanupsvc.NewReaper([]cleanupsvc.Kind{
		cleanupsvc.NewProjectKind(client, ""),
		cleanupsvc.NewStorageKind(client),
	}, 0)

	return bootstrap.BuildRouter(bootstrap.RouterDeps{
		ServiceName: "claim-deploy-backend",
		Version:     "test",
		CronSecret:  "cron-secret",
		Redis:       rdb,
		Client:      client,
		Registry:    registry,
		Service:     svc,
		Poller:      poller,
		Defaults:    defaults,
		Reaper:      reaper,
	})
}

func TestProvisionAndCleanupFlow(t *testing.T) {
	b := &backend{}
	router := buildTestRouter(t, b)

	t.Run("health reports the service", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "claim-deploy-backend")
	})

	var runID string

	t.Run("provision runs the whole workflow", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/provision",
			strings.NewReader(`{"template":"nextjs_with_prisma"}`))
		req.Header.Set("Content-Type", "application/json")

		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var resp struct {
			RunID  string `json:"run_id"`
			Result struct {
				ProjectID     string `json:"project_id"`
				ProjectName   string `json:"project_name"`
				DeploymentURL string `json:"deployment_url"`
				ClaimCode     string `json:"claim_code"`
			} `json:"result"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "prj_live", resp.Result.ProjectID)
		assert.Equal(t, "live.example.app", resp.Result.DeploymentURL)
		assert.Equal(t, "claim-code-xyz", resp.Result.ClaimCode)
		require.NotEmpty(t, resp.RunID)
		runID = resp.RunID
	})

	t.Run("run record shows the finished workflow", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/provision/runs/"+runID, nil))
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"step":"finished"`)
		assert.Contains(t, w.Body.String(), "claim-code-xyz")
	})

	t.Run("cleanup leaves the fresh project alone", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/cleanup", nil)
		req.Header.Set("Authorization", "Bearer cron-secret")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Empty(t, b.deleted)
	})

	t.Run("cleanup reaps the project once it is stale", func(t *testing.T) {
		b.mu.Lock()
		for _, p := range b.projects {
			p["createdAt"] = time.Now().Add(-24 * time.Hour).UnixMilli()
		}
		b.mu.Unlock()

		req := httptest.NewRequest(http.MethodPost, "/api/cleanup", nil)
		req.Header.Set("Authorization", "Bearer cron-secret")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, []string{"/v9/projects/prj_live"}, b.deleted)
	})
}

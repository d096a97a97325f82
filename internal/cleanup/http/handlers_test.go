package http_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	cleanuphttp "github.com/claim-deploy/claim-deploy-backend/internal/cleanup/http"
	cleanupsvc "github.com/claim-deploy/claim-deploy-backend/internal/cleanup/service"
	"github.com/claim-deploy/claim-deploy-backend/internal/vercel"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCleanupRouter(t *testing.T, upstream http.Handler, secret string) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	server := httptest.NewServer(upstream)
	t.Cleanup(server.Close)

	client, err := vercel.New(vercel.Options{BaseURL: server.URL, HTTPClient: server.Client()})
	require.NoError(t, err)

	reaper := cleanupsvc.NewReaper([]cleanupsvc.Kind{
		cleanupsvc.NewProjectKind(client, "https://github.com/claim-deploy/claim-deploy-demo"),
		cleanupsvc.NewStorageKind(client),
	}, 0)

	router := gin.New()
	handler := cleanuphttp.NewHandler(reaper, nil, secret)
	handler.Register(router.Group("/api"))
	return router
}

// emptyUpstream answers the list endpoints with no resources.
func emptyUpstream() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/v9/projects", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"projects": []interface{}{}})
	})
	mux.HandleFunc("/v1/storage/stores", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"stores": []interface{}{}})
	})
	return mux
}

func TestCleanup_Authorization(t *testing.T) {
	router := newCleanupRouter(t, emptyUpstream(), "s3cret")

	t.Run("rejects a missing bearer token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/cleanup-projects", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("rejects a wrong bearer token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/cleanup", nil)
		req.Header.Set("Authorization", "Bearer nope")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("accepts the configured token on GET as well as POST", func(t *testing.T) {
		for _, method := range []string{http.MethodGet, http.MethodPost} {
			req := httptest.NewRequest(method, "/api/cleanup-projects", nil)
			req.Header.Set("Authorization", "Bearer s3cret")
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			assert.Equal(t, http.StatusOK, w.Code, method)
		}
	})
}

func TestCleanupProjects(t *testing.T) {
	old := time.Now().Add(-24 * time.Hour).UnixMilli()
	young := time.Now().Add(-time.Hour).UnixMilli()

	var deleted []string
	mux := http.NewServeMux()
	mux.HandleFunc("/v9/projects", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"projects": []map[string]interface{}{
				{"id": "prj_old", "name": "temp-project-old", "createdAt": old},
				{"id": "prj_young", "name": "temp-project-young", "createdAt": young},
				{"id": "prj_linked", "name": "temp-project-linked", "createdAt": old,
					"link": map[string]string{"org": "acme", "repo": "demo", "type": "github"}},
				{"id": "prj_own_link", "name": "temp-project-own", "createdAt": old,
					"link": map[string]string{"org": "claim-deploy", "repo": "claim-deploy-demo", "type": "github"}},
				{"id": "prj_other", "name": "production-site", "createdAt": old},
			},
		})
	})
	mux.HandleFunc("/v9/projects/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodDelete {
			deleted = append(deleted, r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
	})

	router := newCleanupRouter(t, mux, "")

	req := httptest.NewRequest(http.MethodPost, "/api/cleanup-projects", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var report struct {
		Matched int `json:"matched"`
		Deleted int `json:"deleted"`
		Failed  int `json:"failed"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.Equal(t, 2, report.Matched)
	assert.Equal(t, 2, report.Deleted)
	assert.Zero(t, report.Failed)
	assert.Equal(t, []string{"/v9/projects/prj_old", "/v9/projects/prj_own_link"}, deleted)
}

func TestCleanup_Combined(t *testing.T) {
	t.Run("succeeds when one kind completes", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/v9/projects", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		})
		mux.HandleFunc("/v1/storage/stores", func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]interface{}{"stores": []interface{}{}})
		})
		router := newCleanupRouter(t, mux, "")

		req := httptest.NewRequest(http.MethodPost, "/api/cleanup", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
	})

	t.Run("fails when every kind fails", func(t *testing.T) {
		upstream := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		})
		router := newCleanupRouter(t, upstream, "")

		req := httptest.NewRequest(http.MethodPost, "/api/cleanup", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

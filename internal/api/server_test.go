package api_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/projectenv/tools-index/internal/api"
	"github.com/projectenv/tools-index/internal/catalog"
	"github.com/projectenv/tools-index/internal/catalog/catalogtest"
	"github.com/projectenv/tools-index/internal/storage/mocks"
)

func serve(t *testing.T, handler http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, path, nil)
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func TestHealthEndpoint(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)

	// No expectations needed - health check doesn't read the index
	server := api.NewServer(mocks.NewMockStore(ctrl))

	rr := serve(t, server, "/health")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var response map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &response))
	assert.Equal(t, "healthy", response["status"])
}

func TestReadinessEndpoint(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		setupMock      func(*mocks.MockStore)
		expectedStatus int
		expectedKey    string
		expectedValue  any
	}{
		{
			name: "index loaded",
			setupMock: func(m *mocks.MockStore) {
				m.EXPECT().Load(gomock.Any()).Return(catalogtest.New(
					catalogtest.WithGradle("8.5", "https://services.gradle.org/distributions/gradle-8.5-bin.zip"),
				), nil)
			},
			expectedStatus: http.StatusOK,
			expectedKey:    "status",
			expectedValue:  "ready",
		},
		{
			name: "index empty",
			setupMock: func(m *mocks.MockStore) {
				m.EXPECT().Load(gomock.Any()).Return(catalog.New(), nil)
			},
			expectedStatus: http.StatusServiceUnavailable,
			expectedKey:    "error",
			expectedValue:  "Index not ready: index is empty",
		},
		{
			name: "index unreadable",
			setupMock: func(m *mocks.MockStore) {
				m.EXPECT().Load(gomock.Any()).Return(nil, errors.New("permission denied"))
			},
			expectedStatus: http.StatusServiceUnavailable,
			expectedKey:    "error",
			expectedValue:  "Index not ready: permission denied",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ctrl := gomock.NewController(t)

			store := mocks.NewMockStore(ctrl)
			tt.setupMock(store)

			rr := serve(t, api.NewServer(store), "/readiness")
			assert.Equal(t, tt.expectedStatus, rr.Code)
			assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

			var response map[string]any
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &response))
			assert.Equal(t, tt.expectedValue, response[tt.expectedKey])
		})
	}
}

func TestVersionEndpoint(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)

	server := api.NewServer(mocks.NewMockStore(ctrl))

	rr := serve(t, server, "/version")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var response map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &response))

	assert.Contains(t, response, "version")
	assert.Contains(t, response, "commit")
	assert.Contains(t, response, "build_date")
	assert.Contains(t, response, "go_version")
	assert.Contains(t, response, "platform")
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)
	store := mocks.NewMockStore(ctrl)

	t.Run("not configured", func(t *testing.T) {
		t.Parallel()
		rr := serve(t, api.NewServer(store), "/metrics")
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("configured", func(t *testing.T) {
		t.Parallel()
		handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("tools_index_entries 1\n"))
		})
		rr := serve(t, api.NewServer(store, api.WithMetricsHandler(handler)), "/metrics")
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "tools_index_entries 1\n", rr.Body.String())
	})
}

func TestMiddlewaresAreApplied(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)

	var called bool
	mw := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			called = true
			next.ServeHTTP(w, r)
		})
	}

	server := api.NewServer(mocks.NewMockStore(ctrl), api.WithMiddlewares(mw, api.LoggingMiddleware))
	rr := serve(t, server, "/health")

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, called)
}

package httpclient_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/projectenv/tools-index/internal/httpclient"
)

func TestHTTPError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		statusCode    int
		url           string
		message       string
		expectedError string
	}{
		{
			name:          "not found",
			statusCode:    404,
			url:           "https://nodejs.org/dist/index.json",
			message:       "404 Not Found",
			expectedError: "HTTP 404 for URL https://nodejs.org/dist/index.json: 404 Not Found",
		},
		{
			name:          "server error",
			statusCode:    503,
			url:           "https://api.github.com/repos/apache/maven-mvnd/releases",
			message:       "Service Unavailable",
			expectedError: "HTTP 503 for URL https://api.github.com/repos/apache/maven-mvnd/releases: Service Unavailable",
		},
		{
			name:          "empty message",
			statusCode:    401,
			url:           "https://example.com",
			expectedError: "HTTP 401 for URL https://example.com: ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := httpclient.NewHTTPError(tt.statusCode, tt.url, tt.message)

			require.Error(t, err)
			assert.Equal(t, tt.expectedError, err.Error())
		})
	}
}

func TestHTTPError_As(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("failed to fetch releases: %w", httpclient.NewHTTPError(403, "https://api.github.com", "rate limited"))

	var httpErr *httpclient.HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, 403, httpErr.StatusCode)
}

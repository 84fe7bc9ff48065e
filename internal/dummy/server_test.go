package dummy

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandler(t *testing.T) {
	server := httptest.NewServer(Handler(ServerConfig{ErrorRate: 1}))
	defer server.Close()

	tests := []struct {
		path string
		want int
	}{
		{"/ok", http.StatusOK},
		{"/slow?ms=5", http.StatusOK},
		{"/error", http.StatusInternalServerError},
		{"/notfound", http.StatusNotFound},
		{"/redirect?hops=3", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, err := http.Get(server.URL + tt.path)
			require.NoError(t, err)
			resp.Body.Close()
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}

func TestHandler_ErrorRateZero(t *testing.T) {
	server := httptest.NewServer(Handler(ServerConfig{ErrorRate: 0}))
	defer server.Close()

	for i := 0; i < 20; i++ {
		resp, err := http.Get(server.URL + "/error")
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	}
}

func TestHandler_RedirectHops(t *testing.T) {
	server := httptest.NewServer(Handler(ServerConfig{}))
	defer server.Close()

	var hops int
	client := &http.Client{
		Timeout: 2 * time.Second,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			hops = len(via)
			return nil
		},
	}

	resp, err := client.Get(server.URL + "/redirect?hops=4")
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 4, hops)
}

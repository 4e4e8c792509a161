package adapter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"dataloom/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPPollStagesEndpointPayloads(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode([]map[string]interface{}{
			{"device": "a"}, {"device": "b"},
		})
	}))
	defer server.Close()

	pipeline := newFakePipeline()
	a := NewHTTPPoll(pipeline)

	source := &domain.DataSource{
		ID: "src-1", Name: "poller", Kind: domain.AdapterHTTPPoll, Active: true,
		Config: domain.AdapterConfig{Endpoint: server.URL, PollInterval: 30, Secret: "tok"},
	}

	summary, err := a.Poll(context.Background(), source)
	require.NoError(t, err)
	assert.Equal(t, int64(2), summary.Staged)
	assert.Equal(t, "Bearer tok", gotAuth)
	assert.Equal(t, domain.ImportCompleted, pipeline.closed["imp-1"])
}

func TestHTTPPollErrorClosesImport(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	pipeline := newFakePipeline()
	a := NewHTTPPoll(pipeline)

	source := &domain.DataSource{
		ID: "src-1", Name: "poller", Kind: domain.AdapterHTTPPoll, Active: true,
		Config: domain.AdapterConfig{Endpoint: server.URL, PollInterval: 30},
	}

	_, err := a.Poll(context.Background(), source)
	require.Error(t, err)
	assert.Equal(t, domain.ImportError, pipeline.closed["imp-1"])
	assert.Empty(t, pipeline.staged)
}

func TestJiraPollPaginates(t *testing.T) {
	issues := []map[string]interface{}{
		{"key": "OPS-1"}, {"key": "OPS-2"}, {"key": "OPS-3"},
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, _, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "bot", user)
		assert.Contains(t, r.URL.Query().Get("jql"), "project=OPS")

		startAt := 0
		if raw := r.URL.Query().Get("startAt"); raw != "" {
			json.Unmarshal([]byte(raw), &startAt)
		}
		end := startAt + 2
		if end > len(issues) {
			end = len(issues)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"total":  len(issues),
			"issues": issues[startAt:end],
		})
	}))
	defer server.Close()

	pipeline := newFakePipeline()
	a := NewJiraPoll(pipeline)
	a.client = server.Client()

	source := &domain.DataSource{
		ID: "src-1", Name: "issues", Kind: domain.AdapterJiraPoll, Active: true,
		Config: domain.AdapterConfig{
			Endpoint: server.URL, PollInterval: 60,
			ProjectKey: "OPS", Username: "bot", Secret: "token",
		},
	}

	summary, err := a.Poll(context.Background(), source)
	require.NoError(t, err)
	assert.Equal(t, int64(3), summary.Staged)
	require.Len(t, pipeline.staged, 3)
	assert.Equal(t, "OPS-3", pipeline.staged[2]["key"])
	assert.Equal(t, domain.ImportCompleted, pipeline.closed["imp-1"])
}

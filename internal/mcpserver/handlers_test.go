package mcpserver

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"threejsmcp/internal/modelquery"
	"threejsmcp/internal/sketchfab"
	"threejsmcp/internal/tokenmanager"
)

type fakeQueries struct {
	searchResult []modelquery.ModelSummary
	searchErr    error
	gotQuery     string
	gotLimit     int

	resolution *modelquery.DownloadResolution
	resolveErr error
	gotModelID string
	gotFormat  string
}

func (f *fakeQueries) Search(ctx context.Context, query string, limit int) ([]modelquery.ModelSummary, error) {
	f.gotQuery = query
	f.gotLimit = limit
	return f.searchResult, f.searchErr
}

func (f *fakeQueries) ResolveDownloadURL(ctx context.Context, modelID, format string) (*modelquery.DownloadResolution, error) {
	f.gotModelID = modelID
	f.gotFormat = format
	return f.resolution, f.resolveErr
}

func callRequest(args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func textContent(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.Len(t, result.Content, 1)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content")
	return text.Text
}

func TestHandleSearchModels(t *testing.T) {
	queries := &fakeQueries{
		searchResult: []modelquery.ModelSummary{
			{UID: "m1", Name: "Chair", Formats: map[string]int64{"gltf": 700}},
		},
	}
	s, err := New(queries, true)
	require.NoError(t, err)

	result, err := s.handleSearchModels(context.Background(),
		callRequest(map[string]any{"query": "chair", "limit": float64(5)}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	var payload searchModelsResult
	require.NoError(t, json.Unmarshal([]byte(textContent(t, result)), &payload))
	require.Len(t, payload.DownloadableModels, 1)
	assert.Equal(t, "m1", payload.DownloadableModels[0].UID)

	assert.Equal(t, "chair", queries.gotQuery)
	assert.Equal(t, 5, queries.gotLimit)
}

func TestHandleSearchModelsLimitClamping(t *testing.T) {
	tests := []struct {
		name string
		args map[string]any
		want int
	}{
		{name: "missing limit defaults", args: map[string]any{"query": "q"}, want: 10},
		{name: "over the API cap", args: map[string]any{"query": "q", "limit": float64(100)}, want: 24},
		{name: "below one", args: map[string]any{"query": "q", "limit": float64(0)}, want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			queries := &fakeQueries{}
			s, err := New(queries, true)
			require.NoError(t, err)

			result, err := s.handleSearchModels(context.Background(), callRequest(tt.args))
			require.NoError(t, err)
			require.False(t, result.IsError)
			assert.Equal(t, tt.want, queries.gotLimit)
		})
	}
}

func TestHandleSearchModelsMissingQuery(t *testing.T) {
	s, err := New(&fakeQueries{}, true)
	require.NoError(t, err)

	result, err := s.handleSearchModels(context.Background(), callRequest(map[string]any{}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestHandleSearchModelsCredentialErrors(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantMessage string
	}{
		{
			name:        "no credentials",
			err:         tokenmanager.ErrNoCredentials,
			wantMessage: "credentials are not configured",
		},
		{
			name:        "refresh rejected",
			err:         tokenmanager.ErrRefreshFailed,
			wantMessage: "supply fresh credentials",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := New(&fakeQueries{searchErr: tt.err}, true)
			require.NoError(t, err)

			result, err := s.handleSearchModels(context.Background(),
				callRequest(map[string]any{"query": "chair"}))
			require.NoError(t, err, "credential failures are tool errors, not protocol errors")
			require.True(t, result.IsError)
			assert.Contains(t, textContent(t, result), tt.wantMessage)
		})
	}
}

func TestHandleGetGltfModelURL(t *testing.T) {
	queries := &fakeQueries{
		resolution: &modelquery.DownloadResolution{
			ModelName: "Wooden Chair",
			ModelID:   "m1",
			Format:    "gltf",
			URL:       "https://dl.example.com/m1.gltf?sig=abc",
		},
	}
	s, err := New(queries, true)
	require.NoError(t, err)

	result, err := s.handleGetGltfModelURL(context.Background(),
		callRequest(map[string]any{"model_id": "m1"}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	var payload gltfModelURLResult
	require.NoError(t, json.Unmarshal([]byte(textContent(t, result)), &payload))
	assert.Equal(t, gltfModelURLResult{
		ModelName: "Wooden Chair",
		ModelID:   "m1",
		GltfURL:   "https://dl.example.com/m1.gltf?sig=abc",
	}, payload)

	assert.Equal(t, "m1", queries.gotModelID)
	assert.Equal(t, "gltf", queries.gotFormat)
}

func TestHandleGetGltfModelURLNotFound(t *testing.T) {
	queries := &fakeQueries{
		resolveErr: &sketchfab.NotFoundError{ModelID: "missing-id"},
	}
	s, err := New(queries, true)
	require.NoError(t, err)

	result, err := s.handleGetGltfModelURL(context.Background(),
		callRequest(map[string]any{"model_id": "missing-id"}))
	require.NoError(t, err)
	require.True(t, result.IsError)
	assert.Contains(t, textContent(t, result), "missing-id")
}

func TestHandleGetGltfModelURLMissingArgument(t *testing.T) {
	s, err := New(&fakeQueries{}, true)
	require.NoError(t, err)

	result, err := s.handleGetGltfModelURL(context.Background(), callRequest(map[string]any{}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"

	"threejsmcp/internal/modelquery"
	"threejsmcp/internal/sketchfab"
	"threejsmcp/internal/tokenmanager"
)

const (
	defaultSearchLimit = 10
	maxSearchLimit     = 24
)

// searchModelsResult is the payload of a successful search tool call.
type searchModelsResult struct {
	DownloadableModels []modelquery.ModelSummary `json:"downloadable_models"`
}

// gltfModelURLResult is the payload of a successful URL resolution tool call.
type gltfModelURLResult struct {
	ModelName string `json:"model_name"`
	ModelID   string `json:"model_id"`
	GltfURL   string `json:"gltf_url"`
}

// handleSearchModels handles the threejs_search_models tool.
func (s *Server) handleSearchModels(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	logger := slog.With("tool", toolSearchModels, "invocation_id", uuid.NewString())
	args := request.GetArguments()

	query, ok := args["query"].(string)
	if !ok || query == "" {
		return mcp.NewToolResultError("query is required"), nil
	}

	limit := defaultSearchLimit
	if raw, ok := args["limit"].(float64); ok {
		limit = int(raw)
		if limit < 1 {
			limit = 1
		}
		if limit > maxSearchLimit {
			limit = maxSearchLimit
		}
	}

	models, err := s.queries.Search(ctx, query, limit)
	if err != nil {
		logger.ErrorContext(ctx, "search failed", "query", query, "error", err)
		return mcp.NewToolResultError(toolErrorMessage(err)), nil
	}

	logger.InfoContext(ctx, "search completed", "query", query, "downloadable_models", len(models))

	return jsonToolResult(searchModelsResult{DownloadableModels: models})
}

// handleGetGltfModelURL handles the threejs_get_gltf_model_url tool.
func (s *Server) handleGetGltfModelURL(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	logger := slog.With("tool", toolGetGltfModelURL, "invocation_id", uuid.NewString())
	args := request.GetArguments()

	modelID, ok := args["model_id"].(string)
	if !ok || modelID == "" {
		return mcp.NewToolResultError("model_id is required"), nil
	}

	resolution, err := s.queries.ResolveDownloadURL(ctx, modelID, modelquery.DefaultFormat)
	if err != nil {
		var notFound *sketchfab.NotFoundError
		if errors.As(err, &notFound) {
			// Expected outcome, not a fault.
			logger.DebugContext(ctx, "model not resolvable", "model_id", modelID, "reason", notFound.Error())
			return mcp.NewToolResultError(notFound.Error()), nil
		}

		logger.ErrorContext(ctx, "download URL resolution failed", "model_id", modelID, "error", err)
		return mcp.NewToolResultError(toolErrorMessage(err)), nil
	}

	logger.InfoContext(ctx, "download URL resolved", "model_id", modelID)

	return jsonToolResult(gltfModelURLResult{
		ModelName: resolution.ModelName,
		ModelID:   resolution.ModelID,
		GltfURL:   resolution.URL,
	})
}

// toolErrorMessage keeps operator-actionable credential failures explicit
// while passing everything else through verbatim.
func toolErrorMessage(err error) string {
	switch {
	case errors.Is(err, tokenmanager.ErrNoCredentials):
		return "Sketchfab credentials are not configured; supply an access token or refresh credentials"
	case errors.Is(err, tokenmanager.ErrRefreshFailed):
		return "Sketchfab rejected the stored credentials; supply fresh credentials"
	default:
		return err.Error()
	}
}

func jsonToolResult(payload any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding tool result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}

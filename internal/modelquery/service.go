// Package modelquery implements the two queries exposed to callers: searching
// for downloadable models and resolving a model's authenticated download URL.
package modelquery

import (
	"context"
	"fmt"
	"log/slog"

	"threejsmcp/internal/sketchfab"
)

// DefaultFormat is the archive format resolved when the caller names none.
const DefaultFormat = "gltf"

// API is the slice of the Sketchfab client the service consumes.
type API interface {
	Search(ctx context.Context, query string, limit int) ([]sketchfab.Model, error)
	GetModel(ctx context.Context, uid string) (*sketchfab.Model, error)
	GetDownloadLink(ctx context.Context, uid string) (sketchfab.DownloadLinks, error)
}

// ModelSummary is the shaped, immutable view of one downloadable search hit.
// Formats maps archive format names to byte sizes.
type ModelSummary struct {
	UID          string           `json:"uid"`
	Name         string           `json:"name"`
	Description  string           `json:"description"`
	ViewerURL    string           `json:"viewerUrl"`
	EmbedURL     string           `json:"embedUrl"`
	ThumbnailURL string           `json:"thumbnailUrl"`
	Owner        string           `json:"user"`
	Formats      map[string]int64 `json:"formats"`
}

// DownloadResolution is a freshly resolved signed download URL. Never cached:
// signed URLs expire independently of the OAuth token, so every request
// re-resolves against the upstream.
type DownloadResolution struct {
	ModelName string `json:"model_name"`
	ModelID   string `json:"model_id"`
	Format    string `json:"format"`
	URL       string `json:"url"`
}

// Service answers model queries through the authenticated Sketchfab client.
type Service struct {
	api API
}

// New creates a Service.
func New(api API) (*Service, error) {
	if api == nil {
		return nil, fmt.Errorf("missing sketchfab API client")
	}
	return &Service{api: api}, nil
}

// Search returns the downloadable models matching the query, in upstream
// order. Results without any downloadable archive are dropped entirely. An
// empty result set is not an error.
func (s *Service) Search(ctx context.Context, query string, limit int) ([]ModelSummary, error) {
	models, err := s.api.Search(ctx, query, limit)
	if err != nil {
		return nil, err
	}

	summaries := make([]ModelSummary, 0, len(models))
	for _, model := range models {
		if !model.IsDownloadable {
			slog.DebugContext(ctx, "skipping non-downloadable model", "uid", model.UID, "name", model.Name)
			continue
		}

		formats := archiveSizes(model.Archives)
		if len(formats) == 0 {
			slog.DebugContext(ctx, "skipping model without downloadable archives", "uid", model.UID)
			continue
		}

		summaries = append(summaries, ModelSummary{
			UID:          model.UID,
			Name:         model.Name,
			Description:  model.Description,
			ViewerURL:    model.ViewerURL,
			EmbedURL:     model.EmbedURL,
			ThumbnailURL: firstThumbnail(model.Thumbnails),
			Owner:        model.User.Username,
			Formats:      formats,
		})
	}

	return summaries, nil
}

// ResolveDownloadURL resolves a fresh signed download URL for the given model
// and archive format (gltf when empty). Fails with *sketchfab.NotFoundError
// when the model is unknown, not downloadable, or lacks the format.
func (s *Service) ResolveDownloadURL(ctx context.Context, modelID, format string) (*DownloadResolution, error) {
	if format == "" {
		format = DefaultFormat
	}

	model, err := s.api.GetModel(ctx, modelID)
	if err != nil {
		return nil, err
	}
	if !model.IsDownloadable {
		return nil, &sketchfab.NotFoundError{ModelID: modelID}
	}

	links, err := s.api.GetDownloadLink(ctx, modelID)
	if err != nil {
		return nil, err
	}

	option, ok := links[format]
	if !ok || option.URL == "" {
		return nil, &sketchfab.NotFoundError{ModelID: modelID, Format: format}
	}

	return &DownloadResolution{
		ModelName: model.Name,
		ModelID:   modelID,
		Format:    format,
		URL:       option.URL,
	}, nil
}

// archiveSizes flattens the archives map to format -> byte size. Null archive
// entries are dropped; zero-size entries are kept, matching live upstream
// behavior.
func archiveSizes(archives map[string]*sketchfab.Archive) map[string]int64 {
	if len(archives) == 0 {
		return nil
	}
	sizes := make(map[string]int64, len(archives))
	for name, archive := range archives {
		if archive == nil {
			continue
		}
		sizes[name] = archive.Size
	}
	if len(sizes) == 0 {
		return nil
	}
	return sizes
}

func firstThumbnail(thumbs sketchfab.Thumbnails) string {
	if len(thumbs.Images) == 0 {
		return ""
	}
	return thumbs.Images[0].URL
}

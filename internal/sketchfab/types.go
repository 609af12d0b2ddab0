package sketchfab

// Model is a raw model record as returned by the Sketchfab v3 API.
type Model struct {
	UID            string              `json:"uid"`
	Name           string              `json:"name"`
	Description    string              `json:"description"`
	ViewerURL      string              `json:"viewerUrl"`
	EmbedURL       string              `json:"embedUrl"`
	IsDownloadable bool                `json:"isDownloadable"`
	Thumbnails     Thumbnails          `json:"thumbnails"`
	User           User                `json:"user"`
	Archives       map[string]*Archive `json:"archives"`
}

// Thumbnails holds the rendered preview images of a model.
type Thumbnails struct {
	Images []ThumbnailImage `json:"images"`
}

// ThumbnailImage is a single preview rendition.
type ThumbnailImage struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// User identifies the model owner.
type User struct {
	Username string `json:"username"`
}

// Archive describes one downloadable archive of a model. Entries can be null
// in upstream responses, hence the pointer in Model.Archives.
type Archive struct {
	Size int64 `json:"size"`
}

// searchResponse mirrors the grouped search payload; model hits live under
// results.models.
type searchResponse struct {
	Results searchResults `json:"results"`
}

type searchResults struct {
	Models []Model `json:"models"`
}

// DownloadOption is one resolvable archive format of a model. The URL is
// signed and expires independently of the OAuth token.
type DownloadOption struct {
	URL     string `json:"url"`
	Size    int64  `json:"size"`
	Expires int64  `json:"expires"`
}

// DownloadLinks maps format names (gltf, usdz, source, ...) to their signed
// download URLs.
type DownloadLinks map[string]DownloadOption

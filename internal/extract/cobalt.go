package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"path"

	"github.com/akilaramal69-beep/telelinkworking/internal/progress"
	"github.com/akilaramal69-beep/telelinkworking/internal/selector"
	"github.com/akilaramal69-beep/telelinkworking/types"
	"go.uber.org/zap"
)

// CobaltClient talks to a cobalt-compatible extraction API, the second
// rung of the acquisition ladder.
type CobaltClient struct {
	baseURL   string
	client    *http.Client
	chunkSize int
	log       *zap.SugaredLogger
}

func NewCobaltClient(baseURL string, client *http.Client, chunkSize int, log *zap.SugaredLogger) *CobaltClient {
	if chunkSize <= 0 {
		chunkSize = 1024 * 1024
	}
	return &CobaltClient{baseURL: baseURL, client: client, chunkSize: chunkSize, log: log}
}

// Supported reports whether a fallback endpoint is configured at all.
func (c *CobaltClient) Supported() bool {
	return c != nil && c.baseURL != ""
}

type cobaltRequest struct {
	URL          string `json:"url"`
	DownloadMode string `json:"downloadMode"`
	VideoQuality string `json:"videoQuality"`
}

type cobaltResponse struct {
	Status   string `json:"status"`
	URL      string `json:"url"`
	Filename string `json:"filename"`
	Picker   []struct {
		URL string `json:"url"`
	} `json:"picker"`
	Error struct {
		Code string `json:"code"`
	} `json:"error"`
}

// Download asks the API to resolve the URL and stages the tunnel or
// redirect target it answers with.
func (c *CobaltClient) Download(ctx context.Context, url, destStem string, rep *progress.Reporter) (string, error) {
	body, err := json.Marshal(cobaltRequest{URL: url, DownloadMode: "auto", VideoQuality: "1080"})
	if err != nil {
		return "", fmt.Errorf("%w: %v", types.ErrNetwork, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: %v", types.ErrNetwork, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("%w: fallback aborted", types.ErrCancelled)
		}
		return "", fmt.Errorf("%w: %v", types.ErrNetwork, err)
	}
	defer resp.Body.Close()

	var parsed cobaltResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("%w: bad fallback response: %v", types.ErrNetwork, err)
	}

	var mediaURL string
	switch parsed.Status {
	case "tunnel", "redirect":
		mediaURL = parsed.URL
	case "picker":
		if len(parsed.Picker) > 0 {
			mediaURL = parsed.Picker[0].URL
		}
	case "error":
		return "", fmt.Errorf("%w: fallback refused: %s", types.ErrNetwork, parsed.Error.Code)
	}
	if mediaURL == "" {
		return "", fmt.Errorf("%w: fallback returned no media url", types.ErrNetwork)
	}

	ext := path.Ext(selector.SanitizeFilename(parsed.Filename))
	if ext == "" {
		ext = ".mp4"
	}
	outPath := destStem + ext
	if err := downloadChunked(ctx, c.client, mediaURL, outPath, c.chunkSize, rep, "Downloading..."); err != nil {
		return "", err
	}
	return outPath, nil
}

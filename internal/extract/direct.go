package extract

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"strings"

	"github.com/akilaramal69-beep/telelinkworking/internal/progress"
	"github.com/akilaramal69-beep/telelinkworking/types"
	"go.uber.org/zap"
)

const browserUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// ProbeResult carries what a HEAD request reveals about a plain URL.
type ProbeResult struct {
	ContentType string
	Total       int64
	Filename    string
}

// DirectDownloader stages plain HTTP resources chunk by chunk.
type DirectDownloader struct {
	client    *http.Client
	chunkSize int
	log       *zap.SugaredLogger
}

func NewDirectDownloader(client *http.Client, chunkSize int, log *zap.SugaredLogger) *DirectDownloader {
	if chunkSize <= 0 {
		chunkSize = 1024 * 1024
	}
	return &DirectDownloader{client: client, chunkSize: chunkSize, log: log}
}

// Probe issues a HEAD request. Failure is soft: some servers reject
// HEAD outright, so callers treat a nil result as "unknown".
func (d *DirectDownloader) Probe(ctx context.Context, url string) (*ProbeResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrValidation, err)
	}
	req.Header.Set("User-Agent", browserUA)

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrNetwork, err)
	}
	defer resp.Body.Close()

	res := &ProbeResult{
		ContentType: strings.TrimSpace(strings.SplitN(resp.Header.Get("Content-Type"), ";", 2)[0]),
		Total:       resp.ContentLength,
	}
	if cd := resp.Header.Get("Content-Disposition"); cd != "" {
		if _, params, err := mime.ParseMediaType(cd); err == nil {
			res.Filename = params["filename"]
		}
	}
	return res, nil
}

// Download fetches the URL into outPath, reporting byte progress and
// honouring cancellation between chunks. Partial output is removed on
// any failure.
func (d *DirectDownloader) Download(ctx context.Context, url, outPath string, rep *progress.Reporter) error {
	return downloadChunked(ctx, d.client, url, outPath, d.chunkSize, rep, "Downloading...")
}

// downloadChunked is the one chunked HTTP body copy shared by the
// direct strategy and the fallback API client.
func downloadChunked(ctx context.Context, client *http.Client, url, outPath string, chunkSize int, rep *progress.Reporter, action string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", types.ErrValidation, err)
	}
	req.Header.Set("User-Agent", browserUA)

	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%w: download aborted", types.ErrCancelled)
		}
		return fmt.Errorf("%w: %v", types.ErrNetwork, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: unexpected status %s", types.ErrNetwork, resp.Status)
	}

	out, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("%w: %v", types.ErrNetwork, err)
	}

	total := resp.ContentLength
	var written int64
	buf := make([]byte, chunkSize)
	for {
		if ctx.Err() != nil {
			out.Close()
			os.Remove(outPath)
			return fmt.Errorf("%w: download aborted", types.ErrCancelled)
		}
		n, rerr := io.ReadFull(resp.Body, buf)
		if n > 0 {
			if _, werr := out.Write(buf[:n]); werr != nil {
				out.Close()
				os.Remove(outPath)
				return fmt.Errorf("%w: %v", types.ErrNetwork, werr)
			}
			written += int64(n)
			rep.Bytes(action, written, total)
		}
		if rerr == io.EOF || rerr == io.ErrUnexpectedEOF {
			break
		}
		if rerr != nil {
			out.Close()
			os.Remove(outPath)
			if ctx.Err() != nil {
				return fmt.Errorf("%w: download aborted", types.ErrCancelled)
			}
			return fmt.Errorf("%w: %v", types.ErrNetwork, rerr)
		}
	}
	if err := out.Close(); err != nil {
		os.Remove(outPath)
		return fmt.Errorf("%w: %v", types.ErrNetwork, err)
	}
	if written == 0 {
		os.Remove(outPath)
		return fmt.Errorf("%w: empty response body", types.ErrNetwork)
	}
	return nil
}

package extract

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/akilaramal69-beep/telelinkworking/internal/progress"
	"github.com/akilaramal69-beep/telelinkworking/types"
	"go.uber.org/zap"
)

type nopStore struct{}

func (nopStore) Set(int64, *types.ProgressRecord) error { return nil }
func (nopStore) Get(int64) (*types.ProgressRecord, error) {
	return nil, nil
}
func (nopStore) SetTerminal(int64, *types.ProgressRecord, time.Duration) error { return nil }
func (nopStore) Delete(int64) error                                            { return nil }

type stubExtractor struct {
	err    error
	called bool
}

func (s *stubExtractor) Probe(ctx context.Context, url string) (*types.FormatQueryResult, error) {
	return &types.FormatQueryResult{Title: "stub"}, nil
}

func (s *stubExtractor) Download(ctx context.Context, url, formatID, destStem string, rep *progress.Reporter) (string, error) {
	s.called = true
	if s.err != nil {
		return "", s.err
	}
	path := destStem + ".mp4"
	if err := os.WriteFile(path, []byte("primary-bytes"), 0o644); err != nil {
		return "", err
	}
	return path, nil
}

type stubFallback struct {
	err    error
	called bool
}

func (s *stubFallback) Supported() bool { return true }

func (s *stubFallback) Download(ctx context.Context, url, destStem string, rep *progress.Reporter) (string, error) {
	s.called = true
	if s.err != nil {
		return "", s.err
	}
	path := destStem + ".mp4"
	if err := os.WriteFile(path, []byte("fallback-bytes"), 0o644); err != nil {
		return "", err
	}
	return path, nil
}

type stubRemuxer struct {
	err    error
	called bool
}

func (s *stubRemuxer) Remux(ctx context.Context, url, outPath string, rep *progress.Reporter) error {
	s.called = true
	if s.err != nil {
		return s.err
	}
	return os.WriteFile(outPath, []byte("remuxed-bytes"), 0o644)
}

func testEngine(t *testing.T, extractor Extractor, fallback FallbackClient, remuxer Remuxer, client *http.Client) *Engine {
	t.Helper()
	if client == nil {
		client = http.DefaultClient
	}
	log := zap.NewNop().Sugar()
	direct := NewDirectDownloader(client, 64*1024, log)
	return NewEngine(t.TempDir(), 1<<30, extractor, fallback, remuxer, direct, log)
}

func testReporter() *progress.Reporter {
	return progress.NewReporter(nopStore{}, 1, time.Nanosecond)
}

func extractionTask(url string) *types.Task {
	return &types.Task{UserID: 1, ChatID: 1, SourceURL: url, TargetFilename: "video.mp4", Mode: types.ModeMedia}
}

func TestAcquirePrimarySuccessSkipsFallback(t *testing.T) {
	extractor := &stubExtractor{}
	fallback := &stubFallback{}
	e := testEngine(t, extractor, fallback, &stubRemuxer{}, nil)

	file, err := e.Acquire(context.Background(), extractionTask("https://youtube.com/watch?v=abc"), testReporter())
	if err != nil {
		t.Fatal(err)
	}
	if !extractor.called {
		t.Error("primary extractor not used")
	}
	if fallback.called {
		t.Error("fallback used although primary succeeded")
	}
	if file.Size == 0 {
		t.Error("staged file has no size")
	}
	os.Remove(file.Path)
}

func TestAcquireExtractionFailureTriesFallback(t *testing.T) {
	extractor := &stubExtractor{err: fmt.Errorf("%w: age gated", types.ErrExtraction)}
	fallback := &stubFallback{}
	e := testEngine(t, extractor, fallback, &stubRemuxer{}, nil)

	file, err := e.Acquire(context.Background(), extractionTask("https://youtube.com/watch?v=abc"), testReporter())
	if err != nil {
		t.Fatal(err)
	}
	if !fallback.called {
		t.Error("fallback not tried after extraction failure")
	}
	os.Remove(file.Path)
}

func TestAcquireFallbackExhausted(t *testing.T) {
	extractor := &stubExtractor{err: fmt.Errorf("%w: age gated", types.ErrExtraction)}
	fallback := &stubFallback{err: fmt.Errorf("%w: api down", types.ErrNetwork)}
	e := testEngine(t, extractor, fallback, &stubRemuxer{}, nil)

	_, err := e.Acquire(context.Background(), extractionTask("https://youtube.com/watch?v=abc"), testReporter())
	if !errors.Is(err, types.ErrFallbackExhausted) {
		t.Errorf("error = %v, want ErrFallbackExhausted", err)
	}
}

func TestAcquireNoFallbackForUnsupportedHost(t *testing.T) {
	extractor := &stubExtractor{err: fmt.Errorf("%w: broken", types.ErrExtraction)}
	fallback := &stubFallback{}
	e := testEngine(t, extractor, fallback, &stubRemuxer{}, nil)

	// soundcloud extracts but is not in the fallback API's list.
	_, err := e.Acquire(context.Background(), extractionTask("https://soundcloud.com/a/b"), testReporter())
	if err == nil {
		t.Fatal("expected error")
	}
	if fallback.called {
		t.Error("fallback tried for a host it does not accept")
	}
	if errors.Is(err, types.ErrFallbackExhausted) {
		t.Error("single-strategy failure must not read as exhausted fallback")
	}
}

func TestAcquireCancelledPrimarySkipsFallback(t *testing.T) {
	extractor := &stubExtractor{err: fmt.Errorf("%w: download aborted", types.ErrCancelled)}
	fallback := &stubFallback{}
	e := testEngine(t, extractor, fallback, &stubRemuxer{}, nil)

	_, err := e.Acquire(context.Background(), extractionTask("https://youtube.com/watch?v=abc"), testReporter())
	if !errors.Is(err, types.ErrCancelled) {
		t.Errorf("error = %v, want ErrCancelled", err)
	}
	if fallback.called {
		t.Error("fallback tried after user cancellation")
	}
}

func TestAcquireStreamedUsesRemuxer(t *testing.T) {
	remuxer := &stubRemuxer{}
	e := testEngine(t, &stubExtractor{}, &stubFallback{}, remuxer, nil)

	task := extractionTask("https://cdn.example.com/live/stream.m3u8")
	task.TargetFilename = "stream.mp4"
	file, err := e.Acquire(context.Background(), task, testReporter())
	if err != nil {
		t.Fatal(err)
	}
	if !remuxer.called {
		t.Error("remuxer not used for manifest URL")
	}
	os.Remove(file.Path)
}

func TestAcquireRemuxFailureIsFatal(t *testing.T) {
	remuxer := &stubRemuxer{err: fmt.Errorf("%w: boom", types.ErrRemux)}
	fallback := &stubFallback{}
	e := testEngine(t, &stubExtractor{}, fallback, remuxer, nil)

	_, err := e.Acquire(context.Background(), extractionTask("https://cdn.example.com/live/stream.m3u8"), testReporter())
	if !errors.Is(err, types.ErrRemux) {
		t.Errorf("error = %v, want ErrRemux", err)
	}
	if fallback.called {
		t.Error("streamed strategy has no fallback")
	}
}

func TestAcquireDirectDownload(t *testing.T) {
	body := []byte("0123456789abcdef")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "video/mp4")
		if r.Method == http.MethodHead {
			w.Header().Set("Content-Length", fmt.Sprint(len(body)))
			return
		}
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	e := testEngine(t, &stubExtractor{}, &stubFallback{}, &stubRemuxer{}, srv.Client())
	task := extractionTask(srv.URL + "/video.mp4")
	file, err := e.Acquire(context.Background(), task, testReporter())
	if err != nil {
		t.Fatal(err)
	}
	if file.Size != int64(len(body)) {
		t.Errorf("size = %d, want %d", file.Size, len(body))
	}
	if file.Mime != "video/mp4" {
		t.Errorf("mime = %q, want video/mp4", file.Mime)
	}
	os.Remove(file.Path)
}

func TestAcquireDirectHonorsServerFilename(t *testing.T) {
	body := []byte("0123456789abcdef")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "video/mp4")
		w.Header().Set("Content-Disposition", `attachment; filename="server-name.mp4"`)
		if r.Method == http.MethodHead {
			w.Header().Set("Content-Length", fmt.Sprint(len(body)))
			return
		}
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	e := testEngine(t, &stubExtractor{}, &stubFallback{}, &stubRemuxer{}, srv.Client())

	task := extractionTask(srv.URL + "/dl")
	task.TargetFilename = "downloaded_file"
	file, err := e.Acquire(context.Background(), task, testReporter())
	if err != nil {
		t.Fatal(err)
	}
	if task.TargetFilename != "server-name.mp4" {
		t.Errorf("target filename = %q, want server-name.mp4", task.TargetFilename)
	}
	base := filepath.Base(file.Path)
	if !strings.HasPrefix(base, "server-name_") || filepath.Ext(base) != ".mp4" {
		t.Errorf("staged name = %q, want server-name stem with .mp4", base)
	}
	os.Remove(file.Path)

	// A name the user typed is never overridden by the server's.
	task = extractionTask(srv.URL + "/dl")
	task.TargetFilename = "my_pick.mp4"
	task.Renamed = true
	file, err = e.Acquire(context.Background(), task, testReporter())
	if err != nil {
		t.Fatal(err)
	}
	if task.TargetFilename != "my_pick.mp4" {
		t.Errorf("user-chosen filename overridden to %q", task.TargetFilename)
	}
	os.Remove(file.Path)
}

func TestAcquireDirectExtensionFromContentType(t *testing.T) {
	body := []byte("0123456789abcdef")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "video/mp4")
		if r.Method == http.MethodHead {
			w.Header().Set("Content-Length", fmt.Sprint(len(body)))
			return
		}
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	e := testEngine(t, &stubExtractor{}, &stubFallback{}, &stubRemuxer{}, srv.Client())
	task := extractionTask(srv.URL + "/clip")
	task.TargetFilename = "clip"
	file, err := e.Acquire(context.Background(), task, testReporter())
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Ext(file.Path) != ".mp4" {
		t.Errorf("staged extension = %q, want .mp4", filepath.Ext(file.Path))
	}
	if task.TargetFilename != "clip.mp4" {
		t.Errorf("target filename = %q, want clip.mp4", task.TargetFilename)
	}
	os.Remove(file.Path)
}

func TestAcquireDirectTooLarge(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/zip")
		w.Header().Set("Content-Length", "999999999999")
	}))
	defer srv.Close()

	log := zap.NewNop().Sugar()
	direct := NewDirectDownloader(srv.Client(), 64*1024, log)
	e := NewEngine(t.TempDir(), 1024, &stubExtractor{}, &stubFallback{}, &stubRemuxer{}, direct, log)

	_, err := e.Acquire(context.Background(), extractionTask(srv.URL+"/big.zip"), testReporter())
	if !errors.Is(err, types.ErrValidation) {
		t.Errorf("error = %v, want ErrValidation", err)
	}
}

func TestAcquireDirectCancellationRemovesPartial(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "video/mp4")
		if r.Method == http.MethodHead {
			return
		}
		_, _ = w.Write(make([]byte, 256*1024))
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		cancel()
		<-r.Context().Done()
	}))
	defer srv.Close()

	log := zap.NewNop().Sugar()
	direct := NewDirectDownloader(srv.Client(), 4*1024, log)
	stagingDir := t.TempDir()
	e := NewEngine(stagingDir, 1<<30, &stubExtractor{}, &stubFallback{}, &stubRemuxer{}, direct, log)

	_, err := e.Acquire(ctx, extractionTask(srv.URL+"/video.mp4"), testReporter())
	if !errors.Is(err, types.ErrCancelled) {
		t.Fatalf("error = %v, want ErrCancelled", err)
	}

	entries, _ := os.ReadDir(stagingDir)
	if len(entries) != 0 {
		t.Errorf("partial file left in staging: %v", entries)
	}
}

func TestStatRejectsEmptyFile(t *testing.T) {
	e := testEngine(t, &stubExtractor{}, &stubFallback{}, &stubRemuxer{}, nil)
	path := e.stagingDir + "/empty.bin"
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := e.stat(path); !errors.Is(err, types.ErrNetwork) {
		t.Errorf("error = %v, want ErrNetwork", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("empty file not removed")
	}
}

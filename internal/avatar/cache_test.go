package avatar

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func tinyPNGServer(t *testing.T) *httptest.Server {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 100, B: 50, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode test png: %v", err)
	}
	data := buf.Bytes()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write(data)
	}))
}

func TestGetOnEmptyCacheReturnsNil(t *testing.T) {
	c := NewCache(10)
	if c.Get("https://example.com/a.png") != nil {
		t.Error("expected nil for an uncached url")
	}
}

func TestGetOrFetchWithEmptyURLReturnsNilImmediately(t *testing.T) {
	c := NewCache(10)
	if img := c.GetOrFetch(""); img != nil {
		t.Error("expected nil for an empty url")
	}
	if c.Size() != 0 {
		t.Errorf("Size() = %d, want 0", c.Size())
	}
}

func TestGetOrFetchCachesAfterAsyncFetch(t *testing.T) {
	srv := tinyPNGServer(t)
	defer srv.Close()

	c := NewCache(10)
	if img := c.GetOrFetch(srv.URL); img != nil {
		t.Error("first call should return nil while the fetch is in flight")
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && c.Get(srv.URL) == nil {
		time.Sleep(10 * time.Millisecond)
	}
	if c.Get(srv.URL) == nil {
		t.Fatal("expected the avatar to be cached after the async fetch completes")
	}
	if c.Size() != 1 {
		t.Errorf("Size() = %d, want 1", c.Size())
	}
}

func TestEvictsOldestWhenOverCapacity(t *testing.T) {
	srv := tinyPNGServer(t)
	defer srv.Close()

	c := NewCache(1)
	c.GetOrFetch(srv.URL + "/a")
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && c.Size() != 1 {
		time.Sleep(10 * time.Millisecond)
	}

	c.GetOrFetch(srv.URL + "/b")
	for time.Now().Before(deadline) && c.Get(srv.URL+"/b") == nil {
		time.Sleep(10 * time.Millisecond)
	}

	if c.Size() != 1 {
		t.Errorf("Size() = %d, want capacity-bounded 1", c.Size())
	}
	if c.Get(srv.URL+"/a") != nil {
		t.Error("expected the oldest entry to have been evicted")
	}
}

func TestServeHTTPReturnsAcceptedWhileFetchPending(t *testing.T) {
	srv := tinyPNGServer(t)
	defer srv.Close()

	c := NewCache(10)
	req := httptest.NewRequest(http.MethodGet, "/api/avatars?url="+srv.URL, nil)
	rec := httptest.NewRecorder()
	c.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Errorf("status = %d, want 202 while the fetch is still pending", rec.Code)
	}
}

func TestServeHTTPMissingURLIsBadRequest(t *testing.T) {
	c := NewCache(10)
	req := httptest.NewRequest(http.MethodGet, "/api/avatars", nil)
	rec := httptest.NewRecorder()
	c.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestServeHTTPReturnsImageOnceCached(t *testing.T) {
	srv := tinyPNGServer(t)
	defer srv.Close()

	c := NewCache(10)
	c.GetOrFetch(srv.URL)
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && c.Get(srv.URL) == nil {
		time.Sleep(10 * time.Millisecond)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/avatars?url="+srv.URL, nil)
	rec := httptest.NewRecorder()
	c.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if rec.Header().Get("Content-Type") != "image/png" {
		t.Errorf("content type = %q, want image/png", rec.Header().Get("Content-Type"))
	}
	if rec.Body.Len() == 0 {
		t.Error("expected a non-empty PNG body")
	}
}

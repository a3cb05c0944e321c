package pipeline

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"socialprobe/internal/logging"
	"socialprobe/internal/testutil"
)

func TestImageFetcher_Embed(t *testing.T) {
	gif := []byte("GIF89a\x01\x00\x01\x00\x00\x00\x00;")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/sniffed":
			w.Header().Set("Content-Type", "application/octet-stream")
			w.Write(gif)
		case "/large":
			w.Header().Set("Content-Type", "image/jpeg")
			w.Write(make([]byte, 2048))
		case "/html":
			w.Header().Set("Content-Type", "text/html")
			w.Write([]byte("<html></html>"))
		case "/slow":
			time.Sleep(200 * time.Millisecond)
			w.Write(gif)
		default:
			w.Header().Set("Content-Type", "image/jpeg; charset=binary")
			w.Write([]byte{0xff, 0xd8, 0xff})
		}
	}))
	defer srv.Close()

	fetcher := NewImageFetcher(100*time.Millisecond, 1024, logging.NewNopLogger())

	tests := []struct {
		path       string
		wantPrefix string
		wantErr    bool
	}{
		{"/pic.jpg", "data:image/jpeg;base64,", false},
		{"/sniffed", "data:image/gif;base64,", false},
		{"/large", "", true},
		{"/html", "", true},
		{"/slow", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := fetcher.Embed(context.Background(), srv.URL+tt.path)
			if tt.wantErr {
				testutil.AssertError(t, err, "Embed")
				return
			}
			testutil.AssertNoError(t, err, "Embed")
			testutil.AssertTrue(t, strings.HasPrefix(got, tt.wantPrefix), "prefix of "+got)
		})
	}
}

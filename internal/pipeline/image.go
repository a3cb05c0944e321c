package pipeline

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"socialprobe/internal/logging/types"
)

// ImageFetcher downloads profile pictures and encodes them as data URIs
type ImageFetcher struct {
	client   *http.Client
	timeout  time.Duration
	maxBytes int64
	logger   types.Logger
}

// NewImageFetcher creates an image fetcher with its own timeout and size cap
func NewImageFetcher(timeout time.Duration, maxBytes int64, logger types.Logger) *ImageFetcher {
	return &ImageFetcher{
		client:   &http.Client{Timeout: timeout},
		timeout:  timeout,
		maxBytes: maxBytes,
		logger:   logger.WithField("component", "image_fetcher"),
	}
}

// Embed fetches imageURL and returns it as a data:<mime>;base64 URI
func (f *ImageFetcher) Embed(ctx context.Context, imageURL string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create image request: %w", err)
	}
	req.Header.Set("Accept", "image/*")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("image request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("image request returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return "", fmt.Errorf("failed to read image: %w", err)
	}
	if int64(len(data)) > f.maxBytes {
		return "", fmt.Errorf("image exceeds %d bytes", f.maxBytes)
	}
	if len(data) == 0 {
		return "", fmt.Errorf("image is empty")
	}

	mimeType := imageMIME(resp.Header.Get("Content-Type"), data)
	if !strings.HasPrefix(mimeType, "image/") {
		return "", fmt.Errorf("unexpected content type %q", mimeType)
	}

	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

func imageMIME(header string, data []byte) string {
	if mediaType, _, err := mime.ParseMediaType(header); err == nil && strings.HasPrefix(mediaType, "image/") {
		return mediaType
	}
	mediaType, _, _ := mime.ParseMediaType(http.DetectContentType(data))
	return mediaType
}

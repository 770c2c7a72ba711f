// Package image decorates graph entities with artist photos and release
// covers, and probes candidate image URLs.
package image

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder
	"io"
	"net/http"
	"strconv"
	"time"

	_ "golang.org/x/image/webp" // register WebP decoder

	"github.com/sydlexius/creditgraph/internal/provider"
)

// Supported image format names.
const (
	FormatJPEG = "jpeg"
	FormatPNG  = "png"
	FormatWebP = "webp"
)

// maxProbeBytes bounds how much of a remote image is read to decode its
// header.
const maxProbeBytes = 5 << 20

// RemoteImageInfo holds dimension and size metadata of a remote image.
type RemoteImageInfo struct {
	Format   string
	Width    int
	Height   int
	FileSize int64
}

// Prober fetches candidate image URLs and decodes their headers.
type Prober struct {
	client *http.Client
}

// NewProber returns a Prober with a 10s timeout.
func NewProber() *Prober {
	return &Prober{client: &http.Client{Timeout: 10 * time.Second}}
}

// Probe fetches rawURL and decodes its format and dimensions. It also reads
// Content-Length from the response for file size.
func (p *Prober) Probe(ctx context.Context, rawURL string) (*RemoteImageInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", provider.UserAgent())

	resp, err := p.client.Do(req) //nolint:gosec // URL comes from trusted provider API
	if err != nil {
		return nil, fmt.Errorf("fetching image: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	var fileSize int64
	if cl := resp.Header.Get("Content-Length"); cl != "" {
		fileSize, _ = strconv.ParseInt(cl, 10, 64)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxProbeBytes))
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if fileSize == 0 {
		fileSize = int64(len(data))
	}

	format, replay, err := DetectFormat(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	w, h, err := GetDimensions(replay)
	if err != nil {
		return nil, fmt.Errorf("decoding dimensions: %w", err)
	}
	return &RemoteImageInfo{Format: format, Width: w, Height: h, FileSize: fileSize}, nil
}

// DetectFormat reads the first bytes from r to identify the image format.
// Returns "jpeg", "png", or "webp". The returned reader replays the consumed bytes.
func DetectFormat(r io.Reader) (format string, replay io.Reader, err error) {
	// 12 bytes covers every supported magic number.
	buf := make([]byte, 12)
	n, err := io.ReadFull(r, buf)
	if err != nil && err != io.ErrUnexpectedEOF {
		return "", nil, fmt.Errorf("reading header: %w", err)
	}
	buf = buf[:n]

	replay = io.MultiReader(bytes.NewReader(buf), r)

	if n >= 3 && buf[0] == 0xFF && buf[1] == 0xD8 && buf[2] == 0xFF {
		return FormatJPEG, replay, nil
	}
	if n >= 8 && string(buf[:8]) == "\x89PNG\r\n\x1a\n" {
		return FormatPNG, replay, nil
	}
	if n >= 12 && string(buf[:4]) == "RIFF" && string(buf[8:12]) == "WEBP" {
		return FormatWebP, replay, nil
	}

	return "", replay, fmt.Errorf("unrecognized image format")
}

// GetDimensions decodes only the image header to read width and height.
func GetDimensions(r io.Reader) (width, height int, err error) {
	cfg, _, err := image.DecodeConfig(r)
	if err != nil {
		return 0, 0, fmt.Errorf("decoding image config: %w", err)
	}
	return cfg.Width, cfg.Height, nil
}

// IsLowResolution reports whether either dimension is below minSide. Unknown
// (zero) dimensions are never low resolution.
func IsLowResolution(w, h, minSide int) bool {
	if w == 0 || h == 0 || minSide <= 0 {
		return false
	}
	return w < minSide || h < minSide
}

package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
)

// MediaInfo is what a lightweight probe learns about a clip's media.
type MediaInfo struct {
	ContentType string `json:"content_type,omitempty"`
	Size        int64  `json:"size"`
}

// OpenMedia starts streaming a clip's media bytes. The caller must close the
// reader. size is -1 when the server does not announce it.
func (c *Client) OpenMedia(ctx context.Context, mediaURL string) (io.ReadCloser, int64, error) {
	target := c.ResolveURL(mediaURL)
	if target == "" {
		return nil, 0, fmt.Errorf("open media: url is empty")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("open media: create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.media.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("open media: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, 0, statusError("open media", resp)
	}
	return resp.Body, resp.ContentLength, nil
}

// ProbeMedia fetches the first byte of the media to learn its size and type.
// A ranged GET is used instead of HEAD because presigned URLs are only valid
// for the method they were signed for.
func (c *Client) ProbeMedia(ctx context.Context, mediaURL string) (MediaInfo, error) {
	target := c.ResolveURL(mediaURL)
	if target == "" {
		return MediaInfo{}, fmt.Errorf("probe media: url is empty")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return MediaInfo{}, fmt.Errorf("probe media: create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Range", "bytes=0-0")

	resp, err := c.api.Do(req)
	if err != nil {
		return MediaInfo{}, fmt.Errorf("probe media: %w", err)
	}
	defer resp.Body.Close()

	info := MediaInfo{ContentType: resp.Header.Get("Content-Type"), Size: -1}
	switch resp.StatusCode {
	case http.StatusPartialContent:
		info.Size = parseContentRangeTotal(resp.Header.Get("Content-Range"))
	case http.StatusOK:
		info.Size = resp.ContentLength
	default:
		return MediaInfo{}, statusError("probe media", resp)
	}
	return info, nil
}

// parseContentRangeTotal extracts the total from "bytes 0-0/12345".
func parseContentRangeTotal(v string) int64 {
	i := strings.LastIndexByte(v, '/')
	if i < 0 {
		return -1
	}
	total := strings.TrimSpace(v[i+1:])
	if total == "*" {
		return -1
	}
	n, err := strconv.ParseInt(total, 10, 64)
	if err != nil || n < 0 {
		return -1
	}
	return n
}

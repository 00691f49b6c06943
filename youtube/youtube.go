// Package youtube implements the transcript service over the YouTube
// timedtext captions endpoint.
package youtube

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	autostudent "github.com/jperrello/Auto-Student"
	"golang.org/x/net/html"
)

const defaultEndpoint = "https://video.google.com/timedtext"

// ClientOptions configures a transcript client.
type ClientOptions struct {
	// Endpoint overrides the timedtext endpoint, mainly for tests.
	Endpoint string
	// Language is the caption language code. Defaults to "en".
	Language string
	// HTTPClient overrides the default HTTP client.
	HTTPClient *http.Client
}

// Client fetches video captions. It implements autostudent.TranscriptService.
type Client struct {
	endpoint string
	language string
	client   *http.Client
}

var _ autostudent.TranscriptService = (*Client)(nil)

// NewClient creates a transcript client.
func NewClient(opts ClientOptions) *Client {
	endpoint := opts.Endpoint
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	language := opts.Language
	if language == "" {
		language = "en"
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{endpoint: endpoint, language: language, client: client}
}

type timedText struct {
	XMLName xml.Name `xml:"transcript"`
	Texts   []struct {
		Start float64 `xml:"start,attr"`
		Dur   float64 `xml:"dur,attr"`
		Body  string  `xml:",chardata"`
	} `xml:"text"`
}

// Transcript retrieves the timed caption segments for one video. A video
// without captions yields autostudent.ErrNoTranscript.
func (c *Client) Transcript(ctx context.Context, videoID string) ([]autostudent.TranscriptSegment, error) {
	query := url.Values{}
	query.Set("lang", c.language)
	query.Set("v", videoID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("transcript for %s: %w", videoID, err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("transcript for %s: %w", videoID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("video %s: %w", videoID, autostudent.ErrNoTranscript)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("transcript for %s: status %d", videoID, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read transcript for %s: %w", videoID, err)
	}
	if len(data) == 0 {
		// The endpoint answers 200 with an empty body for uncaptioned
		// videos.
		return nil, fmt.Errorf("video %s: %w", videoID, autostudent.ErrNoTranscript)
	}

	var doc timedText
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse transcript for %s: %w", videoID, err)
	}
	if len(doc.Texts) == 0 {
		return nil, fmt.Errorf("video %s: %w", videoID, autostudent.ErrNoTranscript)
	}

	segments := make([]autostudent.TranscriptSegment, 0, len(doc.Texts))
	for _, text := range doc.Texts {
		segments = append(segments, autostudent.TranscriptSegment{
			Start:    secondsToDuration(text.Start),
			Duration: secondsToDuration(text.Dur),
			Text:     html.UnescapeString(text.Body),
		})
	}
	return segments, nil
}

func secondsToDuration(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}

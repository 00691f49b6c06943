package autostudent

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// ResourceFetcher retrieves and normalizes one linked resource into text.
// Its Fetch method never fails past its boundary: every problem becomes a
// FailureOutcome in the returned FetchOutcome.
type ResourceFetcher struct {
	source     ResourceSource
	retryLimit int
	logger     *zap.Logger
}

// NewResourceFetcher creates a fetcher over the given resource source.
func NewResourceFetcher(source ResourceSource, cfg *Config) *ResourceFetcher {
	return &ResourceFetcher{
		source:     source,
		retryLimit: cfg.FetchRetryLimit,
		logger:     cfg.Logger,
	}
}

// Fetch retrieves one resource and extracts its text. Transient errors are
// retried up to the configured limit with exponential backoff; permission
// denials fail immediately without retry.
func (f *ResourceFetcher) Fetch(ctx context.Context, res LinkedResource) FetchOutcome {
	if res.Kind == ResourceKindVideo {
		return NewFailureOutcome(res.ID, FailureUnsupportedFormat, "video resources are handled by the transcript enricher")
	}

	if _, err := url.ParseRequestURI(res.URL); err != nil {
		return NewFailureOutcome(res.ID, FailureFetchError, fmt.Sprintf("malformed url %q", res.URL))
	}

	var (
		data      []byte
		mediaType string
	)
	operation := func() error {
		var err error
		data, mediaType, err = f.source.Open(ctx, res)
		if err != nil {
			if errors.Is(err, ErrPermissionDenied) {
				return backoff.Permanent(err)
			}
			f.logger.Debug("resource fetch attempt failed",
				zap.String("resource", res.ID), zap.Error(err))
			return err
		}
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 250 * time.Millisecond
	bo.MaxInterval = 2 * time.Second

	err := backoff.Retry(operation, backoff.WithContext(
		backoff.WithMaxRetries(bo, uint64(f.retryLimit)), ctx))
	if err != nil {
		if errors.Is(err, ErrPermissionDenied) {
			return NewFailureOutcome(res.ID, FailureAccessDenied, err.Error())
		}
		return NewFailureOutcome(res.ID, FailureFetchError, err.Error())
	}

	text, err := extractResourceText(res.Kind, mediaType, data)
	if err != nil {
		return NewFailureOutcome(res.ID, FailureUnsupportedFormat, err.Error())
	}
	return NewContentOutcome(res.ID, text)
}

// extractResourceText dispatches on the resource kind, with the declared
// media type breaking ties for documents. Anything without a text extractor
// is rejected rather than guessed at.
func extractResourceText(kind ResourceKind, mediaType string, data []byte) (string, error) {
	mt := normalizeMediaType(mediaType)

	switch kind {
	case ResourceKindWebpage:
		return ExtractText(bytes.NewReader(data))
	case ResourceKindPlainText:
		return textFromBytes(data)
	case ResourceKindDocument:
		switch {
		case mt == "text/html":
			return ExtractText(bytes.NewReader(data))
		case strings.HasPrefix(mt, "text/"),
			mt == "application/json",
			mt == "application/xml",
			mt == "application/x-markdown":
			return textFromBytes(data)
		default:
			return "", fmt.Errorf("no text extractor for media type %q", mediaType)
		}
	default:
		return "", fmt.Errorf("unrecognized resource kind %q", kind)
	}
}

func normalizeMediaType(mediaType string) string {
	if mediaType == "" {
		return "text/plain"
	}
	mt, _, err := mime.ParseMediaType(mediaType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(mediaType))
	}
	return mt
}

func textFromBytes(data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", errors.New("content is not valid utf-8 text")
	}
	return strings.TrimSpace(string(data)), nil
}

// Package feed downloads the consolidated IRVE CSV and turns its bytes into
// text, detecting the character encoding from the content itself.
package feed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/couchcryptid/irve-station-etl/internal/domain"
	"github.com/couchcryptid/irve-station-etl/internal/observability"
	"github.com/saintfish/chardet"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/ianaindex"
)

// detectPrefix bounds how much of the body the charset detector inspects.
const detectPrefix = 256 << 10

const utf8Charset = "UTF-8"

var errInvalidUTF8 = errors.New("invalid UTF-8 byte sequence")

// Client fetches the feed over HTTP. It holds no cache; memoization is the
// snapshot store's job.
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewClient creates a feed client whose requests time out after timeout.
func NewClient(timeout time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
		metrics:    metrics,
	}
}

// Fetch performs a single GET of url and decodes the body. Transport failures
// and non-2xx statuses are reported as *domain.NetworkError.
func (c *Client) Fetch(ctx context.Context, url string) (domain.Document, error) {
	start := time.Now()
	defer func() {
		c.metrics.FeedFetchDuration.Observe(time.Since(start).Seconds())
	}()

	body, err := c.download(ctx, url)
	if err != nil {
		c.metrics.FeedFetches.WithLabelValues("network_error").Inc()
		return domain.Document{}, err
	}
	c.metrics.FeedBytes.Add(float64(len(body)))

	doc, err := Decode(body)
	if err != nil {
		c.metrics.FeedFetches.WithLabelValues("decode_error").Inc()
		return domain.Document{}, err
	}

	c.metrics.FeedFetches.WithLabelValues("success").Inc()
	c.metrics.FeedEncodings.WithLabelValues(doc.Encoding).Inc()
	c.logger.Info("feed fetched",
		"url", url,
		"bytes", doc.Bytes,
		"encoding", doc.Encoding,
		"confidence", doc.Confidence,
		"duration", time.Since(start),
	)
	return doc, nil
}

func (c *Client) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &domain.NetworkError{URL: url, Err: fmt.Errorf("create request: %w", err)}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &domain.NetworkError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10)) //nolint:errcheck // draining for connection reuse
		return nil, &domain.NetworkError{URL: url, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &domain.NetworkError{URL: url, Err: fmt.Errorf("read body: %w", err)}
	}
	return body, nil
}

// Decode detects the encoding of body and returns its text with any leading
// byte order mark removed. An empty body decodes to empty UTF-8 text.
func Decode(body []byte) (domain.Document, error) {
	if len(body) == 0 {
		return domain.Document{Encoding: utf8Charset, Confidence: 100}, nil
	}

	charset, confidence := detect(body)
	return decodeAs(body, charset, confidence)
}

func decodeAs(body []byte, charset string, confidence int) (domain.Document, error) {
	if strings.EqualFold(charset, utf8Charset) {
		if !utf8.Valid(body) {
			return domain.Document{}, &domain.DecodeError{Encoding: charset, Err: errInvalidUTF8}
		}
		return domain.Document{
			Text:       stripBOM(string(body)),
			Encoding:   utf8Charset,
			Confidence: confidence,
			Bytes:      len(body),
		}, nil
	}

	enc, err := lookup(charset)
	if err != nil {
		return domain.Document{}, &domain.DecodeError{Encoding: charset, Err: err}
	}
	text, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		return domain.Document{}, &domain.DecodeError{Encoding: charset, Err: err}
	}

	return domain.Document{
		Text:       stripBOM(string(text)),
		Encoding:   charset,
		Confidence: confidence,
		Bytes:      len(body),
	}, nil
}

// detect guesses the charset from a bounded prefix of body. When the detector
// gives up, valid UTF-8 is assumed; anything else is left to fail as UTF-8.
func detect(body []byte) (string, int) {
	sample := body
	if len(sample) > detectPrefix {
		sample = trimPartialRune(sample[:detectPrefix])
	}

	best, err := chardet.NewTextDetector().DetectBest(sample)
	if err != nil || best == nil || best.Charset == "" {
		return utf8Charset, 0
	}
	// A pure ASCII body is valid UTF-8 and the detector often labels it
	// ISO-8859-1; prefer UTF-8 so the reported encoding stays stable.
	if utf8.Valid(body) && isASCII(sample) {
		return utf8Charset, best.Confidence
	}
	return best.Charset, best.Confidence
}

func lookup(charset string) (encoding.Encoding, error) {
	if enc, err := htmlindex.Get(charset); err == nil {
		return enc, nil
	}
	enc, err := ianaindex.IANA.Encoding(charset)
	if err != nil {
		return nil, fmt.Errorf("unsupported charset: %w", err)
	}
	if enc == nil {
		return nil, fmt.Errorf("unsupported charset %q", charset)
	}
	return enc, nil
}

// trimPartialRune drops a multi-byte sequence cut by the prefix bound so the
// detector does not see a spurious invalid tail.
func trimPartialRune(b []byte) []byte {
	for i := 0; i < utf8.UTFMax && len(b) > 0; i++ {
		r, size := utf8.DecodeLastRune(b)
		if r != utf8.RuneError || size != 1 {
			return b
		}
		b = b[:len(b)-1]
	}
	return b
}

func isASCII(b []byte) bool {
	for _, c := range b {
		if c >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

func stripBOM(s string) string {
	return strings.TrimPrefix(s, "\ufeff")
}

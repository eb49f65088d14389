package feed

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/couchcryptid/irve-station-etl/internal/domain"
	"github.com/couchcryptid/irve-station-etl/internal/observability"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
)

const frenchCSV = "nom_station,implantation_station\n" +
	"Gare de Saint-Étienne Châteaucreux,Voirie\n" +
	"Hôtel de ville de Besançon,Parking public\n" +
	"Parc des expositions de Nîmes,Station dédiée à la recharge rapide\n" +
	"Médiathèque de Sète,Parking privé réservé à la clientèle\n" +
	"Centre aquatique de Sœurs-Été,Voirie\n"

func testClient() *Client {
	return NewClient(5*time.Second, slog.New(slog.NewTextHandler(io.Discard, nil)), observability.NewMetricsForTesting())
}

func latin1(t *testing.T, s string) []byte {
	t.Helper()
	out, err := charmap.Windows1252.NewEncoder().String(s)
	require.NoError(t, err)
	return []byte(out)
}

func TestClient_Fetch_UTF8(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		// A lying header must not influence detection.
		w.Header().Set("Content-Type", "text/csv; charset=iso-8859-1")
		io.WriteString(w, frenchCSV) //nolint:errcheck
	}))
	defer srv.Close()

	c := testClient()
	doc, err := c.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)

	assert.Equal(t, "UTF-8", doc.Encoding)
	assert.Equal(t, frenchCSV, doc.Text)
	assert.Equal(t, len(frenchCSV), doc.Bytes)
	assert.InDelta(t, 1, testutil.ToFloat64(c.metrics.FeedFetches.WithLabelValues("success")), 0)
	assert.InDelta(t, float64(len(frenchCSV)), testutil.ToFloat64(c.metrics.FeedBytes), 0)
}

func TestClient_Fetch_Latin1(t *testing.T) {
	body := latin1(t, strings.Repeat(frenchCSV, 4))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write(body) //nolint:errcheck
	}))
	defer srv.Close()

	doc, err := testClient().Fetch(context.Background(), srv.URL)
	require.NoError(t, err)

	assert.NotEqual(t, "UTF-8", doc.Encoding)
	assert.Contains(t, doc.Text, "Gare de Saint-Étienne Châteaucreux")
	assert.Contains(t, doc.Text, "Médiathèque de Sète")
	assert.Equal(t, len(body), doc.Bytes)
}

func TestClient_Fetch_StripsBOM(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, "\ufeff"+frenchCSV) //nolint:errcheck
	}))
	defer srv.Close()

	doc, err := testClient().Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(doc.Text, "nom_station,"))
}

func TestClient_Fetch_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := testClient()
	_, err := c.Fetch(context.Background(), srv.URL)

	var netErr *domain.NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.Equal(t, http.StatusInternalServerError, netErr.StatusCode)
	assert.Equal(t, srv.URL, netErr.URL)
	assert.True(t, domain.IsFatal(err))
	assert.InDelta(t, 1, testutil.ToFloat64(c.metrics.FeedFetches.WithLabelValues("network_error")), 0)
}

func TestClient_Fetch_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := testClient().Fetch(context.Background(), url)

	var netErr *domain.NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.Zero(t, netErr.StatusCode)
	assert.Error(t, netErr.Err)
}

func TestClient_Fetch_ContextCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, frenchCSV) //nolint:errcheck
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := testClient().Fetch(ctx, srv.URL)

	var netErr *domain.NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDecode_Empty(t *testing.T) {
	doc, err := Decode(nil)
	require.NoError(t, err)
	assert.Empty(t, doc.Text)
	assert.Equal(t, "UTF-8", doc.Encoding)
}

func TestDecodeAs_InvalidUTF8(t *testing.T) {
	_, err := decodeAs([]byte("nom_station\nSa\xffint\n"), "UTF-8", 100)

	var decErr *domain.DecodeError
	require.ErrorAs(t, err, &decErr)
	assert.Equal(t, "UTF-8", decErr.Encoding)
	assert.True(t, domain.IsFatal(err))
}

func TestDecodeAs_UnknownCharset(t *testing.T) {
	_, err := decodeAs([]byte("abc"), "x-no-such-charset", 10)

	var decErr *domain.DecodeError
	require.ErrorAs(t, err, &decErr)
	assert.Equal(t, "x-no-such-charset", decErr.Encoding)
}

func TestDecodeAs_IANAFallback(t *testing.T) {
	// Not in the WHATWG index, but registered with IANA.
	body, err := charmap.CodePage437.NewEncoder().String("Besançon")
	require.NoError(t, err)

	doc, err := decodeAs([]byte(body), "IBM437", 50)
	require.NoError(t, err)
	assert.Equal(t, "Besançon", doc.Text)
}

func TestTrimPartialRune(t *testing.T) {
	b := []byte("é")
	assert.Equal(t, []byte("ab"), trimPartialRune(append([]byte("ab"), b[0])))
	assert.Equal(t, []byte("abé"), trimPartialRune([]byte("abé")))
}

package storage

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ms-booking/internal/config"
	"ms-booking/internal/logger"
)

type recordedPut struct {
	method      string
	path        string
	contentType string
	bodyLen     int
}

func fakeS3(t *testing.T) (*httptest.Server, func() []recordedPut) {
	t.Helper()
	var mu sync.Mutex
	var puts []recordedPut

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		puts = append(puts, recordedPut{
			method:      r.Method,
			path:        r.URL.Path,
			contentType: r.Header.Get("Content-Type"),
			bodyLen:     len(body),
		})
		mu.Unlock()
		w.Header().Set("ETag", `"d41d8cd98f00b204e9800998ecf8427e"`)
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	return srv, func() []recordedPut {
		mu.Lock()
		defer mu.Unlock()
		return append([]recordedPut(nil), puts...)
	}
}

func newTestStorage(t *testing.T, endpoint, publicURL string) *S3Storage {
	t.Helper()
	var buf bytes.Buffer
	s, err := NewS3Storage(context.Background(), config.StorageConfig{
		Bucket:        "ticket-bucket",
		Region:        "us-east-1",
		Endpoint:      endpoint,
		AccessKey:     "test-access",
		SecretKey:     "test-secret",
		PublicBaseURL: publicURL,
		TicketPrefix:  "tickets",
	}, logger.NewWithWriter(&buf, "debug"))
	require.NoError(t, err)
	return s
}

func TestUploadTicketPutsObjectAtTicketKey(t *testing.T) {
	srv, recorded := fakeS3(t)
	s := newTestStorage(t, srv.URL, "https://cdn.example.com")

	pdf := []byte("%PDF-1.4 fake ticket")
	url, err := s.UploadTicket(context.Background(), "booking-1", pdf)
	require.NoError(t, err)

	assert.Equal(t, "https://cdn.example.com/tickets/booking-1.pdf", url)

	puts := recorded()
	require.Len(t, puts, 1)
	assert.Equal(t, http.MethodPut, puts[0].method)
	assert.Equal(t, "/ticket-bucket/tickets/booking-1.pdf", puts[0].path)
	assert.Equal(t, "application/pdf", puts[0].contentType)
}

func TestURLFallbacks(t *testing.T) {
	withEndpoint := newTestStorage(t, "http://minio:9000/", "")
	assert.Equal(t, "http://minio:9000/ticket-bucket/tickets/b.pdf", withEndpoint.URL("tickets/b.pdf"))

	awsStyle := newTestStorage(t, "", "")
	assert.Equal(t, "https://ticket-bucket.s3.us-east-1.amazonaws.com/tickets/b.pdf", awsStyle.URL("/tickets/b.pdf"))
}

func TestNewS3StorageRequiresBucket(t *testing.T) {
	var buf bytes.Buffer
	_, err := NewS3Storage(context.Background(), config.StorageConfig{}, logger.NewWithWriter(&buf, "info"))
	assert.Error(t, err)
}

package transcriber

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecognize(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/transcriptions", r.URL.Path)
		assert.Equal(t, "ar", r.URL.Query().Get("language"))
		assert.Equal(t, "secret", r.Header.Get("x-api-key"))

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "chunk.wav", header.Filename)
		body, _ := io.ReadAll(file)
		assert.Equal(t, "RIFF....WAVE", string(body))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"text":"بسم الله","is_final":true}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret")
	tr, err := c.Recognize(context.Background(), strings.NewReader("RIFF....WAVE"))
	require.NoError(t, err)
	assert.Equal(t, "بسم الله", tr.Text)
	assert.True(t, tr.Final)
}

func TestRecognize_APIError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "").Recognize(context.Background(), strings.NewReader("x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 503")
	assert.Contains(t, err.Error(), "model not loaded")
}

func TestRecognize_BadJSON(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "").Recognize(context.Background(), strings.NewReader("x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode response")
}

func TestRecognize_Timeout(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	_, err := NewClient(srv.URL, "", WithTimeout(50*time.Millisecond)).
		Recognize(context.Background(), strings.NewReader("x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "send request")
}

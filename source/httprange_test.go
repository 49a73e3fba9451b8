package source

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
)

func rangeServer(t *testing.T, body []byte) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.Header().Set("Content-Length", strconv.Itoa(len(body)))
			w.WriteHeader(http.StatusOK)
			return
		}

		rangeHeader := r.Header.Get("Range")
		require.NotEmpty(t, rangeHeader)
		var start, end int
		_, err := fmt.Sscanf(rangeHeader, "bytes=%d-%d", &start, &end)
		require.NoError(t, err)

		w.WriteHeader(http.StatusPartialContent)
		_, _ = w.Write(body[start : end+1])
	}))
}

func TestHTTPRangeSourceSize(t *testing.T) {
	srv := rangeServer(t, []byte("0123456789"))
	defer srv.Close()

	s := OpenHTTPRange(srv.URL, nil)
	size, err := s.Size(context.Background())
	require.NoError(t, err)
	require.Equal(t, uint64(10), size)
}

func TestHTTPRangeSourceRead(t *testing.T) {
	srv := rangeServer(t, []byte("0123456789"))
	defer srv.Close()

	s := OpenHTTPRange(srv.URL, nil)
	got, err := s.Read(context.Background(), 2, 5)
	require.NoError(t, err)
	require.Equal(t, []byte("23456"), got)
}

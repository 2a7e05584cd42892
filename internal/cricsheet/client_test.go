package cricsheet

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArchiveFile(t *testing.T) {
	assert.Equal(t, "t20s_json.zip", ArchiveFile("t20s"))
	assert.Equal(t, "bbl_json.zip", ArchiveFile("bbl"))
	assert.Equal(t, "custom.zip", ArchiveFile("custom.zip"))
}

func TestDownload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ipl_json.zip" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("PK fake archive"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	c := NewClient(srv.URL + "/")
	path, err := c.Download(context.Background(), "ipl", dir)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "PK fake archive", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary file is cleaned up")

	_, err = c.Download(context.Background(), "missing", dir)
	assert.ErrorContains(t, err, "HTTP 404")
}

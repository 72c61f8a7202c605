package fetch_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/refaktor/vkgen/fetch"
	"github.com/refaktor/vkgen/registry/registrytest"
)

func serve(t *testing.T, status int, body string) *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestGet(t *testing.T) {
	require := require.New(t)
	srv := serve(t, http.StatusOK, registrytest.XML)
	reg := &fetch.Registry{
		URL:     srv.URL + "/vk.xml",
		Dest:    filepath.Join(t.TempDir(), "xml", "vk.xml"),
		Options: registrytest.Options,
	}

	have, err := reg.Have()
	require.NoError(err)
	require.False(have)

	require.NoError(reg.Get(context.Background()))
	data, err := os.ReadFile(reg.Dest)
	require.NoError(err)
	require.Equal(registrytest.XML, string(data))
	require.NoFileExists(reg.Dest + fetch.LockSuffix)

	entries, err := os.ReadDir(filepath.Dir(reg.Dest))
	require.NoError(err)
	require.Len(entries, 1)

	have, err = reg.Have()
	require.NoError(err)
	require.True(have)
}

func TestIncomplete(t *testing.T) {
	require := require.New(t)
	dest := filepath.Join(t.TempDir(), "vk.xml")
	require.NoError(os.WriteFile(dest, []byte("<registry>"), 0666))
	require.NoError(os.WriteFile(dest+fetch.LockSuffix, nil, 0666))

	have, err := (&fetch.Registry{Dest: dest}).Have()
	require.NoError(err)
	require.False(have)
}

func TestGetErrors(t *testing.T) {
	for _, tc := range []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{"not found", http.StatusNotFound, "no such file", "404 Not Found: no such file"},
		{"server error", http.StatusInternalServerError, "", "500 Internal Server Error"},
		{"not a registry", http.StatusOK, "<html></html>", "expected root element <registry>"},
		// Entries defined once per API clash without an exclusion.
		{"api duplicates", http.StatusOK, registrytest.XML, `schema: <type "VkCommandPool">: duplicate definition`},
	} {
		t.Run(tc.name, func(t *testing.T) {
			require := require.New(t)
			dest := filepath.Join(t.TempDir(), "vk.xml")
			require.NoError(os.WriteFile(dest, []byte("old"), 0666))

			srv := serve(t, tc.status, tc.body)
			err := (&fetch.Registry{URL: srv.URL, Dest: dest}).Get(context.Background())
			require.ErrorContains(err, tc.wantErr)

			// The previous copy is left alone.
			data, err := os.ReadFile(dest)
			require.NoError(err)
			require.Equal("old", string(data))
			require.NoFileExists(dest + fetch.LockSuffix)
		})
	}
}

func TestGetCanceled(t *testing.T) {
	srv := serve(t, http.StatusOK, registrytest.XML)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	reg := &fetch.Registry{URL: srv.URL, Dest: filepath.Join(t.TempDir(), "vk.xml"), Options: registrytest.Options}
	err := reg.Get(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

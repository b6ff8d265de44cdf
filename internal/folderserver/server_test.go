package folderserver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sharingconfigs/sharingconfigs/internal/logging"
	"github.com/sharingconfigs/sharingconfigs/internal/storage"
	"github.com/sharingconfigs/sharingconfigs/internal/storage/memory"
	"github.com/sharingconfigs/sharingconfigs/pkg/client"
	"github.com/sharingconfigs/sharingconfigs/pkg/models"
	"github.com/sharingconfigs/sharingconfigs/pkg/protocol"
	"github.com/sharingconfigs/sharingconfigs/pkg/tree"
)

func TestMain(m *testing.M) {
	if err := logging.Init(logging.Config{Level: "error", Format: "json"}); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func newTestServer(t *testing.T) (*httptest.Server, *client.Client) {
	t.Helper()
	srv, err := New(Config{
		Label:   "acme",
		Token:   "secret",
		Folders: DemoFolders(),
		Storage: storage.Instrument(memory.New()),
	})
	require.NoError(t, err)
	require.NoError(t, srv.Init(context.Background()))

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	c, err := client.New(client.Config{Endpoint: ts.URL, Label: "acme", Token: "secret"})
	require.NoError(t, err)
	return ts, c
}

func TestNew_InvalidConfig(t *testing.T) {
	backend := memory.New()

	t.Run("missing token", func(t *testing.T) {
		_, err := New(Config{Label: "acme", Storage: backend})
		assert.Error(t, err)
	})

	t.Run("missing storage", func(t *testing.T) {
		_, err := New(Config{Label: "acme", Token: "t"})
		assert.Error(t, err)
	})

	t.Run("duplicate folder names", func(t *testing.T) {
		_, err := New(Config{Label: "acme", Token: "t", Storage: backend, Folders: []Folder{
			{Name: "a", Children: []Folder{{Name: "b"}}},
			{Name: "b"},
		}})
		require.Error(t, err)
		assert.Contains(t, err.Error(), `duplicate folder name "b"`)
	})

	t.Run("empty folder name", func(t *testing.T) {
		_, err := New(Config{Label: "acme", Token: "t", Storage: backend, Folders: []Folder{{Name: ""}}})
		assert.Error(t, err)
	})
}

func TestListFolders(t *testing.T) {
	_, c := newTestServer(t)
	ctx := context.Background()

	t.Run("all folders", func(t *testing.T) {
		resp, err := c.ListFolders(ctx, protocol.PermissionNone)
		require.NoError(t, err)
		assert.Equal(t, 2, resp.Count)
		assert.Equal(t,
			[]string{"shared", "reports", "templates", "drafts", "archive"},
			tree.FlattenNames(resp.Results))
	})

	t.Run("read is unfiltered", func(t *testing.T) {
		resp, err := c.ListFolders(ctx, protocol.PermissionRead)
		require.NoError(t, err)
		assert.Equal(t, 5, tree.CountNodes(resp.Results))
	})

	t.Run("write keeps writable folders and their ancestors", func(t *testing.T) {
		resp, err := c.ListFolders(ctx, protocol.PermissionWrite)
		require.NoError(t, err)
		assert.Equal(t,
			[]string{"shared", "reports", "templates", "drafts"},
			tree.FlattenNames(resp.Results))
	})

	t.Run("leaf children decode as empty", func(t *testing.T) {
		resp, err := c.ListFolders(ctx, protocol.PermissionNone)
		require.NoError(t, err)
		archive, ok := tree.FindByName(resp.Results, "archive")
		require.True(t, ok)
		assert.NotNil(t, archive.Children)
		assert.Empty(t, archive.Children)
	})
}

func TestListFolders_UnknownPermission(t *testing.T) {
	ts, _ := newTestServer(t)

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/acme/folder/?permission=admin", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Token secret")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAuthentication(t *testing.T) {
	ts, _ := newTestServer(t)
	ctx := context.Background()

	t.Run("wrong token", func(t *testing.T) {
		c, err := client.New(client.Config{Endpoint: ts.URL, Label: "acme", Token: "wrong"})
		require.NoError(t, err)

		_, err = c.ListFolders(ctx, protocol.PermissionNone)
		apiErr, ok := client.AsAPIError(err)
		require.True(t, ok, "expected APIError, got %v", err)
		assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
		assert.Equal(t, "Invalid token.", apiErr.Detail)
		assert.Equal(t, client.ReasonNoFolders, apiErr.Reason)
	})

	t.Run("wrong scheme", func(t *testing.T) {
		c, err := client.New(client.Config{Endpoint: ts.URL, Label: "acme", Token: "secret", AuthScheme: "Bearer"})
		require.NoError(t, err)

		_, err = c.ListFolders(ctx, protocol.PermissionNone)
		apiErr, ok := client.AsAPIError(err)
		require.True(t, ok)
		assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	})

	t.Run("unknown label", func(t *testing.T) {
		c, err := client.New(client.Config{Endpoint: ts.URL, Label: "other", Token: "secret"})
		require.NoError(t, err)

		_, err = c.ListFiles(ctx, "reports")
		apiErr, ok := client.AsAPIError(err)
		require.True(t, ok)
		assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
		assert.Equal(t, client.ReasonNoFiles, apiErr.Reason)
	})
}

func TestExportImportRoundTrip(t *testing.T) {
	_, c := newTestServer(t)
	ctx := context.Background()
	content := []byte(`{"theme":"dark"}`)

	exported, err := c.ExportFile(ctx, "reports", models.NewExportPayload("settings.json", content, "alice", false))
	require.NoError(t, err)
	assert.Equal(t, "settings.json", exported.Filename)
	assert.True(t, strings.HasSuffix(exported.DownloadURL, "/"), "download url %q", exported.DownloadURL)

	t.Run("import returns raw bytes", func(t *testing.T) {
		data, err := c.ImportFile(ctx, "reports", "settings.json")
		require.NoError(t, err)
		assert.Equal(t, content, data)
	})

	t.Run("listing shows the file", func(t *testing.T) {
		files, err := c.ListFiles(ctx, "reports")
		require.NoError(t, err)
		require.Equal(t, 1, files.Count)
		assert.Equal(t, "settings.json", files.Results[0].Filename)
		assert.Equal(t, exported.DownloadURL, files.Results[0].DownloadURL)
	})

	t.Run("download link serves the content without auth", func(t *testing.T) {
		data, err := c.DownloadFile(ctx, exported.DownloadURL)
		require.NoError(t, err)
		assert.Equal(t, content, data)
	})

	t.Run("conflict without overwrite", func(t *testing.T) {
		_, err := c.ExportFile(ctx, "reports", models.NewExportPayload("settings.json", []byte("v2"), "bob", false))
		apiErr, ok := client.AsAPIError(err)
		require.True(t, ok)
		assert.Equal(t, http.StatusConflict, apiErr.StatusCode)
		assert.Equal(t, client.ReasonExportFailed, apiErr.Reason)
	})

	t.Run("overwrite replaces content", func(t *testing.T) {
		_, err := c.ExportFile(ctx, "reports", models.NewExportPayload("settings.json", []byte("v2"), "bob", true))
		require.NoError(t, err)

		data, err := c.ImportFile(ctx, "reports", "settings.json")
		require.NoError(t, err)
		assert.Equal(t, []byte("v2"), data)
	})
}

func TestExportErrors(t *testing.T) {
	_, c := newTestServer(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		folder  string
		payload models.ExportPayload
		status  int
	}{
		{"read-only folder", "archive", models.NewExportPayload("a.txt", []byte("a"), "", false), http.StatusForbidden},
		{"unknown folder", "missing", models.NewExportPayload("a.txt", []byte("a"), "", false), http.StatusNotFound},
		{"empty filename", "reports", models.NewExportPayload("", []byte("a"), "", false), http.StatusBadRequest},
		{"bad base64", "reports", models.ExportPayload{Filename: "a.txt", Content: "!!!"}, http.StatusBadRequest},
		{"nested filename", "reports", models.NewExportPayload("x/y.txt", []byte("a"), "", false), http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := c.ExportFile(ctx, tt.folder, tt.payload)
			assert.Nil(t, resp)
			apiErr, ok := client.AsAPIError(err)
			require.True(t, ok, "expected APIError, got %v", err)
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.NotEmpty(t, apiErr.Detail)
		})
	}
}

func TestImportMissing(t *testing.T) {
	_, c := newTestServer(t)
	ctx := context.Background()

	data, err := c.ImportFile(ctx, "reports", "nope.json")
	assert.Nil(t, data)
	apiErr, ok := client.AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, client.ReasonImportFailed, apiErr.Reason)

	_, err = c.ListFiles(ctx, "nowhere")
	apiErr, ok = client.AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
}

func TestEscapedFolderNames(t *testing.T) {
	srv, err := New(Config{
		Label:   "acme",
		Token:   "secret",
		Folders: []Folder{{Name: "my folder", Writable: true}, {Name: "a/b", Writable: true}},
		Storage: memory.New(),
	})
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	c, err := client.New(client.Config{Endpoint: ts.URL, Label: "acme", Token: "secret"})
	require.NoError(t, err)
	ctx := context.Background()

	for _, folder := range []string{"my folder", "a/b"} {
		t.Run(folder, func(t *testing.T) {
			_, err := c.ExportFile(ctx, folder, models.NewExportPayload("f.txt", []byte(folder), "", false))
			require.NoError(t, err)

			data, err := c.ImportFile(ctx, folder, "f.txt")
			require.NoError(t, err)
			assert.Equal(t, folder, string(data))

			files, err := c.ListFiles(ctx, folder)
			require.NoError(t, err)
			assert.Equal(t, 1, files.Count)
		})
	}
}

func TestDownloadUnknownToken(t *testing.T) {
	ts, c := newTestServer(t)

	_, err := c.DownloadFile(context.Background(), ts.URL+"/download/00000000-0000-0000-0000-000000000000/")
	apiErr, ok := client.AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, client.ReasonDownloadFailed, apiErr.Reason)
}

func TestHealth(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}

func TestPublicURL(t *testing.T) {
	srv, err := New(Config{
		Label:     "acme",
		Token:     "secret",
		PublicURL: "https://files.example.com/base",
		Folders:   []Folder{{Name: "reports", Writable: true}},
		Storage:   memory.New(),
	})
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	c, err := client.New(client.Config{Endpoint: ts.URL, Label: "acme", Token: "secret"})
	require.NoError(t, err)

	resp, err := c.ExportFile(context.Background(), "reports", models.NewExportPayload("a.txt", []byte("a"), "", false))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(resp.DownloadURL, "https://files.example.com/base/download/"), resp.DownloadURL)
}

func TestLoadFolders(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tree.json")
	data := `[{"name":"ops","writable":true,"children":[{"name":"runbooks"}]},{"name":"docs"}]`
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	folders, err := LoadFolders(path)
	require.NoError(t, err)
	require.Len(t, folders, 2)
	assert.True(t, folders[0].Writable)
	assert.Equal(t, "runbooks", folders[0].Children[0].Name)

	_, err = LoadFolders(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}

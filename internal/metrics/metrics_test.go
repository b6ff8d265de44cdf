package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestHandlerExposesRecordedMetrics(t *testing.T) {
	RecordClientRequest("list_folders", true, 20*time.Millisecond)
	RecordClientRequest("import_file", false, time.Millisecond)
	RecordTransfer(DirectionImport, 128)
	RecordHTTPRequest(http.MethodGet, "/{label}/folder/*", http.StatusOK, time.Millisecond)
	SetStoredFiles(3)
	RecordStorageOperation("memory", "put_object", time.Millisecond, true)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	out := string(body)

	for _, want := range []string{
		`sharingconfigs_client_requests_total{operation="list_folders",outcome="success"}`,
		`sharingconfigs_client_requests_total{operation="import_file",outcome="error"}`,
		`sharingconfigs_client_transfer_bytes_total{direction="import"} 128`,
		`sharingconfigs_http_requests_total{method="GET",route="/{label}/folder/*",status="200"}`,
		`sharingconfigs_stored_files 3`,
		`sharingconfigs_storage_operations_total{backend="memory",operation="put_object",status="success"}`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("metrics output missing %s", want)
		}
	}
}

package web

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/JonMunkholm/labreport/internal/config"
	"github.com/JonMunkholm/labreport/internal/core"
	"github.com/JonMunkholm/labreport/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/text/encoding/charmap"
)

type memStore struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

func (m *memStore) Load(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.blobs[key]
	if !ok {
		return nil, core.ErrStateNotFound
	}
	return b, nil
}

func (m *memStore) Save(_ context.Context, key string, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[key] = payload
	return nil
}

func (m *memStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.blobs[key]; !ok {
		return core.ErrStateNotFound
	}
	delete(m.blobs, key)
	return nil
}

func newTestServer(t *testing.T, mutate func(*config.Config), opts Options) *Server {
	t.Helper()
	cfg := config.Defaults()
	cfg.Rate.Enabled = false
	if mutate != nil {
		mutate(cfg)
	}
	svc := core.NewService(&memStore{blobs: make(map[string][]byte)}, cfg, opts.Metrics)
	return NewServer(svc, cfg, opts)
}

const labExport = "Export Laborsystem\r\n" +
	"Serie,Probe,Datum,Wdh,Ort,Prüfer,Status,ICCa2.1,M3.TIT,Ionenbilanz Quotient\r\n" +
	"S1,P1,,1,,,,10,\"7,1\",\"1,0\"\r\n" +
	"S1,P2,,1,,,,11,\"7,2\",\"1,3\"\r\n"

func uploadRequest(t *testing.T, name, content string) *http.Request {
	t.Helper()
	encoded, err := charmap.Windows1252.NewEncoder().String(content)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	var body bytes.Buffer
	mpw := multipart.NewWriter(&body)
	part, err := mpw.CreateFormFile("file", name)
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	part.Write([]byte(encoded))
	mpw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/dataset", &body)
	req.Header.Set("Content-Type", mpw.FormDataContentType())
	return req
}

func do(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func call(s *Server, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	return do(s, req)
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %s: %v", rec.Body.String(), err)
	}
	return v
}

func loadExport(t *testing.T, s *Server) {
	t.Helper()
	rec := do(s, uploadRequest(t, "export.csv", labExport))
	if rec.Code != http.StatusCreated {
		t.Fatalf("upload status = %d: %s", rec.Code, rec.Body.String())
	}
}

func TestAPI_ErrorsBeforeUpload(t *testing.T) {
	s := newTestServer(t, nil, Options{})

	for _, path := range []string{"/api/report", "/api/dataset", "/api/ionbalance", "/api/export/report.xlsx"} {
		rec := call(s, http.MethodGet, path, "")
		if rec.Code != http.StatusNotFound {
			t.Errorf("%s: status = %d, want 404", path, rec.Code)
			continue
		}
		if resp := decode[ErrorResponse](t, rec); resp.Code != "SEL001" {
			t.Errorf("%s: code = %q, want SEL001", path, resp.Code)
		}
	}
}

func TestAPI_Upload(t *testing.T) {
	s := newTestServer(t, nil, Options{})

	rec := do(s, uploadRequest(t, "export.csv", labExport))
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	resp := decode[uploadResponse](t, rec)
	if resp.Rows != 2 || resp.Headers != 3 || resp.FileName != "export.csv" {
		t.Errorf("response = %+v", resp)
	}
	if len(resp.MissingColumns) == 0 {
		t.Error("missing ion-balance columns should be reported")
	}
	if resp.Generation != s.service.Generation().String() {
		t.Errorf("generation = %q, want the installed %q", resp.Generation, s.service.Generation())
	}

	rec = do(s, uploadRequest(t, "kaputt.csv", "nur eine Zeile\r\n"))
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("bad file status = %d", rec.Code)
	}
	if resp := decode[ErrorResponse](t, rec); resp.Code != "ING002" {
		t.Errorf("bad file code = %q", resp.Code)
	}

	ds := decode[core.ParsedDataset](t, call(s, http.MethodGet, "/api/dataset", ""))
	if ds.FileName != "export.csv" {
		t.Errorf("failed upload replaced the dataset: %q", ds.FileName)
	}
}

func TestAPI_UploadWithoutFile(t *testing.T) {
	s := newTestServer(t, nil, Options{})

	var body bytes.Buffer
	mpw := multipart.NewWriter(&body)
	mpw.WriteField("note", "x")
	mpw.Close()
	req := httptest.NewRequest(http.MethodPost, "/api/dataset", &body)
	req.Header.Set("Content-Type", mpw.FormDataContentType())

	rec := do(s, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	if resp := decode[ErrorResponse](t, rec); resp.Code != "FILE002" {
		t.Errorf("code = %q, want FILE002", resp.Code)
	}
}

func TestAPI_SelectionAndReport(t *testing.T) {
	s := newTestServer(t, nil, Options{})
	loadExport(t, s)

	rec := call(s, http.MethodPost, "/api/selection/rows/toggle-all", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("toggle-all status = %d", rec.Code)
	}
	sel := decode[core.SelectionState](t, rec)
	if !sel.IsSelected(2) || !sel.IsSelected(3) {
		t.Errorf("selection = %+v", sel.SelectedRowIDs)
	}

	sel = decode[core.SelectionState](t, call(s, http.MethodPost, "/api/selection/rows/2/params/ICCa/toggle", ""))
	if sel.Params(2).Has("ICCa") {
		t.Error("ICCa should be inactive in row 2")
	}

	sel = decode[core.SelectionState](t, call(s, http.MethodPost, "/api/selection/rows/3/groups/pH-LF-TIT/toggle", ""))
	if sel.Params(3).Has("M3.TIT") {
		t.Error("pH group should be off in row 3")
	}

	errorTests := []struct {
		path   string
		status int
		code   string
	}{
		{"/api/selection/rows/abc/toggle", http.StatusNotFound, "SEL002"},
		{"/api/selection/rows/99/toggle", http.StatusNotFound, "SEL002"},
		{"/api/selection/rows/2/sets/K", http.StatusBadRequest, "SEL003"},
		{"/api/selection/rows/2/groups/XRF/toggle", http.StatusBadRequest, "SEL003"},
	}
	for _, tt := range errorTests {
		rec := call(s, http.MethodPost, tt.path, "")
		if rec.Code != tt.status {
			t.Errorf("%s: status = %d, want %d", tt.path, rec.Code, tt.status)
			continue
		}
		if resp := decode[ErrorResponse](t, rec); resp.Code != tt.code {
			t.Errorf("%s: code = %q, want %q", tt.path, resp.Code, tt.code)
		}
	}

	rec = call(s, http.MethodPut, "/api/comments/2", `{"comment":"geprüft"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("comment status = %d", rec.Code)
	}
	if c := decode[commentResponse](t, rec); c.Comment != "geprüft" {
		t.Errorf("comment = %+v", c)
	}

	report := decode[reportResponse](t, call(s, http.MethodGet, "/api/report", ""))
	if len(report.Rows) != 2 || len(report.Legend) != len(core.Legend) {
		t.Errorf("report rows = %d, legend = %d", len(report.Rows), len(report.Legend))
	}
	if report.Rows[0].Comment != "geprüft" {
		t.Errorf("row comment = %q", report.Rows[0].Comment)
	}

	groups := decode[[]core.ParamGroup](t, call(s, http.MethodGet, "/api/rows/2/params", ""))
	if len(groups) == 0 || groups[0].Group != core.GroupPHLFTIT {
		t.Errorf("param groups = %+v", groups)
	}
}

func TestAPI_Exports(t *testing.T) {
	s := newTestServer(t, nil, Options{})
	loadExport(t, s)
	call(s, http.MethodPost, "/api/selection/rows/toggle-all", "")

	rec := call(s, http.MethodGet, "/api/export/ionbalance.csv", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("csv status = %d: %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("Content-Disposition"); !strings.Contains(got, "export_ionenbilanz.csv") {
		t.Errorf("disposition = %q", got)
	}
	if !strings.HasPrefix(rec.Body.String(), "\uFEFFSerie;") {
		t.Errorf("csv body = %q", rec.Body.String())
	}

	rec = call(s, http.MethodGet, "/api/export/report.xlsx", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("xlsx status = %d: %s", rec.Code, rec.Body.String())
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("PK")) {
		t.Error("xlsx body is not a zip archive")
	}
	if got := rec.Header().Get("Content-Type"); !strings.Contains(got, "spreadsheetml") {
		t.Errorf("content type = %q", got)
	}
}

func TestAPI_StateRoundTrip(t *testing.T) {
	s := newTestServer(t, nil, Options{})
	loadExport(t, s)
	call(s, http.MethodPost, "/api/selection/rows/2/toggle", "")

	if rec := call(s, http.MethodPost, "/api/state/save", ""); rec.Code != http.StatusOK {
		t.Fatalf("save status = %d", rec.Code)
	}

	state := call(s, http.MethodGet, "/api/state", "").Body.String()
	if !strings.Contains(state, `"selectedRowIds":[2]`) {
		t.Errorf("state = %s", state)
	}

	// Import the state back under a new generation.
	rec := call(s, http.MethodPost, "/api/state", state)
	if rec.Code != http.StatusOK {
		t.Fatalf("import status = %d: %s", rec.Code, rec.Body.String())
	}

	if rec := call(s, http.MethodPost, "/api/state/restore", ""); rec.Code != http.StatusOK {
		t.Errorf("restore status = %d", rec.Code)
	}
	if rec := call(s, http.MethodDelete, "/api/state", ""); rec.Code != http.StatusNoContent {
		t.Errorf("clear status = %d", rec.Code)
	}

	rec = call(s, http.MethodPost, "/api/state/restore", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("restore after clear status = %d", rec.Code)
	}
	if resp := decode[ErrorResponse](t, rec); resp.Code != "STO001" {
		t.Errorf("code = %q", resp.Code)
	}

	if rec := call(s, http.MethodPost, "/api/state", `{"comments":{}}`); rec.Code != http.StatusBadRequest {
		t.Errorf("import without dataset status = %d", rec.Code)
	}
}

func TestAPI_APIKey(t *testing.T) {
	s := newTestServer(t, func(c *config.Config) {
		c.Security.RequireAPIKey = true
		c.Security.APIKeys = []string{"geheim"}
	}, Options{})

	if rec := call(s, http.MethodGet, "/api/report", ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("no key: status = %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/report", nil)
	req.Header.Set("X-API-Key", "falsch")
	if rec := do(s, req); rec.Code != http.StatusForbidden {
		t.Errorf("wrong key: status = %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/report", nil)
	req.Header.Set("Authorization", "Bearer geheim")
	if rec := do(s, req); rec.Code != http.StatusNotFound {
		t.Errorf("valid key: status = %d, want 404 from the handler", rec.Code)
	}

	if rec := call(s, http.MethodGet, "/healthz", ""); rec.Code != http.StatusOK {
		t.Errorf("healthz should not need a key: %d", rec.Code)
	}
}

func TestAPI_HealthAndMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	pingErr := error(nil)
	s := newTestServer(t, nil, Options{
		Metrics:  metrics.New(reg),
		Gatherer: reg,
		Ping:     func(context.Context) error { return pingErr },
	})

	rec := call(s, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz status = %d", rec.Code)
	}
	health := decode[map[string]any](t, rec)
	if health["datasetLoaded"] != false || health["database"] != "ok" {
		t.Errorf("health = %v", health)
	}

	pingErr = context.DeadlineExceeded
	if rec := call(s, http.MethodGet, "/healthz", ""); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("degraded healthz status = %d", rec.Code)
	}

	body := call(s, http.MethodGet, "/metrics", "").Body.String()
	if !strings.Contains(body, `labreport_http_requests_total{method="GET",route="/healthz",status_code="200"} 1`) {
		t.Errorf("metrics output lacks healthz request:\n%s", body)
	}
}

func TestRateLimiter(t *testing.T) {
	rl := newRateLimiter(2, time.Minute)

	if !rl.allow("10.0.0.1") || !rl.allow("10.0.0.1") {
		t.Fatal("first two requests should pass")
	}
	if rl.allow("10.0.0.1") {
		t.Error("third request in the window should be limited")
	}
	if !rl.allow("10.0.0.2") {
		t.Error("other clients are counted separately")
	}
}

func TestAPI_RateLimited(t *testing.T) {
	s := newTestServer(t, func(c *config.Config) {
		c.Rate.Enabled = true
		c.Rate.RequestsPerMinute = 1
	}, Options{})

	call(s, http.MethodGet, "/api/report", "")
	rec := call(s, http.MethodGet, "/api/report", "")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d", rec.Code)
	}
	if resp := decode[ErrorResponse](t, rec); resp.Code != "RATE001" {
		t.Errorf("code = %q", resp.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("Retry-After should be set")
	}
}

func TestExportName(t *testing.T) {
	tests := []struct {
		source, want string
	}{
		{"Messung März.csv", "Messung März_auswertung.xlsx"},
		{"", "labor_auswertung.xlsx"},
	}
	for _, tt := range tests {
		if got := exportName(tt.source, "auswertung", ".xlsx"); got != tt.want {
			t.Errorf("exportName(%q) = %q, want %q", tt.source, got, tt.want)
		}
	}
}

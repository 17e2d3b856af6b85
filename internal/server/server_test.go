package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/rabbitmq/amqp091-go"

	"github.com/OFFIS-RIT/consistency-vis/backend/internal/queue"
	mid "github.com/OFFIS-RIT/consistency-vis/backend/internal/server/middleware"
	serverutil "github.com/OFFIS-RIT/consistency-vis/backend/internal/server/util"
	"github.com/OFFIS-RIT/consistency-vis/backend/internal/storage"
	"github.com/OFFIS-RIT/consistency-vis/backend/pkg/ai"
	"github.com/OFFIS-RIT/consistency-vis/backend/pkg/common"
	loaderio "github.com/OFFIS-RIT/consistency-vis/backend/pkg/loader/io"
	"github.com/OFFIS-RIT/consistency-vis/backend/pkg/store/memory"
	"github.com/OFFIS-RIT/consistency-vis/backend/pkg/wordgraph"
)

const (
	masterKey = "master-secret"
	jwtSecret = "jwt-secret"
)

type fakeChannel struct {
	mu        sync.Mutex
	published []amqp091.Publishing
}

func (c *fakeChannel) QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp091.Table) (amqp091.Queue, error) {
	return amqp091.Queue{Name: name}, nil
}

func (c *fakeChannel) Publish(exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.published = append(c.published, msg)
	return nil
}

type fakeSampler struct {
	prompt string
	n      int
	opts   ai.GenerateOptions
}

func (s *fakeSampler) Sample(ctx context.Context, prompt string, n int, opts ...ai.GenerateOption) ([]string, error) {
	if err := ai.ValidateSampleRequest(prompt, n); err != nil {
		return nil, err
	}
	s.prompt, s.n = prompt, n
	s.opts = ai.ApplyOptions(ai.GenerateOptions{}, opts...)
	out := make([]string, n)
	for i := range out {
		out[i] = "the ocean is blue"
	}
	return out, nil
}

func (s *fakeSampler) GetMetrics() ai.ModelMetrics { return ai.ModelMetrics{} }
func (s *fakeSampler) ResetMetrics()               {}

type testApp struct {
	app       *mid.App
	e         *echo.Echo
	channel   *fakeChannel
	sampler   *fakeSampler
	objects   *storage.MemoryStore
	importDir string
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	return newTestAppWithConfig(t, wordgraph.DefaultConfig())
}

func newTestAppWithConfig(t *testing.T, cfg wordgraph.Config) *testApp {
	t.Helper()
	builder, err := wordgraph.NewBuilder(cfg)
	if err != nil {
		t.Fatalf("NewBuilder: %v", err)
	}
	sessions := serverutil.NewSessionRegistry(builder, 0)
	t.Cleanup(sessions.Close)

	ta := &testApp{
		channel:   &fakeChannel{},
		sampler:   &fakeSampler{},
		objects:   storage.NewMemoryStore("http://files.test/files"),
		importDir: t.TempDir(),
	}
	ta.app = &mid.App{
		Store:          memory.NewDatasetMemoryStorage(),
		Objects:        ta.objects,
		Importer:       loaderio.NewIODatasetLoader(ta.importDir),
		Queue:          ta.channel,
		Sampler:        ta.sampler,
		Key:            func(*jwt.Token) (any, error) { return []byte(jwtSecret), nil },
		Builder:        builder,
		Sessions:       sessions,
		MasterAPIKey:   masterKey,
		MasterUserID:   "1",
		MasterUserRole: "admin",
	}
	ta.e = New(ta.app)
	return ta
}

func (ta *testApp) do(t *testing.T, method, path, body, token string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	ta.e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %s: %v", rec.Body.String(), err)
	}
	return v
}

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(jwtSecret))
	if err != nil {
		t.Fatalf("SignedString: %v", err)
	}
	return s
}

type graphBody struct {
	Graph   common.WordGraph `json:"graph"`
	Timings struct {
		TotalMs float64 `json:"totalMs"`
	} `json:"timings"`
}

func TestHealth(t *testing.T) {
	ta := newTestApp(t)
	rec := ta.do(t, http.MethodGet, "/health", "", "")
	if rec.Code != http.StatusOK || rec.Body.String() != "OK" {
		t.Fatalf("health = %d %q", rec.Code, rec.Body.String())
	}
}

func TestPostGraph(t *testing.T) {
	ta := newTestApp(t)

	tests := []struct {
		name      string
		body      string
		wantCode  int
		wantNodes int
	}{
		{name: "default threshold", body: `{"generations":["dogs chase cats","cats chase dogs"]}`, wantCode: 200, wantNodes: 3},
		{name: "explicit threshold", body: `{"generations":["dogs chase cats","cats chase dogs","dogs sleep"],"minFrequency":3}`, wantCode: 200, wantNodes: 1},
		{name: "empty corpus", body: `{"generations":[]}`, wantCode: 200, wantNodes: 0},
		{name: "markup stripped", body: `{"generations":["<b>bold</b> text","<i>bold</i> text"],"stripMarkup":true}`, wantCode: 200, wantNodes: 2},
		{name: "missing generations", body: `{}`, wantCode: 400},
		{name: "zero threshold", body: `{"generations":["a"],"minFrequency":0}`, wantCode: 400},
		{name: "malformed json", body: `{"generations":`, wantCode: 400},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ta.do(t, http.MethodPost, "/api/graph", tt.body, "")
			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.wantCode, rec.Body.String())
			}
			if tt.wantCode != http.StatusOK {
				return
			}
			got := decode[graphBody](t, rec)
			if len(got.Graph.Nodes) != tt.wantNodes {
				t.Fatalf("nodes = %d, want %d", len(got.Graph.Nodes), tt.wantNodes)
			}
			if got.Graph.Nodes == nil || got.Graph.Edges == nil {
				t.Fatalf("nodes and edges must encode as arrays: %s", rec.Body.String())
			}
		})
	}
}

func TestGraphThresholdOutOfRange(t *testing.T) {
	ta := newTestApp(t)
	body := `{"generations":["dogs chase cats"],"minFrequency":2147483648}`
	if rec := ta.do(t, http.MethodPost, "/api/graph", body, ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400: %s", rec.Code, rec.Body.String())
	}
}

func TestConfiguredDefaultThreshold(t *testing.T) {
	cfg := wordgraph.DefaultConfig()
	cfg.MinFrequency = 3
	ta := newTestAppWithConfig(t, cfg)

	corpus := `["dogs chase cats","cats chase dogs","dogs sleep"]`
	rec := ta.do(t, http.MethodPost, "/api/graph", `{"generations":`+corpus+`}`, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	graph := decode[graphBody](t, rec).Graph
	if _, ok := graph.Node("dogs"); !ok || len(graph.Nodes) != 1 {
		t.Fatalf("expected only dogs, got %#v", graph.Nodes)
	}

	rec = ta.do(t, http.MethodPost, "/api/datasets", corpus, masterKey)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create = %d: %s", rec.Code, rec.Body.String())
	}
	created := decode[common.DatasetSummary](t, rec)

	rec = ta.do(t, http.MethodGet, "/api/datasets/"+created.ID+"/graph", "", "")
	if graph := decode[graphBody](t, rec).Graph; len(graph.Nodes) != 1 {
		t.Fatalf("dataset graph nodes = %d, want 1", len(graph.Nodes))
	}

	rec = ta.do(t, http.MethodPost, "/api/datasets/"+created.ID+"/snapshots", `{}`, masterKey)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("snapshot = %d: %s", rec.Code, rec.Body.String())
	}
	if msg := decode[queue.SnapshotMsg](t, rec); msg.MinFrequency != 3 {
		t.Fatalf("queued minFrequency = %d, want 3", msg.MinFrequency)
	}
}

func TestPostGraphWithSession(t *testing.T) {
	ta := newTestApp(t)

	rec := ta.do(t, http.MethodPost, "/api/graph", `{"generations":["dogs chase cats","cats chase dogs"]}`, "", "X-Session-ID", "tab-1")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if ta.app.Sessions.Len() != 1 {
		t.Fatalf("expected one session, got %d", ta.app.Sessions.Len())
	}

	rec = ta.do(t, http.MethodDelete, "/api/sessions/tab-1", "", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete session = %d", rec.Code)
	}
	rec = ta.do(t, http.MethodDelete, "/api/sessions/tab-1", "", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("second delete = %d, want 404", rec.Code)
	}
}

func TestPostGraphMatrix(t *testing.T) {
	ta := newTestApp(t)

	rec := ta.do(t, http.MethodPost, "/api/graph/matrix", `{"generations":["dogs chase cats","cats chase dogs"]}`, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	got := decode[struct {
		Matrix common.AdjacencyMatrix `json:"matrix"`
	}](t, rec)
	if strings.Join(got.Matrix.Words, ",") != "cats,chase,dogs" || got.Matrix.Weights[0][2] != 2 {
		t.Fatalf("unexpected matrix: %#v", got.Matrix)
	}
}

func TestDatasetRoutes(t *testing.T) {
	ta := newTestApp(t)

	// writes need authentication
	rec := ta.do(t, http.MethodPost, "/api/datasets", `{"generations":["a"]}`, "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated create = %d, want 401", rec.Code)
	}

	body := `{"name":"colours","prompt":"Name a colour","generations":["<p>blue sky</p>","blue sea"]}`
	rec = ta.do(t, http.MethodPost, "/api/datasets?stripMarkup=true", body, masterKey)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create = %d: %s", rec.Code, rec.Body.String())
	}
	created := decode[common.DatasetSummary](t, rec)
	if created.ID == "" || created.Generations != 2 || created.Name != "colours" {
		t.Fatalf("unexpected summary: %#v", created)
	}

	rec = ta.do(t, http.MethodGet, "/api/datasets/"+created.ID, "", "")
	ds := decode[common.Dataset](t, rec)
	if ds.Generations[0] != "blue sky" {
		t.Fatalf("markup not stripped: %q", ds.Generations[0])
	}

	rec = ta.do(t, http.MethodGet, "/api/datasets", "", "")
	if list := decode[[]common.DatasetSummary](t, rec); len(list) != 1 {
		t.Fatalf("listing = %#v", list)
	}

	rec = ta.do(t, http.MethodGet, "/api/datasets/"+created.ID+"/graph?minFrequency=2", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("graph = %d: %s", rec.Code, rec.Body.String())
	}
	graph := decode[graphBody](t, rec)
	if _, ok := graph.Graph.Node("blue"); !ok || len(graph.Graph.Nodes) != 1 {
		t.Fatalf("unexpected graph: %#v", graph.Graph.Nodes)
	}

	rec = ta.do(t, http.MethodGet, "/api/datasets/"+created.ID+"/graph?minFrequency=zero", "", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad threshold = %d, want 400", rec.Code)
	}

	rec = ta.do(t, http.MethodGet, "/api/datasets/"+created.ID+"/graph?view=matrix", "", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"matrix"`) {
		t.Fatalf("matrix view = %d: %s", rec.Code, rec.Body.String())
	}

	rec = ta.do(t, http.MethodGet, "/api/datasets/missing", "", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing dataset = %d, want 404", rec.Code)
	}

	rec = ta.do(t, http.MethodDelete, "/api/datasets/"+created.ID, "", masterKey)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete = %d: %s", rec.Code, rec.Body.String())
	}
	rec = ta.do(t, http.MethodDelete, "/api/datasets/"+created.ID, "", masterKey)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("second delete = %d, want 404", rec.Code)
	}
}

func TestPostDatasetInvalid(t *testing.T) {
	ta := newTestApp(t)

	rec := ta.do(t, http.MethodPost, "/api/datasets", `{"name":"no generations"}`, masterKey)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400: %s", rec.Code, rec.Body.String())
	}
}

func TestPostDatasetCSV(t *testing.T) {
	ta := newTestApp(t)

	body := "id,response\n1,blue sky\n2,\"blue, deep sea\"\n"
	rec := ta.do(t, http.MethodPost, "/api/datasets?name=colours&prompt=Colour%3F", body, masterKey,
		echo.HeaderContentType, "text/csv; charset=utf-8")
	if rec.Code != http.StatusCreated {
		t.Fatalf("create = %d: %s", rec.Code, rec.Body.String())
	}
	created := decode[common.DatasetSummary](t, rec)
	if created.Name != "colours" || created.Prompt != "Colour?" || created.Generations != 2 {
		t.Fatalf("unexpected summary: %#v", created)
	}

	rec = ta.do(t, http.MethodPost, "/api/datasets?column=missing", body, masterKey,
		echo.HeaderContentType, "text/csv")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing column = %d, want 400", rec.Code)
	}
}

func writeImport(t *testing.T, ta *testApp, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(ta.importDir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func TestDatasetImport(t *testing.T) {
	ta := newTestApp(t)
	writeImport(t, ta, "colours.json", `{"prompt":"Colour?","generations":["<b>blue</b> sky","blue sea"]}`)

	rec := ta.do(t, http.MethodPost, "/api/datasets/import", `{"key":"colours.json","name":"imported","stripMarkup":true}`, masterKey)
	if rec.Code != http.StatusCreated {
		t.Fatalf("import = %d: %s", rec.Code, rec.Body.String())
	}
	first := decode[common.DatasetSummary](t, rec)
	if first.Name != "imported" || first.Prompt != "Colour?" || first.Generations != 2 || first.ID == "colours" {
		t.Fatalf("unexpected summary: %#v", first)
	}
	rec = ta.do(t, http.MethodGet, "/api/datasets/"+first.ID, "", "")
	if ds := decode[common.Dataset](t, rec); ds.Generations[0] != "blue sky" {
		t.Fatalf("markup not stripped: %q", ds.Generations[0])
	}

	// an edited file is read again on the next import
	writeImport(t, ta, "colours.json", `["red","red","red"]`)
	rec = ta.do(t, http.MethodPost, "/api/datasets/import", `{"key":"colours.json"}`, masterKey)
	if rec.Code != http.StatusCreated {
		t.Fatalf("second import = %d: %s", rec.Code, rec.Body.String())
	}
	if second := decode[common.DatasetSummary](t, rec); second.Generations != 3 || second.ID == first.ID {
		t.Fatalf("second import served stale content: %#v", second)
	}

	tests := []struct {
		name     string
		body     string
		token    string
		wantCode int
	}{
		{name: "missing key", body: `{"key":"missing.json"}`, token: masterKey, wantCode: http.StatusNotFound},
		{name: "empty key", body: `{"key":""}`, token: masterKey, wantCode: http.StatusBadRequest},
		{name: "unauthenticated", body: `{"key":"colours.json"}`, wantCode: http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ta.do(t, http.MethodPost, "/api/datasets/import", tt.body, tt.token)
			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.wantCode, rec.Body.String())
			}
		})
	}
}

func TestDatasetImportNotConfigured(t *testing.T) {
	ta := newTestApp(t)
	ta.app.Importer = nil

	rec := ta.do(t, http.MethodPost, "/api/datasets/import", `{"key":"colours.json"}`, masterKey)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503: %s", rec.Code, rec.Body.String())
	}
}

func TestDatasetSchema(t *testing.T) {
	ta := newTestApp(t)

	rec := ta.do(t, http.MethodGet, "/api/datasets/schema", "", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"generations"`) {
		t.Fatalf("schema = %d: %s", rec.Code, rec.Body.String())
	}
}

func TestPermissions(t *testing.T) {
	ta := newTestApp(t)

	tests := []struct {
		name     string
		claims   jwt.MapClaims
		wantCode int
	}{
		{name: "missing permission", claims: jwt.MapClaims{"id": "7", "permissions": []any{"generate"}}, wantCode: http.StatusForbidden},
		{name: "granted", claims: jwt.MapClaims{"id": "7", "permissions": []any{"dataset.create"}}, wantCode: http.StatusCreated},
		{name: "admin", claims: jwt.MapClaims{"sub": "root", "role": "admin"}, wantCode: http.StatusCreated},
		{name: "no user id", claims: jwt.MapClaims{"permissions": []any{"dataset.create"}}, wantCode: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token := signToken(t, tt.claims)
			rec := ta.do(t, http.MethodPost, "/api/datasets", `["one generation"]`, token)
			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.wantCode, rec.Body.String())
			}
		})
	}

	rec := ta.do(t, http.MethodPost, "/api/datasets", `["x"]`, "not-a-jwt")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("invalid token = %d, want 401", rec.Code)
	}
}

func TestSnapshotRoutes(t *testing.T) {
	ta := newTestApp(t)
	ctx := context.Background()

	ds, err := ta.app.Store.SaveDataset(ctx, common.Dataset{ID: "ds", Generations: common.Corpus{"a b c"}})
	if err != nil {
		t.Fatalf("SaveDataset: %v", err)
	}

	rec := ta.do(t, http.MethodPost, "/api/datasets/ds/snapshots", `{"minFrequency":3}`, masterKey)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("enqueue = %d: %s", rec.Code, rec.Body.String())
	}
	msg := decode[queue.SnapshotMsg](t, rec)
	if msg.DatasetID != "ds" || msg.MinFrequency != 3 || msg.SnapshotID == "" {
		t.Fatalf("unexpected message: %#v", msg)
	}
	if len(ta.channel.published) != 1 {
		t.Fatalf("expected one published message, got %d", len(ta.channel.published))
	}

	rec = ta.do(t, http.MethodPost, "/api/datasets/missing/snapshots", `{}`, masterKey)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing dataset = %d, want 404", rec.Code)
	}

	// what the worker would have stored
	key := storage.SnapshotKey(ds.ID, msg.SnapshotID)
	if err := ta.objects.PutFile(ctx, key, []byte(`{}`), "application/json"); err != nil {
		t.Fatalf("PutFile: %v", err)
	}
	if _, err := ta.app.Store.SaveSnapshot(ctx, common.Snapshot{
		ID: msg.SnapshotID, DatasetID: ds.ID, MinFrequency: 3, ObjectKey: key, CreatedAt: time.Now(),
	}); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}

	rec = ta.do(t, http.MethodGet, "/api/datasets/ds/snapshots", "", "")
	if list := decode[[]common.Snapshot](t, rec); len(list) != 1 {
		t.Fatalf("snapshots = %#v", list)
	}

	rec = ta.do(t, http.MethodGet, "/api/snapshots/"+msg.SnapshotID, "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get snapshot = %d: %s", rec.Code, rec.Body.String())
	}
	got := decode[struct {
		ID          string `json:"id"`
		DownloadURL string `json:"downloadUrl"`
	}](t, rec)
	if got.ID != msg.SnapshotID || got.DownloadURL != "http://files.test/files/"+key {
		t.Fatalf("unexpected snapshot response: %#v", got)
	}

	rec = ta.do(t, http.MethodGet, "/api/snapshots/"+msg.SnapshotID+"/graph", "", "")
	if rec.Code != http.StatusOK || rec.Body.String() != `{}` {
		t.Fatalf("snapshot graph = %d: %s", rec.Code, rec.Body.String())
	}

	rec = ta.do(t, http.MethodGet, "/files/"+key, "", "")
	if rec.Code != http.StatusOK || rec.Body.String() != `{}` {
		t.Fatalf("snapshot file = %d: %s", rec.Code, rec.Body.String())
	}

	rec = ta.do(t, http.MethodGet, "/files/snapshots/../secrets", "", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("escaping file key = %d, want 404", rec.Code)
	}
}

func TestSnapshotQueueNotConfigured(t *testing.T) {
	ta := newTestApp(t)
	ta.app.Queue = nil

	rec := ta.do(t, http.MethodPost, "/api/datasets/ds/snapshots", `{}`, masterKey)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}

func TestGenerate(t *testing.T) {
	ta := newTestApp(t)

	body := `{"prompt":"What colour is the ocean?","samples":4,"temperature":0.8,"save":true,"name":"ocean"}`
	rec := ta.do(t, http.MethodPost, "/api/generate", body, masterKey)
	if rec.Code != http.StatusOK {
		t.Fatalf("generate = %d: %s", rec.Code, rec.Body.String())
	}
	got := decode[struct {
		Graph       common.WordGraph       `json:"graph"`
		Generations []string               `json:"generations"`
		Dataset     *common.DatasetSummary `json:"dataset"`
	}](t, rec)

	if len(got.Generations) != 4 || ta.sampler.n != 4 {
		t.Fatalf("unexpected generations: %v", got.Generations)
	}
	if ta.sampler.opts.Temperature != 0.8 {
		t.Fatalf("temperature not forwarded: %v", ta.sampler.opts.Temperature)
	}
	if _, ok := got.Graph.Node("ocean"); !ok {
		t.Fatalf("graph misses ocean: %#v", got.Graph.Nodes)
	}
	if got.Dataset == nil || got.Dataset.Name != "ocean" || got.Dataset.Generations != 4 {
		t.Fatalf("dataset not saved: %#v", got.Dataset)
	}

	rec = ta.do(t, http.MethodPost, "/api/generate", `{"prompt":"x","samples":0}`, masterKey)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid samples = %d, want 400", rec.Code)
	}

	ta.app.Sampler = nil
	rec = ta.do(t, http.MethodPost, "/api/generate", `{"prompt":"x","samples":2}`, masterKey)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("without sampler = %d, want 503", rec.Code)
	}
}

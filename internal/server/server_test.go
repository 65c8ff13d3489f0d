package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/soundpatch/patchc/pkg/nodelib/kinds"
	"github.com/soundpatch/patchc/pkg/patch"
	"github.com/soundpatch/patchc/pkg/pipeline"
	"github.com/soundpatch/patchc/pkg/store"
)

func testServer(t *testing.T) *httptest.Server {
	t.Helper()
	logger := log.NewWithOptions(io.Discard, log.Options{})
	runner := pipeline.NewRunner(nil, nil, kinds.Library(), logger)
	srv := New(runner, store.NewMemoryStore(), patch.Settings{}, logger)

	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts
}

// simpleDocument builds a sine-to-output patch document.
func simpleDocument(t *testing.T) patch.Document {
	t.Helper()
	lib := kinds.Library()
	p := patch.New()
	osc, err := lib.Instantiate("osc.sine", "s1")
	if err != nil {
		t.Fatal(err)
	}
	out, err := lib.Instantiate("out.stereo", "o1")
	if err != nil {
		t.Fatal(err)
	}
	p, _ = p.AddNode(osc)
	p, _ = p.AddNode(out)
	p, err = p.Connect("s1", "out", "o1", "left")
	if err != nil {
		t.Fatal(err)
	}
	return patch.NewDocument(p)
}

func documentJSON(t *testing.T, doc patch.Document) []byte {
	t.Helper()
	data, err := patch.EncodeDocument(doc)
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func postJSON(t *testing.T, url string, body []byte) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestHealthz(t *testing.T) {
	ts := testServer(t)

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func TestCompileEndpoint(t *testing.T) {
	ts := testServer(t)

	resp := postJSON(t, ts.URL+"/v1/compile", documentJSON(t, simpleDocument(t)))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var body compileResponse
	decodeBody(t, resp, &body)
	if !body.Valid {
		t.Fatalf("expected valid patch: %+v", body.Issues)
	}
	if !strings.Contains(body.Source, "void process(float *left, float *right)") {
		t.Error("source missing process entry point")
	}
	if body.PatchHash == "" {
		t.Error("expected a patch hash")
	}
	if body.Stats.NodeCount != 2 {
		t.Errorf("NodeCount = %d, want 2", body.Stats.NodeCount)
	}
}

func TestCompileEndpointWithOptions(t *testing.T) {
	ts := testServer(t)

	req, err := json.Marshal(map[string]any{
		"patch":   json.RawMessage(documentJSON(t, simpleDocument(t))),
		"options": pipeline.Options{SampleRate: 48000},
	})
	if err != nil {
		t.Fatal(err)
	}

	resp := postJSON(t, ts.URL+"/v1/compile", req)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var body compileResponse
	decodeBody(t, resp, &body)
	if !strings.Contains(body.Source, "#define SAMPLE_RATE 48000.0f") {
		t.Error("sample rate override not reflected in source")
	}
}

func TestCompileEndpointInvalidPatch(t *testing.T) {
	ts := testServer(t)

	// Two adders feeding each other form a cycle.
	lib := kinds.Library()
	p := patch.New()
	a, _ := lib.Instantiate("math.add", "a")
	b, _ := lib.Instantiate("math.add", "b")
	p, _ = p.AddNode(a)
	p, _ = p.AddNode(b)
	p, _ = p.Connect("a", "out", "b", "a")
	p, _ = p.Connect("b", "out", "a", "a")

	resp := postJSON(t, ts.URL+"/v1/compile", documentJSON(t, patch.NewDocument(p)))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("graph problems should not be HTTP errors, got %d", resp.StatusCode)
	}

	var body compileResponse
	decodeBody(t, resp, &body)
	if body.Valid {
		t.Fatal("expected invalid patch")
	}
	if len(body.Issues) == 0 {
		t.Error("expected issues")
	}
	if body.Source != "" {
		t.Error("invalid patch should produce no source")
	}
}

func TestCompileEndpointMalformedBody(t *testing.T) {
	ts := testServer(t)

	tests := []struct {
		name string
		body string
	}{
		{"empty", ""},
		{"scalar", "42"},
		{"not json", "{nope"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postJSON(t, ts.URL+"/v1/compile", []byte(tt.body))
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", resp.StatusCode)
			}
		})
	}
}

func TestValidateEndpoint(t *testing.T) {
	ts := testServer(t)

	resp := postJSON(t, ts.URL+"/v1/validate", documentJSON(t, simpleDocument(t)))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var body validateResponse
	decodeBody(t, resp, &body)
	if !body.Valid {
		t.Errorf("expected valid patch: %+v", body.Issues)
	}
	if body.NodeCount != 2 || body.ConnectionCount != 1 {
		t.Errorf("counts = %d/%d, want 2/1", body.NodeCount, body.ConnectionCount)
	}
}

func TestRenderEndpointDOT(t *testing.T) {
	ts := testServer(t)

	req, err := json.Marshal(map[string]any{
		"patch":  json.RawMessage(documentJSON(t, simpleDocument(t))),
		"format": "dot",
	})
	if err != nil {
		t.Fatal(err)
	}

	resp := postJSON(t, ts.URL+"/v1/render", req)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "text/vnd.graphviz" {
		t.Errorf("Content-Type = %q", ct)
	}
	data, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(data), "digraph patch") {
		t.Errorf("unexpected DOT output: %s", data)
	}
}

func TestRenderEndpointBadFormat(t *testing.T) {
	ts := testServer(t)

	req, _ := json.Marshal(map[string]any{
		"patch":  json.RawMessage(documentJSON(t, simpleDocument(t))),
		"format": "png",
	})
	resp := postJSON(t, ts.URL+"/v1/render", req)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestKindsEndpoints(t *testing.T) {
	ts := testServer(t)

	resp, err := http.Get(ts.URL + "/v1/kinds")
	if err != nil {
		t.Fatal(err)
	}
	var list struct {
		Kinds []json.RawMessage `json:"kinds"`
	}
	decodeBody(t, resp, &list)
	if len(list.Kinds) == 0 {
		t.Error("expected registered kinds")
	}

	resp, err = http.Get(ts.URL + "/v1/kinds/osc.sine")
	if err != nil {
		t.Fatal(err)
	}
	var manifest struct {
		Kind string `json:"kind"`
	}
	decodeBody(t, resp, &manifest)
	if manifest.Kind != "osc.sine" {
		t.Errorf("Kind = %q, want osc.sine", manifest.Kind)
	}

	resp, err = http.Get(ts.URL + "/v1/kinds/nope")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown kind status = %d, want 404", resp.StatusCode)
	}
}

func TestPatchStorageCRUD(t *testing.T) {
	ts := testServer(t)

	saveBody, err := json.Marshal(map[string]any{
		"name":  "demo",
		"patch": json.RawMessage(documentJSON(t, simpleDocument(t))),
	})
	if err != nil {
		t.Fatal(err)
	}

	// Create
	resp := postJSON(t, ts.URL+"/v1/patches", saveBody)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d, want 201", resp.StatusCode)
	}
	var created store.StoredPatch
	decodeBody(t, resp, &created)
	if created.ID == "" {
		t.Fatal("create should assign an ID")
	}

	// Read
	resp, err = http.Get(ts.URL + "/v1/patches/" + created.ID)
	if err != nil {
		t.Fatal(err)
	}
	var got store.StoredPatch
	decodeBody(t, resp, &got)
	if got.Name != "demo" {
		t.Errorf("Name = %q, want demo", got.Name)
	}

	// Update
	updateBody, _ := json.Marshal(map[string]any{
		"name":  "demo-v2",
		"patch": json.RawMessage(documentJSON(t, simpleDocument(t))),
	})
	req, err := http.NewRequest(http.MethodPut, ts.URL+"/v1/patches/"+created.ID, bytes.NewReader(updateBody))
	if err != nil {
		t.Fatal(err)
	}
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	var updated store.StoredPatch
	decodeBody(t, resp, &updated)
	if updated.Name != "demo-v2" {
		t.Errorf("updated Name = %q, want demo-v2", updated.Name)
	}
	if updated.ID != created.ID {
		t.Errorf("update changed the ID: %q -> %q", created.ID, updated.ID)
	}

	// List
	resp, err = http.Get(ts.URL + "/v1/patches")
	if err != nil {
		t.Fatal(err)
	}
	var list struct {
		Patches []store.StoredPatch `json:"patches"`
	}
	decodeBody(t, resp, &list)
	if len(list.Patches) != 1 {
		t.Fatalf("List len = %d, want 1", len(list.Patches))
	}

	// Delete
	req, _ = http.NewRequest(http.MethodDelete, ts.URL+"/v1/patches/"+created.ID, nil)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("delete status = %d, want 204", resp.StatusCode)
	}

	resp, err = http.Get(ts.URL + "/v1/patches/" + created.ID)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("get after delete status = %d, want 404", resp.StatusCode)
	}
}

func TestUpdateMissingPatch(t *testing.T) {
	ts := testServer(t)

	body, _ := json.Marshal(map[string]any{
		"name":  "ghost",
		"patch": json.RawMessage(documentJSON(t, simpleDocument(t))),
	})
	req, err := http.NewRequest(http.MethodPut, ts.URL+"/v1/patches/missing", bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestSavePatchMalformedDocument(t *testing.T) {
	ts := testServer(t)

	body, _ := json.Marshal(map[string]any{
		"name":  "bad",
		"patch": json.RawMessage(`42`),
	})
	resp := postJSON(t, ts.URL+"/v1/patches", body)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

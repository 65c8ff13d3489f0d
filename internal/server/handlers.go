package server

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/soundpatch/patchc/pkg/compile"
	"github.com/soundpatch/patchc/pkg/errors"
	"github.com/soundpatch/patchc/pkg/patch"
	"github.com/soundpatch/patchc/pkg/pipeline"
	"github.com/soundpatch/patchc/pkg/store"
)

// maxBodyBytes bounds request bodies. Patch documents are small; anything
// larger is rejected before decoding.
const maxBodyBytes = 4 << 20

// =============================================================================
// Requests & Responses
// =============================================================================

// compileRequest is the body of POST /v1/compile and POST /v1/validate.
// The patch field accepts either a document envelope or a bare patch. A
// body without a patch field is treated as the document itself.
type compileRequest struct {
	Patch   json.RawMessage  `json:"patch"`
	Options pipeline.Options `json:"options"`
}

// renderRequest is the body of POST /v1/render.
type renderRequest struct {
	Patch  json.RawMessage `json:"patch"`
	Format string          `json:"format"`
}

type compileResponse struct {
	PatchHash string          `json:"patch_hash"`
	Valid     bool            `json:"valid"`
	Issues    []compile.Issue `json:"issues,omitempty"`
	Source    string          `json:"source,omitempty"`
	Cached    bool            `json:"cached"`
	Stats     statsResponse   `json:"stats"`
}

type statsResponse struct {
	NodeCount       int    `json:"node_count"`
	ConnectionCount int    `json:"connection_count"`
	ValidateTime    string `json:"validate_time"`
	PlanTime        string `json:"plan_time"`
	EmitTime        string `json:"emit_time"`
}

type validateResponse struct {
	Valid           bool            `json:"valid"`
	Issues          []compile.Issue `json:"issues,omitempty"`
	NodeCount       int             `json:"node_count"`
	ConnectionCount int             `json:"connection_count"`
}

// =============================================================================
// Compilation
// =============================================================================

func (s *Server) handleCompile(w http.ResponseWriter, r *http.Request) {
	doc, opts, err := s.decodeCompileRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}
	opts.Logger = s.logger

	result, err := s.runner.Execute(r.Context(), doc, opts)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, compileResponse{
		PatchHash: result.PatchHash,
		Valid:     result.Validation.Valid,
		Issues:    result.Validation.Issues,
		Source:    result.Source,
		Cached:    result.CacheInfo.SourceHit,
		Stats: statsResponse{
			NodeCount:       result.Stats.NodeCount,
			ConnectionCount: result.Stats.ConnectionCount,
			ValidateTime:    result.Stats.ValidateTime.String(),
			PlanTime:        result.Stats.PlanTime.String(),
			EmitTime:        result.Stats.EmitTime.String(),
		},
	})
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	doc, opts, err := s.decodeCompileRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}
	opts.Logger = s.logger

	doc, result, err := s.runner.Validate(r.Context(), doc, opts)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, validateResponse{
		Valid:           result.Valid,
		Issues:          result.Issues,
		NodeCount:       doc.Patch.NodeCount(),
		ConnectionCount: doc.Patch.ConnectionCount(),
	})
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req renderRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode render request"))
		return
	}
	if req.Format == "" {
		req.Format = pipeline.FormatDOT
	}
	if err := pipeline.ValidateRenderFormat(req.Format); err != nil {
		writeError(w, err)
		return
	}

	doc, err := s.decodeDocumentField(body, req.Patch)
	if err != nil {
		writeError(w, err)
		return
	}

	data, _, err := s.runner.RenderGraph(r.Context(), doc, req.Format)
	if err != nil {
		writeError(w, err)
		return
	}

	contentType := "text/vnd.graphviz"
	if req.Format == pipeline.FormatSVG {
		contentType = "image/svg+xml"
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// =============================================================================
// Kind Library
// =============================================================================

func (s *Server) handleListKinds(w http.ResponseWriter, r *http.Request) {
	lib := s.runner.Library
	manifests := make([]any, 0, lib.Len())
	for _, kind := range lib.Kinds() {
		if entry, ok := lib.Lookup(kind); ok {
			manifests = append(manifests, entry.Manifest)
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"kinds": manifests})
}

func (s *Server) handleGetKind(w http.ResponseWriter, r *http.Request) {
	kind := chi.URLParam(r, "kind")
	entry, ok := s.runner.Library.Lookup(kind)
	if !ok {
		writeError(w, errors.New(errors.ErrCodeUnknownKind, "no such node kind: %s", kind))
		return
	}
	writeJSON(w, http.StatusOK, entry.Manifest)
}

// =============================================================================
// Patch Storage
// =============================================================================

// savePatchRequest is the body of POST and PUT on /v1/patches.
type savePatchRequest struct {
	Name  string          `json:"name"`
	Patch json.RawMessage `json:"patch"`
}

func (s *Server) handleListPatches(w http.ResponseWriter, r *http.Request) {
	patches, err := s.store.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"patches": patches})
}

func (s *Server) handleSavePatch(w http.ResponseWriter, r *http.Request) {
	sp, err := s.decodeStoredPatch(r, "")
	if err != nil {
		writeError(w, err)
		return
	}
	saved, err := s.store.Save(r.Context(), sp)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

func (s *Server) handleGetPatch(w http.ResponseWriter, r *http.Request) {
	sp, err := s.store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sp)
}

func (s *Server) handleUpdatePatch(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	// Updating a missing patch is an error, not an upsert.
	if _, err := s.store.Get(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}

	sp, err := s.decodeStoredPatch(r, id)
	if err != nil {
		writeError(w, err)
		return
	}
	saved, err := s.store.Save(r.Context(), sp)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func (s *Server) handleDeletePatch(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// decodeStoredPatch reads a save request and validates its document.
func (s *Server) decodeStoredPatch(r *http.Request, id string) (store.StoredPatch, error) {
	body, err := readBody(r)
	if err != nil {
		return store.StoredPatch{}, err
	}

	var req savePatchRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return store.StoredPatch{}, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode save request")
	}
	if len(req.Patch) == 0 {
		return store.StoredPatch{}, errors.New(errors.ErrCodeInvalidInput, "save request is missing a patch")
	}

	doc, err := patch.DecodeDocument(req.Patch)
	if err != nil {
		return store.StoredPatch{}, err
	}

	return store.StoredPatch{ID: id, Name: req.Name, Document: doc}, nil
}

// =============================================================================
// Decoding Helpers
// =============================================================================

func readBody(r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "read request body")
	}
	if len(body) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "request body is empty")
	}
	return body, nil
}

// decodeCompileRequest extracts a patch document and pipeline options from a
// compile or validate request body.
func (s *Server) decodeCompileRequest(r *http.Request) (patch.Document, pipeline.Options, error) {
	body, err := readBody(r)
	if err != nil {
		return patch.Document{}, pipeline.Options{}, err
	}

	var req compileRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return patch.Document{}, pipeline.Options{}, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode compile request")
	}

	doc, err := s.decodeDocumentField(body, req.Patch)
	if err != nil {
		return patch.Document{}, pipeline.Options{}, err
	}
	return doc, req.Options, nil
}

// decodeDocumentField decodes the patch field when present, falling back to
// treating the whole body as the document. Engine settings the document
// omits are filled from the server's configured defaults.
func (s *Server) decodeDocumentField(body, field json.RawMessage) (patch.Document, error) {
	raw := field
	if len(raw) == 0 {
		raw = body
	}
	return patch.DecodeDocumentWith(raw, s.defaults)
}

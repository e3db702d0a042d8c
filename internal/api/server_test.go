package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/orgtree/internal/config"
	"github.com/dgallion1/orgtree/internal/headline"
	"github.com/dgallion1/orgtree/internal/pipeline"
	"github.com/dgallion1/orgtree/internal/session"
)

const (
	testKey = "secret"
	sample  = "intro\n* TODO A :x:\nbody\n** A1\n* B\n"
)

type harness struct {
	t   *testing.T
	srv *Server
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := config.Config{
		APIKey:              testKey,
		WorkerCount:         1,
		MaxQueueSize:        10,
		MaxUploadBytes:      1 << 20,
		SessionTTL:          time.Hour,
		JobTTL:              time.Hour,
		DefaultChunkSize:    1500,
		DefaultChunkOverlap: 200,
		TodoKeywords:        "TODO:DONE",
	}
	sessions := session.NewManager(cfg.SessionTTL, nil, log)
	orch := pipeline.NewOrchestrator(cfg, sessions, nil, log)
	orch.Start(context.Background())
	t.Cleanup(orch.Stop)
	return &harness{t: t, srv: NewServer(orch, sessions, nil, log, cfg)}
}

func (h *harness) do(method, path, contentType string, body io.Reader) *httptest.ResponseRecorder {
	h.t.Helper()
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Authorization", "Bearer "+testKey)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	h.srv.ServeHTTP(rec, req)
	return rec
}

func (h *harness) json(method, path, body string) *httptest.ResponseRecorder {
	return h.do(method, path, "application/json", strings.NewReader(body))
}

func (h *harness) open(text string) string {
	h.t.Helper()
	rec := h.do(http.MethodPost, "/api/documents", "text/plain", strings.NewReader(text))
	require.Equal(h.t, http.StatusCreated, rec.Code, rec.Body.String())
	var info session.Info
	require.NoError(h.t, json.Unmarshal(rec.Body.Bytes(), &info))
	return info.ID
}

func (h *harness) text(docID string) string {
	h.t.Helper()
	rec := h.do(http.MethodGet, "/api/documents/"+docID, "", nil)
	require.Equal(h.t, http.StatusOK, rec.Code, rec.Body.String())
	return rec.Body.String()
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealth_NoAuth(t *testing.T) {
	h := newHarness(t)
	rec := httptest.NewRecorder()
	h.srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestAuth(t *testing.T) {
	h := newHarness(t)
	for _, header := range []string{"", "Bearer wrong", "Basic " + testKey} {
		req := httptest.NewRequest(http.MethodGet, "/api/stats/mutations", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		h.srv.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, header)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/stats/mutations", nil)
	req.Header.Set("X-API-Key", testKey)
	rec := httptest.NewRecorder()
	h.srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestDocument_RoundTrip(t *testing.T) {
	h := newHarness(t)
	id := h.open(sample)

	rec := h.do(http.MethodGet, "/api/documents/"+id, "", nil)
	assert.Equal(t, sample, rec.Body.String())
	assert.Equal(t, "0", rec.Header().Get("X-Revision"))

	rec = h.do(http.MethodGet, "/api/documents/"+id+"?format=json", "", nil)
	body := decode[struct {
		Info session.Info `json:"info"`
		Text string       `json:"text"`
	}](t, rec)
	assert.Equal(t, 3, body.Info.Sections)
	assert.Equal(t, sample, body.Text)
}

func TestDocument_InvalidUTF8(t *testing.T) {
	h := newHarness(t)
	rec := h.do(http.MethodPost, "/api/documents", "text/plain", strings.NewReader("* bad \xff\n"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDocument_UnsupportedUpload(t *testing.T) {
	h := newHarness(t)
	rec := h.do(http.MethodPost, "/api/documents?filename=photo.png", "application/octet-stream", strings.NewReader("x"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDocument_ImportMultipart(t *testing.T) {
	h := newHarness(t)
	body, ct := multipartFiles(t, "file", map[string]string{"notes.md": "# Top\n\ntext\n\n## Sub\n"})
	rec := h.do(http.MethodPost, "/api/documents", ct, body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	info := decode[session.Info](t, rec)
	assert.Equal(t, 2, info.Sections)

	text := h.text(info.ID)
	assert.Contains(t, text, "* Top\n")
	assert.Contains(t, text, "** Sub\n")
}

func TestDocument_NotFound(t *testing.T) {
	h := newHarness(t)
	assert.Equal(t, http.StatusNotFound, h.do(http.MethodGet, "/api/documents/nope", "", nil).Code)
	assert.Equal(t, http.StatusNotFound, h.do(http.MethodDelete, "/api/documents/nope", "", nil).Code)
}

func TestDocument_Delete(t *testing.T) {
	h := newHarness(t)
	id := h.open(sample)
	assert.Equal(t, http.StatusNoContent, h.do(http.MethodDelete, "/api/documents/"+id, "", nil).Code)
	assert.Equal(t, http.StatusNotFound, h.do(http.MethodGet, "/api/documents/"+id, "", nil).Code)
}

func TestSections_Tree(t *testing.T) {
	h := newHarness(t)
	id := h.open(sample)

	root := decode[sectionView](t, h.do(http.MethodGet, "/api/documents/"+id+"/sections", "", nil))
	require.Len(t, root.Children, 2)
	a := root.Children[0]
	assert.Equal(t, "1", a.ID)
	assert.Equal(t, "A", a.Title)
	assert.Equal(t, "TODO", a.Keyword)
	assert.Equal(t, []string{"x"}, a.Tags)
	require.Len(t, a.Children, 1)
	assert.Equal(t, "A1", a.Children[0].Title)
	assert.Equal(t, "B", root.Children[1].Title)

	sec := decode[sectionView](t, h.do(http.MethodGet, "/api/documents/"+id+"/sections/1", "", nil))
	require.NotNil(t, sec.Raw)
	assert.Equal(t, "* TODO A :x:\nbody\n", *sec.Raw)
	assert.Equal(t, "0", sec.Parent)

	assert.Equal(t, http.StatusNotFound, h.do(http.MethodGet, "/api/documents/"+id+"/sections/99", "", nil).Code)
	assert.Equal(t, http.StatusNotFound, h.do(http.MethodGet, "/api/documents/"+id+"/sections/abc", "", nil).Code)
}

func TestSections_SetRaw(t *testing.T) {
	h := newHarness(t)
	id := h.open(sample)

	rec := h.do(http.MethodPut, "/api/documents/"+id+"/sections/1/raw", "text/plain",
		strings.NewReader("* TODO A :x:\nbody\n* sneaky\n"))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	violation := decode[struct {
		Error  string `json:"error"`
		Line   int    `json:"line"`
		Offset int    `json:"offset"`
	}](t, rec)
	assert.Equal(t, 3, violation.Line)
	assert.Equal(t, 18, violation.Offset)
	assert.Equal(t, sample, h.text(id), "rejected edit must leave the document unchanged")

	rec = h.json(http.MethodPut, "/api/documents/"+id+"/sections/3/raw", `{"raw":"* B renamed\nnew body\n"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "intro\n* TODO A :x:\nbody\n** A1\n* B renamed\nnew body\n", h.text(id))

	rec = h.json(http.MethodPut, "/api/documents/"+id+"/sections/root/raw", `{"raw":"* not allowed\n"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestSections_SetLevel(t *testing.T) {
	h := newHarness(t)
	id := h.open(sample)

	rec := h.json(http.MethodPut, "/api/documents/"+id+"/sections/2/level", `{"level":3}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "intro\n* TODO A :x:\nbody\n*** A1\n* B\n", h.text(id))

	rec = h.json(http.MethodPut, "/api/documents/"+id+"/sections/1/level", `{"level":3}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	rec = h.json(http.MethodPut, "/api/documents/"+id+"/sections/1/level", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSections_PatchHeadline(t *testing.T) {
	h := newHarness(t)
	id := h.open(sample)

	rec := h.json(http.MethodPatch, "/api/documents/"+id+"/sections/1/headline",
		`{"keyword":"DONE","priority":"A","add_tags":["y"]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	sec := decode[sectionView](t, rec)
	assert.Equal(t, "DONE", sec.Keyword)
	assert.Equal(t, "A", sec.Priority)
	assert.Equal(t, []string{"x", "y"}, sec.Tags)
	assert.Equal(t, "intro\n* DONE [#A] A :x:y:\nbody\n** A1\n* B\n", h.text(id))

	rec = h.json(http.MethodPatch, "/api/documents/"+id+"/sections/1/headline", `{"keyword":"WAIT"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	rec = h.json(http.MethodPatch, "/api/documents/"+id+"/sections/1/headline", `{"priority":"AB"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	rec = h.json(http.MethodPatch, "/api/documents/"+id+"/sections/root/headline", `{"title":"x"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestSections_PatchPropertiesAndTags(t *testing.T) {
	h := newHarness(t)
	id := h.open(sample)

	rec := h.json(http.MethodPatch, "/api/documents/"+id+"/sections/3/headline",
		`{"tags":["q","q","r"],"properties":{"EFFORT":"2h","OWNER":"sam"}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	sec := decode[sectionView](t, rec)
	assert.Equal(t, []string{"q", "r"}, sec.Tags)
	assert.Equal(t, []headline.Property{{Key: "EFFORT", Value: "2h"}, {Key: "OWNER", Value: "sam"}}, sec.Props)
	assert.Equal(t, sample[:len(sample)-len("* B\n")]+"* B :q:r:\n:PROPERTIES:\n:EFFORT: 2h\n:OWNER: sam\n:END:\n", h.text(id))

	rec = h.json(http.MethodPatch, "/api/documents/"+id+"/sections/3/headline", `{"clear_properties":["effort","missing"]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, []headline.Property{{Key: "OWNER", Value: "sam"}}, decode[sectionView](t, rec).Props)
	assert.Equal(t, sample[:len(sample)-len("* B\n")]+"* B :q:r:\n:PROPERTIES:\n:OWNER: sam\n:END:\n", h.text(id))

	rec = h.json(http.MethodPatch, "/api/documents/"+id+"/sections/3/headline", `{"properties":{"bad key":"x"}}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestSections_GenerateID(t *testing.T) {
	h := newHarness(t)
	id := h.open(sample)

	rec := h.do(http.MethodPost, "/api/documents/"+id+"/sections/3/id", "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	props := decode[sectionView](t, rec).Props
	require.Len(t, props, 1)
	assert.Equal(t, "ID", props[0].Key)
	assert.Len(t, props[0].Value, 36)
	assert.Equal(t, sample[:len(sample)-len("* B\n")]+"* B\n:PROPERTIES:\n:ID: "+props[0].Value+"\n:END:\n", h.text(id))

	rec = h.do(http.MethodPost, "/api/documents/"+id+"/sections/3/id", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, props, decode[sectionView](t, rec).Props)

	rec = h.do(http.MethodPost, "/api/documents/"+id+"/sections/root/id", "", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestSections_Unwrap(t *testing.T) {
	h := newHarness(t)
	id := h.open(sample)

	rec := h.do(http.MethodPost, "/api/documents/"+id+"/sections/1/unwrap", "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "0", decode[sectionView](t, rec).ID)
	assert.Equal(t, "intro\n** A1\n* B\n", h.text(id))

	rec = h.do(http.MethodPost, "/api/documents/"+id+"/sections/root/unwrap", "", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestDocument_At(t *testing.T) {
	h := newHarness(t)
	id := h.open(sample)

	type atResponse struct {
		Section sectionView `json:"section"`
		Offset  int         `json:"offset"`
	}
	rec := h.do(http.MethodGet, "/api/documents/"+id+"/at?offset=8", "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got := decode[atResponse](t, rec)
	assert.Equal(t, "1", got.Section.ID)
	assert.Equal(t, 2, got.Offset)

	rec = h.do(http.MethodGet, "/api/documents/"+id+"/at?offset=0", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "0", decode[atResponse](t, rec).Section.ID)

	assert.Equal(t, http.StatusBadRequest, h.do(http.MethodGet, "/api/documents/"+id+"/at?offset=999", "", nil).Code)
	assert.Equal(t, http.StatusBadRequest, h.do(http.MethodGet, "/api/documents/"+id+"/at?offset=x", "", nil).Code)
}

func TestSections_AddChild(t *testing.T) {
	h := newHarness(t)
	id := h.open(sample)

	rec := h.json(http.MethodPost, "/api/documents/"+id+"/sections/3/children", `{"text":"** New\nnew body\n","position":0}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "3", decode[sectionView](t, rec).Parent)
	assert.Equal(t, sample+"** New\nnew body\n", h.text(id))

	rec = h.json(http.MethodPost, "/api/documents/"+id+"/sections/root/children", `{"clone":"1"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, sample+"** New\nnew body\n* TODO A :x:\nbody\n** A1\n", h.text(id))

	rec = h.json(http.MethodPost, "/api/documents/"+id+"/sections/2/children", `{"text":"* too shallow\n"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	rec = h.json(http.MethodPost, "/api/documents/"+id+"/sections/2/children", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSections_Move(t *testing.T) {
	h := newHarness(t)
	id := h.open(sample)

	rec := h.json(http.MethodPost, "/api/documents/"+id+"/sections/2/move", `{"parent":"3"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "intro\n* TODO A :x:\nbody\n* B\n** A1\n", h.text(id))

	rec = h.json(http.MethodPost, "/api/documents/"+id+"/sections/3/move", `{"parent":"2"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	rec = h.json(http.MethodPost, "/api/documents/"+id+"/sections/3/move", `{"parent":"root","position":0}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "intro\n* B\n** A1\n* TODO A :x:\nbody\n", h.text(id))
}

func TestSections_Remove(t *testing.T) {
	h := newHarness(t)
	id := h.open(sample)

	assert.Equal(t, http.StatusNoContent, h.do(http.MethodDelete, "/api/documents/"+id+"/sections/1", "", nil).Code)
	assert.Equal(t, "intro\n* B\n", h.text(id))
	// Removed sections are no longer addressable through the document.
	assert.Equal(t, http.StatusNotFound, h.do(http.MethodGet, "/api/documents/"+id+"/sections/2", "", nil).Code)
	assert.Equal(t, http.StatusConflict, h.do(http.MethodDelete, "/api/documents/"+id+"/sections/root", "", nil).Code)
}

func TestDocument_CompactAndChunks(t *testing.T) {
	h := newHarness(t)
	id := h.open(sample)
	h.do(http.MethodDelete, "/api/documents/"+id+"/sections/1", "", nil)

	rec := h.do(http.MethodPost, "/api/documents/"+id+"/compact", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	counts := decode[map[string]int](t, rec)
	assert.Equal(t, 4, counts["nodes_before"])
	assert.Equal(t, 2, counts["nodes_after"])
	assert.Equal(t, "intro\n* B\n", h.text(id))

	rec = h.do(http.MethodGet, "/api/documents/"+id+"/chunks", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"chunks":[`)
}

func TestMutationStats(t *testing.T) {
	h := newHarness(t)
	id := h.open(sample)
	h.json(http.MethodPut, "/api/documents/"+id+"/sections/1/raw", `{"raw":"no heading\n"}`)
	h.json(http.MethodPut, "/api/documents/"+id+"/sections/1/raw", `{"raw":"* A\n"}`)

	rec := h.do(http.MethodGet, "/api/stats/mutations", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[struct {
		Stats map[string]struct {
			Count    int `json:"count"`
			Rejected int `json:"rejected"`
		} `json:"stats"`
	}](t, rec)
	assert.Equal(t, 2, body.Stats["set_raw"].Count)
	assert.Equal(t, 1, body.Stats["set_raw"].Rejected)
}

func TestVerify_KeepOpensDocument(t *testing.T) {
	h := newHarness(t)
	rec := h.do(http.MethodPost, "/api/verify?filename=plan.org&keep=true", "text/plain", strings.NewReader(sample))
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	accepted := decode[map[string]any](t, rec)
	jobID, _ := accepted["job_id"].(string)
	require.NotEmpty(t, jobID)

	snap := waitForJob(t, h, jobID)
	assert.Equal(t, pipeline.StatusCompleted, snap.Status)
	assert.True(t, snap.Result.OK())
	require.NotEmpty(t, snap.Result.DocID)
	assert.Equal(t, sample, h.text(snap.Result.DocID))

	assert.Equal(t, http.StatusNotFound, h.do(http.MethodGet, "/api/verify/missing/status", "", nil).Code)
}

func TestVerify_Batch(t *testing.T) {
	h := newHarness(t)
	body, ct := multipartFiles(t, "files", map[string]string{
		"a.org":     "* a\n** b\n",
		"b.md":      "# title\n",
		"c.exe":     "MZ",
		"d.outline": "no headings at all",
	})
	rec := h.do(http.MethodPost, "/api/verify/batch", ct, body)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	resp := decode[struct {
		Jobs []map[string]any `json:"jobs"`
	}](t, rec)
	require.Len(t, resp.Jobs, 4)

	queued := 0
	for _, j := range resp.Jobs {
		if j["filename"] == "c.exe" {
			assert.Contains(t, j["error"], "unsupported")
			continue
		}
		jobID, _ := j["job_id"].(string)
		require.NotEmpty(t, jobID)
		snap := waitForJob(t, h, jobID)
		assert.Equal(t, pipeline.StatusCompleted, snap.Status, j["filename"])
		queued++
	}
	assert.Equal(t, 3, queued)
}

func waitForJob(t *testing.T, h *harness, jobID string) pipeline.JobSnapshot {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		rec := h.do(http.MethodGet, "/api/verify/"+jobID+"/status", "", nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		snap := decode[pipeline.JobSnapshot](t, rec)
		if snap.Done() {
			return snap
		}
		if time.Now().After(deadline) {
			t.Fatalf("job %s still %s", jobID, snap.Status)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func multipartFiles(t *testing.T, field string, files map[string]string) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for name, content := range files {
		fw, err := mw.CreateFormFile(field, name)
		require.NoError(t, err)
		_, err = io.WriteString(fw, content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestSanitizeFilename(t *testing.T) {
	tests := map[string]string{
		"notes.org":        "notes.org",
		"../../etc/passwd": "passwd",
		"a..b.md":          "a_b.md",
		"":                 "unnamed",
		"dir\\file.txt":    "dir_file.txt",
	}
	for in, want := range tests {
		assert.Equal(t, want, sanitizeFilename(in), in)
	}
}

package api

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dgallion1/orgtree/internal/chunker"
	"github.com/dgallion1/orgtree/internal/importer"
	"github.com/dgallion1/orgtree/internal/outline"
	"github.com/go-chi/chi/v5"
)

// readUpload returns the uploaded bytes and their filename. The body is
// either a multipart form with a "file" field or the document itself, named
// by the optional "filename" query parameter.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (string, []byte, bool) {
	// Limit total request size.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024) // extra 1MB for form overhead

	var (
		filename string
		src      io.Reader
	)
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
			return "", nil, false
		}
		defer r.MultipartForm.RemoveAll()
		file, header, err := r.FormFile("file")
		if err != nil {
			jsonError(w, "file is required: "+err.Error(), http.StatusBadRequest)
			return "", nil, false
		}
		defer file.Close()
		filename = sanitizeFilename(header.Filename)
		src = file
	} else {
		if name := r.URL.Query().Get("filename"); name != "" {
			filename = sanitizeFilename(name)
		}
		src = r.Body
	}

	if !acceptedFile(filename) {
		jsonError(w, fmt.Sprintf("unsupported file type: %s", filepath.Ext(filename)), http.StatusBadRequest)
		return "", nil, false
	}

	data, err := io.ReadAll(io.LimitReader(src, s.cfg.MaxUploadBytes+1))
	if err != nil {
		jsonError(w, "failed to read upload", http.StatusBadRequest)
		return "", nil, false
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		jsonError(w, fmt.Sprintf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
		return "", nil, false
	}
	return filename, data, true
}

// acceptedFile reports whether name is outline text or an importable format.
// Unnamed uploads and names without an extension are outline text.
func acceptedFile(name string) bool {
	return filepath.Ext(name) == "" || importer.IsNative(name) || importer.IsSupportedExtension(name)
}

func (s *Server) handleCreateDocument(w http.ResponseWriter, r *http.Request) {
	filename, data, ok := s.readUpload(w, r)
	if !ok {
		return
	}

	text := string(data)
	if filepath.Ext(filename) != "" && !importer.IsNative(filename) {
		out, err := importer.ToOutline(bytes.NewReader(data), filename, s.importOpts)
		if err != nil {
			jsonError(w, "import failed: "+err.Error(), http.StatusBadRequest)
			return
		}
		text = out
	}

	sess, err := s.sessions.Create(r.Context(), filename, text)
	if err != nil {
		writeError(w, err)
		return
	}
	s.log.Info("document opened", "doc_id", sess.ID, "filename", filename, "bytes", len(text))
	writeJSON(w, http.StatusCreated, sess.Info())
}

// handleGetDocument returns the emitted text, or the session summary with
// ?format=json.
func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Get(r.Context(), chi.URLParam(r, "docID"))
	if err != nil {
		writeError(w, err)
		return
	}

	var text string
	sess.View(func(doc *outline.Document) error {
		text = doc.Emit()
		return nil
	})

	if r.URL.Query().Get("format") == "json" {
		writeJSON(w, http.StatusOK, map[string]any{
			"info": sess.Info(),
			"text": text,
		})
		return
	}
	info := sess.Info()
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Revision", strconv.Itoa(info.Revision))
	if info.Filename != "" {
		w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", outlineName(info.Filename)))
	}
	io.WriteString(w, text)
}

// outlineName swaps an imported file's extension for .org.
func outlineName(name string) string {
	if importer.IsNative(name) {
		return name
	}
	return strings.TrimSuffix(name, filepath.Ext(name)) + ".org"
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "docID")
	if err := s.sessions.Delete(r.Context(), docID); err != nil {
		writeError(w, err)
		return
	}
	s.log.Info("document closed", "doc_id", docID)
	w.WriteHeader(http.StatusNoContent)
}

// handleCompact moves the document into a fresh arena. Section IDs change.
func (s *Server) handleCompact(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "docID")
	var before, after int
	err := s.stats.Time("compact", func() error {
		var err error
		before, after, err = s.sessions.Compact(r.Context(), docID)
		return err
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{
		"nodes_before": before,
		"nodes_after":  after,
	})
}

func (s *Server) handleChunks(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Get(r.Context(), chi.URLParam(r, "docID"))
	if err != nil {
		writeError(w, err)
		return
	}

	// Parse optional chunk config overrides.
	cfg := chunker.Config{
		ChunkSize:    s.cfg.DefaultChunkSize,
		ChunkOverlap: s.cfg.DefaultChunkOverlap,
		MinChunk:     100,
	}
	if v := r.URL.Query().Get("chunk_size"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.ChunkSize = n
		}
	}
	if v := r.URL.Query().Get("overlap"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.ChunkOverlap = n
		}
	}

	var chunks []chunker.Chunk
	sess.View(func(doc *outline.Document) error {
		chunks = chunker.ChunkDocument(doc, s.keywords, cfg)
		return nil
	})
	if chunks == nil {
		chunks = []chunker.Chunk{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"doc_id": sess.ID,
		"chunks": chunks,
	})
}

// handleAt maps a byte offset of the emitted document to the section that
// produced it.
func (s *Server) handleAt(w http.ResponseWriter, r *http.Request) {
	pos, err := strconv.Atoi(r.URL.Query().Get("offset"))
	if err != nil {
		jsonError(w, "offset must be an integer", http.StatusBadRequest)
		return
	}
	sess, err := s.sessions.Get(r.Context(), chi.URLParam(r, "docID"))
	if err != nil {
		writeError(w, err)
		return
	}

	var (
		v     sectionView
		local int
		found bool
	)
	sess.View(func(doc *outline.Document) error {
		var sec outline.Section
		if sec, local, found = doc.At(pos); found {
			v = s.view(sec, false)
		}
		return nil
	})
	if !found {
		jsonError(w, "offset out of range", http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"section": v,
		"offset":  local,
	})
}

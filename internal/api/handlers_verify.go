package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dgallion1/orgtree/internal/pipeline"
	"github.com/go-chi/chi/v5"
)

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	filename, data, ok := s.readUpload(w, r)
	if !ok {
		return
	}
	keep := wantKeep(r)

	job := pipeline.NewJob(filename, data, keep)
	if err := s.orchestrator.Submit(job); err != nil {
		code := http.StatusInternalServerError
		if errors.Is(err, pipeline.ErrQueueFull) {
			code = http.StatusServiceUnavailable
		}
		jsonError(w, err.Error(), code)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"job_id":   job.ID,
		"filename": filename,
		"status":   pipeline.StatusQueued,
		"poll_url": pollURL(job.ID),
	})
}

// wantKeep reads the "keep" flag from the query or a parsed form.
func wantKeep(r *http.Request) bool {
	v := r.URL.Query().Get("keep")
	if v == "" && r.MultipartForm != nil {
		v = r.FormValue("keep")
	}
	b, _ := strconv.ParseBool(v)
	return b
}

func pollURL(jobID string) string {
	return fmt.Sprintf("/api/verify/%s/status", jobID)
}

func (s *Server) handleVerifyStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	snap, ok, err := s.orchestrator.Status(r.Context(), jobID)
	if err != nil {
		jsonError(w, "job lookup failed: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if !ok {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleBatchVerify(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes*10+10*1024*1024)

	if err := r.ParseMultipartForm(64 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		jsonError(w, "at least one file is required", http.StatusBadRequest)
		return
	}
	keep := wantKeep(r)

	var results []map[string]any
	for _, fh := range files {
		filename := sanitizeFilename(fh.Filename)
		if !acceptedFile(filename) {
			results = append(results, map[string]any{
				"filename": filename,
				"error":    fmt.Sprintf("unsupported file type: %s", filepath.Ext(filename)),
			})
			continue
		}

		f, err := fh.Open()
		if err != nil {
			results = append(results, map[string]any{
				"filename": filename,
				"error":    "failed to open file",
			})
			continue
		}

		data, err := io.ReadAll(io.LimitReader(f, s.cfg.MaxUploadBytes+1))
		f.Close()
		if err != nil || int64(len(data)) > s.cfg.MaxUploadBytes {
			results = append(results, map[string]any{
				"filename": filename,
				"error":    "file too large or read error",
			})
			continue
		}

		job := pipeline.NewJob(filename, data, keep)
		if err := s.orchestrator.Submit(job); err != nil {
			results = append(results, map[string]any{
				"filename": filename,
				"error":    err.Error(),
			})
			continue
		}

		results = append(results, map[string]any{
			"filename": filename,
			"job_id":   job.ID,
			"status":   pipeline.StatusQueued,
			"poll_url": pollURL(job.ID),
		})
	}

	writeJSON(w, http.StatusAccepted, map[string]any{"jobs": results})
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(name)
	// Remove any path separators that might have survived.
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." {
		name = "unnamed"
	}
	return name
}

package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dgallion1/orgtree/internal/headline"
	"github.com/dgallion1/orgtree/internal/outline"
	"github.com/dgallion1/orgtree/internal/session"
)

var (
	errSectionNotFound = errors.New("section not found")
	errRootSection     = errors.New("operation not allowed on the document root")
)

// writeError maps domain errors onto status codes.
func writeError(w http.ResponseWriter, err error) {
	var sv *outline.StructureViolation
	switch {
	case errors.As(err, &sv):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":  sv.Reason,
			"line":   sv.Line,
			"offset": sv.Offset,
		})
	case errors.Is(err, session.ErrNotFound):
		jsonError(w, "document not found", http.StatusNotFound)
	case errors.Is(err, errSectionNotFound), errors.Is(err, outline.ErrUnknownNode):
		jsonError(w, errSectionNotFound.Error(), http.StatusNotFound)
	case errors.Is(err, outline.ErrCrossArenaReference), errors.Is(err, errRootSection),
		errors.Is(err, headline.ErrNotHeadline):
		jsonError(w, err.Error(), http.StatusConflict)
	case errors.Is(err, outline.ErrInvalidUTF8):
		jsonError(w, err.Error(), http.StatusBadRequest)
	case isHeadlineError(err):
		jsonError(w, err.Error(), http.StatusUnprocessableEntity)
	default:
		jsonError(w, err.Error(), http.StatusInternalServerError)
	}
}

func isHeadlineError(err error) bool {
	for _, target := range []error{
		headline.ErrInvalidLevel,
		headline.ErrInvalidKeyword,
		headline.ErrInvalidPriority,
		headline.ErrInvalidTags,
		headline.ErrInvalidTitle,
		headline.ErrInvalidPlanning,
		headline.ErrInvalidBody,
		headline.ErrInvalidProperty,
		headline.ErrNonEquivalentReparse,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

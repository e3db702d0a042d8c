package api

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"mime"
	"net/http"
	"slices"

	"github.com/dgallion1/orgtree/internal/headline"
	"github.com/dgallion1/orgtree/internal/outline"
	"github.com/go-chi/chi/v5"
)

// sectionView is the JSON form of a node. Only single-section responses
// fill Raw, Headline and Props.
type sectionView struct {
	ID       string              `json:"id"`
	Level    int                 `json:"level"`
	Title    string              `json:"title"`
	Keyword  string              `json:"keyword,omitempty"`
	Priority string              `json:"priority,omitempty"`
	Tags     []string            `json:"tags,omitempty"`
	Parent   string              `json:"parent,omitempty"`
	Raw      *string             `json:"raw,omitempty"`
	Headline *headline.Headline  `json:"headline,omitempty"`
	Props    []headline.Property `json:"properties,omitempty"`
	Children []sectionView       `json:"children,omitempty"`
}

// lookup resolves a section ID within doc. "root" names the document root.
// Detached nodes and nodes of other documents sharing the arena are not
// found.
func lookup(doc *outline.Document, id string) (outline.Section, error) {
	if id == "root" {
		return doc.Root(), nil
	}
	nid, err := doc.Arena().ParseID(id)
	if err != nil {
		return outline.Section{}, errSectionNotFound
	}
	sec, err := doc.Arena().Resolve(nid)
	if err != nil {
		return outline.Section{}, err
	}
	if sec.Root().ID() != doc.Root().ID() {
		return outline.Section{}, errSectionNotFound
	}
	return sec, nil
}

func (s *Server) view(sec outline.Section, full bool) sectionView {
	v := sectionView{ID: sec.ID().String(), Level: sec.Level()}
	if p, ok := sec.Parent(); ok {
		v.Parent = p.ID().String()
	}
	if !sec.IsRoot() {
		if h, err := headline.Read(sec, s.keywords); err == nil {
			v.Title = h.Title
			v.Keyword = h.Keyword
			v.Priority = h.PriorityString()
			v.Tags = h.Tags
			if full {
				v.Headline = &h
				v.Props, _ = headline.Drawer{}.Properties(h.Body)
			}
		} else {
			v.Title = sec.HeadingLine()
		}
	}
	if full {
		raw := sec.Raw()
		v.Raw = &raw
	}
	return v
}

func (s *Server) tree(sec outline.Section) sectionView {
	v := s.view(sec, false)
	for c := range sec.Children() {
		v.Children = append(v.Children, s.tree(c))
	}
	return v
}

func (s *Server) handleSectionTree(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Get(r.Context(), chi.URLParam(r, "docID"))
	if err != nil {
		writeError(w, err)
		return
	}
	var root sectionView
	sess.View(func(doc *outline.Document) error {
		root = s.tree(doc.Root())
		return nil
	})
	writeJSON(w, http.StatusOK, root)
}

func (s *Server) handleGetSection(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Get(r.Context(), chi.URLParam(r, "docID"))
	if err != nil {
		writeError(w, err)
		return
	}
	var v sectionView
	err = sess.View(func(doc *outline.Document) error {
		sec, err := lookup(doc, chi.URLParam(r, "sectionID"))
		if err != nil {
			return err
		}
		v = s.view(sec, true)
		return nil
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// mutate runs fn against the addressed section under the session lock and
// records it in the mutation stats under op.
func (s *Server) mutate(w http.ResponseWriter, r *http.Request, op string, code int, fn func(doc *outline.Document, sec outline.Section) (outline.Section, error)) {
	docID := chi.URLParam(r, "docID")
	var result sectionView
	_, err := s.sessions.Update(r.Context(), docID, func(doc *outline.Document) error {
		sec, err := lookup(doc, chi.URLParam(r, "sectionID"))
		if err != nil {
			return err
		}
		return s.stats.Time(op, func() error {
			out, err := fn(doc, sec)
			if err != nil {
				return err
			}
			if !out.IsZero() {
				result = s.view(out, true)
			}
			return nil
		})
	})
	if err != nil {
		writeError(w, err)
		return
	}
	if code == http.StatusNoContent {
		w.WriteHeader(code)
		return
	}
	writeJSON(w, code, result)
}

const maxJSONBody = 1 << 20

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		jsonError(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

// handleSetRaw replaces a section's text. The body is either the text
// itself or JSON {"raw": "..."}.
func (s *Server) handleSetRaw(w http.ResponseWriter, r *http.Request) {
	var raw string
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		var req struct {
			Raw *string `json:"raw"`
		}
		if !decodeJSON(w, r, &req) {
			return
		}
		if req.Raw == nil {
			jsonError(w, "raw is required", http.StatusBadRequest)
			return
		}
		raw = *req.Raw
	} else {
		data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes))
		if err != nil {
			jsonError(w, "failed to read body", http.StatusBadRequest)
			return
		}
		raw = string(data)
	}

	s.mutate(w, r, "set_raw", http.StatusOK, func(_ *outline.Document, sec outline.Section) (outline.Section, error) {
		return sec, sec.SetRaw(raw)
	})
}

func (s *Server) handleSetLevel(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Level *int `json:"level"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Level == nil {
		jsonError(w, "level is required", http.StatusBadRequest)
		return
	}
	s.mutate(w, r, "set_level", http.StatusOK, func(_ *outline.Document, sec outline.Section) (outline.Section, error) {
		return sec, sec.SetLevel(*req.Level)
	})
}

// headlinePatch names the fields to change; nil fields are left alone.
type headlinePatch struct {
	Level      *int               `json:"level"`
	Keyword    *string            `json:"keyword"`
	Priority   *string            `json:"priority"`
	Commented  *bool              `json:"commented"`
	Title      *string            `json:"title"`
	Tags       *[]string          `json:"tags"`
	AddTags    []string           `json:"add_tags"`
	RemoveTags []string           `json:"remove_tags"`
	Planning   *headline.Planning `json:"planning"`
	Body       *string            `json:"body"`
	Properties map[string]string  `json:"properties"`
	ClearProps []string           `json:"clear_properties"`
}

func (p headlinePatch) apply(h *headline.Headline) error {
	h.Tags = slices.Clone(h.Tags)
	if p.Level != nil {
		h.Level = *p.Level
	}
	if p.Keyword != nil {
		h.Keyword = *p.Keyword
	}
	if p.Priority != nil {
		switch len(*p.Priority) {
		case 0:
			h.Priority = 0
		case 1:
			h.Priority = (*p.Priority)[0]
		default:
			return fmt.Errorf("%w: %q", headline.ErrInvalidPriority, *p.Priority)
		}
	}
	if p.Commented != nil {
		h.Commented = *p.Commented
	}
	if p.Title != nil {
		h.Title = *p.Title
	}
	if p.Tags != nil {
		h.Tags = append([]string(nil), (*p.Tags)...)
		h.CanonicalTags()
	}
	h.AddTags(p.AddTags...)
	for _, t := range p.RemoveTags {
		h.RemoveTag(t)
	}
	if p.Planning != nil {
		h.Planning = *p.Planning
	}
	if p.Body != nil {
		h.Body = *p.Body
	}
	for _, k := range p.ClearProps {
		if err := h.ClearProperty(headline.Drawer{}, k); err != nil {
			return err
		}
	}
	for _, k := range slices.Sorted(maps.Keys(p.Properties)) {
		if err := h.SetProperty(headline.Drawer{}, k, p.Properties[k]); err != nil {
			return err
		}
	}
	return nil
}

func (s *Server) handlePatchHeadline(w http.ResponseWriter, r *http.Request) {
	var patch headlinePatch
	if !decodeJSON(w, r, &patch) {
		return
	}
	s.mutate(w, r, "headline", http.StatusOK, func(_ *outline.Document, sec outline.Section) (outline.Section, error) {
		h, err := headline.Read(sec, s.keywords)
		if err != nil {
			return sec, err
		}
		if err := patch.apply(&h); err != nil {
			return sec, err
		}
		return sec, headline.Write(sec, h, s.keywords)
	})
}

// handleGenerateID gives the section an ID property unless it has one.
func (s *Server) handleGenerateID(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, "generate_id", http.StatusOK, func(_ *outline.Document, sec outline.Section) (outline.Section, error) {
		h, err := headline.Read(sec, s.keywords)
		if err != nil {
			return sec, err
		}
		if _, err := h.GenerateID(headline.Drawer{}); err != nil {
			return sec, err
		}
		return sec, headline.Write(sec, h, s.keywords)
	})
}

// handleAddChild attaches a new subtree under the section, built from text
// or cloned from another section of the same document.
func (s *Server) handleAddChild(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text     *string `json:"text"`
		Clone    string  `json:"clone"`
		Position *int    `json:"position"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if (req.Text == nil) == (req.Clone == "") {
		jsonError(w, "exactly one of text or clone is required", http.StatusBadRequest)
		return
	}
	pos := -1
	if req.Position != nil {
		pos = *req.Position
	}

	s.mutate(w, r, "insert", http.StatusCreated, func(doc *outline.Document, parent outline.Section) (outline.Section, error) {
		var child outline.Section
		if req.Text != nil {
			var err error
			if child, err = doc.Arena().NewSection(*req.Text); err != nil {
				return outline.Section{}, err
			}
		} else {
			src, err := lookup(doc, req.Clone)
			if err != nil {
				return outline.Section{}, err
			}
			if src.IsRoot() {
				return outline.Section{}, errRootSection
			}
			child = src.CloneSubtree()
		}
		if err := child.Attach(parent, pos); err != nil {
			return outline.Section{}, err
		}
		return child, nil
	})
}

// handleMove reattaches the section under a new parent at a position.
func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Parent   string `json:"parent"`
		Position *int   `json:"position"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Parent == "" {
		jsonError(w, "parent is required", http.StatusBadRequest)
		return
	}
	pos := -1
	if req.Position != nil {
		pos = *req.Position
	}
	s.mutate(w, r, "move", http.StatusOK, func(doc *outline.Document, sec outline.Section) (outline.Section, error) {
		if sec.IsRoot() {
			return sec, errRootSection
		}
		parent, err := lookup(doc, req.Parent)
		if err != nil {
			return sec, err
		}
		return sec, sec.Attach(parent, pos)
	})
}

// handleUnwrap removes the section's own text and puts its children in its
// place. The response is the former parent.
func (s *Server) handleUnwrap(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, "unwrap", http.StatusOK, func(_ *outline.Document, sec outline.Section) (outline.Section, error) {
		parent, ok := sec.Parent()
		if !ok {
			return outline.Section{}, errRootSection
		}
		if err := sec.ReplaceWithChildren(); err != nil {
			return outline.Section{}, err
		}
		return parent, nil
	})
}

func (s *Server) handleRemoveSection(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, "remove", http.StatusNoContent, func(_ *outline.Document, sec outline.Section) (outline.Section, error) {
		if sec.IsRoot() {
			return outline.Section{}, errRootSection
		}
		sec.RemoveSubtree()
		return outline.Section{}, nil
	})
}

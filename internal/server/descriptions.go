package server

import (
	"net/http"
	"strings"
)

type descriptionRequest struct {
	DB          string `json:"db"`
	Table       string `json:"table_name"`
	Description string `json:"description"`
}

// Descriptions returns the description of ?table=, or all descriptions of
// ?db= when no table is given.
func (s *Server) Descriptions(w http.ResponseWriter, r *http.Request) {
	db, table := r.URL.Query().Get("db"), r.URL.Query().Get("table")
	if table == "" {
		all, err := s.store.Descriptions(r.Context(), db)
		if err != nil {
			s.respondError(w, r, err, "Failed to read descriptions")
			return
		}
		respondJSON(w, http.StatusOK, map[string]interface{}{"descriptions": all})
		return
	}

	d, err := s.store.Description(r.Context(), db, table)
	if err != nil {
		s.respondError(w, r, err, "Failed to read description")
		return
	}
	respondJSON(w, http.StatusOK, d)
}

// UpdateDescription stores a table description.
func (s *Server) UpdateDescription(w http.ResponseWriter, r *http.Request) {
	var req descriptionRequest
	if err := decodeBody(r, &req); err != nil {
		s.respondError(w, r, err, "Failed to update description")
		return
	}
	if req.Table == "" {
		s.respondError(w, r, invalid("table_name is required"), "Failed to update description")
		return
	}
	d, err := s.store.SetDescription(r.Context(), req.DB, req.Table, strings.TrimSpace(req.Description))
	if err != nil {
		s.respondError(w, r, err, "Failed to update description")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message":     "Description updated successfully",
		"description": d,
	})
}

// GenerateDescription drafts a description of a table with the model. The
// draft is not stored.
func (s *Server) GenerateDescription(w http.ResponseWriter, r *http.Request) {
	var req descriptionRequest
	if err := decodeBody(r, &req); err != nil {
		s.respondError(w, r, err, "Failed to generate description")
		return
	}
	if s.ai == nil {
		s.respondError(w, r, errNoAssistant, "Failed to generate description")
		return
	}
	if req.Table == "" {
		s.respondError(w, r, invalid("table_name is required"), "Failed to generate description")
		return
	}
	text, err := s.ai.Describer.DescribeTable(r.Context(), s.store, req.DB, req.Table)
	if err != nil {
		s.respondError(w, r, err, "Failed to generate description")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"description": text})
}

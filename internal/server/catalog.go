package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/go-chi/chi/v5"
)

// Databases lists every queryable database.
func (s *Server) Databases(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"databases": s.store.ListDatabases(),
	})
}

// Tables lists the tables of ?db=.
func (s *Server) Tables(w http.ResponseWriter, r *http.Request) {
	db := r.URL.Query().Get("db")
	tables, err := s.store.ListTables(r.Context(), db)
	if err != nil {
		s.respondError(w, r, err, "Failed to list tables")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"database": db,
		"tables":   tables,
	})
}

// Schema describes ?table= of ?db=.
func (s *Server) Schema(w http.ResponseWriter, r *http.Request) {
	db, table := r.URL.Query().Get("db"), r.URL.Query().Get("table")
	if table == "" {
		s.respondError(w, r, invalid("table parameter is required"), "Failed to retrieve schema")
		return
	}
	cols, err := s.store.TableSchema(r.Context(), db, table)
	if err != nil {
		s.respondError(w, r, err, "Failed to retrieve schema")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"table":  table,
		"schema": cols,
	})
}

type queryRequest struct {
	DB    string `json:"db"`
	Query string `json:"query"`
}

// Query executes raw SQL.
func (s *Server) Query(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := decodeBody(r, &req); err != nil {
		s.respondError(w, r, err, "Error executing query")
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		s.respondError(w, r, invalid("query is required"), "Error executing query")
		return
	}

	ds, err := s.store.Execute(r.Context(), req.DB, req.Query)
	if err != nil {
		if statusFor(err) == http.StatusInternalServerError {
			err = badRequest{err}
		}
		s.respondError(w, r, err, "Error executing query")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"data":    ds,
		"columns": ds.Columns(),
		"message": fmt.Sprintf("Query executed successfully. Found %s rows.", humanize.Comma(int64(ds.Len()))),
		"query":   req.Query,
	})
}

type connectRequest struct {
	Name   string `json:"name"`
	Driver string `json:"driver"`
	DSN    string `json:"dsn"`
}

// Connect registers a new database connection.
func (s *Server) Connect(w http.ResponseWriter, r *http.Request) {
	var req connectRequest
	if err := decodeBody(r, &req); err != nil {
		s.respondError(w, r, err, "Error establishing connection")
		return
	}
	if req.Name == "" || req.DSN == "" {
		s.respondError(w, r, invalid("name and dsn are required"), "Error establishing connection")
		return
	}

	db, err := s.store.Connect(r.Context(), req.Name, req.Driver, req.DSN)
	if err != nil {
		s.respondError(w, r, err, "Error establishing connection")
		return
	}
	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"message":  fmt.Sprintf("Connection to %s established successfully!", db.Name),
		"status":   "connected",
		"database": db,
	})
}

// Disconnect closes a registered connection.
func (s *Server) Disconnect(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := s.store.Disconnect(name); err != nil {
		s.respondError(w, r, err, "Error closing connection")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Connection %s closed", name),
	})
}

// TestConnections pings every database.
func (s *Server) TestConnections(w http.ResponseWriter, r *http.Request) {
	statuses := s.store.TestConnections(r.Context())
	status := "connected"
	for _, st := range statuses {
		if !st.OK {
			status = "degraded"
		}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":      status,
		"connections": statuses,
	})
}

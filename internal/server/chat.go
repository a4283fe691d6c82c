package server

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"bichat/internal/nlsql"
	"bichat/internal/store"
)

type askRequest struct {
	Question    string `json:"question"`
	DB          string `json:"db"`
	CompanyCode string `json:"company_code"`
	CompanyName string `json:"company_name"`
}

type askFunc func(ctx context.Context, db, question string, opts ...nlsql.AskOption) (*nlsql.Answer, error)

// Agent answers a question over every table of the database.
func (s *Server) Agent(w http.ResponseWriter, r *http.Request) {
	if s.ai == nil {
		s.respondError(w, r, errNoAssistant, "Error processing question")
		return
	}
	s.ask(w, r, s.ai.Ask)
}

// MultiAgent routes the question to one table before answering.
func (s *Server) MultiAgent(w http.ResponseWriter, r *http.Request) {
	if s.ai == nil {
		s.respondError(w, r, errNoAssistant, "Error processing question")
		return
	}
	s.ask(w, r, s.ai.MultiAgent)
}

func (s *Server) ask(w http.ResponseWriter, r *http.Request, fn askFunc) {
	var req askRequest
	if err := decodeBody(r, &req); err != nil {
		s.respondError(w, r, err, "Error processing question")
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		s.respondError(w, r, invalid("question is required"), "Error processing question")
		return
	}

	ans, err := fn(r.Context(), req.DB, req.Question, nlsql.WithScope(req.CompanyCode, req.CompanyName))
	if err != nil {
		s.respondError(w, r, err, "Error processing question")
		return
	}

	turn := store.Turn{
		Database: req.DB,
		Question: req.Question,
		SQL:      ans.SQL,
		Answer:   ans.Answer,
		RowCount: ans.Data.Len(),
	}
	if _, err := s.store.SaveTurn(r.Context(), turn); err != nil {
		s.logger.Warn("Failed to save chat history", "error", err)
	}
	respondJSON(w, http.StatusOK, ans)
}

// Agent names reported by MultiAgentStatus.
var multiAgents = []string{"router-agent", "sql-generator-agent", "query-executor", "description-agent"}

type multiAgentStatus struct {
	Status    string   `json:"status"`
	System    string   `json:"system"`
	Assistant bool     `json:"assistant_configured"`
	Database  string   `json:"database"`
	Agents    []string `json:"agents"`
	Tables    []string `json:"available_tables"`
}

// MultiAgentStatus reports whether routed answering is available and which
// tables it can route to.
func (s *Server) MultiAgentStatus(w http.ResponseWriter, r *http.Request) {
	db := r.URL.Query().Get("db")
	tables, err := s.store.ListTables(r.Context(), db)
	if err != nil {
		s.respondError(w, r, err, "Failed to read multi-agent status")
		return
	}
	status := "operational"
	if s.ai == nil {
		status = "unavailable"
	}
	name := db
	if name == "" {
		name = store.WorkspaceName
	}
	respondJSON(w, http.StatusOK, multiAgentStatus{
		Status:    status,
		System:    "multi-agent-orchestration",
		Assistant: s.ai != nil,
		Database:  name,
		Agents:    multiAgents,
		Tables:    tables,
	})
}

// History returns the most recent turns, newest first.
func (s *Server) History(w http.ResponseWriter, r *http.Request) {
	limit := historyLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			s.respondError(w, r, invalid("invalid limit %q", v), "Failed to read history")
			return
		}
		limit = n
	}
	turns, err := s.store.History(r.Context(), limit)
	if err != nil {
		s.respondError(w, r, err, "Failed to read history")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"history": turns})
}

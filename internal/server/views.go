package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"

	"bichat/internal/chart"
	"bichat/internal/dataset"
	"bichat/internal/table"
)

type tableViewRequest struct {
	Data  json.RawMessage `json:"data"`
	State *table.State    `json:"state"`
	Op    *table.Op       `json:"op"`
}

// TableView applies one table operation to the posted records and state and
// returns the resulting page.
func (s *Server) TableView(w http.ResponseWriter, r *http.Request) {
	var req tableViewRequest
	if err := decodeBody(r, &req); err != nil {
		s.respondError(w, r, err, "Failed to build table view")
		return
	}
	ds, err := dataset.FromJSON(req.Data)
	if err != nil {
		s.respondError(w, r, err, "Failed to build table view")
		return
	}

	var v table.Viewer
	if req.State != nil {
		v = table.Restore(ds, *req.State)
	} else {
		v = table.New(ds).SetPageSize(s.cfg.PageSize)
	}
	if req.Op != nil {
		if v, err = v.Apply(*req.Op); err != nil {
			s.respondError(w, r, badRequest{err}, "Failed to build table view")
			return
		}
	}
	respondJSON(w, http.StatusOK, v.View())
}

type chartViewRequest struct {
	Data json.RawMessage `json:"data"`
	X    string          `json:"x"`
	Y    string          `json:"y"`
}

// ChartView builds the bar chart of the posted records. With ?format=svg or
// ?format=png the chart is rendered as an image; when there is nothing to
// draw the JSON view is returned instead.
func (s *Server) ChartView(w http.ResponseWriter, r *http.Request) {
	var req chartViewRequest
	if err := decodeBody(r, &req); err != nil {
		s.respondError(w, r, err, "Failed to build chart")
		return
	}
	ds, err := dataset.FromJSON(req.Data)
	if err != nil {
		s.respondError(w, r, err, "Failed to build chart")
		return
	}
	c := chart.Restore(ds, chart.Selection{X: req.X, Y: req.Y})

	q := r.URL.Query()
	format := q.Get("format")
	if format != "svg" && format != "png" {
		respondJSON(w, http.StatusOK, c.View())
		return
	}

	size := chart.Size{Width: atoiOr(q.Get("width"), 0), Height: atoiOr(q.Get("height"), 0)}
	var (
		buf         bytes.Buffer
		contentType string
	)
	if format == "svg" {
		contentType = "image/svg+xml"
		err = c.SVG(&buf, size)
	} else {
		contentType = "image/png"
		err = c.PNG(&buf, size)
	}
	if err != nil {
		s.logger.Warn("Chart render failed, returning JSON view", "error", err, "format", format)
		respondJSON(w, http.StatusOK, c.View())
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

func atoiOr(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

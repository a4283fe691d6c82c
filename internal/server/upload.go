package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/dustin/go-humanize"

	"bichat/internal/dataset"
	"bichat/internal/ingest"
)

type upload struct {
	name string
	size int64
	data *dataset.Dataset
}

// readUpload parses the multipart "file" field.
func (s *Server) readUpload(r *http.Request) (*upload, error) {
	if err := r.ParseMultipartForm(s.cfg.MaxUploadBytes); err != nil {
		return nil, invalid("invalid upload (limit %s): %v", humanize.Bytes(uint64(s.cfg.MaxUploadBytes)), err)
	}
	f, hdr, err := r.FormFile("file")
	if err != nil {
		return nil, invalid("file field is required: %v", err)
	}
	defer f.Close()

	ds, err := ingest.Read(hdr.Filename, f)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Upload parsed", "file", hdr.Filename, "size", humanize.Bytes(uint64(hdr.Size)), "rows", ds.Len())
	return &upload{name: hdr.Filename, size: hdr.Size, data: ds}, nil
}

// NullColumns reports the columns of an upload that hold no values.
func (s *Server) NullColumns(w http.ResponseWriter, r *http.Request) {
	up, err := s.readUpload(r)
	if err != nil {
		s.respondError(w, r, err, "Error processing file")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"null_cols": ingest.NullColumns(up.data),
		"columns":   up.data.Columns(),
		"rows":      up.data.Len(),
		"file_name": up.name,
		"size":      humanize.Bytes(uint64(up.size)),
	})
}

// Preprocess drops the null_cols form values and empty rows from an upload
// and returns the remaining records.
func (s *Server) Preprocess(w http.ResponseWriter, r *http.Request) {
	up, err := s.readUpload(r)
	if err != nil {
		s.respondError(w, r, err, "Error preprocessing file")
		return
	}
	ds, err := ingest.Preprocess(up.data, formList(r, "null_cols"))
	if err != nil {
		s.respondError(w, r, err, "Error preprocessing file")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"data":    ds,
		"columns": ds.Columns(),
	})
}

// formList accepts both repeated fields and a single comma separated value.
func formList(r *http.Request, key string) []string {
	var out []string
	for _, v := range r.MultipartForm.Value[key] {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// Upload ingests a file straight into ?table= (default: derived from the
// file name) of ?db=.
func (s *Server) Upload(w http.ResponseWriter, r *http.Request) {
	up, err := s.readUpload(r)
	if err != nil {
		s.respondError(w, r, err, "Error uploading file")
		return
	}
	tableName := strings.TrimSpace(r.URL.Query().Get("table"))
	if tableName == "" {
		tableName = ingest.TableName(up.name)
	}

	cleaned, err := ingest.Prepare(up.data)
	if err != nil {
		s.respondError(w, r, fmt.Errorf("no valid data remaining after cleaning: %w", err), "Error uploading file")
		return
	}
	res, err := s.store.Ingest(r.Context(), r.URL.Query().Get("db"), tableName, cleaned)
	if err != nil {
		s.respondError(w, r, err, "Error uploading file")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message":             fmt.Sprintf("File successfully uploaded to %s", res.Table),
		"rows_inserted":       res.RowsInserted,
		"table_name":          res.Table,
		"database_name":       res.Database,
		"columns":             res.Columns,
		"data_types":          res.DataTypes,
		"original_data_count": up.data.Len(),
		"cleaned_data_count":  cleaned.Len(),
		"file_name":           up.name,
		"data":                res.Preview,
	})
}

type ingestRequest struct {
	DB    string          `json:"db"`
	Table string          `json:"table_name"`
	Data  json.RawMessage `json:"data"`
}

// Ingest stores previously preprocessed records.
func (s *Server) Ingest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := decodeBody(r, &req); err != nil {
		s.respondError(w, r, err, "Error ingesting data")
		return
	}
	if strings.TrimSpace(req.Table) == "" {
		s.respondError(w, r, invalid("table name is required"), "Error ingesting data")
		return
	}
	ds, err := dataset.FromJSON(req.Data)
	if err != nil {
		s.respondError(w, r, err, "Error ingesting data")
		return
	}
	if ds.IsEmpty() {
		s.respondError(w, r, invalid("no data provided for ingestion"), "Error ingesting data")
		return
	}

	res, err := s.store.Ingest(r.Context(), req.DB, req.Table, ingest.CleanColumns(ds))
	if err != nil {
		s.respondError(w, r, err, "Error ingesting data")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message": fmt.Sprintf("Data successfully ingested into %s", res.Table),
		"result":  res,
	})
}

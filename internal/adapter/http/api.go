package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/couchcryptid/climate-dashboard/internal/chart"
	"github.com/couchcryptid/climate-dashboard/internal/dashboard"
	"github.com/couchcryptid/climate-dashboard/internal/domain"
	"github.com/couchcryptid/climate-dashboard/internal/export"
	"github.com/couchcryptid/climate-dashboard/internal/settings"
	"github.com/gorilla/mux"
)

const maxBodyBytes = 1 << 16

type optionsResponse struct {
	Regions    []string `json:"regions"`
	Parameters []string `json:"parameters"`
	Years      []int    `json:"years"`
	Months     []string `json:"months"`
}

type filterPatch struct {
	Field string `json:"field"`
	Value any    `json:"value"`
}

// value accepts JSON strings and numbers so years can be sent either way.
func (p filterPatch) value() (string, error) {
	switch v := p.Value.(type) {
	case string:
		return v, nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	default:
		return "", fmt.Errorf("value must be a string or number, got %T", p.Value)
	}
}

type themeBody struct {
	Theme string `json:"theme"`
}

func (s *Server) handleState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.dash.Snapshot())
}

func (s *Server) handleOptions(w http.ResponseWriter, _ *http.Request) {
	snap := s.dash.Snapshot()
	writeJSON(w, http.StatusOK, optionsResponse{
		Regions:    snap.Regions,
		Parameters: snap.Parameters,
		Years:      snap.Years,
		Months:     snap.Months,
	})
}

func (s *Server) handlePatchFilter(w http.ResponseWriter, r *http.Request) {
	var patch filterPatch
	if err := decodeBody(w, r, &patch); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	field, err := domain.ParseField(patch.Field)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	value, err := patch.value()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	snap, err := s.dash.UpdateFilter(field, value)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleFetch(w http.ResponseWriter, r *http.Request) {
	snap, err := s.dash.Fetch(r.Context())
	switch {
	case errors.Is(err, dashboard.ErrFetchInProgress):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, context.Canceled):
		s.logger.Debug("fetch abandoned by client", "error", err)
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		writeJSON(w, http.StatusOK, snap)
	}
}

func (s *Server) handleGetTheme(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, themeBody{Theme: string(s.dash.Snapshot().Theme)})
}

func (s *Server) handlePutTheme(w http.ResponseWriter, r *http.Request) {
	var body themeBody
	if err := decodeBody(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	theme, err := settings.ParseTheme(body.Theme)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	snap, err := s.dash.SetTheme(r.Context(), theme)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, themeBody{Theme: string(snap.Theme)})
}

func (s *Server) handleExportCSV(w http.ResponseWriter, _ *http.Request) {
	snap := s.dash.Snapshot()
	body, err := export.CSV(snap.Result.Matches)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.metrics.Exports.WithLabelValues("csv").Inc()
	writeAttachment(w, export.CSVContentType, export.CSVFilename, body)
}

func (s *Server) handleExportXLSX(w http.ResponseWriter, _ *http.Request) {
	snap := s.dash.Snapshot()
	var buf bytes.Buffer
	if err := export.WriteXLSX(&buf, snap.Result.Matches, snap.Result.Stats, snap.Unit()); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.metrics.Exports.WithLabelValues("xlsx").Inc()
	writeAttachment(w, export.XLSXContentType, export.XLSXFilename, buf.Bytes())
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	format := chart.Format(mux.Vars(r)["format"])
	snap := s.dash.Snapshot()
	parameter := snap.ResultFilters.Parameter

	var buf bytes.Buffer
	err := chart.Write(&buf, snap.Result.Matches, parameter, format)
	if errors.Is(err, chart.ErrNoData) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.metrics.Exports.WithLabelValues(string(format)).Inc()
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func writeAttachment(w http.ResponseWriter, contentType, filename string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode request body: %w", err)
	}
	return nil
}

package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/schema"

	"github.com/mhorvat/xapiport/internal/clients/xapi"
	"github.com/mhorvat/xapiport/internal/export"
	"github.com/mhorvat/xapiport/internal/models"
	exportsvc "github.com/mhorvat/xapiport/internal/services/export"
)

// formDecoder maps POST form values onto ExportRequest via its schema tags.
var formDecoder = func() *schema.Decoder {
	d := schema.NewDecoder()
	d.IgnoreUnknownKeys(true)
	d.ZeroEmpty(true)
	return d
}()

type indexData struct {
	Endpoints   []string
	FieldConfig map[string]map[string][]string
	Warnings    []string
}

type resultData struct {
	Notices       []string
	Message       string
	Headers       []string
	Preview       [][]string
	PreviewLimit  int
	DownloadToken string
}

type errorData struct {
	Errors []string
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	data := indexData{}
	if err := s.app.ExportService.EnsureFresh(r.Context()); err != nil {
		s.logger.Error().Err(err).Msg("Definitions refresh failed")
		data.Warnings = append(data.Warnings,
			"Endpoint definitions could not be refreshed; the list below may be stale.")
	}

	endpoints, err := s.app.ExportService.Endpoints()
	if err != nil {
		s.renderError(w, http.StatusServiceUnavailable,
			"No endpoint definitions are available. Check the PBX connection settings and retry.")
		return
	}
	data.Endpoints = endpoints

	visibility, err := s.app.ExportService.FieldVisibility()
	if err != nil {
		visibility = map[string][]string{}
	}
	data.FieldConfig = make(map[string]map[string][]string, len(visibility))
	for name, show := range visibility {
		data.FieldConfig[name] = map[string][]string{"show": show}
	}

	s.render(w, http.StatusOK, "index", data)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if !s.cooldown.Allow() {
		s.renderError(w, http.StatusTooManyRequests,
			"Please wait a few seconds between export requests.")
		return
	}

	if err := r.ParseForm(); err != nil {
		s.renderError(w, http.StatusBadRequest, "Could not parse the submitted form.")
		return
	}

	var req models.ExportRequest
	if err := formDecoder.Decode(&req, r.PostForm); err != nil {
		s.renderError(w, http.StatusBadRequest, "The submitted form contains invalid values.")
		return
	}

	result, err := s.app.ExportService.Run(r.Context(), &req)
	if err != nil {
		s.renderRunError(w, err)
		return
	}

	data := resultData{
		Notices:      result.Envelope.Notices,
		PreviewLimit: s.previewLimit(),
	}

	switch result.Envelope.Kind {
	case models.EnvelopeBoolean:
		data.Message = fmt.Sprintf("The endpoint returned a boolean result: %t. There is no dataset to export.",
			result.Envelope.Bool)
		s.render(w, http.StatusOK, "result", data)
		return
	case models.EnvelopeObject:
		result.Headers = objectHeaders(result.Envelope.Object)
		result.Rows = export.Normalize([]map[string]any{result.Envelope.Object}, result.Headers)
	}

	data.Headers = result.Headers
	data.Preview = previewRows(result.Rows, result.Headers, data.PreviewLimit)

	path, err := s.writeExportFile(result, req.Format)
	if err != nil {
		s.logger.Error().Err(err).Str("endpoint", req.Endpoint).Msg("Failed to write export file")
		s.renderError(w, http.StatusInternalServerError, "The export file could not be written.")
		return
	}

	data.DownloadToken = s.downloads.Add(downloadEntry{
		Path:     path,
		Endpoint: result.Endpoint,
		Format:   req.Format,
	})

	s.logger.Info().
		Str("endpoint", req.Endpoint).
		Str("format", req.Format).
		Int("rows", len(result.Rows)).
		Msg("Export generated")

	s.render(w, http.StatusOK, "result", data)
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		s.renderError(w, http.StatusBadRequest, "Missing download token.")
		return
	}

	entry, ok := s.downloads.Take(token)
	if !ok {
		s.renderError(w, http.StatusNotFound,
			"This download link has expired or was already used. Run the export again.")
		return
	}
	defer func() {
		if err := os.Remove(entry.Path); err != nil && !os.IsNotExist(err) {
			s.logger.Warn().Str("path", entry.Path).Err(err).Msg("Failed to remove downloaded export file")
		}
	}()

	contentType := "text/csv; charset=utf-8"
	if entry.Format == models.FormatXLSX {
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="%s_export.%s"`, entry.Endpoint, entry.Format))

	http.ServeFile(w, r, entry.Path)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"uptime": time.Since(s.app.StartupTime).String(),
	})
}

func (s *Server) handleEndpoints(w http.ResponseWriter, r *http.Request) {
	endpoints, err := s.app.ExportService.Endpoints()
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"endpoints": endpoints})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := s.app.ExportService.Refresh(r.Context()); err != nil {
		writeJSON(w, http.StatusBadGateway, map[string]any{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "refreshed"})
}

// renderRunError maps pipeline errors onto user-facing messages with
// appropriate status codes.
func (s *Server) renderRunError(w http.ResponseWriter, err error) {
	var (
		unknownErr    *exportsvc.UnknownEndpointError
		forbiddenErr  *xapi.ForbiddenError
		httpErr       *xapi.HTTPError
		transportErr  *xapi.TransportError
		authErr       *xapi.AuthError
		malformedErr  *xapi.MalformedResponseError
		validationErr validator.ValidationErrors
	)

	switch {
	case errors.Is(err, xapi.ErrEmptyResult):
		s.renderError(w, http.StatusOK,
			"The endpoint returned no data for the selected parameters. Try a wider date range.")
	case errors.As(err, &unknownErr):
		s.renderError(w, http.StatusBadRequest, unknownErr.Error())
	case errors.As(err, &validationErr):
		s.renderError(w, http.StatusBadRequest,
			"The submitted form contains invalid values. Check the dates (YYYY-MM-DD), the DN number and the paging values.")
	case errors.As(err, &forbiddenErr):
		s.renderError(w, http.StatusForbidden, forbiddenErr.Error())
	case errors.As(err, &authErr):
		s.renderError(w, http.StatusBadGateway,
			"Authentication against the PBX failed. Check the configured client id and secret.")
	case errors.As(err, &transportErr):
		s.renderError(w, http.StatusBadGateway,
			"The PBX could not be reached. Check the base URL and the network connection.")
	case errors.As(err, &httpErr):
		s.renderError(w, http.StatusBadGateway, httpErr.Error())
	case errors.As(err, &malformedErr):
		s.renderError(w, http.StatusBadGateway, malformedErr.Error())
	default:
		s.renderError(w, http.StatusBadRequest, err.Error())
	}
}

// writeExportFile writes the full dataset into the export directory and
// returns the file path.
func (s *Server) writeExportFile(result *models.ExportResult, format string) (string, error) {
	dir := s.app.Config.Storage.ExportPath
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}

	name := fmt.Sprintf("%s_%s.%s", result.Endpoint, uuid.New().String()[:8], format)
	path := filepath.Join(dir, name)

	var err error
	switch format {
	case models.FormatXLSX:
		err = export.WriteXLSX(path, result.Headers, result.Rows)
	default:
		err = export.WriteCSV(path, result.Headers, result.Rows)
	}
	if err != nil {
		return "", err
	}
	return path, nil
}

func (s *Server) previewLimit() int {
	if s.app.Config.Export.PreviewRows > 0 {
		return s.app.Config.Export.PreviewRows
	}
	return 20
}

// previewRows flattens the first limit rows into display cells in header
// order; Normalize already guaranteed every header key exists.
func previewRows(rows []map[string]any, headers []string, limit int) [][]string {
	if len(rows) > limit {
		rows = rows[:limit]
	}
	preview := make([][]string, 0, len(rows))
	for _, row := range rows {
		cells := make([]string, 0, len(headers))
		for _, h := range headers {
			cells = append(cells, fmt.Sprint(row[h]))
		}
		preview = append(preview, cells)
	}
	return preview
}

func objectHeaders(obj map[string]any) []string {
	headers := make([]string, 0, len(obj))
	for k := range obj {
		headers = append(headers, k)
	}
	sort.Strings(headers)
	return headers
}

func (s *Server) render(w http.ResponseWriter, status int, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := pageTemplates.ExecuteTemplate(w, name, data); err != nil {
		s.logger.Error().Err(err).Str("template", name).Msg("Template rendering failed")
	}
}

func (s *Server) renderError(w http.ResponseWriter, status int, messages ...string) {
	s.render(w, status, "error", errorData{Errors: messages})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

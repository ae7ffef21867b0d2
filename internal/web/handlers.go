package web

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"picking-dash/internal/analysis"
	"picking-dash/internal/apierrors"
	"picking-dash/internal/picklog"
	"picking-dash/internal/stats"
	"picking-dash/internal/visuals"
)

// defaultUploadName is used for raw-body uploads that carry no file name.
const defaultUploadName = "upload.csv"

// UploadResponse answers POST /api/datasets.
type UploadResponse struct {
	Dataset analysis.DatasetInfo `json:"dataset"`
	// Existing is true when identical bytes were already loaded.
	Existing bool `json:"existing"`
}

// DashboardResponse answers POST /api/datasets/{id}/dashboard.
type DashboardResponse struct {
	Dashboard stats.Dashboard `json:"dashboard"`
	View      visuals.View    `json:"view"`
}

// HealthResponse answers GET /api/health.
type HealthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version,omitempty"`
	Datasets int    `json:"datasets"`
	Uptime   string `json:"uptime"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, HealthResponse{
		Status:   "ok",
		Version:  s.opts.Version,
		Datasets: len(s.svc.Datasets()),
		Uptime:   time.Since(s.started).Round(time.Second).String(),
	})
}

// handleUpload accepts a multipart form with a "file" field, or the raw file as the body with
// the name in the "name" query parameter.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.HTTP.MaxUploadBytes)

	name, data, err := readUpload(r)
	if err != nil {
		s.errors.HandleError(w, r, err)
		return
	}

	info, existing, err := s.svc.Load(name, data)
	if err != nil {
		s.errors.HandleError(w, r, err)
		return
	}

	status := http.StatusCreated
	if existing {
		status = http.StatusOK
	}
	render.Status(r, status)
	render.JSON(w, r, UploadResponse{Dataset: info, Existing: existing})
}

func readUpload(r *http.Request) (string, []byte, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		file, header, err := r.FormFile("file")
		if err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				return "", nil, err
			}
			return "", nil, apierrors.NewWithDetails(http.StatusBadRequest, "MISSING_FILE",
				"Multipart upload must carry a \"file\" field", err.Error())
		}
		defer file.Close()
		data, err := io.ReadAll(file)
		if err != nil {
			return "", nil, fmt.Errorf("failed to read upload: %w", err)
		}
		return header.Filename, data, nil
	}

	data, err := io.ReadAll(r.Body)
	if err != nil {
		return "", nil, err
	}
	name := r.URL.Query().Get("name")
	if name == "" {
		name = defaultUploadName
	}
	return name, data, nil
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, s.svc.Datasets())
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	ds, err := s.svc.Dataset(chi.URLParam(r, "id"))
	if err != nil {
		s.errors.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, analysis.Describe(ds))
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Delete(chi.URLParam(r, "id")); err != nil {
		s.errors.HandleError(w, r, err)
		return
	}
	render.NoContent(w, r)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	params, err := s.decodeFilter(r)
	if err != nil {
		s.errors.HandleError(w, r, err)
		return
	}

	d, err := s.svc.Analyze(chi.URLParam(r, "id"), params, analysis.SurfaceWeb)
	if err != nil {
		s.errors.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, DashboardResponse{Dashboard: d, View: visuals.BuildDashboardView(d)})
}

func (s *Server) handleOutliers(w http.ResponseWriter, r *http.Request) {
	dim, err := stats.ParseDimension(chi.URLParam(r, "dimension"))
	if err != nil {
		s.errors.HandleError(w, r, err)
		return
	}
	params, err := s.decodeFilter(r)
	if err != nil {
		s.errors.HandleError(w, r, err)
		return
	}

	report, err := s.svc.Outliers(chi.URLParam(r, "id"), dim, params, analysis.SurfaceWeb)
	if err != nil {
		s.errors.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, report)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	format, err := analysis.ParseExportFormat(r.URL.Query().Get("format"))
	if err != nil {
		s.errors.HandleError(w, r, err)
		return
	}
	ds, err := s.svc.Dataset(id)
	if err != nil {
		s.errors.HandleError(w, r, err)
		return
	}
	params, err := s.decodeFilter(r)
	if err != nil {
		s.errors.HandleError(w, r, err)
		return
	}

	var buf bytes.Buffer
	rows, err := s.svc.Export(&buf, id, params, format)
	if err != nil {
		s.errors.HandleError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", exportContentType(format))
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment",
		map[string]string{"filename": analysis.ExportFileName(ds, format)}))
	w.Header().Set("X-Record-Count", fmt.Sprint(rows))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		s.logger.Warn().Err(err).Str("dataset", id).Msg("Export response interrupted")
	}
}

func exportContentType(format picklog.Format) string {
	if format == picklog.FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	_, _ = io.WriteString(w, indexHTML)
}

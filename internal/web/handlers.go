package web

import (
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/JonMunkholm/GDPExplorer/internal/core"
	"github.com/JonMunkholm/GDPExplorer/internal/logging"
	"github.com/JonMunkholm/GDPExplorer/internal/memo"
)

// multipartOverhead is added to the file size limit for form boundaries and headers.
const multipartOverhead = 1 << 20

// CacheStatusResponse is returned by GET /api/cache.
type CacheStatusResponse struct {
	Source  string             `json:"source"`
	Cache   memo.Stats         `json:"cache"`
	Limiter core.LimiterStatus `json:"limiter"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("ok"))
}

// loadDataset returns the configured dataset, or writes the error response
// and returns false. A dataset that cannot be read is never served partially.
func (s *Server) loadDataset(w http.ResponseWriter, r *http.Request) (*core.Dataset, bool) {
	ds, err := s.service.Dataset(r.Context())
	if err != nil {
		s.respondError(w, r, err, statusFor(err, false))
		return nil, false
	}
	return ds, true
}

// handleDataset returns the full cleaned dataset.
func (s *Server) handleDataset(w http.ResponseWriter, r *http.Request) {
	ds, ok := s.loadDataset(w, r)
	if !ok {
		return
	}
	writeJSON(w, ds)
}

// handleMap returns the rows the choropleth map consumes.
func (s *Server) handleMap(w http.ResponseWriter, r *http.Request) {
	ds, ok := s.loadDataset(w, r)
	if !ok {
		return
	}
	writeJSON(w, core.MapView(ds))
}

// handleTable returns the rows the data table consumes.
func (s *Server) handleTable(w http.ResponseWriter, r *http.Request) {
	ds, ok := s.loadDataset(w, r)
	if !ok {
		return
	}
	writeJSON(w, core.TableView(ds))
}

// handleReport returns what cleaning found: parse failures per column,
// unresolved names and fuzzy matches.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	ds, ok := s.loadDataset(w, r)
	if !ok {
		return
	}
	writeJSON(w, ds.Report())
}

// handleExportCSV downloads the table view as CSV. Absent values are empty cells.
func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	ds, ok := s.loadDataset(w, r)
	if !ok {
		return
	}

	name := strings.TrimSuffix(filepath.Base(ds.Source()), filepath.Ext(ds.Source()))
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s_clean.csv"`, sanitizeFilename(name)))

	if err := core.WriteTableCSV(w, ds); err != nil {
		// Can't change status code after writing, just log
		logging.FromContext(r.Context()).Error("csv export failed", "error", err)
	}
}

// handleResolve resolves a single name, for checking the reference table.
func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if strings.TrimSpace(name) == "" {
		err := errors.New("missing parameter: name")
		s.respondError(w, r, err, statusFor(err, false))
		return
	}
	writeJSON(w, s.service.Resolve(name))
}

// handleCache returns dataset cache counters and the clean limiter state.
func (s *Server) handleCache(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, CacheStatusResponse{
		Source:  s.service.Source(),
		Cache:   s.service.CacheStats(),
		Limiter: s.service.LimiterStatus(),
	})
}

// handleClean cleans a posted CSV file and returns the dataset.
// The file is kept in memory and never stored.
func (s *Server) handleClean(w http.ResponseWriter, r *http.Request) {
	maxSize := s.cfg.Dataset.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+multipartOverhead)

	if err := r.ParseMultipartForm(maxSize + multipartOverhead); err != nil {
		if !strings.Contains(strings.ToLower(err.Error()), "request body too large") {
			err = fmt.Errorf("no file provided: %w", err)
		}
		s.respondError(w, r, err, statusFor(err, true))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		err = fmt.Errorf("no file provided: %w", err)
		s.respondError(w, r, err, statusFor(err, true))
		return
	}
	defer file.Close()

	ds, err := s.service.CleanUpload(r.Context(), filepath.Base(header.Filename), file)
	if err != nil {
		s.respondError(w, r, err, statusFor(err, true))
		return
	}
	writeJSON(w, ds)
}

// handleIndex renders the table page. When the dataset cannot be read the
// page shows the message instead of the table.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	page := TablePageData{Source: s.service.Source()}

	status := http.StatusOK
	ds, err := s.service.Dataset(r.Context())
	if err != nil {
		status = statusFor(err, false)
		msg := core.MapError(err)
		page.Error = &msg
		logging.FromContext(r.Context()).Error("request error",
			"path", r.URL.Path,
			"status", status,
			"error", err.Error(),
			"code", msg.Code,
		)
	} else {
		page.Columns = core.TableColumns(ds)
		page.Rows = core.TableView(ds)
		page.Report = ds.Report()
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := TablePage(page).Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render table page", "error", err)
	}
}

// sanitizeFilename keeps characters that are safe in a Content-Disposition header.
func sanitizeFilename(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "gdp"
	}
	return b.String()
}

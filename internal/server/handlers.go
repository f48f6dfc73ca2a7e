package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/posterforge/posterforge/pkg/errors"
	"github.com/posterforge/posterforge/pkg/job"
	"github.com/posterforge/posterforge/pkg/poster"
	"github.com/posterforge/posterforge/pkg/render"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// createPosterRequest is the POST /api/posters body.
type createPosterRequest struct {
	City     string `json:"city"`
	Country  string `json:"country"`
	Theme    string `json:"theme"`
	Distance int    `json:"distance"`
	DPI      int    `json:"dpi"`
}

func (s *Server) handleCreatePoster(w http.ResponseWriter, r *http.Request) {
	var body createPosterRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, errors.New(errors.ErrCodeInvalidInput, "invalid request body"))
		return
	}

	req, err := poster.NewRequest(body.City, body.Country, body.Theme, body.Distance, body.DPI)
	if err != nil {
		writeError(w, err)
		return
	}

	j, err := s.cfg.Generator.Enqueue(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, j)
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	j, err := s.cfg.Jobs.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, j)
}

// loadCompleted returns the job when its artifact should be servable.
// A job that exists but has not completed reports NOT_READY, distinct
// from a missing job or a missing file.
func (s *Server) loadCompleted(r *http.Request, id string) (*job.Job, error) {
	j, err := s.cfg.Jobs.Get(r.Context(), id)
	if err != nil {
		return nil, err
	}
	if j.Status != job.StatusCompleted {
		return nil, errors.New(errors.ErrCodeNotReady, "poster is not ready (job is %s)", j.Status)
	}
	return j, nil
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	j, err := s.loadCompleted(r, id)
	if err != nil {
		writeError(w, err)
		return
	}

	f, err := s.cfg.Artifacts.Open(id)
	if err != nil {
		writeError(w, err)
		return
	}
	defer f.Close()

	filename := fmt.Sprintf("%s_%s_poster.png",
		errors.SanitizeFilename(j.Request.City),
		errors.SanitizeFilename(j.Request.Theme))
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	_, _ = io.Copy(w, f)
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.loadCompleted(r, id); err != nil {
		writeError(w, err)
		return
	}

	f, err := s.cfg.Artifacts.Open(id)
	if err != nil {
		writeError(w, err)
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		writeError(w, errors.Wrap(err, errors.ErrCodeInternal, "reading artifact"))
		return
	}
	small, err := render.Preview(data, previewSize(r))
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(small)
}

func previewSize(r *http.Request) int {
	if v := r.URL.Query().Get("size"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 2048 {
			return n
		}
	}
	return render.DefaultPreviewSize
}

// themeSummary is one entry of GET /api/themes.
type themeSummary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

func (s *Server) handleListThemes(w http.ResponseWriter, r *http.Request) {
	details := s.cfg.Themes.All()
	out := make([]themeSummary, 0, len(details))
	for _, d := range details {
		out = append(out, themeSummary{ID: d.ID, Name: d.Name, Description: d.Description})
	}
	writeJSON(w, http.StatusOK, map[string]any{"themes": out})
}

func (s *Server) handleGetTheme(w http.ResponseWriter, r *http.Request) {
	t, err := s.cfg.Themes.Load(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleSearchLocations(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Searcher == nil {
		writeError(w, errors.New(errors.ErrCodeNotFound, "location search is not enabled"))
		return
	}
	query := r.URL.Query().Get("q")
	if query == "" {
		writeError(w, errors.New(errors.ErrCodeInvalidInput, "missing query parameter q"))
		return
	}
	if err := errors.ValidatePlaceName("q", query); err != nil {
		writeError(w, err)
		return
	}

	limit := 5
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 20 {
			limit = n
		}
	}

	results, err := s.cfg.Searcher.Search(r.Context(), query, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

func (s *Server) handleListHistory(w http.ResponseWriter, r *http.Request) {
	if s.cfg.History == nil {
		writeError(w, errors.New(errors.ErrCodeNotFound, "job history is not enabled"))
		return
	}

	limit := int64(20)
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}

	jobs, err := s.cfg.History.Recent(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	if jobs == nil {
		jobs = []*job.Job{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"jobs": jobs})
}

func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	if s.cfg.History == nil {
		writeError(w, errors.New(errors.ErrCodeNotFound, "job history is not enabled"))
		return
	}
	j, err := s.cfg.History.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, j)
}

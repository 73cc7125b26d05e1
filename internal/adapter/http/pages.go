package http

import (
	"bytes"
	"embed"
	"errors"
	"html/template"
	"net/http"
	"strconv"

	"github.com/couchcryptid/climate-dashboard/internal/dashboard"
	"github.com/couchcryptid/climate-dashboard/internal/domain"
	"github.com/couchcryptid/climate-dashboard/internal/export"
)

//go:embed templates/*.html
var templatesFS embed.FS

var pageTmpl = template.Must(template.New("").Funcs(template.FuncMap{
	"fixed1": func(v float64) string { return strconv.FormatFloat(v, 'f', 1, 64) },
	"value":  export.FormatValue,
}).ParseFS(templatesFS, "templates/*.html"))

// formFields are the filter selects of the dashboard form.
var formFields = []domain.Field{
	domain.FieldRegion,
	domain.FieldParameter,
	domain.FieldStartYear,
	domain.FieldStartMonth,
	domain.FieldEndYear,
	domain.FieldEndMonth,
}

type pageData struct {
	dashboard.Snapshot
	Flash string
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	s.renderPage(w, http.StatusOK, pageData{
		Snapshot: s.dash.Snapshot(),
		Flash:    r.URL.Query().Get("error"),
	})
}

func (s *Server) renderPage(w http.ResponseWriter, status int, data pageData) {
	var buf bytes.Buffer
	if err := pageTmpl.ExecuteTemplate(&buf, "dashboard.html", data); err != nil {
		s.logger.Error("render dashboard", "error", err)
		http.Error(w, "failed to render dashboard", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// handleFilterForm applies the select that changed (named by the "field"
// form value) or, without it, the whole form in one step.
func (s *Server) handleFilterForm(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var err error
	if name := r.PostForm.Get("field"); name != "" {
		var field domain.Field
		if field, err = domain.ParseField(name); err == nil {
			_, err = s.dash.UpdateFilter(field, r.PostForm.Get(name))
		}
	} else {
		values := make(map[domain.Field]string, len(formFields))
		for _, field := range formFields {
			if v := r.PostForm.Get(string(field)); v != "" {
				values[field] = v
			}
		}
		_, err = s.dash.ApplyFilters(values)
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleFetchForm(w http.ResponseWriter, r *http.Request) {
	_, err := s.dash.Fetch(r.Context())
	if err != nil && !errors.Is(err, dashboard.ErrFetchInProgress) {
		s.logger.Warn("fetch from form failed", "error", err)
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleThemeForm(w http.ResponseWriter, r *http.Request) {
	s.dash.ToggleTheme(r.Context())
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

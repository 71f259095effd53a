package app

import (
	"bytes"
	"embed"
	"errors"
	"html/template"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"showcase/api/internal/identity"
	"showcase/api/internal/rbac"
	"showcase/api/internal/views"

	"go.uber.org/zap"
)

//go:embed templates/*.html
var pageFS embed.FS

// editorFields are the form inputs of the admin editor, in display order.
var editorFields = []string{
	"title", "category", "client", "industry", "country", "year",
	"description", "thumbnail", "video", "slideshow",
}

type pageRenderer struct {
	templates *template.Template
}

func newPageRenderer() *pageRenderer {
	return &pageRenderer{
		templates: template.Must(template.New("pages").Funcs(template.FuncMap{
			"detailsHref": views.DetailsHref,
			"slideHref": func(id string, index int) string {
				return views.DetailsHref(id) + "&slide=" + strconv.Itoa(index)
			},
			"categoryHref": func(category string) string {
				if category == views.CategoryAll {
					return "/"
				}
				return "/?category=" + url.QueryEscape(category)
			},
			"add": func(a, b int) int { return a + b },
		}).ParseFS(pageFS, "templates/*.html")),
	}
}

func (p *pageRenderer) render(w http.ResponseWriter, status int, name string, data any) error {
	var buf bytes.Buffer
	if err := p.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := w.Write(buf.Bytes())
	return err
}

type homePage struct {
	Home   views.Home
	Loaded bool
}

type projectPage struct {
	ID        string
	Details   views.Details
	Slide     views.Slideshow
	SlideURL  string
	Dots      []int
	PrevIndex int
	NextIndex int
}

type adminPage struct {
	Admin      bool
	LoginError string
	Loaded     bool
	Projects   []views.AdminListItem
	Categories []string
	Editing    bool
	Draft      views.Draft
	Message    string
	OK         bool
}

func (s *HTTPServer) handlePage(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/":
		home, loaded := s.service.Home(r.URL.Query().Get("category"))
		s.renderPage(w, http.StatusOK, "home", homePage{Home: home, Loaded: loaded})
	case r.Method == http.MethodGet && r.URL.Path == "/project":
		s.handleProjectPage(w, r)
	case r.Method == http.MethodGet && r.URL.Path == "/admin":
		s.handleAdminPage(w, r, s.browserSession(r))
	case r.Method == http.MethodPost && r.URL.Path == "/admin/login":
		ident := s.ensureBrowserSession(w, r)
		s.handleAdminLogin(w, r, ident)
	case r.Method == http.MethodPost && r.URL.Path == "/admin/save":
		s.handleAdminSave(w, r, s.browserSession(r))
	case r.Method == http.MethodPost && r.URL.Path == "/admin/logout":
		if err := s.service.Logout(r.Context(), sessionToken(r)); err != nil {
			s.logger.Debug("logout", zap.Error(err))
		}
		http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: "", Path: "/", MaxAge: -1, HttpOnly: true})
		http.Redirect(w, r, "/", http.StatusSeeOther)
	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
}

func (s *HTTPServer) handleProjectPage(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	details := s.service.Details(id)
	start, _ := strconv.Atoi(r.URL.Query().Get("slide"))
	slide := views.NewSlideshow(len(details.Slideshow), start)

	page := projectPage{
		ID:        id,
		Details:   details,
		Slide:     slide,
		PrevIndex: slide.Prev().Index(),
		NextIndex: slide.Next().Index(),
	}
	if slide.Len() > 0 {
		page.SlideURL = details.Slideshow[slide.Index()]
		page.Dots = make([]int, slide.Len())
		for i := range page.Dots {
			page.Dots[i] = i
		}
	}

	status := http.StatusOK
	if details.State == views.StateNotFound {
		status = http.StatusNotFound
	}
	s.renderPage(w, status, "project", page)
}

func (s *HTTPServer) handleAdminPage(w http.ResponseWriter, r *http.Request, ident identity.Identity) {
	if !rbac.Can(ident.Role, rbac.ActionWrite) {
		s.renderPage(w, http.StatusOK, "admin", adminPage{})
		return
	}
	page := s.adminPage()

	query := r.URL.Query()
	switch {
	case query.Get("new") != "":
		draft, _ := s.service.Draft("new")
		page.Editing, page.Draft = true, draft
	case query.Get("edit") != "":
		draft, err := s.service.Draft(query.Get("edit"))
		if err != nil {
			_, _, message, _ := mapError(err)
			page.Message = message
			break
		}
		page.Editing, page.Draft = true, draft
	}
	if query.Get("saved") != "" {
		page.OK, page.Message = true, views.MessageSaved
	}
	s.renderPage(w, http.StatusOK, "admin", page)
}

func (s *HTTPServer) handleAdminLogin(w http.ResponseWriter, r *http.Request, ident identity.Identity) {
	if ident.Token == "" {
		s.renderPage(w, http.StatusServiceUnavailable, "admin", adminPage{LoginError: "Sessions are unavailable. Try again shortly."})
		return
	}
	if _, err := s.service.AdminLogin(r.Context(), ident.Token, r.PostFormValue("password")); err != nil {
		status, _, message, _ := mapError(err)
		s.renderPage(w, status, "admin", adminPage{LoginError: message})
		return
	}
	http.Redirect(w, r, "/admin", http.StatusSeeOther)
}

func (s *HTTPServer) handleAdminSave(w http.ResponseWriter, r *http.Request, ident identity.Identity) {
	if !rbac.Can(ident.Role, rbac.ActionWrite) {
		s.renderPage(w, http.StatusForbidden, "admin", adminPage{LoginError: "Sign in to edit projects."})
		return
	}
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "invalid form body", nil)
		return
	}

	values := make(map[string]string, len(editorFields))
	for _, field := range editorFields {
		if _, ok := r.PostForm[field]; ok {
			values[field] = r.PostForm.Get(field)
		}
	}
	draft := s.service.DraftFromForm(r.PostForm.Get("id"), values)
	if r.PostForm.Get("isNew") != "" {
		draft.IsNew = true
	}

	result := s.service.SaveDraft(r.Context(), ident, draft)
	if result.OK {
		http.Redirect(w, r, "/admin?saved=1&edit="+url.QueryEscape(result.Record.ID()), http.StatusSeeOther)
		return
	}

	status := http.StatusBadGateway
	if errors.Is(result.Err, views.ErrTitleRequired) || errors.Is(result.Err, views.ErrMissingID) {
		status = http.StatusUnprocessableEntity
	}
	page := s.adminPage()
	page.Editing, page.Draft, page.Message = true, draft, result.Message
	s.renderPage(w, status, "admin", page)
}

func (s *HTTPServer) adminPage() adminPage {
	projects, loaded := s.service.Projects()
	return adminPage{
		Admin:      true,
		Loaded:     loaded,
		Projects:   views.NewAdminList(projects),
		Categories: views.AdminCategories,
	}
}

// browserSession resolves the session cookie without issuing one. Public
// pages never create sessions; only signing in does.
func (s *HTTPServer) browserSession(r *http.Request) identity.Identity {
	if token := sessionToken(r); token != "" {
		if ident, err := s.service.SessionFromToken(r.Context(), token); err == nil {
			return ident
		}
	}
	return identity.Identity{Role: rbac.RoleVisitor, Anonymous: true}
}

// ensureBrowserSession is browserSession for the login form: a missing or
// stale cookie is replaced with a fresh anonymous session.
func (s *HTTPServer) ensureBrowserSession(w http.ResponseWriter, r *http.Request) identity.Identity {
	if ident := s.browserSession(r); ident.Token != "" {
		return ident
	}
	ident, err := s.service.AnonymousSession(r.Context())
	if err != nil {
		s.logger.Warn("anonymous session failed", zap.Error(err))
		return identity.Identity{Role: rbac.RoleVisitor, Anonymous: true}
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    ident.Token,
		Path:     "/",
		Expires:  ident.ExpiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return ident
}

func (s *HTTPServer) renderPage(w http.ResponseWriter, status int, name string, data any) {
	if err := s.pages.render(w, status, name, data); err != nil {
		s.logger.Error("render page", zap.String("page", name), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "SERVER_ERROR", "Server error", nil)
	}
}

// FieldValue exposes draft fields to the editor template.
func (p adminPage) FieldValue(field string) string {
	return p.Draft.Get(field)
}

func (p adminPage) Selected(category string) bool {
	return strings.TrimSpace(p.Draft.Get("category")) == category
}

package app

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"showcase/api/internal/auth"
	"showcase/api/internal/config"
	"showcase/api/internal/export"
	"showcase/api/internal/gateway"
	"showcase/api/internal/gitrepo"
	"showcase/api/internal/identity"
	"showcase/api/internal/media"
	"showcase/api/internal/project"
	"showcase/api/internal/rbac"
	"showcase/api/internal/search"
	"showcase/api/internal/store"
	"showcase/api/internal/views"

	"go.uber.org/zap"
)

type pinger interface {
	Ping(context.Context) error
}

type identityProvider interface {
	SignInAnonymously(context.Context) (identity.Identity, error)
	SignInWithCustomToken(context.Context, string) (identity.Identity, error)
	Resolve(context.Context, string) (identity.Identity, error)
	Elevate(context.Context, string, rbac.Role) (identity.Identity, error)
	SignOut(context.Context, string) error
}

type passwordGate interface {
	Check(password string) error
}

type historyStore interface {
	Commit(collection string, rec project.Record, author, message string) (store.CommitInfo, error)
	History(collection, id string, limit int) ([]store.CommitInfo, error)
	Revision(collection, id, hash string) (project.Record, store.CommitInfo, error)
}

type uploader interface {
	Upload(ctx context.Context, projectID, filename string, r io.Reader, size int64) (media.Upload, error)
}

// Deps wires a Service. DB, History and Media may be nil.
type Deps struct {
	Config   config.Config
	Logger   *zap.Logger
	DB       pinger
	Identity identityProvider
	Gate     passwordGate
	Gateway  *gateway.Gateway
	Catalog  *gateway.Catalog
	Search   *search.Service
	History  historyStore
	Media    uploader
	Export   *export.Service
}

type Service struct {
	cfg       config.Config
	logger    *zap.Logger
	db        pinger
	identity  identityProvider
	gate      passwordGate
	gateway   *gateway.Gateway
	catalog   *gateway.Catalog
	search    *search.Service
	history   historyStore
	media     uploader
	export    *export.Service
	now       func() time.Time
	stopIndex func()
}

var (
	errLoading  = domainError(http.StatusServiceUnavailable, "LOADING", "Projects are still loading", nil)
	errNotFound = domainError(http.StatusNotFound, "NOT_FOUND", "Project not found", nil)

	errExportUnavailable = domainError(http.StatusNotImplemented, "EXPORT_UNAVAILABLE", "This export format is not available on this server", nil)
)

func New(deps Deps) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		cfg:      deps.Config,
		logger:   logger,
		db:       deps.DB,
		identity: deps.Identity,
		gate:     deps.Gate,
		gateway:  deps.Gateway,
		catalog:  deps.Catalog,
		search:   deps.Search,
		history:  deps.History,
		media:    deps.Media,
		export:   deps.Export,
		now:      time.Now,
	}
	if s.search == nil {
		s.search = search.NewService(nil, logger)
	}
	if s.export == nil {
		s.export = export.NewService("Showcase")
	}
	if s.catalog != nil {
		if projects, loaded := s.catalog.Projects(); loaded {
			s.search.Reindex(projects)
		}
		s.stopIndex = s.catalog.Watch(s.search.Reindex)
	}
	return s
}

// Close detaches the service from the catalog. The gateway and catalog are
// owned by the caller.
func (s *Service) Close() {
	if s.stopIndex != nil {
		s.stopIndex()
	}
}

func (s *Service) Ping(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	return s.db.Ping(ctx)
}

// IdentityStatus is "ok", "pending" or "error".
func (s *Service) IdentityStatus() (string, error) {
	if _, ok := s.gateway.Identity(); ok {
		return "ok", nil
	}
	if err := s.gateway.Err(); err != nil {
		return "error", err
	}
	return "pending", nil
}

func (s *Service) AnonymousSession(ctx context.Context) (identity.Identity, error) {
	return s.identity.SignInAnonymously(ctx)
}

func (s *Service) TokenSession(ctx context.Context, token string) (identity.Identity, error) {
	if strings.TrimSpace(token) == "" {
		return identity.Identity{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "token is required", nil)
	}
	ident, err := s.identity.SignInWithCustomToken(ctx, token)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidToken) || errors.Is(err, auth.ErrExpiredToken) {
			return identity.Identity{}, domainError(http.StatusUnauthorized, "INVALID_TOKEN", "Token rejected", nil)
		}
		return identity.Identity{}, err
	}
	return ident, nil
}

func (s *Service) SessionFromToken(ctx context.Context, token string) (identity.Identity, error) {
	return s.identity.Resolve(ctx, token)
}

func (s *Service) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.identity.SignOut(ctx, token)
}

// AdminLogin checks the shared editor password and, on success, elevates
// the session behind token to admin.
func (s *Service) AdminLogin(ctx context.Context, token, password string) (identity.Identity, error) {
	if err := s.gate.Check(password); err != nil {
		s.logger.Info("admin login rejected")
		return identity.Identity{}, domainError(http.StatusUnauthorized, "INVALID_CREDENTIALS", "Incorrect password", nil)
	}
	ident, err := s.identity.Elevate(ctx, token, rbac.RoleAdmin)
	if err != nil {
		return identity.Identity{}, err
	}
	s.logger.Info("admin login", zap.String("uid", ident.UID))
	return ident, nil
}

// Projects is the merged list and whether the first snapshot has arrived.
func (s *Service) Projects() ([]project.Record, bool) {
	if s.catalog == nil {
		return nil, false
	}
	return s.catalog.Projects()
}

func (s *Service) Home(category string) (views.Home, bool) {
	projects, loaded := s.Projects()
	return views.NewHome(projects, category), loaded
}

func (s *Service) Details(id string) views.Details {
	projects, loaded := s.Projects()
	return views.ResolveDetails(projects, loaded, id)
}

// Draft opens a project for editing. "new" (or blank) starts a fresh draft.
func (s *Service) Draft(id string) (views.Draft, error) {
	id = strings.TrimSpace(id)
	if id == "" || id == "new" {
		return views.NewDraft(s.now()), nil
	}
	details := s.Details(id)
	switch details.State {
	case views.StateLoading:
		return views.Draft{}, errLoading
	case views.StateNotFound:
		return views.Draft{}, errNotFound
	}
	return views.EditDraft(details.Project), nil
}

// DraftFromForm applies submitted values on top of the stored record when
// one exists, so fields the form does not carry survive the save.
func (s *Service) DraftFromForm(id string, values map[string]string) views.Draft {
	id = strings.TrimSpace(id)
	var draft views.Draft
	if details := s.Details(id); details.State == views.StateFound {
		draft = views.EditDraft(details.Project)
	} else {
		draft = views.Draft{ID: id, IsNew: true, Fields: project.Record{"id": id}}
	}
	for field, value := range values {
		draft = draft.Set(field, value)
	}
	return draft
}

// SaveDraft validates and writes a draft as author. Successful writes are
// also committed to the revision history.
func (s *Service) SaveDraft(ctx context.Context, author identity.Identity, draft views.Draft) views.SaveResult {
	editor := views.NewEditor(&historyWriter{service: s, author: author.UID})
	result := editor.Save(ctx, draft)
	if !result.OK {
		s.logger.Warn("project save failed",
			zap.String("id", draft.ID),
			zap.String("message", result.Message),
			zap.Error(result.Err),
		)
	}
	return result
}

type historyWriter struct {
	service *Service
	author  string
}

func (w *historyWriter) Save(ctx context.Context, rec project.Record) error {
	if err := w.service.gateway.Save(ctx, rec); err != nil {
		return err
	}
	w.service.recordRevision(rec, w.author)
	return nil
}

func (s *Service) recordRevision(rec project.Record, author string) {
	if s.history == nil {
		return
	}
	if author == "" {
		author = "admin"
	}
	info, err := s.history.Commit(s.gateway.Collection(), rec, author, "")
	switch {
	case errors.Is(err, gitrepo.ErrUnchanged):
	case err != nil:
		s.logger.Warn("record revision failed", zap.String("id", rec.ID()), zap.Error(err))
	default:
		s.logger.Debug("revision recorded", zap.String("id", rec.ID()), zap.String("hash", info.Hash))
	}
}

func (s *Service) History(id string, limit int) ([]store.CommitInfo, error) {
	if s.history == nil {
		return []store.CommitInfo{}, nil
	}
	return s.history.History(s.gateway.Collection(), id, limit)
}

func (s *Service) Revision(id, hash string) (project.Record, store.CommitInfo, error) {
	if s.history == nil {
		return nil, store.CommitInfo{}, domainError(http.StatusNotFound, "NOT_FOUND", "Revision not found", nil)
	}
	rec, info, err := s.history.Revision(s.gateway.Collection(), id, hash)
	if errors.Is(err, gitrepo.ErrNoHistory) {
		return nil, store.CommitInfo{}, domainError(http.StatusNotFound, "NOT_FOUND", "Revision not found", nil)
	}
	return rec, info, err
}

func (s *Service) Upload(ctx context.Context, projectID, filename string, r io.Reader, size int64) (media.Upload, error) {
	if s.media == nil {
		return media.Upload{}, domainError(http.StatusServiceUnavailable, "MEDIA_UNAVAILABLE", "Media storage is not configured", nil)
	}
	up, err := s.media.Upload(ctx, projectID, filename, r, size)
	if errors.Is(err, media.ErrUnsupportedType) {
		return media.Upload{}, domainError(http.StatusUnsupportedMediaType, "UNSUPPORTED_MEDIA", "Only images and videos can be uploaded", nil).withCause(err)
	}
	return up, err
}

func (s *Service) Export(ctx context.Context, id, format string) (*export.Result, error) {
	parsed, err := export.ParseFormat(format)
	if err != nil {
		return nil, domainError(http.StatusBadRequest, "INVALID_FORMAT", "format must be html, pdf or docx", nil)
	}
	details := s.Details(id)
	switch details.State {
	case views.StateLoading:
		return nil, errLoading
	case views.StateNotFound:
		return nil, errNotFound
	}
	result, err := s.export.Export(ctx, details.Project, parsed)
	if errors.Is(err, export.ErrPDFDependencyMissing) || errors.Is(err, export.ErrDOCXDependencyMissing) {
		return nil, errExportUnavailable.withCause(err)
	}
	return result, err
}

func (s *Service) Search(q search.Query) search.Response {
	return s.search.Search(q)
}

// Live calls fn with the merged list after every catalog rebuild until the
// returned func is called. All callers share the catalog's one store
// subscription. fn runs on that subscription's goroutine and must not block.
func (s *Service) Live(fn func([]project.Record)) func() {
	return s.catalog.Watch(fn)
}

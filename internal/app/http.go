package app

import (
	"bufio"
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"showcase/api/internal/auth"
	"showcase/api/internal/gateway"
	"showcase/api/internal/identity"
	"showcase/api/internal/project"
	"showcase/api/internal/rbac"
	"showcase/api/internal/search"
	"showcase/api/internal/store"
	"showcase/api/internal/views"

	"go.uber.org/zap"
)

const (
	sessionCookie = "showcase_session"

	maxUploadBytes = 200 << 20
)

type HTTPServer struct {
	service    *Service
	corsOrigin string
	logger     *zap.Logger
	pages      *pageRenderer
}

func NewHTTPServer(service *Service, corsOrigin string, logger *zap.Logger) *HTTPServer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPServer{
		service:    service,
		corsOrigin: corsOrigin,
		logger:     logger,
		pages:      newPageRenderer(),
	}
}

func (s *HTTPServer) Handler() http.Handler {
	return s.withMiddleware(http.HandlerFunc(s.handle))
}

func (s *HTTPServer) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		writeJSON(w, http.StatusNoContent, map[string]any{})
		return
	}

	if !strings.HasPrefix(r.URL.Path, "/api/") {
		s.handlePage(w, r)
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/health" {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/ready" {
		s.handleReady(w, r)
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/session/anonymous" {
		ident, err := s.service.AnonymousSession(r.Context())
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, sessionPayload(ident))
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/session/token" {
		var body struct {
			Token string `json:"token"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		ident, err := s.service.TokenSession(r.Context(), body.Token)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, sessionPayload(ident))
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/session" {
		token := sessionToken(r)
		if token == "" {
			writeJSON(w, http.StatusOK, map[string]any{"authenticated": false})
			return
		}
		ident, err := s.service.SessionFromToken(r.Context(), token)
		if err != nil {
			writeJSON(w, http.StatusOK, map[string]any{"authenticated": false})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"authenticated": true,
			"uid":           ident.UID,
			"role":          ident.Role,
			"anonymous":     ident.Anonymous,
			"expiresAt":     ident.ExpiresAt,
		})
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/session/logout" {
		if err := s.service.Logout(r.Context(), sessionToken(r)); err != nil {
			s.logger.Debug("logout", zap.Error(err))
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/admin/login" {
		ident, ok := s.requireSession(w, r)
		if !ok {
			return
		}
		var body struct {
			Password string `json:"password"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		elevated, err := s.service.AdminLogin(r.Context(), ident.Token, body.Password)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, sessionPayload(elevated))
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/projects" {
		home, loaded := s.service.Home(r.URL.Query().Get("category"))
		writeJSON(w, http.StatusOK, map[string]any{
			"projects":   nonNilRecords(home.Projects),
			"cards":      home.Cards,
			"loaded":     loaded,
			"categories": home.Categories,
			"category":   home.Category,
		})
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/search" {
		query := r.URL.Query()
		limit, _ := strconv.Atoi(query.Get("limit"))
		offset, _ := strconv.Atoi(query.Get("offset"))
		writeJSON(w, http.StatusOK, s.service.Search(search.Query{
			Text:     query.Get("q"),
			Category: query.Get("category"),
			Limit:    limit,
			Offset:   offset,
		}))
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/live" {
		s.handleLive(w, r)
		return
	}

	parts := splitPath(r.URL.Path)

	if len(parts) >= 3 && parts[0] == "api" && parts[1] == "projects" {
		s.handleProjects(w, r, parts[2], parts[3:])
		return
	}

	if len(parts) >= 2 && parts[0] == "api" && parts[1] == "admin" {
		ident, ok := s.requireSession(w, r)
		if !ok {
			return
		}
		s.handleAdmin(w, r, ident, parts[2:])
		return
	}

	writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
}

func (s *HTTPServer) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	statusCode := http.StatusOK
	checks := map[string]any{
		"database": map[string]any{"status": "ok"},
	}

	if err := s.service.Ping(ctx); err != nil {
		status = "not_ready"
		statusCode = http.StatusServiceUnavailable
		checks["database"] = map[string]any{
			"status": "error",
			"error":  err.Error(),
		}
	}

	identityStatus, err := s.service.IdentityStatus()
	identityCheck := map[string]any{"status": identityStatus}
	if err != nil {
		identityCheck["error"] = err.Error()
	}
	checks["identity"] = identityCheck

	_, loaded := s.service.Projects()
	checks["catalog"] = map[string]any{"loaded": loaded}

	writeJSON(w, statusCode, map[string]any{
		"ok":     status == "ready",
		"status": status,
		"checks": checks,
	})
}

func (s *HTTPServer) handleProjects(w http.ResponseWriter, r *http.Request, id string, rest []string) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
		return
	}

	if len(rest) == 0 {
		details := s.service.Details(id)
		switch details.State {
		case views.StateLoading:
			s.writeServiceError(w, errLoading)
		case views.StateNotFound:
			s.writeServiceError(w, errNotFound)
		default:
			writeJSON(w, http.StatusOK, map[string]any{
				"state":       details.State,
				"project":     details.Project,
				"title":       details.Title,
				"description": details.Description,
				"thumbnail":   details.Thumbnail,
				"video":       details.Video,
				"info":        details.Info,
				"slideshow":   nonNilStrings(details.Slideshow),
			})
		}
		return
	}

	if len(rest) == 1 && rest[0] == "export" {
		result, err := s.service.Export(r.Context(), id, r.URL.Query().Get("format"))
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		w.Header().Set("Content-Type", result.MimeType)
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(result.Data)
		return
	}

	writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
}

func (s *HTTPServer) handleAdmin(w http.ResponseWriter, r *http.Request, ident identity.Identity, parts []string) {
	if r.Method == http.MethodPost && len(parts) == 1 && parts[0] == "projects" {
		if !s.requireAction(w, ident, rbac.ActionWrite) {
			return
		}
		var draft views.Draft
		if err := decodeBody(r, &draft); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		if draft.Fields == nil {
			draft.Fields = project.Record{}
		}
		result := s.service.SaveDraft(r.Context(), ident, draft)
		switch {
		case result.OK:
			writeJSON(w, http.StatusOK, map[string]any{
				"ok":      true,
				"message": result.Message,
				"project": result.Record,
			})
		case errors.Is(result.Err, views.ErrTitleRequired), errors.Is(result.Err, views.ErrMissingID):
			writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", result.Message, nil)
		default:
			writeError(w, http.StatusBadGateway, "SAVE_FAILED", result.Message, map[string]any{"draft": draft})
		}
		return
	}

	if r.Method == http.MethodPost && len(parts) == 1 && parts[0] == "media" {
		if !s.requireAction(w, ident, rbac.ActionUpload) {
			return
		}
		s.handleUpload(w, r)
		return
	}

	if r.Method == http.MethodGet && len(parts) >= 3 && parts[0] == "projects" {
		id := parts[1]

		if len(parts) == 3 && parts[2] == "draft" {
			if !s.requireAction(w, ident, rbac.ActionWrite) {
				return
			}
			draft, err := s.service.Draft(id)
			if err != nil {
				s.writeServiceError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, draft)
			return
		}

		if parts[2] == "history" {
			if !s.requireAction(w, ident, rbac.ActionHistory) {
				return
			}
			if len(parts) == 3 {
				limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
				commits, err := s.service.History(id, limit)
				if err != nil {
					s.writeServiceError(w, err)
					return
				}
				writeJSON(w, http.StatusOK, map[string]any{"id": id, "history": nonNilCommits(commits)})
				return
			}
			if len(parts) == 4 {
				rec, info, err := s.service.Revision(id, parts[3])
				if err != nil {
					s.writeServiceError(w, err)
					return
				}
				writeJSON(w, http.StatusOK, map[string]any{"commit": info, "project": rec})
				return
			}
		}
	}

	writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
}

func (s *HTTPServer) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "multipart form with a file field is required", nil)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "file is required", nil)
		return
	}
	defer file.Close()

	up, err := s.service.Upload(r.Context(), r.FormValue("project"), header.Filename, file, header.Size)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, up)
}

func (s *HTTPServer) requireSession(w http.ResponseWriter, r *http.Request) (identity.Identity, bool) {
	token := sessionToken(r)
	if token == "" {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
		return identity.Identity{}, false
	}
	ident, err := s.service.SessionFromToken(r.Context(), token)
	if err != nil {
		if isSessionRejected(err) {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
			return identity.Identity{}, false
		}
		s.logger.Error("session lookup failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "SERVER_ERROR", "Session lookup failed", nil)
		return identity.Identity{}, false
	}
	return ident, true
}

func (s *HTTPServer) requireAction(w http.ResponseWriter, ident identity.Identity, action rbac.Action) bool {
	if rbac.Can(ident.Role, action) {
		return true
	}
	s.logger.Info("forbidden",
		zap.String("uid", ident.UID),
		zap.String("role", string(ident.Role)),
		zap.String("action", string(action)),
	)
	writeError(w, http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
	return false
}

func (s *HTTPServer) writeServiceError(w http.ResponseWriter, err error) {
	status, code, message, details := mapError(err)
	switch {
	case status == http.StatusServiceUnavailable, status == http.StatusNotImplemented:
		s.logger.Warn("request unavailable", zap.String("code", code), zap.Error(err))
	case status >= http.StatusInternalServerError:
		s.logger.Error("request failed", zap.Error(err))
	}
	writeError(w, status, code, message, details)
}

func (s *HTTPServer) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = randomRequestID()
		}
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		started := time.Now()
		writer := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		setCORSHeaders(writer.Header(), s.corsOrigin)
		writer.Header().Set("X-Request-ID", requestID)

		next.ServeHTTP(writer, r)

		s.logger.Info("request",
			zap.String("request_id", requestID),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", writer.status),
			zap.Int64("duration_ms", time.Since(started).Milliseconds()),
		)
	})
}

type requestIDKey struct{}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Hijack lets /api/live upgrade through the recorder.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return hijacker.Hijack()
}

func randomRequestID() string {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

func setCORSHeaders(header http.Header, corsOrigin string) {
	header.Set("Access-Control-Allow-Origin", corsOrigin)
	header.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
	header.Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
	header.Set("Cache-Control", "no-store")
	header.Set("Content-Type", "application/json")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string, details any) {
	response := map[string]any{
		"code":  code,
		"error": message,
	}
	if details != nil {
		response["details"] = details
	}
	writeJSON(w, status, response)
}

func decodeBody(r *http.Request, target any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, http.ErrBodyReadAfterClose) {
			return nil
		}
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}

// sessionToken prefers the Authorization header over the browser cookie.
func sessionToken(r *http.Request) string {
	if token := bearerToken(r); token != "" {
		return token
	}
	if cookie, err := r.Cookie(sessionCookie); err == nil {
		return strings.TrimSpace(cookie.Value)
	}
	return ""
}

func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

func isSessionRejected(err error) bool {
	return errors.Is(err, auth.ErrInvalidToken) ||
		errors.Is(err, auth.ErrExpiredToken) ||
		errors.Is(err, store.ErrSessionNotFound)
}

func mapError(err error) (status int, code, message string, details any) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Status, domainErr.Code, domainErr.Message, domainErr.Details
	}
	if isSessionRejected(err) {
		return http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil
	}
	if errors.Is(err, gateway.ErrNotAuthorized) {
		return http.StatusServiceUnavailable, "NOT_CONNECTED", "Remote store is not connected", nil
	}
	return http.StatusInternalServerError, "SERVER_ERROR", "Server error", nil
}

func sessionPayload(ident identity.Identity) map[string]any {
	return map[string]any{
		"token":     ident.Token,
		"uid":       ident.UID,
		"role":      ident.Role,
		"anonymous": ident.Anonymous,
		"expiresAt": ident.ExpiresAt,
	}
}

func nonNilRecords(records []project.Record) []project.Record {
	if records == nil {
		return []project.Record{}
	}
	return records
}

func nonNilStrings(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

func nonNilCommits(commits []store.CommitInfo) []store.CommitInfo {
	if commits == nil {
		return []store.CommitInfo{}
	}
	return commits
}

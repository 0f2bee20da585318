package identity

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"go.uber.org/zap"
)

const sessionIDField = "sid"

// Middleware resolves the viewer for each request. A valid bearer token
// yields an authenticated viewer; everything else falls back to an anonymous
// visitor identified by a signed session cookie.
type Middleware struct {
	verifier   TokenVerifier
	store      sessions.Store
	cookieName string
	logger     *zap.Logger
}

// NewMiddleware creates the identity middleware. sessionKey signs the
// anonymous visitor cookie.
func NewMiddleware(verifier TokenVerifier, sessionKey []byte, cookieName string, logger *zap.Logger) *Middleware {
	store := sessions.NewCookieStore(sessionKey)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   0, // session cookie: skip state lives and dies with the browser session
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	return &Middleware{
		verifier:   verifier,
		store:      store,
		cookieName: cookieName,
		logger:     logger,
	}
}

// ResolveViewer attaches the viewer to the request context. It never rejects
// a request: an invalid or absent token simply produces an anonymous viewer.
func (m *Middleware) ResolveViewer(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		viewer := m.resolve(w, r)
		next(w, r.WithContext(SetViewer(r.Context(), viewer)))
	}
}

// RequireAdmin rejects requests whose viewer lacks tour administration
// rights before any store access.
func (m *Middleware) RequireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return m.ResolveViewer(func(w http.ResponseWriter, r *http.Request) {
		viewer, _ := GetViewer(r.Context())
		if viewer.Anonymous() {
			m.deny(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
			return
		}
		if !viewer.Admin {
			m.deny(w, http.StatusForbidden, "forbidden", "Tour administration rights required")
			return
		}
		next(w, r)
	})
}

func (m *Middleware) resolve(w http.ResponseWriter, r *http.Request) Viewer {
	if token := bearerToken(r); token != "" {
		claims, err := m.verifier.Verify(token)
		if err == nil && claims.UserID() != 0 {
			return Viewer{UserID: claims.UserID(), Admin: claims.IsAdmin()}
		}
		if err != nil {
			m.logger.Debug("Rejected bearer token", zap.Error(err))
		}
	}
	return Viewer{SessionID: m.visitorSession(w, r)}
}

// visitorSession returns the anonymous session id, minting and persisting a
// new one on first contact.
func (m *Middleware) visitorSession(w http.ResponseWriter, r *http.Request) string {
	session, err := m.store.Get(r, m.cookieName)
	if err != nil {
		// Tampered or stale cookie: start a fresh session.
		m.logger.Debug("Resetting visitor session", zap.Error(err))
	}

	if id, ok := session.Values[sessionIDField].(string); ok && id != "" {
		return id
	}

	id := uuid.NewString()
	session.Values[sessionIDField] = id
	if err := m.store.Save(r, w, session); err != nil {
		m.logger.Warn("Failed to save visitor session cookie", zap.Error(err))
	}
	return id
}

func (m *Middleware) deny(w http.ResponseWriter, statusCode int, errorCode, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   errorCode,
		"message": message,
	})
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}

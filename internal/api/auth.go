package api

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"
)

const (
	SessionCookieName = "chroma_chain_session"
	SessionDuration   = 24 * time.Hour

	// CookieSecure stays false until the server terminates TLS itself
	CookieSecure   = false
	CookieHTTPOnly = true
	CookieSameSite = http.SameSiteLaxMode
)

// AdminSession is one logged-in admin.
type AdminSession struct {
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SessionManager guards the admin endpoints (reset, pause, resume). Login
// exchanges the shared admin token for an HMAC-signed session cookie; the
// signing key is per-process, so restarting the server logs everyone out.
type SessionManager struct {
	mu         sync.RWMutex
	sessions   map[string]*AdminSession
	secretKey  []byte
	adminToken string // empty disables login entirely
}

// NewSessionManager creates a manager with a fresh random signing key.
func NewSessionManager(adminToken string) *SessionManager {
	secretKey := make([]byte, 32)
	if _, err := rand.Read(secretKey); err != nil {
		log.Printf("⚠️ Failed to generate secret key, using fallback")
		secretKey = []byte("chroma-chain-default-secret-key!")
	}

	sm := &SessionManager{
		sessions:   make(map[string]*AdminSession),
		secretKey:  secretKey,
		adminToken: adminToken,
	}
	go sm.expireLoop()
	return sm
}

// CreateSession registers a session and returns its ID.
func (sm *SessionManager) CreateSession(username string) string {
	id := make([]byte, 32)
	rand.Read(id)
	sessionID := hex.EncodeToString(id)

	sm.mu.Lock()
	sm.sessions[sessionID] = &AdminSession{
		Username:  username,
		CreatedAt: time.Now(),
		ExpiresAt: time.Now().Add(SessionDuration),
	}
	sm.mu.Unlock()

	log.Printf("🔐 Admin session created for: %s", username)
	return sessionID
}

// GetSession returns the live session for an ID, or nil when unknown or
// expired.
func (sm *SessionManager) GetSession(sessionID string) *AdminSession {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	session := sm.sessions[sessionID]
	if session == nil || time.Now().After(session.ExpiresAt) {
		return nil
	}
	return session
}

// DeleteSession drops a session by ID.
func (sm *SessionManager) DeleteSession(sessionID string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	delete(sm.sessions, sessionID)
}

// ValidateSession resolves the request cookie to a live session, or nil.
func (sm *SessionManager) ValidateSession(r *http.Request) *AdminSession {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		return nil
	}

	sessionID, err := sm.decodeCookie(cookie.Value)
	if err != nil {
		return nil
	}
	return sm.GetSession(sessionID)
}

// SetSessionCookie attaches the signed session cookie to the response.
func (sm *SessionManager) SetSessionCookie(w http.ResponseWriter, sessionID string) {
	http.SetCookie(w, sessionCookie(sm.encodeCookie(sessionID), int(SessionDuration.Seconds())))
}

// ClearSessionCookie expires the session cookie.
func (sm *SessionManager) ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, sessionCookie("", -1))
}

func sessionCookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: CookieHTTPOnly,
		Secure:   CookieSecure,
		SameSite: CookieSameSite,
	}
}

// encodeCookie signs the session ID: base64("sessionID.hex(hmac)").
func (sm *SessionManager) encodeCookie(sessionID string) string {
	return base64.URLEncoding.EncodeToString([]byte(sessionID + "." + sm.sign(sessionID)))
}

// decodeCookie verifies the signature and extracts the session ID.
func (sm *SessionManager) decodeCookie(cookieValue string) (string, error) {
	decoded, err := base64.URLEncoding.DecodeString(cookieValue)
	if err != nil {
		return "", errors.New("invalid cookie encoding")
	}

	sessionID, providedSig, ok := strings.Cut(string(decoded), ".")
	if !ok {
		return "", errors.New("invalid cookie format")
	}

	if !hmac.Equal([]byte(providedSig), []byte(sm.sign(sessionID))) {
		return "", errors.New("invalid cookie signature")
	}
	return sessionID, nil
}

func (sm *SessionManager) sign(sessionID string) string {
	mac := hmac.New(sha256.New, sm.secretKey)
	mac.Write([]byte(sessionID))
	return hex.EncodeToString(mac.Sum(nil))
}

// expireLoop sweeps out expired sessions every ten minutes.
func (sm *SessionManager) expireLoop() {
	for range time.Tick(10 * time.Minute) {
		now := time.Now()
		sm.mu.Lock()
		for id, session := range sm.sessions {
			if now.After(session.ExpiresAt) {
				delete(sm.sessions, id)
			}
		}
		sm.mu.Unlock()
	}
}

// AdminAuthMiddleware rejects requests without a valid admin session.
func (sm *SessionManager) AdminAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if sm.ValidateSession(r) == nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"error":   "unauthorized",
				"message": "Admin authentication required",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// HandleLogin exchanges the shared admin token for a session cookie.
func (sm *SessionManager) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Token    string `json:"token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request", http.StatusBadRequest)
		return
	}

	if sm.adminToken == "" {
		writeError(w, "Admin login is disabled", http.StatusForbidden)
		return
	}
	if subtle.ConstantTimeCompare([]byte(req.Token), []byte(sm.adminToken)) != 1 {
		log.Printf("🔐 Rejected admin login attempt from %s", GetClientIP(r))
		writeError(w, "Invalid token", http.StatusUnauthorized)
		return
	}

	if req.Username == "" {
		req.Username = "admin"
	}
	sm.SetSessionCookie(w, sm.CreateSession(req.Username))

	writeJSON(w, map[string]interface{}{
		"success":  true,
		"username": req.Username,
	})
}

// AuthStatus is the /api/auth/status response body.
type AuthStatus struct {
	Authenticated bool   `json:"authenticated"`
	Username      string `json:"username,omitempty"`
	ExpiresAt     int64  `json:"expires_at,omitempty"`
}

// HandleAuthStatus reports whether the caller holds a live session.
func (sm *SessionManager) HandleAuthStatus(w http.ResponseWriter, r *http.Request) {
	status := AuthStatus{}
	if session := sm.ValidateSession(r); session != nil {
		status.Authenticated = true
		status.Username = session.Username
		status.ExpiresAt = session.ExpiresAt.Unix()
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(status)
}

// HandleLogout deletes the caller's session and clears the cookie.
func (sm *SessionManager) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(SessionCookieName); err == nil {
		if sessionID, err := sm.decodeCookie(cookie.Value); err == nil {
			sm.DeleteSession(sessionID)
		}
	}
	sm.ClearSessionCookie(w)

	writeJSON(w, map[string]bool{"success": true})
}

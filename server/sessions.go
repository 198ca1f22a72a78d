package server

import (
	"crypto/rand"
	"encoding/base64"
	"net/http"
	"sync"
)

const sessionCookie = "careform_session"

// session is the per-browser state: the gate flag and the most recently
// rendered document, kept so the download link still works after an upload
// failure.
type session struct {
	mu       sync.Mutex
	passed   bool
	pdf      []byte
	filename string
}

func (s *session) authorized() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.passed
}

func (s *session) authorize() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.passed = true
}

func (s *session) store(filename string, pdf []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.filename = filename
	s.pdf = pdf
}

func (s *session) document() (string, []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.filename, s.pdf
}

type sessions struct {
	mu   sync.Mutex
	byID map[string]*session
}

func newSessions() *sessions {
	return &sessions{
		byID: map[string]*session{},
	}
}

// get returns the session for the request cookie, creating one (and setting
// the cookie) if the browser has none yet.
func (s *sessions) get(w http.ResponseWriter, r *http.Request) *session {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cookie, err := r.Cookie(sessionCookie); err == nil {
		if session, ok := s.byID[cookie.Value]; ok {
			return session
		}
	}

	id := randomToken(32)
	session := &session{}
	s.byID[id] = session

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})

	return session
}

func randomToken(n int) string {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}

	return base64.RawURLEncoding.EncodeToString(b)
}

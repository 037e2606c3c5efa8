package server

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"golang.org/x/crypto/hkdf"
)

// LearnerHeader lets API clients that do not keep cookies name the learner.
// It is ignored unless the server is configured to trust it.
const LearnerHeader = "X-Learner-ID"

const (
	sessionLearnerKey = "user_id"
	maxLearnerIDLen   = 128
)

var errBadLearnerID = errors.New("invalid learner id")

// sessionKeys derives an authentication key and an encryption key from one
// secret.
func sessionKeys(secret string) (authKey, encKey []byte, err error) {
	if secret == "" {
		return nil, nil, fmt.Errorf("session secret is empty")
	}
	r := hkdf.New(sha256.New, []byte(secret), []byte("sat-prep session"), []byte("cookie keys"))
	authKey = make([]byte, 32)
	encKey = make([]byte, 32)
	if _, err := io.ReadFull(r, authKey); err != nil {
		return nil, nil, fmt.Errorf("deriving auth key: %w", err)
	}
	if _, err := io.ReadFull(r, encKey); err != nil {
		return nil, nil, fmt.Errorf("deriving encryption key: %w", err)
	}
	return authKey, encKey, nil
}

func newCookieStore(secret string, maxAge time.Duration, secure bool) (*sessions.CookieStore, error) {
	authKey, encKey, err := sessionKeys(secret)
	if err != nil {
		return nil, err
	}
	store := sessions.NewCookieStore(authKey, encKey)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return store, nil
}

// learnerID resolves who is calling. A trusted header wins; otherwise the
// cookie session is used and a new learner id is issued on first visit.
// Must run before anything is written to w.
func (s *Server) learnerID(w http.ResponseWriter, r *http.Request) (string, error) {
	if s.trustHeader {
		if id := strings.TrimSpace(r.Header.Get(LearnerHeader)); id != "" {
			if len(id) > maxLearnerIDLen {
				return "", errBadLearnerID
			}
			return id, nil
		}
	}

	// A cookie that no longer decodes (rotated secret) yields a fresh session.
	session, _ := s.cookies.Get(r, s.sessionName)
	if id, ok := session.Values[sessionLearnerKey].(string); ok && id != "" {
		return id, nil
	}

	id := uuid.NewString()
	session.Values[sessionLearnerKey] = id
	if err := session.Save(r, w); err != nil {
		return "", fmt.Errorf("saving session: %w", err)
	}
	return id, nil
}

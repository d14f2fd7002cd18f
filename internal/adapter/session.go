package adapter

import (
	"sync"

	"github.com/MKhiriev/farm-sync/internal/logger"
	"github.com/MKhiriev/farm-sync/internal/utils"
)

type tokenSession struct {
	logger *logger.Logger

	mu     sync.RWMutex
	userID string
}

// NewTokenSession constructs a [Session] whose user identity is extracted
// from the "sub" claim of the given bearer token. An empty or unparsable
// token yields a sessionless identity (empty user id), which the engine
// treats as "any session may replay".
func NewTokenSession(token string, logger *logger.Logger) Session {
	s := &tokenSession{logger: logger}
	s.Update(token)
	return s
}

// Update replaces the session token, re-deriving the user identifier.
func (s *tokenSession) Update(token string) {
	userID := ""
	if token != "" {
		sub, err := utils.ParseSubjectFromJWT(token)
		if err != nil {
			s.logger.Warn().Err(err).Msg("cannot extract user id from session token")
		} else {
			userID = sub
		}
	}

	s.mu.Lock()
	s.userID = userID
	s.mu.Unlock()
}

// CurrentUserID implements [Session].
func (s *tokenSession) CurrentUserID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userID
}

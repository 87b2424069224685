package auth

import (
	"errors"
	"sync"

	"github.com/google/uuid"
)

var ErrInvalidToken = errors.New("invalid or expired token")

// Registry maps bearer tokens to user ids for the lifetime of the process.
// Tokens are a session convenience, not a security boundary.
type Registry struct {
	mu     sync.RWMutex
	tokens map[string]string
}

func NewRegistry() *Registry {
	return &Registry{tokens: map[string]string{}}
}

func (r *Registry) Issue(userID string) string {
	token := uuid.NewString()
	r.mu.Lock()
	r.tokens[token] = userID
	r.mu.Unlock()
	return token
}

func (r *Registry) Lookup(token string) (string, error) {
	r.mu.RLock()
	userID, ok := r.tokens[token]
	r.mu.RUnlock()
	if !ok {
		return "", ErrInvalidToken
	}
	return userID, nil
}

func (r *Registry) Revoke(token string) {
	r.mu.Lock()
	delete(r.tokens, token)
	r.mu.Unlock()
}

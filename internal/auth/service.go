package auth

import (
	"context"
	"errors"

	"agenthq-backend/internal/directory"
)

// SessionShape is the agent object stored in session and returned by /me.
type SessionShape struct {
	AgentID  string `json:"agent_id"`
	Fullname string `json:"fullname"`
	Email    string `json:"email"`
}

// Login verifies credentials against the identity directory. The directory
// owns authentication entirely; this service only turns its answer into a
// session shape.
func Login(ctx context.Context, verifier directory.CredentialVerifier, email, password string) (*SessionShape, error) {
	if email == "" || password == "" {
		return nil, ErrEmailPasswordRequired
	}
	profile, err := verifier.VerifyCredentials(ctx, email, password)
	if errors.Is(err, directory.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	return &SessionShape{AgentID: profile.AgentID, Fullname: profile.Fullname, Email: profile.Email}, nil
}

// VerifyAgent validates the session agent and returns the shape for /me.
func VerifyAgent(sessionAgent interface{}) (*SessionShape, error) {
	if sessionAgent == nil {
		return nil, ErrNotAuthenticated
	}
	m, ok := sessionAgent.(map[string]interface{})
	if !ok {
		return nil, ErrNotAuthenticated
	}
	agentID, _ := m["agent_id"].(string)
	if agentID == "" {
		return nil, ErrNotAuthenticated
	}
	fullname, _ := m["fullname"].(string)
	email, _ := m["email"].(string)
	return &SessionShape{AgentID: agentID, Fullname: fullname, Email: email}, nil
}

package auth

import (
	"context"
	"testing"

	"agenthq-backend/internal/directory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubVerifier struct {
	profile *directory.Profile
	err     error
}

func (s *stubVerifier) VerifyCredentials(ctx context.Context, email, password string) (*directory.Profile, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.profile, nil
}

func TestLogin(t *testing.T) {
	v := &stubVerifier{profile: &directory.Profile{AgentID: "a1", Fullname: "Agent One", Email: "a1@example.com"}}

	shape, err := Login(context.Background(), v, "a1@example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, "a1", shape.AgentID)
	assert.Equal(t, "Agent One", shape.Fullname)
}

func TestLogin_MissingFields(t *testing.T) {
	v := &stubVerifier{}
	_, err := Login(context.Background(), v, "", "secret")
	assert.ErrorIs(t, err, ErrEmailPasswordRequired)

	_, err = Login(context.Background(), v, "a1@example.com", "")
	assert.ErrorIs(t, err, ErrEmailPasswordRequired)
}

func TestLogin_BadCredentials(t *testing.T) {
	v := &stubVerifier{err: directory.ErrNotFound}
	_, err := Login(context.Background(), v, "a1@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogin_DirectoryDown(t *testing.T) {
	v := &stubVerifier{err: directory.ErrUnavailable}
	_, err := Login(context.Background(), v, "a1@example.com", "secret")
	assert.ErrorIs(t, err, directory.ErrUnavailable)
}

func TestVerifyAgent(t *testing.T) {
	shape, err := VerifyAgent(map[string]interface{}{
		"agent_id": "a1", "fullname": "Agent One", "email": "a1@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, "a1", shape.AgentID)

	_, err = VerifyAgent(nil)
	assert.ErrorIs(t, err, ErrNotAuthenticated)

	_, err = VerifyAgent(map[string]interface{}{"fullname": "No ID"})
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

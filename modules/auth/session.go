package auth

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/guarzo/hrapi/common"
	"github.com/guarzo/hrapi/modules/session"
)

const minPasswordLength = 6

// SessionService is the user-facing side of authentication: signing in,
// signing out and asking whether a session exists.
type SessionService interface {
	Login(ctx context.Context, email, password string) error
	Logout(ctx context.Context) error
	IsAuthenticated(ctx context.Context) bool
}

type sessionService struct {
	client  common.AuthClient
	session *session.Manager
}

func NewSessionService(client common.AuthClient, sess *session.Manager) SessionService {
	return &sessionService{client: client, session: sess}
}

// Login checks the credentials locally, exchanges them for a token pair and
// persists both tokens.
func (s *sessionService) Login(ctx context.Context, email, password string) error {
	if err := validateCredentials(email, password); err != nil {
		return err
	}
	tok, err := s.client.Login(ctx, strings.TrimSpace(email), password)
	if err != nil {
		return err
	}
	if err := s.session.Save(ctx, tok); err != nil {
		return err
	}
	log.Info().Str("email", email).Msg("logged in")
	return nil
}

// Logout notifies the server when a token is stored, then clears the session
// whatever the server said.
func (s *sessionService) Logout(ctx context.Context) error {
	tok, err := s.session.Token(ctx)
	if err != nil {
		return err
	}
	if tok.AccessToken != "" {
		if err := s.client.Logout(ctx, tok.AccessToken); err != nil {
			log.Debug().Err(err).Msg("logout endpoint failed, clearing session anyway")
		}
	}
	return s.session.Clear(ctx)
}

func (s *sessionService) IsAuthenticated(ctx context.Context) bool {
	return s.session.IsAuthenticated(ctx)
}

func validateCredentials(email, password string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return fmt.Errorf("%w: email is required", common.ErrInvalidRequest)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return fmt.Errorf("%w: invalid email address", common.ErrInvalidRequest)
	}
	if password == "" {
		return fmt.Errorf("%w: password is required", common.ErrInvalidRequest)
	}
	if len(password) < minPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", common.ErrInvalidRequest, minPasswordLength)
	}
	return nil
}

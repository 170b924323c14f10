package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ndemidenko/pressroom/internal/apperr"
	"github.com/ndemidenko/pressroom/internal/events"
	"github.com/ndemidenko/pressroom/internal/hash"
	"github.com/ndemidenko/pressroom/internal/models"
	"github.com/ndemidenko/pressroom/internal/repo"
)

type AuthService struct {
	Users  *repo.UserRepo
	Tokens *TokenService
	Events events.Publisher
	Log    *slog.Logger
}

type RegisterInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
}

type LoginResult struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// Register creates the user with the lowest-privilege role and logs
// them in immediately.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*LoginResult, error) {
	user, err := s.Users.Create(ctx, repo.CreateUserInput{
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Email:     in.Email,
		Password:  in.Password,
	})
	if err != nil {
		return nil, err
	}

	token, err := s.Tokens.IssueToken(user.ID)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, "user_registered", user)
	return &LoginResult{Token: token, User: user}, nil
}

// Login verifies the credentials and issues a token. Unknown email and
// wrong password are indistinguishable from the outside.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.Users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.ErrInvalidCredentials
		}
		return nil, err
	}
	if !hash.CheckPassword(user.PasswordHash, password) {
		return nil, apperr.ErrInvalidCredentials
	}

	token, err := s.Tokens.IssueToken(user.ID)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, "user_logged_in", user)
	return &LoginResult{Token: token, User: user}, nil
}

// ChangePassword re-verifies the current password, stores the new one
// and stamps the blacklist date so every previously issued token dies.
func (s *AuthService) ChangePassword(ctx context.Context, userID uint, current, newPassword string) error {
	user, err := s.Users.FindOneByID(ctx, userID, false)
	if err != nil {
		return err
	}
	if !hash.CheckPassword(user.PasswordHash, current) {
		return apperr.ErrInvalidCredentials
	}

	return s.Users.Update(ctx, userID, map[string]any{
		"password":             newPassword,
		"token_blacklist_date": s.Tokens.now(),
	})
}

func (s *AuthService) ChangeEmail(ctx context.Context, userID uint, current, newEmail string) error {
	user, err := s.Users.FindOneByID(ctx, userID, false)
	if err != nil {
		return err
	}
	if !hash.CheckPassword(user.PasswordHash, current) {
		return apperr.ErrInvalidCredentials
	}

	return s.Users.Update(ctx, userID, map[string]any{"email": newEmail})
}

// RevokeTokens invalidates every token issued to the user so far.
func (s *AuthService) RevokeTokens(ctx context.Context, userID uint) error {
	return s.Users.Update(ctx, userID, map[string]any{
		"token_blacklist_date": s.Tokens.now(),
	})
}

func (s *AuthService) publish(ctx context.Context, eventType string, user *models.User) {
	if s.Events == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	event := map[string]any{
		"type":   eventType,
		"userID": user.ID,
		"email":  user.Email,
	}
	if err := s.Events.PublishEvent(ctx, "user_events", fmt.Sprint(user.ID), event); err != nil {
		s.logger().ErrorContext(ctx, "kafka publish failed", "error", err, "event", eventType)
	}
}

func (s *AuthService) logger() *slog.Logger {
	if s.Log != nil {
		return s.Log
	}
	return slog.Default()
}

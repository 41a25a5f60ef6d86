// Package firebaseauth implements the identity port on Firebase
// Authentication.
package firebaseauth

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"

	"github.com/eggbucket/admin-api/internal/identity"
)

type Service struct {
	cli *auth.Client
}

func New(ctx context.Context, projectID string) (*Service, error) {
	var cfg *firebase.Config
	if projectID != "" {
		cfg = &firebase.Config{ProjectID: projectID}
	}
	app, err := firebase.NewApp(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("firebase app: %w", err)
	}
	cli, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase auth client: %w", err)
	}
	return &Service{cli: cli}, nil
}

func (s *Service) LookupByEmail(ctx context.Context, email string) (string, error) {
	u, err := s.cli.GetUserByEmail(ctx, email)
	if auth.IsUserNotFound(err) {
		return "", fmt.Errorf("%s: %w", email, identity.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("lookup %s: %w", email, err)
	}
	return u.UID, nil
}

func (s *Service) Create(ctx context.Context, email, password, displayName string) (string, error) {
	params := (&auth.UserToCreate{}).
		Email(email).
		Password(password).
		DisplayName(displayName)
	u, err := s.cli.CreateUser(ctx, params)
	if err != nil {
		return "", fmt.Errorf("create principal %s: %w", email, err)
	}
	return u.UID, nil
}

func (s *Service) Update(ctx context.Context, uid, email, displayName string) error {
	params := (&auth.UserToUpdate{}).
		Email(email).
		DisplayName(displayName)
	if _, err := s.cli.UpdateUser(ctx, uid, params); err != nil {
		return fmt.Errorf("update principal %s: %w", uid, err)
	}
	return nil
}

func (s *Service) Delete(ctx context.Context, uid string) error {
	if err := s.cli.DeleteUser(ctx, uid); err != nil {
		return fmt.Errorf("delete principal %s: %w", uid, err)
	}
	return nil
}

var _ identity.Service = (*Service)(nil)

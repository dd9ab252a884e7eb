package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/Skotchmaster/laptop_shop/internal/models"
	"github.com/Skotchmaster/laptop_shop/internal/repo"
	"github.com/Skotchmaster/laptop_shop/internal/transport"
	pkg_hash "github.com/Skotchmaster/laptop_shop/pkg/hash"
	"github.com/Skotchmaster/laptop_shop/pkg/logging"
	"github.com/Skotchmaster/laptop_shop/pkg/tokens"
)

const (
	MinSecretLen       = 4
	BootstrapAdminName = "admin"
)

type AdminService struct {
	Repo     *repo.GormRepo
	Secret   []byte
	TokenTTL time.Duration
}

type LoginResult struct {
	Token     string    `json:"token"`
	Username  string    `json:"username"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Bootstrap creates the first admin account, with the shared secret as its key,
// when no admin exists yet. It reports whether an account was created.
func (s *AdminService) Bootstrap(ctx context.Context) (bool, error) {
	n, err := s.Repo.CountAdmins(ctx)
	if err != nil {
		return false, err
	}
	if n > 0 {
		return false, nil
	}
	_, err = s.Create(ctx, transport.CreateAdminRequest{Username: BootstrapAdminName, SecretKey: string(s.Secret)})
	if errors.Is(err, ErrConflict) {
		return false, nil
	}
	return err == nil, err
}

func (s *AdminService) Login(ctx context.Context, req transport.LoginRequest) (*LoginResult, error) {
	l := logging.FromContext(ctx).With("svc", "admin.login", "username", req.Username)

	username := strings.TrimSpace(req.Username)
	if username == "" || req.SecretKey == "" {
		return nil, fmt.Errorf("%w: username and secret_key required", ErrValidation)
	}

	u, err := s.Repo.AdminByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			l.Warn("login_failed", "reason", "unknown username")
			return nil, fmt.Errorf("%w: invalid username or secret key", ErrUnauthorized)
		}
		return nil, err
	}
	if !pkg_hash.CheckSecret(u.SecretHash, req.SecretKey) {
		l.Warn("login_failed", "reason", "secret mismatch")
		return nil, fmt.Errorf("%w: invalid username or secret key", ErrUnauthorized)
	}

	token, err := tokens.IssueAdminToken(s.Secret, u.ID, u.Username, s.TokenTTL)
	if err != nil {
		return nil, err
	}
	l.Info("login_success")
	return &LoginResult{Token: token, Username: u.Username, ExpiresAt: time.Now().Add(s.TokenTTL).UTC()}, nil
}

func (s *AdminService) Create(ctx context.Context, req transport.CreateAdminRequest) (*models.AdminUser, error) {
	username := strings.TrimSpace(req.Username)
	secret := req.SecretKey
	if secret == "" {
		secret = req.Password
	}
	if username == "" {
		return nil, fmt.Errorf("%w: username required", ErrValidation)
	}
	if len(secret) < MinSecretLen {
		return nil, fmt.Errorf("%w: secret_key must be at least %d characters", ErrValidation, MinSecretLen)
	}

	hash, err := pkg_hash.HashSecret(secret)
	if err != nil {
		return nil, err
	}
	u := &models.AdminUser{Username: username, SecretHash: hash}
	if err := s.Repo.CreateAdminIfNotExists(ctx, u); err != nil {
		return nil, translate(err, "admin "+username)
	}
	return u, nil
}

func (s *AdminService) List(ctx context.Context) ([]models.AdminUser, error) {
	return s.Repo.ListAdmins(ctx)
}

func (s *AdminService) Delete(ctx context.Context, id uint) error {
	return translate(s.Repo.DeleteAdmin(ctx, id), "admin")
}

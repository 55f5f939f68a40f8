package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"secretary_server/server/common/auth"
	"secretary_server/server/common/log"
	"secretary_server/server/secretary/domain"
	"secretary_server/server/secretary/repository"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

// AuthService manages dashboard accounts (admin and executive) keyed by
// email, with bcrypt password hashes and JWT session tokens.
type AuthService struct {
	users *repository.UserRepository
	jwt   *auth.Service
	now   func() time.Time
}

func NewAuthService(users *repository.UserRepository, jwt *auth.Service) *AuthService {
	return &AuthService{users: users, jwt: jwt, now: time.Now}
}

type RegisterInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	UserType string `json:"userType"`
	TenantID string `json:"tenantId"`
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (domain.Account, error) {
	switch {
	case strings.TrimSpace(in.Email) == "":
		return domain.Account{}, domain.NewValidationError("email")
	case len(in.Password) < 8:
		return domain.Account{}, domain.NewValidationError("password")
	case strings.TrimSpace(in.Name) == "":
		return domain.Account{}, domain.NewValidationError("name")
	}
	userType := in.UserType
	if userType == "" {
		userType = "executive"
	}
	if userType != "admin" && userType != "executive" {
		return domain.Account{}, domain.NewValidationError("userType")
	}
	if _, err := s.users.GetAccount(ctx, userType, in.Email); err == nil {
		return domain.Account{}, domain.NewValidationError("email")
	} else if !errors.Is(err, repository.ErrNotFound) {
		return domain.Account{}, err
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return domain.Account{}, err
	}
	account := domain.Account{
		UserID:         generateID("account", s.now()),
		Email:          strings.ToLower(strings.TrimSpace(in.Email)),
		Name:           in.Name,
		UserType:       userType,
		TenantID:       in.TenantID,
		HashedPassword: string(hashed),
		CreatedAt:      s.now().UTC(),
	}
	if err := s.users.PutAccount(ctx, account); err != nil {
		return domain.Account{}, err
	}
	log.Infof("account registered: type=%s email=%s", userType, account.Email)
	return account, nil
}

type LoginResult struct {
	Token     string
	Account   domain.Account
	ExpiresAt time.Time
}

func (s *AuthService) Login(ctx context.Context, userType, email, password string) (LoginResult, error) {
	if userType == "" {
		userType = "executive"
	}
	account, err := s.users.GetAccount(ctx, userType, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return LoginResult{}, ErrInvalidCredentials
		}
		return LoginResult{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(account.HashedPassword), []byte(password)) != nil {
		return LoginResult{}, ErrInvalidCredentials
	}
	tenantID := account.TenantID
	if tenantID == "" {
		// Accounts created before the user provisioned or joined a tenant pick
		// up the tenant from the user directory at login time.
		if ref, err := s.users.Resolve(ctx, account.UserID); err == nil {
			tenantID = ref.TenantID
		}
	}
	account.TenantID = tenantID
	token, expiresAt, err := s.jwt.GenerateToken(account.UserID, tenantID, account.UserType)
	if err != nil {
		return LoginResult{}, err
	}
	return LoginResult{Token: token, Account: account, ExpiresAt: expiresAt}, nil
}

// Verify checks signature and expiry only; logout is a client-side token drop.
func (s *AuthService) Verify(token string) (*auth.Claims, error) {
	return s.jwt.ParseToken(token)
}

package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"neighbor-storage-backend/internal/domain"
	"neighbor-storage-backend/internal/logger"
	"neighbor-storage-backend/internal/repository"
	"neighbor-storage-backend/internal/security"
)

var ErrInvalidCredentials = fmt.Errorf("%w: invalid email or password", domain.ErrUnauthorized)

const minPasswordLength = 8

type SignupRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	Nickname    string `json:"nickname"`
	Location    string `json:"location"`
	IsShopOwner bool   `json:"is_shop_owner"`
	ShopName    string `json:"shop_name"`
}

type authService struct {
	store        repository.Store
	tokens       security.TokenManager
	welcomeBonus int64
}

func NewAuthService(store repository.Store, tokens security.TokenManager, welcomeBonus int64) AuthService {
	return &authService{store: store, tokens: tokens, welcomeBonus: welcomeBonus}
}

// Signup creates the account and credits the welcome bonus in one transaction.
func (s *authService) Signup(ctx context.Context, req SignupRequest) (*domain.User, string, error) {
	logger.EnterMethod("authService.Signup", "email", req.Email)

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, "", domain.Invalid("email is not valid")
	}
	if len(req.Password) < minPasswordLength {
		return nil, "", domain.Invalid(fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}
	nickname := strings.TrimSpace(req.Nickname)
	if nickname == "" {
		return nil, "", domain.Invalid("nickname is required")
	}
	if req.IsShopOwner && strings.TrimSpace(req.ShopName) == "" {
		return nil, "", domain.Invalid("shop name is required for shop owners")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash password: %w", err)
	}

	user := &domain.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		Nickname:     nickname,
		Location:     req.Location,
		TrustScore:   domain.DefaultTrustScore,
		IsShopOwner:  req.IsShopOwner,
		ShopName:     req.ShopName,
	}

	err = s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		if err := repos.Users.Create(ctx, user); err != nil {
			return err
		}
		if s.welcomeBonus <= 0 {
			return nil
		}
		_, err := repos.Ledger.Apply(ctx, domain.LedgerEntry{
			UserID:      user.ID,
			Amount:      s.welcomeBonus,
			Type:        domain.TransactionTypeCharge,
			Description: "Welcome bonus",
		})
		return err
	})
	if err != nil {
		logger.ExitMethodWithError("authService.Signup", err, "email", email)
		return nil, "", err
	}
	user.Balance = s.welcomeBonus

	token, err := s.issue(user)
	if err != nil {
		return nil, "", err
	}
	logger.ExitMethod("authService.Signup", "userID", user.ID)
	return user, token, nil
}

func (s *authService) Login(ctx context.Context, email, password string) (*domain.User, string, error) {
	user, err := s.store.Repos().Users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, "", ErrInvalidCredentials
	}
	if user.IsBanned {
		return nil, "", fmt.Errorf("%w: %w", domain.ErrForbidden, domain.ErrUserBanned)
	}

	token, err := s.issue(user)
	if err != nil {
		return nil, "", err
	}
	logger.Info("User logged in", "userID", user.ID)
	return user, token, nil
}

func (s *authService) issue(user *domain.User) (string, error) {
	var roles []string
	if user.IsAdmin {
		roles = append(roles, security.RoleAdmin)
	}
	token, err := s.tokens.GenerateAccessToken(user.ID, user.Email, roles)
	if err != nil {
		return "", fmt.Errorf("failed to generate access token: %w", err)
	}
	return token, nil
}

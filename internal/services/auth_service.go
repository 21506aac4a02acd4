package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	stderrors "errors"

	"github.com/honeynil/UdhaarLedger/internal/infrastructure/auth"
	"github.com/honeynil/UdhaarLedger/internal/infrastructure/redis"
	"github.com/honeynil/UdhaarLedger/internal/models"
	"github.com/honeynil/UdhaarLedger/internal/repository"
	pkgerrors "github.com/honeynil/UdhaarLedger/pkg/errors"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/crypto/bcrypt"
)

const authTracer = "auth-service"

type RegisterInput struct {
	Username    string      `json:"username"`
	Password    string      `json:"password"`
	Name        string      `json:"name"`
	Role        models.Role `json:"role"`
	ShopName    string      `json:"shop_name,omitempty"`
	Address     string      `json:"address,omitempty"`
	SocietyName string      `json:"society_name,omitempty"`
}

type AuthService struct {
	users       repository.UserRepository
	shops       repository.ShopRepository
	redisClient redis.RedisClient
	tokens      *auth.TokenManager
}

func NewAuthService(
	users repository.UserRepository,
	shops repository.ShopRepository,
	redisClient redis.RedisClient,
	tokens *auth.TokenManager,
) *AuthService {
	return &AuthService{
		users:       users,
		shops:       shops,
		redisClient: redisClient,
		tokens:      tokens,
	}
}

// Register creates the account. Shopkeepers get their shop in the same
// write; it is named "<name>'s Store" unless a name is given.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.Profile, error) {
	ctx, span := startSpan(ctx, authTracer, "Register")
	defer span.End()

	in.Username = strings.TrimSpace(in.Username)
	if in.Username == "" || in.Password == "" {
		span.SetStatus(codes.Error, "empty username or password")
		return nil, pkgerrors.Validationf("username and password are required")
	}
	if !in.Role.Valid() {
		span.SetStatus(codes.Error, "invalid role")
		return nil, pkgerrors.ErrInvalidRole
	}
	if in.Name == "" {
		in.Name = in.Username
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		spanError(span, err, "password hashing failed")
		slog.Error("failed to hash password", "username", in.Username, "error", err)
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Username:     in.Username,
		PasswordHash: string(hash),
		Name:         in.Name,
		Role:         in.Role,
		Address:      in.Address,
		SocietyName:  in.SocietyName,
	}

	var shop *models.Shop
	if in.Role == models.RoleShopkeeper {
		name := strings.TrimSpace(in.ShopName)
		if name == "" {
			name = in.Name + "'s Store"
		}
		shop = &models.Shop{Name: name}
	}

	if err := s.users.Create(ctx, user, shop); err != nil {
		spanError(span, err, "user creation failed")
		slog.Error("failed to register user", "username", in.Username, "role", in.Role, "error", err)
		return nil, err
	}

	profile := &models.Profile{User: *user}
	if shop != nil {
		profile.ShopID = shop.ID
		profile.ShopName = shop.Name
	}

	slog.Info("user registered", "user_id", user.ID, "username", user.Username, "role", user.Role)
	return profile, nil
}

// Login checks the password and issues a token that stays valid until it
// expires or Logout revokes it.
func (s *AuthService) Login(ctx context.Context, username, password string) (*models.Profile, string, error) {
	ctx, span := startSpan(ctx, authTracer, "Login")
	defer span.End()

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if stderrors.Is(err, pkgerrors.ErrNotFound) || stderrors.Is(err, pkgerrors.ErrValidation) {
			span.SetStatus(codes.Error, "invalid credentials")
			slog.Warn("login with unknown username", "username", username)
			return nil, "", pkgerrors.ErrInvalidCredentials
		}
		spanError(span, err, "user lookup failed")
		return nil, "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		span.SetStatus(codes.Error, "invalid credentials")
		slog.Warn("login with wrong password", "user_id", user.ID)
		return nil, "", pkgerrors.ErrInvalidCredentials
	}

	profile, err := s.profile(ctx, user)
	if err != nil {
		spanError(span, err, "shop lookup failed")
		return nil, "", err
	}

	token, err := s.tokens.Generate(user, profile.ShopID)
	if err != nil {
		spanError(span, err, "token generation failed")
		slog.Error("failed to generate token", "user_id", user.ID, "error", err)
		return nil, "", fmt.Errorf("failed to generate token: %w", err)
	}

	if err := s.redisClient.Set(ctx, redis.TokenKey(user.ID), token, s.tokens.TTL()); err != nil {
		spanError(span, err, "token store failed")
		slog.Error("failed to store token", "user_id", user.ID, "error", err)
		return nil, "", fmt.Errorf("failed to store token: %w", err)
	}

	slog.Info("user logged in", "user_id", user.ID, "role", user.Role)
	return profile, token, nil
}

func (s *AuthService) Logout(ctx context.Context, userID int64) error {
	ctx, span := startSpan(ctx, authTracer, "Logout")
	defer span.End()

	if err := s.redisClient.Del(ctx, redis.TokenKey(userID)); err != nil {
		spanError(span, err, "token revoke failed")
		slog.Error("failed to revoke token", "user_id", userID, "error", err)
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	slog.Info("user logged out", "user_id", userID)
	return nil
}

func (s *AuthService) UpdateProfile(ctx context.Context, userID int64, update models.ProfileUpdate) (*models.User, error) {
	ctx, span := startSpan(ctx, authTracer, "UpdateProfile")
	defer span.End()

	if update.Name != nil && strings.TrimSpace(*update.Name) == "" {
		span.SetStatus(codes.Error, "empty name")
		return nil, pkgerrors.Validationf("name cannot be empty")
	}
	if update.MonthlyLimit != nil && update.MonthlyLimit.IsNegative() {
		span.SetStatus(codes.Error, "negative monthly limit")
		return nil, pkgerrors.Validationf("monthly limit cannot be negative")
	}
	if update.MonthlyLimit != nil && !models.ValidMoneyScale(*update.MonthlyLimit) {
		span.SetStatus(codes.Error, "monthly limit scale")
		return nil, pkgerrors.Validationf("monthly limit has more than %d decimal places", models.MoneyScale)
	}

	user, err := s.users.UpdateProfile(ctx, userID, update)
	if err != nil {
		spanError(span, err, "profile update failed")
		slog.Error("failed to update profile", "user_id", userID, "error", err)
		return nil, err
	}
	slog.Info("profile updated", "user_id", userID)
	return user, nil
}

func (s *AuthService) profile(ctx context.Context, user *models.User) (*models.Profile, error) {
	profile := &models.Profile{User: *user}
	if user.Role != models.RoleShopkeeper {
		return profile, nil
	}
	shop, err := s.shops.GetByOwner(ctx, user.ID)
	if err != nil {
		if stderrors.Is(err, pkgerrors.ErrNotFound) {
			return profile, nil
		}
		return nil, err
	}
	profile.ShopID = shop.ID
	profile.ShopName = shop.Name
	return profile, nil
}

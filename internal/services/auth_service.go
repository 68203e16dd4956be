package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"agrilink/internal/config"
	"agrilink/internal/domain/identity"
	"agrilink/internal/repository"
	agrilink_errors "agrilink/pkg/errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// AuthService handles registration, login and token parsing. The rest of
// the system only sees the Principal it puts into the request context.
type AuthService struct {
	userRepo  repository.UserRepository
	jwtSecret []byte
	tokenTTL  time.Duration
}

func NewAuthService(userRepo repository.UserRepository, cfg *config.Config) *AuthService {
	return &AuthService{
		userRepo:  userRepo,
		jwtSecret: []byte(cfg.Auth.JWTSecret),
		tokenTTL:  cfg.Auth.TokenTTL,
	}
}

type RegisterInput struct {
	Email       string
	Password    string
	Role        identity.Role
	DisplayName string
}

type AuthResponse struct {
	AccessToken string        `json:"access_token"`
	ExpiresIn   int64         `json:"expires_in"`
	User        identity.User `json:"user"`
}

type AccessClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (AuthResponse, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if in.Email == "" || len(in.Password) < 8 || !in.Role.Valid() {
		return AuthResponse{}, agrilink_errors.ErrInvalidInput
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return AuthResponse{}, err
	}

	u := &identity.User{
		Email:        in.Email,
		PasswordHash: string(hash),
		Role:         in.Role,
		DisplayName:  in.DisplayName,
	}
	if err := s.userRepo.Create(ctx, u); err != nil {
		return AuthResponse{}, err
	}
	return s.issueToken(*u)
}

func (s *AuthService) Login(ctx context.Context, email, password string) (AuthResponse, error) {
	u, err := s.userRepo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, agrilink_errors.ErrNotFound) {
			return AuthResponse{}, agrilink_errors.ErrUnauthorized
		}
		return AuthResponse{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return AuthResponse{}, agrilink_errors.ErrUnauthorized
	}
	return s.issueToken(u)
}

func (s *AuthService) issueToken(u identity.User) (AuthResponse, error) {
	now := time.Now()
	claims := AccessClaims{
		Role: string(u.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
	if err != nil {
		return AuthResponse{}, err
	}
	return AuthResponse{
		AccessToken: token,
		ExpiresIn:   int64(s.tokenTTL.Seconds()),
		User:        u,
	}, nil
}

// ParseAccessToken validates a token and returns the principal it names.
func (s *AuthService) ParseAccessToken(tokenString string) (Principal, error) {
	claims := &AccessClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, agrilink_errors.ErrUnauthorized
		}
		return s.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return Principal{}, agrilink_errors.ErrUnauthorized
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return Principal{}, agrilink_errors.ErrUnauthorized
	}
	role := identity.Role(claims.Role)
	if !role.Valid() {
		return Principal{}, agrilink_errors.ErrUnauthorized
	}
	return Principal{UserID: userID, Role: role}, nil
}

// Principal is the authenticated caller: the opaque user id plus its
// declared role. Profile resolution happens in the services.
type Principal struct {
	UserID uuid.UUID
	Role   identity.Role
}

type principalCtxKey struct{}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalCtxKey{}, p)
}

func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalCtxKey{}).(Principal)
	return p, ok
}

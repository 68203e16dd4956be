package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"agrilink/internal/config"
	"agrilink/internal/domain/identity"
	agrilink_errors "agrilink/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthService() (*AuthService, *fakeUserRepo) {
	repo := &fakeUserRepo{}
	cfg := &config.Config{}
	cfg.Auth.JWTSecret = "test-secret"
	cfg.Auth.TokenTTL = time.Hour
	return NewAuthService(repo, cfg), repo
}

func TestRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	svc, _ := newAuthService()

	resp, err := svc.Register(ctx, RegisterInput{
		Email:       "Farmer@Example.com",
		Password:    "correct horse",
		Role:        identity.RoleProducer,
		DisplayName: "Farmer Jo",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, "farmer@example.com", resp.User.Email)

	data, err := json.Marshal(resp.User)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "password", "hash must never serialize")

	login, err := svc.Login(ctx, "farmer@example.com", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, login.User.ID)

	_, err = svc.Login(ctx, "farmer@example.com", "wrong")
	assert.ErrorIs(t, err, agrilink_errors.ErrUnauthorized)

	_, err = svc.Login(ctx, "nobody@example.com", "correct horse")
	assert.ErrorIs(t, err, agrilink_errors.ErrUnauthorized)
}

func TestRegisterValidation(t *testing.T) {
	ctx := context.Background()
	svc, _ := newAuthService()

	cases := []RegisterInput{
		{Email: "", Password: "long enough", Role: identity.RoleBuyer},
		{Email: "a@b.com", Password: "short", Role: identity.RoleBuyer},
		{Email: "a@b.com", Password: "long enough", Role: identity.Role("ADMIN")},
	}
	for i, in := range cases {
		_, err := svc.Register(ctx, in)
		assert.ErrorIs(t, err, agrilink_errors.ErrInvalidInput, "case %d", i)
	}

	_, err := svc.Register(ctx, RegisterInput{Email: "a@b.com", Password: "long enough", Role: identity.RoleBuyer})
	require.NoError(t, err)
	_, err = svc.Register(ctx, RegisterInput{Email: "a@b.com", Password: "long enough", Role: identity.RoleBuyer})
	assert.ErrorIs(t, err, agrilink_errors.ErrAlreadyExists)
}

func TestParseAccessToken(t *testing.T) {
	ctx := context.Background()
	svc, _ := newAuthService()

	resp, err := svc.Register(ctx, RegisterInput{
		Email:    "buyer@example.com",
		Password: "correct horse",
		Role:     identity.RoleBuyer,
	})
	require.NoError(t, err)

	principal, err := svc.ParseAccessToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, principal.UserID)
	assert.Equal(t, identity.RoleBuyer, principal.Role)

	_, err = svc.ParseAccessToken("")
	assert.ErrorIs(t, err, agrilink_errors.ErrUnauthorized)

	_, err = svc.ParseAccessToken(resp.AccessToken + "tampered")
	assert.ErrorIs(t, err, agrilink_errors.ErrUnauthorized)

	// Token signed with a different secret is rejected.
	other, _ := newAuthService()
	otherResp, err := other.Register(ctx, RegisterInput{
		Email:    "buyer@example.com",
		Password: "correct horse",
		Role:     identity.RoleBuyer,
	})
	require.NoError(t, err)
	otherSvc := NewAuthService(&fakeUserRepo{}, &config.Config{Auth: config.AuthConfig{JWTSecret: "different", TokenTTL: time.Hour}})
	_, err = otherSvc.ParseAccessToken(otherResp.AccessToken)
	assert.ErrorIs(t, err, agrilink_errors.ErrUnauthorized)
}

func TestPrincipalContext(t *testing.T) {
	_, ok := PrincipalFromContext(context.Background())
	assert.False(t, ok)

	p := Principal{Role: identity.RoleProducer}
	ctx := WithPrincipal(context.Background(), p)
	got, ok := PrincipalFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, p, got)
}

package jwt

import (
	"context"
	"testing"

	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/auth"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/user"
	"github.com/go-chi/jwtauth/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAccessToken_RoundTripsIdentity(t *testing.T) {
	svc := NewJWTService("test-secret-key-for-jwt", "1h")
	companyID := "company-1"

	token, expiresAt, err := svc.GenerateAccessToken(user.Identity{UserID: "user-1", CompanyID: &companyID, Role: user.RoleEmployee})
	require.NoError(t, err)
	assert.NotZero(t, expiresAt)

	decoded, err := svc.JWTAuth().Decode(token)
	require.NoError(t, err)

	ctx := jwtauth.NewContext(context.Background(), decoded, nil)
	identity, err := IdentityFromContext(ctx)
	require.NoError(t, err)
	assert.Equal(t, "user-1", identity.UserID)
	require.NotNil(t, identity.CompanyID)
	assert.Equal(t, "company-1", *identity.CompanyID)
	assert.Equal(t, user.RoleEmployee, identity.Role)
}

func TestIdentityFromContext_NoCompany(t *testing.T) {
	svc := NewJWTService("test-secret-key-for-jwt", "1h")

	token, _, err := svc.GenerateAccessToken(user.Identity{UserID: "user-2", Role: user.RolePending})
	require.NoError(t, err)
	decoded, err := svc.JWTAuth().Decode(token)
	require.NoError(t, err)

	identity, err := IdentityFromContext(jwtauth.NewContext(context.Background(), decoded, nil))
	require.NoError(t, err)
	assert.Nil(t, identity.CompanyID)
}

func TestSSEToken(t *testing.T) {
	svc := NewJWTService("test-secret-key-for-jwt", "1h")
	companyID := "company-1"

	token, expiresIn, err := svc.GenerateSSEToken(user.Identity{UserID: "user-1", CompanyID: &companyID, Role: user.RoleManager})
	require.NoError(t, err)
	assert.Equal(t, 300, expiresIn)

	identity, err := svc.ValidateSSEToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", identity.UserID)
	assert.Equal(t, user.RoleManager, identity.Role)
	require.NotNil(t, identity.CompanyID)
	assert.Equal(t, "company-1", *identity.CompanyID)

	access, _, err := svc.GenerateAccessToken(user.Identity{UserID: "user-1"})
	require.NoError(t, err)
	_, err = svc.ValidateSSEToken(access)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)

	_, err = svc.ValidateSSEToken("not-a-token")
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestIdentityFromContext_MissingToken(t *testing.T) {
	_, err := IdentityFromContext(context.Background())
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

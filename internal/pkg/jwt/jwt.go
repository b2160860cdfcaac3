package jwt

import (
	"context"
	"fmt"
	"time"

	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/auth"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/user"
	"github.com/go-chi/jwtauth/v5"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

type Service interface {
	GenerateAccessToken(identity user.Identity) (token string, expiresAt int64, err error)
	GenerateSSEToken(identity user.Identity) (token string, expiresIn int, err error)
	ValidateSSEToken(tokenString string) (user.Identity, error)
	JWTAuth() *jwtauth.JWTAuth
}

type JWTService struct {
	secretKey                 string
	accessTokenExpirationTime string
	tokenAuth                 *jwtauth.JWTAuth
}

func (j *JWTService) JWTAuth() *jwtauth.JWTAuth {
	return j.tokenAuth
}

func NewJWTService(secretKey string, accessTokenExpirationTime string) Service {
	return &JWTService{
		secretKey:                 secretKey,
		accessTokenExpirationTime: accessTokenExpirationTime,
		tokenAuth:                 jwtauth.New("HS256", []byte(secretKey), nil, jwt.WithAcceptableSkew(30*time.Second)),
	}
}

// GenerateAccessToken issues a token for an identity. Login lives outside
// this service; the API only mints tokens for terminal provisioning.
func (j *JWTService) GenerateAccessToken(identity user.Identity) (token string, expiresAt int64, err error) {
	expDuration, err := time.ParseDuration(j.accessTokenExpirationTime)
	if err != nil {
		return "", 0, err
	}
	expiresAt = time.Now().Add(expDuration).Unix()

	_, tokenString, err := j.tokenAuth.Encode(j.claims(identity, "access", expiresAt))
	return tokenString, expiresAt, err
}

func (j *JWTService) claims(identity user.Identity, tokenType string, expiresAt int64) map[string]interface{} {
	return map[string]interface{}{
		"user_id":    identity.UserID,
		"company_id": j.returnValueOrNil(identity.CompanyID),
		"role":       string(identity.Role),
		"type":       tokenType,
		"exp":        expiresAt,
	}
}

func (j *JWTService) returnValueOrNil(value *string) interface{} {
	if value == nil {
		return nil
	} else {
		return *value
	}
}

// GenerateSSEToken generates a short-lived token for SSE connections
func (j *JWTService) GenerateSSEToken(identity user.Identity) (token string, expiresIn int, err error) {
	// SSE tokens are short-lived (5 minutes)
	expiresIn = 300
	expiresAt := time.Now().Add(5 * time.Minute).Unix()

	_, tokenString, err := j.tokenAuth.Encode(j.claims(identity, "sse", expiresAt))
	if err != nil {
		return "", 0, err
	}

	return tokenString, expiresIn, nil
}

// ValidateSSEToken validates an SSE token and returns its identity
func (j *JWTService) ValidateSSEToken(tokenString string) (user.Identity, error) {
	token, err := jwtauth.VerifyToken(j.tokenAuth, tokenString)
	if err != nil {
		return user.Identity{}, fmt.Errorf("%w: %v", auth.ErrInvalidToken, err)
	}

	claims, err := token.AsMap(context.Background())
	if err != nil {
		return user.Identity{}, fmt.Errorf("%w: %v", auth.ErrInvalidToken, err)
	}

	if tokenType, ok := claims["type"].(string); !ok || tokenType != "sse" {
		return user.Identity{}, auth.ErrInvalidToken
	}

	return identityFromClaims(claims)
}

// IdentityFromContext reads the caller from the verified token claims.
func IdentityFromContext(ctx context.Context) (user.Identity, error) {
	_, claims, err := jwtauth.FromContext(ctx)
	if err != nil {
		return user.Identity{}, fmt.Errorf("%w: failed to extract claims from context: %v", auth.ErrInvalidToken, err)
	}
	return identityFromClaims(claims)
}

func identityFromClaims(claims map[string]interface{}) (user.Identity, error) {
	userID, ok := claims["user_id"].(string)
	if !ok || userID == "" {
		return user.Identity{}, fmt.Errorf("%w: user_id claim is missing or invalid", auth.ErrInvalidToken)
	}

	identity := user.Identity{UserID: userID}
	if companyID, ok := claims["company_id"].(string); ok && companyID != "" {
		identity.CompanyID = &companyID
	}
	if role, ok := claims["role"].(string); ok {
		identity.Role = user.Role(role)
	}

	return identity, nil
}

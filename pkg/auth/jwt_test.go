package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

func newHMACService(t *testing.T, issuer string, exp time.Duration) *JWTService {
	t.Helper()
	svc, err := NewJWTService(JWTConfig{Secret: "test-secret-key-for-unit-tests", Issuer: issuer, Expiration: exp})
	require.NoError(t, err)
	return svc
}

func TestJWTService_RoundTrip(t *testing.T) {
	id := uuid.New()

	t.Run("hmac", func(t *testing.T) {
		svc := newHMACService(t, "microloan-test", 15*time.Minute)
		token, err := svc.GenerateToken(id, RoleBorrower)
		require.NoError(t, err)

		claims, err := svc.ValidateToken(token)
		require.NoError(t, err)
		got, err := claims.Identity()
		require.NoError(t, err)
		assert.Equal(t, id, got)
		assert.True(t, claims.HasRole(RoleBorrower))
		assert.False(t, claims.HasRole(RoleOperator))
	})

	t.Run("rsa issuer and validator", func(t *testing.T) {
		priv, pub, err := GenerateKeyPair()
		require.NoError(t, err)

		issuer, err := NewJWTService(JWTConfig{PrivateKeyPEM: priv, Issuer: "gw", Expiration: time.Minute})
		require.NoError(t, err)
		validator, err := NewJWTService(JWTConfig{PublicKeyPEM: pub, Issuer: "gw"})
		require.NoError(t, err)

		token, err := issuer.GenerateToken(id)
		require.NoError(t, err)
		_, err = validator.ValidateToken(token)
		require.NoError(t, err)

		_, err = validator.GenerateToken(id)
		assert.Error(t, err)
	})
}

func TestJWTService_Rejects(t *testing.T) {
	id := uuid.New()
	svc := newHMACService(t, "microloan-test", 15*time.Minute)

	t.Run("expired", func(t *testing.T) {
		expired := newHMACService(t, "microloan-test", -time.Minute)
		token, err := expired.GenerateToken(id)
		require.NoError(t, err)
		_, err = svc.ValidateToken(token)
		assert.ErrorIs(t, err, jwt.ErrTokenExpired)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		other := newHMACService(t, "someone-else", time.Minute)
		token, err := other.GenerateToken(id)
		require.NoError(t, err)
		_, err = svc.ValidateToken(token)
		assert.ErrorIs(t, err, jwt.ErrTokenInvalidIssuer)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other, err := NewJWTService(JWTConfig{Secret: "another", Issuer: "microloan-test", Expiration: time.Minute})
		require.NoError(t, err)
		token, err := other.GenerateToken(id)
		require.NoError(t, err)
		_, err = svc.ValidateToken(token)
		assert.ErrorIs(t, err, jwt.ErrTokenSignatureInvalid)
	})

	t.Run("subject is not a uuid", func(t *testing.T) {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "microloan-test",
			Subject:   "alice",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		}}).SignedString([]byte("test-secret-key-for-unit-tests"))
		require.NoError(t, err)
		_, err = svc.ValidateToken(token)
		assert.Error(t, err)
	})

	t.Run("no key configured", func(t *testing.T) {
		_, err := NewJWTService(JWTConfig{})
		assert.Error(t, err)
	})
}

type validatorFunc func(string) (*Claims, error)

func (f validatorFunc) ValidateToken(token string) (*Claims, error) { return f(token) }

func TestUnaryAuthInterceptor(t *testing.T) {
	id := uuid.New()
	validator := validatorFunc(func(token string) (*Claims, error) {
		if token != "good" {
			return nil, errors.New("bad token")
		}
		return &Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: id.String()}}, nil
	})
	interceptor := UnaryAuthInterceptor(validator, "/grpc.health.v1.Health/Check")

	echoIdentity := func(ctx context.Context, _ any) (any, error) {
		return IdentityFromContext(ctx)
	}
	call := func(ctx context.Context, method string) (any, error) {
		return interceptor(ctx, nil, &grpc.UnaryServerInfo{FullMethod: method}, echoIdentity)
	}
	withAuth := func(v string) context.Context {
		return metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", v))
	}

	t.Run("bearer token attaches identity", func(t *testing.T) {
		got, err := call(withAuth("Bearer good"), "/microloan.v1.MicroLoan/GetLoan")
		require.NoError(t, err)
		assert.Equal(t, id, got)
	})

	t.Run("missing header", func(t *testing.T) {
		_, err := call(metadata.NewIncomingContext(context.Background(), metadata.MD{}), "/x")
		assert.Equal(t, codes.Unauthenticated, status.Code(err))
	})

	t.Run("invalid token", func(t *testing.T) {
		_, err := call(withAuth("bearer nope"), "/x")
		assert.Equal(t, codes.Unauthenticated, status.Code(err))
	})

	t.Run("skipped method has no identity", func(t *testing.T) {
		_, err := call(context.Background(), "/grpc.health.v1.Health/Check")
		assert.ErrorIs(t, err, ErrNoIdentity)
	})
}

package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"repairshop/internal/model"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var staffSigningMethod = jwt.SigningMethodHS256

// Staff roles allowed on the admin routes.
const (
	RoleStaff = "staff"
	RoleAdmin = "admin"
)

// StaffClaims are the claims carried by a staff bearer token.
type StaffClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// MintStaffToken issues a signed staff token for subject.
func MintStaffToken(secret, issuer, subject, role string, ttl time.Duration, now time.Time) (string, error) {
	if secret == "" {
		return "", errors.New("jwt secret is required")
	}
	if issuer == "" {
		return "", errors.New("jwt issuer is required")
	}
	if subject == "" {
		return "", errors.New("token subject is required")
	}
	if role != RoleStaff && role != RoleAdmin {
		return "", fmt.Errorf("invalid staff role %q", role)
	}
	if ttl <= 0 {
		return "", errors.New("token ttl must be positive")
	}

	claims := StaffClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(staffSigningMethod, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("signing jwt: %w", err)
	}
	return signed, nil
}

// ParseStaffToken validates the token and returns its claims.
func ParseStaffToken(secret, issuer, tokenString string) (*StaffClaims, error) {
	claims := &StaffClaims{}
	_, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(token *jwt.Token) (any, error) {
			if token.Method != staffSigningMethod {
				return nil, fmt.Errorf("unexpected signing method %s", token.Header["alg"])
			}
			return []byte(secret), nil
		},
		jwt.WithValidMethods([]string{staffSigningMethod.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// StaffAuth requires a valid staff bearer token.
func StaffAuth(secret, issuer string, logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get("Authorization"))
			token := raw
			if strings.HasPrefix(strings.ToLower(token), "bearer ") {
				token = strings.TrimSpace(token[7:])
			}
			if token == "" {
				logger.Warn().Str("path", r.URL.Path).Msg("missing staff token")
				writeUnauthorised(w, r, "unauthorised: missing bearer token")
				return
			}

			claims, err := ParseStaffToken(secret, issuer, token)
			if err != nil {
				logger.Warn().Err(err).Str("path", r.URL.Path).Msg("invalid staff token")
				writeUnauthorised(w, r, "unauthorised: invalid bearer token")
				return
			}
			if claims.Role != RoleStaff && claims.Role != RoleAdmin {
				logger.Warn().Str("subject", claims.Subject).Str("role", claims.Role).Msg("staff role required")
				writeErrorResponse(w, r, http.StatusForbidden, model.ErrCodeForbidden, "forbidden: staff role required")
				return
			}

			ctx := context.WithValue(r.Context(), ctxStaffID, claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

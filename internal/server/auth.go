package server

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/smallbiznis/membership/internal/identity"
	obscontext "github.com/smallbiznis/membership/internal/observability/context"
	"go.uber.org/zap"
)

const bearerPrefix = "Bearer "

var errInvalidSubject = errors.New("invalid_subject")

// JWTAuthRequired accepts HS256 bearer tokens signed with the configured
// secret. The numeric "sub" claim becomes the current user.
func (s *Server) JWTAuthRequired() gin.HandlerFunc {
	secret := []byte(s.cfg.AuthJWTSecret)
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)

	return func(c *gin.Context) {
		if len(secret) == 0 {
			AbortWithError(c, ErrServiceUnavailable)
			return
		}

		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, bearerPrefix) {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		raw := strings.TrimSpace(strings.TrimPrefix(header, bearerPrefix))

		var claims jwt.RegisteredClaims
		if _, err := parser.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
			return secret, nil
		}); err != nil {
			s.log.Debug("rejected bearer token", zap.Error(err))
			AbortWithError(c, ErrUnauthorized)
			return
		}

		userID, err := subjectUserID(claims.Subject)
		if err != nil {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		ctx := identity.WithUserID(c.Request.Context(), userID)
		ctx = obscontext.WithActorID(ctx, claims.Subject)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func subjectUserID(subject string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(subject), 10, 64)
	if err != nil || id <= 0 {
		return 0, errInvalidSubject
	}
	return id, nil
}

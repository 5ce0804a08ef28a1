package v1

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/usetradechat/tradechat/internal/util"
	"github.com/usetradechat/tradechat/server/auth"
	"github.com/usetradechat/tradechat/store"
)

// AuthMiddleware authenticates the request from the session cookie or an
// Authorization bearer header and stores the claims in the request
// context. Unauthenticated requests are rejected before any storage
// query runs.
func (s *APIV1Service) AuthMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token := extractToken(c)
		if token == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "missing access token")
		}

		claims, err := auth.ParseAccessToken(token, []byte(s.Secret))
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired session").SetInternal(err)
		}

		ctx := auth.ContextWithClaims(c.Request().Context(), claims)
		c.SetRequest(c.Request().WithContext(ctx))
		return next(c)
	}
}

func extractToken(c echo.Context) string {
	if cookie, err := c.Cookie(auth.AccessTokenCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
	if util.HasPrefixes(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	return ""
}

// getCurrentUser resolves the session claims into the stored user row.
func getCurrentUser(ctx context.Context, s *store.Store) (*store.User, error) {
	claims := auth.GetUserClaims(ctx)
	if claims == nil {
		return nil, errors.New("no session claims in context")
	}

	userID64, err := strconv.ParseInt(claims.Subject, 10, 32)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid user id in token subject: %s", claims.Subject)
	}
	userID := int32(userID64)

	user, err := s.GetUser(ctx, &store.FindUser{ID: &userID})
	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch session user")
	}
	if user == nil || user.RowStatus != store.Normal {
		return nil, errors.New("session user not found or archived")
	}
	return user, nil
}

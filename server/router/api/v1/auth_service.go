package v1

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/usetradechat/tradechat/internal/util"
	"github.com/usetradechat/tradechat/server/auth"
	"github.com/usetradechat/tradechat/store"
)

type signRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type signResponse struct {
	User  *User  `json:"user"`
	Token string `json:"token"`
}

// SignUp registers a new account and opens a session for it.
func (s *APIV1Service) SignUp(c echo.Context) error {
	ctx := c.Request().Context()

	request := &signRequest{}
	if err := c.Bind(request); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed signup request").SetInternal(err)
	}

	username := strings.TrimSpace(strings.ToLower(request.Username))
	if !util.ValidateUsername(username) {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid username")
	}
	if len(request.Password) < 6 {
		return echo.NewHTTPError(http.StatusBadRequest, "password must be at least 6 characters")
	}

	existing, err := s.Store.GetUser(ctx, &store.FindUser{Username: &username})
	if err != nil {
		return genericError(err)
	}
	if existing != nil {
		// Duplicate sign-up is an identity error, surfaced verbatim.
		return echo.NewHTTPError(http.StatusConflict, "username already taken")
	}

	passwordHash, err := auth.HashPassword(request.Password)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to generate password hash").SetInternal(err)
	}

	now := time.Now().Unix()
	user, err := s.Store.CreateUser(ctx, &store.User{
		Username:     username,
		Nickname:     username,
		PasswordHash: passwordHash,
		RowStatus:    store.Normal,
		CreatedTs:    now,
		UpdatedTs:    now,
	})
	if err != nil {
		return genericError(err)
	}

	return s.openSession(c, user)
}

// SignIn verifies credentials and opens a session.
func (s *APIV1Service) SignIn(c echo.Context) error {
	ctx := c.Request().Context()

	request := &signRequest{}
	if err := c.Bind(request); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed signin request").SetInternal(err)
	}

	username := strings.TrimSpace(strings.ToLower(request.Username))
	user, err := s.Store.GetUser(ctx, &store.FindUser{Username: &username})
	if err != nil {
		return genericError(err)
	}
	if user == nil || !auth.CheckPassword(request.Password, user.PasswordHash) {
		return echo.NewHTTPError(http.StatusUnauthorized, "incorrect username or password")
	}
	if user.RowStatus != store.Normal {
		return echo.NewHTTPError(http.StatusForbidden, "account is archived")
	}

	return s.openSession(c, user)
}

// SignOut clears the session cookie. The token itself simply expires.
func (s *APIV1Service) SignOut(c echo.Context) error {
	c.SetCookie(&http.Cookie{
		Name:     auth.AccessTokenCookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
	return c.NoContent(http.StatusNoContent)
}

// GetCurrentSession returns the authenticated user for the session token.
func (s *APIV1Service) GetCurrentSession(c echo.Context) error {
	ctx := c.Request().Context()

	user, err := getCurrentUser(ctx, s.Store)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized").SetInternal(err)
	}
	return c.JSON(http.StatusOK, convertUserFromStore(user))
}

type updateUserRequest struct {
	Nickname *string `json:"nickname"`
	Password *string `json:"password"`
}

// UpdateCurrentUser changes the session user's nickname or password.
func (s *APIV1Service) UpdateCurrentUser(c echo.Context) error {
	ctx := c.Request().Context()

	user, err := getCurrentUser(ctx, s.Store)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized").SetInternal(err)
	}

	request := &updateUserRequest{}
	if err := c.Bind(request); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request").SetInternal(err)
	}
	if request.Nickname == nil && request.Password == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "nothing to update")
	}

	now := time.Now().Unix()
	update := &store.UpdateUser{
		ID:        user.ID,
		UpdatedTs: &now,
	}
	if request.Nickname != nil {
		nickname := strings.TrimSpace(*request.Nickname)
		if nickname == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "nickname cannot be empty")
		}
		update.Nickname = &nickname
	}
	if request.Password != nil {
		if len(*request.Password) < 6 {
			return echo.NewHTTPError(http.StatusBadRequest, "password must be at least 6 characters")
		}
		passwordHash, err := auth.HashPassword(*request.Password)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "failed to generate password hash").SetInternal(err)
		}
		update.PasswordHash = &passwordHash
	}

	user, err = s.Store.UpdateUser(ctx, update)
	if err != nil {
		return genericError(err)
	}
	return c.JSON(http.StatusOK, convertUserFromStore(user))
}

func (s *APIV1Service) openSession(c echo.Context, user *store.User) error {
	expirationTime := time.Now().Add(auth.AccessTokenDuration)
	token, err := auth.GenerateAccessToken(user.Username, user.ID, expirationTime, []byte(s.Secret))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to generate access token").SetInternal(err)
	}

	c.SetCookie(&http.Cookie{
		Name:     auth.AccessTokenCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expirationTime,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})

	return c.JSON(http.StatusOK, &signResponse{
		User:  convertUserFromStore(user),
		Token: token,
	})
}

package handler

import (
	"net/http" // HTTP status codes and primitives
	"time"     // token expiry in responses

	"github.com/labstack/echo/v4" // Echo framework for HTTP routing

	"github.com/iliyamo/cinema-ticketing/internal/middleware" // session accessors
	"github.com/iliyamo/cinema-ticketing/internal/service"    // account operations
	"github.com/iliyamo/cinema-ticketing/internal/session"    // session store
	"github.com/iliyamo/cinema-ticketing/internal/utils"      // access token issuing
)

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Accounts  *service.Accounts
	Sessions  session.Store
	Secret    string
	AccessTTL time.Duration
}

func NewAuthHandler(a *service.Accounts, store session.Store, secret string, ttl time.Duration) *AuthHandler {
	return &AuthHandler{Accounts: a, Sessions: store, Secret: secret, AccessTTL: ttl}
}

// ----- DTOs -----

type registerReq struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
}
type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}
type authResp struct {
	User   userBody  `json:"user"`
	Access tokenPart `json:"access"`
}

// Register creates a customer account.  It does not log the user in.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	u, err := h.Accounts.Register(c.Request().Context(), req.Name, req.Email, req.Phone, req.Password)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, userOut(*u))
}

// Login verifies the credentials, opens a session and returns an access
// token naming it.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx := c.Request().Context()
	u, err := h.Accounts.Authenticate(ctx, req.Email, req.Password)
	if err != nil {
		return fail(c, err)
	}
	sess, err := h.Sessions.Create(ctx, session.Identity{UserID: u.ID, Role: u.Role, Name: u.Name})
	if err != nil {
		return fail(c, err)
	}
	at, err := utils.NewAccessToken(h.Secret, sess.ID, u.ID, string(u.Role), h.AccessTTL)
	if err != nil {
		_ = h.Sessions.Delete(ctx, sess.ID)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "StorageError", "message": "could not issue token"})
	}
	return c.JSON(http.StatusOK, authResp{
		User:   userOut(*u),
		Access: tokenPart{Token: at.Token, Expires: at.Exp},
	})
}

// Logout ends the caller's session.  The access token stops working
// immediately even though it has not expired.
func (h *AuthHandler) Logout(c echo.Context) error {
	sess := middleware.Session(c)
	if sess == nil {
		return c.NoContent(http.StatusNoContent)
	}
	if err := h.Sessions.Delete(c.Request().Context(), sess.ID); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Me returns the authenticated user's profile.
func (h *AuthHandler) Me(c echo.Context) error {
	id := middleware.Identity(c)
	u, err := h.Accounts.GetUser(c.Request().Context(), id.UserID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, userOut(*u))
}

package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"github.com/iliyamo/event-ticket-registry/internal/config"
	"github.com/iliyamo/event-ticket-registry/internal/middleware"
	"github.com/iliyamo/event-ticket-registry/internal/model"
	"github.com/iliyamo/event-ticket-registry/internal/repository"
	"github.com/iliyamo/event-ticket-registry/internal/utils"
)

// Accounts is implemented by repository.AccountRepo and
// repository.MemoryAccounts.
type Accounts interface {
	Create(ctx context.Context, email, password, role string, cost int) (uint64, error)
	GetByEmail(ctx context.Context, email string) (model.Account, error)
	GetByID(ctx context.Context, id uint64) (model.Account, error)
	BalanceOf(ctx context.Context, account model.AccountID) (model.Amount, error)
}

// RefreshTokens is implemented by repository.TokenRepo and
// repository.MemoryAccounts.
type RefreshTokens interface {
	StoreRefresh(ctx context.Context, accountID uint64, tokenHash string, exp time.Time) error
	ValidateRefresh(ctx context.Context, tokenHash string, now time.Time) (uint64, error)
	RevokeByHash(ctx context.Context, tokenHash string) error
}

// AdminSource names the current ticket administrator.
type AdminSource interface {
	Admin() model.AccountID
}

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Cfg      config.Config
	Accounts Accounts
	Tokens   RefreshTokens
	Admin    AdminSource
}

func NewAuthHandler(cfg config.Config, a Accounts, t RefreshTokens, admin AdminSource) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Accounts: a, Tokens: t, Admin: admin}
}

// ----- DTOs -----

type credentialsReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}
type accountPart struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}
type authResp struct {
	Account accountPart `json:"account"`
	Access  tokenPart   `json:"access"`
	Refresh tokenPart   `json:"refresh"`
}

func accountIDOf(id uint64) model.AccountID {
	return model.AccountID(strconv.FormatUint(id, 10))
}

// roleOf reports ADMIN for whoever the engine currently recognizes, so a
// transferred administrator shows up on the next login or refresh.
func (h *AuthHandler) roleOf(id uint64) string {
	if accountIDOf(id) == h.Admin.Admin() {
		return model.RoleAdmin
	}
	return model.RoleHolder
}

func (h *AuthHandler) issuePair(ctx context.Context, a model.Account) (authResp, error) {
	role := h.roleOf(a.ID)
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, string(accountIDOf(a.ID)), role, h.Cfg.AccessTTLMin)
	if err != nil {
		return authResp{}, err
	}
	refresh, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
	if err != nil {
		return authResp{}, err
	}
	if err := h.Tokens.StoreRefresh(ctx, a.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		return authResp{}, err
	}
	return authResp{
		Account: accountPart{ID: string(accountIDOf(a.ID)), Email: a.Email, Role: role},
		Access:  tokenPart{Token: access.Token, Expires: access.Exp},
		Refresh: tokenPart{Token: refresh.Raw, Expires: refresh.Exp}, // raw back to client
	}, nil
}

func bindCredentials(c echo.Context) (credentialsReq, bool) {
	var req credentialsReq
	if err := c.Bind(&req); err != nil {
		return req, false
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	return req, req.Email != "" && req.Password != ""
}

// Register: create an account and return tokens immediately.
func (h *AuthHandler) Register(c echo.Context) error {
	req, ok := bindCredentials(c)
	if !ok {
		return badRequest(c, "email/password required")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	id, err := h.Accounts.Create(ctx, req.Email, req.Password, model.RoleHolder, h.Cfg.BcryptCost)
	if err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "email already exists", "code": "email_exists"})
		}
		log.WithError(err).Error("create account failed")
		return internalError(c)
	}
	resp, err := h.issuePair(ctx, model.Account{ID: id, Email: req.Email})
	if err != nil {
		log.WithError(err).Error("issue tokens failed")
		return internalError(c)
	}
	return c.JSON(http.StatusCreated, resp)
}

// Login: verify and return a new pair.
func (h *AuthHandler) Login(c echo.Context) error {
	req, ok := bindCredentials(c)
	if !ok {
		return badRequest(c, "email/password required")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	a, err := h.Accounts.GetByEmail(ctx, req.Email)
	if err != nil && !errors.Is(err, repository.ErrAccountNotFound) {
		log.WithError(err).Error("load account failed")
		return internalError(c)
	}
	if err != nil || !utils.VerifyPassword(a.PasswordHash, req.Password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials", "code": "unauthorized"})
	}
	resp, err := h.issuePair(ctx, a)
	if err != nil {
		log.WithError(err).Error("issue tokens failed")
		return internalError(c)
	}
	return c.JSON(http.StatusOK, resp)
}

// Refresh: validate by hash, revoke the old token, issue a new pair.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return badRequest(c, "refresh_token required")
	}
	hash := utils.HashRefreshRaw(strings.TrimSpace(req.RefreshToken))

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	id, err := h.Tokens.ValidateRefresh(ctx, hash, time.Now().UTC())
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh", "code": "unauthorized"})
	}
	if err := h.Tokens.RevokeByHash(ctx, hash); err != nil {
		log.WithError(err).Error("revoke refresh failed")
		return internalError(c)
	}
	a, err := h.Accounts.GetByID(ctx, id)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh", "code": "unauthorized"})
	}
	resp, err := h.issuePair(ctx, a)
	if err != nil {
		log.WithError(err).Error("issue tokens failed")
		return internalError(c)
	}
	return c.JSON(http.StatusOK, resp)
}

// Logout: revoke the given refresh token.  Unknown tokens are not an error.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return badRequest(c, "refresh_token required")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()
	if err := h.Tokens.RevokeByHash(ctx, utils.HashRefreshRaw(strings.TrimSpace(req.RefreshToken))); err != nil {
		log.WithError(err).Error("revoke refresh failed")
		return internalError(c)
	}
	return c.NoContent(http.StatusNoContent)
}

// Me: GET /v1/me returns the caller's profile and the balance that
// custody payouts were credited to.
func (h *AuthHandler) Me(c echo.Context) error {
	id, err := strconv.ParseUint(string(middleware.AccountID(c)), 10, 64)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token", "code": "unauthorized"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()
	a, err := h.Accounts.GetByID(ctx, id)
	if errors.Is(err, repository.ErrAccountNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "account not found", "code": "account_not_found"})
	}
	if err != nil {
		log.WithError(err).Error("load account failed")
		return internalError(c)
	}
	bal, err := h.Accounts.BalanceOf(ctx, accountIDOf(id))
	if err != nil {
		log.WithError(err).Error("load balance failed")
		return internalError(c)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"id":      string(accountIDOf(a.ID)),
		"email":   a.Email,
		"role":    h.roleOf(a.ID),
		"balance": bal.String(),
	})
}

package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"time"

	"github.com/mediavault/service/internal/config"
	"github.com/mediavault/service/internal/response"
)

// emailRegex is a lightweight shape check; real verification is out of scope.
var emailRegex = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

const minPasswordLen = 8

// refreshCookieName is the channel the refresh token travels on, separate
// from the Authorization header carrying the access token.
const refreshCookieName = "refresh_token"

// Handler holds HTTP handlers for auth endpoints.
type Handler struct {
	svc *Service
	cfg *config.Config
}

// NewHandler creates a new auth Handler.
func NewHandler(svc *Service, cfg *config.Config) *Handler {
	return &Handler{svc: svc, cfg: cfg}
}

type registerRequest struct {
	Email    string  `json:"email"    example:"alice@example.com"`
	Password string  `json:"password" example:"hunter2hunter2"`
	FullName *string `json:"fullName,omitempty" example:"Alice Doe"`
}

type loginRequest struct {
	Email    string `json:"email"    example:"alice@example.com"`
	Password string `json:"password" example:"hunter2hunter2"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken,omitempty"`
}

type accountBody struct {
	ID        string  `json:"id"`
	Email     string  `json:"email"`
	Role      string  `json:"role"`
	FullName  *string `json:"fullName,omitempty"`
	CreatedAt string  `json:"createdAt"`
}

type tokenData struct {
	AccessToken     string       `json:"accessToken"`
	AccessExpiresAt time.Time    `json:"accessExpiresAt"`
	RefreshToken    string       `json:"refreshToken"`
	User            *accountBody `json:"user,omitempty"`
}

// Register godoc
//
//	@Summary		Register a new account
//	@Description	Create an account with email and password. Issues an access/refresh token pair; the refresh token is also set as an httpOnly cookie.
//	@Tags			auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		registerRequest	true	"Registration details"
//	@Success		201		{object}	response.Envelope{data=tokenData}
//	@Failure		400		{object}	response.Envelope
//	@Failure		409		{object}	response.Envelope
//	@Failure		500		{object}	response.Envelope
//	@Router			/auth/register [post]
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if !emailRegex.MatchString(req.Email) {
		response.BadRequest(w, "invalid email format")
		return
	}
	if len(req.Password) < minPasswordLen {
		response.BadRequest(w, "password must be at least 8 characters")
		return
	}

	cred, pair, err := h.svc.Register(r.Context(), req.Email, req.Password, req.FullName)
	if errors.Is(err, ErrEmailTaken) {
		response.Conflict(w, "email already registered")
		return
	}
	if err != nil {
		response.InternalError(w)
		return
	}

	h.setRefreshCookie(w, pair)
	response.Created(w, tokenData{
		AccessToken:     pair.AccessToken,
		AccessExpiresAt: pair.AccessExpiresAt,
		RefreshToken:    pair.RefreshToken,
		User:            accountBodyOf(cred),
	})
}

// Login godoc
//
//	@Summary		Log in
//	@Description	Verify email and password and issue a fresh token pair. Unknown email and wrong password produce the same failure.
//	@Tags			auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		loginRequest	true	"Login credentials"
//	@Success		200		{object}	response.Envelope{data=tokenData}
//	@Failure		400		{object}	response.Envelope
//	@Failure		401		{object}	response.Envelope
//	@Failure		500		{object}	response.Envelope
//	@Router			/auth/login [post]
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		response.BadRequest(w, "email and password are required")
		return
	}

	cred, pair, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if errors.Is(err, ErrInvalidCredentials) {
		response.Unauthorized(w, "invalid email or password")
		return
	}
	if err != nil {
		response.InternalError(w)
		return
	}

	h.setRefreshCookie(w, pair)
	response.OK(w, tokenData{
		AccessToken:     pair.AccessToken,
		AccessExpiresAt: pair.AccessExpiresAt,
		RefreshToken:    pair.RefreshToken,
		User:            accountBodyOf(cred),
	})
}

// Refresh godoc
//
//	@Summary		Rotate tokens
//	@Description	Exchange a valid refresh token (cookie, or body fallback for non-browser clients) for a new access/refresh pair.
//	@Tags			auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		refreshRequest	false	"Refresh token when not using the cookie"
//	@Success		200		{object}	response.Envelope{data=tokenData}
//	@Failure		401		{object}	response.Envelope
//	@Router			/auth/refresh [post]
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	raw := ""
	if c, err := r.Cookie(refreshCookieName); err == nil {
		raw = c.Value
	}
	if raw == "" {
		var req refreshRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err == nil {
			raw = req.RefreshToken
		}
	}
	if raw == "" {
		response.Unauthorized(w, "refresh token required")
		return
	}

	pair, err := h.svc.Refresh(raw)
	if err != nil {
		response.Unauthorized(w, "invalid or expired refresh token")
		return
	}

	h.setRefreshCookie(w, pair)
	response.OK(w, tokenData{
		AccessToken:     pair.AccessToken,
		AccessExpiresAt: pair.AccessExpiresAt,
		RefreshToken:    pair.RefreshToken,
	})
}

func (h *Handler) setRefreshCookie(w http.ResponseWriter, pair TokenPair) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    pair.RefreshToken,
		Path:     "/api/v1/auth",
		Expires:  pair.RefreshExpiresAt,
		HttpOnly: true,
		Secure:   h.cfg.IsProduction(),
		SameSite: http.SameSiteStrictMode,
	})
}

func accountBodyOf(cred Credential) *accountBody {
	return &accountBody{
		ID:        cred.UserID,
		Email:     cred.Email,
		Role:      cred.Role,
		FullName:  cred.FullName,
		CreatedAt: cred.CreatedAt.Format(time.RFC3339),
	}
}

// Package handler exposes the auth service over HTTP with JSON bodies.
package handler

import (
	"errors"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/L1oneSs/AuthTemplate/internal/auth/service"
	"github.com/L1oneSs/AuthTemplate/internal/credential"
	"github.com/L1oneSs/AuthTemplate/internal/server"
	sessiondomain "github.com/L1oneSs/AuthTemplate/internal/session/domain"
	userdomain "github.com/L1oneSs/AuthTemplate/internal/user/domain"
)

// Handler serves the register/login/refresh/logout and session-management
// endpoints.
type Handler struct {
	svc     *service.AuthService
	sources server.TokenSources
	log     *zap.Logger
}

// New returns a Handler for the auth service.
func New(svc *service.AuthService, sources server.TokenSources, log *zap.Logger) *Handler {
	return &Handler{svc: svc, sources: sources, log: log}
}

// Routes mounts the auth endpoints on r. authMW guards the endpoints that
// require an access token.
func (h *Handler) Routes(r chi.Router, authMW func(http.Handler) http.Handler) {
	r.Post("/register", h.register)
	r.Post("/login", h.login)
	r.Post("/refresh", h.refresh)
	r.Group(func(pr chi.Router) {
		pr.Use(authMW)
		pr.Post("/logout", h.logout)
		pr.Get("/sessions", h.listSessions)
		pr.Delete("/sessions", h.revokeOthers)
		pr.Delete("/sessions/{id}", h.revokeOne)
		pr.Get("/me", h.me)
		pr.Put("/me", h.updateMe)
	})
}

type registerRequest struct {
	Email      string `json:"email"`
	Username   string `json:"username"`
	Password   string `json:"password"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Patronymic string `json:"patronymic"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type authResponse struct {
	User   userdomain.Public `json:"user"`
	Tokens service.TokenPair `json:"tokens"`
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := server.DecodeJSON(r, &req); err != nil {
		h.fail(w, err)
		return
	}
	res, err := h.svc.Register(r.Context(), service.RegisterInput{
		Email:      req.Email,
		Username:   req.Username,
		Password:   req.Password,
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Patronymic: req.Patronymic,
	}, clientInfo(r))
	if err != nil {
		h.fail(w, err)
		return
	}
	h.issueTokens(w, res)
	server.RespondJSON(w, http.StatusCreated, authResponse{User: res.User.PublicView(), Tokens: res.Tokens})
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := server.DecodeJSON(r, &req); err != nil {
		h.fail(w, err)
		return
	}
	res, err := h.svc.Login(r.Context(), req.Email, req.Password, clientInfo(r))
	if err != nil {
		h.fail(w, err)
		return
	}
	h.issueTokens(w, res)
	server.RespondJSON(w, http.StatusOK, authResponse{User: res.User.PublicView(), Tokens: res.Tokens})
}

func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	token := h.refreshTokenFrom(r)
	if token == "" {
		server.RespondError(w, http.StatusUnauthorized, "missing refresh token")
		return
	}
	res, err := h.svc.Refresh(r.Context(), token, clientInfo(r))
	if err != nil {
		h.fail(w, err)
		return
	}
	h.issueTokens(w, res)
	server.RespondJSON(w, http.StatusOK, authResponse{User: res.User.PublicView(), Tokens: res.Tokens})
}

// logout retires the session named by the refresh token in the body, or all
// of the caller's sessions when the body carries none. The refresh cookie is
// not consulted: a bodyless logout retires everything even on cookie
// transport. The token cookies are cleared either way.
func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	userID, _ := server.UserID(r.Context())
	var req tokenRequest
	if r.ContentLength > 0 {
		if err := server.DecodeJSON(r, &req); err != nil {
			h.fail(w, err)
			return
		}
	}
	if err := h.svc.Logout(r.Context(), userID, req.RefreshToken); err != nil {
		h.fail(w, err)
		return
	}
	server.ClearTokenCookies(w)
	server.RespondJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

func (h *Handler) listSessions(w http.ResponseWriter, r *http.Request) {
	userID, _ := server.UserID(r.Context())
	sessions, err := h.svc.ListSessions(r.Context(), userID)
	if err != nil {
		h.fail(w, err)
		return
	}
	out := make([]sessiondomain.Public, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, s.PublicView())
	}
	server.RespondJSON(w, http.StatusOK, map[string]any{"sessions": out})
}

func (h *Handler) revokeOthers(w http.ResponseWriter, r *http.Request) {
	userID, _ := server.UserID(r.Context())
	var req tokenRequest
	if r.ContentLength > 0 {
		if err := server.DecodeJSON(r, &req); err != nil {
			h.fail(w, err)
			return
		}
	}
	token := req.RefreshToken
	if token == "" {
		token = h.sources.RefreshToken(r)
	}
	n, err := h.svc.RevokeOtherSessions(r.Context(), userID, token)
	if err != nil {
		h.fail(w, err)
		return
	}
	server.RespondJSON(w, http.StatusOK, map[string]int64{"revoked": n})
}

func (h *Handler) revokeOne(w http.ResponseWriter, r *http.Request) {
	userID, _ := server.UserID(r.Context())
	if err := h.svc.RevokeSession(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		h.fail(w, err)
		return
	}
	server.RespondJSON(w, http.StatusOK, map[string]string{"message": "session revoked"})
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	userID, _ := server.UserID(r.Context())
	user, err := h.svc.Profile(r.Context(), userID)
	if err != nil {
		h.fail(w, err)
		return
	}
	server.RespondJSON(w, http.StatusOK, map[string]any{"user": user.PublicView()})
}

type updateProfileRequest struct {
	Email      *string `json:"email"`
	Username   *string `json:"username"`
	FirstName  *string `json:"first_name"`
	LastName   *string `json:"last_name"`
	Patronymic *string `json:"patronymic"`

	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
	ConfirmPassword string `json:"confirm_password"`
}

func (h *Handler) updateMe(w http.ResponseWriter, r *http.Request) {
	userID, _ := server.UserID(r.Context())
	var req updateProfileRequest
	if err := server.DecodeJSON(r, &req); err != nil {
		h.fail(w, err)
		return
	}
	user, err := h.svc.UpdateProfile(r.Context(), userID, service.ProfileUpdate{
		Email:           req.Email,
		Username:        req.Username,
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		Patronymic:      req.Patronymic,
		CurrentPassword: req.CurrentPassword,
		NewPassword:     req.NewPassword,
		ConfirmPassword: req.ConfirmPassword,
	})
	if err != nil {
		h.fail(w, err)
		return
	}
	server.RespondJSON(w, http.StatusOK, map[string]any{"user": user.PublicView()})
}

// refreshTokenFrom reads the refresh token from the body first, then the
// cookie.
func (h *Handler) refreshTokenFrom(r *http.Request) string {
	if r.ContentLength > 0 {
		var req tokenRequest
		if err := server.DecodeJSON(r, &req); err == nil && req.RefreshToken != "" {
			return req.RefreshToken
		}
	}
	return h.sources.RefreshToken(r)
}

// issueTokens stores the pair in cookies when cookie transport is enabled.
func (h *Handler) issueTokens(w http.ResponseWriter, res *service.AuthResult) {
	if !h.sources.Cookies {
		return
	}
	server.SetTokenCookies(w,
		res.Tokens.AccessToken, res.Tokens.RefreshToken,
		res.Tokens.AccessExpiresAt, res.Tokens.RefreshExpiresAt)
}

// fail maps service sentinel errors to HTTP status codes.
func (h *Handler) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, server.ErrBadRequest),
		errors.Is(err, service.ErrValidation),
		errors.Is(err, credential.ErrWeakPassword):
		server.RespondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrUserDeactivated),
		errors.Is(err, service.ErrUserDeleted),
		errors.Is(err, service.ErrInvalidRefreshToken):
		server.RespondError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, service.ErrForbidden):
		server.RespondError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrUserNotFound),
		errors.Is(err, service.ErrSessionNotFound):
		server.RespondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrEmailTaken),
		errors.Is(err, service.ErrUsernameTaken):
		server.RespondError(w, http.StatusConflict, err.Error())
	default:
		h.log.Error("auth handler: internal error", zap.Error(err))
		server.RespondError(w, http.StatusInternalServerError, "internal error")
	}
}

func clientInfo(r *http.Request) service.ClientInfo {
	ip := r.RemoteAddr
	if host, _, err := net.SplitHostPort(ip); err == nil {
		ip = host
	}
	return service.ClientInfo{IP: ip, UserAgent: r.UserAgent()}
}

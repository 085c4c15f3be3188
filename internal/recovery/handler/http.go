// Package handler exposes the password-recovery flow over HTTP.
package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/L1oneSs/AuthTemplate/internal/credential"
	"github.com/L1oneSs/AuthTemplate/internal/recovery/service"
	"github.com/L1oneSs/AuthTemplate/internal/security"
	"github.com/L1oneSs/AuthTemplate/internal/server"
)

// resetRequestedMessage is returned for every reset request, found or not.
const resetRequestedMessage = "If the account exists, a password reset email has been sent"

// Handler serves the reset-password and set-password endpoints.
type Handler struct {
	svc *service.RecoveryService
	log *zap.Logger
}

// New returns a Handler for the recovery service.
func New(svc *service.RecoveryService, log *zap.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

// Routes mounts the recovery endpoints on r. authMW guards send-email, which
// is a back-office operation rather than part of the anonymous flow.
func (h *Handler) Routes(r chi.Router, authMW func(http.Handler) http.Handler) {
	r.Post("/reset-password", h.requestReset)
	r.Get("/reset-password", h.checkToken(security.PurposeResetPassword))
	r.Put("/reset-password", h.completePassword(security.PurposeResetPassword))
	r.Get("/set-password", h.checkToken(security.PurposeSetPassword))
	r.Post("/set-password", h.completePassword(security.PurposeSetPassword))
	r.With(authMW).Post("/send-email", h.sendEmail)
}

type resetRequest struct {
	Email string `json:"email"`
}

func (h *Handler) requestReset(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if err := server.DecodeJSON(r, &req); err != nil {
		h.fail(w, err)
		return
	}
	if req.Email == "" {
		server.RespondError(w, http.StatusBadRequest, "email is required")
		return
	}
	if err := h.svc.RequestReset(r.Context(), req.Email); err != nil {
		h.fail(w, err)
		return
	}
	server.RespondJSON(w, http.StatusOK, map[string]string{"message": resetRequestedMessage})
}

func (h *Handler) checkToken(expectedPurpose string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := r.URL.Query().Get("token")
		if token == "" {
			server.RespondError(w, http.StatusBadRequest, "token is required")
			return
		}
		user, purpose, err := h.svc.CheckToken(r.Context(), token)
		if err != nil {
			h.fail(w, err)
			return
		}
		if purpose != expectedPurpose {
			server.RespondError(w, http.StatusBadRequest, "invalid recovery token: token purpose mismatch")
			return
		}
		server.RespondJSON(w, http.StatusOK, map[string]any{
			"valid": true,
			"user": map[string]any{
				"email":     user.Email,
				"full_name": user.FullName(),
			},
		})
	}
}

type completeRequest struct {
	Token           string `json:"token"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

func (h *Handler) completePassword(purpose string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req completeRequest
		if err := server.DecodeJSON(r, &req); err != nil {
			h.fail(w, err)
			return
		}
		if req.Token == "" {
			server.RespondError(w, http.StatusBadRequest, "token is required")
			return
		}
		if err := h.svc.CompletePassword(r.Context(), req.Token, purpose, req.Password, req.ConfirmPassword); err != nil {
			h.fail(w, err)
			return
		}
		server.RespondJSON(w, http.StatusOK, map[string]string{"message": "password updated"})
	}
}

type sendEmailRequest struct {
	Email     string `json:"email"`
	EmailType string `json:"email_type"`
}

func (h *Handler) sendEmail(w http.ResponseWriter, r *http.Request) {
	var req sendEmailRequest
	if err := server.DecodeJSON(r, &req); err != nil {
		h.fail(w, err)
		return
	}
	if req.Email == "" {
		server.RespondError(w, http.StatusBadRequest, "email is required")
		return
	}
	if err := h.svc.SendEmail(r.Context(), req.Email, req.EmailType); err != nil {
		h.fail(w, err)
		return
	}
	server.RespondJSON(w, http.StatusOK, map[string]string{"message": "email sent"})
}

// fail maps service sentinel errors to HTTP status codes.
func (h *Handler) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, server.ErrBadRequest),
		errors.Is(err, service.ErrPasswordMismatch),
		errors.Is(err, service.ErrInvalidToken),
		errors.Is(err, service.ErrUnknownEmailType),
		errors.Is(err, credential.ErrWeakPassword):
		server.RespondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrUserNotFound):
		server.RespondError(w, http.StatusNotFound, err.Error())
	default:
		h.log.Error("recovery handler: internal error", zap.Error(err))
		server.RespondError(w, http.StatusInternalServerError, "internal error")
	}
}

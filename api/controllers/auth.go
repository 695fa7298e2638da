package controllers

import (
	"net"
	"net/http"
	"strings"

	"github.com/amezav/storefront-backend/api/responses"
	"github.com/amezav/storefront-backend/api/validators"
	authsvc "github.com/amezav/storefront-backend/internal/auth"
	pkgerrors "github.com/amezav/storefront-backend/pkg/errors"
	"github.com/amezav/storefront-backend/pkg/logger"
)

// AuthLogin authenticates a user and returns an access/refresh token pair.
func AuthLogin(svc authsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable"))
			return
		}

		var payload authsvc.LoginRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		payload.ClientIP = clientIP(r)

		resp, err := svc.Login(r.Context(), payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, resp)
	}
}

// AuthRegister creates a customer account and signs it in.
func AuthRegister(registerSvc authsvc.RegisterService, loginSvc authsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if registerSvc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "register service unavailable"))
			return
		}

		var payload authsvc.RegisterRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		user, err := registerSvc.Register(r.Context(), payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if loginSvc != nil {
			resp, err := loginSvc.Login(r.Context(), authsvc.LoginRequest{
				Email:    payload.Email,
				Password: payload.Password,
				ClientIP: clientIP(r),
			})
			if err == nil {
				responses.WriteSuccessStatus(w, http.StatusCreated, resp)
				return
			}
			if logg != nil {
				logg.Error(r.Context(), "register.autologin", err)
			}
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, user)
	}
}

func clientIP(r *http.Request) string {
	if forwarded := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		if ip := strings.TrimSpace(parts[0]); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

package httpadapter

import (
	"net/http"

	"github.com/kirillkom/legal-dashboard/internal/core/domain"
)

func (rt *Router) handleRegister(w http.ResponseWriter, r *http.Request) error {
	if rt.deps.Auth == nil {
		return errNotConfigured("auth")
	}
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	session, err := rt.deps.Auth.Register(r.Context(), domain.RegisterCommand{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
	})
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusCreated, session)
	return nil
}

func (rt *Router) handleLogin(w http.ResponseWriter, r *http.Request) error {
	if rt.deps.Auth == nil {
		return errNotConfigured("auth")
	}
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	session, err := rt.deps.Auth.Login(r.Context(), domain.LoginCommand{Email: req.Email, Password: req.Password})
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, session)
	return nil
}

func (rt *Router) handleMe(w http.ResponseWriter, r *http.Request) error {
	claims, _ := claimsFromContext(r.Context())
	user, err := rt.deps.Auth.Me(r.Context(), claims.ID)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": user})
	return nil
}

func (rt *Router) handleListUsers(w http.ResponseWriter, r *http.Request) error {
	users, err := rt.deps.Auth.ListUsers(r.Context())
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": users, "total": len(users)})
	return nil
}

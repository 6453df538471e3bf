package middleware

import (
	"net/http"

	"github.com/itchan-dev/schan/internal/domain"
	"github.com/itchan-dev/schan/internal/session"
	"github.com/itchan-dev/schan/internal/utils"
)

// RoleGate decides whether a session role may use a route.
type RoleGate interface {
	RequireRole(current, required domain.Role) error
}

// Auth guards the moderation routes.
type Auth struct {
	gate RoleGate
}

func NewAuth(gate RoleGate) *Auth {
	return &Auth{gate: gate}
}

// AdminOnly returns middleware that requires an admin session
func (a *Auth) AdminOnly() func(http.Handler) http.Handler {
	return a.require(domain.RoleAdmin)
}

// ModOnly returns middleware that requires a mod or admin session
func (a *Auth) ModOnly() func(http.Handler) http.Handler {
	return a.require(domain.RoleMod)
}

func (a *Auth) require(role domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			current := domain.RoleNone
			if s := session.FromContext(r.Context()); s != nil {
				current = s.Role
			}

			if err := a.gate.RequireRole(current, role); err != nil {
				utils.WriteErrorAndStatusCode(w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

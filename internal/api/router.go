package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/julienschmidt/httprouter"

	apiContext "brokerhub/internal/api/context"
	"brokerhub/internal/api/handlers"
	"brokerhub/internal/api/middleware"
	"brokerhub/internal/pkg/errors"
	"brokerhub/internal/platform/rbac"
)

type Dependencies struct {
	HealthHandler     *handlers.HealthHandler
	AuthHandler       *handlers.AuthHandler
	OrgHandler        *handlers.OrgHandler
	MembershipHandler *handlers.MembershipHandler
	InvitationHandler *handlers.InvitationHandler
	ClientHandler     *handlers.ClientHandler
	AgreementHandler  *handlers.AgreementHandler
	AuditHandler      *handlers.AuditHandler
	AuthMiddleware    *middleware.AuthMiddleware
	RateLimiter       *middleware.RateLimiter
}

func NewRouter(deps *Dependencies) http.Handler {
	router := httprouter.New()
	router.NotFound = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		errors.WriteError(w, http.StatusNotFound, errors.ErrCodeNotFound, "Route not found", nil)
	})
	router.PanicHandler = func(w http.ResponseWriter, r *http.Request, v interface{}) {
		errors.Write(w, errors.Internal("Internal server error", fmt.Errorf("panic: %v", v)))
	}

	authMid := deps.AuthMiddleware
	authLimit := deps.RateLimiter.Limit(middleware.LimitAuth)
	writeLimit := deps.RateLimiter.Limit(middleware.LimitAPIWrite)

	member := middleware.RequireMinimum(rbac.RoleMember)
	admin := middleware.RequireMinimum(rbac.RoleAdmin)
	owner := middleware.RequireRoles(rbac.RoleOwner)

	router.GET("/health", wrap(deps.HealthHandler.Check))

	// Identity-only routes: the caller may not belong to an organisation yet.
	router.POST("/api/auth/signup-with-org",
		chain(deps.AuthHandler.SignupWithOrganisation, authLimit, authMid.Identity))
	router.POST("/api/auth/redeem-invitation",
		chain(deps.AuthHandler.RedeemInvitation, authLimit, authMid.Identity))
	router.GET("/api/auth/check-membership",
		chain(deps.AuthHandler.CheckMembership, authLimit, authMid.Identity))
	router.GET("/api/auth/session",
		chain(deps.AuthHandler.Session, authMid.Optional))
	router.GET("/api/auth/me",
		chain(deps.AuthHandler.Me, authMid.Handle))

	// Organisation
	router.GET("/api/organisation",
		chain(deps.OrgHandler.Get, authMid.Handle))
	router.PUT("/api/organisation",
		chain(deps.OrgHandler.Update, authMid.Handle, admin))

	// Memberships and invitations
	router.GET("/api/memberships",
		chain(deps.MembershipHandler.List, authMid.Handle))
	router.POST("/api/memberships/invite",
		chain(deps.InvitationHandler.Invite, writeLimit, authMid.Handle, admin))
	router.POST("/api/memberships/transfer-ownership",
		chain(deps.MembershipHandler.TransferOwnership, authMid.Handle, owner))
	router.GET("/api/memberships/:id",
		chain(deps.MembershipHandler.Get, authMid.Handle))
	router.PUT("/api/memberships/:id",
		chain(deps.MembershipHandler.Update, authMid.Handle, admin))
	router.DELETE("/api/memberships/:id",
		chain(deps.MembershipHandler.Remove, authMid.Handle, admin))
	router.GET("/api/invitations",
		chain(deps.InvitationHandler.List, authMid.Handle, admin))
	router.DELETE("/api/invitations/:id",
		chain(deps.InvitationHandler.Cancel, authMid.Handle, admin))

	// Broker records
	router.GET("/api/broker/clients",
		chain(deps.ClientHandler.List, authMid.Handle))
	router.POST("/api/broker/clients",
		chain(deps.ClientHandler.Create, authMid.Handle, member))
	router.GET("/api/broker/clients/:id",
		chain(deps.ClientHandler.Get, authMid.Handle))
	router.PUT("/api/broker/clients/:id",
		chain(deps.ClientHandler.Update, authMid.Handle, member))
	router.DELETE("/api/broker/clients/:id",
		chain(deps.ClientHandler.Delete, authMid.Handle, admin))

	router.GET("/api/broker/policies",
		chain(deps.ClientHandler.ListPolicies, authMid.Handle))
	router.POST("/api/broker/policies",
		chain(deps.ClientHandler.CreatePolicy, authMid.Handle, member))
	router.GET("/api/broker/policies/:id",
		chain(deps.ClientHandler.GetPolicy, authMid.Handle))

	router.GET("/api/broker/agreements",
		chain(deps.AgreementHandler.List, authMid.Handle))
	router.POST("/api/broker/agreements",
		chain(deps.AgreementHandler.Create, authMid.Handle, member))
	router.GET("/api/broker/agreements/:id",
		chain(deps.AgreementHandler.Get, authMid.Handle))
	router.POST("/api/broker/agreements/:id/propose",
		chain(deps.AgreementHandler.Propose, authMid.Handle, member))

	router.GET("/api/broker/dashboard",
		chain(deps.AgreementHandler.Dashboard, authMid.Handle))

	router.GET("/api/audit-logs",
		chain(deps.AuditHandler.List, authMid.Handle, admin))

	return middleware.RequestLogger(router)
}

// chain applies middlewares so the first listed runs outermost.
func chain(handler http.HandlerFunc, middlewares ...func(http.HandlerFunc) http.HandlerFunc) httprouter.Handle {
	for i := len(middlewares) - 1; i >= 0; i-- {
		handler = middlewares[i](handler)
	}
	return wrap(handler)
}

// wrap injects route params into the request context.
func wrap(handler http.HandlerFunc) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		ctx := context.WithValue(r.Context(), apiContext.Params, ps)
		handler(w, r.WithContext(ctx))
	}
}

package context

import (
	stdcontext "context"

	"brokerhub/internal/platform/auth"
)

type Key string

const (
	Auth     Key = "auth"
	Identity Key = "identity"
	Params   Key = "params"
)

// AuthFrom returns the authorization context stored by the auth middleware,
// or nil on routes that do not require one.
func AuthFrom(ctx stdcontext.Context) *auth.Context {
	ac, _ := ctx.Value(Auth).(*auth.Context)
	return ac
}

func IdentityFrom(ctx stdcontext.Context) *auth.Identity {
	id, _ := ctx.Value(Identity).(*auth.Identity)
	return id
}

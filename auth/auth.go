// Package auth implements the authentication gateway (component C12):
// the single point every privileged exec passes through before a
// launcher is handed an ExecPlan. It consults the timestamp cookie
// store first and only falls back to an external Authenticator
// (PAM, in production) when no valid cookie covers the caller's
// scope — the same "call an external collaborator, wrap its error"
// shape the teacher's hooks.Run uses around an external hook binary.
package auth

import (
	"context"
	"time"

	"github.com/LeChatP/RootAsRole-sub001/cookie"
	rarerr "github.com/LeChatP/RootAsRole-sub001/errors"
	"github.com/LeChatP/RootAsRole-sub001/logging"
	"github.com/LeChatP/RootAsRole-sub001/policy"
	"github.com/LeChatP/RootAsRole-sub001/policy/optstack"
)

// Authenticator is the external collaborator contract (§4.12):
// authenticate a user, prompting with the given string, and separately
// run PAM account-management checks (expiry, lockout) after a
// successful authentication. A production binding talks to PAM; this
// package only consumes the interface.
type Authenticator interface {
	Authenticate(ctx context.Context, user string, prompt string) error
	AccountMgmt(ctx context.Context, user string) error
}

// Gateway wires an Authenticator to the cookie store and the effective
// option stack that governs authentication behavior for one request.
type Gateway struct {
	Store *cookie.Store
	Auth  Authenticator
	Clock func() time.Time
}

// NewGateway builds a Gateway with time.Now as its clock.
func NewGateway(store *cookie.Store, authenticator Authenticator) *Gateway {
	return &Gateway{Store: store, Auth: authenticator, Clock: time.Now}
}

// Authenticate runs the gateway's decision procedure for one caller
// under the given option stack (§4.12):
//  1. If `authentication=skip` is effective, succeed immediately and
//     log a warning (a policy author's explicit, logged choice — never
//     a silent bypass).
//  2. Otherwise compute the caller's cookie scope from
//     stack.Timestamp's type; if a valid, unexhausted cookie exists,
//     consume one use and succeed without prompting.
//  3. Otherwise call the Authenticator, then AccountMgmt; on success,
//     issue a fresh cookie with max_usage uses.
func (g *Gateway) Authenticate(ctx context.Context, uid uint32, user string, prompt string, stack *optstack.Stack, ts *policy.TimestampDescriptor) error {
	if auth := stack.Authentication(); auth.Found && auth.Value == policy.AuthSkip {
		logging.WarnContext(ctx, "authentication skipped by policy", "uid", uid, "user", user)
		return nil
	}

	if ts != nil {
		if scope, ok := cookie.ComputeScope(ts.Type); ok {
			duration, err := cookie.ParseDuration(ts.Duration)
			if err == nil {
				if ok, _ := g.Store.Consume(uid, scope, g.Clock(), duration); ok {
					return nil
				}
			}
		}
	}

	if err := g.Auth.Authenticate(ctx, user, prompt); err != nil {
		return rarerr.Wrap(err, rarerr.AuthenticationFailed, "auth.authenticate")
	}
	if err := g.Auth.AccountMgmt(ctx, user); err != nil {
		return rarerr.Wrap(err, rarerr.AuthenticationFailed, "auth.account_mgmt")
	}

	if ts != nil {
		if scope, ok := cookie.ComputeScope(ts.Type); ok {
			maxUsage := ts.MaxUsage
			if maxUsage == 0 {
				maxUsage = 1
			}
			if err := g.Store.Issue(uid, scope, g.Clock(), maxUsage); err != nil {
				logging.WarnContext(ctx, "failed to persist refreshed cookie", "uid", uid, "error", err)
			}
		}
	}
	return nil
}

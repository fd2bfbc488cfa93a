package handler

import (
	"context"
	"net/http"
	"strings"

	"blog-admin/internal/metrics"
	"blog-admin/internal/session"
)

// PathnameHeader carries the literal incoming path to downstream handlers on
// requests the gate lets through.
const PathnameHeader = "X-Pathname"

// SessionResolver turns a request into a session or nil.
type SessionResolver interface {
	Resolve(r *http.Request) *session.Session
}

type GateAction int

const (
	GateAllow GateAction = iota
	GateRedirect
)

func (a GateAction) String() string {
	if a == GateRedirect {
		return "redirect"
	}
	return "allow"
}

// Decision is the outcome of one gate evaluation.
type Decision struct {
	Action   GateAction
	Location string
	Session  *session.Session
}

// Gate is the single authorization point for the admin area. It keeps no
// state between requests, so evaluating it twice yields the same decision.
type Gate struct {
	Resolver  SessionResolver
	Prefix    string
	LoginPath string
	HomePath  string
}

func NewGate(resolver SessionResolver) *Gate {
	return &Gate{
		Resolver:  resolver,
		Prefix:    "/admin",
		LoginPath: "/admin/login",
		HomePath:  "/admin",
	}
}

// Matches reports whether path is the prefix itself or below it.
func (g *Gate) Matches(path string) bool {
	return path == g.Prefix || strings.HasPrefix(path, g.Prefix+"/")
}

// Decide applies the decision table:
//
//	no session, not login page -> redirect to login
//	no session, login page     -> allow
//	session, not login page    -> allow
//	session, login page        -> redirect to home
func (g *Gate) Decide(r *http.Request) Decision {
	s := g.Resolver.Resolve(r)
	onLogin := r.URL.Path == g.LoginPath

	switch {
	case s == nil && !onLogin:
		return Decision{Action: GateRedirect, Location: g.LoginPath}
	case s != nil && onLogin:
		return Decision{Action: GateRedirect, Location: g.HomePath, Session: s}
	default:
		return Decision{Action: GateAllow, Session: s}
	}
}

// Middleware enforces Decide on matched paths and passes everything else
// through untouched.
func (g *Gate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !g.Matches(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		d := g.Decide(r)
		if d.Action == GateRedirect {
			if d.Location == g.LoginPath {
				metrics.ObserveGateDecision("redirect_login")
			} else {
				metrics.ObserveGateDecision("redirect_home")
			}
			http.Redirect(w, r, d.Location, http.StatusTemporaryRedirect)
			return
		}

		metrics.ObserveGateDecision("allow")
		pathname := r.URL.Path
		r.Header.Set(PathnameHeader, pathname)
		ctx := context.WithValue(r.Context(), pathnameKey{}, pathname)
		if d.Session != nil {
			ctx = session.WithSession(ctx, d.Session)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type pathnameKey struct{}

// PathnameFromContext returns the path recorded by the gate, or "".
func PathnameFromContext(ctx context.Context) string {
	p, _ := ctx.Value(pathnameKey{}).(string)
	return p
}

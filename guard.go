package auth

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// Guard enforces the AccessPolicy for resolved callers
type Guard struct {
	policy     AccessPolicy
	contextKey string
	logger     Logger
}

// GuardOption customizes the guard
type GuardOption func(*Guard)

// WithGuardLogger sets the logger for denied requests
func WithGuardLogger(logger Logger) GuardOption {
	return func(g *Guard) {
		g.logger = normalizeLogger(logger)
	}
}

// WithGuardContextKey sets the fiber locals key holding the claims
func WithGuardContextKey(key string) GuardOption {
	return func(g *Guard) {
		if key != "" {
			g.contextKey = key
		}
	}
}

// NewGuard returns a guard enforcing policy
func NewGuard(policy AccessPolicy, opts ...GuardOption) *Guard {
	g := &Guard{
		policy:     policy.Clone(),
		contextKey: DefaultContextKey,
		logger:     defLogger{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	return g
}

// Authorize permits op iff the claims role is in the operation's role set.
// Operations without a policy entry are denied.
func (g *Guard) Authorize(claims AuthClaims, op Operation) error {
	if claims == nil {
		return ErrMissingSession
	}

	set, ok := g.policy.Lookup(op)
	if !ok {
		g.logger.Error("Guard denied undeclared operation", "operation", op)
		return ErrUnknownOperation
	}

	if !set.Allows(claims.Role()) {
		g.logger.Info("Guard denied operation",
			"operation", op,
			"matricula", claims.Matricula(),
			"role", claims.Role(),
			"required", set.String(),
		)
		return ErrForbidden
	}

	return nil
}

// Require returns a fiber handler enforcing op. It must run after the session
// middleware. Mounting an operation without a policy entry panics so the gap
// shows up at startup instead of as an open route.
func (g *Guard) Require(op Operation) fiber.Handler {
	if _, ok := g.policy.Lookup(op); !ok {
		panic(fmt.Sprintf("auth: operation %q has no access policy entry", op))
	}

	return func(c *fiber.Ctx) error {
		claims, ok := GetFiberClaims(c, g.contextKey)
		if !ok {
			return ErrMissingSession
		}

		if err := g.Authorize(claims, op); err != nil {
			return err
		}

		return c.Next()
	}
}

// Policy returns a copy of the enforced policy
func (g *Guard) Policy() AccessPolicy {
	return g.policy.Clone()
}

package adapter

import (
	"context"

	"isp-hotspot-billing/internal/domain/model"
)

// RouterSession is one authenticated RouterOS API session. Run executes a
// single command sentence and returns the reply rows (one map per `!re`).
// Attribute keys keep the router's naming, including the `.id` row identity.
type RouterSession interface {
	Run(ctx context.Context, command string, args map[string]string) ([]map[string]string, error)
	Close() error
}

// RouterDialer opens sessions against a managed router. Dial failures wrap
// domain.ErrRouterUnavailable.
type RouterDialer interface {
	Dial(ctx context.Context, r *model.Router) (RouterSession, error)
}

// TrapError is a router-side command rejection (`!trap`). The message text is
// the router's own wording; callers match on it to detect benign rejections
// such as duplicate adds.
type TrapError struct {
	Command string
	Message string
}

func (e *TrapError) Error() string {
	return "router trap on " + e.Command + ": " + e.Message
}

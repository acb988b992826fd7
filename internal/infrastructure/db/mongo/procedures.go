package mongo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/electrix/tracker/internal/core/domain"
)

const minPasswordLength = 6

// Procedures implements the privileged remote procedures.
type Procedures struct {
	g *gateway
}

func (p *Procedures) Call(ctx context.Context, name string, args map[string]any) (_ json.RawMessage, err error) {
	defer observe("rpc."+name, time.Now(), &err)
	switch name {
	case "admin_reset_password":
		return p.resetPassword(ctx, args)
	default:
		return nil, fmt.Errorf("procedure %s: %w", name, domain.ErrNotFound)
	}
}

// resetPassword sets another identity's password. Supervisors only.
func (p *Procedures) resetPassword(ctx context.Context, args map[string]any) (json.RawMessage, error) {
	who, err := p.g.caller(ctx)
	if err != nil {
		return nil, err
	}
	if !who.isSupervisor() {
		return nil, fmt.Errorf("admin_reset_password: %w", domain.ErrForbidden)
	}

	target, _ := args["target_user_id"].(string)
	password, _ := args["new_password"].(string)
	if target == "" || len(password) < minPasswordLength {
		return nil, fmt.Errorf("admin_reset_password: invalid arguments")
	}
	if err := p.g.b.auth.setPassword(ctx, target, password); err != nil {
		return nil, err
	}
	return json.RawMessage("null"), nil
}

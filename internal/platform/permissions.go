package platform

import (
	"context"
	"fmt"

	"github.com/soyeahso/attachkit/internal/config"
	"github.com/soyeahso/attachkit/internal/domain"
	"github.com/soyeahso/attachkit/internal/logging"
)

// Permission policies.
const (
	PolicyGrant = "grant"
	PolicyDeny  = "deny"
	PolicyAsk   = "ask"
)

// GrantStore remembers answers to permission prompts. *store.GrantStore
// satisfies it.
type GrantStore interface {
	Get(ctx context.Context, scope domain.Scope) (domain.PermissionStatus, error)
	Set(ctx context.Context, scope domain.Scope, status domain.PermissionStatus) error
}

// Prompter asks the user a yes/no question. *Terminal satisfies it.
type Prompter interface {
	Confirm(ctx context.Context, question string) (bool, error)
}

var scopeQuestions = map[domain.Scope]string{
	domain.ScopeMediaLibrary: "Allow attachkit to read your photo library?",
	domain.ScopeCamera:       "Allow attachkit to use the camera?",
	domain.ScopeLocation:     "Allow attachkit to read your location?",
}

// PolicyPermissions grants scopes according to configured policy. Scopes
// under the "ask" policy prompt once and the answer is remembered.
type PolicyPermissions struct {
	policies map[domain.Scope]string
	grants   GrantStore
	prompter Prompter
	log      *logging.Logger
}

// NewPolicyPermissions creates a permission service. grants and prompter may
// be nil: without grants answers are not remembered, and without a prompter
// an undetermined "ask" scope is denied.
func NewPolicyPermissions(cfg config.PermissionsConfig, grants GrantStore, prompter Prompter, log *logging.Logger) *PolicyPermissions {
	return &PolicyPermissions{
		policies: map[domain.Scope]string{
			domain.ScopeMediaLibrary: cfg.MediaLibrary,
			domain.ScopeCamera:       cfg.Camera,
			domain.ScopeLocation:     cfg.Location,
		},
		grants:   grants,
		prompter: prompter,
		log:      log.Sub("permissions"),
	}
}

// Request returns granted only if every scope is granted. Scopes are checked
// in order and the first refusal stops the request.
func (p *PolicyPermissions) Request(ctx context.Context, scopes ...domain.Scope) (domain.PermissionStatus, error) {
	for _, scope := range scopes {
		status, err := p.requestOne(ctx, scope)
		if err != nil {
			return domain.PermissionUndetermined, err
		}
		if status != domain.PermissionGranted {
			p.log.Info().Str("scope", string(scope)).Str("status", string(status)).Msg("permission not granted")
			return status, nil
		}
	}
	return domain.PermissionGranted, nil
}

func (p *PolicyPermissions) requestOne(ctx context.Context, scope domain.Scope) (domain.PermissionStatus, error) {
	policy := p.policies[scope]
	switch policy {
	case PolicyGrant:
		return domain.PermissionGranted, nil
	case PolicyDeny:
		return domain.PermissionDenied, nil
	case PolicyAsk, "":
	default:
		return domain.PermissionUndetermined, fmt.Errorf("unknown permission policy %q for %s", policy, scope)
	}

	if p.grants != nil {
		status, err := p.grants.Get(ctx, scope)
		if err != nil {
			return domain.PermissionUndetermined, err
		}
		if status != domain.PermissionUndetermined {
			return status, nil
		}
	}

	if p.prompter == nil {
		return domain.PermissionDenied, nil
	}

	question, ok := scopeQuestions[scope]
	if !ok {
		question = fmt.Sprintf("Allow attachkit to access %s?", scope)
	}
	yes, err := p.prompter.Confirm(ctx, question)
	if err != nil {
		return domain.PermissionUndetermined, err
	}

	status := domain.PermissionDenied
	if yes {
		status = domain.PermissionGranted
	}
	if p.grants != nil {
		if err := p.grants.Set(ctx, scope, status); err != nil {
			p.log.Warn().Err(err).Str("scope", string(scope)).Msg("failed to remember permission")
		}
	}
	return status, nil
}

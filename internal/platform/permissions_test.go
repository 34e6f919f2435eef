package platform

import (
	"context"
	"errors"
	"testing"

	"github.com/soyeahso/attachkit/internal/config"
	"github.com/soyeahso/attachkit/internal/domain"
	"github.com/soyeahso/attachkit/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memGrants map[domain.Scope]domain.PermissionStatus

func (m memGrants) Get(_ context.Context, s domain.Scope) (domain.PermissionStatus, error) {
	if st, ok := m[s]; ok {
		return st, nil
	}
	return domain.PermissionUndetermined, nil
}

func (m memGrants) Set(_ context.Context, s domain.Scope, st domain.PermissionStatus) error {
	m[s] = st
	return nil
}

type scriptedPrompter struct {
	answers   []bool
	err       error
	questions []string
}

func (p *scriptedPrompter) Confirm(_ context.Context, q string) (bool, error) {
	p.questions = append(p.questions, q)
	if p.err != nil {
		return false, p.err
	}
	a := p.answers[0]
	p.answers = p.answers[1:]
	return a, nil
}

func silentLog() *logging.Logger { return logging.New(nil, "silent") }

func TestPolicyPermissions_GrantAndDeny(t *testing.T) {
	p := NewPolicyPermissions(config.PermissionsConfig{
		MediaLibrary: PolicyGrant, Camera: PolicyDeny, Location: PolicyGrant,
	}, nil, nil, silentLog())
	ctx := context.Background()

	st, err := p.Request(ctx, domain.ScopeMediaLibrary)
	require.NoError(t, err)
	assert.Equal(t, domain.PermissionGranted, st)

	st, err = p.Request(ctx, domain.ScopeCamera, domain.ScopeMediaLibrary)
	require.NoError(t, err)
	assert.Equal(t, domain.PermissionDenied, st, "all scopes must be granted")

	st, err = p.Request(ctx, domain.ScopeLocation)
	require.NoError(t, err)
	assert.Equal(t, domain.PermissionGranted, st)
}

func TestPolicyPermissions_AskOnceAndRemember(t *testing.T) {
	grants := memGrants{}
	prompter := &scriptedPrompter{answers: []bool{true}}
	p := NewPolicyPermissions(config.PermissionsConfig{Camera: PolicyAsk}, grants, prompter, silentLog())
	ctx := context.Background()

	st, err := p.Request(ctx, domain.ScopeCamera)
	require.NoError(t, err)
	assert.Equal(t, domain.PermissionGranted, st)

	st, err = p.Request(ctx, domain.ScopeCamera)
	require.NoError(t, err)
	assert.Equal(t, domain.PermissionGranted, st)

	assert.Len(t, prompter.questions, 1)
	assert.Equal(t, "Allow attachkit to use the camera?", prompter.questions[0])
	assert.Equal(t, domain.PermissionGranted, grants[domain.ScopeCamera])
}

func TestPolicyPermissions_RememberedDenial(t *testing.T) {
	grants := memGrants{domain.ScopeLocation: domain.PermissionDenied}
	prompter := &scriptedPrompter{}
	p := NewPolicyPermissions(config.PermissionsConfig{}, grants, prompter, silentLog())

	st, err := p.Request(context.Background(), domain.ScopeLocation)
	require.NoError(t, err)
	assert.Equal(t, domain.PermissionDenied, st)
	assert.Empty(t, prompter.questions)
}

func TestPolicyPermissions_StopsAtFirstRefusal(t *testing.T) {
	prompter := &scriptedPrompter{answers: []bool{false, true}}
	p := NewPolicyPermissions(config.PermissionsConfig{}, memGrants{}, prompter, silentLog())

	st, err := p.Request(context.Background(), domain.ScopeCamera, domain.ScopeMediaLibrary)
	require.NoError(t, err)
	assert.Equal(t, domain.PermissionDenied, st)
	assert.Len(t, prompter.questions, 1)
}

func TestPolicyPermissions_AskWithoutPrompter(t *testing.T) {
	p := NewPolicyPermissions(config.PermissionsConfig{MediaLibrary: PolicyAsk}, memGrants{}, nil, silentLog())

	st, err := p.Request(context.Background(), domain.ScopeMediaLibrary)
	require.NoError(t, err)
	assert.Equal(t, domain.PermissionDenied, st)
}

func TestPolicyPermissions_Errors(t *testing.T) {
	p := NewPolicyPermissions(config.PermissionsConfig{Camera: "sometimes"}, nil, nil, silentLog())
	_, err := p.Request(context.Background(), domain.ScopeCamera)
	assert.Error(t, err)

	boom := errors.New("tty gone")
	p = NewPolicyPermissions(config.PermissionsConfig{}, nil, &scriptedPrompter{err: boom}, silentLog())
	_, err = p.Request(context.Background(), domain.ScopeCamera)
	assert.ErrorIs(t, err, boom)
}

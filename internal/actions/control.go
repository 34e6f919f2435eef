// Package actions implements the attach control: an action sheet offering
// library, camera, location and cancel, and the flows behind each entry.
// Every flow hands at most one payload to the send callback and never
// returns an error to its caller.
package actions

import (
	"context"

	"github.com/soyeahso/attachkit/internal/domain"
	"github.com/soyeahso/attachkit/internal/logging"
	"github.com/soyeahso/attachkit/internal/upload"
)

// SendFunc receives each emitted payload. It is the parent chat's onSend.
type SendFunc func(ctx context.Context, p domain.Payload)

// Uploader moves a local image reference to remote storage.
type Uploader interface {
	Upload(ctx context.Context, ref string) (*upload.Uploaded, error)
}

// Emitter receives lifecycle events. *hooks.Manager satisfies it.
type Emitter interface {
	Emit(ctx context.Context, event string, data map[string]any)
}

// Deps are the platform capabilities the control drives.
type Deps struct {
	Sheet       domain.ActionSheet
	Permissions domain.Permissions
	Picker      domain.ImagePicker
	Locator     domain.Locator
	Uploader    Uploader
}

// Style carries opaque visual overrides for whatever renders the control's
// button. The control never reads them.
type Style struct {
	Wrapper  map[string]any `json:"wrapperStyle,omitempty"`
	IconText map[string]any `json:"iconTextStyle,omitempty"`
}

// DefaultMenu is the sheet shown by Press. The cancel entry is last.
var DefaultMenu = []domain.SheetOption{
	{Label: "Choose From Library", Choice: domain.ChoiceLibrary},
	{Label: "Take Picture", Choice: domain.ChoiceCamera},
	{Label: "Send Location", Choice: domain.ChoiceLocation},
	{Label: "Cancel", Choice: domain.ChoiceCancel},
}

// Control is the attach button. Its configuration is fixed at construction.
type Control struct {
	deps  Deps
	send  SendFunc
	sheet domain.Sheet
	style Style
	hooks Emitter
	log   *logging.Logger
}

// Option configures a Control.
type Option func(*Control)

// WithStyle sets the wrapper and icon text style overrides.
func WithStyle(wrapper, iconText map[string]any) Option {
	return func(c *Control) {
		c.style = Style{Wrapper: wrapper, IconText: iconText}
	}
}

// WithMenu replaces the sheet title and options.
func WithMenu(title string, options []domain.SheetOption) Option {
	return func(c *Control) {
		c.sheet = newSheet(title, options)
	}
}

// WithHooks emits permission, cancel, payload and failure events.
func WithHooks(e Emitter) Option {
	return func(c *Control) { c.hooks = e }
}

// New creates a control. send may be nil, in which case payloads are
// dropped after logging.
func New(deps Deps, send SendFunc, log *logging.Logger, opts ...Option) *Control {
	c := &Control{
		deps:  deps,
		send:  send,
		sheet: newSheet("", DefaultMenu),
		log:   log.Sub("actions"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func newSheet(title string, options []domain.SheetOption) domain.Sheet {
	opts := make([]domain.SheetOption, len(options))
	copy(opts, options)

	cancel := -1
	for i, o := range opts {
		if o.Choice == domain.ChoiceCancel {
			cancel = i
		}
	}
	return domain.Sheet{Title: title, Options: opts, CancelIndex: cancel}
}

// Sheet returns the menu Press presents.
func (c *Control) Sheet() domain.Sheet { return c.sheet }

// Style returns the visual overrides.
func (c *Control) Style() Style { return c.style }

// Press shows the action sheet and runs the chosen flow.
func (c *Control) Press(ctx context.Context) Result {
	if c.deps.Sheet == nil {
		return c.finish(ctx, Result{Choice: domain.ChoiceCancel, Outcome: Failed, Err: errNoCapability("action sheet")})
	}

	var choice domain.Choice
	res := c.guard(domain.ChoiceCancel, func() Result {
		var err error
		choice, err = c.deps.Sheet.Show(ctx, c.sheet)
		if err != nil {
			return Result{Choice: domain.ChoiceCancel, Outcome: Failed, Err: err}
		}
		return Result{Choice: choice, Outcome: Dismissed}
	})
	if res.Outcome == Failed {
		return c.finish(ctx, res)
	}
	return c.Run(ctx, choice)
}

// Run executes the flow for choice without showing the sheet. Exactly one
// handler runs; cancel and unknown choices do nothing.
func (c *Control) Run(ctx context.Context, choice domain.Choice) Result {
	switch choice {
	case domain.ChoiceLibrary:
		return c.PickImage(ctx)
	case domain.ChoiceCamera:
		return c.TakePhoto(ctx)
	case domain.ChoiceLocation:
		return c.GetLocation(ctx)
	default:
		c.log.Debug().Msg("action sheet dismissed")
		return Result{Choice: domain.ChoiceCancel, Outcome: Dismissed}
	}
}

type choiceKey struct{}

// ContextWithChoice tags ctx with the choice whose flow is emitting.
func ContextWithChoice(ctx context.Context, choice domain.Choice) context.Context {
	return context.WithValue(ctx, choiceKey{}, choice)
}

// ChoiceFromContext returns the choice a payload was emitted for. SendFunc
// implementations use it to label what they deliver.
func ChoiceFromContext(ctx context.Context) (domain.Choice, bool) {
	c, ok := ctx.Value(choiceKey{}).(domain.Choice)
	return c, ok
}

package actions

import (
	"context"
	"errors"
	"fmt"

	"github.com/soyeahso/attachkit/internal/domain"
	"github.com/soyeahso/attachkit/internal/hooks"
)

// ErrNoReference is returned when a picker reports success without a
// reference to upload.
var ErrNoReference = errors.New("picker returned no image reference")

func errNoCapability(name string) error {
	return fmt.Errorf("%w: no %s configured", domain.ErrUnavailable, name)
}

// PickImage asks for media library access, lets the user pick an image and
// sends its uploaded URL.
func (c *Control) PickImage(ctx context.Context) Result {
	return c.imageFlow(ctx, domain.ChoiceLibrary, []domain.Scope{domain.ScopeMediaLibrary},
		func(ctx context.Context, picker domain.ImagePicker, opts domain.PickOptions) (domain.PickResult, error) {
			return picker.PickFromLibrary(ctx, opts)
		})
}

// TakePhoto asks for camera and media library access, captures a photo and
// sends its uploaded URL.
func (c *Control) TakePhoto(ctx context.Context) Result {
	return c.imageFlow(ctx, domain.ChoiceCamera, []domain.Scope{domain.ScopeCamera, domain.ScopeMediaLibrary},
		func(ctx context.Context, picker domain.ImagePicker, opts domain.PickOptions) (domain.PickResult, error) {
			return picker.Capture(ctx, opts)
		})
}

// GetLocation asks for location access and sends the current position.
func (c *Control) GetLocation(ctx context.Context) Result {
	choice := domain.ChoiceLocation
	return c.finish(ctx, c.guard(choice, func() Result {
		if res, ok := c.authorize(ctx, choice, domain.ScopeLocation); !ok {
			return res
		}
		if c.deps.Locator == nil {
			return Result{Choice: choice, Outcome: Failed, Err: errNoCapability("locator")}
		}

		pos, err := c.deps.Locator.CurrentPosition(ctx)
		if err != nil {
			if errors.Is(err, domain.ErrPermissionDenied) {
				return Result{Choice: choice, Outcome: PermissionDenied}
			}
			return Result{Choice: choice, Outcome: Failed, Err: fmt.Errorf("reading position: %w", err)}
		}
		if pos == nil {
			return Result{Choice: choice, Outcome: NoReading}
		}

		return c.emit(ctx, choice, domain.LocationPayload(pos.Coords.Longitude, pos.Coords.Latitude))
	}))
}

type openFunc func(ctx context.Context, picker domain.ImagePicker, opts domain.PickOptions) (domain.PickResult, error)

func (c *Control) imageFlow(ctx context.Context, choice domain.Choice, scopes []domain.Scope, open openFunc) Result {
	return c.finish(ctx, c.guard(choice, func() Result {
		if res, ok := c.authorize(ctx, choice, scopes...); !ok {
			return res
		}
		if c.deps.Picker == nil {
			return Result{Choice: choice, Outcome: Failed, Err: errNoCapability("image picker")}
		}
		if c.deps.Uploader == nil {
			return Result{Choice: choice, Outcome: Failed, Err: errNoCapability("uploader")}
		}

		picked, err := open(ctx, c.deps.Picker, domain.PickOptions{MediaTypes: domain.MediaImages})
		if err != nil {
			if errors.Is(err, domain.ErrCancelled) {
				return Result{Choice: choice, Outcome: Cancelled}
			}
			if errors.Is(err, domain.ErrPermissionDenied) {
				return Result{Choice: choice, Outcome: PermissionDenied}
			}
			return Result{Choice: choice, Outcome: Failed, Err: err}
		}
		if picked.Cancelled {
			return Result{Choice: choice, Outcome: Cancelled}
		}
		if picked.URI == "" {
			return Result{Choice: choice, Outcome: Failed, Err: ErrNoReference}
		}

		up, err := c.deps.Uploader.Upload(ctx, picked.URI)
		if err != nil {
			return Result{Choice: choice, Outcome: Failed, Err: fmt.Errorf("uploading %s: %w", picked.URI, err)}
		}
		if choice == domain.ChoiceCamera {
			c.release(picked.URI)
		}

		return c.emit(ctx, choice, domain.ImagePayload(up.URL))
	}))
}

// release discards a temporary capture after its upload.
func (c *Control) release(uri string) {
	r, ok := c.deps.Picker.(domain.ReferenceReleaser)
	if !ok {
		return
	}
	if err := r.Release(uri); err != nil {
		c.log.Warn().Err(err).Str("uri", uri).Msg("failed to release capture")
	}
}

// authorize requests scopes. ok is false when the flow must stop; res then
// holds the outcome.
func (c *Control) authorize(ctx context.Context, choice domain.Choice, scopes ...domain.Scope) (res Result, ok bool) {
	if c.deps.Permissions == nil {
		return Result{Choice: choice, Outcome: Failed, Err: errNoCapability("permission service")}, false
	}

	status, err := c.deps.Permissions.Request(ctx, scopes...)
	if err != nil {
		if errors.Is(err, domain.ErrPermissionDenied) {
			return Result{Choice: choice, Outcome: PermissionDenied}, false
		}
		return Result{Choice: choice, Outcome: Failed, Err: fmt.Errorf("requesting permission: %w", err)}, false
	}
	if status != domain.PermissionGranted {
		return Result{Choice: choice, Outcome: PermissionDenied}, false
	}
	return Result{}, true
}

// emit hands the payload to the send callback.
func (c *Control) emit(ctx context.Context, choice domain.Choice, p domain.Payload) Result {
	if err := p.Validate(); err != nil {
		return Result{Choice: choice, Outcome: Failed, Err: err}
	}
	if c.send != nil {
		c.send(ContextWithChoice(ctx, choice), p)
	} else {
		c.log.Warn().Str("choice", choice.String()).Msg("no send callback, payload dropped")
	}
	return Result{Choice: choice, Outcome: Emitted, Payload: &p}
}

// guard runs fn and turns a panic from a capability into a failure.
func (c *Control) guard(choice domain.Choice, fn func() Result) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = Result{Choice: choice, Outcome: Failed, Err: fmt.Errorf("panic in %s flow: %v", choice, r)}
		}
	}()
	return fn()
}

// finish logs the result and emits the matching lifecycle event.
func (c *Control) finish(ctx context.Context, res Result) Result {
	data := map[string]any{"choice": res.Choice.String()}

	switch res.Outcome {
	case Emitted:
		c.log.Info().Str("choice", res.Choice.String()).Str("kind", string(res.Payload.Kind())).Msg("payload sent")
		data["kind"] = string(res.Payload.Kind())
		if res.Payload.Image != "" {
			data["image"] = res.Payload.Image
		}
		if loc := res.Payload.Location; loc != nil {
			data["longitude"] = loc.Longitude
			data["latitude"] = loc.Latitude
		}
		c.emitEvent(ctx, hooks.EventPayloadEmitted, data)
	case PermissionDenied:
		c.log.Debug().Str("choice", res.Choice.String()).Msg("permission denied")
		c.emitEvent(ctx, hooks.EventPermissionDenied, data)
	case Cancelled:
		c.log.Debug().Str("choice", res.Choice.String()).Msg("picker cancelled")
		c.emitEvent(ctx, hooks.EventPickerCancelled, data)
	case NoReading:
		c.log.Debug().Str("choice", res.Choice.String()).Msg("no position reading")
	case Failed:
		c.log.Error().Err(res.Err).Str("choice", res.Choice.String()).Msg("attach flow failed")
		data["error"] = res.Err.Error()
		c.emitEvent(ctx, hooks.EventFlowFailed, data)
	}
	return res
}

func (c *Control) emitEvent(ctx context.Context, event string, data map[string]any) {
	if c.hooks == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			c.log.Error().Interface("panic", r).Str("event", event).Msg("hook panicked")
		}
	}()
	c.hooks.Emit(ctx, event, data)
}

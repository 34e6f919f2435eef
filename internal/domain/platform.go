package domain

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrPermissionDenied reports that the user or policy refused a scope.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrCancelled reports that the user dismissed a picker or camera.
	ErrCancelled = errors.New("cancelled by user")

	// ErrUnavailable reports that a platform capability is not configured.
	ErrUnavailable = errors.New("capability unavailable")
)

// Scope is a platform permission scope.
type Scope string

const (
	ScopeMediaLibrary Scope = "media_library"
	ScopeCamera       Scope = "camera"
	ScopeLocation     Scope = "location"
)

// AllScopes lists every known permission scope.
var AllScopes = []Scope{ScopeMediaLibrary, ScopeCamera, ScopeLocation}

// PermissionStatus is the outcome of a permission request.
type PermissionStatus string

const (
	PermissionGranted      PermissionStatus = "granted"
	PermissionDenied       PermissionStatus = "denied"
	PermissionUndetermined PermissionStatus = "undetermined"
)

// MediaType restricts what a picker may return.
type MediaType string

const (
	MediaImages MediaType = "images"
	MediaAll    MediaType = "all"
)

// PickOptions configures a library or camera request.
type PickOptions struct {
	MediaTypes MediaType
}

// PickResult is what the picker or camera returns. URI is empty when
// Cancelled is set.
type PickResult struct {
	Cancelled bool
	URI       string
}

// Coords is the coordinate block of a position reading.
type Coords struct {
	Longitude float64  `json:"longitude"`
	Latitude  float64  `json:"latitude"`
	Accuracy  *float64 `json:"accuracy,omitempty"`
	Altitude  *float64 `json:"altitude,omitempty"`
}

// Position is a raw location reading.
type Position struct {
	Coords    Coords    `json:"coords"`
	Timestamp time.Time `json:"timestamp"`
}

// ActionSheet presents a menu and blocks until the user selects an entry.
// A dismissed sheet returns ChoiceCancel.
type ActionSheet interface {
	Show(ctx context.Context, sheet Sheet) (Choice, error)
}

// Permissions asks the platform for one or more scopes. The returned status
// is granted only if every scope was granted.
type Permissions interface {
	Request(ctx context.Context, scopes ...Scope) (PermissionStatus, error)
}

// ImagePicker opens the media library or the camera.
type ImagePicker interface {
	PickFromLibrary(ctx context.Context, opts PickOptions) (PickResult, error)
	Capture(ctx context.Context, opts PickOptions) (PickResult, error)
}

// ReferenceReleaser is implemented by pickers whose references are
// temporary. Release is called once the referenced bytes are uploaded.
type ReferenceReleaser interface {
	Release(uri string) error
}

// Locator reads the current device position. A nil position with a nil
// error means no reading was obtained.
type Locator interface {
	CurrentPosition(ctx context.Context) (*Position, error)
}

package core

import (
	"errors"

	"prompt-image-editor/internal/ops"
)

var (
	// ErrNoSourceImage is returned when an operation needs an uploaded image.
	ErrNoSourceImage = errors.New("no source image")

	// ErrAlreadyApplied is returned when a kind is applied twice without a clear.
	ErrAlreadyApplied = errors.New("already applied")

	// ErrNotApplied is returned when clearing a kind that is not logged.
	ErrNotApplied = errors.New("not applied")

	// ErrUnsupportedOperation is returned for unknown or non-dispatchable kinds.
	ErrUnsupportedOperation = ops.ErrUnsupportedOperation

	// ErrBusy is returned while a prompt interpretation is outstanding.
	ErrBusy = errors.New("prompt interpretation in progress")

	// ErrEmptyPrompt is returned for a blank prompt.
	ErrEmptyPrompt = errors.New("empty prompt")
)

package domain

import "errors"

// ErrDecodeFailure indicates a plan payload could not be parsed into a WorkoutPlan.
var ErrDecodeFailure = errors.New("plan payload decode failed")

// ErrInvalidPlan indicates a decoded plan is not structurally valid.
var ErrInvalidPlan = errors.New("invalid workout plan")

// ErrInvalidFieldSet indicates a field set carried an unknown key or value.
var ErrInvalidFieldSet = errors.New("invalid field set")

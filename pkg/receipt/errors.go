package receipt

import "errors"

// ErrTooLarge is returned before any stage runs when the input file exceeds
// the upload size cap.
var ErrTooLarge = errors.New("image too large")

// ErrEmptyImage is returned when the decoded image has a zero dimension.
var ErrEmptyImage = errors.New("image has zero dimensions")

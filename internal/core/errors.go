package core

import "errors"

// ErrInterrupted reports that the operator cancelled the run.
var ErrInterrupted = errors.New("interrupted")

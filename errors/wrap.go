package errors

import pkgerrors "github.com/pkg/errors"

// Call sites wrap this package's sentinels and inspect causes without
// importing pkg/errors themselves, so the helpers are re-exported here.
var (
	Wrapf     = pkgerrors.Wrapf
	WithStack = pkgerrors.WithStack
	Errorf    = pkgerrors.Errorf
	New       = pkgerrors.New

	Is = pkgerrors.Is
	As = pkgerrors.As
)

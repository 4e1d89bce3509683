package script

import "errors"

// Script errors.
var (
	// ErrClosed indicates the script's Lua state was closed.
	ErrClosed = errors.New("script closed")

	// ErrBadDeclaration indicates an invalid on() call.
	ErrBadDeclaration = errors.New("invalid handler declaration")
)

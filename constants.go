package wire

import "github.com/behrlich/go-wire/internal/constants"

// Re-export constants for the public API.
const (
	CmdHeaderSize             = constants.CmdHeaderSize
	ChunkedHeaderSize         = constants.ChunkedHeaderSize
	DefaultMaxAllocationSize  = constants.DefaultMaxAllocationSize
	DefaultObjectCapacityHint = constants.DefaultObjectCapacityHint
	NullObjectID              = constants.NullObjectID
)

package wirecmd

// ObjectType tags which per-type allocator/known-objects table an object
// id belongs to: every API-visible object on either side is identified by
// the pair (ObjectType, id).
type ObjectType byte

const (
	ObjectTypeDevice ObjectType = iota
	ObjectTypeBuffer
	ObjectTypeCommandEncoderBuilder
	ObjectTypeCommandEncoder
)

func (t ObjectType) String() string {
	switch t {
	case ObjectTypeDevice:
		return "Device"
	case ObjectTypeBuffer:
		return "Buffer"
	case ObjectTypeCommandEncoderBuilder:
		return "CommandEncoderBuilder"
	case ObjectTypeCommandEncoder:
		return "CommandEncoder"
	default:
		return "Unknown"
	}
}

// ForwardCommandID discriminates forward (client -> server) commands.
type ForwardCommandID uint32

const (
	CmdDeviceCreateBuffer ForwardCommandID = iota + 1
	CmdDeviceCreateCommandEncoderBuilder
	CmdDevicePushErrorScope
	CmdDevicePopErrorScope
	CmdObjectSetLabel
	CmdCommandEncoderBuilderGetResult
	CmdBufferMapAsync
	CmdBufferUnmap
	CmdBufferUpdateMappedData
	CmdObjectDestroy
	CmdChunkedCommand
)

// ReturnCommandID discriminates return (server -> client) commands. This is
// a separate enumeration from ForwardCommandID; the two are never compared
// against each other, only decoded on their own stream.
type ReturnCommandID uint32

const (
	RetDeviceErrorCallback ReturnCommandID = iota + 1
	RetBuilderErrorCallback
	RetBufferMapReadAsyncCallback
	RetBufferMapWriteAsyncCallback
	RetDevicePopErrorScopeCallback
	RetDeviceLostCallback
	RetChunkedCommand
)

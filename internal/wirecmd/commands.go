package wirecmd

import "fmt"

// MapMode distinguishes a read-mapping request from a write-mapping request
// on the wire. Kept as its own tiny enum rather than a bool
// so Serialize/Deserialize read the same way the rest of the command set
// does.
type MapMode byte

const (
	MapModeRead MapMode = iota
	MapModeWrite
)

// --- Forward commands (client -> server) ---------------------------------

// DeviceCreateBufferCmd asks the server to allocate a Buffer of Size bytes
// and register it under (ResultID, ResultSerial) in the server's known-object
// table.
type DeviceCreateBufferCmd struct {
	SelfID       uint32
	ResultID     uint32
	ResultSerial uint32
	Size         uint64
}

func (c *DeviceCreateBufferCmd) Size_() (uint64, error) {
	return checkedAdd(4+4+4, 8)
}

func (c *DeviceCreateBufferCmd) Serialize(buf []byte) {
	le.PutUint32(buf[0:4], c.SelfID)
	le.PutUint32(buf[4:8], c.ResultID)
	le.PutUint32(buf[8:12], c.ResultSerial)
	le.PutUint64(buf[12:20], c.Size)
}

func DecodeDeviceCreateBufferCmd(body []byte) (*DeviceCreateBufferCmd, error) {
	if len(body) < 20 {
		return nil, fmt.Errorf("wirecmd: DeviceCreateBuffer body too short: %d", len(body))
	}
	return &DeviceCreateBufferCmd{
		SelfID:       le.Uint32(body[0:4]),
		ResultID:     le.Uint32(body[4:8]),
		ResultSerial: le.Uint32(body[8:12]),
		Size:         le.Uint64(body[12:20]),
	}, nil
}

// DeviceCreateCommandEncoderBuilderCmd asks the server to create a new
// CommandEncoderBuilder and register it under (ResultID, ResultSerial).
type DeviceCreateCommandEncoderBuilderCmd struct {
	SelfID       uint32
	ResultID     uint32
	ResultSerial uint32
}

func (c *DeviceCreateCommandEncoderBuilderCmd) Size_() (uint64, error) {
	return 12, nil
}

func (c *DeviceCreateCommandEncoderBuilderCmd) Serialize(buf []byte) {
	le.PutUint32(buf[0:4], c.SelfID)
	le.PutUint32(buf[4:8], c.ResultID)
	le.PutUint32(buf[8:12], c.ResultSerial)
}

func DecodeDeviceCreateCommandEncoderBuilderCmd(body []byte) (*DeviceCreateCommandEncoderBuilderCmd, error) {
	if len(body) < 12 {
		return nil, fmt.Errorf("wirecmd: DeviceCreateCommandEncoderBuilder body too short: %d", len(body))
	}
	return &DeviceCreateCommandEncoderBuilderCmd{
		SelfID:       le.Uint32(body[0:4]),
		ResultID:     le.Uint32(body[4:8]),
		ResultSerial: le.Uint32(body[8:12]),
	}, nil
}

// DevicePushErrorScopeCmd pushes a new error scope onto the device's error
// scope stack.
type DevicePushErrorScopeCmd struct {
	SelfID uint32
}

func (c *DevicePushErrorScopeCmd) Size_() (uint64, error) { return 4, nil }

func (c *DevicePushErrorScopeCmd) Serialize(buf []byte) {
	le.PutUint32(buf[0:4], c.SelfID)
}

func DecodeDevicePushErrorScopeCmd(body []byte) (*DevicePushErrorScopeCmd, error) {
	if len(body) < 4 {
		return nil, fmt.Errorf("wirecmd: DevicePushErrorScope body too short: %d", len(body))
	}
	return &DevicePushErrorScopeCmd{SelfID: le.Uint32(body[0:4])}, nil
}

// DevicePopErrorScopeCmd pops the top error scope, asking the server to
// report whether an error occurred inside it via a
// DevicePopErrorScopeCallbackCmd tagged with RequestSerial.
type DevicePopErrorScopeCmd struct {
	SelfID        uint32
	RequestSerial uint32
}

func (c *DevicePopErrorScopeCmd) Size_() (uint64, error) { return 8, nil }

func (c *DevicePopErrorScopeCmd) Serialize(buf []byte) {
	le.PutUint32(buf[0:4], c.SelfID)
	le.PutUint32(buf[4:8], c.RequestSerial)
}

func DecodeDevicePopErrorScopeCmd(body []byte) (*DevicePopErrorScopeCmd, error) {
	if len(body) < 8 {
		return nil, fmt.Errorf("wirecmd: DevicePopErrorScope body too short: %d", len(body))
	}
	return &DevicePopErrorScopeCmd{
		SelfID:        le.Uint32(body[0:4]),
		RequestSerial: le.Uint32(body[4:8]),
	}, nil
}

// ObjectSetLabelCmd sets a debug label on any labeled object type. Carries a
// variable-length NUL-terminated string argument, exercising the checked
// string-sizing path.
type ObjectSetLabelCmd struct {
	Type  ObjectType
	ID    uint32
	Label string
}

func (c *ObjectSetLabelCmd) Size_() (uint64, error) {
	ss, err := stringSize(c.Label)
	if err != nil {
		return 0, err
	}
	return checkedAdd(5, ss)
}

func (c *ObjectSetLabelCmd) Serialize(buf []byte) {
	buf[0] = byte(c.Type)
	le.PutUint32(buf[1:5], c.ID)
	n := copy(buf[5:], c.Label)
	buf[5+n] = 0
}

func DecodeObjectSetLabelCmd(body []byte) (*ObjectSetLabelCmd, error) {
	if len(body) < 5 {
		return nil, fmt.Errorf("wirecmd: ObjectSetLabel body too short: %d", len(body))
	}
	label, err := readCString(body[5:])
	if err != nil {
		return nil, err
	}
	return &ObjectSetLabelCmd{
		Type:  ObjectType(body[0]),
		ID:    le.Uint32(body[1:5]),
		Label: label,
	}, nil
}

// CommandEncoderBuilderGetResultCmd finalizes a builder, transferring
// ownership of the built object to (ResultID, ResultSerial).
type CommandEncoderBuilderGetResultCmd struct {
	SelfID       uint32
	ResultID     uint32
	ResultSerial uint32
}

func (c *CommandEncoderBuilderGetResultCmd) Size_() (uint64, error) { return 12, nil }

func (c *CommandEncoderBuilderGetResultCmd) Serialize(buf []byte) {
	le.PutUint32(buf[0:4], c.SelfID)
	le.PutUint32(buf[4:8], c.ResultID)
	le.PutUint32(buf[8:12], c.ResultSerial)
}

func DecodeCommandEncoderBuilderGetResultCmd(body []byte) (*CommandEncoderBuilderGetResultCmd, error) {
	if len(body) < 12 {
		return nil, fmt.Errorf("wirecmd: CommandEncoderBuilderGetResult body too short: %d", len(body))
	}
	return &CommandEncoderBuilderGetResultCmd{
		SelfID:       le.Uint32(body[0:4]),
		ResultID:     le.Uint32(body[4:8]),
		ResultSerial: le.Uint32(body[8:12]),
	}, nil
}

// BufferMapAsyncCmd requests an asynchronous map of [Offset, Offset+Size) of
// BufferID, tagged with RequestSerial so the matching callback can be
// correlated.
type BufferMapAsyncCmd struct {
	BufferID      uint32
	RequestSerial uint32
	Offset        uint32
	Size          uint32
	Mode          MapMode
}

func (c *BufferMapAsyncCmd) Size_() (uint64, error) { return 17, nil }

func (c *BufferMapAsyncCmd) Serialize(buf []byte) {
	le.PutUint32(buf[0:4], c.BufferID)
	le.PutUint32(buf[4:8], c.RequestSerial)
	le.PutUint32(buf[8:12], c.Offset)
	le.PutUint32(buf[12:16], c.Size)
	buf[16] = byte(c.Mode)
}

func DecodeBufferMapAsyncCmd(body []byte) (*BufferMapAsyncCmd, error) {
	if len(body) < 17 {
		return nil, fmt.Errorf("wirecmd: BufferMapAsync body too short: %d", len(body))
	}
	return &BufferMapAsyncCmd{
		BufferID:      le.Uint32(body[0:4]),
		RequestSerial: le.Uint32(body[4:8]),
		Offset:        le.Uint32(body[8:12]),
		Size:          le.Uint32(body[12:16]),
		Mode:          MapMode(body[16]),
	}, nil
}

// BufferUnmapCmd unmaps a currently-mapped buffer. The server clears its
// mapped-data pointer and calls the driver's Unmap. Map requests still in
// flight are drained by the client with MapStatusUnknown before it sends
// this command; a late server reply for one of them is dropped.
type BufferUnmapCmd struct {
	BufferID uint32
}

func (c *BufferUnmapCmd) Size_() (uint64, error) { return 4, nil }

func (c *BufferUnmapCmd) Serialize(buf []byte) {
	le.PutUint32(buf[0:4], c.BufferID)
}

func DecodeBufferUnmapCmd(body []byte) (*BufferUnmapCmd, error) {
	if len(body) < 4 {
		return nil, fmt.Errorf("wirecmd: BufferUnmap body too short: %d", len(body))
	}
	return &BufferUnmapCmd{BufferID: le.Uint32(body[0:4])}, nil
}

// BufferUpdateMappedDataCmd carries the client's write-back of a mapped
// write region to the server. It is sent client-to-server only; read data
// reaches the client in BufferMapReadAsyncCallbackCmd. Data is a
// variable-length trailing payload.
type BufferUpdateMappedDataCmd struct {
	BufferID uint32
	Offset   uint32
	Data     []byte
}

func (c *BufferUpdateMappedDataCmd) Size_() (uint64, error) {
	return checkedAdd(8, uint64(len(c.Data)))
}

func (c *BufferUpdateMappedDataCmd) Serialize(buf []byte) {
	le.PutUint32(buf[0:4], c.BufferID)
	le.PutUint32(buf[4:8], c.Offset)
	copy(buf[8:], c.Data)
}

func DecodeBufferUpdateMappedDataCmd(body []byte) (*BufferUpdateMappedDataCmd, error) {
	if len(body) < 8 {
		return nil, fmt.Errorf("wirecmd: BufferUpdateMappedData body too short: %d", len(body))
	}
	data := make([]byte, len(body)-8)
	copy(data, body[8:])
	return &BufferUpdateMappedDataCmd{
		BufferID: le.Uint32(body[0:4]),
		Offset:   le.Uint32(body[4:8]),
		Data:     data,
	}, nil
}

// ObjectDestroyCmd is sent when the client's refcount for an object reaches
// zero. The server releases the backing driver resource (if the object is
// valid) and frees the slot right away.
type ObjectDestroyCmd struct {
	Type ObjectType
	ID   uint32
}

func (c *ObjectDestroyCmd) Size_() (uint64, error) { return 5, nil }

func (c *ObjectDestroyCmd) Serialize(buf []byte) {
	buf[0] = byte(c.Type)
	le.PutUint32(buf[1:5], c.ID)
}

func DecodeObjectDestroyCmd(body []byte) (*ObjectDestroyCmd, error) {
	if len(body) < 5 {
		return nil, fmt.Errorf("wirecmd: ObjectDestroy body too short: %d", len(body))
	}
	return &ObjectDestroyCmd{
		Type: ObjectType(body[0]),
		ID:   le.Uint32(body[1:5]),
	}, nil
}

// ChunkedCommandCmd is the framing wrapper used on both directions of the
// stream for any command too large to fit in one transport allocation.
// ID is a monotonically assigned stream id scoping the
// reassembly; TotalSize is the original (unchunked) command's length;
// Chunk is this frame's slice of the original bytes.
type ChunkedCommandCmd struct {
	ID        uint64
	TotalSize uint32
	Chunk     []byte
}

func (c *ChunkedCommandCmd) Size_() (uint64, error) {
	return checkedAdd(16, uint64(len(c.Chunk)))
}

func (c *ChunkedCommandCmd) Serialize(buf []byte) {
	le.PutUint64(buf[0:8], c.ID)
	le.PutUint32(buf[8:12], c.TotalSize)
	le.PutUint32(buf[12:16], uint32(len(c.Chunk)))
	copy(buf[16:], c.Chunk)
}

func DecodeChunkedCommandCmd(body []byte) (*ChunkedCommandCmd, error) {
	if len(body) < 16 {
		return nil, fmt.Errorf("wirecmd: ChunkedCommand body too short: %d", len(body))
	}
	chunkSize := le.Uint32(body[12:16])
	if uint64(chunkSize)+16 != uint64(len(body)) {
		return nil, fmt.Errorf("wirecmd: ChunkedCommand chunk_size %d does not match body length %d", chunkSize, len(body)-16)
	}
	chunk := make([]byte, chunkSize)
	copy(chunk, body[16:])
	return &ChunkedCommandCmd{
		ID:        le.Uint64(body[0:8]),
		TotalSize: le.Uint32(body[8:12]),
		Chunk:     chunk,
	}, nil
}

// --- Return commands (server -> client) -----------------------------------

// DeviceErrorCallbackCmd reports a standalone device-level error with no
// associated error scope.
type DeviceErrorCallbackCmd struct {
	Message string
}

func (c *DeviceErrorCallbackCmd) Size_() (uint64, error) { return stringSize(c.Message) }

func (c *DeviceErrorCallbackCmd) Serialize(buf []byte) {
	n := copy(buf, c.Message)
	buf[n] = 0
}

func DecodeDeviceErrorCallbackCmd(body []byte) (*DeviceErrorCallbackCmd, error) {
	msg, err := readCString(body)
	if err != nil {
		return nil, err
	}
	return &DeviceErrorCallbackCmd{Message: msg}, nil
}

// BuilderErrorCallbackCmd reports the outcome of a builder's GetResult:
// Status mirrors interfaces.BuilderStatus, BuiltObjectID/Serial identify the
// object the client should mark valid or poison.
type BuilderErrorCallbackCmd struct {
	BuilderType       ObjectType
	BuiltObjectID     uint32
	BuiltObjectSerial uint32
	Status            byte
	Message           string
}

func (c *BuilderErrorCallbackCmd) Size_() (uint64, error) {
	ss, err := stringSize(c.Message)
	if err != nil {
		return 0, err
	}
	return checkedAdd(10, ss)
}

func (c *BuilderErrorCallbackCmd) Serialize(buf []byte) {
	buf[0] = byte(c.BuilderType)
	le.PutUint32(buf[1:5], c.BuiltObjectID)
	le.PutUint32(buf[5:9], c.BuiltObjectSerial)
	buf[9] = c.Status
	n := copy(buf[10:], c.Message)
	buf[10+n] = 0
}

func DecodeBuilderErrorCallbackCmd(body []byte) (*BuilderErrorCallbackCmd, error) {
	if len(body) < 10 {
		return nil, fmt.Errorf("wirecmd: BuilderErrorCallback body too short: %d", len(body))
	}
	msg, err := readCString(body[10:])
	if err != nil {
		return nil, err
	}
	return &BuilderErrorCallbackCmd{
		BuilderType:       ObjectType(body[0]),
		BuiltObjectID:     le.Uint32(body[1:5]),
		BuiltObjectSerial: le.Uint32(body[5:9]),
		Status:            body[9],
		Message:           msg,
	}, nil
}

// BufferMapReadAsyncCallbackCmd answers a read-mode BufferMapAsyncCmd. On
// success Data carries the mapped region's initial contents.
type BufferMapReadAsyncCallbackCmd struct {
	BufferID      uint32
	BufferSerial  uint32
	RequestSerial uint32
	Status        byte
	Data          []byte
}

func (c *BufferMapReadAsyncCallbackCmd) Size_() (uint64, error) {
	return checkedAdd(13, uint64(len(c.Data)))
}

func (c *BufferMapReadAsyncCallbackCmd) Serialize(buf []byte) {
	le.PutUint32(buf[0:4], c.BufferID)
	le.PutUint32(buf[4:8], c.BufferSerial)
	le.PutUint32(buf[8:12], c.RequestSerial)
	buf[12] = c.Status
	copy(buf[13:], c.Data)
}

func DecodeBufferMapReadAsyncCallbackCmd(body []byte) (*BufferMapReadAsyncCallbackCmd, error) {
	if len(body) < 13 {
		return nil, fmt.Errorf("wirecmd: BufferMapReadAsyncCallback body too short: %d", len(body))
	}
	data := make([]byte, len(body)-13)
	copy(data, body[13:])
	return &BufferMapReadAsyncCallbackCmd{
		BufferID:      le.Uint32(body[0:4]),
		BufferSerial:  le.Uint32(body[4:8]),
		RequestSerial: le.Uint32(body[8:12]),
		Status:        body[12],
		Data:          data,
	}, nil
}

// BufferMapWriteAsyncCallbackCmd answers a write-mode BufferMapAsyncCmd.
// There is no payload: the client owns a local staging buffer and writes it
// back later with BufferUpdateMappedDataCmd.
type BufferMapWriteAsyncCallbackCmd struct {
	BufferID      uint32
	BufferSerial  uint32
	RequestSerial uint32
	Status        byte
}

func (c *BufferMapWriteAsyncCallbackCmd) Size_() (uint64, error) { return 13, nil }

func (c *BufferMapWriteAsyncCallbackCmd) Serialize(buf []byte) {
	le.PutUint32(buf[0:4], c.BufferID)
	le.PutUint32(buf[4:8], c.BufferSerial)
	le.PutUint32(buf[8:12], c.RequestSerial)
	buf[12] = c.Status
}

func DecodeBufferMapWriteAsyncCallbackCmd(body []byte) (*BufferMapWriteAsyncCallbackCmd, error) {
	if len(body) < 13 {
		return nil, fmt.Errorf("wirecmd: BufferMapWriteAsyncCallback body too short: %d", len(body))
	}
	return &BufferMapWriteAsyncCallbackCmd{
		BufferID:      le.Uint32(body[0:4]),
		BufferSerial:  le.Uint32(body[4:8]),
		RequestSerial: le.Uint32(body[8:12]),
		Status:        body[12],
	}, nil
}

// DevicePopErrorScopeCallbackCmd answers a DevicePopErrorScopeCmd.
type DevicePopErrorScopeCallbackCmd struct {
	RequestSerial uint32
	Status        byte
	Message       string
}

func (c *DevicePopErrorScopeCallbackCmd) Size_() (uint64, error) {
	ss, err := stringSize(c.Message)
	if err != nil {
		return 0, err
	}
	return checkedAdd(5, ss)
}

func (c *DevicePopErrorScopeCallbackCmd) Serialize(buf []byte) {
	le.PutUint32(buf[0:4], c.RequestSerial)
	buf[4] = c.Status
	n := copy(buf[5:], c.Message)
	buf[5+n] = 0
}

func DecodeDevicePopErrorScopeCallbackCmd(body []byte) (*DevicePopErrorScopeCallbackCmd, error) {
	if len(body) < 5 {
		return nil, fmt.Errorf("wirecmd: DevicePopErrorScopeCallback body too short: %d", len(body))
	}
	msg, err := readCString(body[5:])
	if err != nil {
		return nil, err
	}
	return &DevicePopErrorScopeCallbackCmd{
		RequestSerial: le.Uint32(body[0:4]),
		Status:        body[4],
		Message:       msg,
	}, nil
}

// DeviceLostCallbackCmd tells the client that the device is no longer
// usable. The client fires its lost callback through the one-shot canCall
// token the same way a builder callback does, so only the first one counts.
// The server package has a sender for it, but no server command path calls
// that sender; the client also fires the lost callback locally when it
// disconnects.
type DeviceLostCallbackCmd struct {
	Message string
}

func (c *DeviceLostCallbackCmd) Size_() (uint64, error) { return stringSize(c.Message) }

func (c *DeviceLostCallbackCmd) Serialize(buf []byte) {
	n := copy(buf, c.Message)
	buf[n] = 0
}

func DecodeDeviceLostCallbackCmd(body []byte) (*DeviceLostCallbackCmd, error) {
	msg, err := readCString(body)
	if err != nil {
		return nil, err
	}
	return &DeviceLostCallbackCmd{Message: msg}, nil
}

// readCString reads a NUL-terminated string from the start of body and
// returns the string without its terminator.
func readCString(body []byte) (string, error) {
	for i, b := range body {
		if b == 0 {
			return string(body[:i]), nil
		}
	}
	return "", fmt.Errorf("wirecmd: string argument missing NUL terminator")
}

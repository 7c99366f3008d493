package wireserver

import (
	"testing"

	"github.com/behrlich/go-wire/internal/interfaces"
	"github.com/behrlich/go-wire/internal/transport"
	"github.com/behrlich/go-wire/internal/wirecmd"
	"github.com/stretchr/testify/require"
)

type capturingHandler struct {
	spans [][]byte
}

func (h *capturingHandler) HandleCommands(bytes []byte) ([]byte, bool) {
	cp := make([]byte, len(bytes))
	copy(cp, bytes)
	h.spans = append(h.spans, cp)
	return nil, true
}

func newTestServer() (*Server, *capturingHandler, *mockDriver) {
	p := transport.NewPipe()
	h := &capturingHandler{}
	p.SetHandler(h)
	d := newMockDriver()
	s := NewServer(d, p, nil)
	return s, h, d
}

func buildSpan(t *testing.T, id wirecmd.ForwardCommandID, cmd wirecmd.Command) []byte {
	t.Helper()
	bodySize, err := cmd.Size_()
	require.NoError(t, err)
	total := wirecmd.HeaderSize + bodySize
	buf := make([]byte, total)
	wirecmd.PutHeader(buf, wirecmd.Header{CommandID: uint32(id), CommandSize: uint32(total)})
	cmd.Serialize(buf[wirecmd.HeaderSize:])
	return buf
}

func decodeReturn(t *testing.T, span []byte) (wirecmd.ReturnCommandID, []byte) {
	t.Helper()
	hdr := wirecmd.GetHeader(span)
	return wirecmd.ReturnCommandID(hdr.CommandID), span[wirecmd.HeaderSize:hdr.CommandSize]
}

// recordingObserver counts ObserveCommand calls so tests can assert the
// command loop reports every dispatched command.
type recordingObserver struct {
	commands int
	fatals   int
	lastSize int
}

func (o *recordingObserver) ObserveCommand(commandSize int, latencyNs uint64, fatal bool) {
	o.commands++
	if fatal {
		o.fatals++
	}
	o.lastSize = commandSize
}

func (o *recordingObserver) ObserveBuilderResult(interfaces.BuilderStatus) {}
func (o *recordingObserver) ObserveMapRequest(interfaces.MapStatus, bool)  {}
func (o *recordingObserver) ObserveChunkedCommand(int, int)                {}

func TestHandleCommands_ReportsEveryCommandToObserver(t *testing.T) {
	p := transport.NewPipe()
	p.SetHandler(&capturingHandler{})
	obs := &recordingObserver{}
	s := NewServer(newMockDriver(), p, obs)

	span := buildSpan(t, wirecmd.CmdDeviceCreateBuffer, &wirecmd.DeviceCreateBufferCmd{SelfID: 1, ResultID: 1, Size: 16})
	_, ok := s.HandleCommands(span)
	require.True(t, ok)
	require.Equal(t, 1, obs.commands)
	require.Equal(t, 0, obs.fatals)
	require.Equal(t, len(span), obs.lastSize)
}

func TestHandleCommands_ReportsFatalDispatchToObserver(t *testing.T) {
	p := transport.NewPipe()
	obs := &recordingObserver{}
	s := NewServer(newMockDriver(), p, obs)

	// ResultID 5 skips ids 1-4: fatal at dispatch, still observed.
	span := buildSpan(t, wirecmd.CmdDeviceCreateBuffer, &wirecmd.DeviceCreateBufferCmd{SelfID: 1, ResultID: 5, Size: 16})
	_, ok := s.HandleCommands(span)
	require.False(t, ok)
	require.Equal(t, 1, obs.commands)
	require.Equal(t, 1, obs.fatals)
}

func TestHandleCommands_CreateBuffer(t *testing.T) {
	s, _, d := newTestServer()
	span := buildSpan(t, wirecmd.CmdDeviceCreateBuffer, &wirecmd.DeviceCreateBufferCmd{SelfID: 1, ResultID: 1, Size: 1024})
	rest, ok := s.HandleCommands(span)
	require.True(t, ok)
	require.Empty(t, rest)
	require.Equal(t, 1, d.ticks)

	entry, found := s.buffers.Get(1)
	require.True(t, found)
	require.True(t, entry.Valid)
}

func TestHandleCommands_CreateBuffer_DriverFailureMarksInvalid(t *testing.T) {
	s, h, d := newTestServer()
	d.failNewBuffer = true
	span := buildSpan(t, wirecmd.CmdDeviceCreateBuffer, &wirecmd.DeviceCreateBufferCmd{SelfID: 1, ResultID: 1, Size: 64})
	_, ok := s.HandleCommands(span)
	require.True(t, ok)

	entry, found := s.buffers.Get(1)
	require.True(t, found)
	require.False(t, entry.Valid)

	require.Len(t, h.spans, 1)
	id, body := decodeReturn(t, h.spans[0])
	require.Equal(t, wirecmd.RetDeviceErrorCallback, id)
	cmd, err := wirecmd.DecodeDeviceErrorCallbackCmd(body)
	require.NoError(t, err)
	require.Contains(t, cmd.Message, "buffer creation failed")
}

func TestHandleCommands_CreateBuffer_SkippedIDIsFatal(t *testing.T) {
	s, _, _ := newTestServer()
	span := buildSpan(t, wirecmd.CmdDeviceCreateBuffer, &wirecmd.DeviceCreateBufferCmd{SelfID: 1, ResultID: 5, Size: 64})
	_, ok := s.HandleCommands(span)
	require.False(t, ok)
}

func TestHandleCommands_RejectsTrailingBytes(t *testing.T) {
	s, _, _ := newTestServer()
	span := buildSpan(t, wirecmd.CmdDeviceCreateBuffer, &wirecmd.DeviceCreateBufferCmd{SelfID: 1, ResultID: 1, Size: 1})
	span = append(span, 0xFF)
	_, ok := s.HandleCommands(span)
	require.False(t, ok)
}

func TestHandleCommands_ObjectDestroy_ReleasesDriverObject(t *testing.T) {
	s, _, d := newTestServer()
	span := buildSpan(t, wirecmd.CmdDeviceCreateBuffer, &wirecmd.DeviceCreateBufferCmd{SelfID: 1, ResultID: 1, Size: 64})
	_, ok := s.HandleCommands(span)
	require.True(t, ok)

	destroy := buildSpan(t, wirecmd.CmdObjectDestroy, &wirecmd.ObjectDestroyCmd{Type: wirecmd.ObjectTypeBuffer, ID: 1})
	_, ok = s.HandleCommands(destroy)
	require.True(t, ok)
	require.True(t, d.lastBuffer.released)

	_, found := s.buffers.Get(1)
	require.False(t, found)
}

func TestHandleCommands_ObjectDestroy_UnknownIDIsFatal(t *testing.T) {
	s, _, _ := newTestServer()
	destroy := buildSpan(t, wirecmd.CmdObjectDestroy, &wirecmd.ObjectDestroyCmd{Type: wirecmd.ObjectTypeBuffer, ID: 1})
	_, ok := s.HandleCommands(destroy)
	require.False(t, ok)
}

func TestHandleCommands_ObjectDestroy_NullIDIsFatal(t *testing.T) {
	s, _, _ := newTestServer()
	destroy := buildSpan(t, wirecmd.CmdObjectDestroy, &wirecmd.ObjectDestroyCmd{Type: wirecmd.ObjectTypeBuffer, ID: 0})
	_, ok := s.HandleCommands(destroy)
	require.False(t, ok)
}

func TestHandleCommands_SetLabel_UnknownEncoderIsFatal(t *testing.T) {
	s, _, _ := newTestServer()
	span := buildSpan(t, wirecmd.CmdObjectSetLabel, &wirecmd.ObjectSetLabelCmd{Type: wirecmd.ObjectTypeCommandEncoder, ID: 1, Label: "x"})
	_, ok := s.HandleCommands(span)
	require.False(t, ok)
}

func TestHandleCommands_PushThenPopErrorScope_NoErrorReportsSuccess(t *testing.T) {
	s, h, _ := newTestServer()
	push := buildSpan(t, wirecmd.CmdDevicePushErrorScope, &wirecmd.DevicePushErrorScopeCmd{SelfID: 1})
	_, ok := s.HandleCommands(push)
	require.True(t, ok)

	pop := buildSpan(t, wirecmd.CmdDevicePopErrorScope, &wirecmd.DevicePopErrorScopeCmd{SelfID: 1, RequestSerial: 7})
	_, ok = s.HandleCommands(pop)
	require.True(t, ok)

	require.Len(t, h.spans, 1)
	id, body := decodeReturn(t, h.spans[0])
	require.Equal(t, wirecmd.RetDevicePopErrorScopeCallback, id)
	cmd, err := wirecmd.DecodeDevicePopErrorScopeCallbackCmd(body)
	require.NoError(t, err)
	require.Equal(t, uint32(7), cmd.RequestSerial)
	require.Equal(t, byte(interfaces.BuilderStatusSuccess), cmd.Status)
}

func TestHandleCommands_ErrorScopeCapturesDeviceError(t *testing.T) {
	s, h, d := newTestServer()
	d.failNewBuffer = true

	push := buildSpan(t, wirecmd.CmdDevicePushErrorScope, &wirecmd.DevicePushErrorScopeCmd{SelfID: 1})
	_, ok := s.HandleCommands(push)
	require.True(t, ok)

	create := buildSpan(t, wirecmd.CmdDeviceCreateBuffer, &wirecmd.DeviceCreateBufferCmd{SelfID: 1, ResultID: 1, Size: 1})
	_, ok = s.HandleCommands(create)
	require.True(t, ok)
	require.Empty(t, h.spans) // routed into the scope, not the device error callback

	pop := buildSpan(t, wirecmd.CmdDevicePopErrorScope, &wirecmd.DevicePopErrorScopeCmd{SelfID: 1, RequestSerial: 0})
	_, ok = s.HandleCommands(pop)
	require.True(t, ok)

	require.Len(t, h.spans, 1)
	id, body := decodeReturn(t, h.spans[0])
	require.Equal(t, wirecmd.RetDevicePopErrorScopeCallback, id)
	cmd, err := wirecmd.DecodeDevicePopErrorScopeCallbackCmd(body)
	require.NoError(t, err)
	require.Equal(t, byte(interfaces.BuilderStatusError), cmd.Status)
}

func TestHandleCommands_PopErrorScopeWithNoneOnStackReportsUnknown(t *testing.T) {
	s, h, _ := newTestServer()
	pop := buildSpan(t, wirecmd.CmdDevicePopErrorScope, &wirecmd.DevicePopErrorScopeCmd{SelfID: 1, RequestSerial: 3})
	_, ok := s.HandleCommands(pop)
	require.True(t, ok)

	require.Len(t, h.spans, 1)
	_, body := decodeReturn(t, h.spans[0])
	cmd, err := wirecmd.DecodeDevicePopErrorScopeCallbackCmd(body)
	require.NoError(t, err)
	require.Equal(t, byte(interfaces.BuilderStatusUnknown), cmd.Status)
}

package wireserver

import (
	"testing"

	"github.com/behrlich/go-wire/internal/interfaces"
	"github.com/behrlich/go-wire/internal/wirecmd"
	"github.com/stretchr/testify/require"
)

func createTestBuilder(t *testing.T, s *Server, id uint32) {
	t.Helper()
	span := buildSpan(t, wirecmd.CmdDeviceCreateCommandEncoderBuilder, &wirecmd.DeviceCreateCommandEncoderBuilderCmd{SelfID: 1, ResultID: id})
	_, ok := s.HandleCommands(span)
	require.True(t, ok)
}

func TestGetResult_Success(t *testing.T) {
	s, h, d := newTestServer()
	createTestBuilder(t, s, 1)
	h.spans = nil

	span := buildSpan(t, wirecmd.CmdCommandEncoderBuilderGetResult, &wirecmd.CommandEncoderBuilderGetResultCmd{SelfID: 1, ResultID: 1})
	_, ok := s.HandleCommands(span)
	require.True(t, ok)

	require.Len(t, h.spans, 1)
	id, body := decodeReturn(t, h.spans[0])
	require.Equal(t, wirecmd.RetBuilderErrorCallback, id)
	cmd, err := wirecmd.DecodeBuilderErrorCallbackCmd(body)
	require.NoError(t, err)
	require.Equal(t, byte(interfaces.BuilderStatusSuccess), cmd.Status)
	require.Equal(t, uint32(1), cmd.BuiltObjectID)

	encEntry, found := s.encoders.Get(1)
	require.True(t, found)
	require.True(t, encEntry.Valid)
	require.NotNil(t, d.lastEncoder)

	builderEntry, _ := s.builders.Get(1)
	require.Equal(t, uint32(1), builderEntry.Object.builtObjectID)
}

func TestGetResult_DriverFinishFailurePoisonsResult(t *testing.T) {
	s, h, d := newTestServer()
	d.finishOK = false
	d.finishErrMsg = "validation failed"
	createTestBuilder(t, s, 1)
	h.spans = nil

	span := buildSpan(t, wirecmd.CmdCommandEncoderBuilderGetResult, &wirecmd.CommandEncoderBuilderGetResultCmd{SelfID: 1, ResultID: 1})
	_, ok := s.HandleCommands(span)
	require.True(t, ok)

	_, body := decodeReturn(t, h.spans[0])
	cmd, err := wirecmd.DecodeBuilderErrorCallbackCmd(body)
	require.NoError(t, err)
	require.Equal(t, byte(interfaces.BuilderStatusError), cmd.Status)
	require.Equal(t, "validation failed", cmd.Message)

	encEntry, _ := s.encoders.Get(1)
	require.False(t, encEntry.Valid)
}

func TestGetResult_DriverNewCommandEncoderErrorPoisonsResult(t *testing.T) {
	s, h, d := newTestServer()
	d.failNewEncoder = true
	createTestBuilder(t, s, 1)
	h.spans = nil

	span := buildSpan(t, wirecmd.CmdCommandEncoderBuilderGetResult, &wirecmd.CommandEncoderBuilderGetResultCmd{SelfID: 1, ResultID: 1})
	_, ok := s.HandleCommands(span)
	require.True(t, ok)

	_, body := decodeReturn(t, h.spans[0])
	cmd, err := wirecmd.DecodeBuilderErrorCallbackCmd(body)
	require.NoError(t, err)
	require.Equal(t, byte(interfaces.BuilderStatusError), cmd.Status)

	encEntry, _ := s.encoders.Get(1)
	require.False(t, encEntry.Valid)
}

func TestGetResult_UnknownBuilderIsFatal(t *testing.T) {
	s, _, _ := newTestServer()
	span := buildSpan(t, wirecmd.CmdCommandEncoderBuilderGetResult, &wirecmd.CommandEncoderBuilderGetResultCmd{SelfID: 1, ResultID: 1})
	_, ok := s.HandleCommands(span)
	require.False(t, ok)
}

func TestSetLabel_OnValidEncoderCallsDriver(t *testing.T) {
	s, _, d := newTestServer()
	createTestBuilder(t, s, 1)
	getResult := buildSpan(t, wirecmd.CmdCommandEncoderBuilderGetResult, &wirecmd.CommandEncoderBuilderGetResultCmd{SelfID: 1, ResultID: 1})
	_, ok := s.HandleCommands(getResult)
	require.True(t, ok)

	label := buildSpan(t, wirecmd.CmdObjectSetLabel, &wirecmd.ObjectSetLabelCmd{Type: wirecmd.ObjectTypeCommandEncoder, ID: 1, Label: "my-encoder"})
	_, ok = s.HandleCommands(label)
	require.True(t, ok)
	require.Equal(t, "my-encoder", d.lastEncoder.label)
}

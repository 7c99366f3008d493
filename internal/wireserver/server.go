package wireserver

import (
	"fmt"
	"time"

	"github.com/behrlich/go-wire/internal/bufpool"
	"github.com/behrlich/go-wire/internal/chunked"
	"github.com/behrlich/go-wire/internal/interfaces"
	"github.com/behrlich/go-wire/internal/transport"
	"github.com/behrlich/go-wire/internal/wirecmd"
)

// Server is the server half of the wire protocol. Owned by
// a single goroutine; not safe for concurrent use.
type Server struct {
	driver   interfaces.Driver
	t        transport.Transport
	sender   *chunked.Sender
	reasm    *chunked.Reassembler
	observer interfaces.Observer

	buffers  *KnownObjects[serverBuffer]
	builders *KnownObjects[serverBuilder]
	encoders *KnownObjects[serverEncoder]

	errorScopes []errorScope
}

// NewServer returns a Server dispatching decoded commands into driver and
// replying on t. observer may be nil.
func NewServer(driver interfaces.Driver, t transport.Transport, observer interfaces.Observer) *Server {
	return &Server{
		driver:   driver,
		t:        t,
		sender:   chunked.NewSender(),
		reasm:    chunked.NewReassembler(),
		observer: observer,
		buffers:  NewKnownObjects[serverBuffer](&serverBuffer{}),
		builders: NewKnownObjects[serverBuilder](&serverBuilder{}),
		encoders: NewKnownObjects[serverEncoder](&serverEncoder{}),
	}
}

// HandleCommands implements transport.CommandHandler for the forward
// (client -> server) channel. driver.Tick runs before each command is
// decoded, including the first.
func (s *Server) HandleCommands(bytes []byte) ([]byte, bool) {
	for len(bytes) > 0 {
		s.driver.Tick()

		if len(bytes) < wirecmd.HeaderSize {
			return bytes, false
		}
		hdr := wirecmd.GetHeader(bytes)
		if hdr.CommandSize < wirecmd.HeaderSize || uint64(hdr.CommandSize) > uint64(len(bytes)) {
			return bytes, false
		}
		body := bytes[wirecmd.HeaderSize:hdr.CommandSize]
		start := time.Now()
		ok := s.dispatch(wirecmd.ForwardCommandID(hdr.CommandID), body)
		if s.observer != nil {
			s.observer.ObserveCommand(int(hdr.CommandSize), uint64(time.Since(start).Nanoseconds()), !ok)
		}
		if !ok {
			return nil, false
		}
		bytes = bytes[hdr.CommandSize:]
	}
	return bytes, true
}

func (s *Server) dispatch(id wirecmd.ForwardCommandID, body []byte) bool {
	switch id {
	case wirecmd.CmdChunkedCommand:
		return s.dispatchChunked(body)
	case wirecmd.CmdDeviceCreateBuffer:
		cmd, err := wirecmd.DecodeDeviceCreateBufferCmd(body)
		if err != nil {
			return false
		}
		return s.handleCreateBuffer(cmd)
	case wirecmd.CmdDeviceCreateCommandEncoderBuilder:
		cmd, err := wirecmd.DecodeDeviceCreateCommandEncoderBuilderCmd(body)
		if err != nil {
			return false
		}
		return s.handleCreateBuilder(cmd)
	case wirecmd.CmdDevicePushErrorScope:
		_, err := wirecmd.DecodeDevicePushErrorScopeCmd(body)
		if err != nil {
			return false
		}
		s.errorScopes = append(s.errorScopes, errorScope{})
		return true
	case wirecmd.CmdDevicePopErrorScope:
		cmd, err := wirecmd.DecodeDevicePopErrorScopeCmd(body)
		if err != nil {
			return false
		}
		return s.handlePopErrorScope(cmd)
	case wirecmd.CmdObjectSetLabel:
		cmd, err := wirecmd.DecodeObjectSetLabelCmd(body)
		if err != nil {
			return false
		}
		return s.handleSetLabel(cmd)
	case wirecmd.CmdCommandEncoderBuilderGetResult:
		cmd, err := wirecmd.DecodeCommandEncoderBuilderGetResultCmd(body)
		if err != nil {
			return false
		}
		return s.handleBuilderGetResult(cmd)
	case wirecmd.CmdBufferMapAsync:
		cmd, err := wirecmd.DecodeBufferMapAsyncCmd(body)
		if err != nil {
			return false
		}
		return s.handleMapAsync(cmd)
	case wirecmd.CmdBufferUnmap:
		cmd, err := wirecmd.DecodeBufferUnmapCmd(body)
		if err != nil {
			return false
		}
		return s.handleUnmap(cmd)
	case wirecmd.CmdBufferUpdateMappedData:
		cmd, err := wirecmd.DecodeBufferUpdateMappedDataCmd(body)
		if err != nil {
			return false
		}
		return s.handleUpdateMappedData(cmd)
	case wirecmd.CmdObjectDestroy:
		cmd, err := wirecmd.DecodeObjectDestroyCmd(body)
		if err != nil {
			return false
		}
		return s.handleDestroy(cmd)
	default:
		return false
	}
}

func (s *Server) dispatchChunked(body []byte) bool {
	frame, err := wirecmd.DecodeChunkedCommandCmd(body)
	if err != nil {
		return false
	}
	full, done, err := s.reasm.Feed(frame)
	if err != nil {
		return false
	}
	if !done {
		return true
	}
	defer bufpool.Put(full)
	hdr := wirecmd.GetHeader(full)
	if hdr.CommandSize < wirecmd.HeaderSize || uint64(hdr.CommandSize) > uint64(len(full)) {
		return false
	}
	return s.dispatch(wirecmd.ForwardCommandID(hdr.CommandID), full[wirecmd.HeaderSize:hdr.CommandSize])
}

func (s *Server) handleCreateBuffer(cmd *wirecmd.DeviceCreateBufferCmd) bool {
	entry, ok := s.buffers.Allocate(cmd.ResultID, func() *serverBuffer { return &serverBuffer{} })
	if !ok {
		return false
	}
	driverBuf, err := s.driver.NewBuffer(cmd.Size)
	if err != nil {
		entry.Valid = false
		return s.reportDeviceError(fmt.Sprintf("buffer creation failed: %v", err))
	}
	entry.Object.driver = driverBuf
	entry.Valid = true
	return true
}

func (s *Server) handleCreateBuilder(cmd *wirecmd.DeviceCreateCommandEncoderBuilderCmd) bool {
	entry, ok := s.builders.Allocate(cmd.ResultID, func() *serverBuilder { return &serverBuilder{} })
	if !ok {
		return false
	}
	// Builder creation itself has no failure mode; only GetResult can
	// poison the eventual result.
	entry.Valid = true
	return true
}

func (s *Server) handleSetLabel(cmd *wirecmd.ObjectSetLabelCmd) bool {
	switch cmd.Type {
	case wirecmd.ObjectTypeDevice:
		return true
	case wirecmd.ObjectTypeBuffer:
		_, _, fatal := s.resolveBuffer(cmd.ID)
		if fatal {
			return false
		}
		return true
	case wirecmd.ObjectTypeCommandEncoderBuilder:
		_, ok := s.builders.Get(cmd.ID)
		return ok
	case wirecmd.ObjectTypeCommandEncoder:
		entry, ok := s.encoders.Get(cmd.ID)
		if !ok {
			return false
		}
		if entry.Valid {
			entry.Object.driver.SetLabel(cmd.Label)
		}
		return true
	default:
		return false
	}
}

func (s *Server) handleDestroy(cmd *wirecmd.ObjectDestroyCmd) bool {
	if cmd.ID == 0 {
		return false
	}
	switch cmd.Type {
	case wirecmd.ObjectTypeBuffer:
		entry, ok := s.buffers.Get(cmd.ID)
		if !ok {
			return false
		}
		if entry.Valid {
			entry.Object.driver.Release()
		}
		return s.buffers.Free(cmd.ID)
	case wirecmd.ObjectTypeCommandEncoderBuilder:
		_, ok := s.builders.Get(cmd.ID)
		if !ok {
			return false
		}
		return s.builders.Free(cmd.ID)
	case wirecmd.ObjectTypeCommandEncoder:
		entry, ok := s.encoders.Get(cmd.ID)
		if !ok {
			return false
		}
		if entry.Valid {
			entry.Object.driver.Release()
		}
		return s.encoders.Free(cmd.ID)
	default:
		return false
	}
}

// resolveBuffer applies the three-way object-argument resolution rule:
// fatal when the id has never existed or its slot is currently free,
// poisoned when the slot exists but was marked invalid, otherwise live.
func (s *Server) resolveBuffer(id uint32) (entry *Entry[serverBuffer], poisoned, fatal bool) {
	e, ok := s.buffers.Get(id)
	if !ok {
		return nil, false, true
	}
	if !e.Valid {
		return e, true, false
	}
	return e, false, false
}

func (s *Server) handlePopErrorScope(cmd *wirecmd.DevicePopErrorScopeCmd) bool {
	if len(s.errorScopes) == 0 {
		return s.sendPopErrorScopeCallback(cmd.RequestSerial, interfaces.BuilderStatusUnknown, "") == nil
	}
	top := s.errorScopes[len(s.errorScopes)-1]
	s.errorScopes = s.errorScopes[:len(s.errorScopes)-1]
	status := interfaces.BuilderStatusSuccess
	if top.hasError {
		status = interfaces.BuilderStatusError
	}
	return s.sendPopErrorScopeCallback(cmd.RequestSerial, status, top.message) == nil
}

// reportDeviceError routes a device-level error into the active error
// scope, if any, instead of the standalone device error callback.
func (s *Server) reportDeviceError(msg string) bool {
	if len(s.errorScopes) > 0 {
		top := &s.errorScopes[len(s.errorScopes)-1]
		top.hasError = true
		top.message = msg
		return true
	}
	return s.sendDeviceErrorCallback(msg) == nil
}

package wireserver

import (
	"fmt"

	"github.com/behrlich/go-wire/internal/bufpool"
	"github.com/behrlich/go-wire/internal/interfaces"
	"github.com/behrlich/go-wire/internal/wirecmd"
)

// chunkedFrameOverhead mirrors wireclient's constant: the ChunkedCommandCmd
// wire overhead on top of the fixed command header.
const chunkedFrameOverhead = 16

func (s *Server) sendDeviceErrorCallback(msg string) error {
	return s.send(wirecmd.RetDeviceErrorCallback, &wirecmd.DeviceErrorCallbackCmd{Message: msg})
}

func (s *Server) sendDeviceLostCallback(msg string) error {
	return s.send(wirecmd.RetDeviceLostCallback, &wirecmd.DeviceLostCallbackCmd{Message: msg})
}

func (s *Server) sendBuilderResult(builderType wirecmd.ObjectType, builtObjectID, builtObjectSerial uint32, status interfaces.BuilderStatus, msg string) error {
	return s.send(wirecmd.RetBuilderErrorCallback, &wirecmd.BuilderErrorCallbackCmd{
		BuilderType:       builderType,
		BuiltObjectID:     builtObjectID,
		BuiltObjectSerial: builtObjectSerial,
		Status:            byte(status),
		Message:           msg,
	})
}

func (s *Server) sendMapReadCallback(bufferID, bufferSerial, requestSerial uint32, status interfaces.MapStatus, data []byte) error {
	return s.send(wirecmd.RetBufferMapReadAsyncCallback, &wirecmd.BufferMapReadAsyncCallbackCmd{
		BufferID: bufferID, BufferSerial: bufferSerial, RequestSerial: requestSerial,
		Status: byte(status), Data: data,
	})
}

func (s *Server) sendMapWriteCallback(bufferID, bufferSerial, requestSerial uint32, status interfaces.MapStatus) error {
	return s.send(wirecmd.RetBufferMapWriteAsyncCallback, &wirecmd.BufferMapWriteAsyncCallbackCmd{
		BufferID: bufferID, BufferSerial: bufferSerial, RequestSerial: requestSerial,
		Status: byte(status),
	})
}

func (s *Server) sendPopErrorScopeCallback(requestSerial uint32, status interfaces.BuilderStatus, msg string) error {
	return s.send(wirecmd.RetDevicePopErrorScopeCallback, &wirecmd.DevicePopErrorScopeCallbackCmd{
		RequestSerial: requestSerial, Status: byte(status), Message: msg,
	})
}

// send serializes cmd onto the return channel, transparently switching to
// the chunked framer when the command is too large for one transport
// allocation, mirroring wireclient.Client.send.
func (s *Server) send(id wirecmd.ReturnCommandID, cmd wirecmd.Command) error {
	bodySize, err := cmd.Size_()
	if err != nil {
		s.t.OnSerializeError()
		return err
	}
	total := wirecmd.HeaderSize + bodySize
	if int(total) <= s.t.MaxAllocationSize() {
		return s.sendSpan(uint32(id), cmd, bodySize)
	}
	return s.sendChunked(uint32(id), cmd, bodySize)
}

func (s *Server) sendSpan(id uint32, cmd wirecmd.Command, bodySize uint64) error {
	total := wirecmd.HeaderSize + bodySize
	buf, ok := s.t.GetCmdSpace(int(total))
	if !ok {
		return fmt.Errorf("wireserver: transport rejected %d-byte command", total)
	}
	wirecmd.PutHeader(buf, wirecmd.Header{CommandID: id, CommandSize: uint32(total)})
	cmd.Serialize(buf[wirecmd.HeaderSize:])
	if err := s.t.Flush(); err != nil {
		s.t.OnSerializeError()
		return err
	}
	return nil
}

func (s *Server) sendChunked(id uint32, cmd wirecmd.Command, bodySize uint64) error {
	total := wirecmd.HeaderSize + bodySize
	serialized := bufpool.Get(int(total))
	defer bufpool.Put(serialized)
	wirecmd.PutHeader(serialized, wirecmd.Header{CommandID: id, CommandSize: uint32(total)})
	cmd.Serialize(serialized[wirecmd.HeaderSize:])

	chunkSize := s.t.MaxAllocationSize() - wirecmd.HeaderSize - chunkedFrameOverhead
	frames := s.sender.Split(serialized, chunkSize)
	if s.observer != nil {
		s.observer.ObserveChunkedCommand(int(total), len(frames))
	}
	for _, frame := range frames {
		frameSize, err := frame.Size_()
		if err != nil {
			return err
		}
		if err := s.sendSpan(uint32(wirecmd.RetChunkedCommand), &frame, frameSize); err != nil {
			return err
		}
	}
	return nil
}

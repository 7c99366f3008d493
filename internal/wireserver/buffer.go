package wireserver

import (
	"github.com/behrlich/go-wire/internal/interfaces"
	"github.com/behrlich/go-wire/internal/wirecmd"
)

// handleMapAsync resolves the buffer, synthesizes an immediate error
// reply for a poisoned buffer, and
// otherwise post the request to the driver with a callback that replies on
// the wire whenever the driver completes it (synchronously or from a later
// Tick).
func (s *Server) handleMapAsync(cmd *wirecmd.BufferMapAsyncCmd) bool {
	entry, poisoned, fatal := s.resolveBuffer(cmd.BufferID)
	if fatal {
		return false
	}
	if poisoned {
		return s.sendMapErrorImmediately(cmd, entry.Serial)
	}

	buf := entry.Object
	bufferID := cmd.BufferID
	bufferSerial := entry.Serial
	requestSerial := cmd.RequestSerial

	if cmd.Mode == wirecmd.MapModeRead {
		buf.driver.MapReadAsync(uint64(cmd.Offset), uint64(cmd.Size), func(status interfaces.MapStatus, data []byte) {
			if status == interfaces.MapStatusSuccess {
				buf.mappedData = data
			}
			s.sendMapReadCallback(bufferID, bufferSerial, requestSerial, status, data)
			if s.observer != nil {
				s.observer.ObserveMapRequest(status, false)
			}
		})
	} else {
		buf.driver.MapWriteAsync(uint64(cmd.Offset), uint64(cmd.Size), func(status interfaces.MapStatus, data []byte) {
			if status == interfaces.MapStatusSuccess {
				buf.mappedData = data
			}
			s.sendMapWriteCallback(bufferID, bufferSerial, requestSerial, status)
			if s.observer != nil {
				s.observer.ObserveMapRequest(status, true)
			}
		})
	}
	return true
}

func (s *Server) sendMapErrorImmediately(cmd *wirecmd.BufferMapAsyncCmd, bufferSerial uint32) bool {
	if cmd.Mode == wirecmd.MapModeRead {
		return s.sendMapReadCallback(cmd.BufferID, bufferSerial, cmd.RequestSerial, interfaces.MapStatusError, nil) == nil
	}
	return s.sendMapWriteCallback(cmd.BufferID, bufferSerial, cmd.RequestSerial, interfaces.MapStatusError) == nil
}

// handleUnmap clears the server-side mapped-data pointer before invoking the
// driver's Unmap, so a BufferUpdateMappedData racing against the unmap on
// the wire can never be mistaken for landing on live mapped memory.
func (s *Server) handleUnmap(cmd *wirecmd.BufferUnmapCmd) bool {
	entry, poisoned, fatal := s.resolveBuffer(cmd.BufferID)
	if fatal {
		return false
	}
	if poisoned {
		return true
	}
	entry.Object.mappedData = nil
	entry.Object.driver.Unmap()
	return true
}

// handleUpdateMappedData rejects (fatal) unless the buffer is valid,
// currently mapped, and the payload is exactly the size of the mapped
// region.
func (s *Server) handleUpdateMappedData(cmd *wirecmd.BufferUpdateMappedDataCmd) bool {
	entry, poisoned, fatal := s.resolveBuffer(cmd.BufferID)
	if fatal || poisoned {
		return false
	}
	buf := entry.Object
	if buf.mappedData == nil || cmd.Offset != 0 || uint64(len(cmd.Data)) != uint64(len(buf.mappedData)) {
		return false
	}
	copy(buf.mappedData[cmd.Offset:], cmd.Data)
	return true
}

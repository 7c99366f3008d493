package wireclient

import (
	"github.com/behrlich/go-wire/internal/bufpool"
	"github.com/behrlich/go-wire/internal/interfaces"
	"github.com/behrlich/go-wire/internal/memtransfer"
	"github.com/behrlich/go-wire/internal/wirecmd"
)

// HandleCommands implements transport.CommandHandler for the reverse
// (server -> client) channel:
// device errors, per-builder-type error callbacks, and buffer
// map-read/map-write completions.
func (c *Client) HandleCommands(bytes []byte) ([]byte, bool) {
	for len(bytes) > 0 {
		if len(bytes) < wirecmd.HeaderSize {
			return bytes, false
		}
		hdr := wirecmd.GetHeader(bytes)
		if hdr.CommandSize < wirecmd.HeaderSize || uint64(hdr.CommandSize) > uint64(len(bytes)) {
			return bytes, false
		}
		body := bytes[wirecmd.HeaderSize:hdr.CommandSize]
		if !c.dispatchReturn(wirecmd.ReturnCommandID(hdr.CommandID), body) {
			return nil, false
		}
		bytes = bytes[hdr.CommandSize:]
	}
	return bytes, true
}

func (c *Client) dispatchReturn(id wirecmd.ReturnCommandID, body []byte) bool {
	switch id {
	case wirecmd.RetChunkedCommand:
		return c.dispatchChunked(body)
	case wirecmd.RetDeviceErrorCallback:
		cmd, err := wirecmd.DecodeDeviceErrorCallbackCmd(body)
		if err != nil {
			return false
		}
		if c.onDeviceError != nil {
			c.onDeviceError(cmd.Message)
		}
		return true
	case wirecmd.RetBuilderErrorCallback:
		cmd, err := wirecmd.DecodeBuilderErrorCallbackCmd(body)
		if err != nil {
			return false
		}
		c.handleBuilderErrorCallback(cmd)
		return true
	case wirecmd.RetBufferMapReadAsyncCallback:
		cmd, err := wirecmd.DecodeBufferMapReadAsyncCallbackCmd(body)
		if err != nil {
			return false
		}
		return c.handleMapReadCallback(cmd)
	case wirecmd.RetBufferMapWriteAsyncCallback:
		cmd, err := wirecmd.DecodeBufferMapWriteAsyncCallbackCmd(body)
		if err != nil {
			return false
		}
		return c.handleMapWriteCallback(cmd)
	case wirecmd.RetDevicePopErrorScopeCallback:
		cmd, err := wirecmd.DecodeDevicePopErrorScopeCallbackCmd(body)
		if err != nil {
			return false
		}
		c.handlePopErrorScopeCallback(cmd)
		return true
	case wirecmd.RetDeviceLostCallback:
		cmd, err := wirecmd.DecodeDeviceLostCallbackCmd(body)
		if err != nil {
			return false
		}
		c.deviceLost.fire(interfaces.BuilderStatusError, cmd.Message)
		return true
	default:
		return false
	}
}

func (c *Client) dispatchChunked(body []byte) bool {
	frame, err := wirecmd.DecodeChunkedCommandCmd(body)
	if err != nil {
		return false
	}
	full, done, err := c.reasm.Feed(frame)
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
	return c.dispatchReturn(wirecmd.ReturnCommandID(hdr.CommandID), full[wirecmd.HeaderSize:hdr.CommandSize])
}

// handleBuilderErrorCallback looks up the built object, compares serials,
// and fires its callback at
// most once, and fall back to the device-level error handler if nothing
// builder-local consumed a real failure.
func (c *Client) handleBuilderErrorCallback(cmd *wirecmd.BuilderErrorCallbackCmd) {
	if cmd.BuilderType != wirecmd.ObjectTypeCommandEncoder {
		return
	}
	enc, ok := c.encoders.Get(cmd.BuiltObjectID)
	if !ok {
		return
	}
	serial, _ := c.encoders.SerialOf(cmd.BuiltObjectID)
	if serial != cmd.BuiltObjectSerial {
		return
	}

	status := interfaces.BuilderStatus(cmd.Status)
	enc.valid = status == interfaces.BuilderStatusSuccess
	if c.observer != nil {
		c.observer.ObserveBuilderResult(status)
	}

	wasLive := enc.callback != nil && enc.callback.canCall
	enc.callback.fire(status, cmd.Message)
	if !wasLive && status != interfaces.BuilderStatusSuccess && c.onDeviceError != nil {
		c.onDeviceError(cmd.Message)
	}
}

func (c *Client) handleMapReadCallback(cmd *wirecmd.BufferMapReadAsyncCallbackCmd) bool {
	buf, ok := c.buffers.Get(cmd.BufferID)
	if !ok {
		return true
	}
	serial, _ := c.buffers.SerialOf(cmd.BufferID)
	if serial != cmd.BufferSerial {
		return true
	}

	req, ok := buf.requests[cmd.RequestSerial]
	if !ok {
		return true
	}
	if req.isWrite {
		return false
	}
	delete(buf.requests, cmd.RequestSerial)

	status := interfaces.MapStatus(cmd.Status)
	if c.observer != nil {
		c.observer.ObserveMapRequest(status, false)
	}
	if status == interfaces.MapStatusSuccess {
		h := memtransfer.NewReadHandle(req.size)
		if len(cmd.Data) > 0 {
			if err := h.DeserializeDataUpdate(0, cmd.Data); err != nil {
				return false
			}
		}
		buf.mappedData = h.Data()
		buf.writeHandle = nil
		if req.onRead != nil {
			req.onRead(status, buf.mappedData)
		}
	} else if req.onRead != nil {
		req.onRead(status, nil)
	}
	return true
}

func (c *Client) handleMapWriteCallback(cmd *wirecmd.BufferMapWriteAsyncCallbackCmd) bool {
	buf, ok := c.buffers.Get(cmd.BufferID)
	if !ok {
		return true
	}
	serial, _ := c.buffers.SerialOf(cmd.BufferID)
	if serial != cmd.BufferSerial {
		return true
	}

	req, ok := buf.requests[cmd.RequestSerial]
	if !ok {
		return true
	}
	if !req.isWrite {
		return false
	}
	delete(buf.requests, cmd.RequestSerial)

	status := interfaces.MapStatus(cmd.Status)
	if c.observer != nil {
		c.observer.ObserveMapRequest(status, true)
	}
	if status == interfaces.MapStatusSuccess {
		h := memtransfer.NewWriteHandle(req.size)
		buf.mappedData = h.Data()
		buf.writeHandle = h
		if req.onWrite != nil {
			req.onWrite(status, buf.mappedData)
		}
	} else if req.onWrite != nil {
		req.onWrite(status, nil)
	}
	return true
}

func (c *Client) handlePopErrorScopeCallback(cmd *wirecmd.DevicePopErrorScopeCallbackCmd) {
	cb, ok := c.popErrorScopeCallbacks[cmd.RequestSerial]
	if !ok {
		return
	}
	delete(c.popErrorScopeCallbacks, cmd.RequestSerial)
	cb(interfaces.BuilderStatus(cmd.Status), cmd.Message)
}

package wireclient

import (
	"github.com/behrlich/go-wire/internal/interfaces"
	"github.com/behrlich/go-wire/internal/wirecmd"
)

// MapReadAsync requests an asynchronous read mapping of [offset, offset+size)
// of b. cb fires exactly once, from a later HandleCommands call, an unmap,
// or a release.
func (c *Client) MapReadAsync(b *Buffer, offset, size uint64, cb func(status interfaces.MapStatus, data []byte)) error {
	serial := b.nextRequestSerial
	b.nextRequestSerial++
	b.requests[serial] = &mapRequest{isWrite: false, size: size, onRead: cb}
	cmd := &wirecmd.BufferMapAsyncCmd{BufferID: b.ID, RequestSerial: serial, Offset: uint32(offset), Size: uint32(size), Mode: wirecmd.MapModeRead}
	return c.send(wirecmd.CmdBufferMapAsync, cmd)
}

// MapWriteAsync requests an asynchronous write mapping of [offset, offset+size)
// of b.
func (c *Client) MapWriteAsync(b *Buffer, offset, size uint64, cb func(status interfaces.MapStatus, data []byte)) error {
	serial := b.nextRequestSerial
	b.nextRequestSerial++
	b.requests[serial] = &mapRequest{isWrite: true, size: size, onWrite: cb}
	cmd := &wirecmd.BufferMapAsyncCmd{BufferID: b.ID, RequestSerial: serial, Offset: uint32(offset), Size: uint32(size), Mode: wirecmd.MapModeWrite}
	return c.send(wirecmd.CmdBufferMapAsync, cmd)
}

// Unmap is a "proxied" command: before any wire traffic it
// flushes a live write-mapping back to the server, frees the local mapping,
// and drains every in-flight map request with UNKNOWN so a stale server
// reply can never observe the post-unmap state.
func (c *Client) Unmap(b *Buffer) error {
	if b.writeHandle != nil {
		payload, err := b.writeHandle.SerializeDataUpdate(0, uint64(len(b.mappedData)))
		if err != nil {
			return err
		}
		if err := c.send(wirecmd.CmdBufferUpdateMappedData, &wirecmd.BufferUpdateMappedDataCmd{BufferID: b.ID, Offset: 0, Data: payload}); err != nil {
			return err
		}
	}
	b.mappedData = nil
	b.writeHandle = nil

	for serial, req := range b.requests {
		delete(b.requests, serial)
		deliver(req, interfaces.MapStatusUnknown, nil)
	}

	return c.send(wirecmd.CmdBufferUnmap, &wirecmd.BufferUnmapCmd{BufferID: b.ID})
}

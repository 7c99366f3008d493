// Package chunked implements the wire's chunked-command framing:
// splitting a command whose serialized size exceeds the transport's
// max_allocation_size into a sequence of ChunkedCommand frames at the
// sender, and reassembling those frames back into the original command
// buffer at the receiver before it reaches the normal dispatcher.
//
// This is a distinct concern from any transport-level message-boundary
// framing (see internal/transport, which may use a byte-stream framing
// library underneath): that layer only promises "you get back the bytes one
// Flush wrote, as one span." This layer exists because a single command can
// be larger than the transport is willing to hand back in one span at all.
package chunked

import (
	"fmt"

	"github.com/behrlich/go-wire/internal/bufpool"
	"github.com/behrlich/go-wire/internal/wirecmd"
)

// Sender splits oversized commands into ChunkedCommand frames. Not safe for
// concurrent use; the wire protocol is single-threaded per endpoint.
type Sender struct {
	nextID uint64
}

// NewSender returns a Sender with its stream-id counter starting at 1 (0 is
// reserved, mirroring the null object-id convention).
func NewSender() *Sender {
	return &Sender{nextID: 1}
}

// Split serializes cmd (already wire-encoded, header included) into chunks
// no larger than chunkSize and returns the ChunkedCommand frames to send, in
// order. Callers should only call Split when the command did not fit in one
// get_cmd_space call; chunkSize is normally the transport's
// max_allocation_size minus the ChunkedCommand frame's own header.
func (s *Sender) Split(serialized []byte, chunkSize int) []wirecmd.ChunkedCommandCmd {
	if chunkSize <= 0 {
		chunkSize = len(serialized)
	}
	id := s.nextID
	s.nextID++

	total := uint32(len(serialized))
	var frames []wirecmd.ChunkedCommandCmd
	for off := 0; off < len(serialized); off += chunkSize {
		end := off + chunkSize
		if end > len(serialized) {
			end = len(serialized)
		}
		chunk := make([]byte, end-off)
		copy(chunk, serialized[off:end])
		frames = append(frames, wirecmd.ChunkedCommandCmd{
			ID:        id,
			TotalSize: total,
			Chunk:     chunk,
		})
	}
	return frames
}

// partialCommand tracks in-progress reassembly of one chunked stream.
type partialCommand struct {
	bytes     []byte
	putOffset uint32
	remaining uint32
}

// Reassembler holds in-flight partial commands on the receiving side,
// keyed by stream id.
type Reassembler struct {
	partial map[uint64]*partialCommand
}

// NewReassembler returns an empty Reassembler.
func NewReassembler() *Reassembler {
	return &Reassembler{partial: make(map[uint64]*partialCommand)}
}

// Feed consumes one ChunkedCommand frame. It returns (buf, true, nil) once
// the frame completes a stream, handing back the full reassembled command
// buffer; the caller must return it to bufpool with bufpool.Put when done
// dispatching. It returns (nil, false, nil) while a stream is still
// incomplete. It returns a non-nil error on any framing violation — a
// chunk overrunning its stream's remaining bytes, a TotalSize that
// overflows — which callers must treat as fatal for the whole connection.
func (r *Reassembler) Feed(frame *wirecmd.ChunkedCommandCmd) ([]byte, bool, error) {
	pc, ok := r.partial[frame.ID]
	if !ok {
		if frame.TotalSize < wirecmd.HeaderSize || frame.TotalSize > maxReasonableTotal {
			return nil, false, fmt.Errorf("chunked: stream %d total_size %d out of range", frame.ID, frame.TotalSize)
		}
		pc = &partialCommand{
			bytes:     bufpool.Get(int(frame.TotalSize)),
			remaining: frame.TotalSize,
		}
		r.partial[frame.ID] = pc
	}

	chunkLen := uint32(len(frame.Chunk))
	if chunkLen > pc.remaining {
		delete(r.partial, frame.ID)
		bufpool.Put(pc.bytes)
		return nil, false, fmt.Errorf("chunked: stream %d chunk size %d exceeds remaining %d", frame.ID, chunkLen, pc.remaining)
	}

	copy(pc.bytes[pc.putOffset:], frame.Chunk)
	pc.putOffset += chunkLen
	pc.remaining -= chunkLen

	if pc.remaining != 0 {
		return nil, false, nil
	}
	delete(r.partial, frame.ID)
	return pc.bytes, true, nil
}

// maxReasonableTotal bounds total_size so a hostile or corrupt value cannot
// drive an unbounded allocation or overflow the host's int on 32-bit
// platforms.
const maxReasonableTotal = 1 << 30

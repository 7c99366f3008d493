package wireclient

import (
	"github.com/behrlich/go-wire/internal/interfaces"
	"github.com/behrlich/go-wire/internal/wirecmd"
)

// BuilderOnResult registers the callback that fires exactly once for b's
// eventual result: on a server-reported error, on successful completion,
// or with UNKNOWN if b is destroyed before GetResult.
// Must be called before BuilderGetResult.
func (c *Client) BuilderOnResult(b *Builder, cb func(status interfaces.BuilderStatus, msg string)) {
	b.callback = newBuilderCallback(cb)
}

// BuilderSetLabel sets b's debug label, exercising the variable-length
// string argument path independently of the builder/buffer paths.
func (c *Client) BuilderSetLabel(b *Builder, label string) error {
	return c.send(wirecmd.CmdObjectSetLabel, &wirecmd.ObjectSetLabelCmd{Type: wirecmd.ObjectTypeCommandEncoderBuilder, ID: b.ID, Label: label})
}

// BuilderGetResult finalizes b: it allocates the resulting Encoder,
// transfers b's callback token to it, and disables further firing through
// b. The transferred callback is what the server's
// eventual BuilderErrorCallback or a later ReleaseEncoder(UNKNOWN) fires.
func (c *Client) BuilderGetResult(b *Builder) (*Encoder, error) {
	id, serial, enc := c.encoders.New(func(id, serial uint32) *Encoder { return newEncoder(id, serial) })
	enc.callback = b.callback
	b.callback = nil
	b.gotResult = true

	cmd := &wirecmd.CommandEncoderBuilderGetResultCmd{SelfID: b.ID, ResultID: id, ResultSerial: serial}
	if err := c.send(wirecmd.CmdCommandEncoderBuilderGetResult, cmd); err != nil {
		return nil, err
	}
	return enc, nil
}

// EncoderSetLabel sets e's debug label.
func (c *Client) EncoderSetLabel(e *Encoder, label string) error {
	return c.send(wirecmd.CmdObjectSetLabel, &wirecmd.ObjectSetLabelCmd{Type: wirecmd.ObjectTypeCommandEncoder, ID: e.ID, Label: label})
}

// Package wire implements the core of a bidirectional command-channel
// protocol for driving an opaque graphics-style driver across a byte
// stream: client/server object identity, builder error propagation, async
// buffer mapping, and chunked command framing.
package wire

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"code.hybscloud.com/framer"
	"github.com/behrlich/go-wire/internal/interfaces"
	"github.com/behrlich/go-wire/internal/logging"
	"github.com/behrlich/go-wire/internal/transport"
	"github.com/behrlich/go-wire/internal/wireclient"
	"github.com/behrlich/go-wire/internal/wireserver"
)

// Options contains additional options shared by Connect and Serve.
type Options struct {
	// Context for cancellation (if nil, uses context.Background())
	Context context.Context

	// Logger for debug/info messages (if nil, the internal/logging default
	// logger is used)
	Logger interfaces.Logger

	// Observer for metrics collection (if nil, uses a MetricsObserver
	// backed by a fresh Metrics instance)
	Observer interfaces.Observer

	// FramerOptions is passed through to code.hybscloud.com/framer when
	// wrapping rw (see transport.NewConn).
	FramerOptions []framer.Option
}

func (o *Options) resolve() (context.Context, interfaces.Observer, *Metrics) {
	ctx := context.Background()
	if o != nil && o.Context != nil {
		ctx = o.Context
	}

	var metrics *Metrics
	observer := interfaces.Observer(NoOpObserver{})
	if o != nil && o.Observer != nil {
		observer = o.Observer
	} else {
		metrics = NewMetrics()
		observer = NewMetricsObserver(metrics)
	}
	return ctx, observer, metrics
}

// Endpoint is the client half of a connection: a Client bound to a live
// byte stream, receiving return commands on its own goroutine until the
// stream closes or the context is cancelled.
type Endpoint struct {
	*wireclient.Client

	rw      io.ReadWriter
	conn    *transport.Conn
	metrics *Metrics
	cancel  context.CancelFunc
	done    chan error
}

// Connect wraps rw in the wire protocol's framing and returns a ready Client
// bound to it. Return commands are read in a background goroutine; Close
// stops that goroutine and reports its terminal error.
func Connect(rw io.ReadWriter, opts *Options) (*Endpoint, error) {
	ctx, observer, metrics := opts.resolve()

	var framerOpts []framer.Option
	if opts != nil {
		framerOpts = opts.FramerOptions
	}
	conn := transport.NewConn(rw, framerOpts...)
	client := wireclient.NewClient(conn, observer)
	conn.SetHandler(client)

	ctx, cancel := context.WithCancel(ctx)
	ep := &Endpoint{
		Client:  client,
		rw:      rw,
		conn:    conn,
		metrics: metrics,
		cancel:  cancel,
		done:    make(chan error, 1),
	}

	logger := loggerOrDefault(opts)
	go ep.recvLoop(ctx, logger)

	return ep, nil
}

func (ep *Endpoint) recvLoop(ctx context.Context, logger interfaces.Logger) {
	for {
		select {
		case <-ctx.Done():
			ep.done <- ctx.Err()
			return
		default:
		}

		if err := ep.conn.Recv(); err != nil {
			if err == io.EOF || errors.Is(err, io.ErrClosedPipe) || errors.Is(err, net.ErrClosed) {
				ep.done <- nil
			} else {
				logger.Printf("wire: client receive loop terminated: %v", err)
				ep.done <- err
			}
			return
		}
	}
}

// Metrics returns the endpoint's built-in metrics, or nil if a custom
// Observer was supplied in Options.
func (ep *Endpoint) Metrics() *Metrics {
	return ep.metrics
}

// Close stops the receive loop (closing the underlying stream if it
// supports it, to unblock a pending read), waits for it to exit, then
// fires the device-lost callback and drains pending PopErrorScope
// callbacks with UNKNOWN, since no further return commands can resolve
// them. Returns the receive loop's terminal error (nil on a clean close).
func (ep *Endpoint) Close() error {
	ep.cancel()
	if closer, ok := ep.rw.(io.Closer); ok {
		closer.Close()
	}
	if ep.metrics != nil {
		ep.metrics.Stop()
	}
	select {
	case err := <-ep.done:
		ep.Client.Disconnect()
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	case <-time.After(5 * time.Second):
		ep.Client.Disconnect()
		return fmt.Errorf("wire: timed out waiting for receive loop to exit")
	}
}

// ServerEndpoint is the server half of a connection: a Server bound to a
// live byte stream and a driver, receiving forward commands on its own
// goroutine until the stream closes or the context is cancelled.
type ServerEndpoint struct {
	*wireserver.Server

	rw      io.ReadWriter
	conn    *transport.Conn
	metrics *Metrics
	cancel  context.CancelFunc
	done    chan error
}

// Serve wraps rw in the wire protocol's framing and starts dispatching
// forward commands into driver. Serve returns once the server is ready to
// receive; use ServerEndpoint.Close or cancel opts.Context to stop it.
func Serve(rw io.ReadWriter, driver interfaces.Driver, opts *Options) (*ServerEndpoint, error) {
	if driver == nil {
		return nil, NewError("Serve", ErrCodeInvalidParameters, "driver must not be nil")
	}

	ctx, observer, metrics := opts.resolve()

	var framerOpts []framer.Option
	if opts != nil {
		framerOpts = opts.FramerOptions
	}
	conn := transport.NewConn(rw, framerOpts...)
	server := wireserver.NewServer(driver, conn, observer)
	conn.SetHandler(server)

	ctx, cancel := context.WithCancel(ctx)
	sep := &ServerEndpoint{
		Server:  server,
		rw:      rw,
		conn:    conn,
		metrics: metrics,
		cancel:  cancel,
		done:    make(chan error, 1),
	}

	logger := loggerOrDefault(opts)
	go sep.recvLoop(ctx, logger)

	return sep, nil
}

func (sep *ServerEndpoint) recvLoop(ctx context.Context, logger interfaces.Logger) {
	for {
		select {
		case <-ctx.Done():
			sep.done <- ctx.Err()
			return
		default:
		}

		if err := sep.conn.Recv(); err != nil {
			if err == io.EOF || errors.Is(err, io.ErrClosedPipe) || errors.Is(err, net.ErrClosed) {
				sep.done <- nil
			} else {
				logger.Printf("wire: server receive loop terminated: %v", err)
				sep.done <- err
			}
			return
		}
	}
}

// Metrics returns the endpoint's built-in metrics, or nil if a custom
// Observer was supplied in Options.
func (sep *ServerEndpoint) Metrics() *Metrics {
	return sep.metrics
}

// Close stops the receive loop (closing the underlying stream if it
// supports it, to unblock a pending read) and waits for it to exit,
// returning its terminal error (nil on a clean peer-initiated close).
func (sep *ServerEndpoint) Close() error {
	sep.cancel()
	if closer, ok := sep.rw.(io.Closer); ok {
		closer.Close()
	}
	if sep.metrics != nil {
		sep.metrics.Stop()
	}
	select {
	case err := <-sep.done:
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	case <-time.After(5 * time.Second):
		return fmt.Errorf("wire: timed out waiting for receive loop to exit")
	}
}

func loggerOrDefault(opts *Options) interfaces.Logger {
	if opts != nil && opts.Logger != nil {
		return opts.Logger
	}
	return loggingAdapter{logging.Default()}
}

// loggingAdapter satisfies interfaces.Logger with the package-level logger
// in internal/logging, which exposes Debug/Info/Warn/Error rather than the
// Printf/Debugf pair the wire boundary expects.
type loggingAdapter struct {
	l *logging.Logger
}

func (a loggingAdapter) Printf(format string, args ...interface{}) {
	a.l.Infof(format, args...)
}

func (a loggingAdapter) Debugf(format string, args ...interface{}) {
	a.l.Debugf(format, args...)
}

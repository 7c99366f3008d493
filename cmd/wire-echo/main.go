// Command wire-echo is a minimal demonstration of the wire protocol: a
// server drives an in-memory mem.Driver, a client connects over a TCP loop
// back, creates a buffer, writes into it through the map/unmap protocol,
// and reads the result back.
package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"time"

	wire "github.com/behrlich/go-wire"
	mem "github.com/behrlich/go-wire/examples/wire-mem"
	"github.com/behrlich/go-wire/internal/interfaces"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("wire-echo: %v", err)
	}
}

func run() error {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	defer ln.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	serverReady := make(chan error, 1)
	go serve(ctx, ln, serverReady)

	conn, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	if err := <-serverReady; err != nil {
		return fmt.Errorf("accept: %w", err)
	}

	client, err := wire.Connect(conn, nil)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer client.Close()

	buf, err := client.CreateBuffer(64)
	if err != nil {
		return fmt.Errorf("create buffer: %w", err)
	}

	payload := []byte("hello from the wire protocol")

	writeDone := make(chan error, 1)
	if err := client.MapWriteAsync(buf, 0, uint64(len(payload)), func(status interfaces.MapStatus, data []byte) {
		if status != interfaces.MapStatusSuccess {
			writeDone <- fmt.Errorf("map write failed: status=%v", status)
			return
		}
		copy(data, payload)
		writeDone <- nil
	}); err != nil {
		return fmt.Errorf("map write async: %w", err)
	}
	if err := <-writeDone; err != nil {
		return err
	}
	if err := client.Unmap(buf); err != nil {
		return fmt.Errorf("unmap: %w", err)
	}

	readDone := make(chan error, 1)
	if err := client.MapReadAsync(buf, 0, uint64(len(payload)), func(status interfaces.MapStatus, data []byte) {
		if status != interfaces.MapStatusSuccess {
			readDone <- fmt.Errorf("map read failed: status=%v", status)
			return
		}
		fmt.Printf("read back: %q\n", string(data))
		readDone <- nil
	}); err != nil {
		return fmt.Errorf("map read async: %w", err)
	}
	if err := <-readDone; err != nil {
		return err
	}
	if err := client.Unmap(buf); err != nil {
		return fmt.Errorf("unmap: %w", err)
	}

	builder, err := client.CreateCommandEncoderBuilder()
	if err != nil {
		return fmt.Errorf("create builder: %w", err)
	}
	builderDone := make(chan struct{})
	client.BuilderOnResult(builder, func(status interfaces.BuilderStatus, msg string) {
		fmt.Printf("builder result: status=%v msg=%q\n", status, msg)
		close(builderDone)
	})
	if _, err := client.BuilderGetResult(builder); err != nil {
		return fmt.Errorf("builder get result: %w", err)
	}
	<-builderDone

	time.Sleep(10 * time.Millisecond)
	return nil
}

func serve(ctx context.Context, ln net.Listener, ready chan<- error) {
	conn, err := ln.Accept()
	if err != nil {
		ready <- err
		return
	}
	ready <- nil

	driver := mem.New()
	server, err := wire.Serve(conn, driver, &wire.Options{Context: ctx})
	if err != nil {
		log.Printf("wire-echo: serve failed: %v", err)
		return
	}
	defer server.Close()

	<-ctx.Done()
}

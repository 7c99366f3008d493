package wire

import (
	"net"
	"testing"
	"time"
)

func TestConnectAndServe_CreateBuffer(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()

	driver := NewMockDriver()
	server, err := Serve(serverConn, driver, nil)
	if err != nil {
		t.Fatalf("Serve failed: %v", err)
	}
	defer server.Close()

	client, err := Connect(clientConn, nil)
	if err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer client.Close()

	buf, err := client.CreateBuffer(1024)
	if err != nil {
		t.Fatalf("CreateBuffer failed: %v", err)
	}
	if buf == nil {
		t.Fatal("expected a non-nil buffer handle")
	}

	// Give the server goroutine time to process the command and the
	// client goroutine time to receive any return traffic.
	time.Sleep(50 * time.Millisecond)

	if driver.LastBuffer() == nil {
		t.Fatal("expected the driver to have created a backing buffer")
	}
}

func TestServe_RejectsNilDriver(t *testing.T) {
	_, serverConn := net.Pipe()
	defer serverConn.Close()

	_, err := Serve(serverConn, nil, nil)
	if err == nil {
		t.Fatal("expected Serve to reject a nil driver")
	}
}

func TestEndpoint_MetricsDefaultsToBuiltin(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()

	driver := NewMockDriver()
	server, err := Serve(serverConn, driver, nil)
	if err != nil {
		t.Fatalf("Serve failed: %v", err)
	}
	defer server.Close()

	client, err := Connect(clientConn, nil)
	if err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer client.Close()

	if client.Metrics() == nil {
		t.Error("expected a built-in Metrics instance when no Observer is supplied")
	}
	if server.Metrics() == nil {
		t.Error("expected a built-in Metrics instance when no Observer is supplied")
	}
}

func TestEndpoint_CustomObserverSuppressesBuiltinMetrics(t *testing.T) {
	_, serverConn := net.Pipe()
	defer serverConn.Close()

	driver := NewMockDriver()
	server, err := Serve(serverConn, driver, &Options{Observer: NoOpObserver{}})
	if err != nil {
		t.Fatalf("Serve failed: %v", err)
	}
	defer server.Close()

	if server.Metrics() != nil {
		t.Error("expected Metrics to be nil when a custom Observer is supplied")
	}
}

func TestEndpointClose_FiresDeviceLostAndDrainsScopes(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer serverConn.Close()

	driver := NewMockDriver()
	server, err := Serve(serverConn, driver, nil)
	if err != nil {
		t.Fatalf("Serve failed: %v", err)
	}
	defer server.Close()

	client, err := Connect(clientConn, nil)
	if err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	lost := make(chan string, 1)
	client.SetDeviceLostHandler(func(msg string) { lost <- msg })

	if err := client.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	select {
	case <-lost:
	default:
		t.Fatal("expected Close to fire the device-lost callback")
	}
}

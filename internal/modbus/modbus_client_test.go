package modbus

import (
	"strings"
	"testing"
	"time"
)

func TestNewClientRejectsUnknownParity(t *testing.T) {
	config := ClientConfig{
		URL:      "rtu:///dev/ttyUSB0",
		BaudRate: 9600,
		DataBits: 8,
		Parity:   "X",
		StopBits: 1,
		Timeout:  100 * time.Millisecond,
	}

	client, err := NewClient(config)
	if err == nil {
		t.Fatal("Expected an error for parity X, got nil")
	}
	if client != nil {
		t.Error("Expected nil client on configuration error")
	}
	if !strings.Contains(err.Error(), "parity") {
		t.Errorf("Expected parity error, got: %v", err)
	}
}

func TestNewClientDefaultsToNoParity(t *testing.T) {
	config := ClientConfig{
		URL:      "rtu:///dev/ttyUSB0",
		BaudRate: 9600,
		DataBits: 8,
		StopBits: 1,
		Timeout:  100 * time.Millisecond,
	}

	client, err := NewClient(config)
	if err != nil {
		t.Fatalf("Failed to create client with empty parity: %v", err)
	}
	if client == nil {
		t.Fatal("Expected a client, got nil")
	}
}

func TestNewClientRejectsUnknownScheme(t *testing.T) {
	config := ClientConfig{
		URL:      "serial:///dev/ttyUSB0",
		BaudRate: 9600,
		DataBits: 8,
		Parity:   "N",
		StopBits: 1,
		Timeout:  100 * time.Millisecond,
	}

	if _, err := NewClient(config); err == nil {
		t.Fatal("Expected an error for unsupported URL scheme, got nil")
	}
}

func TestOpenFailsWithoutSerialPort(t *testing.T) {
	config := ClientConfig{
		URL:      "rtu:///dev/owipex-missing-port",
		BaudRate: 9600,
		DataBits: 8,
		Parity:   "N",
		StopBits: 1,
		Timeout:  100 * time.Millisecond,
	}

	client, err := NewClient(config)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	if err := client.Open(); err == nil {
		client.Close()
		t.Fatal("Expected Open to fail on a missing serial port")
	}
}

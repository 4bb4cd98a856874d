package channel

import (
	"errors"
	"fmt"
	"testing"
)

func TestParseMode(t *testing.T) {
	tests := []struct {
		input   string
		want    Mode
		wantErr bool
	}{
		{"duplex", ModeDuplex, false},
		{"", ModeDuplex, false},
		{"send_only", ModeSendOnly, false},
		{"SEND-ONLY", ModeSendOnly, false},
		{"half", ModeDuplex, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseMode(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseMode(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseMode(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestTransport_String(t *testing.T) {
	tests := []struct {
		transport Transport
		want      string
	}{
		{TransportUnix, "unix"},
		{TransportTCP, "tcp"},
		{TransportFIFO, "fifo"},
		{TransportWebSocket, "websocket"},
		{TransportUnknown, "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.transport.String(); got != tt.want {
				t.Errorf("String() = %v, want %v", got, tt.want)
			}
			if tt.transport != TransportUnknown {
				if parsed := ParseTransport(tt.want); parsed != tt.transport {
					t.Errorf("ParseTransport(%q) = %v, want %v", tt.want, parsed, tt.transport)
				}
			}
		})
	}
}

func TestErrors(t *testing.T) {
	capErr := fmt.Errorf("open: %w", &CapabilityError{Op: "read", Mode: ModeSendOnly})
	if !IsNotSupported(capErr) {
		t.Error("wrapped CapabilityError should match ErrNotSupported")
	}
	if IsUnavailable(capErr) {
		t.Error("CapabilityError should not match ErrUnavailable")
	}

	unavailable := fmt.Errorf("%w: no pipes here", ErrUnavailable)
	if !IsUnavailable(unavailable) || IsNotSupported(unavailable) {
		t.Error("ErrUnavailable misclassified")
	}

	transport := &Error{Op: "write", Err: errors.New("broken pipe")}
	if IsNotSupported(transport) || IsUnavailable(transport) {
		t.Error("transport errors are neither capability nor availability faults")
	}
	if transport.Error() != "channel write: broken pipe" {
		t.Errorf("unexpected message: %s", transport.Error())
	}
}

func TestNewOpener(t *testing.T) {
	tests := []struct {
		name     string
		endpoint Endpoint
		want     string
		wantErr  bool
	}{
		{name: "unix", endpoint: Endpoint{Transport: "unix", Address: "/tmp/ts.sock"}, want: "unix:/tmp/ts.sock"},
		{name: "tcp", endpoint: Endpoint{Transport: "tcp", Address: "127.0.0.1:7000"}, want: "tcp:127.0.0.1:7000"},
		{name: "fifo", endpoint: Endpoint{Transport: "fifo", Address: "/tmp/ts.pipe"}, want: "fifo:/tmp/ts.pipe"},
		{name: "websocket", endpoint: Endpoint{Transport: "websocket", Address: "127.0.0.1:7001"}, want: "ws://127.0.0.1:7001/stream"},
		{name: "unknown", endpoint: Endpoint{Transport: "carrier-pigeon", Address: "x"}, wantErr: true},
		{name: "empty address", endpoint: Endpoint{Transport: "unix"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opener, err := NewOpener(tt.endpoint, testLogger)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewOpener() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && opener.Describe() != tt.want {
				t.Errorf("Describe() = %v, want %v", opener.Describe(), tt.want)
			}
		})
	}
}

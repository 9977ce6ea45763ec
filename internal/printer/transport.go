package printer

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"time"

	"github.com/tarm/serial"

	"battrack/internal/config"
	"battrack/internal/faults"
)

// etx terminates a ~HQES response.
const etx = 0x03

// Transport moves raw bytes to the label printer. Send transmits without
// waiting for a reply; Exchange transmits and collects the response up to
// the terminating ETX byte.
type Transport interface {
	Send(ctx context.Context, payload []byte) error
	Exchange(ctx context.Context, request []byte) ([]byte, error)
	String() string
}

// NewTransport builds the transport selected by the printer configuration.
func NewTransport(cfg config.Printer) (Transport, error) {
	timeout := time.Duration(cfg.SocketTimeout) * time.Second
	switch cfg.Transport {
	case "tcp":
		return &TCPTransport{addr: cfg.Address, timeout: timeout}, nil
	case "serial":
		return &SerialTransport{device: cfg.SerialDevice, baud: cfg.SerialBaud, timeout: timeout}, nil
	default:
		return nil, faults.Wrap(faults.ErrValidation, "printer", "new_transport",
			fmt.Sprintf("unsupported transport %q", cfg.Transport), nil)
	}
}

// TCPTransport talks to a network printer on its raw port.
type TCPTransport struct {
	addr    string
	timeout time.Duration
}

func (t *TCPTransport) String() string { return "tcp://" + t.addr }

func (t *TCPTransport) dial(ctx context.Context) (net.Conn, error) {
	dialer := net.Dialer{Timeout: t.timeout}
	conn, err := dialer.DialContext(ctx, "tcp", t.addr)
	if err != nil {
		return nil, faults.Wrap(faults.ErrDeviceComm, "printer", "dial", "connect to "+t.addr, err)
	}
	return conn, nil
}

func (t *TCPTransport) Send(ctx context.Context, payload []byte) error {
	conn, err := t.dial(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := conn.SetWriteDeadline(time.Now().Add(t.timeout)); err != nil {
		return faults.Wrap(faults.ErrDeviceComm, "printer", "send", "set write deadline", err)
	}
	if _, err := conn.Write(payload); err != nil {
		return faults.Wrap(faults.ErrDeviceComm, "printer", "send", "write payload", err)
	}
	return nil
}

func (t *TCPTransport) Exchange(ctx context.Context, request []byte) ([]byte, error) {
	conn, err := t.dial(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	if err := conn.SetDeadline(time.Now().Add(t.timeout)); err != nil {
		return nil, faults.Wrap(faults.ErrDeviceComm, "printer", "exchange", "set deadline", err)
	}
	if _, err := conn.Write(request); err != nil {
		return nil, faults.Wrap(faults.ErrDeviceComm, "printer", "exchange", "write request", err)
	}

	var response bytes.Buffer
	buf := make([]byte, 1024)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			response.Write(buf[:n])
			if bytes.IndexByte(buf[:n], etx) >= 0 {
				break
			}
		}
		if err != nil {
			if response.Len() > 0 {
				break
			}
			return nil, faults.Wrap(faults.ErrDeviceComm, "printer", "exchange", "read response", err)
		}
	}
	return response.Bytes(), nil
}

// SerialTransport talks to a printer wired over RS-232.
type SerialTransport struct {
	device  string
	baud    int
	timeout time.Duration
}

func (s *SerialTransport) String() string { return "serial://" + s.device }

func (s *SerialTransport) open() (*serial.Port, error) {
	port, err := serial.OpenPort(&serial.Config{
		Name:        s.device,
		Baud:        s.baud,
		ReadTimeout: s.timeout,
	})
	if err != nil {
		return nil, faults.Wrap(faults.ErrDeviceComm, "printer", "open", "open "+s.device, err)
	}
	return port, nil
}

func (s *SerialTransport) Send(ctx context.Context, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return faults.Wrap(faults.ErrDeviceComm, "printer", "send", "context done", err)
	}
	port, err := s.open()
	if err != nil {
		return err
	}
	defer port.Close()

	if _, err := port.Write(payload); err != nil {
		return faults.Wrap(faults.ErrDeviceComm, "printer", "send", "write payload", err)
	}
	return nil
}

func (s *SerialTransport) Exchange(ctx context.Context, request []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, faults.Wrap(faults.ErrDeviceComm, "printer", "exchange", "context done", err)
	}
	port, err := s.open()
	if err != nil {
		return nil, err
	}
	defer port.Close()

	if _, err := port.Write(request); err != nil {
		return nil, faults.Wrap(faults.ErrDeviceComm, "printer", "exchange", "write request", err)
	}

	var response bytes.Buffer
	buf := make([]byte, 256)
	for {
		n, err := port.Read(buf)
		if n > 0 {
			response.Write(buf[:n])
			if bytes.IndexByte(buf[:n], etx) >= 0 {
				break
			}
			continue
		}
		// A zero-byte read means the read timeout elapsed.
		if response.Len() > 0 {
			break
		}
		if err != nil {
			return nil, faults.Wrap(faults.ErrDeviceComm, "printer", "exchange", "read response", err)
		}
		return nil, faults.Wrap(faults.ErrDeviceComm, "printer", "exchange", "no response before timeout", nil)
	}
	return response.Bytes(), nil
}

package transport

import (
	"bufio"
	"encoding/base64"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"go.bug.st/serial"
)

// SerialConfig configures the half-duplex serial-line transport.
type SerialConfig struct {
	Port     string
	BaudRate int
}

// SerialTransport is a line-framed, base64-encoded half-duplex channel over
// a serial radio port. Each outbound datagram is base64-encoded
// and newline-terminated; each inbound line is base64-decoded. Malformed
// lines yield no frame rather than an error.
type SerialTransport struct {
	cfg  SerialConfig
	port serial.Port

	frames chan Frame
	done   chan struct{}
	wg     sync.WaitGroup

	mu      sync.Mutex
	started bool

	logger *logrus.Entry
}

// NewSerialTransport constructs a transport for cfg without opening the
// port; call Start to acquire it.
func NewSerialTransport(cfg SerialConfig) *SerialTransport {
	return &SerialTransport{
		cfg:    cfg,
		frames: make(chan Frame, 64),
		logger: logrus.WithFields(logrus.Fields{"transport": "serial", "port": cfg.Port, "baud": cfg.BaudRate}),
	}
}

// Start opens the serial port at the configured baud rate and launches the
// background line reader.
func (t *SerialTransport) Start() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.started {
		return ErrAlreadyStarted
	}

	mode := &serial.Mode{BaudRate: t.cfg.BaudRate}
	port, err := serial.Open(t.cfg.Port, mode)
	if err != nil {
		t.logger.WithError(err).Error("failed to open serial port")
		return fmt.Errorf("transport: serial open: %w", err)
	}

	t.port = port
	t.done = make(chan struct{})
	t.started = true

	t.wg.Add(1)
	go t.readLoop()

	t.logger.Info("serial transport started")
	return nil
}

func (t *SerialTransport) readLoop() {
	defer t.wg.Done()

	reader := bufio.NewReader(t.port)
	for {
		select {
		case <-t.done:
			return
		default:
		}

		line, err := reader.ReadString('\n')
		if err != nil {
			select {
			case <-t.done:
				return
			default:
			}
			if len(line) == 0 {
				t.logger.WithError(err).Debug("serial read error")
				continue
			}
		}

		data, decodeErr := decodeLine(line)
		if decodeErr != nil {
			t.logger.WithError(decodeErr).Debug("dropping malformed serial line")
			continue
		}
		if len(data) == 0 {
			continue
		}

		select {
		case t.frames <- Frame{Data: data}:
		default:
			t.logger.Warn("serial frame buffer full, dropping frame")
		}
	}
}

func decodeLine(line string) ([]byte, error) {
	trimmed := line
	for len(trimmed) > 0 && (trimmed[len(trimmed)-1] == '\n' || trimmed[len(trimmed)-1] == '\r') {
		trimmed = trimmed[:len(trimmed)-1]
	}
	if trimmed == "" {
		return nil, nil
	}
	data, err := base64.StdEncoding.DecodeString(trimmed)
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Send base64-encodes data and writes it terminated by a single newline.
// dest is ignored: the serial link is inherently a single point-to-point
// (or shared-medium broadcast) channel with no addressing.
func (t *SerialTransport) Send(data []byte, dest string) error {
	t.mu.Lock()
	port := t.port
	t.mu.Unlock()

	if port == nil {
		return ErrNotStarted
	}

	line := base64.StdEncoding.EncodeToString(data) + "\n"
	_, err := port.Write([]byte(line))
	if err != nil {
		t.logger.WithError(err).Warn("serial send failed")
	}
	return err
}

// Recv returns the next buffered line-decoded frame without blocking.
func (t *SerialTransport) Recv() (Frame, bool) {
	select {
	case f := <-t.frames:
		return f, true
	default:
		return Frame{}, false
	}
}

// Stop is idempotent: it closes the port and waits for the reader to exit.
func (t *SerialTransport) Stop() error {
	t.mu.Lock()
	if !t.started {
		t.mu.Unlock()
		return nil
	}
	t.started = false
	close(t.done)
	port := t.port
	t.mu.Unlock()

	var err error
	if port != nil {
		err = port.Close()
	}
	t.wg.Wait()

	t.logger.Info("serial transport stopped")
	return err
}

// Name identifies this transport for diagnostics.
func (t *SerialTransport) Name() string { return "serial" }

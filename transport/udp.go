package transport

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultIPPort is the well-known port the IP-broadcast transport binds to
// when none is configured.
const DefaultIPPort = 47474

// udpRecvBuffer is the largest datagram the IP-broadcast transport accepts.
const udpRecvBuffer = 65535

// UDPConfig configures the IP-broadcast transport.
type UDPConfig struct {
	// Interface names a network interface (e.g. "eth0"). UDPTransport does
	// not read it: the socket binds on all interfaces and broadcasts go to
	// 255.255.255.255 whatever this field holds.
	Interface string
	// Port is the UDP port to bind. Zero binds an ephemeral port, which is
	// useful for tests and point-to-point links; mesh peers normally share
	// DefaultIPPort.
	Port int
}

// UDPTransport is a connectionless, broadcast-capable datagram socket. It
// reads on a background goroutine into a buffered channel so Recv is a
// cheap non-blocking poll, matching the runtime's cooperative receive loop.
type UDPTransport struct {
	cfg  UDPConfig
	conn *net.UDPConn

	broadcastAddr *net.UDPAddr

	frames chan Frame
	done   chan struct{}
	wg     sync.WaitGroup

	mu      sync.Mutex
	started bool

	logger *logrus.Entry
}

// NewUDPTransport constructs a transport for cfg without acquiring any
// resources; call Start to bind.
func NewUDPTransport(cfg UDPConfig) *UDPTransport {
	return &UDPTransport{
		cfg:    cfg,
		frames: make(chan Frame, 256),
		logger: logrus.WithFields(logrus.Fields{"transport": "udp", "port": cfg.Port}),
	}
}

// Start binds a broadcast-enabled, address-reusable UDP socket and launches
// the background reader.
func (t *UDPTransport) Start() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.started {
		return ErrAlreadyStarted
	}

	lc := net.ListenConfig{Control: controlReuseAddr}
	pc, err := lc.ListenPacket(context.Background(), "udp4", fmt.Sprintf(":%d", t.cfg.Port))
	if err != nil {
		t.logger.WithError(err).Error("failed to bind UDP socket")
		return fmt.Errorf("transport: udp listen: %w", err)
	}
	conn := pc.(*net.UDPConn)

	if err := enableBroadcast(conn); err != nil {
		t.logger.WithError(err).Warn("could not enable SO_BROADCAST, unicast still works")
	}

	t.conn = conn
	// Broadcasts target the bound port: mesh peers share one well-known
	// port, so the local bind and the broadcast destination agree.
	boundPort := conn.LocalAddr().(*net.UDPAddr).Port
	t.broadcastAddr = &net.UDPAddr{IP: net.IPv4bcast, Port: boundPort}
	t.done = make(chan struct{})
	t.started = true

	t.wg.Add(1)
	go t.readLoop()

	t.logger.Info("UDP transport started")
	return nil
}

func (t *UDPTransport) readLoop() {
	defer t.wg.Done()

	buf := make([]byte, udpRecvBuffer)
	for {
		select {
		case <-t.done:
			return
		default:
		}

		_ = t.conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
		n, addr, err := t.conn.ReadFromUDP(buf)
		if err != nil {
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				continue
			}
			select {
			case <-t.done:
				return
			default:
			}
			t.logger.WithError(err).Debug("udp read error")
			continue
		}

		data := make([]byte, n)
		copy(data, buf[:n])

		frame := Frame{Data: data, SourceHint: addr.String()}
		select {
		case t.frames <- frame:
		default:
			t.logger.Warn("udp frame buffer full, dropping frame")
		}
	}
}

// Send transmits data. dest == "" broadcasts to the link-local broadcast
// address on the bound port; a non-empty dest is resolved as a "host:port"
// unicast target, or as a host sent to the configured port.
func (t *UDPTransport) Send(data []byte, dest string) error {
	t.mu.Lock()
	conn := t.conn
	t.mu.Unlock()

	if conn == nil {
		return ErrNotStarted
	}

	target := t.broadcastAddr
	if dest != "" {
		addr, err := resolveUDPTarget(dest, t.cfg.Port)
		if err != nil {
			return fmt.Errorf("transport: resolving unicast target %q: %w", dest, err)
		}
		target = addr
	}

	_, err := conn.WriteToUDP(data, target)
	if err != nil {
		t.logger.WithError(err).WithField("dest", target.String()).Warn("udp send failed")
	}
	return err
}

func resolveUDPTarget(dest string, defaultPort int) (*net.UDPAddr, error) {
	host := dest
	port := defaultPort
	if h, p, err := net.SplitHostPort(dest); err == nil {
		host = h
		parsed, perr := strconv.Atoi(p)
		if perr != nil {
			return nil, fmt.Errorf("invalid port %q", p)
		}
		port = parsed
	}
	ip := net.ParseIP(host)
	if ip == nil {
		resolved, err := net.ResolveIPAddr("ip4", host)
		if err != nil {
			return nil, err
		}
		ip = resolved.IP
	}
	return &net.UDPAddr{IP: ip, Port: port}, nil
}

// Recv returns the next buffered frame without blocking.
func (t *UDPTransport) Recv() (Frame, bool) {
	select {
	case f := <-t.frames:
		return f, true
	default:
		return Frame{}, false
	}
}

// Stop is idempotent: it closes the socket and waits for the reader to exit.
func (t *UDPTransport) Stop() error {
	t.mu.Lock()
	if !t.started {
		t.mu.Unlock()
		return nil
	}
	t.started = false
	close(t.done)
	conn := t.conn
	t.mu.Unlock()

	var err error
	if conn != nil {
		err = conn.Close()
	}
	t.wg.Wait()

	t.logger.Info("UDP transport stopped")
	return err
}

// Name identifies this transport for diagnostics.
func (t *UDPTransport) Name() string { return "ip-broadcast" }

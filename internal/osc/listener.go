package osc

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"time"
)

const (
	// DefaultPollInterval bounds how long one receive attempt blocks, and
	// therefore how quickly the worker observes a stop request.
	DefaultPollInterval = 10 * time.Millisecond
	// DefaultErrorBackoff is the pause after an unexpected socket error.
	DefaultErrorBackoff = 100 * time.Millisecond

	readBufferSize = 1024
	joinTimeout    = 500 * time.Millisecond
)

// Listener owns the inbound UDP socket and its polling worker. It moves
// between exactly two states: Stopped and Running. Start on a running
// listener and Stop on a stopped one are no-ops.
type Listener struct {
	logger       *slog.Logger
	store        *Store
	pollInterval time.Duration
	errorBackoff time.Duration

	mu      sync.Mutex
	running bool
	starts  int
	conn    *net.UDPConn
	stop    chan struct{}
	done    chan struct{}
}

// NewListener builds a stopped listener feeding store. Non-positive
// intervals fall back to the defaults.
func NewListener(store *Store, logger *slog.Logger, pollInterval, errorBackoff time.Duration) *Listener {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	if errorBackoff <= 0 {
		errorBackoff = DefaultErrorBackoff
	}
	return &Listener{
		logger:       logger,
		store:        store,
		pollInterval: pollInterval,
		errorBackoff: errorBackoff,
	}
}

// Running reports whether a worker is currently alive.
func (l *Listener) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.running
}

// LocalAddr returns the bound socket address, or nil when stopped.
func (l *Listener) LocalAddr() net.Addr {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.conn == nil {
		return nil
	}
	return l.conn.LocalAddr()
}

// Start binds the listen address from cfg and spawns the polling worker.
// A bind failure is returned to the caller; an already-running listener
// returns nil without touching the socket.
func (l *Listener) Start(cfg EndpointConfig) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.running {
		return nil
	}

	listenAddr := net.JoinHostPort(cfg.ListenHost, strconv.Itoa(cfg.ListenPort))
	udpAddr, err := net.ResolveUDPAddr("udp", listenAddr)
	if err != nil {
		return fmt.Errorf("resolve listen address %s: %w", listenAddr, err)
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return fmt.Errorf("bind listen address %s: %w", listenAddr, err)
	}

	l.conn = conn
	l.stop = make(chan struct{})
	l.done = make(chan struct{})
	l.running = true
	l.starts++

	l.logger.Info("osc listener started", "listen", conn.LocalAddr().String())
	go l.poll(conn, l.stop, l.done)
	return nil
}

// Stop flips the stop flag and joins the worker. The join is bounded; a
// worker that misses the deadline is logged and its socket force-closed.
func (l *Listener) Stop() {
	l.mu.Lock()
	if !l.running {
		l.mu.Unlock()
		return
	}
	l.running = false
	conn := l.conn
	stop := l.stop
	done := l.done
	l.conn = nil
	l.mu.Unlock()

	close(stop)
	select {
	case <-done:
	case <-time.After(joinTimeout):
		l.logger.Warn("osc listener worker did not exit cleanly")
		_ = conn.Close()
	}
	l.logger.Info("osc listener stopped")
}

// poll receives datagrams until the stop flag flips. Read deadlines keep
// the socket effectively non-blocking so the flag is observed once per
// interval; unexpected errors are logged and retried after a backoff.
func (l *Listener) poll(conn *net.UDPConn, stop, done chan struct{}) {
	defer close(done)
	defer conn.Close()

	buf := make([]byte, readBufferSize)
	for {
		select {
		case <-stop:
			return
		default:
		}

		_ = conn.SetReadDeadline(time.Now().Add(l.pollInterval))
		n, _, err := conn.ReadFromUDP(buf)
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			l.logger.Error("osc receive failed", "error", err.Error())
			select {
			case <-stop:
				return
			case <-time.After(l.errorBackoff):
			}
			continue
		}

		for _, param := range DecodePacket(buf[:n]) {
			l.store.Upsert(param)
		}
	}
}

package osc

import (
	"fmt"
	"sync"
)

// EndpointConfig names where outbound packets go and where the inbound
// socket binds. Any field difference is a material change.
type EndpointConfig struct {
	TargetHost string `json:"target_host"`
	TargetPort int    `json:"target_port"`
	ListenHost string `json:"listen_host"`
	ListenPort int    `json:"listen_port"`
}

// Manager holds the live endpoint configuration and drives the listener
// lifecycle when it changes.
type Manager struct {
	listener *Listener

	mu  sync.Mutex
	cfg EndpointConfig
}

// NewManager wraps cfg and the listener it governs.
func NewManager(cfg EndpointConfig, listener *Listener) *Manager {
	return &Manager{listener: listener, cfg: cfg}
}

// Config returns a copy of the current endpoint configuration.
func (m *Manager) Config() EndpointConfig {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cfg
}

// Update atomically replaces the configuration. When any field changed
// and the listener is running, it is restarted against the new listen
// address; a start failure propagates to the caller.
func (m *Manager) Update(next EndpointConfig) error {
	m.mu.Lock()
	changed := m.cfg != next
	m.cfg = next
	m.mu.Unlock()

	if !changed || !m.listener.Running() {
		return nil
	}

	m.listener.Stop()
	if err := m.listener.Start(next); err != nil {
		return fmt.Errorf("restart osc listener: %w", err)
	}
	return nil
}

// Start brings the listener up on the current configuration. Running
// listeners are left alone.
func (m *Manager) Start() error {
	return m.listener.Start(m.Config())
}

// Stop brings the listener down if it is running.
func (m *Manager) Stop() {
	m.listener.Stop()
}

// Restart cycles the listener, starting it even when it was stopped.
func (m *Manager) Restart() error {
	m.listener.Stop()
	if err := m.listener.Start(m.Config()); err != nil {
		return fmt.Errorf("restart osc listener: %w", err)
	}
	return nil
}

// ListenerRunning reports the listener state for status surfaces.
func (m *Manager) ListenerRunning() bool {
	return m.listener.Running()
}

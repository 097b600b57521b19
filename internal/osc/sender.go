package osc

import (
	"fmt"
	"net"
	"strconv"

	goosc "github.com/hypebeast/go-osc/osc"
)

// Sender transmits parameter updates to the configured target. Every
// send resolves the target fresh and uses a short-lived socket, so
// configuration changes apply immediately and nothing is pooled.
type Sender struct {
	manager *Manager
}

// NewSender builds a sender reading its target from manager.
func NewSender(manager *Manager) *Sender {
	return &Sender{manager: manager}
}

// Send encodes one parameter update and transmits it best-effort over
// UDP. Resolution and transmission failures surface synchronously; there
// is no retry and no acknowledgment.
func (s *Sender) Send(name string, kind Kind, value float32) error {
	cfg := s.manager.Config()
	target := net.JoinHostPort(cfg.TargetHost, strconv.Itoa(cfg.TargetPort))

	addr, err := net.ResolveUDPAddr("udp", target)
	if err != nil {
		return fmt.Errorf("resolve osc target %s: %w", target, err)
	}

	client := goosc.NewClient(addr.IP.String(), addr.Port)
	if err := client.Send(EncodeMessage(name, kind, value)); err != nil {
		return fmt.Errorf("send osc message to %s: %w", target, err)
	}
	return nil
}

package osc

import (
	"io"
	"log/slog"
	"net"
	"testing"
	"time"

	goosc "github.com/hypebeast/go-osc/osc"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func loopbackConfig(port int) EndpointConfig {
	return EndpointConfig{
		TargetHost: "127.0.0.1",
		TargetPort: 9000,
		ListenHost: "127.0.0.1",
		ListenPort: port,
	}
}

func listenerPort(t *testing.T, l *Listener) int {
	t.Helper()
	addr, ok := l.LocalAddr().(*net.UDPAddr)
	require.True(t, ok)
	return addr.Port
}

func sendDatagram(t *testing.T, port int, data []byte) {
	t.Helper()
	conn, err := net.DialUDP("udp", nil, &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: port})
	require.NoError(t, err)
	defer conn.Close()
	_, err = conn.Write(data)
	require.NoError(t, err)
}

func TestListenerReceivesAndStoresParameters(t *testing.T) {
	defer goleak.VerifyNone(t)

	store := NewStore()
	listener := NewListener(store, testLogger(), 0, 0)

	require.NoError(t, listener.Start(loopbackConfig(0)))
	defer listener.Stop()
	require.True(t, listener.Running())

	data, err := EncodeMessage("Smile", KindFloat, 0.5).MarshalBinary()
	require.NoError(t, err)
	sendDatagram(t, listenerPort(t, listener), data)

	require.Eventually(t, func() bool {
		p, ok := store.Get("Smile")
		return ok && p.Kind == KindFloat && p.Value == 0.5
	}, 2*time.Second, 5*time.Millisecond)
}

func TestListenerIgnoresForeignAndMalformedDatagrams(t *testing.T) {
	defer goleak.VerifyNone(t)

	store := NewStore()
	listener := NewListener(store, testLogger(), 0, 0)
	require.NoError(t, listener.Start(loopbackConfig(0)))
	defer listener.Stop()

	port := listenerPort(t, listener)
	sendDatagram(t, port, []byte("garbage"))

	foreignMsg := goosc.NewMessage("/avatar/change")
	foreignMsg.Append(float32(1))
	foreign, err := foreignMsg.MarshalBinary()
	require.NoError(t, err)
	sendDatagram(t, port, foreign)

	data, err := EncodeMessage("Wave", KindBool, 1).MarshalBinary()
	require.NoError(t, err)
	sendDatagram(t, port, data)

	require.Eventually(t, func() bool {
		_, ok := store.Get("Wave")
		return ok
	}, 2*time.Second, 5*time.Millisecond)
	require.Len(t, store.List(), 1)
}

func TestListenerStartWhileRunningIsNoOp(t *testing.T) {
	defer goleak.VerifyNone(t)

	listener := NewListener(NewStore(), testLogger(), 0, 0)
	require.NoError(t, listener.Start(loopbackConfig(0)))
	defer listener.Stop()

	addr := listener.LocalAddr()
	require.NoError(t, listener.Start(loopbackConfig(0)))
	require.Equal(t, addr, listener.LocalAddr())

	listener.mu.Lock()
	starts := listener.starts
	listener.mu.Unlock()
	require.Equal(t, 1, starts)
}

func TestListenerStopJoinsWorkerAndIsIdempotent(t *testing.T) {
	defer goleak.VerifyNone(t)

	listener := NewListener(NewStore(), testLogger(), 0, 0)
	require.NoError(t, listener.Start(loopbackConfig(0)))

	listener.Stop()
	require.False(t, listener.Running())
	require.Nil(t, listener.LocalAddr())

	listener.Stop()
	require.False(t, listener.Running())
}

func TestListenerBindFailureIsReturned(t *testing.T) {
	defer goleak.VerifyNone(t)

	occupied, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 0})
	require.NoError(t, err)
	defer occupied.Close()

	port := occupied.LocalAddr().(*net.UDPAddr).Port
	listener := NewListener(NewStore(), testLogger(), 0, 0)

	err = listener.Start(loopbackConfig(port))
	require.Error(t, err)
	require.Contains(t, err.Error(), "bind listen address")
	require.False(t, listener.Running())
}

func TestListenerRestartsOnNewAddress(t *testing.T) {
	defer goleak.VerifyNone(t)

	store := NewStore()
	listener := NewListener(store, testLogger(), 0, 0)
	require.NoError(t, listener.Start(loopbackConfig(0)))
	firstPort := listenerPort(t, listener)

	listener.Stop()
	require.NoError(t, listener.Start(loopbackConfig(0)))
	defer listener.Stop()

	secondPort := listenerPort(t, listener)
	data, err := EncodeMessage("Emote", KindInt, 2).MarshalBinary()
	require.NoError(t, err)
	sendDatagram(t, secondPort, data)

	require.Eventually(t, func() bool {
		_, ok := store.Get("Emote")
		return ok
	}, 2*time.Second, 5*time.Millisecond)

	// The old port is released once the first worker exits.
	require.NotEqual(t, 0, firstPort)
	reclaim, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: firstPort})
	require.NoError(t, err)
	require.NoError(t, reclaim.Close())
}

package transport_test

import (
	"crypto/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/qsp/pkg/transport"
)

func mustListen(t *testing.T) *transport.Transport {
	t.Helper()
	tr, err := transport.Listen("127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = tr.Close() })
	return tr
}

func TestSendRecvSmallMessage(t *testing.T) {
	a := mustListen(t)
	b := mustListen(t)

	payload := []byte("hello recovery host")

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.Send(payload, b.LocalAddr())
	}()

	msg, err := b.Recv()
	require.NoError(t, err)
	require.Equal(t, payload, msg.Data)
	require.NoError(t, <-errCh)
}

func TestSendRecvMultiChunkMessage(t *testing.T) {
	a := mustListen(t)
	b := mustListen(t)

	payload := make([]byte, 10*1024) // spans multiple 1011-byte chunks
	_, err := rand.Read(payload)
	require.NoError(t, err)

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.Send(payload, b.LocalAddr())
	}()

	msg, err := b.Recv()
	require.NoError(t, err)
	require.Equal(t, payload, msg.Data)
	require.NoError(t, <-errCh)
}

func TestSendToUnreachablePeerEventuallyFails(t *testing.T) {
	a := mustListen(t)
	b := mustListen(t)
	deadAddr := b.LocalAddr()
	require.NoError(t, b.Close())

	start := time.Now()
	err := a.Send([]byte("nobody home"), deadAddr)
	require.Error(t, err)
	require.Greater(t, time.Since(start), 4*time.Second)
}

func TestConcurrentSendsToDifferentPeers(t *testing.T) {
	a := mustListen(t)
	b := mustListen(t)
	c := mustListen(t)

	done := make(chan error, 2)
	go func() { done <- a.Send([]byte("to b"), b.LocalAddr()) }()
	go func() { done <- a.Send([]byte("to c"), c.LocalAddr()) }()

	gotB, err := b.Recv()
	require.NoError(t, err)
	require.Equal(t, "to b", string(gotB.Data))

	gotC, err := c.Recv()
	require.NoError(t, err)
	require.Equal(t, "to c", string(gotC.Data))

	require.NoError(t, <-done)
	require.NoError(t, <-done)
}

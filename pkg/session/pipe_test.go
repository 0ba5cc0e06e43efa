package session_test

import (
	"context"

	"github.com/luxfi/qsp/pkg/apperr"
	"github.com/luxfi/qsp/pkg/wire"
)

// pipeConn is an in-process PeerConn used only by tests, standing in for a
// real pkg/transport + pkg/securechannel pair.
type pipeConn struct {
	out chan<- wire.SecureInner
	in  <-chan wire.SecureInner
}

func newPipe() (a, b *pipeConn) {
	ab := make(chan wire.SecureInner, 4)
	ba := make(chan wire.SecureInner, 4)
	return &pipeConn{out: ab, in: ba}, &pipeConn{out: ba, in: ab}
}

func (p *pipeConn) SendSecure(ctx context.Context, msg wire.SecureInner) error {
	select {
	case p.out <- msg:
		return nil
	case <-ctx.Done():
		return apperr.New("pipeConn.SendSecure", apperr.TransportPeerLost)
	}
}

func (p *pipeConn) RecvSecure(ctx context.Context) (wire.SecureInner, error) {
	select {
	case msg := <-p.in:
		return msg, nil
	case <-ctx.Done():
		return wire.SecureInner{}, apperr.New("pipeConn.RecvSecure", apperr.TransportPeerLost)
	}
}

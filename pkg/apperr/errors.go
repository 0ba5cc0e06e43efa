// Package apperr defines the typed error kinds used across the engine.
//
// Following §7 of the specification, crypto and data errors never leak
// more detail than their Kind: a VerifyHash failure and a VerifyNorm
// failure are distinguishable, but which coefficient overflowed is not.
package apperr

import "fmt"

// Kind identifies a class of failure. Callers should compare against Kind,
// never against the formatted error string.
type Kind string

const (
	Param             Kind = "param"
	CryptoDecap       Kind = "crypto.decap"
	CryptoVerifyNorm  Kind = "crypto.verify_norm"
	CryptoVerifyHash  Kind = "crypto.verify_hash"
	CryptoSample      Kind = "crypto.sample"
	DataTamper        Kind = "data.tamper"
	HandshakeSig      Kind = "handshake.sig"
	HandshakeStale    Kind = "handshake.stale"
	HandshakeDecap    Kind = "handshake.decap"
	TransportPeerLost Kind = "transport.peer_lost"
	TransportEncode   Kind = "transport.encode"
	SessionWrongPhase Kind = "session.wrong_phase"
	SessionTimeout    Kind = "session.timeout"
	SessionDeclined   Kind = "session.declined"
)

// Error is a structured error carrying a Kind, the failing operation, and
// an optional wrapped cause. The cause is included in Error() for local
// debugging but callers outside this module should switch on Kind alone.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an *Error with no wrapped cause.
func New(op string, kind Kind) *Error {
	return &Error{Op: op, Kind: kind}
}

// Wrap builds an *Error wrapping err.
func Wrap(op string, kind Kind, err error) *Error {
	return &Error{Op: op, Kind: kind, Err: err}
}

// Is reports whether err is an *Error of the given Kind.
func Is(err error, kind Kind) bool {
	e, ok := err.(*Error)
	if !ok {
		return false
	}
	return e.Kind == kind
}

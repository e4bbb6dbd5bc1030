package dkg

import "fmt"

// Error is a DKG failure, identified as "dkg:<peer_idx>:<kind>" by the
// blamed participant. A Session that produces one of these transitions
// to StateFailed and must be discarded.
type Error struct {
	PeerIndex uint32
	Kind      string
	Err       error
}

func (e *Error) Error() string {
	return fmt.Sprintf("dkg:%d:%s: %v", e.PeerIndex, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(peerIndex uint32, kind string, err error) *Error {
	return &Error{PeerIndex: peerIndex, Kind: kind, Err: err}
}

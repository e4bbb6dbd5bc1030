package frost

import "fmt"

// Error is a threshold-signing failure, identified by the blamed
// participant: "signing:<peer_idx>:<kind>". A Session that produces one
// of these must be discarded by the caller; no partial result is
// returned.
type Error struct {
	PeerIndex uint32
	Kind      string
	Err       error
}

func (e *Error) Error() string {
	return fmt.Sprintf("signing:%d:%s: %v", e.PeerIndex, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(peerIndex uint32, kind string, err error) *Error {
	return &Error{PeerIndex: peerIndex, Kind: kind, Err: err}
}

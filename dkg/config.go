package dkg

import (
	"crypto/rand"
	"fmt"

	"github.com/coracle-social/kgroups/pkg/curve"
	"github.com/coracle-social/kgroups/pkg/party"
)

// Config is the input to CreateSession.
type Config struct {
	// SessionID is a 32-byte random session identifier, bound as associated
	// data into every share ciphertext.
	SessionID [32]byte
	// Threshold is t, the number of shares required to sign. t >= 2.
	Threshold uint32
	// Participants is the ordered (lexicographic by pubkey) list of all n
	// participant pubkeys. Participants.len == n.
	Participants []*curve.Point
	// MyIndex is this participant's 1-based index into Participants, as
	// assigned by party.AssignIndices.
	MyIndex party.Index
	// MySecretKey is this participant's long-term secret key, used to
	// derive conversation keys for share distribution.
	MySecretKey *curve.Scalar
}

// NewSessionID samples a fresh random session id.
func NewSessionID() ([32]byte, error) {
	var id [32]byte
	_, err := rand.Read(id[:])
	return id, err
}

// validate checks the invariants CreateSession enforces: t >= 2, t <= n,
// participants.len == n, 1 <= myIndex <= n.
func (c *Config) validate() error {
	n := uint32(len(c.Participants))
	if c.Threshold < 2 {
		return fmt.Errorf("dkg: threshold must be >= 2, got %d", c.Threshold)
	}
	if c.Threshold > n {
		return fmt.Errorf("dkg: threshold %d exceeds participant count %d", c.Threshold, n)
	}
	if n == 0 {
		return fmt.Errorf("dkg: no participants")
	}
	if !c.MyIndex.Valid(n) {
		return fmt.Errorf("dkg: myIndex %d out of range [1,%d]", c.MyIndex, n)
	}
	if c.MySecretKey == nil {
		return fmt.Errorf("dkg: mySecretKey is required")
	}
	myPub := c.MySecretKey.ActOnBase()
	if !myPub.Equal(c.Participants[c.MyIndex-1]) {
		return fmt.Errorf("dkg: mySecretKey does not match participants[myIndex-1]")
	}
	return nil
}

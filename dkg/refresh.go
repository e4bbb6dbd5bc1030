package dkg

import (
	"fmt"

	"github.com/coracle-social/kgroups/pkg/aead"
	"github.com/coracle-social/kgroups/pkg/curve"
	"github.com/coracle-social/kgroups/pkg/party"
	"github.com/coracle-social/kgroups/pkg/polynomial"
)

const refreshRoundNumber = 1

// RefreshRound1Package is the broadcast message of a refresh round: VSS
// commitments to a zero-constant polynomial g(x). The constant-term
// commitment is omitted from the wire form since g(0) = 0 makes it the
// identity point and it proves nothing.
type RefreshRound1Package struct {
	Index          party.Index
	VSSCommitments []*curve.Point // degree t-1 coefficients, excluding the (identity) constant term
}

// RefreshSession rotates every holder's share while preserving the group
// public key: each holder samples g(x) with g(0)=0, distributes shares
// of g exactly as in DKG round 2, and every holder sets
// s'_j = s_j + sum_i g_i(j).
//
// A RefreshSession owns ephemeral secrets (its own g(x) polynomial and
// the delta shares received from peers) for as long as it's alive.
// Finalize hands the refreshed share to the returned KeyPackage; any
// other terminal transition, or the caller discarding the session, must
// zeroize them via Destroy.
type RefreshSession struct {
	cfg     Config
	state   State
	current *KeyPackage

	polynomial *polynomial.Polynomial

	round1Packages map[party.Index]*RefreshRound1Package
	round2Packages map[party.Index]*curve.Scalar // delta shares received, keyed by sender
}

// CreateRefreshSession starts a refresh for the group described by current.
// cfg must describe the same group (participants, threshold) that produced
// current; MySecretKey is used to open sealed refresh shares exactly as in
// DKG round 2.
func CreateRefreshSession(cfg Config, current *KeyPackage) (*RefreshSession, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if current == nil {
		return nil, fmt.Errorf("dkg: refresh: current key package is required")
	}
	if current.MyIndex != cfg.MyIndex {
		return nil, fmt.Errorf("dkg: refresh: key package index %d does not match config index %d", current.MyIndex, cfg.MyIndex)
	}
	return &RefreshSession{
		cfg:            cfg,
		state:          StateInitialized,
		current:        current,
		round1Packages: make(map[party.Index]*RefreshRound1Package),
		round2Packages: make(map[party.Index]*curve.Scalar),
	}, nil
}

func (rs *RefreshSession) State() State { return rs.state }
func (rs *RefreshSession) N() int       { return len(rs.cfg.Participants) }

// zeroize clears ephemeral secret material: the local g(x) polynomial
// and any delta shares received from peers. Called on failure, on
// finalization (the polynomial and raw deltas are no longer needed once
// summed into the refreshed share), and may be called explicitly by a
// caller discarding a live session.
func (rs *RefreshSession) zeroize() {
	rs.polynomial = nil
	for idx := range rs.round2Packages {
		rs.round2Packages[idx] = nil
	}
}

// Destroy zeroizes the session's secrets. Safe to call on an
// already-failed or finalized session.
func (rs *RefreshSession) Destroy() {
	rs.zeroize()
}

func (rs *RefreshSession) fail(peerIndex party.Index, kind string, err error) error {
	rs.state = StateFailed
	rs.zeroize()
	return newError(uint32(peerIndex), kind, err)
}

// Round1 samples g(x) with g(0) = 0, degree t-1, and publishes commitments
// to its nonzero-degree coefficients.
func (rs *RefreshSession) Round1() (*RefreshRound1Package, error) {
	if rs.state != StateInitialized {
		return nil, fmt.Errorf("dkg: refresh: round1 called in state %s", rs.state)
	}
	poly, err := polynomial.NewPolynomial(int(rs.cfg.Threshold)-1, nil)
	if err != nil {
		return nil, fmt.Errorf("dkg: refresh: sample polynomial: %w", err)
	}
	rs.polynomial = poly

	pkg := &RefreshRound1Package{
		Index:          rs.cfg.MyIndex,
		VSSCommitments: poly.Commitments()[1:],
	}
	rs.round1Packages[rs.cfg.MyIndex] = pkg
	return pkg, nil
}

// IngestRound1 records a peer's refresh commitments, rejecting our own
// index, an out-of-range index, or a vector that is not exactly t-1 long.
// No constant-term commitment is carried on the wire; fullCommitments
// supplies the identity in its place.
func (rs *RefreshSession) IngestRound1(pkg *RefreshRound1Package) error {
	if pkg.Index == rs.cfg.MyIndex {
		return fmt.Errorf("dkg: refresh: received our own index %d", pkg.Index)
	}
	if !pkg.Index.Valid(uint32(rs.N())) {
		return fmt.Errorf("dkg: refresh: index %d out of range", pkg.Index)
	}
	if len(pkg.VSSCommitments) != int(rs.cfg.Threshold)-1 {
		return fmt.Errorf("dkg: refresh: expected %d commitments from %d, got %d",
			rs.cfg.Threshold-1, pkg.Index, len(pkg.VSSCommitments))
	}
	rs.round1Packages[pkg.Index] = pkg
	if len(rs.round1Packages) == rs.N() {
		rs.state = StateRound1Complete
	}
	return nil
}

// fullCommitments reconstructs the full length-t commitment vector for a
// refresh package by prepending the identity constant-term commitment, so
// polynomial.EvaluateCommitments can be reused unmodified.
func fullCommitments(pkg *RefreshRound1Package) []*curve.Point {
	out := make([]*curve.Point, 0, len(pkg.VSSCommitments)+1)
	out = append(out, curve.NewIdentityPoint())
	out = append(out, pkg.VSSCommitments...)
	return out
}

// Round2 evaluates g at every other participant's index and seals the
// result, exactly as DKG round 2 does.
func (rs *RefreshSession) Round2() ([]*Round2Package, error) {
	if rs.state != StateRound1Complete {
		return nil, fmt.Errorf("dkg: refresh: round2 called in state %s", rs.state)
	}
	out := make([]*Round2Package, 0, rs.N())
	for i := 1; i <= rs.N(); i++ {
		toIdx := party.Index(i)
		share := rs.polynomial.Evaluate(toIdx.Scalar())

		if toIdx == rs.cfg.MyIndex {
			rs.round2Packages[rs.cfg.MyIndex] = share
			continue
		}
		peerPubkey := rs.cfg.Participants[toIdx-1]
		key := aead.ConversationKey(rs.cfg.MySecretKey, peerPubkey)
		sealed, err := aead.SealShare(key, rs.cfg.SessionID, refreshRoundNumber, share)
		if err != nil {
			return nil, fmt.Errorf("dkg: refresh: seal share for %d: %w", toIdx, err)
		}
		out = append(out, &Round2Package{
			FromIndex:   rs.cfg.MyIndex,
			ToIndex:     toIdx,
			SealedShare: sealed,
		})
	}
	return out, nil
}

// IngestRound2 decrypts and verifies a refresh share against the sender's
// round-1 commitments.
func (rs *RefreshSession) IngestRound2(pkg *Round2Package) error {
	if rs.state != StateRound1Complete && rs.state != StateRound2Complete {
		return fmt.Errorf("dkg: refresh: ingest_round2 called in state %s", rs.state)
	}
	if pkg.ToIndex != rs.cfg.MyIndex {
		return fmt.Errorf("dkg: refresh: package addressed to %d, not us", pkg.ToIndex)
	}
	if _, dup := rs.round2Packages[pkg.FromIndex]; dup {
		return nil
	}
	senderPkg, ok := rs.round1Packages[pkg.FromIndex]
	if !ok {
		return fmt.Errorf("dkg: refresh: no round-1 package from %d yet", pkg.FromIndex)
	}

	clearShare := pkg.ClearShare
	if clearShare == nil {
		if pkg.SealedShare == nil {
			return rs.fail(pkg.FromIndex, "missing-share", fmt.Errorf("neither clear nor sealed share present"))
		}
		peerPubkey := rs.cfg.Participants[pkg.FromIndex-1]
		key := aead.ConversationKey(rs.cfg.MySecretKey, peerPubkey)
		opened, err := aead.OpenShare(key, rs.cfg.SessionID, refreshRoundNumber, pkg.SealedShare)
		if err != nil {
			return rs.fail(pkg.FromIndex, "decrypt-failed", err)
		}
		clearShare = opened
	}

	expected := polynomial.EvaluateCommitments(fullCommitments(senderPkg), rs.cfg.MyIndex.Scalar())
	if !clearShare.ActOnBase().Equal(expected) {
		return rs.fail(pkg.FromIndex, "vss-mismatch", fmt.Errorf("refresh share does not match sender's commitments"))
	}

	rs.round2Packages[pkg.FromIndex] = clearShare
	if len(rs.round2Packages) == rs.N() {
		rs.state = StateRound2Complete
	}
	return nil
}

// Finalize sums the received delta shares into the refreshed share, and
// aggregates the refresh commitment vectors (coefficient-wise, sans
// constant term) into the current public polynomial. groupPubkey is
// unchanged: every g_i(0) is 0, so their sum contributes nothing. The
// session's ephemeral polynomial and received delta shares are zeroized
// once summed.
func (rs *RefreshSession) Finalize() (*KeyPackage, error) {
	if rs.state != StateRound2Complete {
		return nil, fmt.Errorf("dkg: refresh: expected state round2_complete, got %s", rs.state)
	}

	newShare := curve.NewScalar().Set(rs.current.MyShare)
	for i := 1; i <= rs.N(); i++ {
		delta, ok := rs.round2Packages[party.Index(i)]
		if !ok {
			return nil, fmt.Errorf("dkg: refresh: missing delta share from %d", i)
		}
		newShare = newShare.Add(delta)
	}

	vectors := make([][]*curve.Point, 0, rs.N())
	for i := 1; i <= rs.N(); i++ {
		r1, ok := rs.round1Packages[party.Index(i)]
		if !ok {
			return nil, fmt.Errorf("dkg: refresh: missing round-1 package from %d", i)
		}
		vectors = append(vectors, r1.VSSCommitments)
	}
	deltaCommitments, err := polynomial.SumCommitmentVectors(vectors)
	if err != nil {
		return nil, fmt.Errorf("dkg: refresh: %w", err)
	}

	newCommitments := make([]*curve.Point, len(rs.current.Commitments))
	newCommitments[0] = rs.current.Commitments[0]
	for i := 1; i < len(newCommitments); i++ {
		newCommitments[i] = rs.current.Commitments[i].Add(deltaCommitments[i-1])
	}

	kp := &KeyPackage{
		MyIndex:         rs.cfg.MyIndex,
		MyShare:         newShare,
		GroupPublicKey:  rs.current.GroupPublicKey,
		Commitments:     newCommitments,
		Threshold:       rs.cfg.Threshold,
		ParticipantKeys: rs.cfg.Participants,
		ChainKey:        rs.current.ChainKey,
	}
	rs.state = StateFinalized
	rs.zeroize()
	return kp, nil
}

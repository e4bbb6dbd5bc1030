// VerifyPool runs event signature verification concurrently across a
// bounded worker set. Verification results are handed back to the
// caller's single-writer state via VerifyResult; the authorization
// decision itself is always made back on that single writer, never
// inside the pool. This is the one place independent events' crypto
// work can genuinely be parallelized.
package relay

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/coracle-social/kgroups/event"
)

// VerifyResult pairs an event with its independently-computed signature
// verification outcome, to be applied back on the single-writer event
// loop via Core.Admit; VerifyPool itself never mutates Core state.
type VerifyResult struct {
	Event *event.Event
	Err   error
}

// VerifyPool bounds concurrent signature verification to at most
// concurrency goroutines.
type VerifyPool struct {
	concurrency int
}

// NewVerifyPool returns a pool that verifies up to concurrency events at
// once. concurrency <= 0 is clamped to 1.
func NewVerifyPool(concurrency int) *VerifyPool {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &VerifyPool{concurrency: concurrency}
}

// VerifyAll verifies every event in batch concurrently and returns results
// in the same order batch was given, for the caller's single-writer loop
// to apply via Core.Admit. A signature failure on one event must not
// cancel verification of the others, so every worker returns nil to the
// group and the per-event outcome travels in its VerifyResult instead.
func (p *VerifyPool) VerifyAll(ctx context.Context, batch []*event.Event) []VerifyResult {
	results := make([]VerifyResult, len(batch))
	var g errgroup.Group
	g.SetLimit(p.concurrency)

	for i, evt := range batch {
		i, evt := i, evt
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i] = VerifyResult{Event: evt, Err: err}
				return nil
			}
			results[i] = VerifyResult{Event: evt, Err: evt.Verify()}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

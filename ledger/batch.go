package ledger

import (
	"context"
	"runtime"

	"github.com/vocdoni/eerc-node/log"
	"golang.org/x/sync/errgroup"
)

// ApplyBatch applies ops in order and returns one error per operation.
// Proofs are first verified concurrently against the current state, then
// the operations are applied one by one. An operation whose public inputs
// changed meanwhile, like a second transfer of the same sender, is verified
// again when applied.
func (l *Ledger) ApplyBatch(ctx context.Context, ops []Operation) []error {
	pre := make([]*preVerified, len(ops))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, op := range ops {
		if op == nil || isNilOperation(op) {
			continue
		}
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			p, err := op.prepare(l, l.storage)
			if err != nil || p.noProof {
				// rejected or resolved again when applied
				return nil
			}
			pre[i] = &preVerified{inputs: p.inputs, ok: l.verify(p)}
			return nil
		})
	}
	_ = g.Wait()

	errs := make([]error, len(ops))
	applied := 0
	for i, op := range ops {
		if _, errs[i] = l.execute(ctx, op, pre[i]); errs[i] == nil {
			applied++
		}
	}
	log.Infow("batch applied", "operations", len(ops), "applied", applied)
	return errs
}

package service

import (
	"context"
	"time"

	"github.com/vocdoni/eerc-node/verifier"
	"golang.org/x/sync/errgroup"
)

// DownloadArtifacts fetches the verifying keys of all the artifacts
// concurrently, so the following verifier.LoadSet only reads them from the
// local cache.
func DownloadArtifacts(timeout time.Duration, artifacts []*verifier.VerifierArtifact) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	for _, va := range artifacts {
		if va.Key == nil {
			continue
		}
		g.Go(func() error {
			return va.Key.Load(ctx)
		})
	}
	return g.Wait()
}

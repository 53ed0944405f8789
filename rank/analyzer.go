package rank

import (
	"context"
	"log/slog"

	"github.com/bulgusearch/bulgu"
)

// Analyzer recomputes per-domain authority scores from the backlink graph.
// Each pass rebuilds every score from zero, so running it is idempotent over
// an unchanged corpus.
type Analyzer struct {
	Hosts     bulgu.HostService
	Backlinks bulgu.BacklinkService
	Session   bulgu.Session
	Logger    *slog.Logger
}

// Run performs one analysis pass: deduplicate host rows, zero every score,
// then award one point per cross-domain backlink to the target's host row.
// Links inside a domain, links between subdomains of the same site, and
// links to unknown hosts score nothing.
func (a *Analyzer) Run(ctx context.Context) error {
	if err := a.Hosts.RemoveDuplicateHosts(ctx); err != nil {
		return err
	}
	if err := a.Hosts.ZeroScores(ctx); err != nil {
		return err
	}

	links, err := a.Backlinks.FindBacklinks(ctx)
	if err != nil {
		return err
	}

	scored := 0
	for _, link := range links {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		sourceBase, err := bulgu.BaseURL(link.SourceURL)
		if err != nil {
			continue
		}
		targetBase, err := bulgu.BaseURL(link.TargetURL)
		if err != nil {
			continue
		}
		if sourceBase == targetBase {
			continue
		}
		if bulgu.SameRegisteredSite(link.SourceURL, link.TargetURL) {
			continue
		}

		if err := a.Hosts.IncrementScore(ctx, targetBase, 1); err != nil {
			if bulgu.ErrorCode(err) == bulgu.ENOTFOUND {
				a.Logger.Debug("no host for backlink target", "target", targetBase)
				continue
			}
			return err
		}
		scored++
	}

	if err := a.Session.Commit(ctx); err != nil {
		return err
	}

	a.Logger.Info("backlink analysis complete", "backlinks", len(links), "scored", scored)
	return nil
}

package workspace

import (
	"context"

	"github.com/pkg/errors"

	"github.com/jlevy/kash-media/pkg/logger"
	"github.com/jlevy/kash-media/pkg/types/item"
)

// ErrNoUpstream indicates no item in the provenance chain matches.
var ErrNoUpstream = errors.New("no upstream item matches")

// FindUpstream walks the item's provenance chain breadth-first and
// returns the first item satisfying pred, starting with the item itself.
// Dangling references are skipped; cycles terminate the walk.
func (w *Workspace) FindUpstream(ctx context.Context, it *item.Item, pred func(*item.Item) bool) (*item.Item, error) {
	if pred(it) {
		return it, nil
	}

	visited := make(map[string]bool)
	queue := append([]string(nil), it.DerivedFrom...)
	for len(queue) > 0 {
		ref := queue[0]
		queue = queue[1:]
		if visited[ref] {
			continue
		}
		visited[ref] = true

		upstream, err := w.Load(ref)
		if err != nil {
			logger.G(ctx).WithField("ref", ref).WithError(err).Debug("skipping unresolvable provenance reference")
			continue
		}
		if pred(upstream) {
			return upstream, nil
		}
		queue = append(queue, upstream.DerivedFrom...)
	}
	return nil, errors.Wrapf(ErrNoUpstream, "from %q", it.AbbrevTitle())
}

// FindUpstreamResource walks provenance back to the URL resource an item
// was derived from.
func (w *Workspace) FindUpstreamResource(ctx context.Context, it *item.Item) (*item.Item, error) {
	return w.FindUpstream(ctx, it, func(upstream *item.Item) bool {
		return upstream.Type == item.TypeResource && upstream.URL != ""
	})
}

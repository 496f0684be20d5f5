// Package media provides the built-in actions that work on media
// resources: transcription, timestamp backfill, frame captures,
// downloads, metadata, and video galleries. Each action registers
// itself at import time; import the package (directly or through
// pkg/kit) to make them available.
package media

import (
	"github.com/jlevy/kash-media/pkg/actions"
	mediasvc "github.com/jlevy/kash-media/pkg/media"
	"github.com/jlevy/kash-media/pkg/types/item"
)

// defaultServices backs runtimes assembled without a media registry.
var defaultServices = mediasvc.DefaultRegistry(nil)

func services(rt *actions.Runtime) *mediasvc.Registry {
	if rt.Media != nil {
		return rt.Media
	}
	return defaultServices
}

// updatedCopy clones an item for an in-place update: same ID and store
// path, so saving the copy writes back to the item's existing file. The
// metadata map is cloned so the input item is never mutated.
func updatedCopy(it *item.Item) *item.Item {
	updated := *it
	if len(it.Metadata) > 0 {
		updated.Metadata = make(map[string]any, len(it.Metadata))
		for k, v := range it.Metadata {
			updated.Metadata[k] = v
		}
	}
	return &updated
}

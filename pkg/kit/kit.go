// Package kit registers the full built-in action set. Binaries import it
// for side effects:
//
//	import _ "github.com/jlevy/kash-media/pkg/kit"
//
// The kash binary skips this import and carries only the action-free
// workspace commands.
package kit

import (
	_ "github.com/jlevy/kash-media/pkg/actions/media"
	_ "github.com/jlevy/kash-media/pkg/actions/text"
)

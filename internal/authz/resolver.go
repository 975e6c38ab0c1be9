package authz

import (
	"fmt"
	"strings"

	"github.com/yarko/wwwhisper/internal/store"
)

// FindGoverningLocation returns the most specific location governing a
// normalized request path: the registered location with the longest
// path that is a boundary-respecting prefix of requestPath, or nil if
// no location matches.
//
// A location matches when requestPath starts with its path and the
// match ends on a path segment boundary: the match is exact, or the
// next character of requestPath is '/', or the location's own path
// ends in '/' (the trailing slash already is the boundary). The
// boundary rule keeps "/pub" from governing "/pub2".
func FindGoverningLocation(locations []store.Location, requestPath string) *store.Location {
	var governing *store.Location
	longest := -1

	for i := range locations {
		probed := locations[i].Path
		probedLen := len(probed)
		if probedLen == 0 {
			continue
		}
		// Position of the boundary character in requestPath. A stored
		// trailing slash moves it back one, so "/pub/" matches
		// "/pub/beer" through its own slash.
		boundary := probedLen
		if probed[probedLen-1] == '/' {
			boundary = probedLen - 1
		}

		if !strings.HasPrefix(requestPath, probed) {
			continue
		}
		if probedLen != len(requestPath) && requestPath[boundary] != '/' {
			continue
		}
		if probedLen == longest {
			// Two distinct canonical paths of equal length cannot both
			// prefix the same request path; uniqueness is broken.
			panic(fmt.Sprintf(
				"two locations of length %d match %q: %q and %q",
				probedLen, requestPath, governing.Path, probed))
		}
		if probedLen > longest {
			longest = probedLen
			governing = &locations[i]
		}
	}
	return governing
}

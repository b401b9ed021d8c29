//go:build spardebug

package geom

import "fmt"

// missingHook is fatal in debug builds.
func missingHook(kind, hook string) {
	panic(fmt.Sprintf("geom: kind %s reached update without %s hook", kind, hook))
}

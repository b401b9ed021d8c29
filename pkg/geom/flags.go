package geom

import "strings"

// Flags is the set of stale computations on a node.
type Flags uint8

const (
	DirtyTransform Flags = 1 << iota
	DirtySurface
	DirtyTess
	DirtyHighlight
	DirtyAnnotation
	DirtyGlobalScale

	DirtyNone Flags = 0
	DirtyAll        = DirtyTransform | DirtySurface | DirtyTess | DirtyHighlight | DirtyAnnotation | DirtyGlobalScale
)

var flagNames = []struct {
	f    Flags
	name string
}{
	{DirtyTransform, "transform"},
	{DirtySurface, "surface"},
	{DirtyTess, "tess"},
	{DirtyHighlight, "highlight"},
	{DirtyAnnotation, "annotation"},
	{DirtyGlobalScale, "globalscale"},
}

// Has reports whether every bit of x is set.
func (f Flags) Has(x Flags) bool { return f&x == x }

// Any reports whether any bit of x is set.
func (f Flags) Any(x Flags) bool { return f&x != 0 }

func (f Flags) String() string {
	if f == DirtyNone {
		return "clean"
	}
	var parts []string
	for _, fn := range flagNames {
		if f.Has(fn.f) {
			parts = append(parts, fn.name)
		}
	}
	return strings.Join(parts, "|")
}

// Parm groups with fixed meaning.
const (
	GroupXForm  = "XForm"
	GroupAttach = "Attach"
	GroupSym    = "Sym"
	GroupShape  = "Shape"
	GroupBBox   = "BBox"
	GroupIndex  = "Index"
	GroupDesign = "Design"
)

var tessParms = map[string]bool{
	"LECluster":  true,
	"TECluster":  true,
	"InCluster":  true,
	"OutCluster": true,
}

// Classify returns the dirty flags a commit to parm name in group sets.
func Classify(group, name string) Flags {
	switch {
	case group == GroupXForm && name != "Scale" && name != "Last_Scale":
		return DirtyTransform
	case group == GroupAttach || group == GroupSym:
		return DirtyTransform
	case group == GroupShape && (name == "Tess_U" || name == "Tess_W"):
		return DirtyTess
	case group == "XSec" && name == "SectTess_U":
		return DirtyTess
	case group == "EndCap" && name == "CapUMinTess":
		return DirtyTess
	case tessParms[name]:
		return DirtyTess
	case group == GroupBBox:
		return DirtyNone
	case group == GroupIndex:
		return DirtyHighlight
	case strings.HasPrefix(group, "Fea"):
		return DirtyAnnotation
	default:
		return DirtySurface
	}
}

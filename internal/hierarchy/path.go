package hierarchy

import (
	"strings"

	"github.com/google/uuid"
)

// Separator joins path segments. Each segment is one ancestor's role id.
const Separator = "."

// Path is the materialized ancestry encoding of a role, root to node.
// It is derived exclusively from tree structure by hierarchy mutations
// and is never settable by callers.
type Path string

// Segment encodes a role id as a path segment. Hyphens map to
// underscores so a segment is a single label token and the separator
// can never occur inside one.
func Segment(id uuid.UUID) string {
	return strings.ReplaceAll(id.String(), "-", "_")
}

// RootPath builds the single-segment path of a tenant's root role.
func RootPath(id uuid.UUID) Path {
	return Path(Segment(id))
}

// Child extends p with the segment of the given role id.
func (p Path) Child(id uuid.UUID) Path {
	return Path(string(p) + Separator + Segment(id))
}

// Segments splits the path into its ancestor segments, root first.
func (p Path) Segments() []string {
	if p == "" {
		return nil
	}
	return strings.Split(string(p), Separator)
}

// Depth returns the number of segments in the path.
func (p Path) Depth() int {
	return len(p.Segments())
}

// IsAncestorOrEqual reports whether p is an ancestor of other or equal to
// it. The comparison is over whole segments: other must equal p or start
// with p immediately followed by the separator. A raw string prefix is
// not enough, otherwise segment "mgr1" would falsely match "mgr10".
func (p Path) IsAncestorOrEqual(other Path) bool {
	if p == "" || other == "" {
		return false
	}
	if p == other {
		return true
	}
	return strings.HasPrefix(string(other), string(p)+Separator)
}

// Rebase rewrites p, which must lie under oldPrefix, to lie under
// newPrefix instead. Used when a subtree is re-parented.
func (p Path) Rebase(oldPrefix, newPrefix Path) Path {
	if p == oldPrefix {
		return newPrefix
	}
	if !oldPrefix.IsAncestorOrEqual(p) {
		return p
	}
	return newPrefix + p[len(oldPrefix):]
}

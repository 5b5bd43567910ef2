package discovery

import (
	"fmt"
	"strings"
)

// Kind is the provenance of a package.
type Kind string

const (
	KindApp  Kind = "app"
	KindGit  Kind = "git"
	KindRoot Kind = "root"
	KindNpm  Kind = "npm"
)

// Filter selects which provenance sources a scan covers.
type Filter string

const (
	FilterAll Filter = "all"
	FilterApp Filter = "app"
	FilterGit Filter = "git"
	FilterNpm Filter = "npm"
)

// Filters lists every valid filter.
var Filters = []Filter{FilterAll, FilterApp, FilterGit, FilterNpm}

// ParseFilter validates a filter name.
func ParseFilter(s string) (Filter, error) {
	for _, f := range Filters {
		if string(f) == s {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: unknown filter %q", ErrDiscovery, s)
}

// Identifier names one candidate package.
type Identifier struct {
	Kind Kind
	Name string
}

// String formats the identifier as "kind:name".
func (id Identifier) String() string {
	return string(id.Kind) + ":" + id.Name
}

// ParseIdentifier parses "kind:name". Scoped dependency names such as
// "@scope/pkg" are kept intact.
func ParseIdentifier(s string) (Identifier, error) {
	kind, name, ok := strings.Cut(s, ":")
	if !ok || name == "" {
		return Identifier{}, fmt.Errorf("%w: malformed identifier %q", ErrDiscovery, s)
	}
	switch Kind(kind) {
	case KindApp, KindGit, KindRoot, KindNpm:
		return Identifier{Kind: Kind(kind), Name: name}, nil
	}
	return Identifier{}, fmt.Errorf("%w: unknown kind in %q", ErrDiscovery, s)
}

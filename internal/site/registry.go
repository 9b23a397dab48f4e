package site

import (
	"fmt"
	"sort"
	"strings"

	"github.com/JakeFAU/catalog-prober/internal/prober"
)

const dwImage = "/dw/image/v2/BDCB_PRD/on/demandware.static/-/"

// Registry maps lower-cased site names to targets.
type Registry struct {
	targets map[string]prober.Target
}

// NewRegistry builds a registry from the given targets.
func NewRegistry(targets ...prober.Target) *Registry {
	r := &Registry{targets: make(map[string]prober.Target, len(targets))}
	for _, t := range targets {
		r.targets[strings.ToLower(t.Name())] = t
	}
	return r
}

// DefaultRegistry returns every supported site.
func DefaultRegistry() *Registry {
	return NewRegistry(
		Mesh{name: "footpatrol", code: "fp", suffix: "_footpatrolcom"},
		Mesh{name: "size", code: "sz"},
		Mesh{name: "jdsports", code: "jd"},
		Mesh{name: "thehipstore", code: "hp"},
		Demandware{
			name:       "solebox",
			host:       "www.solebox.com",
			idFormat:   "%08d",
			pathFormat: dwImage + "Sites-solebox-master-de/default/dw1220ea0d/%d_PS.jpg?sw=3000&sh=3000&sm=fit&sfrm=png",
		},
		Demandware{
			name:       "snipes",
			host:       "www.snipes.com",
			idFormat:   "000138%08d",
			prefix:     "000138",
			pathFormat: dwImage + "Sites-snse-master-eu/default/dw538cba39/%d_P.jpg?sw=3000&sh=3000&sm=fit&sfrm=png",
		},
		Demandware{
			name:       "onygo",
			host:       "www.onygo.com",
			idFormat:   "000157%08d",
			prefix:     "000157",
			pathFormat: dwImage + "Sites-ong-master-de/default/dw4cb104b1/%d_P.jpg?sw=3000&sh=3000&sm=fit&sfrm=png",
		},
		Demandware{
			name:       "courir",
			host:       "www.courir.com",
			idFormat:   "%d",
			prefix:     "00",
			pathFormat: "/on/demandware.static/-/Sites-master-catalog-courir/default/dw227c85ea/images/hi-res/%09d_101.png",
		},
	)
}

// Lookup resolves name case-insensitively.
func (r *Registry) Lookup(name string) (prober.Target, error) {
	t, ok := r.targets[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("%w: %q", prober.ErrUnsupportedTarget, name)
	}
	return t, nil
}

// Names lists the registered site names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.targets))
	for name := range r.targets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

package pipeline

import (
	"fmt"
	"sort"

	"github.com/puzpuzpuz/xsync/v4"

	"github.com/Project-Magma-Monorepo/sui-sender-indexer/pkg/walrus"
)

// Registry holds the pipelines known to the process, keyed by their stable name.
type Registry struct {
	pipelines *xsync.Map[string, Pipeline]
}

func NewRegistry() *Registry {
	return &Registry{pipelines: xsync.NewMap[string, Pipeline]()}
}

// DefaultRegistry registers the three built-in pipelines sharing one decoder.
func DefaultRegistry(cfg walrus.Config) *Registry {
	decoder := walrus.NewDecoder(cfg)
	r := NewRegistry()
	for _, p := range []Pipeline{Senders(), BlobIDs(decoder), Blobs(decoder)} {
		if err := r.Register(p); err != nil {
			panic(err)
		}
	}
	return r
}

// Register adds p. Names must be unique and match the table's validity rules.
func (r *Registry) Register(p Pipeline) error {
	if p.Name() == "" {
		return fmt.Errorf("pipeline name cannot be empty")
	}
	if err := p.Table().Validate(); err != nil {
		return fmt.Errorf("pipeline %s: %w", p.Name(), err)
	}
	if _, loaded := r.pipelines.LoadOrStore(p.Name(), p); loaded {
		return fmt.Errorf("pipeline %s already registered", p.Name())
	}
	return nil
}

func (r *Registry) Get(name string) (Pipeline, bool) {
	return r.pipelines.Load(name)
}

// Names returns the registered names in lexical order.
func (r *Registry) Names() []string {
	names := make([]string, 0, r.pipelines.Size())
	r.pipelines.Range(func(name string, _ Pipeline) bool {
		names = append(names, name)
		return true
	})
	sort.Strings(names)
	return names
}

// Select resolves names to pipelines. An empty list selects everything.
func (r *Registry) Select(names []string) ([]Pipeline, error) {
	if len(names) == 0 {
		names = r.Names()
	}
	out := make([]Pipeline, 0, len(names))
	for _, name := range names {
		p, ok := r.Get(name)
		if !ok {
			return nil, fmt.Errorf("unknown pipeline %q (known: %v)", name, r.Names())
		}
		out = append(out, p)
	}
	return out, nil
}

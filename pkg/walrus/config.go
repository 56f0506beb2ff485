// Package walrus decodes Walrus storage Blob objects out of Sui checkpoints.
//
// Blob objects are recognized by their exact declared type path and decoded into a single
// canonical record regardless of which historical on-chain layout produced them. Decoding is
// pure: no I/O, no shared mutable state, and no panics on malformed input.
package walrus

import (
	"fmt"
	"strings"

	"github.com/Project-Magma-Monorepo/sui-sender-indexer/pkg/checkpoint"
)

// DefaultPackage is the Walrus system package that declares blob::Blob on mainnet.
const DefaultPackage = "0x795ddbc26b8cfff2551f45e198b87fc19473f2df50f995376b924ac80e56f88b"

const (
	blobModule = "blob"
	blobStruct = "Blob"
)

// Layout selects the BCS schema used for the raw contents of a tracked type.
type Layout int

const (
	// LayoutV2 is the current layout: u32 epochs, u256 blob id, u64 sizes, u8 encoding type.
	LayoutV2 Layout = iota
	// LayoutV1 is the early layout with u64 epochs and decimal-string blob id and sizes.
	LayoutV1
)

func (l Layout) String() string {
	switch l {
	case LayoutV1:
		return "v1"
	case LayoutV2:
		return "v2"
	default:
		return fmt.Sprintf("layout(%d)", int(l))
	}
}

// ParseLayout accepts "v1" or "v2".
func ParseLayout(s string) (Layout, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "v1":
		return LayoutV1, nil
	case "v2", "":
		return LayoutV2, nil
	default:
		return 0, fmt.Errorf("unknown blob layout %q", s)
	}
}

// TypePath is a fully qualified Move struct path without type parameters.
type TypePath struct {
	Address checkpoint.Address
	Module  string
	Name    string
}

// ParseTypePath parses "0x<pkg>::module::Name". Generic paths are rejected.
func ParseTypePath(s string) (TypePath, error) {
	tag, err := checkpoint.ParseStructTag(s)
	if err != nil {
		return TypePath{}, err
	}
	if len(tag.TypeParams) > 0 {
		return TypePath{}, fmt.Errorf("type path %q must not have type parameters", s)
	}
	return TypePath{Address: tag.Address, Module: tag.Module, Name: tag.Name}, nil
}

// Matches reports whether a declared type is exactly this path.
func (p TypePath) Matches(tag *checkpoint.StructTag) bool {
	return tag != nil &&
		len(tag.TypeParams) == 0 &&
		tag.Address == p.Address &&
		tag.Module == p.Module &&
		tag.Name == p.Name
}

func (p TypePath) String() string {
	return fmt.Sprintf("%s::%s::%s", p.Address, p.Module, p.Name)
}

// TrackedType binds a type path to the layout its raw contents use.
type TrackedType struct {
	Path   TypePath
	Layout Layout
}

// Config is the immutable set of tracked Blob types. Build it once at startup.
type Config struct {
	types []TrackedType
}

// NewConfig validates the tracked types. Each path may appear only once.
func NewConfig(types ...TrackedType) (Config, error) {
	if len(types) == 0 {
		return Config{}, fmt.Errorf("at least one tracked blob type is required")
	}
	seen := make(map[TypePath]struct{}, len(types))
	out := make([]TrackedType, 0, len(types))
	for _, t := range types {
		if _, dup := seen[t.Path]; dup {
			return Config{}, fmt.Errorf("blob type %s configured twice", t.Path)
		}
		seen[t.Path] = struct{}{}
		out = append(out, t)
	}
	return Config{types: out}, nil
}

// ParseConfig reads a comma separated list of "<type path>[=<layout>]" entries.
// An empty string yields DefaultConfig.
func ParseConfig(s string) (Config, error) {
	if strings.TrimSpace(s) == "" {
		return DefaultConfig(), nil
	}
	var types []TrackedType
	for _, entry := range strings.Split(s, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		pathStr, layoutStr, _ := strings.Cut(entry, "=")
		path, err := ParseTypePath(pathStr)
		if err != nil {
			return Config{}, err
		}
		layout, err := ParseLayout(layoutStr)
		if err != nil {
			return Config{}, err
		}
		types = append(types, TrackedType{Path: path, Layout: layout})
	}
	return NewConfig(types...)
}

// DefaultConfig tracks the mainnet Walrus Blob with the current layout.
func DefaultConfig() Config {
	addr, err := checkpoint.ParseAddress(DefaultPackage)
	if err != nil {
		panic(err)
	}
	return Config{types: []TrackedType{{
		Path:   TypePath{Address: addr, Module: blobModule, Name: blobStruct},
		Layout: LayoutV2,
	}}}
}

// Lookup returns the tracked type a declared type matches exactly.
func (c Config) Lookup(tag *checkpoint.StructTag) (TrackedType, bool) {
	for _, t := range c.types {
		if t.Path.Matches(tag) {
			return t, true
		}
	}
	return TrackedType{}, false
}

// Types returns a copy of the tracked types.
func (c Config) Types() []TrackedType {
	out := make([]TrackedType, len(c.types))
	copy(out, c.types)
	return out
}

package checkpoint

import (
	"fmt"
	"strings"
)

// StructTag is the declared Move type of an object: address::module::Name<params>.
type StructTag struct {
	Address    Address
	Module     string
	Name       string
	TypeParams []string
}

// ParseStructTag parses the canonical textual form of a Move struct type.
// Type parameters are kept as opaque strings; nothing in the indexer inspects them.
func ParseStructTag(s string) (StructTag, error) {
	var tag StructTag
	s = strings.TrimSpace(s)

	base, params := s, ""
	if i := strings.IndexByte(s, '<'); i >= 0 {
		if !strings.HasSuffix(s, ">") {
			return tag, fmt.Errorf("invalid struct tag %q: unbalanced type parameters", s)
		}
		base, params = s[:i], s[i+1:len(s)-1]
	}

	parts := strings.Split(base, "::")
	if len(parts) != 3 {
		return tag, fmt.Errorf("invalid struct tag %q: expected address::module::name", s)
	}
	addr, err := ParseAddress(parts[0])
	if err != nil {
		return tag, fmt.Errorf("invalid struct tag %q: %w", s, err)
	}
	if parts[1] == "" || parts[2] == "" {
		return tag, fmt.Errorf("invalid struct tag %q: empty module or name", s)
	}
	tag.Address = addr
	tag.Module = parts[1]
	tag.Name = parts[2]

	if params != "" {
		tag.TypeParams, err = splitTypeParams(params)
		if err != nil {
			return StructTag{}, fmt.Errorf("invalid struct tag %q: %w", s, err)
		}
	}
	return tag, nil
}

// splitTypeParams splits on commas that are not nested inside angle brackets.
func splitTypeParams(s string) ([]string, error) {
	var out []string
	depth, start := 0, 0
	for i, r := range s {
		switch r {
		case '<':
			depth++
		case '>':
			depth--
			if depth < 0 {
				return nil, fmt.Errorf("unbalanced type parameters")
			}
		case ',':
			if depth == 0 {
				out = append(out, strings.TrimSpace(s[start:i]))
				start = i + 1
			}
		}
	}
	if depth != 0 {
		return nil, fmt.Errorf("unbalanced type parameters")
	}
	out = append(out, strings.TrimSpace(s[start:]))
	for _, p := range out {
		if p == "" {
			return nil, fmt.Errorf("empty type parameter")
		}
	}
	return out, nil
}

func (t StructTag) String() string {
	s := fmt.Sprintf("%s::%s::%s", t.Address, t.Module, t.Name)
	if len(t.TypeParams) > 0 {
		s += "<" + strings.Join(t.TypeParams, ", ") + ">"
	}
	return s
}

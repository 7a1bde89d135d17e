package docstore

import "strings"

// Merge applies patch onto a copy of base and returns it.
// A dotted key such as "nextNumbers.invoice" sets a nested field, creating
// intermediate maps as needed; other keys replace the top-level value.
func Merge(base, patch Document) Document {
	out := base.Clone()
	if out == nil {
		out = Document{}
	}
	for k, v := range patch {
		setPath(out, strings.Split(k, "."), cloneValue(v))
	}
	return out
}

func setPath(m map[string]any, path []string, v any) {
	if len(path) == 1 {
		m[path[0]] = v
		return
	}
	child, ok := m[path[0]].(map[string]any)
	if !ok {
		if d, isDoc := m[path[0]].(Document); isDoc {
			child = d
		} else {
			child = map[string]any{}
		}
		m[path[0]] = child
	}
	setPath(child, path[1:], v)
}

// Lookup resolves a possibly dotted field path within d
func Lookup(d Document, field string) (any, bool) {
	var cur any = map[string]any(d)
	for _, part := range strings.Split(field, ".") {
		var m map[string]any
		switch t := cur.(type) {
		case map[string]any:
			m = t
		case Document:
			m = t
		default:
			return nil, false
		}
		v, ok := m[part]
		if !ok {
			return nil, false
		}
		cur = v
	}
	return cur, true
}

// internal/plc/response.go
package plc

// mapResponse is a ReadResponse backed by a map.
type mapResponse struct {
	values map[string]any
}

// NewReadResponse wraps values. The map is copied.
func NewReadResponse(values map[string]any) ReadResponse {
	cp := make(map[string]any, len(values))
	for k, v := range values {
		cp[k] = v
	}
	return &mapResponse{values: cp}
}

func (r *mapResponse) FieldNames() []string {
	out := make([]string, 0, len(r.values))
	for k := range r.values {
		out = append(out, k)
	}
	return out
}

func (r *mapResponse) Value(name string) any {
	return r.values[name]
}

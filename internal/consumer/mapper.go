// internal/consumer/mapper.go
package consumer

import "github.com/tamzrod/tag-poller/internal/plc"

// toBody copies every returned field into a new map. Values pass through untouched.
func toBody(resp plc.ReadResponse) map[string]any {
	if resp == nil {
		return map[string]any{}
	}
	names := resp.FieldNames()
	body := make(map[string]any, len(names))
	for _, name := range names {
		body[name] = resp.Value(name)
	}
	return body
}

// internal/status/snapshot.go
package status

// Snapshot is the health of one unit after a poll cycle.
// It contains no logic and no memory of the past beyond current state.
type Snapshot struct {
	Health         uint16 `cbor:"health"`
	LastErrorCode  uint16 `cbor:"last_error_code"`
	SecondsInError uint16 `cbor:"seconds_in_error"`
}

func HealthName(h uint16) string {
	switch h {
	case HealthOK:
		return "ok"
	case HealthError:
		return "error"
	default:
		return "unknown"
	}
}

// internal/driver/snmp/oid.go
package snmp

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseOID validates a numeric OID and returns it with a leading dot,
// the form gosnmp reports in responses.
func ParseOID(s string) (string, error) {
	oid := strings.TrimSpace(s)
	if oid == "" {
		return "", fmt.Errorf("snmp: empty oid")
	}
	oid = strings.TrimPrefix(oid, ".")

	parts := strings.Split(oid, ".")
	if len(parts) < 2 {
		return "", fmt.Errorf("snmp: oid %q: need at least two arcs", s)
	}
	for _, p := range parts {
		if _, err := strconv.ParseUint(p, 10, 32); err != nil {
			return "", fmt.Errorf("snmp: oid %q: invalid arc %q", s, p)
		}
	}
	return "." + oid, nil
}

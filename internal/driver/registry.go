// internal/driver/registry.go
package driver

import (
	"log/slog"

	"github.com/tamzrod/tag-poller/internal/driver/modbus"
	"github.com/tamzrod/tag-poller/internal/driver/simulated"
	"github.com/tamzrod/tag-poller/internal/driver/snmp"
	"github.com/tamzrod/tag-poller/internal/plc"
)

// NewManager returns a DriverManager with every built-in driver registered.
func NewManager(logger *slog.Logger) *plc.DriverManager {
	if logger == nil {
		logger = slog.Default()
	}
	return plc.NewDriverManager(
		modbus.NewDriver(logger),
		snmp.NewDriver(logger),
		simulated.NewDriver(logger),
	)
}

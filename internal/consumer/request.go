// internal/consumer/request.go
package consumer

import (
	"fmt"

	"github.com/tamzrod/tag-poller/internal/plc"
)

// buildRequest adds one item per tag with a string address.
// Anything else is logged and left out; nothing here fails the poll.
func (c *PollingConsumer) buildRequest() plc.ReadRequest {
	b := c.conn.ReadRequestBuilder()

	for name, v := range c.tags {
		address, ok := v.(string)
		if !ok {
			c.logger.Error("tag skipped: address must be a string, use a map of string addresses",
				"tag", name,
				"type", fmt.Sprintf("%T", v),
			)
			continue
		}
		if err := b.AddItem(name, address); err != nil {
			c.logger.Error("tag skipped: address rejected by driver",
				"tag", name,
				"address", address,
				"err", err,
			)
		}
	}

	return b.Build()
}

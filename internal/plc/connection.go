// internal/plc/connection.go
package plc

import (
	"context"
	"errors"

	"github.com/tamzrod/tag-poller/internal/future"
)

var (
	ErrNotConnected = errors.New("plc: not connected")
	ErrClosed       = errors.New("plc: connection closed")
)

// Connection is a stateful link to one device.
// Implementations serialize protocol traffic internally.
type Connection interface {
	IsConnected() bool
	ReadRequestBuilder() ReadRequestBuilder
	Reconnect(ctx context.Context) error
	Close() error
}

// ReadRequestBuilder collects tag items for one read.
// AddItem returns an error if the address is not valid for the driver.
type ReadRequestBuilder interface {
	AddItem(name, address string) error
	Build() ReadRequest
}

// ReadRequest is a built, not yet submitted read.
type ReadRequest interface {
	TagNames() []string
	Execute() *future.Future[ReadResponse]
}

// ReadResponse exposes the fields the device actually returned.
type ReadResponse interface {
	FieldNames() []string
	Value(name string) any
}

// internal/exchange/exchange.go
package exchange

import (
	"time"

	"github.com/google/uuid"
)

// HeaderEndpoint names the endpoint that produced the exchange.
const HeaderEndpoint = "endpoint"

// Message is the payload carrier of an exchange.
// Body is nil until a consumer sets it.
type Message struct {
	Headers map[string]any `cbor:"headers"`
	Body    any            `cbor:"body"`
}

// SetBody replaces the body.
func (m *Message) SetBody(body any) {
	m.Body = body
}

// Exchange is one unit handed downstream per receive.
type Exchange struct {
	ID      string    `cbor:"id"`
	Created time.Time `cbor:"created"`
	In      *Message  `cbor:"in"`
}

// BodyMap returns the body as a tag map, or nil if it is not one.
func (e *Exchange) BodyMap() map[string]any {
	if e == nil || e.In == nil {
		return nil
	}
	m, _ := e.In.Body.(map[string]any)
	return m
}

// Factory creates exchanges.
type Factory interface {
	CreateExchange() *Exchange
}

// FactoryFunc adapts a function to Factory.
type FactoryFunc func() *Exchange

func (f FactoryFunc) CreateExchange() *Exchange { return f() }

type endpointFactory struct {
	endpointURI string
}

// NewFactory returns a factory that stamps every exchange with endpointURI.
func NewFactory(endpointURI string) Factory {
	return &endpointFactory{endpointURI: endpointURI}
}

func (f *endpointFactory) CreateExchange() *Exchange {
	return &Exchange{
		ID:      uuid.NewString(),
		Created: time.Now(),
		In: &Message{
			Headers: map[string]any{HeaderEndpoint: f.endpointURI},
		},
	}
}

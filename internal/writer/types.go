// internal/writer/types.go
package writer

import (
	"time"

	"github.com/tamzrod/tag-poller/internal/poller"
	"github.com/tamzrod/tag-poller/internal/status"
)

// Writer delivers poll results downstream.
type Writer interface {
	Write(res poller.PollResult) error
}

// Record is one poll result as stored in a CBOR output file.
type Record struct {
	Unit        string          `cbor:"unit"`
	At          time.Time       `cbor:"at"`
	ExchangeID  string          `cbor:"exchange_id"`
	Created     time.Time       `cbor:"created"`
	Headers     map[string]any  `cbor:"headers"`
	Body        map[string]any  `cbor:"body"`
	Err         string          `cbor:"err,omitempty"`
	Interrupted bool            `cbor:"interrupted,omitempty"`
	Status      status.Snapshot `cbor:"status"`
}

// NewRecord flattens a poll result. The exchange may be nil.
func NewRecord(res poller.PollResult) Record {
	r := Record{
		Unit:        res.UnitID,
		At:          res.At,
		Interrupted: res.Interrupted,
		Status:      res.Status,
	}
	if res.Err != nil {
		r.Err = res.Err.Error()
	}
	if ex := res.Exchange; ex != nil {
		r.ExchangeID = ex.ID
		r.Created = ex.Created
		r.Body = ex.BodyMap()
		if ex.In != nil {
			r.Headers = ex.In.Headers
		}
	}
	return r
}

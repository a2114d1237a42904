package id

import (
	"crypto/rand"

	"github.com/oklog/ulid/v2"
)

// New generates a new ULID string, used as the delivery id of an outgoing
// email. ULIDs sort by creation time, so archived invoices list in send order.
func New() string {
	return ulid.MustNew(ulid.Now(), rand.Reader).String()
}

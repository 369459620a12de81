package store

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Identifier prefixes. They keep shipment and request identifiers disjoint.
const (
	shipmentPrefix = "SHP"
	requestPrefix  = "REQ"
)

// newTransferID returns a human-readable identifier scoped to a location code,
// e.g. SHP-LJ-3F2A9C1D.
func newTransferID(prefix, locationCode string) string {
	return fmt.Sprintf("%s-%s-%s", prefix, locationCode, strings.ToUpper(uuid.New().String()[:8]))
}

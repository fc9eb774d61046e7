package activity

import (
	"strings"

	"github.com/spacelproject/admin-spacel-sub001/internal/domain"
)

// EventID builds the deterministic id of a synthesized event. The
// discriminator (usually the record status) makes each state of the same
// record a distinct event; it is omitted when empty.
func EventID(category domain.Category, recordID, discriminator string) string {
	var b strings.Builder
	b.Grow(len(category) + len(recordID) + len(discriminator) + 2)
	b.WriteString(string(category))
	b.WriteByte('_')
	b.WriteString(recordID)
	if discriminator != "" {
		b.WriteByte('_')
		b.WriteString(strings.ToLower(discriminator))
	}
	return b.String()
}

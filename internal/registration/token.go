package registration

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// newQRToken builds the opaque registration token encoded into the QR
// code. The uuid fragment guarantees uniqueness; the embedded ids are
// an operational convenience, clients must not parse the token.
func newQRToken(memberID, courseID int) string {
	return fmt.Sprintf("%d-%d-%d-%s", time.Now().UnixNano(), memberID, courseID, uuid.NewString()[:8])
}

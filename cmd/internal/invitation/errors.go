package invitation

import (
	"errors"
	"fmt"
)

// ConflictEventUser is the ConflictError field for a duplicate (event, user) invitation.
const ConflictEventUser = "event_user"

// errNotPending is returned by stores when a conditional transition finds a non-pending row.
var errNotPending = errors.New("invitation is not pending")

// MaterializeError reports that an approval committed but the guest record could not be created.
// The invitation stays approved; Service.Materialize retries the second step.
type MaterializeError struct {
	InvitationID string
	Err          error
}

func (e *MaterializeError) Error() string {
	return fmt.Sprintf("invitation %s approved but guest not materialized: %v", e.InvitationID, e.Err)
}

func (e *MaterializeError) Unwrap() error { return e.Err }

// IsMaterializeError reports whether err carries a *MaterializeError.
func IsMaterializeError(err error) bool {
	var me *MaterializeError
	return errors.As(err, &me)
}

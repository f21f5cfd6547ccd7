package invite

import "guestlist/cmd/internal/errs"

// errUnknownInvite is the single answer for any token that does not resolve, so callers
// cannot tell a malformed token from a revoked one.
func errUnknownInvite(op string) error {
	return errs.NotFound(op, "invite")
}

package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountLocked indicates too many failed login attempts.
	ErrAccountLocked = errors.New("account temporarily locked")
	// ErrForbidden indicates the actor may not perform the operation.
	ErrForbidden = errors.New("forbidden")
)

// UserSafeMessage returns a message that can be shown to end users without
// leaking internals. Known sentinel errors pass through verbatim.
func UserSafeMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return "The requested record could not be found"
	case errors.Is(err, ErrInvalidCredentials):
		return "Invalid email or password"
	case errors.Is(err, ErrAccountLocked):
		return "Too many failed attempts, please try again later"
	case errors.Is(err, ErrForbidden):
		return "You are not allowed to perform this action"
	default:
		return "Something went wrong, please try again"
	}
}

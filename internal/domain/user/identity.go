package user

// Identity is the logged-in account as the tracking session sees it:
// read-only, owned by the auth layer. A nil *Identity disables presence
// publishing but leaves the rest of the session functional.
type Identity struct {
	ID   int64
	Role Role
}

package shared

import "time"

// Collection names in the record store.
const (
	CollectionUsers  = "users"
	CollectionTokens = "tokens"
	CollectionChecks = "checks"
)

// Check states as judged by the worker.
const (
	StateUp   = "up"
	StateDown = "down"
)

// User is the stored account record, keyed by phone number.
type User struct {
	Phone          string   `json:"phone"`
	FirstName      string   `json:"firstName"`
	LastName       string   `json:"lastName"`
	HashedPassword string   `json:"hashedPassword,omitempty"`
	TOSAgreement   bool     `json:"tosAgreement"`
	Checks         []string `json:"checks,omitempty"`
}

// Public returns a copy safe to hand back to clients: the password digest
// never leaves the store.
func (u User) Public() User {
	u.HashedPassword = ""
	return u
}

// Token is an opaque login credential bound to a phone, keyed by its ID.
type Token struct {
	ID      string    `json:"id"`
	Phone   string    `json:"phone"`
	Expires time.Time `json:"expires"`
}

// ExpiredAt reports whether the token is no longer valid at the given time.
func (t Token) ExpiredAt(now time.Time) bool {
	return !now.Before(t.Expires)
}

// Check is a user-owned probe target, keyed by its ID. State and LastChecked
// are maintained by the worker and absent until the first probe.
type Check struct {
	ID             string    `json:"id"`
	UserPhone      string    `json:"userPhone"`
	Protocol       string    `json:"protocol"`
	URL            string    `json:"url"`
	Method         string    `json:"method"`
	SuccessCodes   []int     `json:"successCodes"`
	TimeoutSeconds int       `json:"timeoutSeconds"`
	State          string    `json:"state,omitzero"`
	LastChecked    time.Time `json:"lastChecked,omitzero"`
}

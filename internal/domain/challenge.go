package domain

// Challenge names exchanged with the identity-provider host. MagicLink is the
// custom challenge this service owns; the password pair exists only so the
// legacy password path can coexist with magic-link logins.
const (
	ChallengeMagicLink     = "MAGIC_LINK"
	ChallengePasswordStart = "PASSWORD_START"
	ChallengePassword      = "PASSWORD_VERIFY"
)

// ChallengeAttempt is one completed step of an authentication session.
type ChallengeAttempt struct {
	Name   string
	Passed bool
}

// ChallengeDecision tells the host what to do next with a session. Exactly
// one of the three outcomes is active: issue tokens, fail, or present
// NextChallenge.
type ChallengeDecision struct {
	IssueTokens        bool
	FailAuthentication bool
	NextChallenge      string
}

// ChallengeExchange is the transient output of challenge creation. The
// expected answer stays private to the provider; public parameters are safe
// to show the client.
type ChallengeExchange struct {
	ExpectedAnswer   string
	PublicParameters map[string]string
}

// Public parameter keys and status values for the magic-link challenge.
const (
	ParamChallenge = "challenge"
	ParamStatus    = "status"

	StatusPending  = "PENDING"
	StatusNotFound = "NOT_FOUND"
	StatusExpired  = "EXPIRED"
)

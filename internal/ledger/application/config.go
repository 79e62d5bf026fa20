package application

// Config carries the lifecycle policy knobs.
type Config struct {
	// AllowProjectReopen enables the reopen path for project statements.
	// Partners can always reopen; whether projects may is a business policy
	// still under discussion, so it is a switch rather than hard-coded.
	AllowProjectReopen bool
	// EnforceContinuity rejects a chained statement whose supplied opening
	// balance deviates from the prior statement's resulting balance. When
	// off, continuity is advisory only (the suggestion is still returned).
	EnforceContinuity bool
}

// DefaultConfig returns the recommended policy: continuity enforced,
// project reopen disabled.
func DefaultConfig() Config {
	return Config{EnforceContinuity: true}
}

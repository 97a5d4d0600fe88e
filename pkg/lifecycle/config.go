package lifecycle

import "time"

// Config holds lifecycle settings sourced from the environment.
type Config struct {
	// ImpersonationSecret signs impersonation grants. With an empty secret
	// the impersonation surface stays disabled.
	ImpersonationSecret string `env:"TENANT_IMPERSONATION_SECRET"`

	// GrantTTL bounds how long an issued grant stays redeemable.
	GrantTTL time.Duration `env:"TENANT_GRANT_TTL" envDefault:"15m"`

	// DefaultTrialDays is applied when provisioning does not specify a trial.
	DefaultTrialDays int `env:"TENANT_DEFAULT_TRIAL_DAYS" envDefault:"14"`
}

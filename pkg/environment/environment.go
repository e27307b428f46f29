// Package environment names the deployment environment the process runs in and
// carries it through request contexts for environment-aware behaviour such as
// sandbox checkout links and log attributes.
package environment

import "strings"

// Environment represents application environment.
type Environment string

const (
	Development Environment = "development"
	Staging     Environment = "staging"
	Production  Environment = "production"
)

// Parse normalises common spellings ("prod", "stage", "dev") to an Environment.
// Unknown values fall back to Development.
func Parse(s string) Environment {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "production", "prod":
		return Production
	case "staging", "stage":
		return Staging
	default:
		return Development
	}
}

func (e Environment) String() string { return string(e) }

func (e Environment) IsProduction() bool { return e == Production }

// IsSandbox reports whether provider sandbox credentials and test payers are expected.
func (e Environment) IsSandbox() bool { return e != Production }

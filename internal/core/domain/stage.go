package domain

// Stage is the onboarding checkpoint a user currently occupies.
type Stage string

const (
	StageNeedsPassword     Stage = "needs_password"
	StageNeedsOnboarding   Stage = "needs_onboarding"
	StageNeedsProfileSetup Stage = "needs_profile_setup"
	StageComplete          Stage = "complete"
)

// CredentialPolicy selects which signup/login flow is in force. The source
// system shipped both a temporary-password flow and a password-less
// email-only flow; which one applies is configuration, not a guess.
type CredentialPolicy string

const (
	// PolicyPasswordRequired gates login on a secret and routes new users
	// through the set-password stage before onboarding.
	PolicyPasswordRequired CredentialPolicy = "password"
	// PolicyEmailOnly authenticates by email alone; the password stage is
	// skipped entirely.
	PolicyEmailOnly CredentialPolicy = "email_only"
)

// RequiresPassword reports whether the policy gates login on a secret.
func (p CredentialPolicy) RequiresPassword() bool {
	return p != PolicyEmailOnly
}

// stageOrder fixes the forward progression of stages; a legal transition
// sequence only ever advances through this list.
var stageOrder = map[Stage]int{
	StageNeedsPassword:     0,
	StageNeedsOnboarding:   1,
	StageNeedsProfileSetup: 2,
	StageComplete:          3,
}

// Before reports whether s comes strictly earlier than other in the
// onboarding progression.
func (s Stage) Before(other Stage) bool {
	return stageOrder[s] < stageOrder[other]
}

// DeriveStage computes the stage from persisted flags. It is evaluated fresh
// on every session read; the result is never cached across mutations.
func DeriveStage(flags StageFlags, policy CredentialPolicy) Stage {
	switch {
	case policy.RequiresPassword() && !flags.IsPasswordSet:
		return StageNeedsPassword
	case !flags.OnboardingComplete:
		return StageNeedsOnboarding
	case !flags.ProfileSetupComplete:
		return StageNeedsProfileSetup
	default:
		return StageComplete
	}
}

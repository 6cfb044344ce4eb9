package ports

import "github.com/konekta/identity/internal/core/domain"

// Apply writes the supplied fields of the patch onto the user in place.
// Omitted fields are left untouched; a supplied interests slice replaces the
// stored set wholesale.
func (p ProfilePatch) Apply(u *domain.User) {
	if p.Username != nil {
		u.Profile.Username = *p.Username
	}
	if p.FullName != nil {
		u.Profile.FullName = *p.FullName
	}
	if p.Bio != nil {
		u.Profile.Bio = *p.Bio
	}
	if p.AvatarRef != nil {
		u.Profile.AvatarRef = *p.AvatarRef
	}
	if p.Interests != nil {
		u.Profile.Interests = append([]string(nil), p.Interests...)
	}
	if p.IsNewUser != nil {
		u.Flags.IsNewUser = *p.IsNewUser
	}
	if p.IsPasswordSet != nil {
		u.Flags.IsPasswordSet = *p.IsPasswordSet
	}
	if p.OnboardingComplete != nil {
		u.Flags.OnboardingComplete = *p.OnboardingComplete
	}
	if p.ProfileSetupComplete != nil {
		u.Flags.ProfileSetupComplete = *p.ProfileSetupComplete
	}
}

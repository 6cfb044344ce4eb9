package domain

import (
	"strings"
	"time"
)

// Profile holds the user-editable part of an account. Username stays empty
// until profile setup assigns one; once set it is unique across all records.
type Profile struct {
	Username  string   `json:"username,omitempty"`
	FullName  string   `json:"fullName,omitempty"`
	Bio       string   `json:"bio,omitempty"`
	AvatarRef string   `json:"avatarRef,omitempty"`
	Interests []string `json:"interests,omitempty"`
}

// StageFlags drive onboarding stage derivation. A *Complete flag set via an
// explicit skip is indistinguishable from a normal completion.
type StageFlags struct {
	IsNewUser            bool `json:"isNewUser"`
	IsPasswordSet        bool `json:"isPasswordSet"`
	OnboardingComplete   bool `json:"onboardingComplete"`
	ProfileSetupComplete bool `json:"profileSetupComplete"`
}

// User is the canonical identity + profile aggregate. Exactly one record
// exists per normalized email.
type User struct {
	ID         string     `json:"id"`
	Email      string     `json:"email"`
	FirstName  string     `json:"firstName,omitempty"`
	LastName   string     `json:"lastName,omitempty"`
	SecretHash string     `json:"-"`
	Profile    Profile    `json:"profile"`
	Flags      StageFlags `json:"flags"`
	// PendingSync marks a record mutated locally while the remote service
	// was unreachable; the record diverges from the backend until a later
	// sync clears it.
	PendingSync bool      `json:"-"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// NormalizeEmail lowercases and trims an email so it can serve as a unique key.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Clone returns a deep copy, so callers can hand records across boundaries
// without sharing the interests slice.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	clone := *u
	if u.Profile.Interests != nil {
		clone.Profile.Interests = append([]string(nil), u.Profile.Interests...)
	}
	return &clone
}

// Sanitized returns a copy with the credential secret erased. Every value
// leaving the core goes through this projection.
func (u *User) Sanitized() *User {
	clone := u.Clone()
	if clone == nil {
		return nil
	}
	clone.SecretHash = ""
	return clone
}

// HasInterest reports whether the interest is already recorded.
func (u *User) HasInterest(interest string) bool {
	for _, it := range u.Profile.Interests {
		if it == interest {
			return true
		}
	}
	return false
}

// AddInterests merges new interests into the profile, preserving order and
// dropping duplicates so repeated onboarding submissions stay idempotent.
func (u *User) AddInterests(interests []string) {
	for _, it := range interests {
		it = strings.TrimSpace(it)
		if it == "" || u.HasInterest(it) {
			continue
		}
		u.Profile.Interests = append(u.Profile.Interests, it)
	}
}

package service

import "github.com/konekta/identity/internal/core/domain"

// Destination is the navigation target a UI collaborator renders next.
type Destination string

const (
	DestLogin          Destination = "/login"
	DestChangePassword Destination = "/change-password"
	DestOnboarding     Destination = "/onboarding"
	DestProfileSetup   Destination = "/profile-setup"
	DestProfile        Destination = "/profile"
)

// stageDestinations maps each onboarding stage to its screen.
var stageDestinations = map[domain.Stage]Destination{
	domain.StageNeedsPassword:     DestChangePassword,
	domain.StageNeedsOnboarding:   DestOnboarding,
	domain.StageNeedsProfileSetup: DestProfileSetup,
	domain.StageComplete:          DestProfile,
}

// RouteStage maps a stage to its destination. Unknown stages route to login
// rather than guessing.
func RouteStage(stage domain.Stage) Destination {
	if dest, ok := stageDestinations[stage]; ok {
		return dest
	}
	return DestLogin
}

// RouteSession recomputes the navigation target for a session. A nil session
// is anonymous and routes to login. Pure function, no side effects.
func RouteSession(sess *domain.Session) Destination {
	if sess == nil || sess.User == nil {
		return DestLogin
	}
	return RouteStage(sess.Stage)
}

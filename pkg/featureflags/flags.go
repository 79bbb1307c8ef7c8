// Package featureflags answers the boolean feature questions the
// authorization core asks at evaluation time.
package featureflags

import (
	"context"
	"os"
	"strings"
)

// EnvRsvpPastEvents is the environment variable that allows RSVPs to events
// whose date has passed.
const EnvRsvpPastEvents = "FEATURE_RSVP_PAST_EVENTS"

// Provider reports feature flag values. Implementations must be safe for
// concurrent use and cheap enough to call on every ability check.
type Provider interface {
	AllowRsvpPastEvents(ctx context.Context) bool
}

// Static is a fixed flag set.
type Static struct {
	RsvpPastEvents bool
}

// AllowRsvpPastEvents implements Provider.
func (s Static) AllowRsvpPastEvents(context.Context) bool {
	return s.RsvpPastEvents
}

// EnvProvider reads flags from the process environment on every call.
// Unset or unparsable values are false.
type EnvProvider struct{}

// AllowRsvpPastEvents implements Provider.
func (EnvProvider) AllowRsvpPastEvents(context.Context) bool {
	return parseBool(os.Getenv(EnvRsvpPastEvents))
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

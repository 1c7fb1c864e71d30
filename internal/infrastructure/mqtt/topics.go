package mqtt

import "fmt"

// Topic prefixes for the whip agent's published topics.
//
// The hierarchy is deliberately tiny:
//
//	whip/state/{side}   retained per-side actuator state
//	whip/agent/status   retained agent presence (online/offline, also LWT)
const (
	// TopicPrefix is the base for all whip topics.
	TopicPrefix = "whip"

	// TopicPrefixAgent is the base for agent presence topics.
	TopicPrefixAgent = "whip/agent"
)

// Topics provides builders for whip MQTT topics.
// Using these helpers keeps topic naming consistent across the codebase.
type Topics struct{}

// SideState returns the retained state topic for one actuator side.
//
// Example: whip/state/left
func (Topics) SideState(side string) string {
	return fmt.Sprintf("%s/state/%s", TopicPrefix, side)
}

// AgentStatus returns the agent presence topic.
// This is also the LWT topic, so a crash flips it to offline.
//
// Example: whip/agent/status
func (Topics) AgentStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixAgent)
}

// AllSideStates returns a pattern matching every side's state topic.
//
// Pattern: whip/state/+
func (Topics) AllSideStates() string {
	return fmt.Sprintf("%s/state/+", TopicPrefix)
}

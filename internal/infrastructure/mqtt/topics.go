package mqtt

import (
	"fmt"
	"strconv"
	"strings"
)

// Topic prefixes. All topics use the flat scheme jughead/{category}/{kind}/{id}.
const (
	// TopicPrefix is the root of every jughead topic.
	TopicPrefix = "jughead"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "jughead/system"

	// DeviceKindBall is the device kind segment for colour balls.
	DeviceKindBall = "ball"
)

// Topics provides builders for jughead MQTT topics.
//
//	topics := mqtt.Topics{}
//	topics.BallCommand(2) // "jughead/command/ball/2"
type Topics struct{}

// BallCommand returns the topic commands for one ball arrive on.
func (Topics) BallCommand(id int) string {
	return fmt.Sprintf("%s/command/%s/%d", TopicPrefix, DeviceKindBall, id)
}

// BallAck returns the topic command acknowledgements for one ball go to.
func (Topics) BallAck(id int) string {
	return fmt.Sprintf("%s/ack/%s/%d", TopicPrefix, DeviceKindBall, id)
}

// BallState returns the retained state topic for one ball.
func (Topics) BallState(id int) string {
	return fmt.Sprintf("%s/state/%s/%d", TopicPrefix, DeviceKindBall, id)
}

// SystemStatus returns the system status topic used for online, offline and LWT.
func (Topics) SystemStatus() string {
	return TopicPrefixSystem + "/status"
}

// AllBallCommands returns a pattern matching commands for every ball.
//
// Pattern: jughead/command/ball/+
func (Topics) AllBallCommands() string {
	return fmt.Sprintf("%s/command/%s/+", TopicPrefix, DeviceKindBall)
}

// AllBallStates returns a pattern matching every ball state topic.
//
// Pattern: jughead/state/ball/+
func (Topics) AllBallStates() string {
	return fmt.Sprintf("%s/state/%s/+", TopicPrefix, DeviceKindBall)
}

// AllTopics returns a pattern matching all jughead topics.
func (Topics) AllTopics() string {
	return TopicPrefix + "/#"
}

// ParseBallTopic extracts the category and ball id from a topic of the form
// jughead/{category}/ball/{id}. ok is false for any other shape or a
// non-numeric id.
func ParseBallTopic(topic string) (category string, id int, ok bool) {
	parts := strings.Split(topic, "/")
	if len(parts) != 4 || parts[0] != TopicPrefix || parts[2] != DeviceKindBall {
		return "", 0, false
	}
	n, err := strconv.Atoi(parts[3])
	if err != nil {
		return "", 0, false
	}
	return parts[1], n, true
}

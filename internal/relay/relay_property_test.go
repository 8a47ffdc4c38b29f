package relay

import (
	"encoding/json"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// Messages from a single origin connection are relayed in submission order.
func TestSingleOriginOrderingProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("click events from one origin arrive in submission order", prop.ForAll(
		func(coords []float64) bool {
			svc, _ := newTestService(nil)
			h := svc.Handler()

			robot := newTestClient(h, "conn-robot")
			driver := newTestClient(h, "conn-driver")

			h.HandleMessage(robot, &Message{Kind: KindRobotAlive, RobotID: "R-1"})
			h.HandleMessage(driver, &Message{Kind: KindJoinRobot, RobotID: "R-1", UserID: "D-1"})

			// Discard the join announcement.
			<-robot.SendChan()

			// Commits bypass the hover throttle, so every event relays.
			for i := range coords {
				h.HandleMessage(driver, NewClickMessage(coords[i], coords[i], true, "R-1"))
			}

			for i := range coords {
				select {
				case data := <-robot.SendChan():
					var msg Message
					if err := json.Unmarshal(data, &msg); err != nil {
						return false
					}
					if msg.Kind != KindClickToDrive || msg.XCoord == nil || *msg.XCoord != coords[i] {
						return false
					}
				default:
					return false
				}
			}
			return true
		},
		gen.SliceOfN(10, gen.Float64Range(0, 1)),
	))

	properties.Property("control relay preserves content and annotates origin", prop.ForAll(
		func(content string) bool {
			svc, _ := newTestService(nil)
			h := svc.Handler()

			robot := newTestClient(h, "conn-robot")
			driver := newTestClient(h, "conn-driver")

			h.HandleMessage(robot, &Message{Kind: KindRobotAlive, RobotID: "R-1"})
			h.HandleMessage(driver, &Message{Kind: KindJoinRobot, RobotID: "R-1", UserID: "D-1"})
			<-robot.SendChan()

			h.HandleMessage(driver, &Message{Kind: KindControl, Target: "R-1", Content: content})

			select {
			case data := <-robot.SendChan():
				var msg Message
				if err := json.Unmarshal(data, &msg); err != nil {
					return false
				}
				return msg.Kind == KindControl &&
					msg.Target == "R-1" &&
					msg.Content == content &&
					msg.Origin == "conn-driver"
			default:
				return false
			}
		},
		gen.AnyString(),
	))

	properties.TestingRun(t)
}

// Message round-trips preserve the click payload exactly.
func TestClickMessageSerializationProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("click payloads survive serialization", prop.ForAll(
		func(x, y float64, attempt bool) bool {
			msg := NewClickMessage(x, y, attempt, "R-1")

			data, err := json.Marshal(msg)
			if err != nil {
				return false
			}

			var parsed Message
			if err := json.Unmarshal(data, &parsed); err != nil {
				return false
			}

			return parsed.Kind == KindClickToDrive &&
				parsed.Target == "R-1" &&
				parsed.XCoord != nil && *parsed.XCoord == x &&
				parsed.YCoord != nil && *parsed.YCoord == y &&
				parsed.Attempt == attempt
		},
		gen.Float64Range(0, 1),
		gen.Float64Range(0, 1),
		gen.Bool(),
	))

	properties.TestingRun(t)
}

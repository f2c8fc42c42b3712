package gatewaytest

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/agentstation/gatelink/pkg/events"
)

var simulatedUsers = []string{"alice", "bob", "carol"}

// Simulate emits a synthetic event every interval until ctx is done. It
// cycles through call lifecycles, event summary counters sent as strings and
// operator states with a numeric withdraw reason, the shapes the gateway is
// known to send.
func (g *Gateway) Simulate(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for n := 1; ; n++ {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		user := simulatedUsers[rand.IntN(len(simulatedUsers))]
		for _, line := range simulatedLines(n, user) {
			g.EmitRaw(line.pkg, line.text)
		}
	}
}

type simulatedLine struct {
	pkg  events.Package
	text string
}

func simulatedLines(n int, user string) []simulatedLine {
	ref := fmt.Sprintf("call-%d", n)
	switch n % 4 {
	case 1:
		return []simulatedLine{{"telephony", fmt.Sprintf(
			`{"eventName":"OnCallCreated","loginName":%q,"call":{"callRef":%q,"state":"RINGING_INCOMING"},"legs":[{"deviceId":"1001","state":"ALERTING","ringing":true}]}`,
			user, ref)}}
	case 2:
		return []simulatedLine{
			{"telephony", fmt.Sprintf(
				`{"eventName":"OnCallRemoved","loginName":%q,"callRef":%q,"cause":"NORMALCLEARING"}`,
				user, fmt.Sprintf("call-%d", n-1))},
			{"eventSummary", fmt.Sprintf(
				`{"eventName":"OnEventSummaryUpdated","loginName":%q,"eventSummary":{"missedCalls":"%d","voiceMessages":"0","callbackRequests":0,"faxes":0,"textMessages":"1"}}`,
				user, n/4+1)},
		}
	case 3:
		return []simulatedLine{{"callCenterAgent", fmt.Sprintf(
			`{"eventName":"OnOperatorStateChanged","loginName":%q,"state":{"mainState":"WITHDRAW","proAcdDeviceNumber":"2001","withdrawReason":%d,"withdraw":true}}`,
			user, rand.IntN(5))}}
	default:
		return []simulatedLine{{"routing", fmt.Sprintf(
			`{"eventName":"OnRoutingStateChanged","loginName":%q,"routingState":{"forward":"VOICEMAIL","dnd":false}}`,
			user)}}
	}
}

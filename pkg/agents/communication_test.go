package agents

import (
	"context"
	stderrors "errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/theapemachine/taskflow-go/pkg/errors"
)

func TestCommunicationAgentUnconfigured(t *testing.T) {
	Convey("Given an agent without Twilio credentials", t, func() {
		agent := NewCommunicationAgent(CommunicationConfig{})

		Convey("SMS fails before any provider call", func() {
			result, err := agent.SMS(context.Background(), "+15550001111", "hi")
			So(result, ShouldBeEmpty)
			So(stderrors.Is(err, errors.ErrAgentNotConfigured), ShouldBeTrue)
		})

		Convey("Call fails the same way", func() {
			result, err := agent.Call(context.Background(), "+15550001111", "hi")
			So(result, ShouldBeEmpty)
			So(stderrors.Is(err, errors.ErrAgentNotConfigured), ShouldBeTrue)
		})
	})

	Convey("Given only part of the credential set", t, func() {
		agent := NewCommunicationAgent(CommunicationConfig{
			AccountSID: "AC0123456789",
		})

		Convey("The agent still counts as unconfigured", func() {
			_, err := agent.SMS(context.Background(), "+15550001111", "hi")
			So(stderrors.Is(err, errors.ErrAgentNotConfigured), ShouldBeTrue)
		})
	})
}

func TestCommunicationAgentHonorsCancellation(t *testing.T) {
	Convey("Given a configured agent and a cancelled context", t, func() {
		agent := NewCommunicationAgent(CommunicationConfig{
			AccountSID: "AC0123456789",
			AuthToken:  "token",
			FromNumber: "+15550009999",
		})

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		Convey("SMS stops before reaching the provider", func() {
			_, err := agent.SMS(ctx, "+15550001111", "hi")
			So(stderrors.Is(err, context.Canceled), ShouldBeTrue)
		})

		Convey("Call stops before reaching the provider", func() {
			_, err := agent.Call(ctx, "+15550001111", "hi")
			So(stderrors.Is(err, context.Canceled), ShouldBeTrue)
		})
	})
}

func TestEscapeXML(t *testing.T) {
	Convey("TwiML payload text is escaped", t, func() {
		So(escapeXML("tea & biscuits"), ShouldEqual, "tea &amp; biscuits")
		So(escapeXML("<Say>nested</Say>"), ShouldEqual, "&lt;Say&gt;nested&lt;/Say&gt;")
		So(escapeXML("plain words"), ShouldEqual, "plain words")
	})
}

func TestSidUnwrapsNil(t *testing.T) {
	Convey("A missing SID renders as the empty string", t, func() {
		So(sid(nil), ShouldBeEmpty)

		value := "SM1234"
		So(sid(&value), ShouldEqual, "SM1234")
	})
}

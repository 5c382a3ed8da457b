package flow

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestContextInterpolate(t *testing.T) {
	Convey("Given a run context with adapter results", t, func() {
		ctx := Context{
			ContextKnowledgeAnswer: "Jane Doe",
			ContextSearchResult:    "Sunny, 24C",
		}

		Convey("Text without placeholders passes through", func() {
			So(ctx.Interpolate("Post the summary to #general"), ShouldEqual, "Post the summary to #general")
		})

		Convey("A referenced key is substituted", func() {
			So(
				ctx.Interpolate("Post \"{knowledge_answer}\" to #general"),
				ShouldEqual,
				"Post \"Jane Doe\" to #general",
			)
		})

		Convey("Every referenced key is substituted", func() {
			So(
				ctx.Interpolate("Send {knowledge_answer}: {search_result}"),
				ShouldEqual,
				"Send Jane Doe: Sunny, 24C",
			)
		})

		Convey("The same key may appear more than once", func() {
			So(
				ctx.Interpolate("{knowledge_answer} and {knowledge_answer}"),
				ShouldEqual,
				"Jane Doe and Jane Doe",
			)
		})

		Convey("One missing key leaves the whole text untouched", func() {
			text := "Send {knowledge_answer} and {missing_key}"
			So(ctx.Interpolate(text), ShouldEqual, text)
		})

		Convey("Braces that are not a well-formed placeholder survive", func() {
			text := "Keep {not-a-key!} and {} exactly as written"
			So(ctx.Interpolate(text), ShouldEqual, text)
		})
	})

	Convey("Given an empty run context", t, func() {
		ctx := Context{}

		Convey("Placeholders are preserved verbatim", func() {
			text := "Create an event about {knowledge_answer}"
			So(ctx.Interpolate(text), ShouldEqual, text)
		})
	})
}

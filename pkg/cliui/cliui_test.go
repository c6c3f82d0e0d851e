package cliui_test

import (
	"bytes"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/mnemo/pkg/cliui"
)

var _ = Describe("FormatDuration", func() {
	It("formats sub-second durations as milliseconds", func() {
		Expect(cliui.FormatDuration(12 * time.Millisecond)).To(Equal("12ms"))
	})

	It("formats longer durations as seconds", func() {
		Expect(cliui.FormatDuration(3200 * time.Millisecond)).To(Equal("3.2s"))
	})
})

var _ = Describe("Mark", func() {
	It("returns the success mark for nil", func() {
		Expect(cliui.Mark(nil)).To(Equal(cliui.SuccessMark))
	})

	It("returns the fail mark for errors", func() {
		Expect(cliui.Mark(errors.New("boom"))).To(Equal(cliui.FailMark))
	})
})

var _ = Describe("Step", func() {
	It("returns the function's error and prints the message", func() {
		var buf bytes.Buffer
		want := errors.New("unreachable")
		err := cliui.Step(&buf, "Pinging server", func() error { return want })
		Expect(err).To(MatchError(want))
		Expect(buf.String()).To(ContainSubstring("Pinging server"))
		Expect(buf.String()).To(HaveSuffix("\n"))
	})

	It("returns nil when the function succeeds", func() {
		var buf bytes.Buffer
		Expect(cliui.Step(&buf, "Working", func() error { return nil })).To(Succeed())
	})
})

var _ = Describe("KeyValue", func() {
	It("shows a placeholder for empty values", func() {
		Expect(cliui.KeyValue("mcp.token", 10, "")).To(ContainSubstring("<not set>"))
	})

	It("includes the key and value", func() {
		line := cliui.KeyValue("api.listen", 10, ":8081")
		Expect(line).To(ContainSubstring("api.listen"))
		Expect(line).To(ContainSubstring(":8081"))
	})
})

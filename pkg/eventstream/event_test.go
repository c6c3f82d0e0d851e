package eventstream_test

import (
	"encoding/json"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/mnemo/pkg/eventstream"
)

var _ = Describe("Event", func() {
	It("marshals MemoryEvent with expected top-level keys", func() {
		event := eventstream.NewMemoryEvent(
			eventstream.EventTypeMemoryRemembered,
			"developer",
			"mcp:memory:",
			"favorite_color",
		)

		payload, err := json.Marshal(event)
		Expect(err).NotTo(HaveOccurred())

		var got map[string]any
		Expect(json.Unmarshal(payload, &got)).To(Succeed())

		Expect(got).To(HaveKey("schema_version"))
		Expect(got).To(HaveKey("event_type"))
		Expect(got).To(HaveKey("event_id"))
		Expect(got).To(HaveKey("emitted_at"))
		Expect(got).To(HaveKeyWithValue("client_id", "developer"))
		Expect(got).To(HaveKeyWithValue("namespace", "mcp:memory:"))
		Expect(got).To(HaveKeyWithValue("key", "favorite_color"))
		Expect(got).NotTo(HaveKey("value"))
	})

	It("stamps a unique id and the current time", func() {
		before := time.Now().UTC().Add(-time.Second)
		a := eventstream.NewMemoryEvent(eventstream.EventTypeMemoryForgotten, "c", "ns:", "k")
		b := eventstream.NewMemoryEvent(eventstream.EventTypeMemoryForgotten, "c", "ns:", "k")

		Expect(a.EventID).NotTo(Equal(b.EventID))
		Expect(a.EmittedAt).To(BeTemporally(">", before))
		Expect(a.SchemaVersion).To(Equal(eventstream.SchemaVersionV1))
	})

	It("joins namespace and key into the stored key", func() {
		event := eventstream.NewMemoryEvent(eventstream.EventTypeMemoryRemembered, "c", "mcp:memory:", "k")
		Expect(event.StoredKey()).To(Equal("mcp:memory:k"))
	})

	It("defines stable event constants", func() {
		Expect(eventstream.EventTypeMemoryRemembered).To(Equal("mnemo.memory.remembered"))
		Expect(eventstream.EventTypeMemoryForgotten).To(Equal("mnemo.memory.forgotten"))
		Expect(eventstream.ErrNilMemoryEvent).To(MatchError("nil memory event"))
	})
})

package eventstore_test

import (
	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"ledgerevents/pkg/eventstore"
)

var _ = Describe("EventStore", func() {

	BeforeEach(func() {
		_, err := pool.Exec(ctx, "TRUNCATE TABLE events, outbox, outbox_dlq RESTART IDENTITY CASCADE")
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("AppendEvents", func() {

		It("appends the first event at version 1", func() {
			tenantID := uuid.NewString()
			aggregateID := uuid.NewString()

			meta := eventstore.NewMetadata(1)
			input, err := eventstore.NewInputEvent("AccountOpened", meta, map[string]string{"owner": "alice"})
			Expect(err).NotTo(HaveOccurred())

			version, err := store.AppendEvents(ctx, tenantID, aggregateID, "Account", 0, []eventstore.InputEvent{input})
			Expect(err).NotTo(HaveOccurred())
			Expect(version).To(Equal(1))

			records, err := store.LoadEvents(ctx, tenantID, aggregateID, "Account", nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(HaveLen(1))
			Expect(records[0].Version).To(Equal(1))
			Expect(records[0].EventType).To(Equal("AccountOpened"))
			Expect(records[0].EventID).To(Equal(meta.EventID))
		})

		It("rejects a retried append that reuses an event_id already stored", func() {
			tenantID := uuid.NewString()
			aggregateID := uuid.NewString()
			otherAggregateID := uuid.NewString()

			meta := eventstore.NewMetadata(1)
			input, err := eventstore.NewInputEvent("AccountOpened", meta, map[string]string{"owner": "alice"})
			Expect(err).NotTo(HaveOccurred())

			_, err = store.AppendEvents(ctx, tenantID, aggregateID, "Account", 0, []eventstore.InputEvent{input})
			Expect(err).NotTo(HaveOccurred())

			_, err = store.AppendEvents(ctx, tenantID, otherAggregateID, "Account", 0, []eventstore.InputEvent{input})
			Expect(err).To(HaveOccurred())
			Expect(eventstore.IsConcurrencyError(err)).To(BeTrue())
		})

		It("rejects an append whose expected version is stale", func() {
			tenantID := uuid.NewString()
			aggregateID := uuid.NewString()

			meta := eventstore.NewMetadata(1)
			input, err := eventstore.NewInputEvent("AccountOpened", meta, map[string]string{"owner": "alice"})
			Expect(err).NotTo(HaveOccurred())

			_, err = store.AppendEvents(ctx, tenantID, aggregateID, "Account", 0, []eventstore.InputEvent{input})
			Expect(err).NotTo(HaveOccurred())

			_, err = store.AppendEvents(ctx, tenantID, aggregateID, "Account", 0, []eventstore.InputEvent{input})
			Expect(err).To(HaveOccurred())
			Expect(eventstore.IsConcurrencyError(err)).To(BeTrue())

			concErr, ok := eventstore.AsConcurrencyError(err)
			Expect(ok).To(BeTrue())
			Expect(concErr.ExpectedVersion).To(Equal(0))
			Expect(concErr.ActualVersion).To(Equal(1))
		})

		It("appends a batch of events in order starting after the current version", func() {
			tenantID := uuid.NewString()
			aggregateID := uuid.NewString()

			meta := eventstore.NewMetadata(1)
			first, _ := eventstore.NewInputEvent("AccountOpened", meta, map[string]string{"owner": "alice"})
			version, err := store.AppendEvents(ctx, tenantID, aggregateID, "Account", 0, []eventstore.InputEvent{first})
			Expect(err).NotTo(HaveOccurred())
			Expect(version).To(Equal(1))

			deposit1, _ := eventstore.NewInputEvent("MoneyDeposited", eventstore.Caused(meta, 1), map[string]any{"amount": "10.00"})
			deposit2, _ := eventstore.NewInputEvent("MoneyDeposited", eventstore.Caused(meta, 1), map[string]any{"amount": "5.00"})

			version, err = store.AppendEvents(ctx, tenantID, aggregateID, "Account", 1, []eventstore.InputEvent{deposit1, deposit2})
			Expect(err).NotTo(HaveOccurred())
			Expect(version).To(Equal(3))

			records, err := store.LoadEvents(ctx, tenantID, aggregateID, "Account", nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(HaveLen(3))
			Expect(records[1].Version).To(Equal(2))
			Expect(records[2].Version).To(Equal(3))
		})

		It("isolates aggregates with the same id across tenants", func() {
			aggregateID := uuid.NewString()
			tenantA := uuid.NewString()
			tenantB := uuid.NewString()

			inputA, _ := eventstore.NewInputEvent("AccountOpened", eventstore.NewMetadata(1), map[string]string{"owner": "alice"})
			inputB, _ := eventstore.NewInputEvent("AccountOpened", eventstore.NewMetadata(1), map[string]string{"owner": "alice"})

			_, err := store.AppendEvents(ctx, tenantA, aggregateID, "Account", 0, []eventstore.InputEvent{inputA})
			Expect(err).NotTo(HaveOccurred())

			version, err := store.AppendEvents(ctx, tenantB, aggregateID, "Account", 0, []eventstore.InputEvent{inputB})
			Expect(err).NotTo(HaveOccurred())
			Expect(version).To(Equal(1))

			recordsA, err := store.LoadEvents(ctx, tenantA, aggregateID, "Account", nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(recordsA).To(HaveLen(1))

			recordsB, err := store.LoadEvents(ctx, tenantB, aggregateID, "Account", nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(recordsB).To(HaveLen(1))
		})

		It("rejects an empty batch of new events", func() {
			_, err := store.AppendEvents(ctx, uuid.NewString(), uuid.NewString(), "Account", 0, nil)
			Expect(err).To(HaveOccurred())
			Expect(eventstore.IsValidationError(err)).To(BeTrue())
		})

		It("rejects a negative expected version", func() {
			meta := eventstore.NewMetadata(1)
			input, _ := eventstore.NewInputEvent("AccountOpened", meta, map[string]string{"owner": "alice"})

			_, err := store.AppendEvents(ctx, uuid.NewString(), uuid.NewString(), "Account", -1, []eventstore.InputEvent{input})
			Expect(err).To(HaveOccurred())
			Expect(eventstore.IsValidationError(err)).To(BeTrue())
		})

		It("invokes OnAppend after a successful commit", func() {
			hooked, err := eventstore.NewEventStore(ctx, pool, eventstore.Config{})
			Expect(err).NotTo(HaveOccurred())

			calls := 0
			cfg := hooked.GetConfig()
			cfg.OnAppend = func() { calls++ }
			hookedStore, err := eventstore.NewEventStore(ctx, pool, cfg)
			Expect(err).NotTo(HaveOccurred())

			meta := eventstore.NewMetadata(1)
			input, _ := eventstore.NewInputEvent("AccountOpened", meta, map[string]string{"owner": "alice"})

			_, err = hookedStore.AppendEvents(ctx, uuid.NewString(), uuid.NewString(), "Account", 0, []eventstore.InputEvent{input})
			Expect(err).NotTo(HaveOccurred())
			Expect(calls).To(Equal(1))
		})

		It("writes one outbox row per appended event", func() {
			tenantID := uuid.NewString()
			aggregateID := uuid.NewString()

			meta := eventstore.NewMetadata(1)
			input, _ := eventstore.NewInputEvent("AccountOpened", meta, map[string]string{"owner": "alice"})

			_, err := store.AppendEvents(ctx, tenantID, aggregateID, "Account", 0, []eventstore.InputEvent{input})
			Expect(err).NotTo(HaveOccurred())

			var count int
			err = pool.QueryRow(ctx, "SELECT COUNT(*) FROM outbox WHERE tenant_id = $1 AND aggregate_id = $2", tenantID, aggregateID).Scan(&count)
			Expect(err).NotTo(HaveOccurred())
			Expect(count).To(Equal(1))
		})
	})

	Describe("LoadEvents", func() {

		It("returns AggregateNotFoundError when no events exist", func() {
			_, err := store.LoadEvents(ctx, uuid.NewString(), uuid.NewString(), "Account", nil)
			Expect(err).To(HaveOccurred())
			Expect(eventstore.IsAggregateNotFound(err)).To(BeTrue())
		})

		It("honors FromVersion and Limit", func() {
			tenantID := uuid.NewString()
			aggregateID := uuid.NewString()

			var events []eventstore.InputEvent
			for i := 0; i < 5; i++ {
				e, _ := eventstore.NewInputEvent("MoneyDeposited", eventstore.NewMetadata(1), map[string]any{"amount": "1.00"})
				events = append(events, e)
			}
			_, err := store.AppendEvents(ctx, tenantID, aggregateID, "Account", 0, events)
			Expect(err).NotTo(HaveOccurred())

			records, err := store.LoadEvents(ctx, tenantID, aggregateID, "Account", &eventstore.ReadOptions{FromVersion: 3, Limit: 2})
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(HaveLen(2))
			Expect(records[0].Version).To(Equal(3))
			Expect(records[1].Version).To(Equal(4))
		})
	})
})

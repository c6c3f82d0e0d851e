package memory_test

import (
	"context"
	"errors"
	"fmt"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/mnemo/pkg/auth"
	"github.com/papercomputeco/mnemo/pkg/auth/static"
	"github.com/papercomputeco/mnemo/pkg/eventstream"
	"github.com/papercomputeco/mnemo/pkg/logger"
	"github.com/papercomputeco/mnemo/pkg/memory"
	"github.com/papercomputeco/mnemo/pkg/namespace"
	"github.com/papercomputeco/mnemo/pkg/storage"
	testutils "github.com/papercomputeco/mnemo/pkg/utils/test"
)

const (
	devToken    = "dev-token"
	readerToken = "read-token"
	writerToken = "write-token"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []*eventstream.MemoryEvent
	err    error
}

func (p *recordingPublisher) PublishMemory(_ context.Context, event *eventstream.MemoryEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) published() []*eventstream.MemoryEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*eventstream.MemoryEvent(nil), p.events...)
}

func newController() *auth.Controller {
	registry, err := static.New([]auth.TokenRecord{
		{Token: devToken, ClientID: "developer", Scopes: []auth.Scope{auth.ScopeRead, auth.ScopeWrite}},
		{Token: readerToken, ClientID: "reader", Scopes: []auth.Scope{auth.ScopeRead}},
		{Token: writerToken, ClientID: "writer", Scopes: []auth.Scope{auth.ScopeWrite}},
	})
	Expect(err).NotTo(HaveOccurred())

	controller, err := auth.NewController(registry, logger.Nop())
	Expect(err).NotTo(HaveOccurred())
	return controller
}

func newService(driver storage.Driver, prefix string, pub eventstream.Publisher) *memory.Service {
	ns, err := namespace.New(driver, prefix, logger.Nop())
	Expect(err).NotTo(HaveOccurred())

	svc, err := memory.NewService(&memory.Config{
		Controller: newController(),
		Namespacer: ns,
		Publisher:  pub,
		Logger:     logger.Nop(),
	})
	Expect(err).NotTo(HaveOccurred())
	return svc
}

var _ = Describe("Service", func() {
	var (
		ctx    context.Context
		driver *testutils.MockDriver
		pub    *recordingPublisher
		svc    *memory.Service
	)

	BeforeEach(func() {
		ctx = context.Background()
		driver = testutils.NewMockDriver()
		pub = &recordingPublisher{}
		svc = newService(driver, namespace.DefaultPrefix, pub)
	})

	Describe("NewService", func() {
		It("requires a controller and a namespacer", func() {
			_, err := memory.NewService(&memory.Config{})
			Expect(err).To(HaveOccurred())

			_, err = memory.NewService(&memory.Config{Controller: newController()})
			Expect(err).To(HaveOccurred())
		})

		It("exposes its namespace", func() {
			Expect(svc.Namespace()).To(Equal("mcp:memory:"))
		})
	})

	Describe("Remember then Recall", func() {
		It("returns the stored value", func() {
			res, err := svc.Remember(ctx, devToken, "favorite_color", "blue")
			Expect(err).NotTo(HaveOccurred())
			Expect(res).To(Equal(&memory.RememberResult{Key: "favorite_color", Value: "blue"}))

			got, err := svc.Recall(ctx, devToken, "favorite_color")
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal(&memory.RecallResult{Key: "favorite_color", Value: "blue", Found: true}))
		})

		It("stores under the namespaced key", func() {
			_, err := svc.Remember(ctx, devToken, "favorite_color", "blue")
			Expect(err).NotTo(HaveOccurred())

			value, found, err := driver.Driver.Get(ctx, "mcp:memory:favorite_color")
			Expect(err).NotTo(HaveOccurred())
			Expect(found).To(BeTrue())
			Expect(value).To(Equal("blue"))
		})

		It("overwrites with the last write", func() {
			_, err := svc.Remember(ctx, devToken, "k", "one")
			Expect(err).NotTo(HaveOccurred())
			_, err = svc.Remember(ctx, devToken, "k", "two")
			Expect(err).NotTo(HaveOccurred())

			got, err := svc.Recall(ctx, devToken, "k")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Value).To(Equal("two"))
		})

		It("accepts empty values", func() {
			_, err := svc.Remember(ctx, devToken, "k", "")
			Expect(err).NotTo(HaveOccurred())

			got, err := svc.Recall(ctx, devToken, "k")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Found).To(BeTrue())
			Expect(got.Value).To(BeEmpty())
		})

		It("reports absence as a result, not an error", func() {
			got, err := svc.Recall(ctx, devToken, "nonexistent")
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal(&memory.RecallResult{Key: "nonexistent", Found: false}))
		})
	})

	Describe("Forget", func() {
		It("removes a stored key", func() {
			_, err := svc.Remember(ctx, devToken, "favorite_color", "blue")
			Expect(err).NotTo(HaveOccurred())

			res, err := svc.Forget(ctx, devToken, "favorite_color")
			Expect(err).NotTo(HaveOccurred())
			Expect(res).To(Equal(&memory.ForgetResult{Key: "favorite_color", Forgotten: true}))

			got, err := svc.Recall(ctx, devToken, "favorite_color")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Found).To(BeFalse())
		})

		It("is idempotent", func() {
			_, err := svc.Remember(ctx, devToken, "favorite_color", "blue")
			Expect(err).NotTo(HaveOccurred())

			first, err := svc.Forget(ctx, devToken, "favorite_color")
			Expect(err).NotTo(HaveOccurred())
			Expect(first.Forgotten).To(BeTrue())

			second, err := svc.Forget(ctx, devToken, "favorite_color")
			Expect(err).NotTo(HaveOccurred())
			Expect(second.Forgotten).To(BeFalse())
		})
	})

	Describe("List", func() {
		It("returns an empty result when nothing is stored", func() {
			res, err := svc.List(ctx, devToken)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Entries).To(BeEmpty())
			Expect(res.Count()).To(BeZero())
		})

		It("returns every stored pair with short keys", func() {
			_, err := svc.Remember(ctx, devToken, "favorite_color", "blue")
			Expect(err).NotTo(HaveOccurred())
			_, err = svc.Remember(ctx, devToken, "pet", "cat")
			Expect(err).NotTo(HaveOccurred())

			res, err := svc.List(ctx, devToken)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Count()).To(Equal(2))
			Expect(res.Entries).To(ConsistOf(
				memory.Entry{Key: "favorite_color", Value: "blue"},
				memory.Entry{Key: "pet", Value: "cat"},
			))
		})

		It("hides keys stored outside the namespace", func() {
			Expect(driver.Driver.Set(ctx, "other:thing", "x")).To(Succeed())

			res, err := svc.List(ctx, devToken)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Entries).To(BeEmpty())
		})
	})

	Describe("namespace isolation", func() {
		It("keeps two namespaces on one backend apart", func() {
			other := newService(driver, "mcp:other:", nil)

			_, err := svc.Remember(ctx, devToken, "k", "mine")
			Expect(err).NotTo(HaveOccurred())
			_, err = other.Remember(ctx, devToken, "k", "theirs")
			Expect(err).NotTo(HaveOccurred())

			mine, err := svc.Recall(ctx, devToken, "k")
			Expect(err).NotTo(HaveOccurred())
			Expect(mine.Value).To(Equal("mine"))

			res, err := other.List(ctx, devToken)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Entries).To(ConsistOf(memory.Entry{Key: "k", Value: "theirs"}))

			_, err = other.Forget(ctx, devToken, "k")
			Expect(err).NotTo(HaveOccurred())

			mine, err = svc.Recall(ctx, devToken, "k")
			Expect(err).NotTo(HaveOccurred())
			Expect(mine.Found).To(BeTrue())
		})
	})

	Describe("scope enforcement", func() {
		It("rejects remember for a read-only token without touching storage", func() {
			_, err := svc.Remember(ctx, readerToken, "k", "v")
			Expect(err).To(MatchError(auth.ErrInsufficientScope))
			Expect(err).To(MatchError(auth.ErrUnauthorized))
			Expect(driver.Calls()).To(BeZero())
			Expect(driver.Count()).To(BeZero())
		})

		It("rejects forget for a read-only token and leaves the value", func() {
			_, err := svc.Remember(ctx, devToken, "k", "v")
			Expect(err).NotTo(HaveOccurred())
			before := driver.Calls()

			_, err = svc.Forget(ctx, readerToken, "k")
			Expect(err).To(MatchError(auth.ErrInsufficientScope))
			Expect(driver.Calls()).To(Equal(before))

			got, err := svc.Recall(ctx, readerToken, "k")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Value).To(Equal("v"))
		})

		It("rejects recall and list for a write-only token", func() {
			_, err := svc.Recall(ctx, writerToken, "k")
			Expect(err).To(MatchError(auth.ErrInsufficientScope))

			_, err = svc.List(ctx, writerToken)
			Expect(err).To(MatchError(auth.ErrInsufficientScope))
			Expect(driver.Calls()).To(BeZero())
		})

		It("allows writes with a write-only token", func() {
			_, err := svc.Remember(ctx, writerToken, "k", "v")
			Expect(err).NotTo(HaveOccurred())
		})
	})

	Describe("bad token", func() {
		DescribeTable("rejects every operation without touching storage",
			func(call func(token string) error) {
				err := call("bad-token")
				Expect(err).To(MatchError(auth.ErrInvalidCredential))
				Expect(err).To(MatchError(auth.ErrUnauthorized))

				err = call("")
				Expect(err).To(MatchError(auth.ErrInvalidCredential))

				Expect(driver.Calls()).To(BeZero())
				Expect(pub.published()).To(BeEmpty())
			},
			Entry("remember", func(token string) error {
				_, err := svc.Remember(ctx, token, "favorite_color", "blue")
				return err
			}),
			Entry("recall", func(token string) error {
				_, err := svc.Recall(ctx, token, "favorite_color")
				return err
			}),
			Entry("forget", func(token string) error {
				_, err := svc.Forget(ctx, token, "favorite_color")
				return err
			}),
			Entry("list", func(token string) error {
				_, err := svc.List(ctx, token)
				return err
			}),
		)
	})

	Describe("argument validation", func() {
		It("rejects an empty key", func() {
			_, err := svc.Remember(ctx, devToken, "", "v")
			Expect(err).To(MatchError(memory.ErrInvalidArgument))

			var argErr *memory.InvalidArgumentError
			Expect(errors.As(err, &argErr)).To(BeTrue())
			Expect(argErr.Field).To(Equal("key"))

			_, err = svc.Recall(ctx, devToken, "")
			Expect(err).To(MatchError(memory.ErrInvalidArgument))

			_, err = svc.Forget(ctx, devToken, "")
			Expect(err).To(MatchError(memory.ErrInvalidArgument))

			Expect(driver.Calls()).To(BeZero())
		})

		It("checks authorization before arguments", func() {
			_, err := svc.Remember(ctx, "bad-token", "", "v")
			Expect(err).To(MatchError(auth.ErrUnauthorized))
			Expect(errors.Is(err, memory.ErrInvalidArgument)).To(BeFalse())
		})
	})

	Describe("backend failures", func() {
		It("propagates unavailability as a distinct error", func() {
			driver.SetFailing(true)

			_, err := svc.Remember(ctx, devToken, "k", "v")
			Expect(err).To(MatchError(storage.ErrBackendUnavailable))
			Expect(errors.Is(err, auth.ErrUnauthorized)).To(BeFalse())

			_, err = svc.Recall(ctx, devToken, "k")
			Expect(err).To(MatchError(storage.ErrBackendUnavailable))

			_, err = svc.List(ctx, devToken)
			Expect(err).To(MatchError(storage.ErrBackendUnavailable))

			Expect(pub.published()).To(BeEmpty())
		})
	})

	Describe("cancellation", func() {
		It("does not touch storage once the caller has cancelled", func() {
			cancelled, cancel := context.WithCancel(ctx)
			cancel()

			_, err := svc.Remember(cancelled, devToken, "k", "v")
			Expect(err).To(MatchError(context.Canceled))
			Expect(driver.Calls()).To(BeZero())
		})
	})

	Describe("events", func() {
		It("publishes remembered and forgotten events without values", func() {
			_, err := svc.Remember(ctx, devToken, "favorite_color", "blue")
			Expect(err).NotTo(HaveOccurred())
			_, err = svc.Forget(ctx, devToken, "favorite_color")
			Expect(err).NotTo(HaveOccurred())

			events := pub.published()
			Expect(events).To(HaveLen(2))
			Expect(events[0].EventType).To(Equal(eventstream.EventTypeMemoryRemembered))
			Expect(events[0].ClientID).To(Equal("developer"))
			Expect(events[0].Namespace).To(Equal("mcp:memory:"))
			Expect(events[0].Key).To(Equal("favorite_color"))
			Expect(events[0].RequestID).NotTo(BeEmpty())
			Expect(events[1].EventType).To(Equal(eventstream.EventTypeMemoryForgotten))
		})

		It("does not publish when forget finds nothing", func() {
			_, err := svc.Forget(ctx, devToken, "missing")
			Expect(err).NotTo(HaveOccurred())
			Expect(pub.published()).To(BeEmpty())
		})

		It("does not publish reads", func() {
			_, err := svc.Recall(ctx, devToken, "k")
			Expect(err).NotTo(HaveOccurred())
			_, err = svc.List(ctx, devToken)
			Expect(err).NotTo(HaveOccurred())
			Expect(pub.published()).To(BeEmpty())
		})

		It("ignores publish failures", func() {
			pub.err = errors.New("broker down")

			res, err := svc.Remember(ctx, devToken, "k", "v")
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Value).To(Equal("v"))
		})
	})

	Describe("concurrency", func() {
		It("keeps every concurrent write to distinct keys", func() {
			const n = 64
			var wg sync.WaitGroup
			errs := make(chan error, n)

			for i := range n {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					defer GinkgoRecover()
					_, err := svc.Remember(ctx, devToken, fmt.Sprintf("key-%d", i), fmt.Sprintf("value-%d", i))
					errs <- err
				}(i)
			}
			wg.Wait()
			close(errs)

			for err := range errs {
				Expect(err).NotTo(HaveOccurred())
			}

			res, err := svc.List(ctx, devToken)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Count()).To(Equal(n))
			for i := range n {
				Expect(res.Entries).To(ContainElement(memory.Entry{
					Key:   fmt.Sprintf("key-%d", i),
					Value: fmt.Sprintf("value-%d", i),
				}))
			}
		})
	})
})

package storage_test

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/mnemo/pkg/storage"
)

var errTransient = errors.New("connection refused")

func fastPolicy(retries uint64) storage.RetryPolicy {
	return storage.RetryPolicy{
		Timeout:         50 * time.Millisecond,
		MaxRetries:      retries,
		InitialInterval: time.Millisecond,
		MaxInterval:     2 * time.Millisecond,
	}
}

func alwaysTransient(error) bool { return true }

var _ = Describe("Retry", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	It("returns nil on first success", func() {
		attempts := 0
		err := storage.Retry(ctx, fastPolicy(3), "get", "k", alwaysTransient, func(context.Context) error {
			attempts++
			return nil
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(attempts).To(Equal(1))
	})

	It("retries transient failures until success", func() {
		attempts := 0
		err := storage.Retry(ctx, fastPolicy(3), "get", "k", alwaysTransient, func(context.Context) error {
			attempts++
			if attempts < 3 {
				return errTransient
			}
			return nil
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(attempts).To(Equal(3))
	})

	It("surfaces exhaustion as backend unavailable", func() {
		attempts := 0
		err := storage.Retry(ctx, fastPolicy(2), "set", "k", alwaysTransient, func(context.Context) error {
			attempts++
			return errTransient
		})
		Expect(err).To(MatchError(storage.ErrBackendUnavailable))
		Expect(errors.Is(err, errTransient)).To(BeTrue())
		Expect(attempts).To(Equal(3))

		var unavailable *storage.UnavailableError
		Expect(errors.As(err, &unavailable)).To(BeTrue())
		Expect(unavailable.Op).To(Equal("set"))
		Expect(unavailable.Key).To(Equal("k"))
	})

	It("does not retry errors that are not transient", func() {
		permanentErr := errors.New("syntax error")
		attempts := 0
		err := storage.Retry(ctx, fastPolicy(3), "get", "k", func(err error) bool {
			return !errors.Is(err, permanentErr)
		}, func(context.Context) error {
			attempts++
			return permanentErr
		})
		Expect(errors.Is(err, permanentErr)).To(BeTrue())
		Expect(errors.Is(err, storage.ErrBackendUnavailable)).To(BeFalse())
		Expect(attempts).To(Equal(1))
	})

	It("bounds each attempt with the policy timeout", func() {
		err := storage.Retry(ctx, fastPolicy(1), "get", "k", alwaysTransient, func(attemptCtx context.Context) error {
			<-attemptCtx.Done()
			return attemptCtx.Err()
		})
		Expect(err).To(MatchError(storage.ErrBackendUnavailable))
		Expect(errors.Is(err, context.DeadlineExceeded)).To(BeTrue())
	})

	It("stops when the caller cancels", func() {
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		err := storage.Retry(cctx, fastPolicy(3), "get", "k", alwaysTransient, func(context.Context) error {
			return errTransient
		})
		Expect(errors.Is(err, context.Canceled)).To(BeTrue())
		Expect(errors.Is(err, storage.ErrBackendUnavailable)).To(BeFalse())
	})
})

var _ = Describe("UnavailableError", func() {
	It("formats with and without a key", func() {
		Expect((&storage.UnavailableError{Op: "list", Err: errTransient}).Error()).
			To(Equal("storage backend unavailable: list: connection refused"))
		Expect((&storage.UnavailableError{Op: "get", Key: "k", Err: errTransient}).Error()).
			To(Equal(`storage backend unavailable: get "k": connection refused`))
	})
})

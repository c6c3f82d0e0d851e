// Package testutils holds shared test doubles and reusable ginkgo specs.
package testutils

import (
	"context"
	"fmt"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/mnemo/pkg/storage"
)

// DescribeDriverContract registers the behaviour every storage.Driver must
// share. newDriver is called before each test and must return an empty
// driver; the returned driver is closed after each test.
func DescribeDriverContract(newDriver func() storage.Driver) {
	Describe("storage.Driver contract", func() {
		var (
			ctx    context.Context
			driver storage.Driver
		)

		BeforeEach(func() {
			ctx = context.Background()
			driver = newDriver()
		})

		AfterEach(func() {
			if driver != nil {
				Expect(driver.Close()).To(Succeed())
			}
		})

		It("reports absent keys as not found without error", func() {
			value, found, err := driver.Get(ctx, "missing")
			Expect(err).NotTo(HaveOccurred())
			Expect(found).To(BeFalse())
			Expect(value).To(BeEmpty())
		})

		It("returns what was set", func() {
			Expect(driver.Set(ctx, "k", "v")).To(Succeed())

			value, found, err := driver.Get(ctx, "k")
			Expect(err).NotTo(HaveOccurred())
			Expect(found).To(BeTrue())
			Expect(value).To(Equal("v"))
		})

		It("overwrites on repeated set", func() {
			Expect(driver.Set(ctx, "k", "first")).To(Succeed())
			Expect(driver.Set(ctx, "k", "second")).To(Succeed())

			value, _, err := driver.Get(ctx, "k")
			Expect(err).NotTo(HaveOccurred())
			Expect(value).To(Equal("second"))
		})

		It("stores empty values as present", func() {
			Expect(driver.Set(ctx, "empty", "")).To(Succeed())

			value, found, err := driver.Get(ctx, "empty")
			Expect(err).NotTo(HaveOccurred())
			Expect(found).To(BeTrue())
			Expect(value).To(BeEmpty())
		})

		It("deletes idempotently", func() {
			Expect(driver.Set(ctx, "k", "v")).To(Succeed())

			deleted, err := driver.Delete(ctx, "k")
			Expect(err).NotTo(HaveOccurred())
			Expect(deleted).To(BeTrue())

			deleted, err = driver.Delete(ctx, "k")
			Expect(err).NotTo(HaveOccurred())
			Expect(deleted).To(BeFalse())

			_, found, err := driver.Get(ctx, "k")
			Expect(err).NotTo(HaveOccurred())
			Expect(found).To(BeFalse())
		})

		It("lists only keys under the prefix", func() {
			Expect(driver.Set(ctx, "a:1", "x")).To(Succeed())
			Expect(driver.Set(ctx, "a:2", "y")).To(Succeed())
			Expect(driver.Set(ctx, "b:1", "z")).To(Succeed())

			keys, err := driver.ListKeys(ctx, "a:")
			Expect(err).NotTo(HaveOccurred())
			Expect(keys).To(ConsistOf("a:1", "a:2"))
		})

		It("returns an empty listing when nothing matches", func() {
			keys, err := driver.ListKeys(ctx, "nothing:")
			Expect(err).NotTo(HaveOccurred())
			Expect(keys).NotTo(BeNil())
			Expect(keys).To(BeEmpty())
		})

		It("treats glob and LIKE metacharacters in the prefix literally", func() {
			Expect(driver.Set(ctx, "p*%_[x]:1", "literal")).To(Succeed())
			Expect(driver.Set(ctx, "pzz:1", "other")).To(Succeed())
			Expect(driver.Set(ctx, "p*%_[x]extra", "sibling")).To(Succeed())

			keys, err := driver.ListKeys(ctx, "p*%_[x]:")
			Expect(err).NotTo(HaveOccurred())
			Expect(keys).To(ConsistOf("p*%_[x]:1"))
		})

		It("keeps writes to distinct keys under concurrency", func() {
			const n = 50

			var wg sync.WaitGroup
			errs := make(chan error, n)
			for i := range n {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					errs <- driver.Set(ctx, fmt.Sprintf("c:%d", i), fmt.Sprintf("v%d", i))
				}(i)
			}
			wg.Wait()
			close(errs)

			for err := range errs {
				Expect(err).NotTo(HaveOccurred())
			}

			for i := range n {
				value, found, err := driver.Get(ctx, fmt.Sprintf("c:%d", i))
				Expect(err).NotTo(HaveOccurred())
				Expect(found).To(BeTrue())
				Expect(value).To(Equal(fmt.Sprintf("v%d", i)))
			}

			keys, err := driver.ListKeys(ctx, "c:")
			Expect(err).NotTo(HaveOccurred())
			Expect(keys).To(HaveLen(n))
		})
	})
}

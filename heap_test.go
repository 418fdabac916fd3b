package extsort_test

import (
	"errors"
	"sort"

	"github.com/bsm/extsort"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("MinHeap", func() {
	var subject *extsort.MinHeap

	rec := func(k float64) extsort.Record { return extsort.Record{Key: k, Tag: int64(k * 10)} }

	keysOf := func(recs []extsort.Record) []float64 {
		keys := make([]float64, 0, len(recs))
		for _, r := range recs {
			keys = append(keys, r.Key)
		}
		return keys
	}

	drain := func(h *extsort.MinHeap) []float64 {
		var keys []float64
		for h.Len() != 0 {
			r, err := h.RemoveMin()
			Expect(err).NotTo(HaveOccurred())
			Expect(h.IsHeap()).To(BeTrue())
			keys = append(keys, r.Key)
		}
		return keys
	}

	BeforeEach(func() {
		subject = extsort.NewMinHeap(10)
	})

	It("should init", func() {
		Expect(subject.Cap()).To(Equal(10))
		Expect(subject.Len()).To(Equal(0))
		Expect(subject.DeactivatedLen()).To(Equal(0))
		Expect(subject.RootEmpty()).To(BeFalse())

		_, ok := subject.Peek()
		Expect(ok).To(BeFalse())
	})

	It("should reject inserts beyond capacity", func() {
		for i := 0; i < 10; i++ {
			Expect(subject.Insert(rec(float64(10 - i)))).To(BeTrue())
		}
		Expect(subject.Insert(rec(11))).To(BeFalse())
		Expect(subject.Len()).To(Equal(10))
	})

	It("should fail to remove from an empty heap", func() {
		_, err := subject.RemoveMin()
		Expect(err).To(MatchError(extsort.ErrHeapExhausted))

		_, err = subject.RemoveMinNoUpdate()
		Expect(err).To(MatchError(extsort.ErrHeapExhausted))
	})

	It("should maintain the heap property", func() {
		subject = extsort.NewMinHeap(1000)
		recs := seedRecords(1000)

		for i, r := range recs {
			Expect(subject.Insert(r)).To(BeTrue())
			Expect(subject.IsHeap()).To(BeTrue())

			if i%3 == 0 {
				min, ok := subject.Peek()
				Expect(ok).To(BeTrue())

				r, err := subject.RemoveMin()
				Expect(err).NotTo(HaveOccurred())
				Expect(r).To(Equal(min))
				Expect(subject.IsHeap()).To(BeTrue())
			}
		}

		keys := drain(subject)
		Expect(sort.Float64sAreSorted(keys)).To(BeTrue())
		Expect(subject.Len()).To(Equal(0))
	})

	It("should load and build", func() {
		recs := seedRecords(12)
		Expect(subject.Load(recs...)).To(Equal(10))
		Expect(subject.Len()).To(Equal(10))

		subject.BuildHeap()
		Expect(subject.IsHeap()).To(BeTrue())

		keys := drain(subject)
		Expect(keys).To(HaveLen(10))
		Expect(sort.Float64sAreSorted(keys)).To(BeTrue())
	})

	It("should remove at positions", func() {
		for _, k := range []float64{5, 3, 8, 1, 9, 2} {
			subject.Insert(rec(k))
		}

		_, err := subject.Remove(-1)
		Expect(errors.Is(err, extsort.ErrInvalidPosition)).To(BeTrue())
		_, err = subject.Remove(6)
		Expect(errors.Is(err, extsort.ErrInvalidPosition)).To(BeTrue())

		r, err := subject.Remove(0)
		Expect(err).NotTo(HaveOccurred())
		Expect(r.Key).To(Equal(1.0))
		Expect(subject.IsHeap()).To(BeTrue())

		_, err = subject.Remove(subject.Len() - 1)
		Expect(err).NotTo(HaveOccurred())
		_, err = subject.Remove(1)
		Expect(err).NotTo(HaveOccurred())
		Expect(subject.Len()).To(Equal(3))
		Expect(subject.IsHeap()).To(BeTrue())
	})

	It("should modify at positions", func() {
		for _, k := range []float64{5, 3, 8, 1, 9, 2} {
			subject.Insert(rec(k))
		}

		Expect(errors.Is(subject.Modify(-1, rec(0)), extsort.ErrInvalidPosition)).To(BeTrue())
		Expect(errors.Is(subject.Modify(6, rec(0)), extsort.ErrInvalidPosition)).To(BeTrue())

		Expect(subject.Modify(5, rec(0))).To(Succeed())
		Expect(subject.IsHeap()).To(BeTrue())
		min, _ := subject.Peek()
		Expect(min).To(Equal(rec(0)))

		Expect(subject.Modify(0, rec(20))).To(Succeed())
		Expect(subject.IsHeap()).To(BeTrue())
		Expect(drain(subject)).To(Equal([]float64{1, 2, 3, 5, 9, 20}))
	})

	Describe("replacement selection", func() {
		BeforeEach(func() {
			for _, k := range []float64{5, 3, 8, 1, 9, 2, 7, 4} {
				subject.Insert(rec(k))
			}
		})

		It("should leave the root empty", func() {
			r, err := subject.RemoveMinNoUpdate()
			Expect(err).NotTo(HaveOccurred())
			Expect(r.Key).To(Equal(1.0))
			Expect(subject.RootEmpty()).To(BeTrue())
			Expect(subject.Len()).To(Equal(7))

			_, ok := subject.Peek()
			Expect(ok).To(BeFalse())
			_, err = subject.RemoveMin()
			Expect(err).To(MatchError(extsort.ErrRootEmpty))
			_, err = subject.RemoveMinNoUpdate()
			Expect(err).To(MatchError(extsort.ErrRootEmpty))
			_, err = subject.Remove(0)
			Expect(err).To(MatchError(extsort.ErrRootEmpty))
			Expect(subject.Insert(rec(6))).To(BeFalse())
		})

		It("should require an empty root", func() {
			Expect(subject.ReplacementSelectionInsert(rec(6), false)).To(BeFalse())
			Expect(subject.Len()).To(Equal(8))
		})

		It("should insert into the active region", func() {
			_, err := subject.RemoveMinNoUpdate()
			Expect(err).NotTo(HaveOccurred())

			Expect(subject.ReplacementSelectionInsert(rec(6), false)).To(BeTrue())
			Expect(subject.RootEmpty()).To(BeFalse())
			Expect(subject.Len()).To(Equal(8))
			Expect(subject.DeactivatedLen()).To(Equal(0))
			Expect(subject.IsHeap()).To(BeTrue())
			Expect(drain(subject)).To(Equal([]float64{2, 3, 4, 5, 6, 7, 8, 9}))
		})

		It("should deactivate", func() {
			_, err := subject.RemoveMinNoUpdate()
			Expect(err).NotTo(HaveOccurred())

			Expect(subject.ReplacementSelectionInsert(rec(0.5), true)).To(BeTrue())
			Expect(subject.Len()).To(Equal(7))
			Expect(subject.DeactivatedLen()).To(Equal(1))
			Expect(subject.IsHeap()).To(BeTrue())
			Expect(subject.Deactivated()).To(Equal([]extsort.Record{rec(0.5)}))

			_, err = subject.RemoveMinNoUpdate()
			Expect(err).NotTo(HaveOccurred())
			Expect(subject.ReplacementSelectionInsert(rec(1.5), true)).To(BeTrue())
			Expect(subject.Len()).To(Equal(6))
			Expect(subject.DeactivatedLen()).To(Equal(2))
			Expect(subject.IsHeap()).To(BeTrue())
			Expect(subject.Deactivated()).To(ConsistOf(rec(0.5), rec(1.5)))
		})

		It("should keep deactivated records across removals and inserts", func() {
			for _, k := range []float64{0.1, 0.2, 0.3} {
				_, err := subject.RemoveMinNoUpdate()
				Expect(err).NotTo(HaveOccurred())
				Expect(subject.ReplacementSelectionInsert(rec(k), true)).To(BeTrue())
			}
			Expect(subject.Len()).To(Equal(5))
			Expect(subject.DeactivatedLen()).To(Equal(3))

			Expect(subject.Insert(rec(10))).To(BeTrue())
			Expect(subject.Insert(rec(11))).To(BeTrue())
			Expect(subject.Insert(rec(12))).To(BeFalse())
			Expect(subject.Deactivated()).To(ConsistOf(rec(0.1), rec(0.2), rec(0.3)))

			_, err := subject.Remove(2)
			Expect(err).NotTo(HaveOccurred())
			Expect(subject.IsHeap()).To(BeTrue())
			Expect(subject.Deactivated()).To(ConsistOf(rec(0.1), rec(0.2), rec(0.3)))

			drain(subject)
			Expect(subject.DeactivatedLen()).To(Equal(3))

			Expect(subject.Reactivate()).To(BeTrue())
			Expect(subject.Len()).To(Equal(3))
			Expect(subject.DeactivatedLen()).To(Equal(0))
			Expect(subject.IsHeap()).To(BeTrue())
			Expect(drain(subject)).To(Equal([]float64{0.1, 0.2, 0.3}))
		})

		It("should reactivate", func() {
			Expect(subject.Reactivate()).To(BeFalse())

			for i := 0; i < 8; i++ {
				_, err := subject.RemoveMinNoUpdate()
				Expect(err).NotTo(HaveOccurred())
				Expect(subject.ReplacementSelectionInsert(rec(float64(-i)), true)).To(BeTrue())
			}
			Expect(subject.Len()).To(Equal(0))
			Expect(subject.DeactivatedLen()).To(Equal(8))

			Expect(subject.Reactivate()).To(BeTrue())
			Expect(subject.Len()).To(Equal(8))
			Expect(subject.DeactivatedLen()).To(Equal(0))
			Expect(subject.IsHeap()).To(BeTrue())
			Expect(subject.Reactivate()).To(BeFalse())
			Expect(drain(subject)).To(Equal([]float64{-7, -6, -5, -4, -3, -2, -1, 0}))
		})

		It("should reactivate with an empty root", func() {
			for _, k := range []float64{0.1, 0.2} {
				_, err := subject.RemoveMinNoUpdate()
				Expect(err).NotTo(HaveOccurred())
				Expect(subject.ReplacementSelectionInsert(rec(k), true)).To(BeTrue())
			}

			_, err := subject.RemoveMinNoUpdate()
			Expect(err).NotTo(HaveOccurred())
			Expect(subject.RootEmpty()).To(BeTrue())
			Expect(subject.Len()).To(Equal(5))

			Expect(subject.Reactivate()).To(BeTrue())
			Expect(subject.RootEmpty()).To(BeFalse())
			Expect(subject.Len()).To(Equal(7))
			Expect(subject.IsHeap()).To(BeTrue())
			Expect(drain(subject)).To(Equal([]float64{0.1, 0.2, 4, 5, 7, 8, 9}))
		})

		It("should generate runs longer than its capacity", func() {
			input := seedRecords(200)
			subject = extsort.NewMinHeap(10)
			Expect(subject.Load(input[:10]...)).To(Equal(10))
			subject.BuildHeap()

			var runs [][]float64
			var cur []float64
			for _, next := range input[10:] {
				if subject.Len() == 0 {
					runs = append(runs, cur)
					cur = nil
					Expect(subject.Reactivate()).To(BeTrue())
				}

				min, err := subject.RemoveMinNoUpdate()
				Expect(err).NotTo(HaveOccurred())
				cur = append(cur, min.Key)
				Expect(subject.ReplacementSelectionInsert(next, extsort.Compare(next, min) < 0)).To(BeTrue())
				Expect(subject.IsHeap()).To(BeTrue())
				Expect(subject.Len() + subject.DeactivatedLen()).To(Equal(10))
			}
			for {
				cur = append(cur, drain(subject)...)
				runs = append(runs, cur)
				cur = nil
				if !subject.Reactivate() {
					break
				}
			}

			var total []float64
			var longest int
			for _, run := range runs {
				Expect(sort.Float64sAreSorted(run)).To(BeTrue())
				total = append(total, run...)
				if len(run) > longest {
					longest = len(run)
				}
			}
			expected := keysOf(input)
			sort.Float64s(expected)
			sort.Float64s(total)
			Expect(total).To(Equal(expected))
			Expect(len(runs)).To(BeNumerically(">", 1))
			Expect(longest).To(BeNumerically(">", subject.Cap()))
		})
	})
})

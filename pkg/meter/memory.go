package meter

import "runtime/metrics"

// heapObjectsMetric reports the bytes occupied by live and not-yet-swept heap
// objects. Reading it does not stop the world.
const heapObjectsMetric = "/memory/classes/heap/objects:bytes"

// Sampler reports the current live heap usage in bytes. ok is false when the
// platform does not expose the measurement.
type Sampler interface {
	Sample() (bytes uint64, ok bool)
}

// RuntimeSampler samples the Go runtime's heap object metric.
type RuntimeSampler struct{}

// Sample implements Sampler.
func (RuntimeSampler) Sample() (uint64, bool) {
	s := []metrics.Sample{{Name: heapObjectsMetric}}
	metrics.Read(s)

	if s[0].Value.Kind() != metrics.KindUint64 {
		return 0, false
	}

	return s[0].Value.Uint64(), true
}

// HeapBaseline is a heap sample taken before an operation.
type HeapBaseline struct {
	sampler Sampler
	bytes   uint64
	ok      bool
}

// StartHeap takes a baseline sample with sampler. A nil sampler uses
// RuntimeSampler.
func StartHeap(sampler Sampler) HeapBaseline {
	if sampler == nil {
		sampler = RuntimeSampler{}
	}
	bytes, ok := sampler.Sample()

	return HeapBaseline{sampler: sampler, bytes: bytes, ok: ok}
}

// Delta returns the signed difference between a fresh sample and the
// baseline, or nil if either sample is unavailable.
func (b HeapBaseline) Delta() *int64 {
	if !b.ok || b.sampler == nil {
		return nil
	}
	now, ok := b.sampler.Sample()
	if !ok {
		return nil
	}
	delta := int64(now) - int64(b.bytes) //nolint: gosec

	return &delta
}

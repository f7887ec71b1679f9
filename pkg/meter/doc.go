// Package meter provides the coarse instrumentation used around a single
// controller invocation: elapsed wall-clock time rendered as a short
// millisecond string, and the change in live heap bytes.
//
// Both meters are diagnostic only. They never fail and never block; when a
// measurement is unavailable the result is nil.
package meter

// Package prober defines the core types, interfaces, and concurrency
// primitives of the catalog id prober: the identifier stream, the work
// partitioner, the dedup gate, the failure ledger, verdict classification,
// and the shared rate-limit pause gate.
package prober

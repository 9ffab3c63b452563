// Package sync runs the configured items through their resolvers.
//
// A run walks the item list in configuration order. Every item's repository
// type is mapped to a resolver before the first request is made, so an
// unknown type fails the run without touching any destination. Items are
// processed one at a time; by default the first failure aborts the run and
// the remaining items are reported as skipped. With ContinueOnError every
// item is attempted and the failures are returned together.
//
// Relative destinations are resolved against the run root. The root holds a
// lock file while a run is in progress so two overlapping runs, for example a
// slow scheduled run and a manual one, never write the same destination.
//
// A failed item never leaves a partially written destination; that guarantee
// comes from the download package's temp-file-then-rename materialization.
package sync

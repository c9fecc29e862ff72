// Package workflow implements Temporal workflow definitions for batch
// evaluation of the coach's collaborators.
//
// Workflows must stay deterministic: no random numbers, no wall clock and
// no I/O. Every call to the inference service, and every event emission,
// happens in an activity.
package workflow

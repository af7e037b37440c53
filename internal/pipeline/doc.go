// Package pipeline runs harvests as a sequence of steps.
//
// Each site is processed by its own Pipeline: a HarvestStep that walks the
// site and stores its products, followed by a RecordRunStep that saves the
// run report. A BatchProcessor runs the pipelines of several sites
// concurrently with errgroup under a concurrency limit.
//
// Design decision: We keep the pipeline pattern instead of calling the
// harvester directly because:
// 1. Recording a run stays a separate step that also runs for canceled runs
// 2. Logging and error handling are the same for every step
package pipeline

// Package batch runs production batches one at a time.
//
// A Runner owns the single in-flight batch. It runs the driver in the
// background, forwards progress to the event hub and, once the batch is
// finished, records it in the history and statistics stores and in the
// audit trail.
//
//	job, err := runner.Start(ctx, batch.Request{Request: req, ClientIP: ip})
//	if errors.Is(err, batch.ErrBusy) {
//	    // a batch is already running
//	}
//	res, err := job.Wait(ctx)
package batch

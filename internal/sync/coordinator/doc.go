// Package coordinator re-runs index generation in the background for long running
// processes such as the serve command.
//
// The coordinator runs one generation right away and then one per refresh interval,
// offset by a random jitter so that several replicas sharing an upstream do not hit it
// at the same moment. Generations never overlap: the next one is only scheduled once
// the previous one has returned.
//
// A failed generation leaves the previously published index in place. Each run updates
// a status.RunStatus that is kept in memory, readable through Status, and optionally
// persisted through a status.StatusPersistence so that it survives restarts.
//
// # Usage Example
//
//	coord := coordinator.New(pipeline.Generate,
//	    coordinator.WithInterval(6*time.Hour),
//	    coordinator.WithStatusPersistence(status.NewFileStatusPersistence(path)),
//	)
//	go func() {
//	    if err := coord.Start(ctx); err != nil {
//	        slog.Error("Coordinator failed", "error", err)
//	    }
//	}()
//	defer coord.Stop()
package coordinator

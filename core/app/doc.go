// Package app wires the bus, the collections and their views of one rig
// process into a single Root.
//
// A Root replaces process-wide singletons: everything that would otherwise be
// global hangs off the Root that created it.
//
//	root, err := app.New(app.Config{
//	    Persisters: app.Persisters{
//	        Users: set.RecordPersister[string, user.User](userRecords),
//	    },
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer root.Close()
//
//	if err := root.Init(ctx); err != nil {
//	    log.Warn("some collections failed to load", slog.Any("error", err))
//	}
//
//	err = root.Execute(ctx, kernel.AddInput{Input: in})
//
// # Reloading
//
// Refresh reloads every collection from its store and publishes Refreshed
// events, which resynchronise the views. Refreshers exposes the per-collection
// reload functions for file or bucket watchers.
package app

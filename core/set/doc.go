// Package set implements the generic repository behind every rig collection.
//
// A [Set] keeps its entries in memory, loads them lazily from a [Persister]
// on first access and persists every mutation before announcing it on the
// event bus as [Added], [Updated], [Removed] or [Refreshed]. Event order per
// set equals mutation order.
//
//	profiles := set.New(set.Options[gpu.ProfileKey, gpu.Profile]{
//	    Name:      "gpu-profiles",
//	    KeyOf:     gpu.Profile.Key,
//	    Persister: set.SnapshotPersister[gpu.ProfileKey, gpu.Profile](fileStore, codec.JSONCodec{}),
//	    Publisher: b,
//	})
//
//	change, err := profiles.AddOrUpdate(ctx, p)
//
// Subscribers may read the set that is publishing to them but must not mutate
// it synchronously.
//
// [FanOut] applies an operation to several keys without stopping at the
// first failure, for commands addressed to a [Target] that may expand to all
// entries.
package set

// Package pebblestore owns Grace's single Pebble keyspace. Actor event
// lists, the bus topic logs, reminder schedules, and the read-model
// indexes all store through this wrapper, which pins one durability
// policy (the fsync mode) on every write path.
//
// Point writes go through short-lived batches so they honor the same
// policy as multi-key commits:
//
//	db, err := pebblestore.Open(pebblestore.Options{
//	    DataDir: dir,
//	    Fsync:   pebblestore.FsyncModeAlways,
//	})
//	if err != nil { /* handle */ }
//	defer db.Close()
//	_ = db.Set([]byte("k"), []byte("v"))
//
// Range helpers (PrefixIter, DeletePrefix) serve the index scans the
// read models and the reminder sweep rely on.
package pebblestore

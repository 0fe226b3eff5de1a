// Package datastore persists a handful of small, versioned values, one file
// per key, across process restarts.
//
// Each feature owns a FileHandler. Values live at
//
//	<storage_dir>/[<instance_id>/]<feature>/datastore-v<FormatVersion>/<key>
//
// and every file holds exactly three TLV blocks (see package tlv): the schema
// version, the last update time in unix milliseconds, and the serialized
// value. Reads validate the block sequence and report one of three outcomes:
// Success, NoData (missing, version mismatch, outdated or stale) or Failure
// (corrupt or undecodable). Outdated, stale and corrupt files are purged on
// read so the namespace heals itself without a migration step.
//
// All filesystem work for a handler runs on one worker goroutine fed by an
// unbounded FIFO queue, so operations submitted to the same handler are
// observed in submission order. Callbacks run on that worker goroutine.
//
//	h, err := datastore.New("rum", cfg)
//	datastore.Set(h, "anonymousid", id, 1, codec.String{}, nil)
//	datastore.Get(h, "anonymousid", codec.String{}, func(r datastore.Result[string]) {
//	    if r.Status == datastore.StatusSuccess {
//	        use(r.Content.Data)
//	    }
//	})
package datastore

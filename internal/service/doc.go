// Package service runs the two background loops of lens.
//
// LensService is the request loop. Callers Submit requests (currently only
// SavePhoto); every tick the loop drains the queue in submission order and
// turns each request into a state update, then sleeps for the tick interval
// (16ms by default) or until the next Submit wakes it.
//
// LensSync is the discovery loop. Once per interval (1s by default) it walks
// every known album in RecordPath order, asks the record store what exists
// at the album's cursor, reads and decodes each new photo record, inserts it
// at the cursor position and advances the cursor:
//
//	for each album (sorted by RecordPath):
//	    discover(album, cursor, [PhotoV1])
//	      exhausted        -> next album
//	      filtered slot    -> cursor++
//	      read/discover err-> log, next album (cursor unchanged, retried next cycle)
//	      decode err       -> log, drop record, cursor++
//	      ok               -> insert at cursor, cursor++, mutated
//	if mutated or first cycle: publish ReplacePhotos(flatten(cache))
//	persist cache with refreshed LastSync
//
// Both loops only talk to the UI through state.Update values, so the state
// actor is the single writer of the photo list.
package service

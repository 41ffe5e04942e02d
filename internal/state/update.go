package state

import "slices"

// Update is a change to the shared photo list. The set of updates is closed:
// AppendPhoto and ReplacePhotos are the only implementations.
type Update interface {
	isUpdate()
}

// AppendPhoto adds one photo identifier to the end of the list.
// Sent by the request loop for each saved photo.
type AppendPhoto struct {
	ID string
}

// ReplacePhotos swaps in a complete list.
// Sent by the discovery loop with the flattened cache.
type ReplacePhotos struct {
	IDs []string
}

func (AppendPhoto) isUpdate()   {}
func (ReplacePhotos) isUpdate() {}

// Apply returns the list that results from applying u to photos. The input
// slice is never modified.
func Apply(photos []string, u Update) []string {
	switch u := u.(type) {
	case AppendPhoto:
		out := make([]string, 0, len(photos)+1)
		out = append(out, photos...)
		return append(out, u.ID)
	case ReplacePhotos:
		if u.IDs == nil {
			return []string{}
		}
		return slices.Clone(u.IDs)
	default:
		return slices.Clone(photos)
	}
}

package catalog

import "errors"

func asEntry(err error, target **EntryError) bool {
	return errors.As(err, target)
}

// IsTraversal reports whether err is a root traversal failure.
func IsTraversal(err error) bool {
	var te *TraversalError
	return errors.As(err, &te)
}

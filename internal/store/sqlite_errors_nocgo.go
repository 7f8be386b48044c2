//go:build !cgo

package store

// classify is the identity without cgo: the stub driver never opens a
// database, so Supported reports ErrUnsupported before any write is attempted.
func classify(err error) error {
	return err
}

//go:build !ariac || !cgo

package ariac

// Open reports ErrUnavailable; the binary was built without libariac.
func Open() (Library, error) {
	return nil, ErrUnavailable
}

//go:build !linux && !darwin

package watcher

func newBackend() (backend, error) {
	return nil, ErrUnsupported
}

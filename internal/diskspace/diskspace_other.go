//go:build !linux && !darwin && !freebsd && !windows

package diskspace

import "errors"

// Available is not supported here; Check lets every transfer through.
func Available(dir string) (int64, error) {
	return 0, errors.New("disk space query not supported on this platform")
}

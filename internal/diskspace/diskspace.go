// Package diskspace checks free space on the filesystem that receives a
// download before any bytes are written.
package diskspace

import (
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"
)

// InsufficientSpaceError reports a destination that cannot hold a transfer.
type InsufficientSpaceError struct {
	Dir       string
	Required  int64
	Available int64
}

func (e *InsufficientSpaceError) Error() string {
	return fmt.Sprintf("insufficient disk space in %s: need %s, have %s available",
		e.Dir, humanize.IBytes(uint64(e.Required)), humanize.IBytes(uint64(e.Available)))
}

// Check returns an *InsufficientSpaceError when dir has less than
// required*margin bytes free. Filesystems that cannot be queried pass.
func Check(dir string, required int64, margin float64) error {
	if required <= 0 {
		return nil
	}
	avail, err := Available(dir)
	if err != nil {
		return nil
	}
	need := int64(float64(required) * margin)
	if avail < need {
		return &InsufficientSpaceError{Dir: dir, Required: need, Available: avail}
	}
	return nil
}

// IsInsufficientSpace reports whether err wraps an *InsufficientSpaceError.
func IsInsufficientSpace(err error) bool {
	var e *InsufficientSpaceError
	return errors.As(err, &e)
}

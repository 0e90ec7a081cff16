//go:build !windows

package progress

import "os"

// enableANSI is a no-op; Unix terminals support ANSI natively
func enableANSI(f *os.File) {}

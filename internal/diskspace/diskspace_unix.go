//go:build linux || darwin || freebsd

package diskspace

import "golang.org/x/sys/unix"

// Available returns the bytes free to unprivileged users on dir's filesystem.
func Available(dir string) (int64, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(dir, &st); err != nil {
		return 0, err
	}
	return int64(st.Bavail) * int64(st.Bsize), nil
}

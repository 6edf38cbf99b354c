//go:build unix

package client

import (
	"errors"
	"syscall"

	"golang.org/x/sys/unix"
)

// errnoName returns the symbolic errno found in err's chain, or "".
func errnoName(err error) string {
	var errno syscall.Errno
	if !errors.As(err, &errno) {
		return ""
	}
	return unix.ErrnoName(errno)
}

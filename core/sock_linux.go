//go:build linux

package core

import "golang.org/x/sys/unix"

// acceptConn accepts one pending connection with the non-blocking and
// close-on-exec flags applied atomically.
func acceptConn(listenFD int) (int, unix.Sockaddr, error) {
	nfd, sa, err := unix.Accept4(listenFD, unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
	return nfd, sa, err
}

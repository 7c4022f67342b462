//go:build darwin

package core

import "golang.org/x/sys/unix"

// acceptConn accepts one pending connection and flags the new socket
// non-blocking and close-on-exec. Darwin has no accept4, so the flags
// are applied after the fact.
func acceptConn(listenFD int) (int, unix.Sockaddr, error) {
	nfd, sa, err := unix.Accept(listenFD)
	if err != nil {
		return -1, nil, err
	}
	if err := unix.SetNonblock(nfd, true); err != nil {
		unix.Close(nfd)
		return -1, nil, err
	}
	unix.CloseOnExec(nfd)
	return nfd, sa, nil
}

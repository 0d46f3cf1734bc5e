//go:build !unix

package sockopt

import "syscall"

// Go 在其他平台上默认已为 UDP socket 开启 SO_BROADCAST
func control(network, address string, c syscall.RawConn) error {
	return nil
}

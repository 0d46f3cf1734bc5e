// Package sockopt 提供发现端口所需的 socket 选项
package sockopt

import (
	"context"
	"net"
	"strconv"
)

// ListenConfig 返回设置了 SO_REUSEADDR 与 SO_BROADCAST 的 net.ListenConfig
func ListenConfig() *net.ListenConfig {
	return &net.ListenConfig{Control: control}
}

// ListenBroadcastUDP 绑定 host:port，允许同一主机上多个进程共享端口并收发广播
func ListenBroadcastUDP(ctx context.Context, host string, port int) (*net.UDPConn, error) {
	pc, err := ListenConfig().ListenPacket(ctx, "udp4", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return nil, err
	}
	return pc.(*net.UDPConn), nil
}

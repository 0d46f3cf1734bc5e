package server

import (
	"bufio"
	"bytes"
	"context"
	"net"
	"strconv"
	"time"

	"speedtest-core/internal/constants"
	coreerrors "speedtest-core/internal/core/errors"
	"speedtest-core/internal/core/metrics"
)

// filler 填充数据，只读共享
var filler = bytes.Repeat([]byte{constants.FillerByte}, constants.TCPWriteBufferSize)

// serveTCP 读取请求行后写入恰好 size 字节的填充数据并关闭连接
func (r *Responder) serveTCP(ctx context.Context, conn *net.TCPConn) {
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()
	defer conn.Close()

	logger := r.logger.WithField(constants.LogFieldRemote, conn.RemoteAddr().String()).
		WithField(constants.LogFieldProtocol, ProtocolTCP)

	size, err := readRequestLine(conn, r.cfg.RequestTimeout)
	if err != nil {
		_ = r.metrics.IncrementCounter(metrics.SenderErrors, map[string]string{"protocol": "tcp"})
		logger.WithError(err).Warn("Invalid TCP request")
		return
	}

	_ = r.metrics.AddGauge(metrics.ActiveTransfers, 1, nil)
	defer func() { _ = r.metrics.AddGauge(metrics.ActiveTransfers, -1, nil) }()

	rec := r.transfers.Begin(ProtocolTCP, conn.RemoteAddr(), size)
	sent, err := writeFiller(conn, size)
	rec.Sent = sent
	_ = r.metrics.AddCounter(metrics.BytesSent, float64(sent), nil)

	if err != nil && ctx.Err() == nil {
		err = coreerrors.Wrapf(err, coreerrors.CodeTransportError, "wrote %d of %d bytes", sent, size)
		_ = r.metrics.IncrementCounter(metrics.SenderErrors, map[string]string{"protocol": "tcp"})
		logger.WithError(err).Warn("TCP transfer aborted")
	} else {
		_ = r.metrics.IncrementCounter(metrics.TCPTransfers, nil)
		logger.WithField(constants.LogFieldSize, size).Debug("TCP transfer served")
	}
	r.transfers.Finish(rec, err)
}

// readRequestLine 读取以换行结尾的十进制长度，整行不超过 MaxRequestLineLength
func readRequestLine(conn net.Conn, timeout time.Duration) (uint64, error) {
	if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return 0, coreerrors.Wrap(err, coreerrors.CodeTransportError, "set read deadline")
	}
	defer conn.SetReadDeadline(time.Time{})

	reader := bufio.NewReaderSize(conn, constants.MaxRequestLineLength)
	line, err := reader.ReadSlice('\n')
	if err != nil {
		if err == bufio.ErrBufferFull {
			return 0, coreerrors.Newf(coreerrors.CodeMalformedMessage, "request line longer than %d bytes", constants.MaxRequestLineLength)
		}
		if coreerrors.IsTimeout(err) {
			return 0, coreerrors.Wrap(err, coreerrors.CodeTimeout, "waiting for request line")
		}
		return 0, coreerrors.Wrap(err, coreerrors.CodeTransportError, "read request line")
	}

	size, err := strconv.ParseUint(string(bytes.TrimSpace(line)), 10, 64)
	if err != nil {
		return 0, coreerrors.Wrapf(err, coreerrors.CodeMalformedMessage, "invalid request line %q", bytes.TrimSpace(line))
	}
	return size, nil
}

// writeFiller 按 TCPWriteBufferSize 分块写入 size 字节
func writeFiller(conn net.Conn, size uint64) (uint64, error) {
	var sent uint64
	for sent < size {
		chunk := filler
		if remaining := size - sent; remaining < uint64(len(chunk)) {
			chunk = chunk[:remaining]
		}
		n, err := conn.Write(chunk)
		sent += uint64(n)
		if err != nil {
			return sent, err
		}
	}
	return sent, nil
}

package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/chzyer/readline"

	"speedtest-core/internal/client"
	coreerrors "speedtest-core/internal/core/errors"
)

// ━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━
// 测试参数来源
// ━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━

// 交互式提示语
const (
	PromptFileSize       = "Enter file size (bytes): "
	PromptTCPConnections = "Enter number of TCP connections: "
	PromptUDPConnections = "Enter number of UDP connections: "
)

// ParseParams 解析三项用户输入，任何一项非法都返回 INVALID_CONFIG
func ParseParams(size, tcp, udp string) (client.Params, error) {
	payload, err := strconv.ParseUint(strings.TrimSpace(size), 10, 64)
	if err != nil {
		return client.Params{}, coreerrors.Wrapf(err, coreerrors.CodeInvalidConfig, "file size %q", size)
	}
	tcpCount, err := strconv.Atoi(strings.TrimSpace(tcp))
	if err != nil {
		return client.Params{}, coreerrors.Wrapf(err, coreerrors.CodeInvalidConfig, "TCP connections %q", tcp)
	}
	udpCount, err := strconv.Atoi(strings.TrimSpace(udp))
	if err != nil {
		return client.Params{}, coreerrors.Wrapf(err, coreerrors.CodeInvalidConfig, "UDP connections %q", udp)
	}
	p := client.Params{PayloadSize: payload, TCPConnections: tcpCount, UDPConnections: udpCount}
	return p, p.Validate()
}

// NewParamSource stdin 是终端时使用交互式提示，否则按行读取
func NewParamSource(in *os.File, out io.Writer) (client.ParamSource, error) {
	if IsTerminal(in) {
		return NewPromptSource(in, out)
	}
	return NewLineSource(in, out), nil
}

// StaticSource 只返回一次固定参数，用于命令行参数指定的非交互运行
type StaticSource struct {
	params client.Params
	used   bool
	mu     sync.Mutex
}

// NewStaticSource 创建固定参数源
func NewStaticSource(p client.Params) *StaticSource {
	return &StaticSource{params: p}
}

// Next 实现 client.ParamSource
func (s *StaticSource) Next(ctx context.Context) (client.Params, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.used {
		return client.Params{}, coreerrors.ErrSourceExhausted
	}
	s.used = true
	return s.params, nil
}

// LineSource 从非终端输入按行读取，三行为一组参数
type LineSource struct {
	scanner *bufio.Scanner
	out     io.Writer
	mu      sync.Mutex
}

// NewLineSource 创建按行读取的参数源，out 为 nil 时不输出提示
func NewLineSource(r io.Reader, out io.Writer) *LineSource {
	if out == nil {
		out = io.Discard
	}
	return &LineSource{scanner: bufio.NewScanner(r), out: out}
}

// Next 实现 client.ParamSource；输入结束返回 SOURCE_EXHAUSTED
func (s *LineSource) Next(ctx context.Context) (client.Params, error) {
	return readWithContext(ctx, func() (client.Params, error) {
		s.mu.Lock()
		defer s.mu.Unlock()

		var fields [3]string
		for i, prompt := range []string{PromptFileSize, PromptTCPConnections, PromptUDPConnections} {
			fmt.Fprint(s.out, prompt)
			if !s.scanner.Scan() {
				if err := s.scanner.Err(); err != nil {
					return client.Params{}, coreerrors.Wrap(err, coreerrors.CodeSourceExhausted, "read parameters")
				}
				return client.Params{}, coreerrors.ErrSourceExhausted
			}
			fields[i] = s.scanner.Text()
		}
		return ParseParams(fields[0], fields[1], fields[2])
	})
}

// PromptSource 基于 readline 的交互式参数源
type PromptSource struct {
	rl *readline.Instance
	mu sync.Mutex
}

// NewPromptSource 创建交互式参数源
func NewPromptSource(in io.ReadCloser, out io.Writer) (*PromptSource, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          PromptFileSize,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		Stdin:           in,
		Stdout:          out,
	})
	if err != nil {
		return nil, coreerrors.Wrap(err, coreerrors.CodeInternal, "initialize readline")
	}
	return &PromptSource{rl: rl}, nil
}

// Next 实现 client.ParamSource；Ctrl+C 或 Ctrl+D 返回 SOURCE_EXHAUSTED
func (s *PromptSource) Next(ctx context.Context) (client.Params, error) {
	stop := context.AfterFunc(ctx, func() { _ = s.rl.Close() })
	defer stop()

	s.mu.Lock()
	defer s.mu.Unlock()

	var fields [3]string
	for i, prompt := range []string{PromptFileSize, PromptTCPConnections, PromptUDPConnections} {
		s.rl.SetPrompt(prompt)
		line, err := s.rl.Readline()
		if err != nil {
			if ctx.Err() != nil {
				return client.Params{}, coreerrors.Wrap(ctx.Err(), coreerrors.CodeCancelled, "prompt cancelled")
			}
			if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
				return client.Params{}, coreerrors.ErrSourceExhausted
			}
			return client.Params{}, coreerrors.Wrap(err, coreerrors.CodeInternal, "read prompt")
		}
		fields[i] = line
	}
	return ParseParams(fields[0], fields[1], fields[2])
}

// Close 释放终端
func (s *PromptSource) Close() error {
	return s.rl.Close()
}

// readWithContext 在独立协程中执行阻塞读取，ctx 取消时立即返回
// 被放弃的读取协程在输入关闭或下一行到达时退出
func readWithContext(ctx context.Context, read func() (client.Params, error)) (client.Params, error) {
	type result struct {
		params client.Params
		err    error
	}
	ch := make(chan result, 1)
	go func() {
		p, err := read()
		ch <- result{p, err}
	}()

	select {
	case r := <-ch:
		return r.params, r.err
	case <-ctx.Done():
		return client.Params{}, coreerrors.Wrap(ctx.Err(), coreerrors.CodeCancelled, "read cancelled")
	}
}

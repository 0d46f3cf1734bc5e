package dispose

import (
	"context"
	"fmt"
	"sync"
)

// DisposeError 清理过程中的错误信息
type DisposeError struct {
	HandlerIndex int
	ResourceName string
	Err          error
}

func (e *DisposeError) Error() string {
	if e.ResourceName != "" {
		return fmt.Sprintf("cleanup resource[%s] handler[%d] failed: %v", e.ResourceName, e.HandlerIndex, e.Err)
	}
	return fmt.Sprintf("cleanup handler[%d] failed: %v", e.HandlerIndex, e.Err)
}

func (e *DisposeError) Unwrap() error {
	return e.Err
}

// DisposeResult 清理结果
type DisposeResult struct {
	Errors []*DisposeError
}

func (r *DisposeResult) HasErrors() bool {
	return len(r.Errors) > 0
}

func (r *DisposeResult) Error() string {
	if !r.HasErrors() {
		return ""
	}
	return fmt.Sprintf("dispose cleanup failed with %d errors", len(r.Errors))
}

// Disposable 统一的资源释放接口
type Disposable interface {
	Dispose() error
}

// Dispose 以 context 为生命周期的资源管理结构体
// 父 context 取消或显式 Close 时，清理处理器按注册顺序只执行一次
type Dispose struct {
	mu            sync.Mutex
	closed        bool
	ctx           context.Context
	cancel        context.CancelFunc
	cleanHandlers []func() error
	handlerMu     sync.Mutex
	errors        []*DisposeError
}

// NewDispose 创建绑定到 parent 的 Dispose
func NewDispose(parent context.Context, onClose func() error) *Dispose {
	d := &Dispose{}
	d.SetCtx(parent, onClose)
	return d
}

func (c *Dispose) Ctx() context.Context {
	return c.ctx
}

func (c *Dispose) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Close 关闭并返回清理结果
func (c *Dispose) Close() *DisposeResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return &DisposeResult{Errors: c.errors}
	}
	c.closed = true
	if c.cancel != nil {
		c.cancel()
	}
	return c.runCleanHandlers()
}

// Dispose 实现 Disposable
func (c *Dispose) Dispose() error {
	result := c.Close()
	if result.HasErrors() {
		return result.Errors[0].Err
	}
	return nil
}

// runCleanHandlers 调用方需持有 mu
func (c *Dispose) runCleanHandlers() *DisposeResult {
	result := &DisposeResult{Errors: make([]*DisposeError, 0)}

	c.handlerMu.Lock()
	handlers := make([]func() error, len(c.cleanHandlers))
	copy(handlers, c.cleanHandlers)
	c.handlerMu.Unlock()

	for i, handler := range handlers {
		if err := handler(); err != nil {
			disposeErr := &DisposeError{HandlerIndex: i, Err: err}
			result.Errors = append(result.Errors, disposeErr)
			c.errors = append(c.errors, disposeErr)
			// 记录错误但不中断其他清理
			Errorf("Cleanup handler[%d] failed: %v", i, err)
		}
	}
	return result
}

// AddCleanHandler 添加清理处理器
func (c *Dispose) AddCleanHandler(f func() error) {
	c.handlerMu.Lock()
	defer c.handlerMu.Unlock()
	c.cleanHandlers = append(c.cleanHandlers, f)
}

// SetCtx 绑定父 context，只能调用一次
func (c *Dispose) SetCtx(parent context.Context, onClose func() error) {
	if c.ctx != nil {
		Warn("ctx already set")
		return
	}
	if parent == nil {
		parent = context.Background()
	}
	if onClose != nil {
		c.AddCleanHandler(onClose)
	}

	c.ctx, c.cancel = context.WithCancel(parent)
	ctx := c.ctx
	go func() {
		<-ctx.Done()
		c.mu.Lock()
		defer c.mu.Unlock()
		if !c.closed {
			c.closed = true
			if result := c.runCleanHandlers(); result.HasErrors() {
				Errorf("Context cancellation cleanup failed: %v", result.Error())
			}
		}
	}()
}

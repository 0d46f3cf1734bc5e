package dispose

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// ResourceManager 资源管理器，按注册的相反顺序释放资源
type ResourceManager struct {
	resources map[string]Disposable
	order     []string
	mu        sync.Mutex
}

// NewResourceManager 创建新的资源管理器
func NewResourceManager() *ResourceManager {
	return &ResourceManager{
		resources: make(map[string]Disposable),
	}
}

// Register 注册资源
func (rm *ResourceManager) Register(name string, resource Disposable) error {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if _, exists := rm.resources[name]; exists {
		return fmt.Errorf("resource %s already registered", name)
	}
	rm.resources[name] = resource
	rm.order = append(rm.order, name)
	Debugf("Registered resource: %s", name)
	return nil
}

// ListResources 按注册顺序列出资源名称
func (rm *ResourceManager) ListResources() []string {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	names := make([]string, len(rm.order))
	copy(names, rm.order)
	return names
}

// DisposeAll 释放所有资源
func (rm *ResourceManager) DisposeAll() *DisposeResult {
	rm.mu.Lock()
	resources := rm.resources
	order := rm.order
	rm.resources = make(map[string]Disposable)
	rm.order = nil
	rm.mu.Unlock()

	result := &DisposeResult{Errors: make([]*DisposeError, 0)}
	for i := len(order) - 1; i >= 0; i-- {
		name := order[i]
		if err := resources[name].Dispose(); err != nil {
			result.Errors = append(result.Errors, &DisposeError{
				HandlerIndex: len(order) - 1 - i,
				ResourceName: name,
				Err:          err,
			})
			Errorf("Failed to dispose resource %s: %v", name, err)
		} else {
			Debugf("Disposed resource: %s", name)
		}
	}
	return result
}

// DisposeWithTimeout 带超时的资源释放
func (rm *ResourceManager) DisposeWithTimeout(timeout time.Duration) *DisposeResult {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	resultChan := make(chan *DisposeResult, 1)
	go func() {
		resultChan <- rm.DisposeAll()
	}()

	select {
	case result := <-resultChan:
		return result
	case <-ctx.Done():
		return &DisposeResult{
			Errors: []*DisposeError{{
				HandlerIndex: -1,
				ResourceName: "timeout",
				Err:          fmt.Errorf("dispose timeout after %v", timeout),
			}},
		}
	}
}

package client

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"speedtest-core/internal/constants"
	"speedtest-core/internal/core/dispose"
	coreerrors "speedtest-core/internal/core/errors"
	corelog "speedtest-core/internal/core/log"
	"speedtest-core/internal/core/metrics"
	"speedtest-core/internal/utils"
)

// MsgStartingTest 开始测试时的提示行
const MsgStartingTest = "Starting speed test..."

type transferFunc func(ctx context.Context, j job) TransferResult

// Orchestrator 探测端状态机
//
//	Idle -> AwaitingOffer -> RunningTest -> AwaitingOffer -> ...
//
// Idle 阶段只询问一次参数；之后每收到一个 Offer 就用同一组参数跑一轮测试
type Orchestrator struct {
	dispose.Dispose

	cfg     Config
	source  ParamSource
	sink    ResultSink
	logger  corelog.Logger
	metrics metrics.Metrics

	discovery *Discovery
	runTCP    transferFunc
	runUDP    transferFunc

	state     atomic.Int32
	completed atomic.Int64

	mu   sync.Mutex
	done chan struct{}
	err  error
}

// OrchestratorOption 探测端选项
type OrchestratorOption func(*Orchestrator)

// WithLogger 设置日志
func WithLogger(l corelog.Logger) OrchestratorOption {
	return func(o *Orchestrator) { o.logger = l }
}

// WithMetrics 设置指标收集器
func WithMetrics(m metrics.Metrics) OrchestratorOption {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithDiscovery 使用已绑定的发现监听器，Orchestrator 负责关闭它
func WithDiscovery(d *Discovery) OrchestratorOption {
	return func(o *Orchestrator) { o.discovery = d }
}

// NewOrchestrator 创建探测端，Start 之前不绑定任何端口
func NewOrchestrator(cfg Config, source ParamSource, sink ResultSink, opts ...OrchestratorOption) (*Orchestrator, error) {
	if source == nil || sink == nil {
		return nil, coreerrors.New(coreerrors.CodeInvalidConfig, "param source and result sink are required")
	}

	o := &Orchestrator{
		cfg:    cfg.withDefaults(),
		source: source,
		sink:   sink,
		logger: corelog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	o.metrics = metrics.OrGlobal(o.metrics)
	o.logger = o.logger.WithField(constants.LogFieldComponent, "prober")

	w := &worker{cfg: o.cfg, logger: o.logger, metrics: o.metrics}
	o.runTCP = w.tcp
	o.runUDP = w.udp
	return o, nil
}

// Name 实现 utils.Service
func (o *Orchestrator) Name() string {
	return "prober"
}

// State 当前状态
func (o *Orchestrator) State() State {
	return State(o.state.Load())
}

// Cycles 已完成的测试轮数
func (o *Orchestrator) Cycles() int {
	return int(o.completed.Load())
}

func (o *Orchestrator) setState(s State) {
	if prev := State(o.state.Swap(int32(s))); prev != s {
		o.logger.WithField(constants.LogFieldState, s.String()).Debugf("State %s -> %s", prev, s)
	}
}

// Start 绑定发现端口并在后台运行状态机
func (o *Orchestrator) Start(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.done != nil {
		return coreerrors.New(coreerrors.CodeInternal, "prober already started")
	}
	if o.discovery == nil {
		d, err := ListenDiscovery(ctx, o.cfg.DiscoveryHost, o.cfg.DiscoveryPort, o.cfg.DiscoveryWait, o.logger, o.metrics)
		if err != nil {
			return err
		}
		o.discovery = d
	}

	o.SetCtx(ctx, o.onClose)
	o.done = make(chan struct{})
	runCtx := o.Ctx()
	go func() {
		defer close(o.done)
		o.err = utils.Recover("prober", func() error { return o.loop(runCtx) })
	}()
	return nil
}

// Done 状态机退出后关闭；Start 之前返回 nil
func (o *Orchestrator) Done() <-chan struct{} {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.done
}

// Err 状态机退出原因，正常结束（取消、参数源耗尽、达到轮数）为 nil
func (o *Orchestrator) Err() error {
	select {
	case <-o.Done():
		return o.err
	default:
		return nil
	}
}

// Stop 取消状态机并等待当前测试结束
func (o *Orchestrator) Stop(ctx context.Context) error {
	if result := o.Close(); result.HasErrors() {
		o.logger.Warnf("Prober close: %s", result.Error())
	}
	done := o.Done()
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return coreerrors.Wrap(ctx.Err(), coreerrors.CodeTimeout, "prober stop")
	}
}

// Run 阻塞运行直到 ctx 取消、参数源耗尽或达到测试轮数上限
func (o *Orchestrator) Run(ctx context.Context) error {
	if err := o.Start(ctx); err != nil {
		return err
	}
	<-o.Done()
	o.Close()
	return o.err
}

func (o *Orchestrator) onClose() error {
	if o.discovery != nil {
		return o.discovery.Close()
	}
	return nil
}

func (o *Orchestrator) loop(ctx context.Context) error {
	defer o.setState(StateIdle)

	params, ok, err := o.idle(ctx)
	if !ok {
		return err
	}
	o.status(constants.MsgClientStarted)

	for o.cfg.Cycles == 0 || o.Cycles() < o.cfg.Cycles {
		endpoint, ok := o.awaitOffer(ctx)
		if !ok {
			return nil
		}
		o.runTest(ctx, params, endpoint)
		if ctx.Err() != nil {
			return nil
		}
		o.status(constants.MsgAllTransfersComplete)
	}
	o.logger.Infof("Completed %d test cycles", o.Cycles())
	return nil
}

// idle 询问参数直到得到合法参数；非法参数留在 Idle 再问一次
// ok 为 false 表示不再进行测试，此时 err 非空说明参数源出现了意外错误
func (o *Orchestrator) idle(ctx context.Context) (params Params, ok bool, err error) {
	o.setState(StateIdle)
	for {
		params, err = o.source.Next(ctx)
		if err == nil {
			err = params.Validate()
		}
		switch {
		case err == nil:
			return params, true, nil
		case ctx.Err() != nil:
			return Params{}, false, nil
		case coreerrors.IsCode(err, coreerrors.CodeSourceExhausted):
			o.logger.Info("Parameter source exhausted, stopping")
			return Params{}, false, nil
		case coreerrors.IsCode(err, coreerrors.CodeInvalidConfig):
			o.logger.Warnf(constants.MsgInvalidConfiguration, err)
			o.status(fmt.Sprintf("Invalid input: %v", err))
		default:
			return Params{}, false, coreerrors.Wrap(err, coreerrors.CodeInternal, "read test parameters")
		}
	}
}

// awaitOffer 清空积压的 Offer 后等待新的 Offer；读失败只放弃本次等待
func (o *Orchestrator) awaitOffer(ctx context.Context) (Endpoint, bool) {
	o.setState(StateAwaitingOffer)
	for {
		o.discovery.Drain()
		endpoint, err := o.discovery.Await(ctx)
		if err == nil {
			o.status(fmt.Sprintf(constants.MsgReceivedOffer, endpoint))
			return endpoint, true
		}
		if ctx.Err() != nil {
			return Endpoint{}, false
		}
		o.logger.WithError(err).Warn("Discovery failed, retrying")
		select {
		case <-ctx.Done():
			return Endpoint{}, false
		case <-time.After(constants.DefaultPollInterval):
		}
	}
}

// runTest 连接 id 从 1 开始，先 TCP 后 UDP；worker 的错误随结果返回，不会取消其他 worker
func (o *Orchestrator) runTest(ctx context.Context, params Params, endpoint Endpoint) {
	o.setState(StateRunningTest)
	runID := uuid.NewString()
	logger := o.logger.WithField(constants.LogFieldRunID, runID)
	logger.WithFields(map[string]interface{}{
		constants.LogFieldSize: params.PayloadSize,
		"tcp":                  params.TCPConnections,
		"udp":                  params.UDPConnections,
	}).Infof("Running test against %s", endpoint)
	o.status(MsgStartingTest)

	var g errgroup.Group
	id := 1
	spawn := func(proto Protocol, fn transferFunc, count int) {
		for i := 0; i < count; i++ {
			j := job{runID: runID, id: id, size: params.PayloadSize, endpoint: endpoint}
			g.Go(func() error {
				o.execute(ctx, proto, fn, j)
				return nil
			})
			id++
		}
	}
	spawn(ProtocolTCP, o.runTCP, params.TCPConnections)
	spawn(ProtocolUDP, o.runUDP, params.UDPConnections)
	_ = g.Wait()

	o.completed.Add(1)
	_ = o.metrics.IncrementCounter(metrics.CyclesCompleted, nil)
	logger.Debug("All transfers joined")
}

// execute 运行单个 worker，panic 转换为失败结果
func (o *Orchestrator) execute(ctx context.Context, proto Protocol, fn transferFunc, j job) {
	var res TransferResult
	err := utils.Recover(fmt.Sprintf("%s-transfer-%d", proto, j.id), func() error {
		res = fn(ctx, j)
		return nil
	})
	if err != nil {
		res = TransferResult{
			RunID:        j.runID,
			ConnectionID: j.id,
			Protocol:     proto,
			Requested:    j.size,
			Err:          coreerrors.Wrap(err, coreerrors.CodeInternal, "transfer worker panicked"),
		}
		if proto == ProtocolTCP {
			res.Shortfall = j.size
		}
	}
	recordResult(o.metrics, res)
	o.sink.Emit(res)
}

func (o *Orchestrator) status(msg string) {
	o.logger.Debug(msg)
	if s, ok := o.sink.(StatusSink); ok {
		s.Status(msg)
	}
}

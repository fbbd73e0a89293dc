package worker

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"

	"kv-store/internal/logger"
)

// DefaultWorkers はノードが同時に処理するRPC数の既定値
const DefaultWorkers = 10

// ErrStopped はプールが停止しているときに返される
var ErrStopped = errors.New("worker pool is not running")

// Job はワーカーが実行するジョブを表す
type Job func()

// PoolConfig はワーカープールの設定
type PoolConfig struct {
	NumWorkers  int // ワーカー数（0でCPU数）
	QueueFactor int // キューサイズ = NumWorkers * QueueFactor
}

// DefaultPoolConfig はデフォルト設定を返す
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		NumWorkers:  0,
		QueueFactor: 100,
	}
}

// Pool は固定数のゴルーチンでジョブを処理する
type Pool struct {
	numWorkers int
	jobs       chan Job
	wg         sync.WaitGroup

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	started bool
}

// NewPool は新しいワーカープールを作成する
// numWorkers が 0 の場合は CPU 数を使用
func NewPool(numWorkers int) *Pool {
	config := DefaultPoolConfig()
	config.NumWorkers = numWorkers
	return NewPoolWithConfig(config)
}

// NewPoolWithConfig は設定を指定してワーカープールを作成する
func NewPoolWithConfig(config PoolConfig) *Pool {
	numWorkers := config.NumWorkers
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	queueFactor := config.QueueFactor
	if queueFactor <= 0 {
		queueFactor = 100
	}
	return &Pool{
		numWorkers: numWorkers,
		jobs:       make(chan Job, numWorkers*queueFactor),
	}
}

// Start はワーカープールを起動する
func (p *Pool) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return
	}

	p.ctx, p.cancel = context.WithCancel(ctx)
	p.started = true

	for range p.numWorkers {
		p.wg.Add(1)
		go p.worker(p.ctx)
	}

	logger.Debug("", "WorkerPool started with %d workers", p.numWorkers)
}

// worker は個々のワーカーゴルーチン
func (p *Pool) worker(ctx context.Context) {
	defer p.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case job := <-p.jobs:
			job()
		}
	}
}

// runContext は稼働中のプールのコンテキストを返す
func (p *Pool) runContext() (context.Context, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started || p.ctx.Err() != nil {
		return nil, false
	}
	return p.ctx, true
}

// Submit はジョブをプールに送信し、キューに空きがなければブロックする
func (p *Pool) Submit(job Job) bool {
	ctx, ok := p.runContext()
	if !ok {
		return false
	}

	select {
	case <-ctx.Done():
		return false
	case p.jobs <- job:
		return true
	}
}

// Run はジョブをワーカー上で実行し、完了まで待つ。
// ジョブが開始される前にctxかプールが終了した場合、ジョブは実行されない。
func (p *Pool) Run(ctx context.Context, job Job) error {
	poolCtx, ok := p.runContext()
	if !ok {
		return ErrStopped
	}

	var claimed atomic.Bool
	done := make(chan struct{})
	wrapped := func() {
		if !claimed.CompareAndSwap(false, true) {
			return
		}
		defer close(done)
		job()
	}

	select {
	case p.jobs <- wrapped:
	case <-ctx.Done():
		return ctx.Err()
	case <-poolCtx.Done():
		return ErrStopped
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		if claimed.CompareAndSwap(false, true) {
			return ctx.Err()
		}
	case <-poolCtx.Done():
		if claimed.CompareAndSwap(false, true) {
			return ErrStopped
		}
	}

	// 既に実行中のジョブは最後まで待つ
	<-done
	return nil
}

// Stop はワーカープールを停止し、実行中のジョブの完了を待つ。
// キューに残ったジョブは破棄される。
func (p *Pool) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.started = false
	p.cancel()
	p.mu.Unlock()

	p.wg.Wait()

	// 破棄
	for {
		select {
		case <-p.jobs:
		default:
			logger.Debug("", "WorkerPool stopped")
			return
		}
	}
}

// NumWorkers はワーカー数を返す
func (p *Pool) NumWorkers() int {
	return p.numWorkers
}

// QueueSize は現在のキューサイズを返す
func (p *Pool) QueueSize() int {
	return len(p.jobs)
}

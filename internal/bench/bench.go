package bench

import (
	"context"
	cryptorand "crypto/rand"
	"encoding/hex"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"kv-store/internal/logger"
	"kv-store/internal/metrics"
	"kv-store/internal/worker"
)

// Target は負荷をかける対象ノード
type Target interface {
	Addr() string
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, broadcast bool) (string, error)
}

// Config は負荷生成の設定
type Config struct {
	NumWorkers    int     // ワーカー数（0でデフォルト）
	WriteRatio    float64 // Write比率（0.0〜1.0）
	KeyRange      int     // キーの範囲（0〜KeyRange-1）
	ValueSize     int     // 値のサイズ（バイト）
	RequestsLimit uint64  // リクエスト上限（0で無制限）
}

// DefaultConfig はデフォルト設定を返す
func DefaultConfig() Config {
	return Config{
		NumWorkers:    worker.DefaultWorkers,
		WriteRatio:    0.5, // 50% Write
		KeyRange:      10000,
		ValueSize:     16,
		RequestsLimit: 0,
	}
}

// Generator は負荷生成器
type Generator struct {
	config  Config
	targets []Target
	pool    *worker.Pool
	metrics *metrics.Metrics

	submitted atomic.Uint64
	running   atomic.Bool
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	inflight  sync.WaitGroup
}

// New は新しいGeneratorを作成する
func New(targets []Target, config Config) *Generator {
	if config.NumWorkers <= 0 {
		config.NumWorkers = worker.DefaultWorkers
	}
	if config.KeyRange <= 0 {
		config.KeyRange = DefaultConfig().KeyRange
	}
	if config.ValueSize <= 0 {
		config.ValueSize = DefaultConfig().ValueSize
	}
	return &Generator{
		config:  config,
		targets: targets,
		pool:    worker.NewPool(config.NumWorkers),
		metrics: metrics.New(),
	}
}

// Start は負荷生成を開始する
func (g *Generator) Start(ctx context.Context) {
	if g.running.Swap(true) {
		return // Already running
	}

	g.ctx, g.cancel = context.WithCancel(ctx)
	g.pool.Start(g.ctx)

	logger.Info("", "Load generator started (workers: %d, write_ratio: %.1f%%, targets: %d)",
		g.pool.NumWorkers(), g.config.WriteRatio*100, len(g.targets))

	// リクエスト生成ループ
	g.wg.Add(1)
	go g.generateRequests()
}

// generateRequests はリクエストを生成し続ける
func (g *Generator) generateRequests() {
	defer g.wg.Done()

	if len(g.targets) == 0 {
		logger.Error("", "No targets to send requests to")
		return
	}

	for {
		select {
		case <-g.ctx.Done():
			return
		default:
		}

		// リクエスト上限チェック
		if g.config.RequestsLimit > 0 && g.submitted.Load() >= g.config.RequestsLimit {
			return
		}

		t := g.targets[rand.Intn(len(g.targets))]
		key := fmt.Sprintf("key_%d", rand.Intn(g.config.KeyRange))
		isWrite := rand.Float64() < g.config.WriteRatio

		g.inflight.Add(1)
		if !g.pool.Submit(g.createJob(t, key, isWrite)) {
			g.inflight.Done()
			return
		}
		g.submitted.Add(1)
	}
}

// createJob はリクエストジョブを作成する
func (g *Generator) createJob(t Target, key string, isWrite bool) worker.Job {
	return func() {
		defer g.inflight.Done()

		start := time.Now()
		var err error

		if isWrite {
			_, err = t.Set(g.ctx, key, randomValue(g.config.ValueSize), true)
		} else {
			_, _, err = t.Get(g.ctx, key)
		}

		// 停止による中断は記録しない
		if g.ctx.Err() != nil {
			return
		}
		g.metrics.Record(time.Since(start), err)
	}
}

// randomValue はsizeバイトの乱数を16進文字列で返す
func randomValue(size int) string {
	buf := make([]byte, size)
	_, _ = cryptorand.Read(buf)
	return hex.EncodeToString(buf)
}

// Stop は負荷生成を停止する。キューに残ったリクエストは送信されない。
func (g *Generator) Stop() {
	if !g.running.Swap(false) {
		return // Not running
	}

	g.cancel()
	g.pool.Stop()
	g.wg.Wait()

	logger.Info("", "Load generator stopped")
}

// Metrics はメトリクスを返す
func (g *Generator) Metrics() *metrics.Metrics {
	return g.metrics
}

// IsRunning は実行中かどうかを返す
func (g *Generator) IsRunning() bool {
	return g.running.Load()
}

// RunFor は指定時間だけ負荷生成を実行する
func (g *Generator) RunFor(ctx context.Context, duration time.Duration) *metrics.Snapshot {
	g.Start(ctx)

	select {
	case <-ctx.Done():
	case <-time.After(duration):
	}

	g.Stop()

	snapshot := g.metrics.Snapshot()
	return &snapshot
}

// RunRequests は指定数のリクエストを実行し、全ての完了を待つ
func (g *Generator) RunRequests(ctx context.Context, count uint64) *metrics.Snapshot {
	g.config.RequestsLimit = count
	g.Start(ctx)
	g.wg.Wait()

	done := make(chan struct{})
	go func() {
		g.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}

	g.Stop()

	snapshot := g.metrics.Snapshot()
	return &snapshot
}

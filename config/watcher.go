// 配置文件热重载。
//
// 轮询配置文件的修改时间，防抖后通过 Loader 重新加载，
// 成功时把新配置交给已注册的回调；加载失败时保留旧配置。
package config

import (
	"context"
	"errors"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrWatcherRunning 表示重复启动
var ErrWatcherRunning = errors.New("config watcher already running")

// --- 监听器选项 ---

// WatcherOption 配置 Watcher
type WatcherOption func(*Watcher)

// WithPollInterval 设置轮询间隔
func WithPollInterval(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.pollInterval = d
		}
	}
}

// WithDebounceDelay 设置防抖延迟
func WithDebounceDelay(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		w.debounceDelay = d
	}
}

// WithWatcherLogger 设置日志
func WithWatcherLogger(logger *zap.Logger) WatcherOption {
	return func(w *Watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// --- Watcher ---

// Watcher 在配置文件变化时重新加载配置
type Watcher struct {
	mu sync.RWMutex

	loader        *Loader
	pollInterval  time.Duration
	debounceDelay time.Duration

	running  bool
	stopChan chan struct{}
	lastMod  time.Time
	current  *Config

	callbacks []func(*Config)
	logger    *zap.Logger
}

// NewWatcher 创建监听 loader.ConfigPath() 的 Watcher，initial 为当前生效的配置
func NewWatcher(loader *Loader, initial *Config, opts ...WatcherOption) *Watcher {
	w := &Watcher{
		loader:        loader,
		pollInterval:  time.Second,
		debounceDelay: 100 * time.Millisecond,
		current:       initial,
		logger:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// OnReload 注册重载回调
func (w *Watcher) OnReload(callback func(*Config)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = append(w.callbacks, callback)
}

// Current 返回最近一次成功加载的配置
func (w *Watcher) Current() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// Start 开始轮询，ctx 取消或 Stop 时退出
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return ErrWatcherRunning
	}
	w.running = true
	w.stopChan = make(chan struct{})
	if info, err := os.Stat(w.loader.ConfigPath()); err == nil {
		w.lastMod = info.ModTime()
	} else {
		w.logger.Warn("config file does not exist, will watch for creation",
			zap.String("path", w.loader.ConfigPath()))
	}
	stop := w.stopChan
	w.mu.Unlock()

	go w.pollLoop(ctx, stop)

	w.logger.Info("config watcher started",
		zap.String("path", w.loader.ConfigPath()),
		zap.Duration("poll_interval", w.pollInterval))
	return nil
}

// Stop 停止轮询
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running {
		return
	}
	close(w.stopChan)
	w.running = false
	w.logger.Info("config watcher stopped")
}

// IsRunning 返回是否在运行
func (w *Watcher) IsRunning() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.running
}

func (w *Watcher) pollLoop(ctx context.Context, stop <-chan struct{}) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	var debounce <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-ticker.C:
			if w.changed() {
				// 连续写入只触发一次重载
				debounce = time.After(w.debounceDelay)
			}
		case <-debounce:
			debounce = nil
			w.reload()
		}
	}
}

// changed 检查修改时间是否前进
func (w *Watcher) changed() bool {
	info, err := os.Stat(w.loader.ConfigPath())
	if err != nil {
		return false
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if !info.ModTime().After(w.lastMod) {
		return false
	}
	w.lastMod = info.ModTime()
	return true
}

func (w *Watcher) reload() {
	cfg, err := w.loader.Load()
	if err != nil {
		w.logger.Warn("config reload failed, keeping previous config", zap.Error(err))
		return
	}

	w.mu.Lock()
	w.current = cfg
	callbacks := make([]func(*Config), len(w.callbacks))
	copy(callbacks, w.callbacks)
	w.mu.Unlock()

	w.logger.Info("config reloaded", zap.String("path", w.loader.ConfigPath()))
	for _, cb := range callbacks {
		cb(cfg)
	}
}

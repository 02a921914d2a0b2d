// internal/services/lock_manager.go
package services

import (
	"sync"
	"sync/atomic"
	"time"
)

// LockManager 按产物名称分配的锁，保证同名文件的写入互不交错
type LockManager struct {
	locks         map[string]*LockInfo
	globalLock    sync.Mutex
	lockTTL       time.Duration
	maxLocks      int
	cleanupTicker *time.Ticker
	stopCh        chan struct{}
	stopOnce      sync.Once
}

// LockInfo 包装锁和相关信息
type LockInfo struct {
	Mutex          *sync.Mutex
	LastUsed       time.Time
	ReferenceCount int32 // 当前持有或等待该锁的协程数，大于零时不会被清理
}

// NewLockManager 创建锁管理器并启动后台清理
func NewLockManager() *LockManager {
	lm := newLockManager(30*time.Minute, 200)
	lm.startCleanup(5 * time.Minute)
	return lm
}

func newLockManager(ttl time.Duration, maxLocks int) *LockManager {
	return &LockManager{
		locks:    make(map[string]*LockInfo),
		lockTTL:  ttl,
		maxLocks: maxLocks,
		stopCh:   make(chan struct{}),
	}
}

// acquire 取得名称对应的锁信息并增加引用计数
func (lm *LockManager) acquire(name string) *LockInfo {
	lm.globalLock.Lock()
	defer lm.globalLock.Unlock()

	info, exists := lm.locks[name]
	if !exists {
		info = &LockInfo{Mutex: &sync.Mutex{}}
		lm.locks[name] = info
	}
	info.LastUsed = time.Now()
	atomic.AddInt32(&info.ReferenceCount, 1)
	return info
}

func (lm *LockManager) release(info *LockInfo) {
	lm.globalLock.Lock()
	info.LastUsed = time.Now()
	lm.globalLock.Unlock()
	atomic.AddInt32(&info.ReferenceCount, -1)
}

// ExecuteWithLock 在名称锁保护下执行操作
func (lm *LockManager) ExecuteWithLock(name string, fn func() error) error {
	info := lm.acquire(name)
	defer lm.release(info)

	info.Mutex.Lock()
	defer info.Mutex.Unlock()
	return fn()
}

// ExecuteWithLocks 按顺序获取多个名称锁后执行，名称需按固定顺序传入以避免死锁
func (lm *LockManager) ExecuteWithLocks(names []string, fn func() error) error {
	if len(names) == 0 {
		return fn()
	}
	return lm.ExecuteWithLock(names[0], func() error {
		return lm.ExecuteWithLocks(names[1:], fn)
	})
}

// Len 返回当前登记的锁数量
func (lm *LockManager) Len() int {
	lm.globalLock.Lock()
	defer lm.globalLock.Unlock()
	return len(lm.locks)
}

// Stop 停止后台清理
func (lm *LockManager) Stop() {
	lm.stopOnce.Do(func() {
		close(lm.stopCh)
		if lm.cleanupTicker != nil {
			lm.cleanupTicker.Stop()
		}
	})
}

// 定期清理未使用的锁
func (lm *LockManager) startCleanup(interval time.Duration) {
	lm.cleanupTicker = time.NewTicker(interval)
	go func() {
		for {
			select {
			case <-lm.cleanupTicker.C:
				lm.cleanupUnusedLocks()
			case <-lm.stopCh:
				return
			}
		}
	}()
}

// cleanupUnusedLocks 锁数量超过上限时删除长时间未使用且无人引用的锁，返回删除数量
func (lm *LockManager) cleanupUnusedLocks() int {
	lm.globalLock.Lock()
	defer lm.globalLock.Unlock()

	if len(lm.locks) <= lm.maxLocks {
		return 0
	}

	removed := 0
	now := time.Now()
	for name, info := range lm.locks {
		if atomic.LoadInt32(&info.ReferenceCount) > 0 {
			continue
		}
		if now.Sub(info.LastUsed) > lm.lockTTL {
			delete(lm.locks, name)
			removed++
		}
	}
	return removed
}

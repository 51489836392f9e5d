package middleware

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// ==================== CooldownLimiter 冷却限流器 ====================

// CooldownLimiter 会话级操作冷却
// 防止重复点击在同一会话上连续触发上传或提交
type CooldownLimiter struct {
	locks sync.Map // key -> *lockEntry
}

type lockEntry struct {
	lastTime time.Time
	mu       sync.Mutex
}

func NewCooldownLimiter() *CooldownLimiter {
	return &CooldownLimiter{}
}

// CheckResult 检查结果
type CheckResult struct {
	Allowed    bool
	RetryAfter time.Duration
}

// Check 检查并记录执行时间
func (r *CooldownLimiter) Check(key string, interval time.Duration) CheckResult {
	actual, _ := r.locks.LoadOrStore(key, &lockEntry{})
	entry := actual.(*lockEntry)

	entry.mu.Lock()
	defer entry.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(entry.lastTime)
	if elapsed < interval {
		return CheckResult{Allowed: false, RetryAfter: interval - elapsed}
	}

	entry.lastTime = now
	return CheckResult{Allowed: true}
}

// Reset 清除指定 key (会话关闭时)
func (r *CooldownLimiter) Reset(key string) {
	r.locks.Delete(key)
}

// ResetSession 清除会话的全部冷却记录
func (r *CooldownLimiter) ResetSession(sessionID string) {
	for _, action := range []Action{ActionUpload, ActionSubmit} {
		r.Reset(SessionKey(sessionID, action))
	}
}

// ==================== Key 生成 ====================

// Action 受冷却限制的会话操作
type Action string

const (
	ActionUpload Action = "upload"
	ActionSubmit Action = "submit"
)

// SessionKey 会话级冷却 Key
func SessionKey(sessionID string, action Action) string {
	return fmt.Sprintf("session:%s:%s", sessionID, action)
}

// DefaultIntervals 默认冷却间隔
var DefaultIntervals = map[Action]time.Duration{
	ActionUpload: 2 * time.Second,
	ActionSubmit: time.Second,
}

// GetInterval 操作的默认间隔
func GetInterval(action Action) time.Duration {
	if interval, ok := DefaultIntervals[action]; ok {
		return interval
	}
	return time.Second
}

// ==================== Gin 中间件 ====================

// SessionCooldown 按会话 + 操作维度冷却，interval 为 0 时使用默认值
func SessionCooldown(limiter *CooldownLimiter, action Action, interval time.Duration) gin.HandlerFunc {
	if interval == 0 {
		interval = GetInterval(action)
	}

	return func(c *gin.Context) {
		sessionID := c.Param("id")
		if sessionID == "" {
			c.Next()
			return
		}

		result := limiter.Check(SessionKey(sessionID, action), interval)
		if !result.Allowed {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"code":    429,
				"message": formatRetryMessage(result.RetryAfter),
				"data": gin.H{
					"retry_after_ms": result.RetryAfter.Milliseconds(),
					"action":         action,
				},
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

func formatRetryMessage(d time.Duration) string {
	seconds := int(d.Round(time.Second).Seconds())
	if seconds < 1 {
		return "Please wait a moment before trying again."
	}
	return fmt.Sprintf("Please wait %d seconds before trying again.", seconds)
}

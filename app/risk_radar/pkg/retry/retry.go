// Package retry 提供 LLM 调用与搜索调用共用的有界重试。
package retry

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/logger"
)

// Config 重试参数，MaxAttempts 包含首次调用
type Config struct {
	MaxAttempts   int
	BaseDelay     time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
	JitterFactor  float64
}

// Fixed 固定间隔重试：每次等待 delay，不加抖动
func Fixed(attempts int, delay time.Duration) Config {
	return Config{MaxAttempts: attempts, BaseDelay: delay, MaxDelay: delay, BackoffFactor: 1}
}

// Classifier 判断错误是否值得重试
type Classifier func(error) bool

// Always 所有错误均可重试
func Always(error) bool { return true }

// Retrier 有界重试执行器
type Retrier struct {
	config      Config
	isRetryable Classifier
	sleep       func(context.Context, time.Duration) error
}

// New 创建 Retrier，classifier 为 nil 时所有错误都不重试
func New(config Config, classifier Classifier) *Retrier {
	if config.MaxAttempts < 1 {
		config.MaxAttempts = 1
	}
	if config.BackoffFactor <= 0 {
		config.BackoffFactor = 1
	}
	return &Retrier{config: config, isRetryable: classifier, sleep: sleepCtx}
}

// WithSleep 替换等待函数，测试中用于跳过真实等待
func (r *Retrier) WithSleep(sleep func(context.Context, time.Duration) error) *Retrier {
	r.sleep = sleep
	return r
}

// MaxAttempts 返回总尝试次数
func (r *Retrier) MaxAttempts() int {
	return r.config.MaxAttempts
}

// Do 执行 op，直到成功、遇到不可重试错误或用尽次数
func (r *Retrier) Do(ctx context.Context, name string, op func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 1; attempt <= r.config.MaxAttempts; attempt++ {
		lastErr = op(ctx)
		if lastErr == nil {
			if attempt > 1 {
				logger.Log.Infof("[%s] 第 %d 次尝试成功", name, attempt)
			}
			return nil
		}

		retryable := r.isRetryable != nil && r.isRetryable(lastErr)
		if !retryable || attempt == r.config.MaxAttempts {
			if attempt > 1 || retryable {
				return fmt.Errorf("%s failed after %d attempts: %w", name, attempt, lastErr)
			}
			return lastErr
		}

		delay := r.delay(attempt)
		logger.Log.Warnf("[%s] 第 %d/%d 次尝试失败，%v 后重试: %v", name, attempt, r.config.MaxAttempts, delay, lastErr)
		if err := r.sleep(ctx, delay); err != nil {
			return fmt.Errorf("%s retry cancelled: %w", name, err)
		}
	}
	return lastErr
}

func (r *Retrier) delay(attempt int) time.Duration {
	d := float64(r.config.BaseDelay) * math.Pow(r.config.BackoffFactor, float64(attempt-1))
	if r.config.MaxDelay > 0 && d > float64(r.config.MaxDelay) {
		d = float64(r.config.MaxDelay)
	}
	if r.config.JitterFactor > 0 {
		d *= 1.0 + (rand.Float64()-0.5)*r.config.JitterFactor
	}
	return time.Duration(d)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

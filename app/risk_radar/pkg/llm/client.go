package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"golang.org/x/time/rate"

	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/config"
	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/logger"
	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/retry"
)

// ErrMalformed 模型输出不是合法的结构化结果
var ErrMalformed = errors.New("malformed model output")

// ChatModel 只依赖 eino ChatModel 的同步生成能力
type ChatModel interface {
	Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error)
}

// Client 带重试与限速的 LLM 客户端，各阶段显式持有同一个实例
type Client struct {
	model   ChatModel
	retrier *retry.Retrier
	limiter *rate.Limiter
}

// New 包装已有的 ChatModel，maxRetries 为首次调用之外的重试次数
func New(cm ChatModel, maxRetries int) *Client {
	return &Client{
		model: cm,
		retrier: retry.New(retry.Config{
			MaxAttempts:   maxRetries + 1,
			BaseDelay:     2 * time.Second,
			MaxDelay:      30 * time.Second,
			BackoffFactor: 2,
			JitterFactor:  0.2,
		}, IsRetryable),
		limiter: rate.NewLimiter(rate.Inf, 1),
	}
}

// NewOpenAI 按配置创建 OpenAI 兼容的客户端
func NewOpenAI(ctx context.Context, cfg config.LLMConfig) (*Client, error) {
	chatModel, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		BaseURL: cfg.BaseURL,
		APIKey:  cfg.APIKey,
		Model:   cfg.Model,
		Timeout: cfg.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("LLM 初始化失败: %w", err)
	}
	c := New(chatModel, cfg.MaxRetries)
	if cfg.RPM > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(float64(cfg.RPM)/60.0), 1)
	}
	return c, nil
}

// WithRetrier 替换重试器
func (c *Client) WithRetrier(r *retry.Retrier) *Client {
	c.retrier = r
	return c
}

// IsRetryable 取消与鉴权失败不重试，其余（超时、限流、格式错误）都重试
func IsRetryable(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, s := range []string{"401", "unauthorized", "invalid api key", "incorrect api key"} {
		if strings.Contains(msg, s) {
			return false
		}
	}
	return true
}

type validator interface {
	Validate() error
}

// GenerateJSON 调用模型并把结果解析到 out；解析或校验失败会触发重试。
// 每次尝试都从 out 的初始值重新解析，只有通过校验的结果才写回 out
func (c *Client) GenerateJSON(ctx context.Context, name, system, user string, out any) error {
	target := reflect.ValueOf(out)
	if target.Kind() != reflect.Pointer || target.IsNil() {
		return fmt.Errorf("%s: output must be a non-nil pointer, got %T", name, out)
	}
	initial := reflect.New(target.Elem().Type()).Elem()
	initial.Set(target.Elem())

	return c.retrier.Do(ctx, name, func(ctx context.Context) error {
		content, err := c.generate(ctx, system, user)
		if err != nil {
			return err
		}
		attempt := reflect.New(initial.Type())
		attempt.Elem().Set(initial)
		if err := json.Unmarshal([]byte(ExtractJSON(content)), attempt.Interface()); err != nil {
			logger.Log.Debugf("[%s] 无法解析的模型输出: %s", name, content)
			return fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		if v, ok := attempt.Interface().(validator); ok {
			if err := v.Validate(); err != nil {
				return fmt.Errorf("%w: %v", ErrMalformed, err)
			}
		}
		target.Elem().Set(attempt.Elem())
		return nil
	})
}

// GenerateText 调用模型返回纯文本
func (c *Client) GenerateText(ctx context.Context, name, system, user string) (string, error) {
	var text string
	err := c.retrier.Do(ctx, name, func(ctx context.Context) error {
		content, err := c.generate(ctx, system, user)
		if err != nil {
			return err
		}
		content = strings.TrimSpace(content)
		if content == "" {
			return fmt.Errorf("%w: empty response", ErrMalformed)
		}
		text = content
		return nil
	})
	return text, err
}

func (c *Client) generate(ctx context.Context, system, user string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}
	messages := []*schema.Message{
		{Role: schema.System, Content: system},
		{Role: schema.User, Content: user},
	}
	resp, err := c.model.Generate(ctx, messages)
	if err != nil {
		return "", err
	}
	if resp == nil {
		return "", fmt.Errorf("%w: nil message", ErrMalformed)
	}
	return resp.Content, nil
}

// ExtractJSON 去掉 markdown 代码块标记以及 JSON 前后的说明文字
func ExtractJSON(content string) string {
	s := strings.TrimSpace(content)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "{") || strings.HasPrefix(s, "[") {
		return s
	}
	if i, j := strings.Index(s, "{"), strings.LastIndex(s, "}"); i >= 0 && j > i {
		return s[i : j+1]
	}
	return s
}

package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/liushuangls/go-anthropic/v2"
	"github.com/sashabaranov/go-openai"
)

const defaultMaxTokens = 4096

// Backend is a client bound to one provider account and model code.
type Backend interface {
	Name() string
	Complete(ctx context.Context, prompt, system string) (string, error)
}

// BackendConfig configures a single backend client.
type BackendConfig struct {
	ProviderName string
	APIKey       string
	BaseURL      string
	Model        string
	MaxTokens    int
}

// ClaudeBackend talks to the Anthropic messages API.
type ClaudeBackend struct {
	client    *anthropic.Client
	model     string
	maxTokens int
}

// NewClaudeBackend fails with ErrMissingAPIKey when no key is set.
func NewClaudeBackend(cfg BackendConfig) (*ClaudeBackend, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("claude: %w", ErrMissingAPIKey)
	}
	if cfg.Model == "" {
		cfg.Model = "claude-sonnet-4-5"
	}

	var opts []anthropic.ClientOption
	if cfg.BaseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(cfg.BaseURL))
	}

	return &ClaudeBackend{
		client:    anthropic.NewClient(cfg.APIKey, opts...),
		model:     cfg.Model,
		maxTokens: maxTokensOrDefault(cfg.MaxTokens),
	}, nil
}

func (b *ClaudeBackend) Name() string {
	return "claude"
}

func (b *ClaudeBackend) Complete(ctx context.Context, prompt, system string) (string, error) {
	resp, err := b.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model:     anthropic.Model(b.model),
		System:    system,
		Messages:  []anthropic.Message{anthropic.NewUserTextMessage(prompt)},
		MaxTokens: b.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("claude API error: %w", err)
	}

	var sb strings.Builder
	for _, c := range resp.Content {
		sb.WriteString(c.GetText())
	}
	return sb.String(), nil
}

// OpenAICompatBackend implements Backend for any OpenAI-compatible API.
// This covers OpenAI, DeepSeek, Kimi, Qwen, Zhipu/GLM, Gemini, Grok, etc.
type OpenAICompatBackend struct {
	client       *openai.Client
	model        string
	providerName string
	maxTokens    int
}

// NewOpenAICompatBackend fails with ErrMissingAPIKey when no key is set.
func NewOpenAICompatBackend(cfg BackendConfig) (*OpenAICompatBackend, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%s: %w", cfg.ProviderName, ErrMissingAPIKey)
	}

	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}

	return &OpenAICompatBackend{
		client:       openai.NewClientWithConfig(config),
		model:        cfg.Model,
		providerName: cfg.ProviderName,
		maxTokens:    maxTokensOrDefault(cfg.MaxTokens),
	}, nil
}

func (b *OpenAICompatBackend) Name() string {
	return b.providerName
}

func (b *OpenAICompatBackend) Complete(ctx context.Context, prompt, system string) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if system != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: system,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: prompt,
	})

	resp, err := b.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     b.model,
		Messages:  messages,
		MaxTokens: b.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("%s API error: %w", b.providerName, err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}

func maxTokensOrDefault(n int) int {
	if n <= 0 {
		return defaultMaxTokens
	}
	return n
}

type compatDefault struct {
	baseURL string
	model   string
}

var compatDefaults = map[string]compatDefault{
	"openai":      {"https://api.openai.com/v1", "gpt-4o"},
	"deepseek":    {"https://api.deepseek.com/v1", "deepseek-chat"},
	"kimi":        {"https://api.moonshot.cn/v1", "moonshot-v1-8k"},
	"qwen":        {"https://dashscope.aliyuncs.com/compatible-mode/v1", "qwen-plus"},
	"minimax":     {"https://api.minimax.chat/v1", "MiniMax-Text-01"},
	"doubao":      {"https://ark.cn-beijing.volces.com/api/v3", "doubao-pro-32k"},
	"zhipu":       {"https://open.bigmodel.cn/api/paas/v4", "glm-4-flash"},
	"gemini":      {"https://generativelanguage.googleapis.com/v1beta/openai", "gemini-2.0-flash"},
	"yi":          {"https://api.lingyiwanwu.com/v1", "yi-large"},
	"stepfun":     {"https://api.stepfun.com/v1", "step-2-16k"},
	"siliconflow": {"https://api.siliconflow.cn/v1", "Qwen/Qwen2.5-72B-Instruct"},
	"grok":        {"https://api.x.ai/v1", "grok-2-latest"},
	"baichuan":    {"https://api.baichuan-ai.com/v1", "Baichuan4"},
	"hunyuan":     {"https://api.hunyuan.cloud.tencent.com/v1", "hunyuan-turbos-latest"},
}

var compatAliases = map[string]string{
	"moonshot":   "kimi",
	"qianwen":    "qwen",
	"tongyi":     "qwen",
	"glm":        "zhipu",
	"chatglm":    "zhipu",
	"gpt":        "openai",
	"chatgpt":    "openai",
	"google":     "gemini",
	"xai":        "grok",
	"bytedance":  "doubao",
	"volcengine": "doubao",
	"tencent":    "hunyuan",
}

// NewBackend builds the backend for a provider type. An empty type means
// Claude.
func NewBackend(cfg *ProviderConfig, modelCode string, maxTokens int) (Backend, error) {
	kind := strings.ToLower(strings.TrimSpace(cfg.Type))
	switch kind {
	case "claude", "anthropic", "":
		return NewClaudeBackend(BackendConfig{
			ProviderName: "claude",
			APIKey:       cfg.APIKey,
			BaseURL:      cfg.BaseURL,
			Model:        modelCode,
			MaxTokens:    maxTokens,
		})
	}

	if canonical, ok := compatAliases[kind]; ok {
		kind = canonical
	}
	d, known := compatDefaults[kind]
	if !known && cfg.BaseURL == "" {
		return nil, fmt.Errorf("unknown provider type %q without base_url", cfg.Type)
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = d.baseURL
	}
	model := modelCode
	if model == "" {
		model = d.model
	}

	return NewOpenAICompatBackend(BackendConfig{
		ProviderName: kind,
		APIKey:       cfg.APIKey,
		BaseURL:      baseURL,
		Model:        model,
		MaxTokens:    maxTokens,
	})
}

package azure

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/kitbuilder587/code-review-agent/internal/llm"
)

// Azure OpenAI: тот же chat-completions формат, но авторизация через
// заголовок api-key и модель задается deployment-ом в URL.
type Config struct {
	APIKey     string
	Endpoint   string
	Deployment string
	APIVersion string
	Timeout    time.Duration
}

type Client struct {
	apiKey     string
	endpoint   string
	deployment string
	apiVersion string
	client     *http.Client
	logger     *zap.Logger
}

func New(cfg Config, logger *zap.Logger) *Client {
	if cfg.APIVersion == "" {
		cfg.APIVersion = "2024-02-15-preview"
	}
	if cfg.Deployment == "" {
		cfg.Deployment = "gpt-4o-mini"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}

	return &Client{
		apiKey:     cfg.APIKey,
		endpoint:   cfg.Endpoint,
		deployment: cfg.Deployment,
		apiVersion: cfg.APIVersion,
		client:     &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}
}

func (c *Client) CompleteWithSystem(ctx context.Context, system, prompt string) (string, error) {
	req := llm.NewChatRequest(c.deployment, system, prompt)

	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	reqURL := fmt.Sprintf("%s/openai/deployments/%s/chat/completions?api-version=%s",
		c.endpoint, url.PathEscape(c.deployment), url.QueryEscape(c.apiVersion))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("api-key", c.apiKey)

	respBody, statusCode, err := llm.DoRequest(c.client, httpReq)
	if err != nil {
		return "", err
	}

	if statusCode != http.StatusOK {
		return "", llm.HandleHTTPError(statusCode, respBody, c.logger, "azure")
	}

	chatResp, err := llm.ParseChatResponse(respBody)
	if err != nil {
		return "", err
	}

	return llm.ExtractContent(chatResp)
}

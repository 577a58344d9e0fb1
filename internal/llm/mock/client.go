package mock

import (
	"context"
	"sync"
	"time"

	"github.com/kitbuilder587/code-review-agent/internal/llm"
)

type Client struct {
	Response string
	Error    error
	Delay    time.Duration

	// ResponseFunc, если задан, имеет приоритет над Response/Error.
	// Удобно отдавать разные ответы разным агентам по system-промпту.
	ResponseFunc func(system, prompt string) (string, error)

	mu         sync.Mutex
	CallCount  int
	LastSystem string
	LastPrompt string
	AllCalls   []LLMCall
}

type LLMCall struct {
	System string
	Prompt string
}

func New() *Client {
	return &Client{
		Response: `{"score": 8, "findings": []}`,
	}
}

func (c *Client) WithResponse(response string) *Client {
	c.Response = response
	return c
}

func (c *Client) WithError(err error) *Client {
	c.Error = err
	return c
}

func (c *Client) WithDelay(delay time.Duration) *Client {
	c.Delay = delay
	return c
}

func (c *Client) WithResponseFunc(fn func(system, prompt string) (string, error)) *Client {
	c.ResponseFunc = fn
	return c
}

func (c *Client) CompleteWithSystem(ctx context.Context, system, prompt string) (string, error) {
	c.mu.Lock()
	c.CallCount++
	c.LastSystem = system
	c.LastPrompt = prompt
	c.AllCalls = append(c.AllCalls, LLMCall{System: system, Prompt: prompt})
	delay := c.Delay
	fn := c.ResponseFunc
	response, err := c.Response, c.Error
	c.mu.Unlock()

	if delay > 0 {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(delay):
		}
	}

	if fn != nil {
		return fn(system, prompt)
	}
	if err != nil {
		return "", err
	}
	return response, nil
}

func (c *Client) Calls() []LLMCall {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]LLMCall, len(c.AllCalls))
	copy(out, c.AllCalls)
	return out
}

func (c *Client) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.CallCount = 0
	c.LastSystem = ""
	c.LastPrompt = ""
	c.AllCalls = nil
}

var _ llm.Client = (*Client)(nil)

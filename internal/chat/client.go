package chat

import (
	"context"
	log "log/slog"

	openai "github.com/openai/openai-go/v3"

	"emovox/internal/apierr"
)

const DefaultModel = "gpt-3.5-turbo"

type Config struct {
	Model        string
	SystemPrompt string
}

// Client sends the whole session history to the chat completion API and
// records both sides of every exchange.
type Client struct {
	api     openai.Client
	model   string
	history *History
	log     *log.Logger
}

func NewClient(api openai.Client, cfg Config, logger *log.Logger) *Client {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = DefaultSystemPrompt
	}
	if logger == nil {
		logger = log.Default()
	}

	return &Client{
		api:     api,
		model:   cfg.Model,
		history: NewHistory(cfg.SystemPrompt),
		log:     logger.With("component", "chat"),
	}
}

// History exposes the session for read-only use.
func (c *Client) History() *History {
	return c.history
}

// RequestCompletion appends the user text, sends the full history and appends
// the assistant reply. When the request fails the user turn is kept.
func (c *Client) RequestCompletion(ctx context.Context, userText string) (Turn, error) {
	c.history.Append(Turn{Role: RoleUser, Content: userText})

	turns := c.history.Turns()
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(turns))
	for _, t := range turns {
		switch t.Role {
		case RoleSystem:
			messages = append(messages, openai.SystemMessage(t.Content))
		case RoleAssistant:
			messages = append(messages, openai.AssistantMessage(t.Content))
		default:
			messages = append(messages, openai.UserMessage(t.Content))
		}
	}

	c.log.Debug("Requesting completion", "turns", len(turns), "model", c.model)

	resp, err := c.api.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(c.model),
		Messages: messages,
	})
	if err != nil {
		return Turn{}, apierr.FromOpenAI("chat", err)
	}

	if len(resp.Choices) == 0 {
		return Turn{}, apierr.Malformed("chat", "no choices in response")
	}

	reply := Turn{Role: RoleAssistant, Content: resp.Choices[0].Message.Content}
	c.history.Append(reply)

	c.log.Debug("Completion received",
		"finish_reason", resp.Choices[0].FinishReason,
		"total_tokens", resp.Usage.TotalTokens,
	)

	return reply, nil
}

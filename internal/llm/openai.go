package llm

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/tidybook/tidybook/internal/domain"
	"github.com/tidybook/tidybook/internal/logging"
)

// OpenAIConfig configures the OpenAI-compatible provider client.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string // empty for the default endpoint
	Model   string
}

// OpenAIClient talks to an OpenAI-compatible chat-completions endpoint.
type OpenAIClient struct {
	client *openai.Client
	model  string
	log    *logging.Logger
}

// NewOpenAIClient creates a provider client for the configured endpoint.
func NewOpenAIClient(cfg OpenAIConfig, log *logging.Logger) *OpenAIClient {
	opts := []option.RequestOption{
		option.WithAPIKey(strings.TrimSpace(cfg.APIKey)),
	}
	if trimmed := strings.TrimRight(cfg.BaseURL, "/"); trimmed != "" {
		opts = append(opts, option.WithBaseURL(trimmed))
	}

	client := openai.NewClient(opts...)
	return &OpenAIClient{
		client: &client,
		model:  cfg.Model,
		log:    log.Sub("llm.openai"),
	}
}

// Name returns the provider name.
func (c *OpenAIClient) Name() string { return "openai" }

// Generate sends one chat-completion request and normalizes the response.
func (c *OpenAIClient) Generate(ctx context.Context, req GenerationRequest) (*GenerationResult, error) {
	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(c.model),
		Messages: c.buildMessages(req),
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}
	if len(req.Tools) > 0 {
		params.Tools = buildTools(req.Tools)
	}

	completion, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, c.wrapError(err)
	}

	result, err := c.normalize(completion)
	if err != nil {
		return nil, err
	}

	c.log.Debug().
		Str("model", result.Model).
		Int("toolCalls", len(result.ToolCalls)).
		Int("totalTokens", result.Usage.TotalTokens).
		Msg("generation complete")
	return result, nil
}

// buildMessages converts the internal conversation shape to the
// provider's wire shape. Instructions go first as a system message.
func (c *OpenAIClient) buildMessages(req GenerationRequest) []openai.ChatCompletionMessageParamUnion {
	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages)+1)
	if req.Instructions != "" {
		msgs = append(msgs, openai.SystemMessage(req.Instructions))
	}

	for _, m := range req.Messages {
		switch m.Role {
		case domain.RoleUser:
			msgs = append(msgs, openai.UserMessage(m.Text))

		case domain.RoleSystem:
			msgs = append(msgs, openai.SystemMessage(m.Text))

		case domain.RoleAssistant:
			if len(m.ToolCalls) == 0 {
				msgs = append(msgs, openai.AssistantMessage(m.Text))
				continue
			}
			asst := openai.ChatCompletionAssistantMessageParam{}
			if m.Text != "" {
				asst.Content = openai.ChatCompletionAssistantMessageParamContentUnion{
					OfString: openai.String(m.Text),
				}
			}
			for _, tc := range m.ToolCalls {
				args, err := json.Marshal(tc.Args)
				if err != nil {
					args = []byte("{}")
				}
				asst.ToolCalls = append(asst.ToolCalls, openai.ChatCompletionMessageToolCallParam{
					ID: tc.ID,
					Function: openai.ChatCompletionMessageToolCallFunctionParam{
						Name:      tc.Name,
						Arguments: string(args),
					},
				})
			}
			msgs = append(msgs, openai.ChatCompletionMessageParamUnion{OfAssistant: &asst})

		case domain.RoleToolResult:
			for _, tr := range m.ToolResults {
				payload, err := json.Marshal(tr)
				if err != nil {
					payload = []byte(`{"success":false,"error":"unserializable tool result"}`)
				}
				msgs = append(msgs, openai.ToolMessage(string(payload), tr.CallID))
			}
		}
	}
	return msgs
}

func buildTools(decls []ToolDecl) []openai.ChatCompletionToolParam {
	tools := make([]openai.ChatCompletionToolParam, 0, len(decls))
	for _, d := range decls {
		tools = append(tools, openai.ChatCompletionToolParam{
			Function: openai.FunctionDefinitionParam{
				Name:        d.Name,
				Description: openai.String(d.Description),
				Parameters:  openai.FunctionParameters(d.Schema),
			},
		})
	}
	return tools
}

// normalize maps the provider response into a GenerationResult. The last
// non-empty text fragment wins; tool calls are collected in encounter
// order and are guaranteed a call ID.
func (c *OpenAIClient) normalize(completion *openai.ChatCompletion) (*GenerationResult, error) {
	result := &GenerationResult{
		Model: completion.Model,
		Usage: Usage{
			PromptTokens:     int(completion.Usage.PromptTokens),
			CompletionTokens: int(completion.Usage.CompletionTokens),
			TotalTokens:      int(completion.Usage.TotalTokens),
		},
	}

	for _, choice := range completion.Choices {
		if text := strings.TrimSpace(choice.Message.Content); text != "" {
			result.Text = text
		}
		for _, tc := range choice.Message.ToolCalls {
			id := tc.ID
			if id == "" {
				id = uuid.New().String()
			}
			var args map[string]any
			if raw := tc.Function.Arguments; raw != "" {
				if err := json.Unmarshal([]byte(raw), &args); err != nil {
					args = map[string]any{"_raw": raw}
				}
			}
			result.ToolCalls = append(result.ToolCalls, domain.ToolCall{
				ID:   id,
				Name: tc.Function.Name,
				Args: args,
			})
		}
	}

	if result.Text == "" && len(result.ToolCalls) == 0 {
		return nil, &ProviderError{
			Provider: c.Name(),
			Message:  "response carried neither text nor tool calls",
		}
	}
	return result, nil
}

// wrapError converts SDK errors into ProviderError, preserving the HTTP
// status so retry classification can tell transient from terminal.
func (c *OpenAIClient) wrapError(err error) error {
	var apierr *openai.Error
	if errors.As(err, &apierr) {
		return &ProviderError{
			Provider: c.Name(),
			Code:     apierr.StatusCode,
			Message:  apierr.Message,
			Cause:    err,
		}
	}
	return &ProviderError{
		Provider: c.Name(),
		Message:  err.Error(),
		Cause:    err,
	}
}

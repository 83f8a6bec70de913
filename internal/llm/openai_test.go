package llm

import (
	"testing"

	"github.com/openai/openai-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tidybook/tidybook/internal/domain"
	"github.com/tidybook/tidybook/internal/logging"
)

func newTestOpenAIClient() *OpenAIClient {
	return NewOpenAIClient(OpenAIConfig{APIKey: "test", Model: "gpt-4o-mini"}, logging.Silent())
}

func TestNormalizeTextReply(t *testing.T) {
	c := newTestOpenAIClient()
	completion := &openai.ChatCompletion{
		Model: "gpt-4o-mini",
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: "  Hello there.  "}},
		},
		Usage: openai.CompletionUsage{PromptTokens: 12, CompletionTokens: 5, TotalTokens: 17},
	}

	res, err := c.normalize(completion)
	require.NoError(t, err)
	assert.Equal(t, "Hello there.", res.Text)
	assert.Empty(t, res.ToolCalls)
	assert.Equal(t, Usage{PromptTokens: 12, CompletionTokens: 5, TotalTokens: 17}, res.Usage)
	assert.Equal(t, "gpt-4o-mini", res.Model)
}

func TestNormalizeLastTextWins(t *testing.T) {
	c := newTestOpenAIClient()
	completion := &openai.ChatCompletion{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: "first"}},
			{Message: openai.ChatCompletionMessage{Content: ""}},
			{Message: openai.ChatCompletionMessage{Content: "second"}},
		},
	}

	res, err := c.normalize(completion)
	require.NoError(t, err)
	assert.Equal(t, "second", res.Text)
}

func TestNormalizeToolCalls(t *testing.T) {
	c := newTestOpenAIClient()
	completion := &openai.ChatCompletion{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{
				ToolCalls: []openai.ChatCompletionMessageToolCall{
					{
						ID: "call-1",
						Function: openai.ChatCompletionMessageToolCallFunction{
							Name:      "check_availability",
							Arguments: `{"service_id":"svc-haircut","date":"2026-09-01"}`,
						},
					},
					{
						// Missing ID gets one assigned.
						Function: openai.ChatCompletionMessageToolCallFunction{
							Name:      "list_services",
							Arguments: "",
						},
					},
				},
			}},
		},
	}

	res, err := c.normalize(completion)
	require.NoError(t, err)
	require.Len(t, res.ToolCalls, 2)

	assert.Equal(t, "call-1", res.ToolCalls[0].ID)
	assert.Equal(t, "check_availability", res.ToolCalls[0].Name)
	assert.Equal(t, "svc-haircut", res.ToolCalls[0].Args["service_id"])

	assert.NotEmpty(t, res.ToolCalls[1].ID)
	assert.Equal(t, "list_services", res.ToolCalls[1].Name)
	assert.Nil(t, res.ToolCalls[1].Args)
}

func TestNormalizeMalformedArguments(t *testing.T) {
	c := newTestOpenAIClient()
	completion := &openai.ChatCompletion{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{
				ToolCalls: []openai.ChatCompletionMessageToolCall{
					{
						ID: "call-1",
						Function: openai.ChatCompletionMessageToolCallFunction{
							Name:      "book_appointment",
							Arguments: "{not json",
						},
					},
				},
			}},
		},
	}

	res, err := c.normalize(completion)
	require.NoError(t, err)
	require.Len(t, res.ToolCalls, 1)
	assert.Equal(t, "{not json", res.ToolCalls[0].Args["_raw"])
}

func TestNormalizeEmptyResponseIsError(t *testing.T) {
	c := newTestOpenAIClient()
	completion := &openai.ChatCompletion{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: "   "}},
		},
	}

	_, err := c.normalize(completion)
	require.Error(t, err)

	var provErr *ProviderError
	require.ErrorAs(t, err, &provErr)
	assert.Equal(t, "openai", provErr.Provider)
}

func TestBuildMessagesShapes(t *testing.T) {
	c := newTestOpenAIClient()
	req := GenerationRequest{
		Instructions: "You are a receptionist.",
		Messages: []domain.Message{
			{Role: domain.RoleUser, Text: "hi"},
			{
				Role: domain.RoleAssistant,
				Text: "let me check",
				ToolCalls: []domain.ToolCall{
					{ID: "call-1", Name: "list_services", Args: map[string]any{}},
				},
			},
			{
				Role: domain.RoleToolResult,
				ToolResults: []domain.ToolResult{
					{CallID: "call-1", Name: "list_services", Success: true, Data: map[string]any{"services": []any{}}},
				},
			},
			{Role: domain.RoleAssistant, Text: "we offer haircuts"},
		},
	}

	msgs := c.buildMessages(req)
	require.Len(t, msgs, 5) // system + user + assistant w/ calls + tool + assistant

	require.NotNil(t, msgs[0].OfSystem)
	require.NotNil(t, msgs[1].OfUser)
	require.NotNil(t, msgs[2].OfAssistant)
	require.Len(t, msgs[2].OfAssistant.ToolCalls, 1)
	assert.Equal(t, "call-1", msgs[2].OfAssistant.ToolCalls[0].ID)
	require.NotNil(t, msgs[3].OfTool)
	assert.Equal(t, "call-1", msgs[3].OfTool.ToolCallID)
	require.NotNil(t, msgs[4].OfAssistant)
}

func TestBuildTools(t *testing.T) {
	decls := []ToolDecl{
		{
			Name:        "list_services",
			Description: "List services",
			Schema:      map[string]any{"type": "object"},
		},
	}

	params := buildTools(decls)
	require.Len(t, params, 1)
	assert.Equal(t, "list_services", params[0].Function.Name)
	assert.Equal(t, "List services", params[0].Function.Description.Value)
}

// Package assistant runs the conversation loop: it feeds history to the
// model, executes the actions the model requests, and loops until the
// model produces a plain reply or the iteration cap is reached.
package assistant

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tidybook/tidybook/internal/convo"
	"github.com/tidybook/tidybook/internal/domain"
	"github.com/tidybook/tidybook/internal/llm"
	"github.com/tidybook/tidybook/internal/logging"
	"github.com/tidybook/tidybook/internal/tools"
	"github.com/tidybook/tidybook/internal/usage"
)

const (
	// DefaultMaxIterations bounds how many generations one incoming
	// message may trigger.
	DefaultMaxIterations = 5

	// DefaultRecentWindow is how many trailing messages are sent to the
	// model.
	DefaultRecentWindow = 20

	// DefaultFallbackReply is returned when the model is still asking
	// for tools at the iteration cap and produced no usable text.
	DefaultFallbackReply = "Sorry, I couldn't complete that request right now. Please try again in a moment."

	usageRecordTimeout = 5 * time.Second
)

// Config tunes the engine. Zero values fall back to the defaults above.
type Config struct {
	MaxIterations int
	RecentWindow  int
	MaxTokens     int
	FallbackReply string
}

// Request is one incoming customer message.
type Request struct {
	TenantID      string
	CustomerPhone string
	CustomerName  string
	Text          string
}

// Result is the assistant's reply to one request.
type Result struct {
	Reply          string    `json:"reply"`
	ConversationID string    `json:"conversationId"`
	Usage          llm.Usage `json:"usage"`
}

// loopState is the orchestration phase of one incoming message.
type loopState int

const (
	stateGenerating loopState = iota // waiting on the model
	stateActing                      // executing requested tools
	stateDone                        // reply settled
)

// Engine orchestrates one message through the model-and-tools loop.
type Engine struct {
	convos *convo.Store
	client llm.Client
	tools  *tools.Registry
	usage  usage.Recorder
	cfg    Config
	log    *logging.Logger
}

// New creates an engine. The usage recorder may be nil.
func New(convos *convo.Store, client llm.Client, registry *tools.Registry, rec usage.Recorder, cfg Config, log *logging.Logger) *Engine {
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = DefaultMaxIterations
	}
	if cfg.RecentWindow <= 0 {
		cfg.RecentWindow = DefaultRecentWindow
	}
	if cfg.FallbackReply == "" {
		cfg.FallbackReply = DefaultFallbackReply
	}
	return &Engine{
		convos: convos,
		client: client,
		tools:  registry,
		usage:  rec,
		cfg:    cfg,
		log:    log.Sub("assistant"),
	}
}

// Process handles one incoming message end to end and returns the
// reply. Messages for the same (tenant, phone) pair are processed
// strictly one at a time; different pairs proceed in parallel.
func (e *Engine) Process(ctx context.Context, req Request) (*Result, error) {
	if req.TenantID == "" || req.CustomerPhone == "" {
		return nil, fmt.Errorf("tenant id and customer phone are required")
	}
	if req.Text == "" {
		return nil, fmt.Errorf("message text is required")
	}

	unlock := e.convos.LockKey(req.TenantID, req.CustomerPhone)
	defer unlock()

	conv, err := e.convos.GetOrCreate(ctx, req.TenantID, req.CustomerPhone, req.CustomerName)
	if err != nil {
		return nil, err
	}

	e.convos.Append(conv, domain.Message{Role: domain.RoleUser, Text: req.Text})

	instructions := BuildInstructions(conv)
	decls := e.tools.Declarations()
	exec := tools.ExecContext{TenantID: conv.Tenant.ID, CustomerID: conv.Customer.ID}

	var (
		total    llm.Usage
		reply    string
		sawFinal bool
		gens     int
		lastText string
		pending  []domain.ToolCall
	)

	for state := stateGenerating; state != stateDone; {
		switch state {
		case stateGenerating:
			res, err := e.client.Generate(ctx, llm.GenerationRequest{
				Messages:     e.convos.Recent(conv, e.cfg.RecentWindow),
				Instructions: instructions,
				Tools:        decls,
				MaxTokens:    e.cfg.MaxTokens,
			})
			if err != nil {
				return nil, fmt.Errorf("generating reply: %w", err)
			}
			gens++

			total.PromptTokens += res.Usage.PromptTokens
			total.CompletionTokens += res.Usage.CompletionTokens
			total.TotalTokens += res.Usage.TotalTokens
			e.recordUsage(conv.Tenant.ID, res.Usage, res.Model)

			lastText = stripReasoning(res.Text)

			if len(res.ToolCalls) == 0 {
				reply = lastText
				e.convos.Append(conv, domain.Message{Role: domain.RoleAssistant, Text: reply})
				state = stateDone
				break
			}

			e.convos.Append(conv, domain.Message{
				Role:      domain.RoleAssistant,
				Text:      lastText,
				ToolCalls: res.ToolCalls,
			})
			pending = res.ToolCalls
			state = stateActing

		case stateActing:
			results := e.dispatchAll(ctx, pending, exec)
			e.convos.Append(conv, domain.Message{
				Role:        domain.RoleToolResult,
				ToolResults: results,
			})
			for _, r := range results {
				if r.Final && r.Success {
					sawFinal = true
				}
			}

			if gens >= e.cfg.MaxIterations {
				// The model is still asking for tools at the cap. Answer
				// with the text that came alongside the last batch; it is
				// already part of the history, so only a fallback needs
				// appending.
				reply = lastText
				if reply == "" {
					reply = e.cfg.FallbackReply
					e.convos.Append(conv, domain.Message{Role: domain.RoleAssistant, Text: reply})
				}
				e.log.Warn().
					Str("conversationId", conv.ID).
					Int("iterations", gens).
					Msg("iteration cap reached")
				state = stateDone
				break
			}
			state = stateGenerating
		}
	}

	result := &Result{
		Reply:          reply,
		ConversationID: conv.ID,
		Usage:          total,
	}

	if sawFinal {
		// A completed booking ends the conversation; the next message
		// starts a fresh one.
		e.convos.Clear(req.TenantID, req.CustomerPhone)
		e.log.Info().Str("conversationId", conv.ID).Msg("conversation completed")
	}

	return result, nil
}

// dispatchAll executes a batch of requested actions concurrently and
// returns their results in request order.
func (e *Engine) dispatchAll(ctx context.Context, calls []domain.ToolCall, exec tools.ExecContext) []domain.ToolResult {
	results := make([]domain.ToolResult, len(calls))
	var wg sync.WaitGroup
	for i, call := range calls {
		wg.Add(1)
		go func(i int, call domain.ToolCall) {
			defer wg.Done()
			results[i] = e.tools.Dispatch(ctx, call, exec)
		}(i, call)
	}
	wg.Wait()
	return results
}

// recordUsage reports token usage without blocking or failing the
// request. The write runs on its own deadline, detached from the
// request context.
func (e *Engine) recordUsage(tenantID string, u llm.Usage, model string) {
	if e.usage == nil {
		return
	}
	go func() {
		defer func() {
			if p := recover(); p != nil {
				e.log.Error().Any("panic", p).Msg("usage recording panicked")
			}
		}()
		ctx, cancel := context.WithTimeout(context.Background(), usageRecordTimeout)
		defer cancel()
		e.usage.Record(ctx, tenantID, u, model)
	}()
}

// Package generator calls the language-generation collaborator that
// proposes the next reply and action for a conversation.
package generator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	openaisdk "github.com/openai/openai-go"

	contractx "github.com/demostore/cod-agent/agent/contract"
	pricingx "github.com/demostore/cod-agent/agent/pricing"
	promptx "github.com/demostore/cod-agent/agent/prompt"
	statex "github.com/demostore/cod-agent/agent/state"
)

// How much history the collaborator sees. The session keeps 20
// entries; the prompt carries the most recent half.
const promptHistory = 10

// Generator produces the raw collaborator completion for one message.
// The output is untrusted text; parsing lives in the intent package.
type Generator struct {
	client      *openaisdk.Client
	model       string
	temperature float64
	maxTokens   int64
	timeout     time.Duration

	storeName string
	pricing   pricingx.Config
}

func New(
	client *openaisdk.Client,
	model string,
	temperature float64,
	maxTokens int64,
	timeout time.Duration,
	storeName string,
	pricing pricingx.Config,
) (*Generator, error) {
	if client == nil {
		return nil, errors.New("llm client is required")
	}
	if strings.TrimSpace(model) == "" {
		return nil, errors.New("llm model is required")
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	return &Generator{
		client:      client,
		model:       strings.TrimSpace(model),
		temperature: temperature,
		maxTokens:   maxTokens,
		timeout:     timeout,
		storeName:   storeName,
		pricing:     pricing,
	}, nil
}

// Generate sends the context snapshot plus the new message and returns
// the completion text verbatim.
func (g *Generator) Generate(ctx context.Context, req contractx.GenerationRequest) (string, error) {
	if strings.TrimSpace(req.Message) == "" {
		return "", fmt.Errorf("%w: message is empty", contractx.ErrValidation)
	}

	system, err := g.buildSystemPrompt(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", contractx.ErrGeneration, err)
	}

	messages := make([]openaisdk.ChatCompletionMessageParamUnion, 0, promptHistory+2)
	messages = append(messages, openaisdk.SystemMessage(system))
	for _, entry := range lastN(req.History, promptHistory) {
		if entry.Role == "assistant" {
			messages = append(messages, openaisdk.AssistantMessage(entry.Content))
		} else {
			messages = append(messages, openaisdk.UserMessage(entry.Content))
		}
	}
	messages = append(messages, openaisdk.UserMessage(req.Message))

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	completion, err := g.client.Chat.Completions.New(ctx, openaisdk.ChatCompletionNewParams{
		Model:       openaisdk.ChatModel(g.model),
		Messages:    messages,
		Temperature: openaisdk.Float(g.temperature),
		MaxTokens:   openaisdk.Int(g.maxTokens),
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", contractx.ErrGeneration, err)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("%w: completion has no choices", contractx.ErrGeneration)
	}
	return completion.Choices[0].Message.Content, nil
}

func (g *Generator) buildSystemPrompt(req contractx.GenerationRequest) (string, error) {
	snapshot, err := json.Marshal(map[string]any{
		"state":            req.State,
		"cart":             req.CartSummary,
		"cart_total":       req.CartTotal,
		"cart_items":       req.CartItems,
		"customer_name":    req.CustomerName,
		"customer_address": req.AddressLine,
		"customer_city":    req.City,
		"customer_phone":   req.Phone,
	})
	if err != nil {
		return "", fmt.Errorf("marshal context snapshot: %w", err)
	}

	return promptx.RenderSystem(promptx.SystemData{
		StoreName:     g.storeName,
		Currency:      g.pricing.Currency,
		DeliveryFee:   statex.FormatAmount(g.pricing.FlatFee),
		FreeThreshold: statex.FormatAmount(g.pricing.FreeThreshold),
		Products:      req.CatalogListing,
		Categories:    req.Categories,
		Context:       string(snapshot),
	})
}

func lastN(entries []statex.HistoryEntry, n int) []statex.HistoryEntry {
	if len(entries) <= n {
		return entries
	}
	return entries[len(entries)-n:]
}

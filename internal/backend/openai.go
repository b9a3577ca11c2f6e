package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"levelup/internal/config"
	"levelup/internal/engine"
)

const treeSystemPrompt = `You design skill trees for personal goals.
Reply with a single JSON object and nothing else, shaped as:
{"title": string, "branches": [{"id": string, "name": string, "nodes": [{
 "id": string, "title": string, "description": string, "tier": int,
 "prerequisites": [node ids], "completionCriteria": [string],
 "estimatedHours": number, "xpValue": int,
 "linkedStats": ["STR"|"INT"|"WIS"|"DEX"|"CHA"|"VIT"]}]}]}
Node ids are unique across the whole tree. Prerequisites only reference ids
in the tree and never form a cycle. Tier 1 nodes have no prerequisites.`

// OpenAIGenerator asks a chat completion model for tree JSON.
type OpenAIGenerator struct {
	client *openai.Client
	model  string
	log    *zap.Logger
	now    func() time.Time
}

func NewOpenAIGenerator(cfg config.OpenAIConfig, log *zap.Logger) (*OpenAIGenerator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key not set")
	}
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}
	if log == nil {
		log = zap.NewNop()
	}
	log.Info("initializing openai generator", zap.String("model", model))
	return &OpenAIGenerator{
		client: openai.NewClientWithConfig(oc),
		model:  model,
		log:    log,
		now:    time.Now,
	}, nil
}

func (o *OpenAIGenerator) GenerateTree(ctx context.Context, req engine.GenerateRequest) (*engine.TreePayload, error) {
	var b strings.Builder
	writeGoal(&b, req.Goal)
	b.WriteString("\nBuild the initial skill tree for this goal.")
	p, err := o.complete(ctx, b.String())
	if err != nil {
		return nil, err
	}
	p.ID = uuid.NewString()
	p.GoalID = req.Goal.ID
	return p, nil
}

// RefreshTree sends the current tree along so the model can keep ids of
// nodes it does not change.
func (o *OpenAIGenerator) RefreshTree(ctx context.Context, req engine.RefreshRequest) (*engine.TreePayload, error) {
	var b strings.Builder
	writeGoal(&b, req.Goal)
	if req.Current != nil {
		cur, err := json.Marshal(req.Current)
		if err != nil {
			return nil, fmt.Errorf("encode current tree: %w", err)
		}
		b.WriteString("\nCurrent tree:\n")
		b.Write(cur)
	}
	b.WriteString("\nRevise the tree. Keep the id of every node you keep, especially completed ones.")
	p, err := o.complete(ctx, b.String())
	if err != nil {
		return nil, err
	}
	p.ID = req.TreeID
	p.GoalID = req.Goal.ID
	return p, nil
}

func (o *OpenAIGenerator) complete(ctx context.Context, prompt string) (*engine.TreePayload, error) {
	o.log.Debug("requesting tree from openai", zap.String("model", o.model))
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: treeSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai returned no choices")
	}
	o.log.Debug("openai reply", zap.String("finish_reason", string(resp.Choices[0].FinishReason)))

	var p engine.TreePayload
	if err := json.Unmarshal([]byte(stripFences(resp.Choices[0].Message.Content)), &p); err != nil {
		return nil, fmt.Errorf("decode tree from model reply: %w", err)
	}
	if len(p.Branches) == 0 {
		return nil, fmt.Errorf("model reply has no branches")
	}
	p.GeneratedAt = o.now().UTC()
	return &p, nil
}

func writeGoal(b *strings.Builder, g engine.Goal) {
	fmt.Fprintf(b, "Goal: %s\n", g.Title)
	if g.Description != "" {
		fmt.Fprintf(b, "Description: %s\n", g.Description)
	}
	fmt.Fprintf(b, "Timeframe: %s\n", g.Timeframe)
	if g.TargetDate != nil {
		fmt.Fprintf(b, "Target date: %s\n", g.TargetDate.Format("2006-01-02"))
	}
}

// stripFences removes a surrounding ``` block some models add despite the
// JSON response format.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/conneroisu/groq-go"

	"reelforge/pkg/prompts"
)

type GroqClient struct {
	client  *groq.Client
	model   groq.ChatModel
	prompts *prompts.Prompts
}

func NewGroqClient(apiKey, model string, p *prompts.Prompts) (*GroqClient, error) {
	client, err := groq.NewClient(apiKey)
	if err != nil {
		return nil, fmt.Errorf("create groq client: %w", err)
	}

	return &GroqClient{
		client:  client,
		model:   groq.ChatModel(model),
		prompts: p,
	}, nil
}

func (c *GroqClient) GenerateDraft(ctx context.Context, req DraftRequest) (*Draft, error) {
	prompt, err := c.prompts.RenderScript(prompts.ScriptParams{
		TopicName:        req.TopicName,
		TopicDescription: req.TopicDescription,
		HookStyle:        req.HookStyle,
		WordCount:        req.WordCount,
	})
	if err != nil {
		return nil, fmt.Errorf("render prompt: %w", err)
	}

	content, err := c.generateJSONContent(ctx, c.prompts.System.Script, prompt)
	if err != nil {
		return nil, err
	}

	var draft Draft
	if err := json.Unmarshal([]byte(content), &draft); err != nil {
		return nil, fmt.Errorf("parse draft: %w", err)
	}
	if draft.Script == "" {
		return nil, fmt.Errorf("empty script in draft")
	}
	if draft.WordCount == 0 {
		draft.WordCount = len(strings.Fields(draft.Script))
	}

	return &draft, nil
}

func (c *GroqClient) ValidateDraft(ctx context.Context, draft *Draft) (string, error) {
	prompt, err := c.prompts.RenderValidate(prompts.ValidateParams{
		Title:       draft.Title,
		Description: draft.Description,
		Script:      draft.Script,
	})
	if err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}

	return c.generateJSONContent(ctx, c.prompts.System.Validator, prompt)
}

func (c *GroqClient) GenerateImagePrompts(ctx context.Context, script string, count int) ([]string, error) {
	prompt, err := c.prompts.RenderImages(prompts.ImageParams{Script: script, Count: count})
	if err != nil {
		return nil, fmt.Errorf("render prompt: %w", err)
	}

	content, err := c.generateJSONContent(ctx, c.prompts.System.Images, prompt)
	if err != nil {
		return nil, err
	}

	var bare []string
	if err := json.Unmarshal([]byte(content), &bare); err == nil {
		return bare, nil
	}

	var wrapped struct {
		Prompts []string `json:"prompts"`
	}
	if err := json.Unmarshal([]byte(content), &wrapped); err != nil {
		return nil, fmt.Errorf("parse image prompts: %w", err)
	}
	if len(wrapped.Prompts) == 0 {
		return nil, fmt.Errorf("no image prompts in response")
	}
	return wrapped.Prompts, nil
}

func (c *GroqClient) generateJSONContent(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	resp, err := c.client.ChatCompletion(ctx, groq.ChatCompletionRequest{
		Model: c.model,
		Messages: []groq.ChatCompletionMessage{
			{Role: groq.RoleSystem, Content: systemPrompt},
			{Role: groq.RoleUser, Content: userPrompt},
		},
		ResponseFormat: &groq.ChatResponseFormat{
			Type: "json_object",
		},
	})
	if err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response")
	}

	content := resp.Choices[0].Message.Content
	if content == "" {
		return "", fmt.Errorf("empty response")
	}

	return content, nil
}

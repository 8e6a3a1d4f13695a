package prompts

import (
	"bytes"
	"fmt"
	"os"
	"text/template"

	"gopkg.in/yaml.v3"
)

const defaultPromptsPath = "prompts.yaml"

type Prompts struct {
	System SystemPrompts `yaml:"system"`
	Script ScriptPrompts `yaml:"script"`
	Images ImagePrompts  `yaml:"images"`
}

type SystemPrompts struct {
	Script    string `yaml:"script"`
	Validator string `yaml:"validator"`
	Images    string `yaml:"images"`
}

type ScriptPrompts struct {
	Generate string `yaml:"generate"`
	Validate string `yaml:"validate"`
}

type ImagePrompts struct {
	Generate string `yaml:"generate"`
}

type ScriptParams struct {
	TopicName        string
	TopicDescription string
	HookStyle        string
	WordCount        int
}

type ValidateParams struct {
	Title       string
	Description string
	Script      string
}

type ImageParams struct {
	Script string
	Count  int
}

func Defaults() *Prompts {
	return &Prompts{
		System: SystemPrompts{
			Script:    "You are a scriptwriter for short vertical videos. Respond only with a JSON object {\"title\", \"description\", \"script\", \"wordCount\"}.",
			Validator: "You are a strict script reviewer. Respond only with a JSON object {\"isValid\", \"overallQuality\", \"issues\", \"summary\", \"recommendation\"}.",
			Images:    "You write vivid image-generation prompts. Respond only with a JSON object {\"prompts\": [...]}.",
		},
		Script: ScriptPrompts{
			Generate: "Write a {{.WordCount}}-word narration script about {{.TopicName}} ({{.TopicDescription}}). Open with a {{.HookStyle}} hook in the first sentence. Short punchy sentences, no stage directions.",
			Validate: "Review this script for typos, made-up words, coherence and clarity problems.\nTitle: {{.Title}}\nDescription: {{.Description}}\nScript:\n{{.Script}}",
		},
		Images: ImagePrompts{
			Generate: "Write {{.Count}} image prompts, one per scene, for this narration. Cinematic, vertical 9:16 framing.\nScript:\n{{.Script}}",
		},
	}
}

func Load() (*Prompts, error) {
	return LoadFrom(defaultPromptsPath)
}

func LoadFrom(path string) (*Prompts, error) {
	p := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return p, nil
		}
		return nil, fmt.Errorf("read prompts: %w", err)
	}

	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("parse prompts: %w", err)
	}

	return p, nil
}

func (p *Prompts) RenderScript(params ScriptParams) (string, error) {
	return render("script", p.Script.Generate, params)
}

func (p *Prompts) RenderValidate(params ValidateParams) (string, error) {
	return render("validate", p.Script.Validate, params)
}

func (p *Prompts) RenderImages(params ImageParams) (string, error) {
	return render("images", p.Images.Generate, params)
}

func render(name, text string, params any) (string, error) {
	tmpl, err := template.New(name).Parse(text)
	if err != nil {
		return "", fmt.Errorf("parse %s template: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, params); err != nil {
		return "", fmt.Errorf("render %s template: %w", name, err)
	}

	return buf.String(), nil
}

package config

import (
	"context"
	"fmt"
	"log/slog"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
)

// Secret Manager is only consulted for credentials still missing after .env
// and the process environment have been read.
func loadSecrets(ctx context.Context, cfg *Config) {
	if cfg.GCPProject == "" {
		return
	}

	missing := map[string]*string{}
	if cfg.GroqAPIKey == "" {
		missing["groq-api-key"] = &cfg.GroqAPIKey
	}
	if cfg.ElevenLabsAPIKey == "" {
		missing["elevenlabs-api-key"] = &cfg.ElevenLabsAPIKey
	}
	if cfg.PostProviderAPIKey == "" {
		missing["post-provider-api-key"] = &cfg.PostProviderAPIKey
	}
	if len(missing) == 0 {
		return
	}

	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		slog.Warn("Secret Manager unavailable", "error", err)
		return
	}
	defer func() { _ = client.Close() }()

	for name, target := range missing {
		value, err := accessSecret(ctx, client, cfg.GCPProject, name)
		if err != nil {
			slog.Warn("Failed to load secret", "name", name, "error", err)
			continue
		}
		*target = value
	}
}

func accessSecret(ctx context.Context, client *secretmanager.Client, project, name string) (string, error) {
	result, err := client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
		Name: fmt.Sprintf("projects/%s/secrets/%s/versions/latest", project, name),
	})
	if err != nil {
		return "", fmt.Errorf("access secret %s: %w", name, err)
	}
	return string(result.Payload.Data), nil
}

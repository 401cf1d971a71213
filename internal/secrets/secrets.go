// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads adapter credentials from a directory of plain-text
// files and from well-known environment variables. Each file in the
// directory represents one secret: the filename is the key name and the
// file contents (trimmed) are the value.
//
// Supported key files: serper-api-key, brave-api-key, anthropic-api-key,
// openai-api-key, gemini-api-key.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// Key file names.
const (
	SerperKey    = "serper-api-key"
	BraveKey     = "brave-api-key"
	AnthropicKey = "anthropic-api-key"
	OpenAIKey    = "openai-api-key"
	GeminiKey    = "gemini-api-key"
)

// envFallbacks maps key file names to the environment variables consulted
// when the file is absent.
var envFallbacks = map[string][]string{
	SerperKey:    {"SERPER_API_KEY"},
	BraveKey:     {"BRAVE_API_KEY", "BRAVE_SEARCH_API_KEY"},
	AnthropicKey: {"ANTHROPIC_API_KEY"},
	OpenAIKey:    {"OPENAI_API_KEY"},
	GeminiKey:    {"GEMINI_API_KEY", "GOOGLE_API_KEY"},
}

// Load reads all files in dir and returns a map of filename to trimmed contents.
// A missing directory or missing files are not errors; Load returns an empty map.
// Unreadable files are logged as warnings but do not abort.
func Load(dir string, log *zap.Logger) (map[string]string, error) {
	if log == nil {
		log = zap.NewNop()
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	secrets := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			log.Warn("could not read secret", zap.String("name", name), zap.Error(err))
			continue
		}

		value := strings.TrimSpace(string(data))
		if value != "" {
			secrets[name] = value
		}
	}

	return secrets, nil
}

// Credentials holds the API keys for every supported adapter backend. It is
// built once at process start and handed to the adapter constructors.
type Credentials struct {
	Serper    string
	Brave     string
	Anthropic string
	OpenAI    string
	Gemini    string
}

// Resolve builds Credentials from loaded secret files, falling back to the
// well-known environment variables through getenv (os.Getenv in production).
func Resolve(loaded map[string]string, getenv func(string) string) Credentials {
	lookup := func(key string) string {
		if v := loaded[key]; v != "" {
			return v
		}
		if getenv == nil {
			return ""
		}
		for _, env := range envFallbacks[key] {
			if v := strings.TrimSpace(getenv(env)); v != "" {
				return v
			}
		}
		return ""
	}
	return Credentials{
		Serper:    lookup(SerperKey),
		Brave:     lookup(BraveKey),
		Anthropic: lookup(AnthropicKey),
		OpenAI:    lookup(OpenAIKey),
		Gemini:    lookup(GeminiKey),
	}
}

// ForProvider returns the generator key for a provider name.
func (c Credentials) ForProvider(provider string) string {
	switch strings.ToLower(provider) {
	case "claude", "anthropic":
		return c.Anthropic
	case "openai":
		return c.OpenAI
	case "gemini":
		return c.Gemini
	}
	return ""
}

// Names lists which credentials are present, for startup logging. Values
// are never included.
func (c Credentials) Names() []string {
	var names []string
	for _, kv := range []struct {
		name, value string
	}{
		{SerperKey, c.Serper},
		{BraveKey, c.Brave},
		{AnthropicKey, c.Anthropic},
		{OpenAIKey, c.OpenAI},
		{GeminiKey, c.Gemini},
	} {
		if kv.value != "" {
			names = append(names, kv.name)
		}
	}
	return names
}

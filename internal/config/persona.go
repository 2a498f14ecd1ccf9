package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultInstructions is used when no persona file is configured.
const DefaultInstructions = "You are a helpful and polite phone assistant. " +
	"Keep answers short and conversational; the caller hears them as speech."

// Persona describes the conversational behaviour of the assistant for a
// deployment: the system instructions, an optional opening line, and the
// voice. Loaded once at startup and shared read-only by all bridges.
type Persona struct {
	Instructions string `yaml:"instructions"`
	Greeting     string `yaml:"greeting"`
	Voice        string `yaml:"voice"`
}

// LoadPersona reads a persona YAML file. A missing path yields the default
// persona; a present but unreadable or invalid file is an error.
func LoadPersona(path, defaultVoice string) (Persona, error) {
	p := Persona{Instructions: DefaultInstructions, Voice: defaultVoice}
	if path == "" {
		return p, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Persona{}, fmt.Errorf("read persona file: %w", err)
	}
	if err := yaml.Unmarshal(b, &p); err != nil {
		return Persona{}, fmt.Errorf("parse persona file: %w", err)
	}
	if p.Instructions == "" {
		p.Instructions = DefaultInstructions
	}
	if p.Voice == "" {
		p.Voice = defaultVoice
	}
	return p, nil
}

package config

import (
	"flag"
	"os"
	"strconv"
	"strings"
	"time"
)

// ServerConfig holds configuration for the bridge server.
type ServerConfig struct {
	Port            int
	MetricsAddr     string
	LogLevel        string
	AllowedOrigins  []string
	PublicHost      string
	TwilioAuthToken string
	OpenAIAPIKey    string
	RealtimeURL     string
	RealtimeModel   string
	Voice           string
	PersonaFile     string
	GraceTimeout    time.Duration
}

// BindFlags populates the struct with defaults from environment variables and
// binds command line flags so main can call flag.Parse().
func (c *ServerConfig) BindFlags() {
	port, _ := strconv.Atoi(getEnv("PORT", "8080"))
	c.Port = port
	mp := getEnv("METRICS_PORT", "")
	if mp != "" && !strings.Contains(mp, ":") {
		mp = ":" + mp
	}
	c.MetricsAddr = mp
	c.LogLevel = getEnv("LOG_LEVEL", "info")
	origins := getEnv("ALLOWED_ORIGINS", "")
	if origins != "" {
		c.AllowedOrigins = strings.Split(origins, ",")
	}
	c.PublicHost = getEnv("PUBLIC_HOST", "")
	c.TwilioAuthToken = getEnv("TWILIO_AUTH_TOKEN", "")
	c.OpenAIAPIKey = getEnv("OPENAI_API_KEY", "")
	c.RealtimeURL = getEnv("OPENAI_REALTIME_URL", "wss://api.openai.com/v1/realtime")
	c.RealtimeModel = getEnv("OPENAI_MODEL", "gpt-4o-mini-realtime-preview-2024-12-17")
	c.Voice = getEnv("OPENAI_VOICE", "alloy")
	c.PersonaFile = getEnv("PERSONA_FILE", "")
	if d, err := time.ParseDuration(getEnv("GRACE_TIMEOUT", "500ms")); err == nil {
		c.GraceTimeout = d
	} else {
		c.GraceTimeout = 500 * time.Millisecond
	}

	flag.IntVar(&c.Port, "port", c.Port, "HTTP listen port for the public API")
	flag.StringVar(&c.MetricsAddr, "metrics-addr", c.MetricsAddr, "Prometheus metrics listen address; empty serves /metrics on the main port")
	flag.StringVar(&c.LogLevel, "log-level", c.LogLevel, "log level (debug, info, warn, error)")
	flag.StringVar(&c.PublicHost, "public-host", c.PublicHost, "externally visible hostname used in TwiML stream URLs; defaults to the request host")
	flag.StringVar(&c.TwilioAuthToken, "twilio-auth-token", c.TwilioAuthToken, "Twilio auth token used to validate request signatures; empty disables validation")
	flag.StringVar(&c.OpenAIAPIKey, "openai-api-key", c.OpenAIAPIKey, "OpenAI API key for the realtime endpoint")
	flag.StringVar(&c.RealtimeURL, "realtime-url", c.RealtimeURL, "base websocket URL of the realtime endpoint")
	flag.StringVar(&c.RealtimeModel, "model", c.RealtimeModel, "realtime model name")
	flag.StringVar(&c.Voice, "voice", c.Voice, "voice used for audio responses")
	flag.StringVar(&c.PersonaFile, "persona-file", c.PersonaFile, "path to a YAML persona file (instructions, greeting, voice)")
	flag.DurationVar(&c.GraceTimeout, "grace-timeout", c.GraceTimeout, "how long to wait for the losing pump direction to unwind")
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

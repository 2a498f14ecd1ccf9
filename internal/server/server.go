// Package server wires the HTTP surface of the bridge: the call webhook
// that returns TwiML, the media-stream websocket endpoint, health and
// metrics.
package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/voxbridge/voxbridge/internal/config"
	"github.com/voxbridge/voxbridge/internal/logx"
	"github.com/voxbridge/voxbridge/internal/metrics"
	"github.com/voxbridge/voxbridge/internal/tool"
	"github.com/voxbridge/voxbridge/internal/twilio"
)

// New constructs the HTTP handler for the bridge server.
func New(cfg config.ServerConfig, persona config.Persona, registry *tool.Registry) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	if len(cfg.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: cfg.AllowedOrigins,
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"*"},
		}))
	}

	preg := prometheus.NewRegistry()
	prometheus.DefaultRegisterer = preg
	prometheus.DefaultGatherer = preg
	metrics.Register(preg)

	auth := twilio.AuthMiddleware(cfg.TwilioAuthToken)
	r.Get("/", statusHandler)
	r.With(auth).Get("/incoming-call", IncomingCallHandler(cfg))
	r.With(auth).Post("/incoming-call", IncomingCallHandler(cfg))
	r.With(auth).Get("/media-stream", MediaStreamHandler(cfg, persona, registry))
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	if cfg.MetricsAddr == "" || cfg.MetricsAddr == fmt.Sprintf(":%d", cfg.Port) {
		r.Handle("/metrics", promhttp.HandlerFor(preg, promhttp.HandlerOpts{}))
	}

	return r
}

func statusHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"message": "media stream server is running"})
}

// IncomingCallHandler answers the call webhook with TwiML directing
// Twilio to open a media stream back to this server.
func IncomingCallHandler(cfg config.ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		host := cfg.PublicHost
		if host == "" {
			host = r.Host
		}
		streamURL := "wss://" + host + "/media-stream"
		twiml, err := twilio.ConnectStreamTwiML(streamURL)
		if err != nil {
			logx.Log.Error().Err(err).Msg("generating TwiML")
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		logx.Log.Debug().Str("stream_url", streamURL).Msg("incoming call")
		w.Header().Set("Content-Type", "application/xml")
		_, _ = w.Write([]byte(twiml))
	}
}

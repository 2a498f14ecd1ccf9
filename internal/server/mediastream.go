package server

import (
	"net/http"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/voxbridge/voxbridge/internal/bridge"
	"github.com/voxbridge/voxbridge/internal/config"
	"github.com/voxbridge/voxbridge/internal/logx"
	"github.com/voxbridge/voxbridge/internal/metrics"
	"github.com/voxbridge/voxbridge/internal/realtime"
	"github.com/voxbridge/voxbridge/internal/relay"
	"github.com/voxbridge/voxbridge/internal/tool"
	"github.com/voxbridge/voxbridge/internal/twilio"
	"github.com/voxbridge/voxbridge/internal/wsconn"
)

// MediaStreamHandler accepts the telephony websocket, performs the stream
// handshake, dials the realtime endpoint, and runs the bridge until one
// side ends it.
func MediaStreamHandler(cfg config.ServerConfig, persona config.Persona, registry *tool.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws, err := websocket.Accept(w, r, nil)
		if err != nil {
			logx.Log.Error().Err(err).Msg("websocket accept failed")
			return
		}
		ctx := r.Context()
		source := wsconn.Wrap(ws)

		streamSid, err := twilio.Handshake(ctx, source)
		if err != nil {
			logx.Log.Error().Err(err).Msg("media stream handshake failed")
			_ = source.Close(websocket.StatusPolicyViolation, "handshake failed")
			return
		}
		log := logx.Stream(streamSid).With().Str("bridge_id", uuid.NewString()[:8]).Logger()
		log.Info().Msg("media stream established")

		target, err := realtime.Dial(ctx, realtime.Config{
			URL:          cfg.RealtimeURL,
			APIKey:       cfg.OpenAIAPIKey,
			Model:        cfg.RealtimeModel,
			Voice:        persona.Voice,
			Instructions: persona.Instructions,
			Greeting:     persona.Greeting,
			Tools:        registry.Definitions(),
		})
		if err != nil {
			log.Error().Err(err).Msg("realtime endpoint unavailable")
			_ = source.Close(websocket.StatusInternalError, "upstream unavailable")
			return
		}
		log.Info().Msg("realtime session established")

		adapter := relay.NewAdapter(target, registry, streamSid, log)
		pump := bridge.New(source, target, adapter, log)
		pump.SetGrace(cfg.GraceTimeout)

		metrics.BridgeStarted()
		err = pump.Run(ctx)
		metrics.BridgeEnded(err == nil)
		if err != nil {
			log.Error().Err(err).Msg("bridge ended with error")
			return
		}
		log.Info().Msg("bridge closed")
	}
}

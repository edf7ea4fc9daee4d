package config

import "time"

// SocketConfig controls the real-time notification endpoint.
//
// PingInterval is the application-level heartbeat: every authenticated
// connection receives a "ping" event at this rate.  ProbeInterval and
// PongTimeout drive the websocket control-frame keep-alive that actually
// detects dead peers; the probe is shorter than the heartbeat and the
// timeout longer.
type SocketConfig struct {
	Path             string
	PingInterval     time.Duration
	ProbeInterval    time.Duration
	PongTimeout      time.Duration
	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration
	SendBuffer       int
	AllowedOrigins   []string
}

// LoadSocketConfig reads WS_* variables with defaults.
func LoadSocketConfig() SocketConfig {
	cfg := SocketConfig{
		Path:             envStr("WS_PATH", "/ws"),
		PingInterval:     envDur("WS_PING_INTERVAL", 30*time.Second),
		ProbeInterval:    envDur("WS_PROBE_INTERVAL", 25*time.Second),
		PongTimeout:      envDur("WS_PONG_TIMEOUT", 60*time.Second),
		HandshakeTimeout: envDur("WS_HANDSHAKE_TIMEOUT", 10*time.Second),
		WriteTimeout:     envDur("WS_WRITE_TIMEOUT", 10*time.Second),
		SendBuffer:       envInt("WS_SEND_BUFFER", 64),
		AllowedOrigins:   splitList(envStr("WS_ALLOWED_ORIGINS", "")),
	}
	if cfg.SendBuffer < 1 {
		cfg.SendBuffer = 1
	}
	if cfg.ProbeInterval >= cfg.PongTimeout {
		cfg.ProbeInterval = cfg.PongTimeout * 9 / 10
	}
	return cfg
}

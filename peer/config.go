package peer

import "time"

// Config holds the VIIPER connection settings.
type Config struct {
	Addr              string        `help:"VIIPER API server address" default:"localhost:3242" env:"VIISTREAM_PEER_ADDR"`
	Password          string        `help:"VIIPER API password; empty disables the encrypted handshake" env:"VIISTREAM_PEER_PASSWORD"`
	BusID             uint32        `help:"Virtual bus number used for this session" default:"1" env:"VIISTREAM_PEER_BUS"`
	KeepaliveInterval time.Duration `help:"Interval between keepalive pings" default:"1s" env:"VIISTREAM_PEER_KEEPALIVE"`
	PoorLatency       time.Duration `help:"Ping round trip above which the connection is reported as poor" default:"100ms" env:"VIISTREAM_PEER_POOR_LATENCY"`
	DialTimeout       time.Duration `help:"Timeout for connecting to the VIIPER server" default:"3s" env:"VIISTREAM_PEER_DIAL_TIMEOUT"`
}

// Package uplink carries the encoded payload off the node. The radio link
// itself is out of scope; implementations here are the bench/gateway paths.
// Link-level retry and backoff belong to the transport, not to the sampling
// loop, and are deliberately absent.
package uplink

import (
	"context"
	"encoding/hex"

	"codeberg.org/mutker/buoyctl/internal/logger"
)

// Transport publishes one payload per sampling cycle.
type Transport interface {
	Publish(ctx context.Context, payload []byte) error
	Close()
}

// logTransport is the bench fallback: it prints the payload instead of
// transmitting it.
type logTransport struct{}

func NewLogTransport() Transport {
	return &logTransport{}
}

func (*logTransport) Publish(_ context.Context, payload []byte) error {
	logger.Info().
		Str("payload", hex.EncodeToString(payload)).
		Int("bytes", len(payload)).
		Msg("Uplink (log transport)")

	return nil
}

func (*logTransport) Close() {}

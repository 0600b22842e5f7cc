package dispatch

import (
	"context"
	"fmt"

	"github.com/go-zeromq/zmq4"
)

// RelaySocket is the local firehose: a PUSH socket that gets a copy of
// every created message for downstream internal consumers.
type RelaySocket struct {
	sock zmq4.Socket
}

// NewRelaySocket dials the pub/sub relay at uri (e.g. ipc:///tmp/pushrelay.ipc
// or tcp://127.0.0.1:5560).
func NewRelaySocket(ctx context.Context, uri string) (*RelaySocket, error) {
	sock := zmq4.NewPush(ctx)
	if err := sock.Dial(uri); err != nil {
		return nil, fmt.Errorf("relay socket dial %s failed: %w", uri, err)
	}
	return &RelaySocket{sock: sock}, nil
}

// Publish fires the payload at the relay. Delivery is fire-and-forget.
func (r *RelaySocket) Publish(_ context.Context, payload []byte) error {
	return r.sock.Send(zmq4.NewMsg(payload))
}

// Close closes the socket.
func (r *RelaySocket) Close() error {
	return r.sock.Close()
}

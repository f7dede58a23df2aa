package failure

import (
	"crypto/tls"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

// ReportEvent is the socket.io event name used for error reports.
const ReportEvent = "client_error"

// emitter is the part of *socket.Socket the sink needs.
type emitter interface {
	Emit(ev string, args ...any) error
}

// SocketIOSink forwards reports to a collector over socket.io. The client
// buffers emits until the connection is up, so creating the sink never
// blocks the bootstrap.
type SocketIOSink struct {
	logger *slog.Logger
	client *socket.Socket
	out    emitter
}

// SocketIOOptions configures NewSocketIOSink.
type SocketIOOptions struct {
	URL                string
	Namespace          string
	InsecureSkipVerify bool
}

// NewSocketIOSink creates the client and starts connecting in the background.
func NewSocketIOSink(logger *slog.Logger, o SocketIOOptions) (*SocketIOSink, error) {
	logger = logger.With("sink", "socketio", "url", o.URL)

	parsedURL, err := url.Parse(o.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse report URL: %w", err)
	}
	if parsedURL.Scheme == "" || parsedURL.Host == "" {
		return nil, fmt.Errorf("report URL %q must be absolute", o.URL)
	}

	opts := socket.DefaultOptions()
	opts.SetPath(parsedURL.Path)
	if o.InsecureSkipVerify {
		logger.Warn("Skipping TLS certificate verification")
		opts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	opts.SetTransports(types.NewSet(transports.WebSocket))

	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)
	manager := socket.NewManager(baseURL, opts)
	io := manager.Socket(o.Namespace, opts)

	io.On(types.EventName("connect"), func(...any) {
		logger.Debug("Error collector connected", "sid", io.Id())
	})
	io.On(types.EventName("connect_error"), func(errs ...any) {
		logger.Debug("Error collector unreachable", "error", errs)
	})
	io.Connect()

	return &SocketIOSink{logger: logger, client: io, out: io}, nil
}

// Report implements Sink.
func (s *SocketIOSink) Report(r Report) error {
	return s.out.Emit(ReportEvent, map[string]any{
		"run_id":  r.RunID,
		"message": r.Err.Error(),
		"at":      r.At.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
	})
}

// Close disconnects from the collector.
func (s *SocketIOSink) Close() error {
	if s.client != nil {
		s.client.Disconnect()
	}
	return nil
}

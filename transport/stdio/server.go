package stdio

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"sync"

	"github.com/slighter12/twinscene-go/commands"
	"github.com/slighter12/twinscene-go/events"
	"github.com/slighter12/twinscene-go/logger"
	"github.com/slighter12/twinscene-go/rpc/jsonrpc"
	"github.com/slighter12/twinscene-go/transport/shared"
)

const (
	maxLineBytes = 1 << 20
	outboxSize   = 256

	// EventMethod is the notification carrying one editor event.
	EventMethod = "notifications/event"
)

// EventSource is where the server subscribes to editor events.
type EventSource interface {
	OnAll(h events.Handler) (off func())
}

// EventParams are the params of an EventMethod notification.
type EventParams struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// StdioServer speaks newline-delimited JSON-RPC.
type StdioServer struct {
	registry   *commands.Manager
	info       shared.ServerInfo
	transports []string
	source     EventSource
}

// NewStdioServer creates a new stdio server. source may be nil.
func NewStdioServer(registry *commands.Manager, info shared.ServerInfo, transports []string, source EventSource) *StdioServer {
	return &StdioServer{
		registry:   registry,
		info:       info,
		transports: transports,
		source:     source,
	}
}

// Start serves stdin and stdout.
func (s *StdioServer) Start(ctx context.Context) error {
	return s.Serve(ctx, os.Stdin, os.Stdout)
}

// Serve answers requests read from r until EOF or ctx is done. Responses
// and event notifications are written to w, one per line.
func (s *StdioServer) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	ctx, cancel := context.WithCancel(ctx)

	out := newOutbox(w)
	var writerDone sync.WaitGroup
	writerDone.Add(1)
	go func() {
		defer writerDone.Done()
		out.run(ctx)
	}()
	defer func() {
		cancel()
		writerDone.Wait()
	}()

	if s.source != nil {
		off := s.source.OnAll(func(event string, payload any) {
			data, err := json.Marshal(payload)
			if err != nil {
				logger.Warn("Failed to encode event", "event", event, "error", err)
				return
			}
			out.offer(jsonrpc.NewNotification(EventMethod, EventParams{Event: event, Payload: data}))
		})
		defer off()
	}

	lines := make(chan []byte)
	readErr := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
		for scanner.Scan() {
			line := append([]byte(nil), scanner.Bytes()...)
			select {
			case lines <- line:
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
	}()

	logger.Debug("Stdio server started and waiting for messages")
	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-readErr:
			if err != nil && !errors.Is(err, io.EOF) {
				logger.Error("Error reading stdin", "error", err)
				return err
			}
			logger.Debug("Stdio EOF received, terminating server")
			return nil
		case line := <-lines:
			s.handleLine(ctx, line, out)
		}
	}
}

func (s *StdioServer) handleLine(ctx context.Context, line []byte, out *outbox) {
	requests, prebuilt, _, err := shared.ParseJSONRPCFrame(line)
	if err != nil {
		// blank line
		return
	}
	for _, resp := range prebuilt {
		out.send(ctx, resp)
	}
	for _, request := range requests {
		logger.Debug("Stdio message received", "method", request.Method, "id", request.ID)
		if response := shared.Dispatch(ctx, request, s.registry, s.info, s.transports); response != nil {
			out.send(ctx, response)
		}
	}
}

// outbox serializes writes from the request loop and the editor loop.
type outbox struct {
	enc   *json.Encoder
	queue chan any
}

func newOutbox(w io.Writer) *outbox {
	return &outbox{enc: json.NewEncoder(w), queue: make(chan any, outboxSize)}
}

// send queues a response, waiting for room.
func (o *outbox) send(ctx context.Context, msg any) {
	select {
	case o.queue <- msg:
	case <-ctx.Done():
	}
}

// offer queues a notification unless the queue is full.
func (o *outbox) offer(msg any) {
	select {
	case o.queue <- msg:
	default:
		logger.Warn("Stdio outbox full, event dropped")
	}
}

// run drains the queue until ctx is done, then flushes what is left.
func (o *outbox) run(ctx context.Context) {
	for {
		select {
		case msg := <-o.queue:
			o.write(msg)
		case <-ctx.Done():
			for {
				select {
				case msg := <-o.queue:
					o.write(msg)
				default:
					return
				}
			}
		}
	}
}

func (o *outbox) write(msg any) {
	if err := o.enc.Encode(msg); err != nil {
		logger.Error("Error encoding response", "error", err)
	}
}

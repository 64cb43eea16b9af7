package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"mercator-hq/saturn/pkg/backend"
	"mercator-hq/saturn/pkg/protocol"
	"mercator-hq/saturn/pkg/usage"
)

// setStreamHeaders prepares the response for server-sent events. They must
// be set before the first write.
func setStreamHeaders(w http.ResponseWriter) {
	h := w.Header()
	h.Set("Content-Type", "text/event-stream; charset=utf-8")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
}

// writeEvents serializes events in SSE framing and flushes after the
// batch, so each backend chunk reaches the client immediately.
func writeEvents(w http.ResponseWriter, events []protocol.Event) error {
	if len(events) == 0 {
		return nil
	}
	for _, ev := range events {
		if ev.Name != "" {
			if _, err := fmt.Fprintf(w, "event: %s\n", ev.Name); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", ev.Data); err != nil {
			return err
		}
	}
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
	return nil
}

// streamOutcome summarizes a finished stream for usage recording.
type streamOutcome struct {
	usage  protocol.Usage
	status string
}

// pipeStream pulls chunks from the backend until the stream ends and
// writes them to the client in the dialect's framing. Reads are paced by
// the client: each batch of events is written and flushed before the next
// chunk is pulled, so a slow consumer slows the backend read instead of
// buffering unboundedly.
func pipeStream(ctx context.Context, w http.ResponseWriter, tr protocol.Translator, st *protocol.StreamState, stream backend.StreamReader) streamOutcome {
	defer stream.Close()

	finish := ""
	for {
		chunk, err := stream.Read(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				if werr := writeEvents(w, tr.StreamFinish(st, finish)); werr != nil {
					return streamOutcome{usage: st.Usage, status: usage.StatusDisconnected}
				}
				return streamOutcome{usage: st.Usage, status: usage.StatusOK}
			}
			if ctx.Err() != nil {
				return streamOutcome{usage: st.Usage, status: usage.StatusDisconnected}
			}

			// A mid-stream backend failure becomes a terminal event; the
			// HTTP status is long gone by now.
			_, code, message := classify(err)
			writeEvents(w, tr.StreamError(st, code, message))
			return streamOutcome{usage: st.Usage, status: usage.StatusError}
		}

		if chunk.FinishReason != "" {
			finish = chunk.FinishReason
		}

		if err := writeEvents(w, tr.StreamEvents(chunk, st)); err != nil {
			return streamOutcome{usage: st.Usage, status: usage.StatusDisconnected}
		}
	}
}

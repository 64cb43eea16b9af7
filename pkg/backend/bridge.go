package backend

import (
	"context"
	"io"
	"strings"

	"mercator-hq/saturn/pkg/protocol"
)

// Collect drains a stream into a complete response, concatenating deltas
// and keeping the final finish reason and usage totals. The reader is
// closed before returning.
func Collect(ctx context.Context, reader StreamReader) (*protocol.Response, error) {
	defer reader.Close()

	var content strings.Builder
	out := &protocol.Response{FinishReason: protocol.FinishStop}

	for {
		chunk, err := reader.Read(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		if chunk.ID != "" && out.ID == "" {
			out.ID = chunk.ID
		}
		content.WriteString(chunk.Delta)
		if chunk.FinishReason != "" {
			out.FinishReason = chunk.FinishReason
		}
		if chunk.Usage != nil {
			out.Usage.Add(*chunk.Usage)
		}
	}

	out.Content = content.String()
	return out, nil
}

// Replay exposes a complete response as a stream: one chunk carrying the
// whole content, then io.EOF.
func Replay(resp *protocol.Response) StreamReader {
	return &replayStream{resp: resp}
}

type replayStream struct {
	resp *protocol.Response
	done bool
}

func (s *replayStream) Read(ctx context.Context) (*protocol.Chunk, error) {
	if s.done {
		return nil, io.EOF
	}
	s.done = true

	usage := s.resp.Usage
	return &protocol.Chunk{
		ID:           s.resp.ID,
		Delta:        s.resp.Content,
		FinishReason: s.resp.FinishReason,
		Usage:        &usage,
	}, nil
}

func (s *replayStream) Close() error { return nil }

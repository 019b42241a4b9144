package chat

import (
	"context"
	"time"
)

// Streamer emits text a few runes at a time on a fixed interval.
type Streamer struct {
	Interval  time.Duration
	ChunkSize int
}

func NewStreamer(interval time.Duration, chunkSize int) *Streamer {
	if chunkSize <= 0 {
		chunkSize = 2
	}
	return &Streamer{Interval: interval, ChunkSize: chunkSize}
}

// Stream produces text in chunks on the returned channel, which is closed
// when the text is exhausted or ctx is done. Nothing is sent after ctx is
// cancelled.
func (s *Streamer) Stream(ctx context.Context, text string) <-chan string {
	out := make(chan string)
	runes := []rune(text)

	go func() {
		defer close(out)

		var tick <-chan time.Time
		if s.Interval > 0 {
			t := time.NewTicker(s.Interval)
			defer t.Stop()
			tick = t.C
		}

		for i := 0; i < len(runes); i += s.ChunkSize {
			if tick != nil {
				select {
				case <-ctx.Done():
					return
				case <-tick:
				}
			}
			if ctx.Err() != nil {
				return
			}
			end := min(i+s.ChunkSize, len(runes))
			select {
			case <-ctx.Done():
				return
			case out <- string(runes[i:end]):
			}
		}
	}()

	return out
}

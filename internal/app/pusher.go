package app

import (
	"context"
	"errors"

	"github.com/five82/carradio/internal/logging"
	"github.com/five82/carradio/internal/push"
)

// pushBuffer absorbs short bursts such as the snapshot sent on connect.
const pushBuffer = 32

// StartPush launches the push stream in a background goroutine and returns
// the channel it delivers on, in arrival order. The channel is closed once
// the stream stops, which only happens when ctx is cancelled.
func StartPush(ctx context.Context, stream *push.Stream) <-chan push.Message {
	ch := make(chan push.Message, pushBuffer)
	go func() {
		defer close(ch)
		err := stream.Run(ctx, func(msg push.Message) {
			select {
			case ch <- msg:
			case <-ctx.Done():
			}
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Errorf("push stream stopped: %v", err)
		}
	}()
	return ch
}

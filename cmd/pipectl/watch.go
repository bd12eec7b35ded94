package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/pipeline/internal/idgen"
	"github.com/alfredjeanlab/pipeline/internal/realtime"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the pipeline board and re-render on changes",
	RunE: func(cmd *cobra.Command, args []string) error {
		interval, _ := cmd.Flags().GetDuration("interval")
		once, _ := cmd.Flags().GetBool("once")

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		// Initial render.
		if err := reloadAndPrint(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if once {
			return nil
		}

		// Prefer the realtime stream; fall back to polling when the
		// stream cannot be established or gives up reconnecting.
		ch, err := openStream(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "realtime stream unavailable (%v), polling every %s\n", err, interval)
			return watchPoll(ctx, interval)
		}
		defer ch.Close()
		return watchStream(ctx, ch, interval)
	},
}

// streamURL derives the websocket endpoint from the configured server URL.
func streamURL() string {
	u := serverURL
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}
	return strings.TrimSuffix(u, "/") + "/ws/clients?topics=pipeline.client.>"
}

// notifyCh carries change signals from the stream's read goroutine.
var notifyCh = make(chan struct{}, 1)

func openStream(ctx context.Context) (*realtime.Channel, error) {
	sessionID, err := idgen.NewSessionID()
	if err != nil {
		return nil, err
	}

	header := http.Header{}
	if authToken != "" {
		header.Set("Authorization", "Bearer "+authToken)
	}
	header.Set("X-Pipeline-Actor", actor)

	ch := realtime.New(realtime.Config{
		URL:    streamURL(),
		Dialer: &realtime.WebsocketDialer{Header: header},
		OnMessage: func([]byte) {
			select {
			case notifyCh <- struct{}{}:
			default:
			}
		},
		Logger: slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})),
	}, sessionID)

	if err := ch.Open(ctx); err != nil {
		return nil, err
	}
	return ch, nil
}

// watchStream re-renders on stream events with debounce. If the channel
// exhausts its reconnect budget, it degrades to polling.
func watchStream(ctx context.Context, ch *realtime.Channel, interval time.Duration) error {
	debounce := time.NewTimer(0)
	debounce.Stop()
	// Drain the timer channel in case it fired between NewTimer and Stop.
	select {
	case <-debounce.C:
	default:
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ch.Done():
			if err := ch.Err(); err != nil {
				fmt.Fprintf(os.Stderr, "realtime stream lost (%v), polling every %s\n", err, interval)
				return watchPoll(ctx, interval)
			}
			return nil
		case <-notifyCh:
			debounce.Reset(200 * time.Millisecond)
		case <-debounce.C:
			if err := reloadAndPrint(ctx); err != nil {
				return err
			}
		}
	}
}

// watchPoll re-renders at the given interval.
func watchPoll(ctx context.Context, interval time.Duration) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(interval):
		}
		if err := reloadAndPrint(ctx); err != nil {
			return err
		}
	}
}

func reloadAndPrint(ctx context.Context) error {
	b, err := loadBoard(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
	fmt.Printf("=== %s ===\n", time.Now().Format("15:04:05"))
	printBoard(b)
	return nil
}

func init() {
	watchCmd.Flags().Duration("interval", 5*time.Second, "polling interval when the stream is unavailable")
	watchCmd.Flags().Bool("once", false, "render once and exit")
}

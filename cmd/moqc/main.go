// Command moqc is a demo MoQ client: it dials a WebTransport relay,
// subscribes to one track, and logs every delivered object until
// interrupted or the session closes.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/zsiec/moqc/internal/session"
	"github.com/zsiec/moqc/internal/webtransport"
)

func main() {
	level := slog.LevelInfo
	if os.Getenv("DEBUG") != "" {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	addr := envOr("MOQ_ADDR", "https://localhost:4443")
	path := envOr("MOQ_PATH", "/moq")
	namespace := strings.Split(envOr("MOQ_NAMESPACE", "demo"), "/")
	track := envOr("MOQ_TRACK", "video")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("received signal, shutting down", "signal", sig)
		cancel()
	}()

	if err := run(ctx, addr, path, namespace, track); err != nil {
		slog.Error("moqc exited with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, addr, path string, namespace []string, track string) error {
	dialer := webtransport.Dialer{Insecure: os.Getenv("MOQ_INSECURE") != ""}

	conn, err := dialer.Dial(ctx, addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}

	sess := session.New(conn, session.Options{
		Path:         path,
		SetupTimeout: 10 * time.Second,
	})

	if err := sess.Connect(ctx); err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	slog.Info("moq session connected", "addr", addr, "path", path)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		for {
			select {
			case ev, ok := <-sess.Events().Goaway:
				if !ok {
					return nil
				}
				slog.Info("received GOAWAY", "new_uri", ev.NewURI)
			case <-gctx.Done():
				return nil
			case <-sess.Done():
				return nil
			}
		}
	})

	sub, err := sess.Subscribe(gctx, namespace, track, session.FilterLargestObject(), session.SubscribeOptions{
		Priority:   128,
		GroupOrder: 0,
	})
	if err != nil {
		_ = sess.Disconnect()
		return fmt.Errorf("subscribe %s/%s: %w", strings.Join(namespace, "/"), track, err)
	}
	slog.Info("subscribed", "namespace", namespace, "track", track, "alias", sub.TrackAlias())

	g.Go(func() error {
		for {
			select {
			case obj, ok := <-sub.Objects():
				if !ok {
					return nil
				}
				slog.Info("object received",
					"group", obj.Group, "subgroup", obj.Subgroup, "object", obj.ObjectID,
					"bytes", len(obj.Payload), "kind", obj.Kind)
			case <-gctx.Done():
				return nil
			}
		}
	})

	g.Go(func() error {
		<-gctx.Done()
		_ = sess.Unsubscribe(sub)
		return sess.Disconnect()
	})

	return g.Wait()
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

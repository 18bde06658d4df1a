package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Alia5/viistream/input"
	"github.com/Alia5/viistream/internal/control"
	"github.com/Alia5/viistream/internal/log"
	"github.com/Alia5/viistream/internal/metrics"
	"github.com/Alia5/viistream/peer"
	"github.com/Alia5/viistream/platform"
	"github.com/Alia5/viistream/session"
	"github.com/Alia5/viistream/settings"
)

// Stream runs one streaming session until it is interrupted.
type Stream struct {
	Settings settings.Settings `embed:"" prefix:"stream."`
	Platform platform.Config   `embed:"" prefix:"platform."`
	Peer     peer.Config       `embed:"" prefix:"peer."`
	Control  control.Config    `embed:"" prefix:"control."`

	App             string        `help:"Name of the host application" default:"Desktop" env:"VIISTREAM_APP"`
	WatchdogTimeout time.Duration `help:"Interrupt the stream when the connection reports no status for this long; 0 disables" default:"10s" env:"VIISTREAM_WATCHDOG_TIMEOUT"`
	QuitApp         bool          `help:"Remove the virtual devices from the server when the stream ends" default:"true" env:"VIISTREAM_QUIT_APP"`
	InputBuffer     int           `help:"Number of queued input events" default:"256" env:"VIISTREAM_INPUT_BUFFER"`
}

// Run is called by Kong when the stream command is executed.
func (s *Stream) Run(logger *slog.Logger, rawLogger log.RawLogger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return s.StartStream(ctx, logger, rawLogger)
}

// StartStream runs the session until ctx is done or the session ends on its
// own. It returns the session's last error, if any.
func (s *Stream) StartStream(ctx context.Context, logger *slog.Logger, rawLogger log.RawLogger) error {
	vcap, acap, err := s.Platform.Capabilities()
	if err != nil {
		return fmt.Errorf("invalid platform capabilities: %w", err)
	}
	cfg := session.BuildConfig(s.Settings, vcap, acap)

	m := metrics.New()
	events := make(chan input.Event, max(s.InputBuffer, 1))
	hub := control.NewHub(events, logger)
	defer hub.Close()

	sess, err := session.New(session.Options{
		Config: cfg,
		Server: session.ServerInfo{
			Name:    "VIIPER",
			Address: s.Peer.Addr,
			// VIIPER devices carry no video, so any mode is acceptable.
			DisplayModes: []session.DisplayMode{{Width: cfg.Stream.Width, Height: cfg.Stream.Height, Refresh: cfg.Stream.FPS}},
		},
		App:             session.AppInfo{ID: 1, Name: s.App},
		VideoCap:        vcap,
		AudioCap:        acap,
		Transport:       peer.New(s.Peer, rawLogger, logger),
		Player:          platform.NewLogPlayer(logger),
		Overlay:         hub,
		OnInterrupt:     hub.NotifyInterrupted,
		DisplayWidth:    s.Settings.Width,
		DisplayHeight:   s.Settings.Height,
		WatchdogTimeout: s.WatchdogTimeout,
		AutoStartInput:  true,
		Logger:          logger,
		Metrics:         m,
	})
	if err != nil {
		return err
	}
	defer sess.Destroy()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go sess.Input().Run(runCtx, events)

	ctrlErr := make(chan error, 1)
	if s.Control.Listen != "" {
		ln, err := net.Listen("tcp", s.Control.Listen)
		if err != nil {
			return fmt.Errorf("control server: %w", err)
		}
		srv := control.NewServer(sess, hub, m, logger)
		go func() { ctrlErr <- srv.Serve(runCtx, ln) }()
	}

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received, stopping stream")
		sess.Interrupt(s.QuitApp, session.ReasonUser)
	case <-sess.Done():
	case err := <-ctrlErr:
		if err != nil {
			logger.Error("control server failed", "error", err)
			sess.Interrupt(s.QuitApp, session.ReasonError)
		}
	}
	sess.Destroy()

	if serr := sess.LastError(); serr != nil {
		return serr
	}
	return nil
}

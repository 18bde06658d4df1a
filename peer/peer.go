// Package peer streams controller and mouse state to a VIIPER server. Each
// controller slot becomes a virtual xbox360 device, the virtual mouse a
// virtual mouse device, all on one bus owned by the session.
package peer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Alia5/viistream/apiclient"
	"github.com/Alia5/viistream/apitypes"
	"github.com/Alia5/viistream/device/mouse"
	"github.com/Alia5/viistream/device/xbox360"
	"github.com/Alia5/viistream/input"
	"github.com/Alia5/viistream/internal/log"
	"github.com/Alia5/viistream/session"
)

// Connection stages reported to the listener.
const (
	StageHandshake = iota + 1
	StageBusSetup
	StageMouseAttach
	StageKeepalive
)

var stageNames = map[int]string{
	StageHandshake:   "API handshake",
	StageBusSetup:    "virtual bus setup",
	StageMouseAttach: "mouse attach",
	StageKeepalive:   "keepalive start",
}

// Termination codes passed to ConnectionTerminated.
const (
	CodeStreamClosed = 0x100 // server closed a device stream
	CodeStreamError  = 0x101 // device stream read failed
	CodeBadFeedback  = 0x102 // malformed feedback frame
)

var (
	errNotStarted = errors.New("peer not started")
	errStopped    = errors.New("peer stopped")
)

var _ session.Transport = (*Peer)(nil)

// Peer is a session.Transport backed by a VIIPER server.
type Peer struct {
	cfg    Config
	raw    log.RawLogger
	logger *slog.Logger

	// attachMu serializes lazy controller attach; mu guards the fields below.
	attachMu sync.Mutex
	mu       sync.Mutex
	client   *apiclient.Client
	listener session.Listener
	cancel   context.CancelFunc
	mouse    *apiclient.DeviceStream
	pads     [input.MaxControllers]*apiclient.DeviceStream
	devices  []string

	stopping   atomic.Bool
	terminated atomic.Bool
	wg         sync.WaitGroup
}

// New returns an unstarted peer. raw may be nil.
func New(cfg Config, raw log.RawLogger, logger *slog.Logger) *Peer {
	if logger == nil {
		logger = slog.Default()
	}
	if raw == nil {
		raw = log.NewRaw(nil)
	}
	return &Peer{
		cfg:    cfg,
		raw:    raw,
		logger: logger.With("component", "peer"),
	}
}

// StageName returns the human readable name of a connection stage.
func (p *Peer) StageName(stage int) string {
	if n, ok := stageNames[stage]; ok {
		return n
	}
	return fmt.Sprintf("stage %d", stage)
}

// HDRMetadata reports no host metadata; VIIPER carries no video.
func (p *Peer) HDRMetadata() (session.HDRMetadata, bool) {
	return session.HDRMetadata{}, false
}

// Start connects to the server and runs the connection stages in order.
// server.Address overrides the configured address when set.
func (p *Peer) Start(ctx context.Context, cfg session.Config, server session.ServerInfo, app session.AppInfo, l session.Listener) error {
	addr := p.cfg.Addr
	if server.Address != "" {
		addr = server.Address
	}
	client := apiclient.New(addr, &apiclient.Config{
		DialTimeout:  p.cfg.DialTimeout,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
		Password:     p.cfg.Password,
	})
	runCtx, cancel := context.WithCancel(context.Background())

	p.mu.Lock()
	p.client = client
	p.listener = l
	p.cancel = cancel
	p.mu.Unlock()

	p.logger.Info("connecting", "addr", addr, "bus", p.cfg.BusID, "app", app.Name)

	err := p.stage(l, StageHandshake, func() error {
		resp, err := client.Ping(ctx)
		if err != nil {
			return err
		}
		p.logger.Info("connected", "server", resp.Server, "version", resp.Version)
		return nil
	})
	if err == nil {
		err = p.stage(l, StageBusSetup, func() error {
			_, err := client.BusCreate(ctx, p.cfg.BusID)
			return err
		})
	}
	if err == nil {
		err = p.stage(l, StageMouseAttach, func() error {
			if !cfg.VirtualMouse {
				return nil
			}
			s, err := p.attach(ctx, "mouse")
			if err != nil {
				return err
			}
			p.mu.Lock()
			p.mouse = s
			p.mu.Unlock()
			p.watch(s, "mouse", 1, nil)
			return nil
		})
	}
	if err == nil {
		err = p.stage(l, StageKeepalive, func() error {
			p.wg.Add(1)
			go p.keepalive(runCtx, client, l)
			return nil
		})
	}
	if err != nil {
		return err
	}
	l.ConnectionStarted()
	return nil
}

func (p *Peer) stage(l session.Listener, stage int, fn func() error) error {
	l.StageStarting(stage)
	if err := fn(); err != nil {
		code := -1
		var apiErr *apitypes.ApiError
		if errors.As(err, &apiErr) {
			code = apiErr.Status
		}
		l.StageFailed(stage, code)
		return fmt.Errorf("%s: %w", p.StageName(stage), err)
	}
	l.StageComplete(stage)
	return nil
}

// attach adds a device of devType to the bus and opens its stream.
func (p *Peer) attach(ctx context.Context, devType string) (*apiclient.DeviceStream, error) {
	p.mu.Lock()
	client := p.client
	p.mu.Unlock()
	if client == nil {
		return nil, errNotStarted
	}
	dev, err := client.DeviceAdd(ctx, p.cfg.BusID, devType)
	if err != nil {
		return nil, fmt.Errorf("add %s device: %w", devType, err)
	}
	p.mu.Lock()
	p.devices = append(p.devices, dev.DevId)
	p.mu.Unlock()
	s, err := client.OpenStream(ctx, p.cfg.BusID, dev.DevId)
	if err != nil {
		return nil, fmt.Errorf("open %s stream: %w", devType, err)
	}
	p.logger.Debug("device attached", "type", devType, "dev", dev.DevId)
	return s, nil
}

// watch reads feedback frames of size n until the stream fails. onFrame may be nil.
func (p *Peer) watch(s *apiclient.DeviceStream, name string, n int, onFrame func([]byte) error) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		buf := make([]byte, n)
		for {
			if err := s.ReadMessage(buf); err != nil {
				if p.stopping.Load() || s.Closed() {
					return
				}
				code := CodeStreamError
				if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, net.ErrClosed) {
					code = CodeStreamClosed
				}
				p.logger.Warn("device stream failed", "stream", name, "error", err)
				p.terminate(code)
				return
			}
			p.raw.Log(log.In, name, buf)
			if onFrame == nil {
				continue
			}
			if err := onFrame(buf); err != nil {
				p.logger.Warn("bad feedback", "stream", name, "error", err)
				p.terminate(CodeBadFeedback)
				return
			}
		}
	}()
}

// terminate reports a connection loss once.
func (p *Peer) terminate(code int) {
	if p.stopping.Load() || p.terminated.Swap(true) {
		return
	}
	p.mu.Lock()
	l := p.listener
	p.mu.Unlock()
	if l != nil {
		l.ConnectionTerminated(code)
	}
}

func (p *Peer) keepalive(ctx context.Context, client *apiclient.Client, l session.Listener) {
	defer p.wg.Done()
	interval := p.cfg.KeepaliveInterval
	if interval <= 0 {
		interval = time.Second
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
		pingCtx, cancel := context.WithTimeout(ctx, interval)
		start := time.Now()
		_, err := client.Ping(pingCtx)
		rtt := time.Since(start)
		cancel()
		if ctx.Err() != nil {
			return
		}
		status := session.ConnStatusOkay
		if err != nil {
			p.logger.Debug("keepalive failed", "error", err)
			status = session.ConnStatusPoor
		} else if p.cfg.PoorLatency > 0 && rtt > p.cfg.PoorLatency {
			status = session.ConnStatusPoor
		}
		l.ConnectionStatusUpdate(status)
	}
}

func (p *Peer) pad(slot uint8) (*apiclient.DeviceStream, error) {
	if int(slot) >= input.MaxControllers {
		return nil, fmt.Errorf("controller slot %d out of range", slot)
	}
	p.mu.Lock()
	s := p.pads[slot]
	p.mu.Unlock()
	if s != nil {
		return s, nil
	}

	p.attachMu.Lock()
	defer p.attachMu.Unlock()
	p.mu.Lock()
	s = p.pads[slot]
	p.mu.Unlock()
	if s != nil {
		return s, nil
	}
	if p.stopping.Load() {
		return nil, errStopped
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s, err := p.attach(ctx, "xbox360")
	if err != nil {
		return nil, err
	}
	p.mu.Lock()
	p.pads[slot] = s
	p.mu.Unlock()

	name := fmt.Sprintf("xbox360/%d", slot)
	p.watch(s, name, xbox360.RumbleStateSize, func(b []byte) error {
		var r xbox360.XRumbleState
		if err := r.UnmarshalBinary(b); err != nil {
			return err
		}
		p.mu.Lock()
		l := p.listener
		p.mu.Unlock()
		if l != nil {
			l.Rumble(slot, uint16(r.LeftMotor)<<8, uint16(r.RightMotor)<<8)
		}
		return nil
	})
	return s, nil
}

// SendMultiController sends the state of one slot, attaching its device on first use.
func (p *Peer) SendMultiController(slot uint8, activeMask uint16, state xbox360.InputState) error {
	s, err := p.pad(slot)
	if err != nil {
		return fmt.Errorf("%w: %v", session.ErrNetwork, err)
	}
	data, err := state.MarshalBinary()
	if err != nil {
		return err
	}
	return p.send(s, fmt.Sprintf("xbox360/%d", slot), data)
}

// SendMouseMove sends one relative mouse report.
func (p *Peer) SendMouseMove(dx, dy int16) error {
	p.mu.Lock()
	s := p.mouse
	p.mu.Unlock()
	if s == nil {
		return fmt.Errorf("%w: %v", session.ErrNetwork, errNotStarted)
	}
	m := mouse.Move(dx, dy)
	data, err := m.MarshalBinary()
	if err != nil {
		return err
	}
	return p.send(s, "mouse", data)
}

func (p *Peer) send(s *apiclient.DeviceStream, name string, data []byte) error {
	p.raw.Log(log.Out, name, data)
	if err := s.Write(data); err != nil {
		return fmt.Errorf("%w: %s: %v", session.ErrNetwork, name, err)
	}
	return nil
}

// Stop closes every stream and waits for the peer's goroutines. With quitApp
// the devices and the bus are removed from the server as well.
func (p *Peer) Stop(quitApp bool) error {
	if p.stopping.Swap(true) {
		return nil
	}
	p.attachMu.Lock()
	p.mu.Lock()
	if p.cancel != nil {
		p.cancel()
	}
	streams := make([]*apiclient.DeviceStream, 0, len(p.pads)+1)
	if p.mouse != nil {
		streams = append(streams, p.mouse)
	}
	for _, s := range p.pads {
		if s != nil {
			streams = append(streams, s)
		}
	}
	client := p.client
	devices := p.devices
	p.mu.Unlock()
	p.attachMu.Unlock()

	for _, s := range streams {
		_ = s.Close()
	}
	p.wg.Wait()

	if !quitApp || client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	var errs []error
	for _, dev := range devices {
		if _, err := client.DeviceRemove(ctx, p.cfg.BusID, dev); err != nil {
			errs = append(errs, fmt.Errorf("remove device %s: %w", dev, err))
		}
	}
	if _, err := client.BusRemove(ctx, p.cfg.BusID); err != nil {
		errs = append(errs, fmt.Errorf("remove bus %d: %w", p.cfg.BusID, err))
	}
	p.logger.Info("removed virtual devices", "bus", p.cfg.BusID, "devices", len(devices))
	return errors.Join(errs...)
}

package peer_test

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Alia5/viistream/device/mouse"
	"github.com/Alia5/viistream/device/xbox360"
	"github.com/Alia5/viistream/internal/log"
	"github.com/Alia5/viistream/peer"
	"github.com/Alia5/viistream/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(addr string) peer.Config {
	return peer.Config{
		Addr:              addr,
		BusID:             7,
		KeepaliveInterval: 20 * time.Millisecond,
		PoorLatency:       time.Second,
		DialTimeout:       time.Second,
	}
}

func start(t *testing.T, f *fakeServer, cfg peer.Config, vmouse bool) (*peer.Peer, *recorder) {
	t.Helper()
	p := peer.New(cfg, nil, nil)
	rec := &recorder{}
	err := p.Start(context.Background(), session.Config{VirtualMouse: vmouse}, session.ServerInfo{}, session.AppInfo{Name: "Desktop"}, rec)
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Stop(false) })
	return p, rec
}

func nextFrame(t *testing.T, f *fakeServer) frame {
	t.Helper()
	select {
	case fr := <-f.frames:
		return fr
	case <-time.After(2 * time.Second):
		t.Fatal("no frame received")
		return frame{}
	}
}

func TestStartRunsStages(t *testing.T) {
	f := newFakeServer(t, "")
	_, rec := start(t, f, testConfig(f.addr()), true)

	events, _, _, _ := rec.snapshot()
	assert.Equal(t, []string{
		"starting 1", "complete 1",
		"starting 2", "complete 2",
		"starting 3", "complete 3",
		"starting 4", "complete 4",
		"started",
	}, events)
	assert.True(t, f.hasBus(7))
	assert.Equal(t, 1, f.deviceCount())
}

func TestStageNames(t *testing.T) {
	p := peer.New(peer.Config{}, nil, nil)
	assert.Equal(t, "API handshake", p.StageName(peer.StageHandshake))
	assert.Equal(t, "virtual bus setup", p.StageName(peer.StageBusSetup))
	assert.Equal(t, "mouse attach", p.StageName(peer.StageMouseAttach))
	assert.Equal(t, "keepalive start", p.StageName(peer.StageKeepalive))
	assert.Equal(t, "stage 9", p.StageName(9))
	_, ok := p.HDRMetadata()
	assert.False(t, ok)
}

func TestStageFailure(t *testing.T) {
	f := newFakeServer(t, "")
	f.failPath = "bus/create"
	p := peer.New(testConfig(f.addr()), nil, nil)
	rec := &recorder{}
	err := p.Start(context.Background(), session.Config{}, session.ServerInfo{}, session.AppInfo{}, rec)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "virtual bus setup")

	events, _, _, _ := rec.snapshot()
	assert.Equal(t, []string{"starting 1", "complete 1", "starting 2", "failed 2 500"}, events)
	assert.NoError(t, p.Stop(false))
}

func TestUnreachableServer(t *testing.T) {
	f := newFakeServer(t, "")
	addr := f.addr()
	f.close()

	p := peer.New(testConfig(addr), nil, nil)
	rec := &recorder{}
	err := p.Start(context.Background(), session.Config{}, session.ServerInfo{}, session.AppInfo{}, rec)
	require.Error(t, err)
	events, _, _, _ := rec.snapshot()
	assert.Equal(t, []string{"starting 1", "failed 1 -1"}, events)
}

func TestServerAddressOverridesConfig(t *testing.T) {
	f := newFakeServer(t, "")
	p := peer.New(testConfig("127.0.0.1:1"), nil, nil)
	rec := &recorder{}
	err := p.Start(context.Background(), session.Config{}, session.ServerInfo{Address: f.addr()}, session.AppInfo{}, rec)
	require.NoError(t, err)
	assert.NoError(t, p.Stop(false))
}

func TestControllerAttachedLazily(t *testing.T) {
	f := newFakeServer(t, "")
	var raw bytes.Buffer
	p := peer.New(testConfig(f.addr()), log.NewRaw(&raw), nil)
	require.NoError(t, p.Start(context.Background(), session.Config{}, session.ServerInfo{}, session.AppInfo{}, &recorder{}))
	defer p.Stop(false)
	assert.Equal(t, 0, f.deviceCount())

	state := xbox360.InputState{Buttons: xbox360.ButtonA, LX: -100, RT: 255}
	require.NoError(t, p.SendMultiController(0, 0x1, state))
	require.NoError(t, p.SendMultiController(0, 0x1, xbox360.InputState{}))
	require.NoError(t, p.SendMultiController(1, 0x3, state))
	assert.Equal(t, 2, f.deviceCount())

	got := map[string][]xbox360.InputState{}
	for i := 0; i < 3; i++ {
		fr := nextFrame(t, f)
		var s xbox360.InputState
		require.NoError(t, s.UnmarshalBinary(fr.data))
		got[fr.dev] = append(got[fr.dev], s)
	}
	assert.Equal(t, []xbox360.InputState{state, {}}, got["1"])
	assert.Equal(t, []xbox360.InputState{state}, got["2"])
	assert.Contains(t, raw.String(), "OUT xbox360/1: 14 bytes")

	assert.Error(t, p.SendMultiController(4, 0x1, state))
}

func TestMouseMove(t *testing.T) {
	f := newFakeServer(t, "")
	p, _ := start(t, f, testConfig(f.addr()), true)

	require.NoError(t, p.SendMouseMove(12, -4))
	fr := nextFrame(t, f)
	var m mouse.InputState
	require.NoError(t, m.UnmarshalBinary(fr.data))
	assert.Equal(t, int16(12), m.DX)
	assert.Equal(t, int16(-4), m.DY)
}

func TestMouseWithoutVirtualMouse(t *testing.T) {
	f := newFakeServer(t, "")
	p, _ := start(t, f, testConfig(f.addr()), false)
	err := p.SendMouseMove(1, 1)
	assert.ErrorIs(t, err, session.ErrNetwork)
}

func TestRumbleForwarded(t *testing.T) {
	f := newFakeServer(t, "")
	p, rec := start(t, f, testConfig(f.addr()), false)

	require.NoError(t, p.SendMultiController(2, 0x4, xbox360.InputState{}))
	nextFrame(t, f)
	require.Eventually(t, func() bool { return f.hasStream("1") }, time.Second, 5*time.Millisecond)
	require.NoError(t, f.send("1", []byte{0x80, 0x10}))

	assert.Eventually(t, func() bool {
		_, _, _, r := rec.snapshot()
		return len(r) == 1 && r[0] == [3]uint16{2, 0x8000, 0x1000}
	}, time.Second, 5*time.Millisecond)
}

func TestStreamLossTerminatesOnce(t *testing.T) {
	f := newFakeServer(t, "")
	p, rec := start(t, f, testConfig(f.addr()), false)

	require.NoError(t, p.SendMultiController(0, 0x1, xbox360.InputState{}))
	require.NoError(t, p.SendMultiController(1, 0x3, xbox360.InputState{}))
	require.Eventually(t, func() bool { return f.hasStream("1") && f.hasStream("2") }, time.Second, 5*time.Millisecond)
	f.dropStream("1")
	f.dropStream("2")

	assert.Eventually(t, func() bool {
		_, _, term, _ := rec.snapshot()
		return len(term) == 1
	}, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	_, _, term, _ := rec.snapshot()
	assert.Equal(t, []int{peer.CodeStreamClosed}, term)
}

func TestStopDoesNotTerminate(t *testing.T) {
	f := newFakeServer(t, "")
	p, rec := start(t, f, testConfig(f.addr()), true)
	require.NoError(t, p.SendMultiController(0, 0x1, xbox360.InputState{}))

	require.NoError(t, p.Stop(false))
	require.NoError(t, p.Stop(false))
	_, _, term, _ := rec.snapshot()
	assert.Empty(t, term)
	assert.Equal(t, 2, f.deviceCount())
	assert.True(t, f.hasBus(7))

	err := p.SendMultiController(1, 0x3, xbox360.InputState{})
	assert.ErrorIs(t, err, session.ErrNetwork)
}

func TestStopQuitAppRemovesDevices(t *testing.T) {
	f := newFakeServer(t, "")
	p := peer.New(testConfig(f.addr()), nil, nil)
	require.NoError(t, p.Start(context.Background(), session.Config{VirtualMouse: true}, session.ServerInfo{}, session.AppInfo{}, &recorder{}))
	require.NoError(t, p.SendMultiController(0, 0x1, xbox360.InputState{}))

	require.NoError(t, p.Stop(true))
	assert.Equal(t, 0, f.deviceCount())
	assert.False(t, f.hasBus(7))
}

func TestKeepaliveStatus(t *testing.T) {
	type testCase struct {
		name     string
		slow     time.Duration
		poor     time.Duration
		expected session.ConnStatus
	}
	for _, tc := range []testCase{
		{name: "okay", poor: time.Second, expected: session.ConnStatusOkay},
		{name: "poor latency", slow: 10 * time.Millisecond, poor: time.Millisecond, expected: session.ConnStatusPoor},
	} {
		t.Run(tc.name, func(t *testing.T) {
			f := newFakeServer(t, "")
			cfg := testConfig(f.addr())
			cfg.PoorLatency = tc.poor
			_, rec := start(t, f, cfg, false)
			f.mu.Lock()
			f.slowPing = tc.slow
			f.mu.Unlock()

			assert.Eventually(t, func() bool {
				_, st, _, _ := rec.snapshot()
				return len(st) > 0 && st[len(st)-1] == tc.expected
			}, 2*time.Second, 10*time.Millisecond)
		})
	}
}

func TestKeepaliveReportsPoorWhenServerGone(t *testing.T) {
	f := newFakeServer(t, "")
	_, rec := start(t, f, testConfig(f.addr()), false)
	f.close()

	assert.Eventually(t, func() bool {
		_, st, _, _ := rec.snapshot()
		return len(st) > 0 && st[len(st)-1] == session.ConnStatusPoor
	}, 2*time.Second, 10*time.Millisecond)
}

func TestAuthenticatedPeer(t *testing.T) {
	f := newFakeServer(t, "secret")

	cfg := testConfig(f.addr())
	cfg.Password = "secret"
	p, _ := start(t, f, cfg, true)
	require.NoError(t, p.SendMouseMove(3, 3))
	fr := nextFrame(t, f)
	assert.Len(t, fr.data, mouse.InputStateSize)

	cfg.Password = "wrong"
	bad := peer.New(cfg, nil, nil)
	rec := &recorder{}
	err := bad.Start(context.Background(), session.Config{}, session.ServerInfo{}, session.AppInfo{}, rec)
	require.Error(t, err)
	events, _, _, _ := rec.snapshot()
	assert.Equal(t, []string{"starting 1", "failed 1 401"}, events)
}

func TestSendErrorsWrapNetwork(t *testing.T) {
	f := newFakeServer(t, "")
	p, _ := start(t, f, testConfig(f.addr()), false)
	require.NoError(t, p.SendMultiController(0, 0x1, xbox360.InputState{}))
	require.Eventually(t, func() bool { return f.hasStream("1") }, time.Second, 5*time.Millisecond)
	f.close()

	var err error
	assert.Eventually(t, func() bool {
		err = p.SendMultiController(0, 0x1, xbox360.InputState{Buttons: xbox360.ButtonB})
		return err != nil
	}, 2*time.Second, 10*time.Millisecond)
	assert.True(t, errors.Is(err, session.ErrNetwork))
}

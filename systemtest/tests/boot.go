package tests

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	internalhttp "github.com/EternisAI/silo-device/internal/api/http"
	"github.com/EternisAI/silo-device/internal/device"
	"github.com/EternisAI/silo-device/internal/discovery"
	"github.com/EternisAI/silo-device/internal/provisioning"
	"github.com/EternisAI/silo-device/internal/radio/sim"
	"github.com/EternisAI/silo-device/internal/wifi"
	"github.com/EternisAI/silo-device/systemtest/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// HomeNetwork is the network the simulated device is provisioned for.
var HomeNetwork = sim.Network{
	SSID:       "My Home",
	Channel:    6,
	Passphrase: "ab!cd-pass",
	RSSI:       -52,
	Address:    "192.168.1.50/24",
}

type countingRestarter struct {
	mu    sync.Mutex
	count int
}

func (r *countingRestarter) Restart() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.count++
	return nil
}

func (r *countingRestarter) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

type portalWatcher struct {
	ports chan int
}

func (w *portalWatcher) Advertise(_ context.Context, info discovery.PortalInfo) error {
	w.ports <- info.Port
	return nil
}

func (w *portalWatcher) Stop() {}

func newFlow(dev *storage.Device, r *sim.Radio, restarter provisioning.Restarter, watcher *portalWatcher) *device.Flow {
	cfg := provisioning.DefaultConfig()
	cfg.ListenHost = "127.0.0.1"
	cfg.Port = 0
	cfg.DeviceName = "silo-systemtest"
	cfg.SettleDelay = 0
	cfg.PollInterval = 10 * time.Millisecond
	cfg.RestartDelay = 10 * time.Millisecond

	server := provisioning.NewServer(cfg, internalhttp.Config{}, provisioning.Deps{
		Radio:      r,
		Store:      dev.Store,
		Restarter:  restarter,
		Advertiser: watcher,
	})

	return &device.Flow{
		Store:       dev.Store,
		Radio:       r,
		Provisioner: server,
		JoinOptions: wifi.Options{ConnectTimeout: time.Second, AddressTimeout: time.Second},
	}
}

// TestFirstBoot walks a fresh device through setup and the following boot.
func TestFirstBoot(t *testing.T, dev *storage.Device) {
	ctx := context.Background()
	r := sim.New(sim.Config{Networks: []sim.Network{HomeNetwork}})
	restarter := &countingRestarter{}
	watcher := &portalWatcher{ports: make(chan int, 1)}

	require.False(t, dev.Store.IsProvisioned())

	type result struct {
		conn *wifi.Connection
		err  error
	}
	done := make(chan result, 1)
	go func() {
		conn, err := newFlow(dev, r, restarter, watcher).Run(ctx)
		done <- result{conn, err}
	}()

	var port int
	select {
	case port = <-watcher.ports:
	case <-time.After(5 * time.Second):
		t.Fatal("portal did not come up")
	}

	body := "ssid=My+Home&password=ab%21cd-pass&device_id=dev-01"
	resp, err := http.Post(fmt.Sprintf("http://127.0.0.1:%d/provision", port),
		"application/x-www-form-urlencoded", strings.NewReader(body))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var res result
	select {
	case res = <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("provisioning did not finish")
	}
	assert.Nil(t, res.conn)
	assert.ErrorIs(t, res.err, device.ErrRestarting)
	assert.Equal(t, 1, restarter.Count())
	assert.False(t, r.Started())

	require.NoError(t, dev.Reboot(ctx))
	require.True(t, dev.Store.IsProvisioned())

	r = sim.New(sim.Config{Networks: []sim.Network{HomeNetwork}})
	conn, err := newFlow(dev, r, restarter, watcher).Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, "My Home", conn.SSID())
	assert.Equal(t, "192.168.1.50", conn.IPInfo().IP.String())
	assert.Equal(t, "192.168.1.1", conn.IPInfo().Gateway.String())
	cfg, pwLen := r.Client()
	assert.Equal(t, uint8(6), cfg.Channel)
	assert.Equal(t, len(HomeNetwork.Passphrase), pwLen)
	assert.Equal(t, 1, restarter.Count())

	require.NoError(t, conn.Close())
	assert.False(t, r.Started())
}

// TestWrongPassword checks that a bad stored passphrase fails the join and
// leaves the radio released.
func TestWrongPassword(t *testing.T, dev *storage.Device) {
	ctx := context.Background()
	r := sim.New(sim.Config{Networks: []sim.Network{HomeNetwork}})

	rec := recordFor("My Home", "not-the-pass", "dev-02")
	require.NoError(t, dev.Store.Store(rec))

	_, err := newFlow(dev, r, &countingRestarter{}, &portalWatcher{ports: make(chan int, 1)}).Run(ctx)
	assert.ErrorIs(t, err, wifi.ErrConnectFailed)
	assert.ErrorIs(t, err, sim.ErrAuthFailed)
	assert.False(t, r.Started())
}

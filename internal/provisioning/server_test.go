package provisioning

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	internalhttp "github.com/EternisAI/silo-device/internal/api/http"
	"github.com/EternisAI/silo-device/internal/credentials"
	"github.com/EternisAI/silo-device/internal/discovery"
	"github.com/EternisAI/silo-device/internal/nvs"
	"github.com/EternisAI/silo-device/internal/radio/sim"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type mockRestarter struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (m *mockRestarter) Restart() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return m.err
}

func (m *mockRestarter) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// portAdvertiser reports the bound portal port on a channel.
type portAdvertiser struct {
	ports   chan int
	mu      sync.Mutex
	info    discovery.PortalInfo
	stopped bool
}

func newPortAdvertiser() *portAdvertiser {
	return &portAdvertiser{ports: make(chan int, 1)}
}

func (a *portAdvertiser) Advertise(_ context.Context, info discovery.PortalInfo) error {
	a.mu.Lock()
	a.info = info
	a.mu.Unlock()
	a.ports <- info.Port
	return nil
}

func (a *portAdvertiser) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stopped = true
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.ListenHost = "127.0.0.1"
	cfg.Port = 0
	cfg.DeviceName = "silo-test"
	cfg.SettleDelay = 0
	cfg.PollInterval = 10 * time.Millisecond
	cfg.RestartDelay = 10 * time.Millisecond
	return cfg
}

func newTestStore(t *testing.T) *credentials.Store {
	t.Helper()
	store, err := credentials.NewStore(nvs.NewMemory().Namespace(credentials.Namespace))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func waitPort(t *testing.T, a *portAdvertiser) int {
	t.Helper()
	select {
	case port := <-a.ports:
		return port
	case <-time.After(5 * time.Second):
		t.Fatal("portal never came up")
		return 0
	}
}

func TestRunCompletesAndRestarts(t *testing.T) {
	r := sim.New(sim.Config{})
	store := newTestStore(t)
	restarter := &mockRestarter{}
	advertiser := newPortAdvertiser()

	srv := NewServer(testConfig(), internalhttp.Config{}, Deps{
		Radio:      r,
		Store:      store,
		Restarter:  restarter,
		Advertiser: advertiser,
	})

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Run(context.Background()) }()

	port := waitPort(t, advertiser)
	assert.True(t, r.Started())

	resp, err := http.Post(
		fmt.Sprintf("http://127.0.0.1:%d/provision", port),
		"application/x-www-form-urlencoded",
		strings.NewReader("ssid=My+Home&password=ab%21cd&device_id=dev-01"),
	)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after completion")
	}

	assert.Equal(t, 1, restarter.Calls())
	assert.True(t, srv.Signal().Completed())
	assert.False(t, r.Started())
	assert.True(t, advertiser.stopped)
	assert.Equal(t, "silo-test", advertiser.info.DeviceName)
	assert.True(t, store.IsProvisioned())

	rec, err := store.Load()
	require.NoError(t, err)
	defer rec.Wipe()
	assert.Equal(t, "My Home", string(rec.SSID))
	assert.Equal(t, "ab!cd", string(rec.Password))
}

func TestRunServesForm(t *testing.T) {
	advertiser := newPortAdvertiser()
	srv := NewServer(testConfig(), internalhttp.Config{}, Deps{
		Radio:      sim.New(sim.Config{}),
		Store:      newTestStore(t),
		Restarter:  &mockRestarter{},
		Advertiser: advertiser,
	})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Run(ctx) }()

	port := waitPort(t, advertiser)
	resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/", port))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	assert.ErrorIs(t, <-errCh, context.Canceled)
}

func TestRunCancelledTearsDown(t *testing.T) {
	r := sim.New(sim.Config{})
	restarter := &mockRestarter{}
	advertiser := newPortAdvertiser()
	srv := NewServer(testConfig(), internalhttp.Config{}, Deps{
		Radio:      r,
		Store:      newTestStore(t),
		Restarter:  restarter,
		Advertiser: advertiser,
	})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Run(ctx) }()

	port := waitPort(t, advertiser)
	cancel()

	assert.ErrorIs(t, <-errCh, context.Canceled)
	assert.False(t, r.Started())
	assert.Equal(t, 0, restarter.Calls())

	_, err := net.Dial("tcp", fmt.Sprintf("127.0.0.1:%d", port))
	assert.Error(t, err)
}

func TestRunRejectsShortPassphrase(t *testing.T) {
	r := sim.New(sim.Config{})
	cfg := testConfig()
	cfg.Passphrase = "short"

	srv := NewServer(cfg, internalhttp.Config{}, Deps{Radio: r, Store: newTestStore(t)})
	err := srv.Run(context.Background())

	assert.ErrorIs(t, err, ErrSetup)
	assert.False(t, r.Started())
}

func TestRunRejectsEmptyPassphrase(t *testing.T) {
	cfg := testConfig()
	cfg.Passphrase = ""

	srv := NewServer(cfg, internalhttp.Config{}, Deps{Radio: sim.New(sim.Config{}), Store: newTestStore(t)})
	assert.ErrorIs(t, srv.Run(context.Background()), ErrSetup)
}

func TestRunRejectsInvalidGateway(t *testing.T) {
	cfg := testConfig()
	cfg.Gateway = "not-an-address"

	srv := NewServer(cfg, internalhttp.Config{}, Deps{Radio: sim.New(sim.Config{}), Store: newTestStore(t)})
	assert.ErrorIs(t, srv.Run(context.Background()), ErrSetup)
}

func TestRunBindFailureStopsRadio(t *testing.T) {
	taken, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer taken.Close()

	cfg := testConfig()
	cfg.Port = uint(taken.Addr().(*net.TCPAddr).Port)
	r := sim.New(sim.Config{})

	srv := NewServer(cfg, internalhttp.Config{}, Deps{Radio: r, Store: newTestStore(t)})
	err = srv.Run(context.Background())

	assert.ErrorIs(t, err, ErrSetup)
	assert.False(t, r.Started())
}

func TestRunRestartFailure(t *testing.T) {
	restarter := &mockRestarter{err: errors.New("reboot refused")}
	advertiser := newPortAdvertiser()
	srv := NewServer(testConfig(), internalhttp.Config{}, Deps{
		Radio:      sim.New(sim.Config{}),
		Store:      newTestStore(t),
		Restarter:  restarter,
		Advertiser: advertiser,
	})

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Run(context.Background()) }()

	waitPort(t, advertiser)
	srv.Signal().Complete()

	err := <-errCh
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "reboot refused")
	assert.Equal(t, 1, restarter.Calls())
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{Passphrase: "setup1234"}.withDefaults()
	assert.Equal(t, DefaultSSID, cfg.SSID)
	assert.Equal(t, uint8(DefaultChannel), cfg.Channel)
	assert.Equal(t, DefaultMaxConnections, cfg.MaxConnections)
	assert.Equal(t, DefaultGateway, cfg.Gateway)
	assert.Equal(t, DefaultPollInterval, cfg.PollInterval)
}

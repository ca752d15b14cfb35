package device

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/EternisAI/silo-device/internal/credentials"
	"github.com/EternisAI/silo-device/internal/radio/sim"
	"github.com/EternisAI/silo-device/internal/wifi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	provisioned bool
	rec         *credentials.Record
	loadErr     error
	loads       int
}

func (s *fakeStore) IsProvisioned() bool { return s.provisioned }

func (s *fakeStore) Load() (*credentials.Record, error) {
	s.loads++
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	return s.rec, nil
}

type fakeProvisioner struct {
	err   error
	calls int
}

func (p *fakeProvisioner) Run(context.Context) error {
	p.calls++
	return p.err
}

var fastJoin = wifi.Options{ConnectTimeout: 50 * time.Millisecond, AddressTimeout: 50 * time.Millisecond}

func homeRadio() *sim.Radio {
	return sim.New(sim.Config{Networks: []sim.Network{
		{SSID: "My Home", Channel: 6, Passphrase: "ab!cd-pass", Address: "192.168.1.50/24"},
	}})
}

func TestFlowUnprovisionedRunsProvisioner(t *testing.T) {
	store := &fakeStore{}
	prov := &fakeProvisioner{}
	f := &Flow{Store: store, Radio: homeRadio(), Provisioner: prov, JoinOptions: fastJoin}

	conn, err := f.Run(context.Background())

	assert.Nil(t, conn)
	assert.ErrorIs(t, err, ErrRestarting)
	assert.Equal(t, 1, prov.calls)
	assert.Equal(t, 0, store.loads)
}

func TestFlowPropagatesProvisionerError(t *testing.T) {
	setupErr := errors.New("access point failed")
	f := &Flow{Store: &fakeStore{}, Radio: homeRadio(), Provisioner: &fakeProvisioner{err: setupErr}}

	_, err := f.Run(context.Background())
	assert.ErrorIs(t, err, setupErr)
	assert.NotErrorIs(t, err, ErrRestarting)
}

func TestFlowProvisionedJoinsNetwork(t *testing.T) {
	rec := credentials.NewRecord([]byte("My Home"), []byte("ab!cd-pass"), []byte("dev-01"), nil)
	password := rec.Password
	store := &fakeStore{provisioned: true, rec: rec}
	prov := &fakeProvisioner{}
	r := homeRadio()
	f := &Flow{Store: store, Radio: r, Provisioner: prov, JoinOptions: fastJoin}

	conn, err := f.Run(context.Background())
	require.NoError(t, err)
	defer conn.Close()

	assert.Equal(t, 0, prov.calls)
	assert.Equal(t, "My Home", conn.SSID())
	assert.Equal(t, "192.168.1.50", conn.IPInfo().IP.String())

	cfg, pwLen := r.Client()
	assert.Equal(t, uint8(6), cfg.Channel)
	assert.Equal(t, len("ab!cd-pass"), pwLen)

	assert.Nil(t, rec.SSID)
	assert.Equal(t, make([]byte, len(password)), password)
}

func TestFlowLoadError(t *testing.T) {
	loadErr := &credentials.StoreError{Op: "load", Key: credentials.KeyWiFiSSID, Err: errors.New("io")}
	f := &Flow{Store: &fakeStore{provisioned: true, loadErr: loadErr}, Radio: homeRadio(), Provisioner: &fakeProvisioner{}}

	_, err := f.Run(context.Background())

	var storeErr *credentials.StoreError
	assert.ErrorAs(t, err, &storeErr)
}

func TestFlowJoinFailureWipesRecord(t *testing.T) {
	rec := credentials.NewRecord([]byte("My Home"), []byte("wrong-pass"), []byte("dev-01"), nil)
	password := rec.Password
	r := homeRadio()
	f := &Flow{Store: &fakeStore{provisioned: true, rec: rec}, Radio: r, Provisioner: &fakeProvisioner{}, JoinOptions: fastJoin}

	conn, err := f.Run(context.Background())

	assert.Nil(t, conn)
	assert.ErrorIs(t, err, wifi.ErrConnectFailed)
	assert.ErrorIs(t, err, sim.ErrAuthFailed)
	assert.False(t, r.Started())
	assert.Equal(t, make([]byte, len(password)), password)
}

package nvs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryU8(t *testing.T) {
	ns := NewMemory().Namespace("credentials")

	_, found, err := ns.GetU8("provisioned")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, ns.SetU8("provisioned", 1))

	v, found, err := ns.GetU8("provisioned")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, uint8(1), v)
}

func TestMemoryString(t *testing.T) {
	ns := NewMemory().Namespace("credentials")

	value := []byte("Office")
	require.NoError(t, ns.SetString("wifi_ssid", value))
	value[0] = 'X'

	buf := make([]byte, 32)
	n, found, err := ns.GetString("wifi_ssid", buf)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "Office", string(buf[:n]))
}

func TestMemoryBufferTooSmall(t *testing.T) {
	ns := NewMemory().Namespace("credentials")
	require.NoError(t, ns.SetString("wifi_ssid", []byte("a-long-network-name")))

	_, _, err := ns.GetString("wifi_ssid", make([]byte, 4))
	assert.ErrorIs(t, err, ErrBufferTooSmall)
}

func TestMemoryKindMismatch(t *testing.T) {
	ns := NewMemory().Namespace("credentials")
	require.NoError(t, ns.SetU8("provisioned", 1))
	require.NoError(t, ns.SetString("wifi_ssid", []byte("x")))

	_, _, err := ns.GetString("provisioned", make([]byte, 4))
	assert.ErrorIs(t, err, ErrKindMismatch)

	_, _, err = ns.GetU8("wifi_ssid")
	assert.ErrorIs(t, err, ErrKindMismatch)
}

func TestMemoryNamespacesAreIsolated(t *testing.T) {
	mem := NewMemory()
	require.NoError(t, mem.Namespace("a").SetU8("provisioned", 1))

	_, found, err := mem.Namespace("b").GetU8("provisioned")
	require.NoError(t, err)
	assert.False(t, found)
}

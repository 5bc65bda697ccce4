package chardev_test

import (
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledir/internal/domain"
	"ledir/internal/infra/chardev"
)

func necCodes(t *testing.T) *domain.Codeset {
	t.Helper()
	cs, err := domain.ParseCodeset([]byte(`{
	  "format": {"preamble": [16, 8], "zero": [1, 1], "one": [1, 3], "postamble": [1], "timebase": 560, "frequency": 38000, "duty_cycle": 0.5},
	  "keys": {"on": "CD 32", "off": "01"}
	}`))
	require.NoError(t, err)
	return cs
}

func TestFrameSize(t *testing.T) {
	assert.Equal(t, 10*4+0x200, chardev.FrameSize)
}

func TestNewFrame(t *testing.T) {
	cs := necCodes(t)

	f, err := chardev.NewFrame(cs.Format, []byte{0xCD, 0x32})
	require.NoError(t, err)

	assert.EqualValues(t, 8960, f.LeadingPulseWidth)
	assert.EqualValues(t, 4480, f.LeadingGapWidth)
	assert.EqualValues(t, 560, f.OnePulseWidth)
	assert.EqualValues(t, 1680, f.OneGapWidth)
	assert.EqualValues(t, 560, f.ZeroPulseWidth)
	assert.EqualValues(t, 560, f.ZeroGapWidth)
	assert.EqualValues(t, 560, f.TrailingPulseWidth)
	assert.EqualValues(t, 38000, f.Frequency)
	assert.EqualValues(t, 50, f.DCN)
	assert.EqualValues(t, 100, f.DCM)

	// 0xCD = 1100 1101, sent least significant bit first
	assert.Equal(t, "1011001101001100", strings.TrimRight(string(f.Code[:]), "\x00"))
}

func TestNewFrame_MSBFirst(t *testing.T) {
	format := necCodes(t).Format
	format.MSBFirst = true

	f, err := chardev.NewFrame(format, []byte{0xCD})
	require.NoError(t, err)
	assert.Equal(t, "11001101", strings.TrimRight(string(f.Code[:]), "\x00"))
}

func TestNewFrame_TooLong(t *testing.T) {
	_, err := chardev.NewFrame(necCodes(t).Format, make([]byte, 64))
	assert.Error(t, err)
}

func TestTransmitter_Send(t *testing.T) {
	path := filepath.Join(t.TempDir(), "irblaster")
	require.NoError(t, os.WriteFile(path, nil, 0o600))

	tx, err := chardev.Open(path, necCodes(t))
	require.NoError(t, err)

	require.NoError(t, tx.Send(context.Background(), domain.CommandOn))
	require.NoError(t, tx.Send(context.Background(), domain.CommandOff))
	require.NoError(t, tx.Close())

	written, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Len(t, written, 2*chardev.FrameSize)

	assert.EqualValues(t, 8960, binary.LittleEndian.Uint32(written[0:4]))
	assert.Equal(t, byte('1'), written[40], "first bit of on (0xCD) lsb first")
	assert.Equal(t, byte('1'), written[chardev.FrameSize+40])
}

func TestTransmitter_SendUnknownKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "irblaster")
	require.NoError(t, os.WriteFile(path, nil, 0o600))

	tx, err := chardev.Open(path, necCodes(t))
	require.NoError(t, err)
	defer tx.Close()

	require.ErrorIs(t, tx.Send(context.Background(), "blue"), domain.ErrCodeNotFound)
}

func TestOpen_Missing(t *testing.T) {
	_, err := chardev.Open(filepath.Join(t.TempDir(), "nope"), necCodes(t))
	assert.Error(t, err)
}

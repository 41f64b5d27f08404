package flash

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStorage(t *testing.T) {
	testCases := []struct {
		name string
		open func(t *testing.T) Storage
	}{
		{
			name: "mem",
			open: func(t *testing.T) Storage { return NewMem(PageSize) },
		},
		{
			name: "file",
			open: func(t *testing.T) Storage {
				f, err := OpenFile(filepath.Join(t.TempDir(), "flash.bin"))
				require.NoError(t, err)
				return f
			},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s := tc.open(t)
			require.Equal(t, Erased, s.ReadWord(0))
			require.NoError(t, s.WriteWord(0, 25))
			require.NoError(t, s.WriteWord(4, 63))
			require.Equal(t, uint32(25), s.ReadWord(0))
			require.Equal(t, uint32(63), s.ReadWord(4))

			require.ErrorIs(t, s.WriteWord(0, 3), ErrNotErased)
			require.ErrorIs(t, s.WriteWord(2, 3), ErrAddress)
			require.ErrorIs(t, s.WriteWord(PageSize, 3), ErrAddress)

			require.NoError(t, s.EraseRegion(4))
			require.Equal(t, Erased, s.ReadWord(0))
			require.Equal(t, Erased, s.ReadWord(4))
			require.NoError(t, s.WriteWord(0, 3))
			require.Equal(t, uint32(3), s.ReadWord(0))
		})
	}
}

func TestFilePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flash.bin")
	f, err := OpenFile(path)
	require.NoError(t, err)
	require.NoError(t, f.WriteWord(8, 0x12345678))

	reopened, err := OpenFile(path)
	require.NoError(t, err)
	require.Equal(t, uint32(0x12345678), reopened.ReadWord(8))
	require.Equal(t, Erased, reopened.ReadWord(0))
}

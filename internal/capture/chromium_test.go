package capture

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptionsNormalize(t *testing.T) {
	t.Parallel()

	o := Options{URL: "http://127.0.0.1:8080/calendar", OutputPath: "/tmp/p.png"}
	require.NoError(t, o.normalize())
	assert.Equal(t, DefaultWidth, o.Width)
	assert.Equal(t, DefaultHeight, o.Height)
	assert.Equal(t, DefaultTimeout, o.Timeout)

	require.Error(t, (&Options{OutputPath: "x"}).normalize())
	require.Error(t, (&Options{URL: "x"}).normalize())
}

func TestCalendarPNG_ValidatesBeforeLaunching(t *testing.T) {
	t.Parallel()

	err := CalendarPNG(context.Background(), Options{})
	require.ErrorContains(t, err, "URL is required")
}

func TestWriteAtomic(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "out", "preview.png")
	require.NoError(t, writeAtomic(path, []byte("png")))
	require.NoError(t, writeAtomic(path, []byte("png2")))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "png2", string(got))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

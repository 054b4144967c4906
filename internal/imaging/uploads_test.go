package imaging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsLocal(t *testing.T) {
	tests := []struct {
		image string
		want  bool
	}{
		{"/images/uploads/abc.jpg", true},
		{"https://example.com/images/uploads/abc.jpg", false},
		{"/images/other/abc.jpg", false},
		{"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsLocal(tt.image), tt.image)
	}
}

func TestUploadsSaveAndRemove(t *testing.T) {
	u := Uploads{Dir: filepath.Join(t.TempDir(), "uploads")}

	p1, err := u.Save([]byte("one"), "png")
	require.NoError(t, err)
	p2, err := u.Save([]byte("one"), "png")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(p1, URLPrefix))
	assert.True(t, strings.HasSuffix(p1, ".png"))
	assert.NotEqual(t, p1, p2, "every save gets its own file")

	data, err := os.ReadFile(u.Path(p1))
	require.NoError(t, err)
	assert.Equal(t, "one", string(data))

	removed, err := u.Remove(p1)
	require.NoError(t, err)
	assert.True(t, removed)
	assert.NoFileExists(t, u.Path(p1))
	assert.FileExists(t, u.Path(p2))

	removed, err = u.Remove(p1)
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestUploadsRemoveIgnoresExternal(t *testing.T) {
	dir := t.TempDir()
	outside := filepath.Join(dir, "keep.jpg")
	require.NoError(t, os.WriteFile(outside, []byte("x"), 0o644))

	u := Uploads{Dir: filepath.Join(dir, "uploads")}

	removed, err := u.Remove("https://example.com/keep.jpg")
	require.NoError(t, err)
	assert.False(t, removed)

	removed, err = u.Remove(URLPrefix + "../keep.jpg")
	require.NoError(t, err)
	assert.False(t, removed)
	assert.FileExists(t, outside)
}

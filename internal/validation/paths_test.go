package validation

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateFilename(t *testing.T) {
	tests := []struct {
		name    string
		wantErr string
	}{
		{"march_01.xlsx", ""},
		{"sales..v2.xlsx", ""},
		{"daily report.csv", ""},
		{"", "cannot be empty"},
		{"   ", "cannot be empty"},
		{".", `cannot be "."`},
		{"..", `cannot be ".."`},
		{"../etc/passwd", "path separators"},
		{`..\windows\win.ini`, "path separators"},
		{"dir/file.xlsx", "path separators"},
		{"bad\x00.xlsx", "null byte"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFilename(tt.name)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestJoinInDirectory(t *testing.T) {
	dir := t.TempDir()

	path, err := JoinInDirectory(dir, "march_01.xlsx")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "march_01.xlsx"), path)

	path, err = JoinInDirectory("", "march_01.xlsx")
	require.NoError(t, err)
	assert.Equal(t, "march_01.xlsx", path)

	_, err = JoinInDirectory(dir, "../march_01.xlsx")
	assert.Error(t, err)
	_, err = JoinInDirectory(dir, "..")
	assert.Error(t, err)
}

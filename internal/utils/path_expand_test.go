package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandPath(t *testing.T) {
	homeDir, err := os.UserHomeDir()
	require.NoError(t, err)
	workDir, err := os.Getwd()
	require.NoError(t, err)

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"home relative", "~/speedtest.log", filepath.Join(homeDir, "speedtest.log"), false},
		{"home only", "~", homeDir, false},
		{"relative", "./logs/client.log", filepath.Join(workDir, "logs", "client.log"), false},
		{"absolute", "/var/log/speedtest.log", "/var/log/speedtest.log", false},
		{"empty", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExpandPath(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{
			name:    "empty data dir rejected",
			config:  Config{DataDir: ""},
			wantErr: true,
		},
		{
			name:   "minimal config",
			config: Config{DataDir: "/tmp/data"},
		},
		{
			name:   "explicit log settings",
			config: Config{DataDir: "/tmp/data", LogLevel: "debug", LogFormat: "json"},
		},
		{
			name:    "unknown log level rejected",
			config:  Config{DataDir: "/tmp/data", LogLevel: "verbose"},
			wantErr: true,
		},
		{
			name:    "unknown log format rejected",
			config:  Config{DataDir: "/tmp/data", LogFormat: "xml"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidConfig)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestConfigPackageName(t *testing.T) {
	assert.Equal(t, DefaultPackageName, Config{}.PackageName())
	assert.Equal(t, "kanji", Config{DefaultPackage: "kanji"}.PackageName())
}

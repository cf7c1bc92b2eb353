package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		ServerURL:      "https://sync.example.test",
		APIKey:         "key",
		ConsoleID:      "console",
		StateDirectory: "/tmp/state",
	}
}

func TestValidateFillsUploadSizeLimitDefault(t *testing.T) {
	c := validConfig()
	require.NoError(t, c.Validate())
	require.Equal(t, int64(DefaultUploadSizeLimitBytes), c.UploadSizeLimitBytes)
}

func TestValidatePreservesExplicitUploadSizeLimit(t *testing.T) {
	c := validConfig()
	c.UploadSizeLimitBytes = 1024
	require.NoError(t, c.Validate())
	require.Equal(t, int64(1024), c.UploadSizeLimitBytes)
}

func TestValidateRejectsMissingFields(t *testing.T) {
	cases := []func(*Config){
		func(c *Config) { c.ServerURL = "" },
		func(c *Config) { c.APIKey = "" },
		func(c *Config) { c.ConsoleID = "" },
		func(c *Config) { c.StateDirectory = "" },
	}
	for _, mutate := range cases {
		c := validConfig()
		mutate(&c)
		require.Error(t, c.Validate())
	}
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "development", c.Environment)
	assert.Equal(t, "file", c.Source.Type)
	assert.Equal(t, 3, c.Features.Rolling7Window)
	assert.Equal(t, []string{"adjusted_close"}, c.Prepare.DropColumns)
	assert.Equal(t, map[string]string{"source_type": "web", "source": "AlphaVantage"}, c.Prepare.Tags)
	assert.Equal(t, "stock-data", c.Prepare.AssetName)
	assert.Equal(t, "IBM-Model", c.Train.AssetName)
	assert.Equal(t, "close_shifted", c.Train.Target)
	assert.Equal(t, 100, c.Trainer.Params.Rounds)
	assert.Equal(t, 0.05, c.Trainer.Params.RegAlpha)
	assert.Equal(t, 30*time.Second, c.Source.Timeout)
	assert.Equal(t, 500*time.Millisecond, c.Source.Backoff)
	assert.Equal(t, "local", c.Registry.Backend)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
environment: production
source:
  type: http
  url: https://example.com/daily.csv
features:
  rolling_7_window: 7
trainer:
  timeout: 90s
  params:
    rounds: 10
registry:
  backend: redis
`)
	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "production", c.Environment)
	assert.Equal(t, "http", c.Source.Type)
	assert.Equal(t, 7, c.Features.Rolling7Window)
	assert.Equal(t, 90*time.Second, c.Trainer.Timeout)
	assert.Equal(t, 10, c.Trainer.Params.Rounds)
	assert.Equal(t, 0.1, c.Trainer.Params.LearningRate)
	assert.Equal(t, "redis", c.Registry.Backend)
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"source type":     "source:\n  type: ftp\n",
		"registry":        "registry:\n  backend: s3\n",
		"trainer backend": "trainer:\n  backend: gpu\n",
		"http no url":     "trainer:\n  backend: http\n",
		"window":          "features:\n  rolling_7_window: 0\n",
		"kafka brokers":   "kafka:\n  enabled: true\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadWithEnv(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("REGISTRY_BACKEND", "clickhouse")
	t.Setenv("TRAINER_SERVICE_URL", "http://trainer:8000")

	c, err := LoadWithEnv("")
	require.NoError(t, err)
	assert.True(t, c.Kafka.Enabled)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, c.Kafka.Brokers)
	assert.Equal(t, "clickhouse", c.Registry.Backend)
	assert.Equal(t, "http://trainer:8000", c.Trainer.ServiceURL)
}

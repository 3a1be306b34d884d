package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

const fullConfig = `
fusionsolar:
  domain: eu5.fusionsolar.huawei.com
  user_name: api-user
  system_code: api-secret
  request_timeout_seconds: 45
database:
  dsn: postgres://collector:pw@localhost:5432/plants
collector:
  plant_limit: 25
  cooldown_seconds: 90
  state_file_path: /var/lib/collector/state.json
  catalog_retry:
    max_attempts: 4
    base_delay_seconds: 2
  detail_retry:
    max_attempts: 6
    base_delay_seconds: 10
`

func TestLoadFullConfig(t *testing.T) {
	path := writeConfig(t, fullConfig)

	cfg, err := NewFileLoader(path).Load()
	require.NoError(t, err)

	assert.Equal(t, "eu5.fusionsolar.huawei.com", cfg.FusionSolar.Domain)
	assert.Equal(t, "api-user", cfg.FusionSolar.UserName)
	assert.Equal(t, "api-secret", cfg.FusionSolar.SystemCode)
	assert.Equal(t, 45*time.Second, cfg.FusionSolar.RequestTimeout())

	assert.Equal(t, "postgres://collector:pw@localhost:5432/plants", cfg.Database.DSN)

	assert.Equal(t, 25, cfg.Collector.PlantLimit)
	assert.Equal(t, 90*time.Second, cfg.Collector.Cooldown())
	assert.Equal(t, "/var/lib/collector/state.json", cfg.Collector.StateFilePath)
	assert.Equal(t, 4, cfg.Collector.CatalogRetry.MaxAttempts)
	assert.Equal(t, 2*time.Second, cfg.Collector.CatalogRetry.BaseDelay())
	assert.Equal(t, 6, cfg.Collector.DetailRetry.MaxAttempts)
	assert.Equal(t, 10*time.Second, cfg.Collector.DetailRetry.BaseDelay())
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
fusionsolar:
  domain: eu5.fusionsolar.huawei.com
  user_name: api-user
  system_code: api-secret
database:
  dsn: postgres://localhost/plants
`)

	cfg, err := NewFileLoader(path).Load()
	require.NoError(t, err)

	assert.Equal(t, 30*time.Second, cfg.FusionSolar.RequestTimeout())
	assert.Equal(t, 60*time.Second, cfg.Collector.Cooldown())
	assert.Equal(t, "state/collector_state.json", cfg.Collector.StateFilePath)
	assert.Zero(t, cfg.Collector.PlantLimit, "no cap unless configured")
	assert.Equal(t, 3, cfg.Collector.CatalogRetry.MaxAttempts)
	assert.Equal(t, 5*time.Second, cfg.Collector.CatalogRetry.BaseDelay())
	assert.Equal(t, 3, cfg.Collector.DetailRetry.MaxAttempts)
	assert.Equal(t, 5*time.Second, cfg.Collector.DetailRetry.BaseDelay())
}

func TestLoadEnvOverridesWinOverFile(t *testing.T) {
	t.Setenv("FUSIONSOLAR_DOMAIN", "intl.fusionsolar.huawei.com")
	t.Setenv("FUSIONSOLAR_USERNAME", "env-user")
	t.Setenv("FUSIONSOLAR_SYSTEM_CODE", "env-secret")
	t.Setenv("COLLECTOR_DB_DSN", "postgres://env-host/plants")
	t.Setenv("COLLECTOR_STATE_FILE", "/tmp/env-state.json")

	cfg, err := NewFileLoader(writeConfig(t, fullConfig)).Load()
	require.NoError(t, err)

	assert.Equal(t, "intl.fusionsolar.huawei.com", cfg.FusionSolar.Domain)
	assert.Equal(t, "env-user", cfg.FusionSolar.UserName)
	assert.Equal(t, "env-secret", cfg.FusionSolar.SystemCode)
	assert.Equal(t, "postgres://env-host/plants", cfg.Database.DSN)
	assert.Equal(t, "/tmp/env-state.json", cfg.Collector.StateFilePath)
}

func TestLoadEnvSuppliesMissingSecrets(t *testing.T) {
	t.Setenv("FUSIONSOLAR_USERNAME", "env-user")
	t.Setenv("FUSIONSOLAR_SYSTEM_CODE", "env-secret")

	path := writeConfig(t, `
fusionsolar:
  domain: eu5.fusionsolar.huawei.com
database:
  dsn: postgres://localhost/plants
`)

	cfg, err := NewFileLoader(path).Load()
	require.NoError(t, err)
	assert.Equal(t, "env-user", cfg.FusionSolar.UserName)
}

func TestLoadRejectsIncompleteConfig(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name: "missing domain",
			yaml: `
fusionsolar:
  user_name: u
  system_code: s
database:
  dsn: postgres://localhost/plants
`,
			wantErr: "domain",
		},
		{
			name: "missing credentials",
			yaml: `
fusionsolar:
  domain: eu5.fusionsolar.huawei.com
database:
  dsn: postgres://localhost/plants
`,
			wantErr: "user name",
		},
		{
			name: "missing dsn",
			yaml: `
fusionsolar:
  domain: eu5.fusionsolar.huawei.com
  user_name: u
  system_code: s
`,
			wantErr: "dsn",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewFileLoader(writeConfig(t, tt.yaml)).Load()
			require.Error(t, err)
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestLoadMissingFileIsAnError(t *testing.T) {
	_, err := NewFileLoader(filepath.Join(t.TempDir(), "absent.yaml")).Load()
	require.Error(t, err)
}

func TestLoadMalformedYAMLIsAnError(t *testing.T) {
	_, err := NewFileLoader(writeConfig(t, "fusionsolar: [not a map")).Load()
	require.Error(t, err)
}

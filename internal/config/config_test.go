// internal/config/config_test.go
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var validConfigJSON = `{
    "ui": {"redraw_delay": 1000, "auth_cooldown": 3000},
    "identity": {"provider": "firebase"},
    "firebase": {
        "api_key": "test-api-key",
        "database_url": "https://demo-default-rtdb.firebaseio.com"
    },
    "portfolio": {"file": "var/ledger.json"},
    "mirror": {"max_tries": 5}
}`

var invalidConfigJSON = `{
    "identity": {"provider": "ldap"}
}`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, 2*time.Second, cfg.UI.RedrawDelay())
	assert.Equal(t, 2*time.Second, cfg.UI.AuthCooldown())
	assert.Equal(t, 1500*time.Millisecond, cfg.UI.InputErrorDelay())
	assert.Equal(t, 3, cfg.UI.ProgressSteps)
	assert.Equal(t, 200*time.Millisecond, cfg.UI.ProgressDelay())
	assert.Equal(t, 10*time.Second, cfg.Market.Timeout())
	assert.Equal(t, DefaultMarketURL, cfg.Market.URL)
	assert.Equal(t, ProviderLocal, cfg.Identity.Provider)
	assert.Equal(t, DefaultLedgerFile, cfg.Portfolio.File)
	assert.Equal(t, 3, cfg.Mirror.MaxTries)
	assert.Equal(t, 5*time.Second, cfg.Mirror.MaxElapsed())
}

func TestLoadConfig(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr bool
		check   func(*testing.T, *Config)
	}{
		{
			name:    "Valid config",
			content: validConfigJSON,
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, time.Second, cfg.UI.RedrawDelay())
				assert.Equal(t, 3*time.Second, cfg.UI.AuthCooldown())
				assert.Equal(t, ProviderFirebase, cfg.Identity.Provider)
				assert.Equal(t, "test-api-key", cfg.Firebase.APIKey)
				assert.Equal(t, "var/ledger.json", cfg.Portfolio.File)
				assert.Equal(t, 5, cfg.Mirror.MaxTries)
				assert.Equal(t, DefaultAuthURL, cfg.Firebase.AuthURL)
			},
		},
		{
			name:    "Unknown identity provider",
			content: invalidConfigJSON,
			wantErr: true,
		},
		{
			name:    "Firebase without api key",
			content: `{"identity": {"provider": "firebase"}}`,
			wantErr: true,
		},
		{
			name:    "Negative delay",
			content: `{"ui": {"input_error_delay": -1}}`,
			wantErr: true,
		},
		{
			name:    "Non-http database url",
			content: `{"firebase": {"database_url": "ftp://example.com"}}`,
			wantErr: true,
		},
		{
			name:    "Zero mirror tries",
			content: `{"mirror": {"max_tries": 0}}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := LoadConfig(writeConfig(t, tt.content))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.check(t, cfg)
		})
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.json"))
	assert.Error(t, err)
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("CRYPTOFOLIO_UI_REDRAW_DELAY", "250")
	t.Setenv("CRYPTOFOLIO_IDENTITY_PROVIDER", "firebase")
	t.Setenv("FIREBASE_API_KEY", "from-legacy-env")
	t.Setenv("COINGECKO_API_URL", "http://localhost:9999/simple/price")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, 250*time.Millisecond, cfg.UI.RedrawDelay())
	assert.Equal(t, ProviderFirebase, cfg.Identity.Provider)
	assert.Equal(t, "from-legacy-env", cfg.Firebase.APIKey)
	assert.Equal(t, "http://localhost:9999/simple/price", cfg.Market.URL)
}

func TestLoadEnv(t *testing.T) {
	dir := t.TempDir()
	assert.NoError(t, LoadEnv(filepath.Join(dir, "missing.env")))

	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("CRYPTOFOLIO_TEST_DOTENV=loaded\n"), 0o600))
	t.Setenv("CRYPTOFOLIO_TEST_DOTENV", "")
	require.NoError(t, os.Unsetenv("CRYPTOFOLIO_TEST_DOTENV"))

	require.NoError(t, LoadEnv(envFile))
	assert.Equal(t, "loaded", os.Getenv("CRYPTOFOLIO_TEST_DOTENV"))
}

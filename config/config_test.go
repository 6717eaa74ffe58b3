package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseServicesValid(t *testing.T) {
	services, err := ParseServices("http")
	require.NoError(t, err)
	require.True(t, services[ServiceModeHTTP])
	require.False(t, services[ServiceModeAlertScanner])

	services, err = ParseServices("http, alert-scanner")
	require.NoError(t, err)
	require.True(t, services[ServiceModeHTTP])
	require.True(t, services[ServiceModeAlertScanner])
}

func TestParseServicesInvalidName(t *testing.T) {
	_, err := ParseServices("http,scanner")
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid service name")
}

func TestParseServicesEmpty(t *testing.T) {
	_, err := ParseServices("")
	require.Error(t, err)

	_, err = ParseServices(" , ,")
	require.Error(t, err)
}

func TestIdentityModeUnmarshalText(t *testing.T) {
	var m IdentityMode
	require.NoError(t, m.UnmarshalText([]byte("hosted")))
	require.Equal(t, IdentityModeHosted, m)

	require.NoError(t, m.UnmarshalText([]byte("DEV")))
	require.Equal(t, IdentityModeDev, m)

	require.Error(t, m.UnmarshalText([]byte("ldap")))
}

func TestHTTPConfigSanitizeClamps(t *testing.T) {
	cfg := HTTPConfig{LoginRatePerMinute: 0, LoginBurst: -3}
	cfg.Sanitize()
	require.Equal(t, 1, cfg.LoginRatePerMinute)
	require.Equal(t, 1, cfg.LoginBurst)

	cfg = HTTPConfig{LoginRatePerMinute: 30, LoginBurst: 10}
	cfg.Sanitize()
	require.Equal(t, 30, cfg.LoginRatePerMinute)
	require.Equal(t, 10, cfg.LoginBurst)
}

func TestReconcilerConfigSanitize(t *testing.T) {
	cfg := ReconcilerConfig{ReadBackDelay: -time.Second}
	cfg.Sanitize()
	require.Equal(t, 500*time.Millisecond, cfg.ReadBackDelay)

	cfg = ReconcilerConfig{ReadBackDelay: 2 * time.Second}
	cfg.Sanitize()
	require.Equal(t, 2*time.Second, cfg.ReadBackDelay)
}

func TestStockAlertsConfigSanitize(t *testing.T) {
	cfg := StockAlertsConfig{ScanInterval: time.Millisecond}
	cfg.Sanitize()
	require.Equal(t, time.Second, cfg.ScanInterval)
}

func TestServiceModeHelpers(t *testing.T) {
	cfg := AppConfig{Services: "http,alert-scanner"}
	require.True(t, cfg.IsHTTPServerEnabled())
	require.True(t, cfg.IsAlertScannerEnabled())

	cfg = AppConfig{Services: "alert-scanner"}
	require.False(t, cfg.IsHTTPServerEnabled())
	require.True(t, cfg.IsAlertScannerEnabled())

	cfg = AppConfig{Services: "bogus"}
	require.False(t, cfg.IsHTTPServerEnabled())
	require.False(t, cfg.IsAlertScannerEnabled())
}

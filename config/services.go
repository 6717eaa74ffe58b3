package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ServiceMode represents the available service modes.
type ServiceMode string

const (
	// ServiceModeHTTP runs the HTTP server.
	ServiceModeHTTP ServiceMode = "http"
	// ServiceModeAlertScanner runs the periodic stock alert scanner.
	ServiceModeAlertScanner ServiceMode = "alert-scanner"
)

// ValidServiceModes returns all valid service mode names.
func ValidServiceModes() []ServiceMode {
	return []ServiceMode{ServiceModeHTTP, ServiceModeAlertScanner}
}

// ParseServices parses a comma-delimited string of service names and returns the enabled services.
// It validates that all service names are valid and returns an error if any are invalid.
func ParseServices(servicesStr string) (map[ServiceMode]bool, error) {
	services := make(map[ServiceMode]bool)

	if servicesStr == "" {
		return services, errors.New("at least one service must be specified")
	}

	parts := strings.Split(servicesStr, ",")
	for _, part := range parts {
		serviceName := strings.TrimSpace(part)
		if serviceName == "" {
			continue
		}

		mode := ServiceMode(serviceName)
		switch mode {
		case ServiceModeHTTP, ServiceModeAlertScanner:
			services[mode] = true
		default:
			return nil, fmt.Errorf(
				"invalid service name: %q (valid options: http, alert-scanner)",
				serviceName,
			)
		}
	}

	if len(services) == 0 {
		return nil, errors.New("at least one valid service must be specified")
	}

	return services, nil
}

// ReconcilerConfig contains profile reconciliation configuration.
type ReconcilerConfig struct {
	// ReadBackDelay is how long after an optimistic profile insert the
	// authoritative re-read runs.
	ReadBackDelay time.Duration `env:"RECONCILER_READ_BACK_DELAY" envDefault:"500ms"`
}

// Sanitize applies guardrails to reconciler configuration values.
func (r *ReconcilerConfig) Sanitize() {
	if r.ReadBackDelay <= 0 {
		r.ReadBackDelay = 500 * time.Millisecond
	}
}

// StockAlertsConfig contains stock alert scanner configuration.
type StockAlertsConfig struct {
	// ScanInterval is the tick interval for the background scanner.
	ScanInterval time.Duration `env:"STOCK_ALERTS_SCAN_INTERVAL" envDefault:"5m"`
}

// Sanitize applies guardrails to scanner configuration values.
func (s *StockAlertsConfig) Sanitize() {
	if s.ScanInterval < time.Second {
		s.ScanInterval = time.Second
	}
}

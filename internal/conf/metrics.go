package conf

import (
	"fmt"
	"strconv"
)

// MetricsConfig controls the Prometheus endpoint. Metrics are no-ops when
// it is disabled.
type MetricsConfig struct {
	Enabled bool

	PrometheusListenHost string `default:"0.0.0.0" envconfig:"PROMETHEUS_HOST"`
	PrometheusListenPort string `default:"9100" envconfig:"PROMETHEUS_PORT"`
}

func (mc MetricsConfig) Validate() error {
	if !mc.Enabled {
		return nil
	}
	if port, err := strconv.Atoi(mc.PrometheusListenPort); err != nil || port <= 0 || port > 65535 {
		return fmt.Errorf("conf: SIWX_METRICS_PROMETHEUS_PORT %q is not a valid port", mc.PrometheusListenPort)
	}
	return nil
}

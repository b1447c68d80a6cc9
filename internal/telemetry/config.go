package telemetry

import "os"

type Config struct {
	ServiceName string `yaml:"serviceName,omitempty"`

	ExportMetrics bool   `yaml:"exportMetrics,omitempty"`
	GrpcEndpoint  string `yaml:"grpcEndpoint,omitempty"`

	// PrometheusPort enables the /metrics endpoint when non-zero.
	PrometheusPort int `yaml:"prometheusPort,omitempty"`
}

func NewDefaultConfig() *Config {
	return &Config{
		ServiceName: serviceName(""),
	}
}

// https://opentelemetry.io/docs/languages/sdk-configuration/general/#otel_service_name
func serviceName(configured string) string {
	if configured != "" {
		return configured
	}
	if name := os.Getenv("OTEL_SERVICE_NAME"); name != "" {
		return name
	}
	return os.Args[0]
}

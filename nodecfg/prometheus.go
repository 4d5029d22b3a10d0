package nodecfg

// DefaultPrometheusListen is the default address of the metrics exporter.
const DefaultPrometheusListen = "127.0.0.1:9187"

// Prometheus is the set of configuration data that specifies the listening
// address of the Prometheus exporter.
//
//nolint:ll
type Prometheus struct {
	// Enable indicates whether to export metrics at all.
	Enable bool `long:"enable" description:"Enable Prometheus exporting of p2pd metrics"`

	// Listen is the listening address used for the exporter.
	Listen string `long:"listen" description:"The interface the Prometheus exporter should listen on"`
}

// DefaultPrometheus is the default configuration for the Prometheus metrics
// exporter.
func DefaultPrometheus() Prometheus {
	return Prometheus{
		Listen: DefaultPrometheusListen,
	}
}

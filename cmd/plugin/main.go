package main

import (
	"log"
	"net/http"
	"os"

	"github.com/openbao/openbao/sdk/v2/plugin"

	"github.com/Cainuriel/message-crypto/backend"
	"github.com/Cainuriel/message-crypto/internal/metrics"
)

// metricsAddrEnv optionally exposes /metrics from the plugin process.
const metricsAddrEnv = "MSGCRYPT_PLUGIN_METRICS_ADDR"

func main() {
	if addr := os.Getenv(metricsAddrEnv); addr != "" {
		go serveMetrics(addr)
	}

	if err := plugin.Serve(&plugin.ServeOpts{
		BackendFactoryFunc: backend.Factory,
	}); err != nil {
		log.Printf("plugin shutting down: %v", err)
		os.Exit(1)
	}
}

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Printf("metrics listener stopped: %v", err)
	}
}

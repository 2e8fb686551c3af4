package cli

import (
	"net/http"
	_ "net/http/pprof"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func setup(pprofListenAddr, metricsListenAddr string) {
	setupProfiler(pprofListenAddr)
	setupMetrics(metricsListenAddr)
}

func setupProfiler(listenAddr string) {
	if listenAddr == "" {
		return
	}
	go func() {
		err := http.ListenAndServe(listenAddr, nil)
		if err != nil {
			zlog.Debug("unable to start profiling server", zap.Error(err), zap.String("listen_addr", listenAddr))
		}
	}()
}

func setupMetrics(listenAddr string) {
	if listenAddr == "" {
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	go func() {
		zlog.Info("serving metrics", zap.String("listen_addr", listenAddr))
		err := http.ListenAndServe(listenAddr, mux)
		if err != nil {
			zlog.Warn("unable to start metrics server", zap.Error(err), zap.String("listen_addr", listenAddr))
		}
	}()
}

package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"sync"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/refitfs/gofsw/fsw"
	"github.com/refitfs/gofsw/fsw/ext2"
	"github.com/refitfs/gofsw/fsw/hostfile"
	"github.com/refitfs/gofsw/fsw/reiserfs"
	"github.com/refitfs/gofsw/internal/cfg"
	"github.com/refitfs/gofsw/internal/logger"
	"github.com/refitfs/gofsw/internal/metrics"
)

var metricsServerOnce sync.Once

// maybeServeMetrics starts a background Prometheus HTTP endpoint the first
// time it's called with a non-empty addr. Subsequent calls (across
// subcommands run in the same process) are no-ops.
func maybeServeMetrics(addr string) {
	if addr == "" {
		return
	}
	metricsServerOnce.Do(func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		go func() {
			if err := http.ListenAndServe(addr, mux); err != nil {
				logger.Warnf("metrics server on %s stopped: %v", addr, err)
			}
		}()
		logger.Infof("serving metrics on %s/metrics", addr)
	})
}

// driverTables maps each driver name to its table; autoProbeOrder below
// gives the order DriverAuto probes them in.
var driverTables = map[cfg.DriverName]fsw.Driver{
	cfg.DriverExt2:     ext2.Table,
	cfg.DriverReiserFS: reiserfs.Table,
}

var autoProbeOrder = []cfg.DriverName{cfg.DriverExt2, cfg.DriverReiserFS}

// openVolume opens Config.Image.Path and mounts it with the configured
// driver, probing ext2 then ReiserFS when DriverAuto is selected. The
// caller must call the returned closer (which unmounts the volume and
// closes the underlying file) once done.
func openVolume(ctx context.Context) (*fsw.Volume, func(), error) {
	maybeServeMetrics(metricsAddr)

	path := string(Config.Image.Path)
	if path == "" {
		return nil, nil, fmt.Errorf("--image is required")
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open image %s: %w", path, err)
	}
	closeFile := func() { _ = f.Close() }

	host := hostfile.New(f, Config.Image.Offset)

	closer := func(vol *fsw.Volume) func() {
		return func() {
			metrics.DnodeCacheSize.Set(0)
			vol.Unmount()
			closeFile()
		}
	}

	driver := Config.EffectiveDriver()
	if driver != cfg.DriverAuto {
		table, ok := driverTables[driver]
		if !ok {
			closeFile()
			return nil, nil, fmt.Errorf("unknown driver %q", driver)
		}
		vol, err := fsw.Mount(ctx, host, table)
		if err != nil {
			closeFile()
			return nil, nil, err
		}
		metrics.DnodeCacheSize.Set(float64(vol.DnodeCacheLen()))
		return vol, closer(vol), nil
	}

	var lastErr error
	for _, name := range autoProbeOrder {
		vol, err := fsw.Mount(ctx, host, driverTables[name])
		if err == nil {
			logger.Infof("auto-probe: mounted %s as %s", path, name)
			metrics.DnodeCacheSize.Set(float64(vol.DnodeCacheLen()))
			return vol, closer(vol), nil
		}
		logger.Debugf("auto-probe: %s rejected %s: %v", name, path, err)
		lastErr = err
	}
	closeFile()
	return nil, nil, fmt.Errorf("auto-probe: no driver recognized %s: %w", path, lastErr)
}

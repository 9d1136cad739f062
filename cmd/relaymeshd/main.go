// Command relaymeshd runs a standalone node: a synchronous archive, a ring
// buffer for local fan-out, and an RUDP transport, wired
// together per the loaded configuration.
package main

import (
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/relaymesh/core/archive"
	"github.com/relaymesh/core/config"
	"github.com/relaymesh/core/logging"
	"github.com/relaymesh/core/metrics"
	"github.com/relaymesh/core/ring"
	"github.com/relaymesh/core/rudp"
)

var (
	configPath string
	listenAddr string
	archivePath string
	metricsAddr string
)

var rootCmd = &cobra.Command{
	Use:   "relaymeshd",
	Short: "relaymeshd runs a ring/archive/RUDP node",
	RunE:  run,
}

func init() {
	rootCmd.Flags().StringVar(&configPath, "config", "relaymesh.yaml", "path to the node's configuration file")
	rootCmd.Flags().StringVar(&listenAddr, "listen", "0.0.0.0:7777", "UDP address to bind the RUDP transport to")
	rootCmd.Flags().StringVar(&archivePath, "archive", "relaymesh", "base path for the archive's .log/.idx files")
	rootCmd.Flags().StringVar(&metricsAddr, "metrics-listen", "127.0.0.1:9090", "HTTP address to serve Prometheus metrics on")
}

func run(cmd *cobra.Command, args []string) error {
	loader, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("relaymeshd: load config: %w", err)
	}
	cfg := loader.Current()

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("relaymeshd: build logger: %w", err)
	}
	defer logger.Sync()

	registry := prometheus.NewRegistry()
	ringMetrics := metrics.NewRingMetrics(registry, "ingress")
	archiveMetrics := metrics.NewArchiveMetrics(registry, archivePath)
	rudpMetrics := metrics.NewRUDPMetrics(registry, "node")

	ringCfg, err := ring.NewConfig(cfg.Ring.Capacity)
	if err != nil {
		return fmt.Errorf("relaymeshd: ring config: %w", err)
	}
	msgRing, err := ring.NewMessageRingBuffer(ringCfg)
	if err != nil {
		return fmt.Errorf("relaymeshd: build ring: %w", err)
	}

	logCapacity := cfg.Archive.LogCapacity
	if logCapacity == 0 {
		logCapacity = 256 * 1024 * 1024
	}
	arc, err := archive.Create(archivePath, logCapacity, archive.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("relaymeshd: create archive: %w", err)
	}
	defer arc.Close()

	udpAddr, err := net.ResolveUDPAddr("udp4", listenAddr)
	if err != nil {
		return fmt.Errorf("relaymeshd: resolve %q: %w", listenAddr, err)
	}
	transport, err := rudp.NewTransport(udpAddr,
		rudp.WithBatchSize(cfg.RUDP.Batch),
		rudp.WithTransportLogger(logger),
	)
	if err != nil {
		return fmt.Errorf("relaymeshd: bind transport: %w", err)
	}
	defer transport.Close()

	logger.Info("relaymeshd started",
		zap.String("listen", transport.LocalAddr().String()),
		zap.String("archive", archivePath),
		zap.Uint64("ring_capacity", cfg.Ring.Capacity),
	)

	go serveMetrics(registry, metricsAddr, logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	inbound := make(chan struct{})
	go func() {
		for {
			n, err := transport.ReceiveBatchWith(cfg.RUDP.Batch, func(sessionID uint32, seq uint64, payload []byte) {
				rudpMetrics.FramesSent.Inc() // counts frames this node has processed, sent or received
				if start, slots, ok := msgRing.TryClaimSlots(1); ok {
					_ = slots[0].SetData(payload)
					msgRing.PublishBatch(start, 1)
					ringMetrics.Published.Inc()
				} else {
					ringMetrics.ClaimFailures.Inc()
				}
				if _, appendErr := arc.AppendNoIndex(payload); appendErr != nil {
					archiveMetrics.Full.Inc()
					logger.Warn("archive append failed", zap.Error(appendErr))
				} else {
					archiveMetrics.Appends.Inc()
				}
			})
			if err != nil {
				logger.Warn("receive batch failed", zap.Error(err))
			}
			if n == 0 {
				runtime.Gosched()
			}
			select {
			case <-ctx.Done():
				close(inbound)
				return
			default:
			}
		}
	}()

	<-ctx.Done()
	logger.Info("relaymeshd shutting down")
	<-inbound
	return nil
}

func serveMetrics(registry *prometheus.Registry, addr string, logger *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Warn("metrics server stopped", zap.Error(err))
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

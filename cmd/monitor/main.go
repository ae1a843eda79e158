package main

import (
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/benmeehan/drive-monitor/internal/config"
	"github.com/benmeehan/drive-monitor/internal/monitor"
	"github.com/benmeehan/drive-monitor/internal/observability"
	"github.com/benmeehan/drive-monitor/pkg/file"
	"github.com/benmeehan/drive-monitor/pkg/mqtt"
	"github.com/benmeehan/drive-monitor/pkg/sink"
	"github.com/benmeehan/drive-monitor/pkg/source"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the configuration file")
	simulate := flag.Bool("simulate", false, "use simulated metric readings instead of host data")
	metricsAddr := flag.String("metrics-addr", "", "listen address for Prometheus metrics (empty to disable)")
	flag.Parse()

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	fileClient := file.NewFileService()

	cfg, err := config.Load(*configPath, fileClient)
	if err != nil {
		logger.Warn().Err(err).Str("path", *configPath).Msg("Failed to load configuration, using defaults")
		cfg = config.Default()
	}

	// Build the metric source
	var metricSource source.MetricSource
	if *simulate {
		metricSource = source.NewSimulatedSource()
	} else {
		metricSource = source.NewSystemSource(logger)
	}

	// Build the notification sink when enabled
	var notifier sink.NotificationSink
	if cfg.Notification.Enabled {
		clientID := cfg.Notification.ClientID + "-" + uuid.New().String()
		mqttClient := mqtt.NewMqttService(fileClient)
		if err := mqttClient.Initialize(cfg.Notification.Broker, clientID, cfg.Notification.CACertificate); err != nil {
			logger.Fatal().Err(err).Msg("Failed to initialize MQTT connection")
		}
		defer mqttClient.Disconnect(250)
		notifier = sink.NewMQTTNotifier(cfg.Notification.Topic, cfg.Notification.QOS, mqttClient, logger)
	}

	var logSink sink.LogSink
	if cfg.Log.Enabled {
		logSink = sink.NewCSVLogSink(cfg.Log.FilePath, fileClient)
	}

	var obs *observability.Metrics
	if *metricsAddr != "" {
		obs = observability.NewMetrics(prometheus.DefaultRegisterer)
		go func() {
			http.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(*metricsAddr, nil); err != nil {
				logger.Error().Err(err).Msg("Metrics endpoint stopped")
			}
		}()
	}

	mon := monitor.NewMonitor(cfg, metricSource, notifier, logSink, fileClient, obs, logger)

	// Every non-flag argument is a device to monitor from the start.
	for _, deviceID := range flag.Args() {
		if err := mon.Start(deviceID); err != nil {
			logger.Error().Err(err).Str("device_id", deviceID).Msg("Failed to start monitoring device")
		}
	}

	// Handle graceful shutdown
	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)
	<-stopCh

	logger.Info().Msg("Shutting down gracefully...")
	if err := mon.Shutdown(); err != nil {
		logger.Warn().Err(err).Msg("Shutdown finished with errors")
	}
}

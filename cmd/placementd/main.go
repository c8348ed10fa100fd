package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime/pprof"
	"strings"
	"syscall"

	"github.com/couchbase/stellar-placement/clustering"
	"github.com/couchbase/stellar-placement/flatselect"
	"github.com/couchbase/stellar-placement/internal/buildversion"
	"github.com/couchbase/stellar-placement/leaderelect"
	"github.com/couchbase/stellar-placement/nodeset"
	"github.com/couchbase/stellar-placement/pkg/app_config"
	"github.com/couchbase/stellar-placement/pkg/metrics"
	"github.com/couchbase/stellar-placement/pkg/webapi"
	"github.com/couchbase/stellar-placement/placement"
	"github.com/couchbase/stellar-placement/ratelimitlog"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	etcd "go.etcd.io/etcd/client/v3"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var buildVersion string = buildversion.GetVersion("github.com/couchbase/stellar-placement")

var rootCmd = &cobra.Command{
	Version: buildVersion,

	Use:   "placementd",
	Short: "Computes cross-domain storage-set placements for a distributed log store",

	Run: func(cmd *cobra.Command, args []string) {
		startPlacementd()
	},
}

var cfgFile string

func init() {
	rootCmd.Flags().StringVar(&cfgFile, "config", "", "specifies a config file to load")

	configFlags := pflag.NewFlagSet("", pflag.ContinueOnError)
	configFlags.String("log-level", "info", "the log level to run at")
	configFlags.String("web-bind-address", "0.0.0.0", "the local address to bind the metrics/health server to")
	configFlags.Int("web-port", 9092, "the web metrics/health port")
	configFlags.String("cluster-config-path", "", "path to a static YAML cluster config (mutually exclusive with etcd-endpoints)")
	configFlags.String("etcd-endpoints", "", "comma-separated etcd endpoints holding the cluster config (mutually exclusive with cluster-config-path)")
	configFlags.String("etcd-cluster-key", "/placementd/cluster-config", "etcd key holding the JSON-encoded cluster config")
	configFlags.String("etcd-election-prefix", "/placementd/election", "etcd key prefix used for leader election")
	configFlags.String("member-id", "", "this replica's member id for leader election (defaults to a random uuid)")
	configFlags.Bool("disable-leader-election", false, "always consider this replica the leader; only safe with a single replica")
	configFlags.String("otlp-endpoint", "", "opentelemetry endpoint to send metrics to")
	configFlags.Bool("disable-otlp-metrics", false, "disable sending metrics to otlp")
	configFlags.String("cpuprofile", "", "write cpu profile to a file")
	rootCmd.Flags().AddFlagSet(configFlags)

	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.SetEnvPrefix("placementd")
	viper.AutomaticEnv()

	_ = viper.BindPFlags(configFlags)
}

type config struct {
	logLevelStr           string
	webBindAddress        string
	webPort               int
	clusterConfigPath     string
	etcdEndpoints         string
	etcdClusterKey        string
	etcdElectionPrefix    string
	memberID              string
	disableLeaderElection bool
	otlpEndpoint          string
	disableOtlpMetrics    bool
	cpuprofile            string
}

func readConfig(logger *zap.Logger) *config {
	cfg := &config{
		logLevelStr:           viper.GetString("log-level"),
		webBindAddress:        viper.GetString("web-bind-address"),
		webPort:               viper.GetInt("web-port"),
		clusterConfigPath:     viper.GetString("cluster-config-path"),
		etcdEndpoints:         viper.GetString("etcd-endpoints"),
		etcdClusterKey:        viper.GetString("etcd-cluster-key"),
		etcdElectionPrefix:    viper.GetString("etcd-election-prefix"),
		memberID:              viper.GetString("member-id"),
		disableLeaderElection: viper.GetBool("disable-leader-election"),
		otlpEndpoint:          viper.GetString("otlp-endpoint"),
		disableOtlpMetrics:    viper.GetBool("disable-otlp-metrics"),
		cpuprofile:            viper.GetString("cpuprofile"),
	}

	if cfg.memberID == "" {
		cfg.memberID = uuid.NewString()
	}

	logger.Info("parsed placementd configuration",
		zap.String("logLevelStr", cfg.logLevelStr),
		zap.String("webBindAddress", cfg.webBindAddress),
		zap.Int("webPort", cfg.webPort),
		zap.String("clusterConfigPath", cfg.clusterConfigPath),
		zap.String("etcdEndpoints", cfg.etcdEndpoints),
		zap.String("etcdClusterKey", cfg.etcdClusterKey),
		zap.String("etcdElectionPrefix", cfg.etcdElectionPrefix),
		zap.String("memberID", cfg.memberID),
		zap.Bool("disableLeaderElection", cfg.disableLeaderElection),
		zap.String("otlpEndpoint", cfg.otlpEndpoint),
		zap.Bool("disableOtlpMetrics", cfg.disableOtlpMetrics))

	return cfg
}

func getLogger() (zap.AtomicLevel, *zap.Logger) {
	logLevel := zap.NewAtomicLevel()
	logConfig := zap.NewProductionEncoderConfig()
	logConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	jsonEncoder := zapcore.NewJSONEncoder(logConfig)
	core := zapcore.NewTee(
		zapcore.NewCore(jsonEncoder, zapcore.AddSync(os.Stdout), logLevel),
	)
	logger := zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))

	return logLevel, logger
}

func initTelemetry(ctx context.Context, otlpEndpoint string, enableMetrics bool) (*sdkmetric.MeterProvider, error) {
	res, err := resource.New(ctx,
		resource.WithFromEnv(),
		resource.WithProcess(),
		resource.WithTelemetrySDK(),
		resource.WithHost(),
		resource.WithAttributes(
			semconv.ServiceNameKey.String("stellar-placementd"),
		),
	)
	if err != nil && res == nil {
		return nil, err
	}

	promExp, err := prometheus.New()
	if err != nil {
		return nil, err
	}

	if !enableMetrics || otlpEndpoint == "" {
		return sdkmetric.NewMeterProvider(
			sdkmetric.WithResource(res),
			sdkmetric.WithReader(promExp),
		), nil
	}

	metricExp, err := otlpmetricgrpc.New(ctx,
		otlpmetricgrpc.WithInsecure(),
		otlpmetricgrpc.WithEndpoint(otlpEndpoint))
	if err != nil {
		return nil, err
	}

	return sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(promExp),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExp)),
	), nil
}

func buildProvider(cfg *config, etcdClient *etcd.Client) (clustering.Provider, error) {
	switch {
	case cfg.clusterConfigPath != "":
		return clustering.NewStaticProvider(clustering.StaticProviderOptions{
			Path: cfg.clusterConfigPath,
		})
	case cfg.etcdEndpoints != "":
		return clustering.NewEtcdProvider(clustering.EtcdProviderOptions{
			EtcdClient: etcdClient,
			Key:        cfg.etcdClusterKey,
		})
	default:
		return nil, fmt.Errorf("must specify either --cluster-config-path or --etcd-endpoints")
	}
}

func startPlacementd() {
	logLevel, logger := getLogger()

	logger.Info("starting placementd", zap.String("version", buildVersion))

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		if err := viper.ReadInConfig(); err != nil {
			logger.Panic("failed to load specified config file", zap.Error(err))
		}
	}

	cfg := readConfig(logger)

	parsedLogLevel, err := zapcore.ParseLevel(cfg.logLevelStr)
	if err != nil {
		logger.Warn("invalid log level specified, using INFO instead")
		parsedLogLevel = zapcore.InfoLevel
	}
	logLevel.SetLevel(parsedLogLevel)

	if cfg.cpuprofile != "" {
		f, err := os.Create(cfg.cpuprofile)
		if err != nil {
			logger.Error("failed to create cpu profile file", zap.Error(err))
			os.Exit(1)
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			logger.Error("failed to start cpu profiling", zap.Error(err))
			os.Exit(1)
		}
		defer pprof.StopCPUProfile()
	}

	rc := app_config.LoadRuntimeConfig(os.Getenv(app_config.ConfigEnvVar), logger)
	logger = rc.Logger

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	meterProvider, err := initTelemetry(ctx, cfg.otlpEndpoint, !cfg.disableOtlpMetrics)
	if err != nil {
		logger.Error("failed to initialize opentelemetry metrics", zap.Error(err))
		os.Exit(1)
	}
	otel.SetMeterProvider(meterProvider)

	var etcdClient *etcd.Client
	if cfg.etcdEndpoints != "" || !cfg.disableLeaderElection {
		etcdClient, err = etcd.New(etcd.Config{
			Endpoints: strings.Split(cfg.etcdEndpoints, ","),
		})
		if err != nil {
			logger.Error("failed to connect to etcd", zap.Error(err))
			os.Exit(1)
		}
	}

	provider, err := buildProvider(cfg, etcdClient)
	if err != nil {
		logger.Error("failed to initialize cluster provider", zap.Error(err))
		os.Exit(1)
	}

	var elector *leaderelect.Elector
	if !cfg.disableLeaderElection {
		elector, err = leaderelect.Join(ctx, leaderelect.Options{
			EtcdClient: etcdClient,
			KeyPrefix:  cfg.etcdElectionPrefix,
			MemberID:   cfg.memberID,
		})
		if err != nil {
			logger.Error("failed to join leader election", zap.Error(err))
			os.Exit(1)
		}
		defer elector.Close(context.Background())
	}

	selectorLogger := ratelimitlog.New(logger.Named("nodeset"), 1, 10)
	selector := nodeset.NewSelector(flatselect.Selector{}, selectorLogger)

	var managerElector placement.Elector
	if elector != nil {
		managerElector = elector
	}

	manager := placement.NewManager(placement.Options{
		Provider: provider,
		Selector: selector,
		Elector:  managerElector,
		Metrics:  metrics.GetPlacementMetrics(),
		Logger:   logger.Named("placement"),
	})

	go func() {
		for decision := range manager.Decisions() {
			switch decision.Decision.Kind {
			case nodeset.NeedsChange:
				logger.Info("computed new storage set",
					zap.String("logID", decision.LogID),
					zap.Ints("storageSet", decision.Decision.StorageSet))
			case nodeset.Failed:
				logger.Warn("failed to compute storage set",
					zap.String("logID", decision.LogID),
					zap.Error(decision.Decision.Err))
			}
		}
	}()

	webListenAddress := fmt.Sprintf("%s:%v", cfg.webBindAddress, cfg.webPort)
	var leaderChecker webapi.LeaderChecker
	if elector != nil {
		leaderChecker = elector
	}
	webapi.InitializeWebServer(webapi.WebServerOptions{
		Logger:        logger,
		LogLevel:      &logLevel,
		ListenAddress: webListenAddress,
		Leader:        leaderChecker,
	})

	go func() {
		sigCh := make(chan os.Signal, 10)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

		<-sigCh
		logger.Info("received shutdown signal, stopping")
		cancel()
	}()

	webapi.MarkSystemHealthy()

	if err := manager.Run(ctx); err != nil {
		logger.Error("placement manager exited with error", zap.Error(err))
		os.Exit(1)
	}

	logger.Info("placementd shutdown gracefully")
}

func main() {
	cobra.CheckErr(rootCmd.Execute())
}

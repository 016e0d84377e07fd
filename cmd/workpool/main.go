// Package main is the entry point for workpool.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"workpool/internal/api"
	"workpool/internal/config"
	"workpool/internal/demo"
	"workpool/internal/events"
	"workpool/internal/logger"
	"workpool/internal/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	version = "dev"
)

// options はコマンドラインから指定された値
type options struct {
	configFile    string
	workers       int
	tasks         int
	nestedWorkers int
	fanoutEvery   int
	logLevel      string
	serverMode    bool
	serverAddr    string
}

func main() {
	var (
		opts        options
		showVersion bool
	)
	flag.StringVar(&opts.configFile, "config", "", "設定ファイルパス (YAML/JSON)")
	flag.IntVar(&opts.workers, "workers", 0, "ルートプールのワーカー数")
	flag.IntVar(&opts.tasks, "tasks", 0, "投入するタスク数")
	flag.IntVar(&opts.nestedWorkers, "nested-workers", 0, "ネストプールのワーカー数")
	flag.IntVar(&opts.fanoutEvery, "fanout-every", 0, "i % N == 0 のタスクがネストプールを使う")
	flag.StringVar(&opts.logLevel, "log-level", "", "ログレベル (debug, info, warn, error)")
	flag.BoolVar(&opts.serverMode, "server", false, "ステータスサーバーを起動")
	flag.StringVar(&opts.serverAddr, "addr", "", "サーバーアドレス (例: :8080)")
	flag.BoolVar(&showVersion, "version", false, "バージョンを表示")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `workpool - Fixed-size worker pool with nested fan-out

Usage:
  workpool [options]

Options:
`)
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  # デフォルト (CPU数 workers, 1000 tasks)
  workpool

  # 設定ファイルから実行
  workpool --config workpool.yaml

  # フラグでカスタマイズ
  workpool --workers 8 --tasks 200 --nested-workers 3

  # 実行中のステータスとメトリクスを公開
  workpool --server --addr :9090
`)
	}

	flag.Parse()

	if showVersion {
		fmt.Printf("workpool version %s\n", version)
		return
	}

	if err := run(opts); err != nil {
		logger.Error("", "%v", err)
		os.Exit(1)
	}
}

// buildConfig は設定ファイルとフラグから実行設定を構築する
func buildConfig(opts options) (*config.FileConfig, demo.Config, error) {
	file := &config.FileConfig{}
	if opts.configFile != "" {
		loaded, err := config.LoadFile(opts.configFile)
		if err != nil {
			return nil, demo.Config{}, fmt.Errorf("設定ファイル読み込みエラー: %w", err)
		}
		file = loaded
	}

	// フラグでオーバーライド
	if opts.workers > 0 {
		file.Pool.Workers = opts.workers
	}
	if opts.tasks > 0 {
		file.Driver.Tasks = opts.tasks
	}
	if opts.nestedWorkers > 0 {
		file.Driver.NestedWorkers = opts.nestedWorkers
	}
	if opts.fanoutEvery > 0 {
		file.Driver.FanoutEvery = opts.fanoutEvery
	}
	if opts.logLevel != "" {
		file.Log.Level = opts.logLevel
	}
	if opts.serverMode {
		file.Server.Enabled = true
	}
	if opts.serverAddr != "" {
		file.Server.Addr = opts.serverAddr
	}

	if err := file.Validate(); err != nil {
		return nil, demo.Config{}, fmt.Errorf("設定検証エラー: %w", err)
	}

	return file, file.ToDriverConfig(), nil
}

// run はドライバーを実行する
func run(opts options) error {
	file, driverConfig, err := buildConfig(opts)
	if err != nil {
		return err
	}

	level, err := file.LogLevel()
	if err != nil {
		return err
	}
	logger.Default.SetLevel(level)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Warn("", "中断シグナルを受信、投入を停止中...")
		cancel()
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	exporter, err := metrics.NewExporter("workpool", reg, metrics.ExporterOptions{})
	if err != nil {
		return fmt.Errorf("メトリクス初期化エラー: %w", err)
	}
	stats := metrics.New()
	bus := events.NewBus()
	defer bus.Close()

	driver := demo.New(driverConfig,
		demo.WithLogger(logger.Default),
		demo.WithEvents(bus),
		demo.WithRecorder(metrics.Multi(stats, exporter)),
	)

	serverErr := make(chan error, 1)
	if file.Server.Enabled {
		server := api.NewServer(file.ServerAddr(), api.Options{
			Driver:   driver,
			Metrics:  stats,
			Events:   bus,
			Gatherer: reg,
		})
		go func() { serverErr <- server.Start(ctx) }()
	}

	logger.Info("", "workpool: %d workers, %d tasks, nested=%d every %d",
		driverConfig.Workers, driverConfig.Tasks, driverConfig.NestedWorkers, driverConfig.FanoutEvery)

	result, runErr := driver.Run(ctx)
	fmt.Println(result.Report())

	if runErr != nil {
		return fmt.Errorf("実行エラー: %w", runErr)
	}

	if file.Server.Enabled {
		logger.Info("", "実行完了。Ctrl+C でサーバーを停止")
		select {
		case <-ctx.Done():
			err = <-serverErr
		case err = <-serverErr:
		}
		if err != nil {
			return fmt.Errorf("サーバーエラー: %w", err)
		}
	}
	return nil
}

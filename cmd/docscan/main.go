package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/gmsas95/docscan/internal/api"
	"github.com/gmsas95/docscan/internal/app"
	"github.com/gmsas95/docscan/internal/cli"
	"github.com/gmsas95/docscan/internal/config"
	"github.com/gmsas95/docscan/internal/store"
)

var (
	configPath = flag.String("config", "", "Path to config file")
	dataDir    = flag.String("data", "", "Path to data directory")
	version    = "dev"
)

func main() {
	flag.Usage = func() { cli.PrintHelp(os.Stderr) }
	flag.Parse()

	if err := config.LoadEnvFiles(); err != nil {
		log.Printf("Warning: failed to load .env: %v", err)
	}

	cli.Version = version
	api.Version = version

	args := flag.Args()
	if len(args) == 0 {
		application := initApp()
		defer application.Close()
		application.RunServer()
		return
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "extract":
		cli.Exit(cli.RunExtract(rest, os.Stdin, os.Stdout))
		return
	case "help", "--help", "-h":
		cli.PrintHelp(os.Stdout)
		return
	case "version", "--version", "-v":
		fmt.Printf("docscan version %s\n", version)
		return
	}

	if wantsHelp(rest) {
		printCommandHelp(cmd)
		return
	}

	application := initApp()
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	var err error
	switch cmd {
	case "serve", "server":
		stop()
		cli.HandleServeCommand(application)
	case "scan":
		err = cli.RunScan(ctx, rest, application, os.Stdout)
	case "watch":
		err = cli.RunWatch(ctx, rest, application, os.Stdout)
	case "history":
		err = cli.RunHistory(rest, application, os.Stdout)
	case "export":
		err = cli.RunExport(rest, application, os.Stdout)
	case "purge":
		err = cli.RunPurge(rest, application, os.Stdout)
	case "token":
		err = cli.RunToken(rest, application, os.Stdout)
	case "doctor":
		if cli.HandleDoctorCommand(application, os.Stdout) > 0 {
			err = fmt.Errorf("doctor found issues")
		}
	default:
		err = fmt.Errorf("unknown command %q (run 'docscan help')", cmd)
	}

	stop()
	if closeErr := application.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	cli.Exit(err)
}

func wantsHelp(args []string) bool {
	return len(args) > 0 && (args[0] == "-h" || args[0] == "--help" || args[0] == "help")
}

func printCommandHelp(cmd string) {
	switch cmd {
	case "scan":
		cli.PrintScanHelp(os.Stdout)
	case "watch":
		cli.PrintWatchHelp(os.Stdout)
	case "history":
		cli.PrintHistoryHelp(os.Stdout)
	case "export":
		cli.PrintExportHelp(os.Stdout)
	case "purge":
		cli.PrintPurgeHelp(os.Stdout)
	case "token":
		cli.PrintTokenHelp(os.Stdout)
	default:
		cli.PrintHelp(os.Stdout)
	}
}

func initApp() *app.App {
	cfg, err := config.Load(*configPath, *dataDir)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := cfg.Log.NewLogger()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	logger.Info("Starting docscan",
		zap.String("version", version),
		zap.String("data_dir", cfg.Storage.DataDir),
	)

	st, err := store.New(cfg)
	if err != nil {
		logger.Fatal("Failed to initialize store", zap.Error(err))
	}

	return app.New(cfg, st, logger, version)
}

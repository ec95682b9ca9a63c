package main

import (
	"os"
	"path/filepath"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/CaroLe-prw/zap/internal/config"
	"github.com/CaroLe-prw/zap/internal/db"
	"github.com/CaroLe-prw/zap/internal/web"
)

var (
	configPath string
	dbPath     string
	listenAddr string
	debug      bool

	rootCmd = &cobra.Command{
		Use:   "zap",
		Short: "Personal task and time tracking engine.",
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server.",
		RunE:  runServe,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	serveCmd.Flags().StringVar(&dbPath, "db", "", "sqlite db path")
	serveCmd.Flags().StringVar(&listenAddr, "listen", "", "listen address")
	rootCmd.AddCommand(serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfgPath := configPath
	if cfgPath == "" {
		var err error
		cfgPath, err = config.DefaultConfigPath()
		if err != nil {
			return err
		}
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}

	if dbPath != "" {
		cfg.DBPath = dbPath
	}
	if cfg.DBPath == "" {
		cfg.DBPath = filepath.Join(filepath.Dir(cfgPath), "zap.sqlite3")
	}
	if listenAddr != "" {
		cfg.ListenAddr = listenAddr
	}
	if debug {
		cfg.Debug = true
	}

	if cfg.Debug {
		log.SetLevel(log.DebugLevel)
	}

	if err := config.Save(cfgPath, cfg); err != nil {
		return err
	}

	if err := config.EnsureDir(cfg.DBPath); err != nil {
		return err
	}
	sqlDB, err := db.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	store := db.NewStore(sqlDB)

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	web.NewServer(store, log.StandardLogger()).Register(e)

	log.Infof("listening on %s (db %s)", cfg.ListenAddr, cfg.DBPath)
	return e.Start(cfg.ListenAddr)
}

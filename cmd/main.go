package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"

	"wealthflow/cmd/ohlcvcrypto"
	"wealthflow/src/app"
	"wealthflow/src/connectors"
	"wealthflow/src/database"
	"wealthflow/src/database/migrations"
	"wealthflow/src/repository"
	"wealthflow/src/server"
)

var Version string

func main() {
	cliApp := cli.NewApp()
	cliApp.Name = "wealthflow"
	cliApp.Usage = "The wealthflow command line interface"
	cliApp.Version = Version
	cliApp.Before = func(c *cli.Context) error {
		level, err := logrus.ParseLevel(strings.ToLower(c.GlobalString("log-level")))
		if err != nil {
			level = logrus.InfoLevel
		}
		logrus.SetLevel(level)
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
		return nil
	}
	cliApp.Flags = []cli.Flag{
		cli.StringFlag{
			Name:   "log-level",
			Value:  "info",
			EnvVar: "LOG_LEVEL",
			Usage:  "logrus level",
		},
	}

	cliApp.Commands = []cli.Command{
		monitorCMD,
		migrateCMD,
		ohlcvCryptoCMD,
	}

	if err := cliApp.Run(os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var (
	monitorCMD = cli.Command{
		Name:   "monitor",
		Usage:  "run the monitor and the API",
		Action: monitorAction,
		Flags: []cli.Flag{
			cli.StringFlag{
				Name:  "port",
				Usage: "listen port, defaults to PORT",
			},
		},
		Description: `Start the monitoring loop, paper execution and the HTTP API`,
	}
	migrateCMD = cli.Command{
		Name:        "migrate",
		Usage:       "run database migrations",
		Action:      migrateAction,
		ArgsUsage:   "",
		Flags:       []cli.Flag{},
		Description: `Auto-migrate the schema and run pending data migrations`,
	}
	ohlcvCryptoCMD = cli.Command{
		Name:        "ohlcv_crypto",
		Usage:       "run OHLCV crypto",
		Action:      ohlcvCryptoAction,
		ArgsUsage:   "",
		Flags:       []cli.Flag{},
		Description: `Backfill crypto bars from Binance into market_samples`,
	}
)

func monitorAction(c *cli.Context) error {
	logrus.Info("Starting monitor CMD")

	srv := server.GetConfig()
	if port := c.String("port"); port != "" {
		srv.Port = port
	}
	if err := app.Start(srv); err != nil {
		logrus.WithError(err).Error("Starting monitor cmd")
		return err
	}
	return nil
}

func migrateAction(_ *cli.Context) error {
	logrus.Info("Starting migrate CMD")
	if err := database.InitMainDB(); err != nil {
		logrus.WithError(err).Error("Failed to migrate database")
		return err
	}
	applied, err := migrations.Applied(database.MainDB)
	if err != nil {
		logrus.WithError(err).Error("Failed to list data migrations")
		return err
	}
	for _, m := range applied {
		logrus.WithFields(logrus.Fields{"id": m.ID, "applied_at": m.AppliedAt}).Info("data migration")
	}
	logrus.Info("Database is up to date")
	return nil
}

// ohlcvCryptoAction backfills klines for the configured symbols.
func ohlcvCryptoAction(_ *cli.Context) error {
	logrus.Info("Starting OHLCV crypto CMD")
	if err := database.InitMainDB(); err != nil {
		logrus.WithError(err).Fatal("Failed to connect to database")
	}

	config := ohlcvcrypto.GetConfig()
	connCfg := connectors.GetConfig()
	connCfg.KlinePeriod = config.DurationStr
	log := logrus.WithField("cmd", "ohlcv_crypto")

	_ohlcv := &ohlcvcrypto.OHLCVCrypto{
		Log:    log,
		Source: connectors.NewBinanceSource(connCfg, connectors.NewLimiter(connCfg.RequestsPerSecond, connCfg.Burst), log),
		Store:  repository.NewMarketSampleRepository(),
		Config: config,
	}

	if err := _ohlcv.Start(context.Background()); err != nil {
		logrus.WithError(err).Error("Starting OHLCV cmd")
		return err
	}

	return nil
}

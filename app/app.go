// Package app wires configuration, logging and the serving modes
// together: a master process supervises worker processes, and each
// worker runs one reactor on the shared port.
package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sys/unix"

	"github.com/biblaevnikita/dunno/config"
	"github.com/biblaevnikita/dunno/core"
)

// App is one configured instance of the server, master or worker.
type App struct {
	cfg *config.Config
	log *zap.Logger
}

// New builds an application instance and its logger.
func New(cfg *config.Config) (*App, error) {
	log, err := buildLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return &App{cfg: cfg, log: log}, nil
}

// Run serves until interrupted. The worker path is taken either when
// this process carries the worker marker or when a zero worker count
// asks for in-process serving; otherwise the process is the master and
// only supervises.
func (a *App) Run() error {
	defer a.log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, unix.SIGTERM)
	defer stop()

	if id, ok := workerID(); ok {
		return a.runWorker(ctx, id)
	}
	if a.cfg.Workers == 0 {
		return a.runWorker(ctx, 0)
	}
	return a.supervise(ctx)
}

// runWorker binds the shared port and drives one reactor until ctx is
// cancelled.
func (a *App) runWorker(ctx context.Context, id int) error {
	log := a.log.With(zap.Int("worker", id))

	srv := core.NewServer(core.Options{
		Addr:           a.cfg.ListenAddr(),
		DocRoot:        a.cfg.DocRoot,
		PollInterval:   a.cfg.PollInterval,
		ReadTimeout:    a.cfg.ReadTimeout,
		MaxHeaderBytes: a.cfg.MaxHeaderBytes,
	}, log)

	if err := srv.Listen(); err != nil {
		log.Error("bind failed", zap.Error(err))
		return err
	}
	log.Info("listening",
		zap.String("addr", srv.Addr().String()),
		zap.String("root", a.cfg.DocRoot),
		zap.Int("pid", os.Getpid()))

	err := srv.Serve(ctx)
	log.Info("worker done", srv.Stats().Fields()...)
	return err
}

// buildLogger assembles the zap logger: console encoding, ISO 8601
// timestamps, stderr unless a log file is configured.
func buildLogger(cfg *config.Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("log level %q: %w", cfg.LogLevel, err)
	}

	out := "stderr"
	if cfg.LogFile != "" {
		out = cfg.LogFile
	}

	zcfg := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Encoding:         "console",
		OutputPaths:      []string{out},
		ErrorOutputPaths: []string{out},
	}
	zcfg.EncoderConfig = zap.NewProductionEncoderConfig()
	zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zcfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder

	return zcfg.Build()
}

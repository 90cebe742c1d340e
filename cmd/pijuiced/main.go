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

	"pijuice-service/internal/archive"
	cfgpkg "pijuice-service/internal/config"
	"pijuice-service/internal/engine"
	"pijuice-service/internal/pijuice"
	"pijuice-service/internal/service"
)

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "config/config.yaml", "path to YAML config")
	flag.Parse()

	cfg, err := cfgpkg.LoadYAML(cfgPath)
	if err != nil {
		log.Fatalf("load yaml config: %v", err)
	}

	logger, err := cfgpkg.NewLogger(&cfg.Logging)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// graceful shutdown
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() { <-sigs; cancel() }()

	eng := engine.New(engine.Config{
		LoopInterval:    cfg.Engine.LoopInterval.Std(),
		ArchiveInterval: cfg.Engine.ArchiveInterval.Std(),
		UnitSystem:      cfg.Engine.UnitSystem,
	}, sugar)

	if err := attachPiJuice(cfg, sugar, eng); err != nil {
		// The host keeps running without UPS data rather than aborting.
		sugar.Errorw("pijuice service disabled", "error", err)
	}

	if err := eng.Run(ctx); err != nil {
		log.Fatalf("engine: %v", err)
	}
}

// attachPiJuice opens the hardware and optional archive store and binds the
// service to the engine. Any failure disables this component only.
func attachPiJuice(cfg cfgpkg.Root, sugar *zap.SugaredLogger, eng *engine.Engine) error {
	addr, err := cfg.PiJuice.DeviceAddress()
	if err != nil {
		return err
	}
	hat, err := pijuice.Open(cfg.PiJuice.Bus, addr)
	if err != nil {
		return err
	}

	var store *archive.Store
	if cfg.Archive.Enabled {
		store, err = archive.Open(cfg.Archive.DBPath)
		if err != nil {
			_ = hat.Close()
			return err
		}
		sugar.Infow("archive store open",
			"path", cfg.Archive.DBPath,
			"binding", cfg.PiJuice.DataBinding)
	}

	svc, err := service.New(cfg.PiJuice, hat, store, sugar)
	if err != nil {
		_ = hat.Close()
		if store != nil {
			_ = store.Close()
		}
		return err
	}
	svc.Bind(eng)
	sugar.Infow("pijuice service bound",
		"bus", cfg.PiJuice.Bus,
		"address", fmt.Sprintf("%#x", addr),
		"update_interval", cfg.PiJuice.UpdateInterval)
	return nil
}

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/leandrodaf/midirack/internal/logger"
	"github.com/leandrodaf/midirack/sdk/backplane"
	"github.com/leandrodaf/midirack/sdk/config"
	"github.com/leandrodaf/midirack/sdk/contracts"
	"github.com/leandrodaf/midirack/sdk/metrics"
	"github.com/leandrodaf/midirack/sdk/midi"
	"github.com/peterbourgon/ff/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	log := logger.NewDevelopmentLogger()

	fs := flag.NewFlagSet("midirack", flag.ExitOnError)
	var (
		configPath  = fs.String("config", "midirack.yaml", "path to the YAML config file")
		device      = fs.Int("device", 0, "input device index")
		logLevel    = fs.String("log-level", "", "log level: debug, info, warn, error")
		metricsAddr = fs.String("metrics-addr", "", "listen address for /metrics; empty disables it")
		channel     contracts.ChannelFilter
	)
	fs.Var(&channel, "channel", "channel filter: omni or 1..16")
	if err := ff.Parse(fs, os.Args[1:], ff.WithEnvVarPrefix("MIDIRACK")); err != nil {
		log.Fatal("Failed to parse flags", log.Field().Error("error", err))
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal("Failed to load config", log.Field().Error("error", err))
	}
	// Flags given explicitly override the file.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "device":
			cfg.Device = *device
		case "channel":
			cfg.Channel = channel
		case "log-level":
			cfg.Log.Level = *logLevel
		case "metrics-addr":
			cfg.Metrics.Addr = *metricsAddr
		}
	})
	if err := cfg.Validate(); err != nil {
		log.Fatal("Invalid configuration", log.Field().Error("error", err))
	}

	reg := prometheus.NewRegistry()
	collector, err := metrics.New(reg)
	if err != nil {
		log.Fatal("Failed to register metrics", log.Field().Error("error", err))
	}

	opts := append(cfg.Options(),
		contracts.WithLogger(log),
		contracts.WithMetrics(collector),
	)

	client, err := midi.NewMIDIClient(opts...)
	if err != nil {
		log.Error("Failed to initialize MIDI client", log.Field().Error("error", err))
		return
	}
	input, err := midi.NewInput(client, opts...)
	if err != nil {
		log.Error("Failed to initialize MIDI input", log.Field().Error("error", err))
		return
	}

	devices, err := input.Devices()
	if err != nil {
		log.Error("No MIDI devices found or error listing devices", log.Field().Error("error", err))
		return
	}
	for _, d := range devices {
		fmt.Printf("[%d] %s (%s)\n", d.ID, d.Name, d.Manufacturer)
	}

	bus := backplane.NewFieldTopicBus[contracts.Event](cfg.DiscriminantKey,
		backplane.WithName("bus"),
		backplane.WithLogger(log),
		backplane.WithMetrics(collector),
	)
	tee, err := backplane.Tee(input.Output(),
		backplane.ToPort(bus.Port()),
		backplane.ToFunc(func(ev contracts.Event) {
			log.Debug("MIDI event", log.Field().String("type", ev.Type().String()))
		}),
	)
	if err != nil {
		log.Error("Failed to connect input", log.Field().Error("error", err))
		return
	}
	defer tee.Unsubscribe()

	bus.Route(contracts.TypeNoteOn.String(), func(ev contracts.Event) {
		on := ev.(contracts.NoteOn)
		log.Info("Note on",
			log.Field().Uint8("channel", on.Channel),
			log.Field().Uint8("note", on.Note),
			log.Field().Float64("velocity", on.Velocity))
	})
	bus.Route(contracts.TypeNoteOff.String(), func(ev contracts.Event) {
		off := ev.(contracts.NoteOff)
		log.Info("Note off",
			log.Field().Uint8("channel", off.Channel),
			log.Field().Uint8("note", off.Note))
	})
	bus.Route(contracts.TypeControlChange.String(), func(ev contracts.Event) {
		cc := ev.(contracts.ControlChange)
		log.Info("Control change",
			log.Field().Uint8("channel", cc.Channel),
			log.Field().Uint8("controller", cc.Controller),
			log.Field().Uint8("value", cc.Value))
	})

	var srv *http.Server
	if cfg.Metrics.Addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		srv = &http.Server{Addr: cfg.Metrics.Addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("Metrics server failed", log.Field().Error("error", err))
			}
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := input.Start(ctx, cfg.Device); err != nil {
		log.Error("Failed to start MIDI input", log.Field().Error("error", err))
		return
	}

	fmt.Println("Capturing MIDI events... Press Ctrl+C to exit.")
	<-ctx.Done()

	if err := input.Close(); err != nil {
		log.Error("Failed to close MIDI input", log.Field().Error("error", err))
	}
	input.Panic()
	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("Failed to stop metrics server", log.Field().Error("error", err))
		}
	}
}

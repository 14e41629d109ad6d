package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.bug.st/serial"

	"i4.energy/across/cellmon/at"
	"i4.energy/across/cellmon/modem"
	"i4.energy/across/cellmon/trace"
	"i4.energy/across/cellmon/viewmodel"
)

func main() {
	configFile := flag.String("config", "", "YAML configuration file")
	flag.String("serial-port", "/dev/ttyACM0", "Serial port to connect to the modem")
	flag.Int("baud-rate", 115200, "Baud rate for serial communication")
	flag.String("telnet-address", "", "Reach the modem through a telnet serial server instead")
	flag.String("bind-address", "0.0.0.0:8080", "Bind address for the HTTP server")
	flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	flag.String("sim-pin", "", "SIM card PIN code (if required)")
	flag.Duration("at-timeout", 5*time.Second, "Timeout of a single AT command")
	flag.String("trace", "", "Replay a stored trace instead of talking to a modem")
	flag.String("trace-codec", "", "Trace encoding (jsonl, yaml); default by file extension")
	flag.String("record", "", "Append live packets to this JSON Lines file")
	flag.String("macro", "", "Macro to run after start up ("+fmt.Sprint(modem.MacroNames())+")")
	flag.Bool("console", false, "Start the interactive console")
	flag.Parse()

	config, err := LoadConfig(WithDefaults(), WithFile(*configFile), WithEnv(), WithFlags(flag.CommandLine))
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logLevel := slog.LevelInfo
	switch config.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	registry, err := viewmodel.NewDefaultRegistry()
	if err != nil {
		logger.Error("Failed to build processor registry", "error", err)
		os.Exit(1)
	}
	store := viewmodel.NewStore(
		viewmodel.NewDecoder(registry, logger.With("component", "decoder")),
		logger.With("component", "store"),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	server := &Server{
		Logger: logger.With("component", "server"),
		Store:  store,
	}
	console := &Console{
		Store:  store,
		Logger: logger.With("component", "console"),
	}

	if config.TraceFile != "" {
		if err := replay(config, store, logger); err != nil {
			logger.Error("Failed to replay trace", "error", err)
			os.Exit(1)
		}
	} else {
		m, cleanup, err := startModem(ctx, config, store, logger)
		if err != nil {
			logger.Error("Failed to start modem", "error", err)
			os.Exit(1)
		}
		defer cleanup()
		server.Modem = m
		console.Modem = m
	}

	httpServer := &http.Server{
		Addr:    config.BindAddress,
		Handler: server,
	}

	go func() {
		logger.Info("Starting HTTP server", "address", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server failed", "error", err)
			os.Exit(1)
		}
	}()

	if config.Console {
		editor := NewLineEditor()
		console.In = editor
		console.Out = editor.Writer()
		if err := console.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Console failed", "error", err)
		}
		editor.Close()
		stop()
	}

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	logger.Info("Closing HTTP server")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Failed to gracefully shutdown server", "error", err)
	}
}

// replay decodes a stored trace into the store.
func replay(config *Config, store *viewmodel.Store, logger *slog.Logger) error {
	packets, err := trace.ReadFile(config.TraceFile, config.TraceCodec)
	if err != nil {
		return err
	}
	for _, p := range packets {
		store.Append(p)
	}
	logger.Info("Trace replayed", "file", config.TraceFile, "packets", len(packets), "session", store.Session())
	return nil
}

// startModem connects the live modem, feeds its packets into the store
// and the optional recorder, and starts its loop. The returned func
// releases everything.
func startModem(ctx context.Context, config *Config, store *viewmodel.Store, logger *slog.Logger) (*modem.Modem, func(), error) {
	var dialer modem.Dialer = modem.SerialDialer{
		PortName: config.SerialPort,
		Mode: &serial.Mode{
			BaudRate: config.BaudRate,
			Parity:   serial.NoParity,
			DataBits: 8,
			StopBits: serial.OneStopBit,
		},
	}
	if config.TelnetAddress != "" {
		dialer = modem.TelnetDialer{Addr: config.TelnetAddress}
	}

	var recorder *trace.Recorder
	if config.RecordFile != "" {
		var err error
		recorder, err = trace.NewRecorder(config.RecordFile, logger.With("component", "recorder"))
		if err != nil {
			return nil, nil, err
		}
	}
	sink := func(p at.Packet) {
		store.Append(p)
		if recorder != nil {
			recorder.Record(p)
		}
	}

	modemConfig, err := modem.NewConfigBuilder().
		WithDialer(dialer).
		WithATTimeout(config.ATTimeout).
		WithInitTimeout(30 * time.Second).
		WithSimPIN(config.SimPIN).
		WithSink(sink).
		WithLogger(logger).
		Build()
	if err != nil {
		return nil, nil, fmt.Errorf("modem config: %w", err)
	}

	m, err := modem.New(ctx, modemConfig)
	if err != nil {
		if recorder != nil {
			recorder.Close()
		}
		return nil, nil, err
	}
	logger.Info("Modem ready", "session", store.Session())

	go func() {
		if err := m.Loop(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Modem loop stopped", "error", err)
		}
	}()
	go func() {
		for {
			select {
			case urc := <-m.URC():
				logger.Debug("URC", "urc", urc)
			case <-ctx.Done():
				return
			}
		}
	}()

	if config.Macro != "" {
		go func() {
			if err := m.RunMacro(ctx, config.Macro); err != nil {
				logger.Warn("Macro finished with errors", "macro", config.Macro, "error", err)
				return
			}
			logger.Info("Macro finished", "macro", config.Macro)
		}()
	}

	cleanup := func() {
		logger.Info("Closing modem connection")
		if err := m.Close(); err != nil {
			logger.Error("Failed to close modem", "error", err)
		}
		if recorder != nil {
			if err := recorder.Close(); err != nil {
				logger.Error("Failed to close recorder", "error", err)
			}
			logger.Info("Recording closed", "file", config.RecordFile, "packets", recorder.Count())
		}
	}
	return m, cleanup, nil
}

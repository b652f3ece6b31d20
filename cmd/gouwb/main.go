// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2026.10.15
//

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	m "github.com/mkhts/gouwb"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"go.bug.st/serial"
	"gopkg.in/yaml.v3"
)

func main() {

	// Parse command line arguments
	args, err := parseArgs()
	if err != nil {
		m.PrintE(err)
		flag.Usage()
		os.Exit(1)
	}

	// Run the main application
	if err := runApplication(args); err != nil {
		m.PrintE(err)
		os.Exit(1)
	}
}

// Main application processing
func runApplication(args cmdOpt) error {

	// Load configuration
	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}
	if args.dumpConfig {
		enc := yaml.NewEncoder(os.Stdout)
		defer enc.Close()
		return enc.Encode(cfg)
	}

	pl, err := m.NewPipeline(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Range source and motor sink
	dev, err := openDevices(args, cfg, pl.Anchors())
	if err != nil {
		return err
	}
	defer dev.Close()

	// Observers
	hist := m.NewHistory()
	observers := []m.Observer{hist}
	if cfg.Listen != "" {
		tel, err := startTelemetry(cfg.Listen)
		if err != nil {
			return err
		}
		defer tel.Close()
		observers = append(observers, tel.metrics, tel)
	}

	log.WithFields(log.Fields{
		"anchors": pl.Anchors().String(),
		"hz":      cfg.Hz,
		"cycles":  cfg.NumCycles,
		"source":  dev.name,
	}).Info("starting control loop")

	_, err = m.Run(ctx, dev.src, dev.sink, pl, m.RunOpt{
		Period:    time.Duration(cfg.Period() * float64(time.Second)),
		NumCycles: cfg.NumCycles,
		Power:     dev.power,
		Observers: observers,
	})

	// Plots are written even after a failed run
	if args.plotDir != "" {
		if perr := savePlots(args.plotDir, hist, pl.Anchors()); perr != nil {
			log.WithError(perr).Error("failed to save plots")
		}
	}
	return err
}

// Load the config file, then apply the flags given on the command line
func loadConfig(args cmdOpt) (*m.Config, error) {
	cfg, err := m.LoadConfig(args.configFn)
	if err != nil {
		return nil, err
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "port":
			cfg.Serial.Port = args.port
		case "baud":
			cfg.Serial.Baud = args.baud
		case "vel":
			cfg.Serial.Velocity = args.velocity
		case "listen":
			cfg.Listen = args.listen
		case "hz":
			cfg.Hz = args.hz
		case "n":
			cfg.NumCycles = args.numCycles
		case "a":
			cfg.Anchors = args.anchors
		case "ns":
			cfg.Sensors = args.sensors
		case "ref":
			cfg.Reference = args.ref
		case "t":
			cfg.Threshold = args.threshold
		case "ws":
			cfg.Trilat.WarmStart = args.warmStart
		case "nma":
			cfg.SmoothAngle = !args.noSmooth
		}
	})
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	m.PrintD(1, "config: %+v", *cfg)
	return cfg, nil
}

// devices bundles the range source and the motor sink of a run
type devices struct {
	name   string
	src    m.RangeSource
	sink   m.MotorSink
	power  m.PowerSource // nil for the simulator
	closer io.Closer
}

func (d *devices) Close() {
	if d.closer != nil {
		d.closer.Close()
	}
}

// Open the serial port, or the simulator with -sim
func openDevices(args cmdOpt, cfg *m.Config, anchors m.Anchors) (*devices, error) {
	if args.sim {
		return &devices{
			name: "sim",
			src:  m.NewSimSource(cfg.Sim, anchors),
			sink: m.LogSink{},
		}, nil
	}

	port, err := serial.Open(cfg.Serial.Port, &serial.Mode{BaudRate: cfg.Serial.Baud})
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", cfg.Serial.Port)
	}

	fr := m.NewFrameReader()
	go func() {
		if err := fr.Listen(port); err != nil {
			log.WithError(err).Warn("uart receiver stopped")
		}
	}()

	var sink m.MotorSink
	switch {
	case args.dryRun:
		sink = m.LogSink{}
	case cfg.Serial.Velocity:
		sink = m.NewVelocitySink(port)
	default:
		sink = m.NewLineSink(port)
	}
	return &devices{name: cfg.Serial.Port, src: fr, sink: sink, power: fr, closer: port}, nil
}

// Structure to hold command line argument information
type cmdOpt struct {
	configFn   string
	dumpConfig bool
	sim        bool
	dryRun     bool
	plotDir    string
	port       string
	baud       int
	velocity   bool
	listen     string
	hz         float64
	numCycles  int
	anchors    m.Anchors
	sensors    int
	ref        m.IndexPair
	threshold  float64
	warmStart  bool
	noSmooth   bool
}

// Parse command line arguments
func parseArgs() (a cmdOpt, err error) {
	flag.Usage = func() {
		m.PrintA(`
[Usage]
	%s [Options]        (UART)
	%s [Options] -sim   (simulated tag)

[Options]
`, filepath.Base(os.Args[0]), filepath.Base(os.Args[0]))
		flag.PrintDefaults()
	}
	cfg := m.NewConfig()
	flag.StringVar(&a.configFn, "c", "", "YAML config file. Values not in the file keep their defaults. Environment variables GOUWB_SERIAL, GOUWB_BAUD, GOUWB_LISTEN and GOUWB_HZ override the file; flags override both.")
	flag.BoolVar(&a.dumpConfig, "dump", false, "Print the effective configuration as YAML and exit")
	flag.BoolVar(&a.sim, "sim", false, "Use a simulated tag instead of the UART. Motor commands are only logged.")
	flag.BoolVar(&a.dryRun, "dry", false, "Read the UART but only log motor commands")
	flag.StringVar(&a.plotDir, "plot", "", "Directory for the PNG plots written at exit. Empty disables plotting.")
	flag.StringVar(&a.port, "port", cfg.Serial.Port, "Serial port")
	flag.IntVar(&a.baud, "baud", cfg.Serial.Baud, "Baud rate")
	flag.BoolVar(&a.velocity, "vel", cfg.Serial.Velocity, "Send VEL commands (0-150) instead of PWM duties")
	flag.StringVar(&a.listen, "listen", cfg.Listen, "HTTP address for /metrics and /events/cycles, like -listen :3000")
	flag.Float64Var(&a.hz, "hz", cfg.Hz, "Control cycles per second")
	flag.IntVar(&a.numCycles, "n", cfg.NumCycles, "Number of cycles. 0 runs until interrupted.")
	flag.Var(&a.anchors, "a", "Anchor positions [mm] in sensor order. Enclose in quotes like -a \"0 0 0;500 0 0;0 500 0\"")
	flag.IntVar(&a.sensors, "ns", cfg.Sensors, "Number of active range sensors")
	a.ref = cfg.Reference
	flag.Var(&a.ref, "ref", "Indices of the two anchors defining the forward axis, like -ref 0,1")
	flag.Float64Var(&a.threshold, "t", cfg.Threshold, "Steering dead band [deg]")
	flag.BoolVar(&a.warmStart, "ws", cfg.Trilat.WarmStart, "Seed trilateration with the previous estimate instead of the origin")
	flag.BoolVar(&a.noSmooth, "nma", !cfg.SmoothAngle, "Do not smooth the heading angle")
	var dbg int
	flag.IntVar(&dbg, "x", 0, "Debug information display. Specify level value. 0(OFF), 1(display), 2(detailed display), 3(matrices)")
	flag.Parse()
	if flag.NArg() != 0 {
		return a, fmt.Errorf("unexpected arguments: %v", flag.Args())
	}
	m.SetDebugLevel(dbg)
	return
}

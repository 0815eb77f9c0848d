// Command aquaponics-monitor samples the tank sensors, drives the LCD, LED,
// grow light and toggle outputs, and reports readings to a remote collector.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/reef-pi/rpi/i2c"

	"github.com/sweeney/aquaponics-monitor/internal/adc"
	"github.com/sweeney/aquaponics-monitor/internal/config"
	"github.com/sweeney/aquaponics-monitor/internal/display"
	"github.com/sweeney/aquaponics-monitor/internal/eventlog"
	"github.com/sweeney/aquaponics-monitor/internal/gpio"
	"github.com/sweeney/aquaponics-monitor/internal/logic"
	"github.com/sweeney/aquaponics-monitor/internal/metrics"
	"github.com/sweeney/aquaponics-monitor/internal/monitor"
	"github.com/sweeney/aquaponics-monitor/internal/mqtt"
	"github.com/sweeney/aquaponics-monitor/internal/onewire"
	"github.com/sweeney/aquaponics-monitor/internal/report"
	"github.com/sweeney/aquaponics-monitor/internal/sensor"
	"github.com/sweeney/aquaponics-monitor/internal/status"
	"github.com/sweeney/aquaponics-monitor/internal/web"
)

// tickInterval is the loop granularity. Task cadences are multiples of it.
const tickInterval = 100 * time.Millisecond

// conversionWait covers a DS18B20 12-bit conversion in print-state mode.
const conversionWait = time.Second

func main() {
	configPath := flag.String("config", "/etc/aquaponics/config.yaml", "Path to YAML config file")
	flag.String("http", "", "HTTP status address, overrides http.addr (empty to disable)")
	flag.String("broker", "", "MQTT mirror broker, overrides mqtt.broker (empty to disable)")
	flag.String("report-url", "", "Collector base URL, overrides report.url")
	flag.String("log", "", "Event log path, overrides log.path")
	printState := flag.Bool("print-state", false, "Acquire every channel once, print and exit")

	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("fatal: %v", err)
	}
	overrides := map[string]string{}
	flag.Visit(func(f *flag.Flag) { overrides[f.Name] = f.Value.String() })
	applyOverrides(cfg, overrides)

	if err := cfg.Validate(); err != nil {
		log.Fatalf("fatal: invalid config: %v", err)
	}

	if err := run(cfg, *printState); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

// applyOverrides copies explicitly set flags over the loaded config.
func applyOverrides(cfg *config.Config, set map[string]string) {
	if v, ok := set["http"]; ok {
		cfg.HTTP.Addr = v
	}
	if v, ok := set["broker"]; ok {
		cfg.MQTT.Broker = v
	}
	if v, ok := set["report-url"]; ok {
		cfg.Report.URL = v
	}
	if v, ok := set["log"]; ok {
		cfg.Log.Path = v
	}
}

func run(cfg *config.Config, printState bool) error {
	instance := uuid.New().String()

	// Initialize GPIO. Flow pulses are counted from line edge events.
	pulses := &sensor.PulseCounter{}
	board, err := gpio.NewRealBoard(cfg.GPIO.Chip, cfg.Pins(), pulses)
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer board.Close()

	// Initialize I2C peripherals
	bus, err := i2c.New()
	if err != nil {
		return fmt.Errorf("init i2c: %w", err)
	}
	defer bus.Close()

	ads, err := adc.New(bus, cfg.I2C.ADCAddress, cfg.ADC.Channel)
	if err != nil {
		return fmt.Errorf("init adc: %w", err)
	}

	flowModel, err := sensor.ParseFlowSensor(cfg.Flow.Sensor)
	if err != nil {
		return err
	}
	sources := monitor.Sources{
		Humidity: sensor.NewHumidityProbe(gpio.NewDHTLine(board.Chip(), cfg.GPIO.DHT)),
		Water:    sensor.NewWaterTemperatureProbe(onewire.NewBus(cfg.OneWire.Root, "")),
		Flow:     sensor.NewFlowRateCounter(pulses, flowModel),
		Oxygen:   sensor.NewPlaceholderOxygenProbe(cfg.Oxygen.Placeholder),
		PH:       sensor.NewPHProbe(ads),
	}

	// Print state mode
	if printState {
		return printReadings(os.Stdout, sources, time.Now, time.Sleep)
	}

	lcd, err := display.NewLCD(bus, cfg.I2C.LCDAddress)
	if err != nil {
		return fmt.Errorf("init lcd: %w", err)
	}
	defer lcd.Close()

	client, err := report.NewClient(cfg.Report.URL, report.NewHTTPFetcher(cfg.Report.Timeout))
	if err != nil {
		return fmt.Errorf("init report client: %w", err)
	}
	dispatcher := report.NewDispatcher(client, cfg.Report.Timeout)

	// Initialize MQTT mirror
	var publisher mqtt.Publisher
	var mqttStatus mqtt.ConnectionStatus
	if cfg.MQTT.Broker != "" {
		p := mqtt.NewRealPublisher(cfg.MQTT.Broker, instance)
		defer p.Close()
		publisher, mqttStatus = p, p
		dispatcher.OnResult = func(res report.Result, readings sensor.Snapshot) {
			err := p.PublishTelemetry(mqtt.Telemetry{
				Timestamp: res.Finished,
				Instance:  instance,
				Readings:  readings,
				ReportErr: res.Err,
			})
			if err != nil {
				log.Printf("mqtt telemetry error: %v", err)
			}
		}
	}

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(time.Now(), instance, status.Config{
		ReportURL:  cfg.Report.URL,
		Broker:     cfg.MQTT.Broker,
		HTTPAddr:   cfg.HTTP.Addr,
		LogPath:    cfg.Log.Path,
		FlowSensor: cfg.Flow.Sensor,
	})
	if net := status.ReadNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}
	m := metrics.New()

	// Start HTTP status server
	if cfg.HTTP.Addr != "" {
		srv := web.New(cfg.HTTP.Addr, tracker, m.Handler())
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", cfg.HTTP.Addr)
	}

	mon, err := monitor.New(monitor.Deps{
		Board:    board,
		Display:  lcd,
		Log:      eventlog.NewFile(cfg.Log.Path),
		Reporter: dispatcher,
		Sources:  sources,
		Tracker:  tracker,
		Metrics:  m,
	}, time.Now())
	if err != nil {
		return err
	}

	log.Printf("started: instance=%s report=%s broker=%q log=%s", instance, cfg.Report.URL, cfg.MQTT.Broker, cfg.Log.Path)

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(mon, dispatcher.Results(), publisher, mqttStatus, tracker, instance, time.Now, ticker.C, sigCh)
}

// runLoop owns the monitor. Ticks, report outcomes and signals are all
// handled on this goroutine. publisher and mqttStatus may be nil.
func runLoop(mon *monitor.Monitor, results <-chan report.Result, publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus, tracker *status.Tracker, instance string, now func() time.Time, tick <-chan time.Time, sig <-chan os.Signal) error {
	startTime := now()
	mon.Start(startTime)
	publishSystem(publisher, mqtt.SystemEvent{
		Timestamp: startTime,
		Event:     "STARTUP",
		Instance:  instance,
		Retained:  true,
	})

	for {
		select {
		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}
			t := now()
			mon.Stop(t, signalName)
			publishSystem(publisher, mqtt.SystemEvent{
				Timestamp: t,
				Event:     "SHUTDOWN",
				Reason:    signalName,
				Instance:  instance,
				Retained:  true,
			})
			return nil

		case res := <-results:
			mon.HandleReport(res)
			if tracker != nil {
				// Refresh network info alongside each report
				if net := status.ReadNetworkInfo(); net != nil {
					tracker.SetNetwork(net)
				}
			}

		case <-tick:
			mon.Tick(now())
			if tracker != nil && mqttStatus != nil {
				tracker.SetMQTTConnected(mqttStatus.IsConnected())
			}
		}
	}
}

func publishSystem(publisher mqtt.Publisher, event mqtt.SystemEvent) {
	if publisher == nil {
		return
	}
	if err := publisher.PublishSystem(event); err != nil {
		log.Printf("failed to publish %s event: %v", event.Event, err)
		return
	}
	log.Printf("published %s event", event.Event)
}

// printReadings acquires every source once and prints one line per channel.
// A water probe that has only just started converting is read again after
// conversionWait.
func printReadings(w io.Writer, sources monitor.Sources, now func() time.Time, sleep func(time.Duration)) error {
	set := sensor.NewSet()
	var failed int
	for _, src := range []sensor.Source{sources.Humidity, sources.Water, sources.Flow, sources.PH, sources.Oxygen} {
		if src == nil {
			continue
		}
		rs, err := src.Acquire(now())
		var ae *sensor.AcquireError
		if errors.As(err, &ae) && ae.Code == sensor.CodeNotConverted {
			sleep(conversionWait)
			rs, err = src.Acquire(now())
		}
		set.Update(rs)
		if err != nil {
			set.Fail(src.Channels(), err)
			failed++
		}
	}

	for _, ch := range sensor.Channels {
		e := set.Get(ch)
		title, unit := logic.Label(ch)
		switch {
		case e.HasValue():
			fmt.Fprintf(w, "%s: %s\n", title, strings.TrimSpace(fmt.Sprintf("%.2f %s", e.Reading.Value, unit)))
		case e.LastError != "":
			fmt.Fprintf(w, "%s: error (%s)\n", title, e.LastError)
		default:
			fmt.Fprintf(w, "%s: --\n", title)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d source(s) failed", failed)
	}
	return nil
}

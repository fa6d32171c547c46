// Command adaptive-tx samples a battery voltage and decides when a sensor
// node may transmit, publishing telemetry to MQTT at a rate matched to the
// remaining charge.
package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sweeney/adaptive-tx/internal/adc"
	"github.com/sweeney/adaptive-tx/internal/broker"
	"github.com/sweeney/adaptive-tx/internal/config"
	"github.com/sweeney/adaptive-tx/internal/gpio"
	"github.com/sweeney/adaptive-tx/internal/logic"
	"github.com/sweeney/adaptive-tx/internal/mqtt"
	"github.com/sweeney/adaptive-tx/internal/status"
	"github.com/sweeney/adaptive-tx/internal/web"
)

func main() {
	cli, err := config.LoadCLI()
	if err != nil {
		logrus.Fatalf("config: %v", err)
	}

	level, err := logrus.ParseLevel(cli.LogLevel)
	if err != nil {
		logrus.Fatalf("log level: %v", err)
	}
	logrus.SetLevel(level)

	if err := run(cli); err != nil {
		logrus.Fatalf("fatal: %v", err)
	}
}

func run(cli *config.CLI) error {
	profile, err := config.Load(cli.Profile)
	if err != nil {
		return fmt.Errorf("load profile: %w", err)
	}
	if err := profile.Validate(); err != nil {
		logrus.Warnf("profile %s: %v", cli.Profile, err)
	}

	cfg := profile.Controller()
	if cli.Source != config.SourceModbusVolts && cfg.ADCChannel == logic.NoChannel {
		logrus.Warnf("profile has no adc channel, sampling channel 0")
		cfg.ADCChannel = 0
	}

	sampler, meter, closer, err := openSource(cli, profile)
	if err != nil {
		return fmt.Errorf("open %s source: %w", cli.Source, err)
	}
	if closer != nil {
		defer closer.Close()
	}

	start := time.Now()
	ctrl := logic.NewController(cfg, sampler, 0)

	// Print state mode
	if cli.Once {
		if meter != nil {
			v, err := meter.ReadVolts()
			if err != nil {
				return fmt.Errorf("read volts: %w", err)
			}
			ctrl.SetBatteryVolts(v)
		}
		ctrl.Tick(0)
		st := ctrl.State()
		fmt.Printf("volts: %.3f, level: %s, cutoff: %v\n", st.Volts, st.Level, st.Cutoff)
		return nil
	}

	if cli.EmbeddedBroker != "" {
		b, err := broker.Start(cli.EmbeddedBroker)
		if err != nil {
			return fmt.Errorf("start broker: %w", err)
		}
		defer b.Close()
		if err := b.Watch(mqtt.TopicSystem, func(topic string, payload []byte) {
			logrus.Debugf("broker: %s %s", topic, payload)
		}); err != nil {
			logrus.Warnf("broker: watch %s: %v", mqtt.TopicSystem, err)
		}
	}

	publisher, err := mqtt.NewRealPublisher(cli.Broker, cli.ClientID)
	if err != nil {
		return fmt.Errorf("init mqtt: %w", err)
	}
	defer publisher.Close()

	var line gpio.Line = gpio.NopLine{}
	if cli.TXPin >= 0 {
		rl, err := gpio.NewRealLine(cli.TXPin)
		if err != nil {
			return fmt.Errorf("init gpio: %w", err)
		}
		line = rl
	}
	defer line.Close()

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(start, status.Config{
		NodeID:   cli.NodeID,
		Source:   cli.Source,
		PollMs:   cli.Poll.Milliseconds(),
		Broker:   cli.Broker,
		HTTPAddr: cli.HTTP,
	})
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}
	tracker.SetMQTTConnected(publisher.IsConnected())

	snap := tracker.Snapshot()
	startupEvent := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      mqtt.EventStartup,
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, mqtt.EventStartup, ""),
	}
	if err := publisher.PublishSystem(startupEvent); err != nil {
		logrus.Warnf("failed to publish startup event: %v", err)
	} else {
		logrus.Info("published startup event")
	}

	updates := make(chan logic.Settings, 1)
	if cli.HTTP != "" {
		srv := web.New(cli.HTTP, tracker, updates)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logrus.Errorf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		logrus.Infof("http status server listening on %s", cli.HTTP)
	}

	logrus.Infof("started: node=%s source=%s poll=%v broker=%s", cli.NodeID, cli.Source, cli.Poll, cli.Broker)

	ticker := time.NewTicker(cli.Poll)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	l := &loop{
		ctrl:       ctrl,
		meter:      meter,
		publisher:  publisher,
		mqttStatus: publisher,
		line:       line,
		tracker:    tracker,
		updates:    updates,
		nodeID:     cli.NodeID,
		start:      start,
		now:        time.Now,
	}
	return l.run(ticker.C, sigCh)
}

// openSource builds the voltage source selected on the command line. Exactly
// one of sampler and meter is non-nil.
func openSource(cli *config.CLI, profile *config.Profile) (logic.Sampler, adc.VoltMeter, io.Closer, error) {
	switch cli.Source {
	case config.SourceSerial:
		s, err := adc.OpenSerial(cli.SerialPort, cli.SerialBaud, time.Second)
		if err != nil {
			return nil, nil, nil, err
		}
		return adc.NewPaced(s, profile.ADC.SampleDelay), nil, s, nil

	case config.SourceModbus:
		client, closer, err := adc.DialModbus(cli.ModbusAddr, byte(cli.ModbusSlave), cli.ModbusTimeout)
		if err != nil {
			return nil, nil, nil, err
		}
		s := adc.NewModbusSampler(client, closer, uint16(cli.ModbusRegister))
		return adc.NewPaced(s, profile.ADC.SampleDelay), nil, closer, nil

	case config.SourceModbusVolts:
		client, closer, err := adc.DialModbus(cli.ModbusAddr, byte(cli.ModbusSlave), cli.ModbusTimeout)
		if err != nil {
			return nil, nil, nil, err
		}
		return nil, adc.NewModbusVoltMeter(client, closer, uint16(cli.ModbusRegister), cli.ModbusScale), closer, nil

	case config.SourceFake:
		return adc.NewFakeSampler(uint16(cli.FakeCount)), nil, nil, nil
	}
	return nil, nil, nil, fmt.Errorf("unknown source %q", cli.Source)
}

// loop owns the controller. Everything else reads its state through the
// tracker.
type loop struct {
	ctrl       *logic.Controller
	meter      adc.VoltMeter // non-nil when readings are injected
	publisher  mqtt.Publisher
	mqttStatus mqtt.ConnectionStatus
	line       gpio.Line
	tracker    *status.Tracker
	updates    <-chan logic.Settings
	nodeID     string
	start      time.Time
	now        func() time.Time

	cutoffAnnounced bool // a CUTOFF event is outstanding
}

func (l *loop) run(tick <-chan time.Time, sig <-chan os.Signal) error {
	for {
		select {
		case s := <-sig:
			l.shutdown(s)
			return nil

		case s := <-l.updates:
			l.ctrl.Apply(s)
			st := l.ctrl.State()
			logrus.Infof("settings applied: high=%.3f mid=%.3f hysteresis=%.3f period=%dms",
				st.Thresholds.High, st.Thresholds.Mid, st.Thresholds.Hysteresis, st.PeriodMs)
			l.tracker.UpdateSettings(st)

		case <-tick:
			l.cycle(l.now())
		}
	}
}

// cycle runs one controller evaluation at wall time t.
func (l *loop) cycle(t time.Time) {
	if l.meter != nil {
		v, err := l.meter.ReadVolts()
		if err != nil {
			logrus.Warnf("volt meter read error: %v", err)
		} else {
			l.ctrl.SetBatteryVolts(v)
		}
	}

	prevLevel := l.ctrl.Level()
	send := l.ctrl.Tick(logic.Millis(l.start, t))
	if err := l.line.Set(send); err != nil {
		logrus.Warnf("tx line: %v", err)
	}

	st := l.ctrl.State()
	l.tracker.Update(st)
	if l.mqttStatus != nil {
		l.tracker.SetMQTTConnected(l.mqttStatus.IsConnected())
	}

	// The zero cache before the first reading also blocks transmits but is
	// not announced.
	switch {
	case st.Cutoff && st.Measured && !l.cutoffAnnounced:
		l.cutoffAnnounced = true
		logrus.Warnf("cutoff: %.3fV below %.3fV, transmissions suspended", st.Volts, st.CutoffVolts)
		l.systemEvent(t, mqtt.EventCutoff, fmt.Sprintf("%.3fV", st.Volts))
	case st.Cutoff && !st.Measured:
		logrus.Debugf("no battery reading yet, transmissions held")
	case !st.Cutoff && l.cutoffAnnounced:
		l.cutoffAnnounced = false
		logrus.Infof("recovered: %.3fV", st.Volts)
		l.systemEvent(t, mqtt.EventRecovered, fmt.Sprintf("%.3fV", st.Volts))
	}
	if st.Level != prevLevel {
		reason := prevLevel.String() + "->" + st.Level.String()
		logrus.Infof("level: %s at %.3fV, period now %dms", reason, st.Volts, st.PeriodMs)
		l.systemEvent(t, mqtt.EventLevelChange, reason)
	}

	if !send {
		return
	}
	l.tracker.MarkTransmit(t)
	logrus.Debugf("transmit: %.3fV level=%s next=%d", st.Volts, st.Level, st.NextSend)
	if err := l.publisher.Publish(mqtt.Report{Timestamp: t, NodeID: l.nodeID, State: st}); err != nil {
		// Don't crash on publish failure
		logrus.Warnf("publish error: %v", err)
	}
}

func (l *loop) systemEvent(t time.Time, name, reason string) {
	event := mqtt.SystemEvent{
		Timestamp:  t,
		Event:      name,
		Reason:     reason,
		RawPayload: status.FormatStatusEvent(l.tracker.Snapshot(), name, reason),
	}
	if err := l.publisher.PublishSystem(event); err != nil {
		logrus.Warnf("failed to publish %s event: %v", name, err)
	}
}

func (l *loop) shutdown(s os.Signal) {
	logrus.Infof("received %v, shutting down", s)
	signalName := "UNKNOWN"
	if s == syscall.SIGINT {
		signalName = "SIGINT"
	} else if s == syscall.SIGTERM {
		signalName = "SIGTERM"
	}

	if err := l.line.Set(false); err != nil {
		logrus.Warnf("tx line: %v", err)
	}
	if l.mqttStatus != nil {
		l.tracker.SetMQTTConnected(l.mqttStatus.IsConnected())
	}
	event := mqtt.SystemEvent{
		Timestamp:  l.now(),
		Event:      mqtt.EventShutdown,
		Reason:     signalName,
		Retained:   true,
		RawPayload: status.FormatStatusEvent(l.tracker.Snapshot(), mqtt.EventShutdown, signalName),
	}
	if err := l.publisher.PublishSystem(event); err != nil {
		logrus.Warnf("failed to publish shutdown event: %v", err)
	} else {
		logrus.Info("published shutdown event")
	}
}

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

func readNetworkInfo() *status.NetworkInfo {
	s := os.Getenv(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       os.Getenv(envNetworkType),
		IP:         os.Getenv(envNetworkIP),
		Status:     s,
		Gateway:    os.Getenv(envNetworkGateway),
		WifiStatus: os.Getenv(envNetworkWifiStatus),
		SSID:       os.Getenv(envNetworkWifiSSID),
	}
}

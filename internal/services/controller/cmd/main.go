package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/joho/godotenv"

	"github.com/arcfarm/irrigation-backend/internal/logger"
	"github.com/arcfarm/irrigation-backend/internal/services/controller"
	"github.com/arcfarm/irrigation-backend/internal/services/gateway/app"
	"github.com/arcfarm/irrigation-backend/internal/services/ingress"
	"github.com/arcfarm/irrigation-backend/internal/services/notify"
	"github.com/arcfarm/irrigation-backend/internal/services/ords"
	"github.com/arcfarm/irrigation-backend/internal/services/recorder"
	"github.com/arcfarm/irrigation-backend/internal/services/scheduler"
	"github.com/arcfarm/irrigation-backend/pkg/mqttlink"
)

func envStr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func main() {
	_ = godotenv.Load()
	logger.SetLevel(envStr("LOG_LEVEL", "info"))
	defer logger.Sync()

	// === Config ===
	cfg := struct {
		Mqtt           mqttlink.Config
		TelemetryTopic string
		ControlTopic   string

		OrdsBase  string
		DeviceUID string

		InfluxURL    string
		InfluxToken  string
		InfluxOrg    string
		InfluxBucket string

		HTTPAddr           string
		AutoOffMinutes     int
		DefaultDurationMin int
		Timezone           string
	}{
		Mqtt: mqttlink.Config{
			Host:     envStr("MQTT_HOST", "localhost"),
			Port:     envInt("MQTT_PORT", 1883),
			User:     envStr("MQTT_USER", "guest"),
			Password: envStr("MQTT_PASSWORD", "guest"),
			ClientID: envStr("HOSTNAME", "pump-controller"),
		},
		TelemetryTopic: envStr("TELEMETRY_TOPIC", "pump/telemetry"),
		ControlTopic:   envStr("CONTROL_TOPIC", "pump/control"),

		OrdsBase:  envStr("ORDS_BASE_URL", "http://localhost:8081/ords/irrigation"),
		DeviceUID: envStr("DEVICE_UID", "pump-001"),

		InfluxURL:    envStr("INFLUX_URL", "http://localhost:8086"),
		InfluxToken:  os.Getenv("INFLUX_TOKEN"),
		InfluxOrg:    envStr("INFLUX_ORG", "arcfarm"),
		InfluxBucket: envStr("INFLUX_BUCKET", "irrigation"),

		HTTPAddr:           envStr("HTTP_ADDR", ":8000"),
		AutoOffMinutes:     envInt("AUTO_OFF_MINUTES", 30),
		DefaultDurationMin: envInt("DEFAULT_DURATION_MIN", 15),
		Timezone:           envStr("TZ_NAME", "Local"),
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		logger.Warnf("unknown timezone %q, using local", cfg.Timezone)
		loc = time.Local
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// === MQTT ===
	mqttClient, err := mqttlink.Connect(ctx, &cfg.Mqtt)
	if err != nil {
		logger.Fatalf("mqtt: %v", err)
	}
	actuator := mqttlink.NewPublisher(mqttClient, cfg.ControlTopic, 1)
	telemetry := mqttlink.NewConsumer(mqttClient, cfg.TelemetryTopic, 1, nil)

	// === ORDS store + notification sink ===
	store := ords.NewClient(cfg.OrdsBase, cfg.DeviceUID, 10*time.Second)
	sink := notify.New(store, 256)
	go sink.Start(ctx)

	// === Arbitrator ===
	state := controller.NewControlState()
	ctrl, err := controller.New(state, actuator, sink, controller.Config{
		AutoOffDuration: time.Duration(cfg.AutoOffMinutes) * time.Minute,
	})
	if err != nil {
		logger.Fatalf("controller: %v", err)
	}

	// Settings row is authoritative when present; otherwise persist the
	// defaults so the dashboard sees them.
	loadCtx, loadCancel := context.WithTimeout(ctx, 15*time.Second)
	if s, err := store.GetSettings(loadCtx); err != nil {
		logger.Warnf("settings load failed, using defaults: %v", err)
	} else if s == nil {
		if err := store.SaveSettings(loadCtx, ctrl.Settings()); err != nil {
			logger.Warnf("could not persist default settings: %v", err)
		}
	} else if err := ctrl.ApplySettings(*s); err != nil {
		logger.Warnf("stored settings invalid, using defaults: %v", err)
	}
	loadCancel()

	// === InfluxDB history ===
	influx := influxdb2.NewClient(cfg.InfluxURL, cfg.InfluxToken)
	defer influx.Close()
	rec := recorder.New(influx.WriteAPI(cfg.InfluxOrg, cfg.InfluxBucket), cfg.DeviceUID)
	ctrl.Subscribe(rec)

	// === Schedule triggers ===
	cron := scheduler.NewCron(loc)
	go cron.Run(ctx)
	compiler := scheduler.NewCompiler(cron, ctrl)

	schedCtx, schedCancel := context.WithTimeout(ctx, 15*time.Second)
	if recs, err := store.ActiveSchedules(schedCtx); err != nil {
		logger.Warnf("schedule load failed, starting with none: %v", err)
	} else {
		n := compiler.Reload(recs)
		logger.Infof("compiled %d schedule(s)", n)
	}
	schedCancel()

	// === Telemetry ingress ===
	ing := ingress.New(telemetry, ctrl, rec)
	go ing.Start(ctx)

	// === Gateway ===
	gw := app.NewGateway(app.Config{
		Addr:               cfg.HTTPAddr,
		DeviceUID:          cfg.DeviceUID,
		DefaultDurationMin: cfg.DefaultDurationMin,
		TZ:                 loc,
	}, ctrl, store, compiler)
	ctrl.Subscribe(gw.Hub())
	go func() {
		if err := gw.Serve(ctx); err != nil {
			logger.Errorf("gateway: %v", err)
		}
	}()

	sink.LogAudit("SYSTEM_START", "Pump controller started", "System", "INFO")
	sink.CreateAlert("SYSTEM_START", "Irrigation backend online", "INFO")

	// === Wait for signal ===
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh
	logger.Infof("shutting down...")

	// Pump off before the transport goes away; triggers stop with ctx.
	ctrl.Shutdown()
	sink.LogAudit("SYSTEM_STOP", "Pump controller stopped", "System", "INFO")
	time.Sleep(500 * time.Millisecond) // let the sink drain
	cancel()
	rec.Flush()
}

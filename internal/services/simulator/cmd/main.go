package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/arcfarm/irrigation-backend/internal/logger"
	"github.com/arcfarm/irrigation-backend/internal/services/simulator"
	"github.com/arcfarm/irrigation-backend/pkg/mqttlink"
)

func envStr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func main() {
	_ = godotenv.Load()

	clientID := flag.String("client-id", "pump-node-sim", "MQTT client ID")
	interval := flag.Duration("interval", 10*time.Second, "telemetry publish interval")
	seed := flag.Float64("moisture", 50, "starting moisture percent")
	gain := flag.Float64("gain", 0.6, "moisture gain per minute while pumping")
	decay := flag.Float64("decay", 0.05, "moisture decay per minute while idle")
	flowLpm := flag.Float64("flow-rate", 12.0, "nominal pump flow in liters per minute")
	flag.Parse()

	logger.SetLevel(envStr("LOG_LEVEL", "info"))
	defer logger.Sync()

	cfg := &mqttlink.Config{
		Host:     envStr("MQTT_HOST", "localhost"),
		Port:     1883,
		User:     envStr("MQTT_USER", "guest"),
		Password: envStr("MQTT_PASSWORD", "guest"),
		ClientID: *clientID,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client, err := mqttlink.Connect(ctx, cfg)
	if err != nil {
		logger.Fatalf("mqtt: %v", err)
	}

	publisher := mqttlink.NewPublisher(client, envStr("TELEMETRY_TOPIC", "pump/telemetry"), 1)
	consumer := mqttlink.NewConsumer(client, envStr("CONTROL_TOPIC", "pump/control"), 1, nil)

	model := simulator.NewMoistureModel(*seed, *gain, *decay)
	node := simulator.NewNode(consumer, publisher, model, *flowLpm)

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		<-sigCh
		cancel()
	}()

	node.Start(ctx, *interval)
}

package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/skyaid/missionengine/internal/config"
	"github.com/skyaid/missionengine/internal/delivery"
	"github.com/skyaid/missionengine/internal/engine"
	"github.com/skyaid/missionengine/internal/mission"
	"github.com/skyaid/missionengine/internal/monitor"
	"github.com/skyaid/missionengine/internal/mqttbus"
	"github.com/skyaid/missionengine/internal/status"
	"github.com/skyaid/missionengine/internal/telemetry"
	"github.com/skyaid/missionengine/internal/types"
)

var (
	defaultFlagSet    = flag.NewFlagSet(os.Args[0], flag.ContinueOnError)
	configPath        = defaultFlagSet.String("config", "", "Path to the engine config file")
	deviceID          = defaultFlagSet.String("device_id", "", "The provisioned device id")
	mqttBrokerAddress = defaultFlagSet.String("mqtt_broker", "", "MQTT broker protocol, address and port")
	missionsDir       = defaultFlagSet.String("missions_dir", "", "Directory holding mission definition files")
)

func main() {
	defaultFlagSet.Parse(os.Args[1:])

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal(err)
	}
	if *deviceID != "" {
		cfg.DeviceID = *deviceID
	}
	if *mqttBrokerAddress != "" {
		cfg.MQTT.BrokerURL = *mqttBrokerAddress
	}
	if *missionsDir != "" {
		cfg.MissionsDir = *missionsDir
	}

	// attach sigint & sigterm listeners
	terminationSignals := make(chan os.Signal, 1)
	signal.Notify(terminationSignals, syscall.SIGINT, syscall.SIGTERM)

	// quitFunc will be called when process is terminated
	ctx, quitFunc := context.WithCancel(context.Background())

	// wait group will make sure all goroutines have time to clean up
	var wg sync.WaitGroup

	mqttClient, err := mqttbus.NewClient(cfg.MQTT, cfg.DeviceID)
	if err != nil {
		log.Fatal(err)
	}
	defer mqttClient.Disconnect(1000)

	defaults := mission.Defaults{
		Speed:    cfg.Engine.DefaultSpeedMS,
		Altitude: cfg.Engine.DefaultAltitudeM,
	}
	loader := func(id string) (*mission.Mission, error) {
		return mission.FindAndLoad(cfg.MissionsDir, id, defaults)
	}

	handlers := []types.MessageHandler{
		engine.New(cfg.Engine, cfg.DeviceID, loader),
		delivery.New(cfg.DeviceID),
		status.New(cfg.DeviceID, cfg.Engine.StatusInterval),
		telemetry.New(cfg.DeviceID, cfg.Engine.TelemetryInterval),
		mqttbus.NewBridge(mqttClient, cfg.DeviceID),
		types.NewLogger(),
	}
	if cfg.Monitor.Enabled {
		handlers = append(handlers, monitor.New(cfg.Monitor.Addr))
	}

	bus := types.NewMessageBus(make(chan types.Message, 100), handlers...)
	go bus.Run(ctx, &wg)

	// wait for termination and close quit to signal all
	<-terminationSignals
	// cancel the main context
	log.Printf("Shutting down..")
	quitFunc()

	// wait until goroutines have done their cleanup
	log.Printf("Waiting for routines to finish...")
	wg.Wait()
	log.Printf("Signing off - BYE")
}

package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "smart_climate/docs"
	"smart_climate/internal/archive"
	"smart_climate/internal/climate"
	"smart_climate/internal/config"
	"smart_climate/internal/handlers"
	"smart_climate/internal/homeassistant"
	"smart_climate/internal/logger"
	"smart_climate/internal/mqtt"
	"smart_climate/internal/repository"
	"smart_climate/internal/repository/db"
	"smart_climate/internal/server"
	"smart_climate/internal/service"
)

// @title                      Smart Climate API
// @version                    1.0
// @description                Dual-device climate controller: presets, target temperature, state and event log.
// @BasePath                   /
// @securityDefinitions.apikey BearerAuth
// @in                         header
// @name                       Authorization
func main() {
	// load configs/config.yml + SMART_CLIMATE_* env
	cfg, err := config.Load()
	if err != nil {
		logger.Get(logger.InfoLevel).Fatalw("error reading config", "err", err)
	}

	// init logger
	log := logger.Get(cfg.Log.Level, cfg.Log.Encoding)
	defer func() { _ = log.Sync() }()

	// open DB
	conn, err := openDB(cfg.DB.Path, log)
	if err != nil {
		log.Fatalw("failed to init sqlite", "err", err)
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil {
			log.Errorw("failed to close sqlite", "err", cerr)
		}
	}()

	// context for background goroutines
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// device backends
	sensors, devices, closeBackends, err := openBackends(cfg, log)
	if err != nil {
		log.Fatalw("failed to init device backends", "err", err)
	}
	defer closeBackends()

	// controllers
	reg, err := buildRegistry(cfg, sensors, devices, log)
	if err != nil {
		log.Fatalw("failed to build controllers", "err", err)
	}

	// wire dependencies
	opts := service.Options{
		Auth: service.AuthConfig{SigningKey: cfg.Auth.SigningKey, TokenTTL: cfg.Auth.TokenTTL},
		Log:  log,
	}
	if cfg.Archive.Enabled {
		w, err := archive.NewS3Writer(ctx, archive.Options{
			Bucket:       cfg.Archive.Bucket,
			Region:       cfg.Archive.Region,
			Endpoint:     cfg.Archive.Endpoint,
			UsePathStyle: cfg.Archive.UsePathStyle,
		}, log)
		if err != nil {
			log.Fatalw("failed to init archive", "err", err)
		}
		opts.Archive = w
		opts.ArchivePrefix = cfg.Archive.Prefix
	}

	repos := repository.NewRepository(conn)
	services := service.NewService(repos, reg, opts)
	apiHandler := handlers.NewHandler(services, log)

	// restore persisted preset/target before the first evaluation
	if err := services.Restore(ctx); err != nil {
		log.Warnw("restore state failed", "err", err)
	}

	// background loops
	go services.Scheduler.Run(ctx, cfg.Scheduler.Interval)
	if services.Archiver != nil {
		go services.Archiver.Run(ctx, cfg.Archive.Interval)
	}

	// start HTTP server
	srv := server.New(server.Timeouts{
		ReadHeader: cfg.HTTP.ReadHeaderTimeout,
		Write:      cfg.HTTP.WriteTimeout,
		Idle:       cfg.HTTP.IdleTimeout,
	})
	runHTTPServer(srv, cfg.Port, apiHandler, log)

	// graceful shutdown
	waitForShutdown(cancel, srv, cfg.HTTP.ShutdownTimeout, log)
}

// openDB initializes the SQLite database at path.
func openDB(path string, log *logger.Logger) (*sql.DB, error) {
	if path == "" {
		log.Infow("db.path not set in config; using default file", "default", "app.db")
		path = "app.db"
	}
	return db.InitDB(path)
}

// openBackends builds the sensor reader and device commander selected in config.
// The returned func releases the broker connection, if any.
func openBackends(cfg *config.Config, log *logger.Logger) (climate.SensorReader, climate.DeviceCommander, func(), error) {
	closeFn := func() {}

	var ha *homeassistant.Client
	if cfg.Sensors.Source == config.BackendHomeAssistant || cfg.Devices.Target == config.BackendHomeAssistant {
		ha = homeassistant.NewClient(cfg.HomeAssistant.URL, cfg.HomeAssistant.Token, cfg.HomeAssistant.Timeout, log)
		if !ha.IsConfigured() {
			log.Warnw("home assistant url or token missing; sensors read as unavailable and commands fail")
		}
	}

	var mc *mqtt.RealClient
	if cfg.UsesMQTT() {
		var err error
		mc, err = mqtt.NewRealClient(mqtt.Options{
			Broker:   cfg.MQTT.Broker,
			ClientID: cfg.MQTT.ClientID,
			Username: cfg.MQTT.Username,
			Password: cfg.MQTT.Password,
		}, log)
		if err != nil {
			return nil, nil, closeFn, err
		}
		closeFn = func() { _ = mc.Close() }
	}
	qos := byte(cfg.MQTT.QoS)

	var sensors climate.SensorReader = ha
	if cfg.Sensors.Source == config.BackendMQTT {
		cache := mqtt.NewSensorCache(mc, cfg.MQTT.SensorTopics(), qos, cfg.MQTT.SensorMaxAge, log)
		if err := cache.Start(); err != nil {
			closeFn()
			return nil, nil, func() {}, err
		}
		sensors = cache
	}

	var devices climate.DeviceCommander = ha
	if cfg.Devices.Target == config.BackendMQTT {
		devices = mqtt.NewCommander(mc, cfg.MQTT.TopicPrefix, qos, log)
	}
	return sensors, devices, closeFn, nil
}

// buildRegistry creates one controller per configured device pair.
func buildRegistry(cfg *config.Config, sensors climate.SensorReader, devices climate.DeviceCommander, log *logger.Logger) (*service.Registry, error) {
	reg, err := service.NewRegistry()
	if err != nil {
		return nil, err
	}
	for _, cc := range cfg.ClimateConfigs() {
		ctrl, err := climate.NewController(cc, sensors, devices, climate.WithLogger(log))
		if err != nil {
			return nil, err
		}
		if err := reg.Add(ctrl); err != nil {
			return nil, err
		}
		log.Infow("controller_registered", "id", cc.ID, "name", cc.DisplayName(), "main", cc.PrimaryDevice, "second", cc.SecondaryDevice)
	}
	return reg, nil
}

// runHTTPServer runs the HTTP server in a separate goroutine.
func runHTTPServer(srv *server.Server, port string, handler *handlers.Handler, log *logger.Logger) {
	go func() {
		if port == "" {
			port = "8080"
		}
		if err := srv.Run(port, handler.InitRoutes()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("error starting server", "err", err)
		}
	}()
}

// waitForShutdown listens for termination signals and performs graceful shutdown.
func waitForShutdown(cancel context.CancelFunc, srv *server.Server, timeout time.Duration, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infow("shutting down server...")

	// stop background goroutines
	cancel()

	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
	defer shutdownCancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Errorw("server forced to shutdown", "err", err)
	}
}

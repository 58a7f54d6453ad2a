package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/papertags/smart-papertags-app/config"
	"github.com/papertags/smart-papertags-app/internal/api/tagsapi"
	"github.com/papertags/smart-papertags-app/internal/auth"
	"github.com/papertags/smart-papertags-app/internal/broker/kafka"
	"github.com/papertags/smart-papertags-app/internal/cache/rediscache"
	"github.com/papertags/smart-papertags-app/internal/integrations/geoip"
	"github.com/papertags/smart-papertags-app/internal/services/scans"
	"github.com/papertags/smart-papertags-app/internal/services/tags"
	"github.com/papertags/smart-papertags-app/internal/storage/pgtags"
)

type tagAPIApp struct {
	ctx      context.Context
	cancel   context.CancelFunc
	opts     tagAPIOpts
	api      *tagsapi.API
	pipeline *scans.Pipeline
	closeDB  func()
}

func mustBootstrapTagAPI() *tagAPIApp {
	cfgPath := os.Getenv("configPath")
	if cfgPath == "" {
		panic("configPath env var is required")
	}
	swaggerPath := os.Getenv("swaggerPath")
	if swaggerPath == "" {
		panic("swaggerPath env var is required")
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		panic(fmt.Sprintf("failed to parse config, %v", err))
	}
	if cfg.PaperTags.AuthTokenSecret == "" {
		panic("papertags.auth_token_secret is required")
	}

	httpAddr := cfg.PaperTags.HTTPAddr
	if httpAddr == "" {
		httpAddr = ":8080"
	}
	baseURL := cfg.PaperTags.BaseURL
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	topic := cfg.Kafka.TagFoundTopicName
	if topic == "" {
		topic = "tag.found.v1"
	}

	tokenTTL := time.Duration(cfg.PaperTags.AuthTokenTTLSeconds) * time.Second
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	geoTimeout := time.Duration(cfg.PaperTags.GeoTimeoutMillis) * time.Millisecond
	if geoTimeout <= 0 {
		geoTimeout = 1500 * time.Millisecond
	}
	geoCacheTTL := time.Duration(cfg.PaperTags.GeoCacheTTLSeconds) * time.Second
	if geoCacheTTL <= 0 {
		geoCacheTTL = time.Hour
	}
	scanRateLimit := cfg.PaperTags.ScanRateLimitPerMinute
	if scanRateLimit <= 0 {
		scanRateLimit = 30
	}

	sslMode := cfg.Database.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	connString := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.Database.Username, cfg.Database.Password, cfg.Database.Host, cfg.Database.Port, cfg.Database.DBName, sslMode)
	st := mustOpenPostgresWithRetry(connString, 60*time.Second)

	redisAddr := fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port)
	rc := rediscache.New(redisAddr)
	rl := rediscache.NewRateLimiter(redisAddr)

	var geoClient geoip.Client
	if cfg.PaperTags.GeoProviderBaseURL == "static" {
		geoClient = geoip.NewStaticClient("Unknown City", "Unknown Region", "Unknown Country")
	} else {
		geoClient = geoip.NewIPAPIClient(cfg.PaperTags.GeoProviderBaseURL, geoTimeout)
	}
	resolver := geoip.NewResolver(geoClient, rc, geoCacheTTL, geoTimeout)

	brokers := []string{fmt.Sprintf("%s:%d", cfg.Kafka.Host, cfg.Kafka.Port)}
	producer := kafka.NewProducer(brokers)

	tagSvc := tags.NewService(st, st)
	pipeline := scans.NewPipeline(st, st, resolver, producer, topic, cfg.PaperTags.ScanWorkerConcurrency)
	tokens := auth.NewTokens(cfg.PaperTags.AuthTokenSecret, tokenTTL)

	if cfg.PaperTags.AdminBootstrapEmail != "" && cfg.PaperTags.AdminBootstrapPassword != "" {
		bootCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := tagSvc.EnsureAdmin(bootCtx, cfg.PaperTags.AdminBootstrapEmail, cfg.PaperTags.AdminBootstrapPassword, cfg.PaperTags.AdminBootstrapName); err != nil {
			cancel()
			panic(fmt.Sprintf("admin bootstrap failed: %v", err))
		}
		cancel()
	}

	api := tagsapi.NewAPI(tagSvc, pipeline, resolver, tokens, rl, scanRateLimit, baseURL, swaggerPath)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	return &tagAPIApp{
		ctx:    ctx,
		cancel: cancel,
		opts: tagAPIOpts{
			httpAddr:    httpAddr,
			swaggerPath: swaggerPath,
		},
		api:      api,
		pipeline: pipeline,
		closeDB:  st.Close,
	}
}

func mustOpenPostgresWithRetry(connString string, wait time.Duration) *pgtags.Storage {
	deadline := time.Now().Add(wait)
	var lastErr error
	for time.Now().Before(deadline) {
		st, err := pgtags.New(connString)
		if err == nil {
			return st
		}
		lastErr = err
		time.Sleep(1 * time.Second)
	}
	panic(fmt.Sprintf("postgres is not ready after %s: %v", wait, lastErr))
}

func (a *tagAPIApp) Close() {
	if a.cancel != nil {
		a.cancel()
	}
	if a.pipeline != nil {
		a.pipeline.Wait()
	}
	if a.closeDB != nil {
		a.closeDB()
	}
}

func (a *tagAPIApp) Run() error {
	return runTagAPI(a.ctx, a.opts, a.api, a.pipeline)
}

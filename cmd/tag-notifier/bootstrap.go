package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/papertags/smart-papertags-app/config"
	"github.com/papertags/smart-papertags-app/internal/broker/kafka"
	"github.com/papertags/smart-papertags-app/internal/integrations/mailer"
	"github.com/papertags/smart-papertags-app/internal/services/notifier"
)

type tagNotifierApp struct {
	ctx      context.Context
	cancel   context.CancelFunc
	opts     tagNotifierOpts
	notifier *notifier.Notifier
	consumer *kafka.Consumer
}

func newSender(cfg *config.Config) mailer.Sender {
	from := cfg.PaperTags.FromAddress
	if from == "" {
		from = "PaperTags <no-reply@papertags.local>"
	}

	switch cfg.PaperTags.NotifierTransport {
	case "resend":
		if cfg.PaperTags.ResendAPIKey == "" {
			panic("papertags.resend_api_key is required for the resend transport")
		}
		return mailer.NewResendSender("", cfg.PaperTags.ResendAPIKey, from)
	case "smtp":
		if cfg.PaperTags.SMTPHost == "" {
			panic("papertags.smtp_host is required for the smtp transport")
		}
		port := cfg.PaperTags.SMTPPort
		if port == 0 {
			port = 587
		}
		return mailer.NewSMTPSender(cfg.PaperTags.SMTPHost, port, cfg.PaperTags.SMTPUsername, cfg.PaperTags.SMTPPassword, from)
	default:
		return mailer.NewNoopSender()
	}
}

func mustBootstrapTagNotifier() *tagNotifierApp {
	cfgPath := os.Getenv("configPath")
	if cfgPath == "" {
		panic("configPath env var is required")
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		panic(fmt.Sprintf("failed to parse config, %v", err))
	}

	httpAddr := cfg.PaperTags.NotifierHTTPAddr
	if httpAddr == "" {
		httpAddr = ":8082"
	}
	topic := cfg.Kafka.TagFoundTopicName
	if topic == "" {
		topic = "tag.found.v1"
	}
	consumerGroup := cfg.PaperTags.KafkaConsumerGroup
	if consumerGroup == "" {
		consumerGroup = "tag-notifier"
	}

	brokers := []string{fmt.Sprintf("%s:%d", cfg.Kafka.Host, cfg.Kafka.Port)}
	consumer := kafka.NewConsumer(brokers, topic, consumerGroup)

	n := notifier.New(newSender(cfg))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	return &tagNotifierApp{
		ctx:    ctx,
		cancel: cancel,
		opts: tagNotifierOpts{
			httpAddr:      httpAddr,
			topic:         topic,
			consumerGroup: consumerGroup,
		},
		notifier: n,
		consumer: consumer,
	}
}

func (a *tagNotifierApp) Close() {
	if a.cancel != nil {
		a.cancel()
	}
	if a.consumer != nil {
		_ = a.consumer.Close()
	}
}

func (a *tagNotifierApp) Run() error {
	return runTagNotifier(a.ctx, a.opts, a.notifier, a.consumer)
}

package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/aq2208/goshop-api/configs"
	"github.com/aq2208/goshop-api/internal/adapter/mail"
	"github.com/aq2208/goshop-api/internal/adapter/queue"
	"github.com/aq2208/goshop-api/internal/logging"
	"github.com/aq2208/goshop-api/internal/usecase"
	"github.com/rabbitmq/amqp091-go"
)

func main() {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "dev"
	}

	cfg, err := configs.Load("configs", env)
	if err != nil {
		log.Fatal(err)
	}

	logging.Init("email-worker", cfg.App.LogFile)
	l := logging.New("worker")

	// Unlike the API, the worker has no purpose without the broker.
	conn, err := amqp091.Dial(cfg.Rabbit.URL)
	if err != nil {
		log.Fatalf("rabbitmq dial: %v", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		log.Fatalf("rabbitmq channel: %v", err)
	}
	if err := queue.DeclareTopology(ch); err != nil {
		log.Fatalf("declare topology: %v", err)
	}

	var sender mail.Sender
	if cfg.SMTP.Host != "" {
		s, err := mail.NewSMTPSender(cfg)
		if err != nil {
			log.Fatalf("smtp sender: %v", err)
		}
		sender = s
	} else {
		l.Info("smtp not configured, logging emails instead")
		sender = mail.LogSender{Log: l}
	}

	h := queue.NewOrderConfirmedHandler(sender, logging.New("order-confirmed"))

	router := queue.NewRouter(ch, queue.WithPrefetch(50))
	router.Register("order.confirmed.q", queue.JSONHandler[usecase.OrderConfirmedMsg]{HandleFunc: h.HandleConfirmed})
	if err := router.Start(); err != nil {
		log.Fatalf("start consumers: %v", err)
	}

	l.Info("email-worker running", "env", env)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	l.Info("email-worker shutting down")
}

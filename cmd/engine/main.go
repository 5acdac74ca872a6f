package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ignite/outreach-engine/internal/config"
	"github.com/ignite/outreach-engine/internal/domain"
	"github.com/ignite/outreach-engine/internal/lifecycle"
	"github.com/ignite/outreach-engine/internal/mailer"
	"github.com/ignite/outreach-engine/internal/ops"
	"github.com/ignite/outreach-engine/internal/pkg/logger"
	"github.com/ignite/outreach-engine/internal/scheduler"
	"github.com/ignite/outreach-engine/internal/store/postgres"
	"github.com/ignite/outreach-engine/internal/textgen"
	"github.com/ignite/outreach-engine/internal/worker"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	log.Println("Starting outreach engine...")

	cfg, err := config.LoadFromEnv(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger.SetLevel(logger.ParseLevel(cfg.Logging.Level))

	st, err := postgres.Open(cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer st.Close()
	log.Println("Connected to database")

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		opt, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			log.Fatalf("Failed to parse redis url: %v", err)
		}
		redisClient = redis.NewClient(opt)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			cancel()
			log.Fatalf("Failed to ping redis: %v", err)
		}
		cancel()
		defer redisClient.Close()
		log.Println("Connected to redis")
	}

	// Scheduler
	sched := scheduler.New(st, scheduler.NewRotation())
	sched.SetDB(st.DB())
	sched.SetPollInterval(cfg.Scheduler.PollInterval())
	sched.SetEmitter(worker.NewWebhookEmitter(st, "[Scheduler]"))
	if redisClient != nil {
		sched.SetRedisClient(redisClient)
	}
	if err := sched.Start(); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}

	// Lead transition observers
	notifier := lifecycle.NewNotifier(lifecycle.ObserverFunc{
		ObserverName: "audit-log",
		Fn: func(ctx context.Context, change domain.LeadChange) error {
			logger.Info("lead transition",
				"lead_id", change.LeadID, "from", string(change.From),
				"to", string(change.To), "event", string(change.Event))
			return nil
		},
	})

	// Send workers
	transport := mailer.NewMailgun(cfg.Mailgun.BaseURL, cfg.Mailgun.APIKey)
	sendPool := worker.NewSendWorkerPool(st, transport, cfg.Sending.Workers)
	sendPool.SetSendsPerSecond(cfg.Sending.SendsPerSecond)
	sendPool.SetNotifier(notifier)
	if redisClient != nil {
		sendPool.SetDailyCounter(worker.NewDailyCounter(redisClient))
	}
	if err := sendPool.Start(); err != nil {
		log.Fatalf("Failed to start send workers: %v", err)
	}

	// Webhook dispatch
	webhookWorker := worker.NewWebhookWorker(st, nil, cfg.Webhooks.Workers)
	if err := webhookWorker.Start(); err != nil {
		log.Fatalf("Failed to start webhook workers: %v", err)
	}

	// Reply ingestion
	replies := worker.NewReplyProcessor(st, textgen.NewRuleBased())
	replies.SetNotifier(notifier)

	// Periodic jobs
	maintenance := ops.NewMaintenance(st)
	maintenance.SetEmitter(worker.NewWebhookEmitter(st, "[Maintenance]"))
	if err := maintenance.Start(); err != nil {
		log.Fatalf("Failed to start maintenance cron: %v", err)
	}

	// Ops HTTP surface
	server := ops.NewServer(fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port))
	server.SetDB(st.DB())
	server.SetReplyIngester(replies)
	server.SetLeadAdmin(st)
	server.Register("scheduler", sched)
	server.Register("send_workers", sendPool)
	server.Register("webhook_workers", webhookWorker)
	server.Start()

	log.Println("Engine running")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Stop(shutdownCtx); err != nil {
		log.Printf("Ops server shutdown: %v", err)
	}

	maintenance.Stop()
	sched.Stop()
	sendPool.Stop()
	webhookWorker.Stop()

	log.Println("Shutdown complete")
}

// Command relay runs the Outbox Relay: it polls the outbox table,
// publishes claimed rows to Kafka, and retries failed deliveries
// through the dead-letter queue until quarantine.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ledgerevents/internal/config"
	"ledgerevents/internal/schema"
	"ledgerevents/pkg/bus"
	"ledgerevents/pkg/eventstore"
	"ledgerevents/pkg/outbox"
)

func main() {
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := eventstore.NewPool(ctx, eventstore.PoolConfig{
		DSN:      cfg.PostgresDSN,
		MinConns: cfg.DBMinConns,
		MaxConns: cfg.DBMaxConns,
	})
	if err != nil {
		log.Fatalf("relay: connect: %v", err)
	}
	defer pool.Close()

	if err := schema.Apply(ctx, pool); err != nil {
		log.Fatalf("relay: apply schema: %v", err)
	}

	adapter := bus.NewKafkaAdapter(cfg.KafkaBrokers)
	defer adapter.Close()

	dlq := outbox.NewDLQ(pool, cfg.RelayMaxAttempts, cfg.RelayDLQBaseDelay)
	dispatcher := outbox.NewDispatcher(pool, adapter, dlq, cfg.RelayPollInterval, cfg.RelayBatchSize)

	metricsSrv := &http.Server{Addr: cfg.MetricsAddress, Handler: promhttp.Handler()}
	go func() {
		log.Printf("relay: metrics listening on %s", cfg.MetricsAddress)
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("relay: metrics server error: %v", err)
		}
	}()

	go dispatcher.Start(ctx)
	go runDLQRetryLoop(ctx, dlq, cfg.RelayPollInterval, cfg.RelayBatchSize)

	log.Printf("relay: started, polling every %s in batches of %d", cfg.RelayPollInterval, cfg.RelayBatchSize)

	<-ctx.Done()
	log.Println("relay: shutting down")
	dispatcher.Wait()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		log.Printf("relay: metrics server shutdown error: %v", err)
	}
}

// runDLQRetryLoop periodically requeues due DLQ entries back into the
// outbox table and refreshes the backlog gauge. It runs at the same
// cadence as the dispatcher's own poll interval but is independent of
// it, since a DLQ entry's next_retry_at can be much later than one
// poll away.
func runDLQRetryLoop(ctx context.Context, dlq *outbox.DLQ, interval time.Duration, batchSize int) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := dlq.RetryDue(ctx, batchSize); err != nil {
				log.Printf("relay: dlq retry: %v", err)
			}
			dlq.UpdateBacklogGauge(ctx)
		}
	}
}

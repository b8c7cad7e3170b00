// Command salesdash-notify asks every running dashboard to drop its
// cached dataset, typically after the source workbooks were replaced.
package main

import (
	"context"
	"flag"
	"os"
	"strings"
	"time"

	"salesdash/internal/amqp"
	"salesdash/internal/cli"
	"salesdash/internal/log"
)

func main() {
	reason := flag.String("reason", "source data updated", "reason recorded with the refresh request")
	timeout := flag.Duration("timeout", 10*time.Second, "publish timeout")
	flag.Parse()
	if flag.NArg() > 0 {
		*reason = strings.Join(flag.Args(), " ")
	}

	cli.LoadEnvFile()
	logger := cli.SetupLogger()
	cfg := cli.LoadAndValidateConfig(logger)

	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is not set, nothing to notify")
		os.Exit(1)
	}

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if err := client.PublishRefresh(ctx, *reason); err != nil {
		logger.Error("Failed to publish refresh", log.FieldError, err, log.FieldOperation, log.OpPublish)
		client.Close()
		os.Exit(1)
	}
	logger.Info("Refresh published", "reason", *reason)
}

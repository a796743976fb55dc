package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/ctp-segment-connector/internal/connector"
	"github.com/angelmondragon/ctp-segment-connector/pkg/commercetools"
	"github.com/angelmondragon/ctp-segment-connector/pkg/config"
	"github.com/angelmondragon/ctp-segment-connector/pkg/logger"
	"github.com/angelmondragon/ctp-segment-connector/pkg/pubsub"
)

const (
	cmdPostDeploy  = "post-deploy"
	cmdPreUndeploy = "pre-undeploy"
)

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "connector"})

	_ = godotenv.Load()

	cmd := flag.String("cmd", cmdPostDeploy, "lifecycle command: post-deploy|pre-undeploy")
	verifyTopic := flag.Bool("verify-topic", true, "check the Pub/Sub topic exists before subscribing (post-deploy)")
	flag.Parse()

	if *cmd != cmdPostDeploy && *cmd != cmdPreUndeploy {
		fmt.Fprintf(os.Stderr, "unknown -cmd %q\n", *cmd)
		os.Exit(2)
	}

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "connector",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})
	ctx = logg.WithFields(ctx, map[string]any{
		"env": cfg.App.Env,
		"cmd": *cmd,
	})

	ctp, err := commercetools.NewClient(ctx, commercetools.Credentials{
		ClientID:     cfg.Commercetools.ClientID,
		ClientSecret: cfg.Commercetools.ClientSecret,
		ProjectKey:   cfg.Commercetools.ProjectKey,
		AuthURL:      cfg.Commercetools.AuthURL,
		APIURL:       cfg.Commercetools.APIURL,
		Scopes:       cfg.Commercetools.ProjectScopes("manage_subscriptions"),
		Timeout:      cfg.Commercetools.Timeout,
	})
	requireResource(ctx, logg, "commercetools", err)

	params := connector.Params{
		Store:     ctp,
		Key:       cfg.Connector.SubscriptionKey,
		ProjectID: cfg.GCP.ProjectID,
		Topic:     pubsub.TopicID(cfg.PubSub.Topic),
		Logger:    logg,
	}

	if *cmd == cmdPostDeploy {
		requireResource(ctx, logg, "pubsub config", cfg.RequirePubSub(false))
		if *verifyTopic {
			pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
			requireResource(ctx, logg, "pubsub", err)
			defer pubsubClient.Close()
			params.Topics = pubsubClient
		}
	}

	svc, err := connector.NewService(params)
	requireResource(ctx, logg, "connector service", err)

	switch *cmd {
	case cmdPostDeploy:
		err = svc.PostDeploy(ctx)
	case cmdPreUndeploy:
		err = svc.PreUndeploy(ctx)
	}
	if err != nil {
		logg.Error(ctx, *cmd+" failed", err)
		os.Exit(1)
	}
	logg.Info(ctx, *cmd+" complete")
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}

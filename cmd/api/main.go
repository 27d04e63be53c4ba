package main

import (
	"flag"
	"log"

	"github.com/duohub-io/duohub/internal/account"
	"github.com/duohub-io/duohub/internal/api"
	"github.com/duohub-io/duohub/internal/auth"
	"github.com/duohub-io/duohub/internal/cache"
	"github.com/duohub-io/duohub/internal/config"
	"github.com/duohub-io/duohub/internal/database"
	"github.com/duohub-io/duohub/internal/imagestore"
	"github.com/duohub-io/duohub/internal/mail"
	"github.com/duohub-io/duohub/internal/store"
)

const version = "0.1.0"

func initializeAPI(configPath string) (*api.Api, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	db, err := database.Open(cfg)
	if err != nil {
		return nil, err
	}

	redisClient, err := cache.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return nil, err
	}

	mailer, err := mail.NewMailer(cfg.Mail.Host, cfg.Mail.Port, cfg.Mail.Username, cfg.Mail.Password, cfg.Mail.From)
	if err != nil {
		return nil, err
	}

	var images imagestore.Store
	if cfg.Images.Backend == "s3" {
		images, err = imagestore.NewS3(
			cfg.Images.S3.Endpoint, cfg.Images.S3.Region, cfg.Images.S3.Bucket,
			cfg.Images.S3.AccessKeyID, cfg.Images.S3.SecretAccessKey,
		)
		if err != nil {
			return nil, err
		}
	} else {
		images = imagestore.NewLocal(cfg.Images.LocalDir)
	}

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenDuration)
	revoked := cache.NewTokenCache(redisClient, cfg.Auth.TokenDuration)
	codes := cache.NewVerificationCache(redisClient)
	st := store.New(db, cfg.Database.Type)

	accounts := account.New(st, codes, revoked, tokens, mailer, images,
		cfg.Verification.CodeTTL, cfg.Images.PublicBase)

	return api.NewApi(*cfg, accounts, tokens, revoked), nil
}

func main() {
	configPath := flag.String("config", "app.yml", "Path to configuration file")
	flag.Parse()

	log.Printf("Starting DuoHub API v%s with config: %s", version, *configPath)

	api, err := initializeAPI(*configPath)
	if err != nil {
		log.Fatal(err)
	}

	api.Serve()
}

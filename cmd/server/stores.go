package main

import (
	"context"
	"fmt"

	goredis "github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	config "github.com/Developer-Keyithan/HND-Project-Shansi-Akka-sub000/configs"
	"github.com/Developer-Keyithan/HND-Project-Shansi-Akka-sub000/internal/core/domain/challenge"
	"github.com/Developer-Keyithan/HND-Project-Shansi-Akka-sub000/internal/core/ports"
	"github.com/Developer-Keyithan/HND-Project-Shansi-Akka-sub000/internal/infrastructure/db"
	"github.com/Developer-Keyithan/HND-Project-Shansi-Akka-sub000/internal/infrastructure/dynamo"
	"github.com/Developer-Keyithan/HND-Project-Shansi-Akka-sub000/internal/infrastructure/health"
	"github.com/Developer-Keyithan/HND-Project-Shansi-Akka-sub000/internal/infrastructure/repositories"
)

type challengeStores struct {
	registrations ports.ChallengeStore
	logins        ports.ChallengeStore
	// stores without storage-level expiry, swept by ChallengeSweeper
	sweepable      map[string]ports.ChallengeStore
	healthCheckers []ports.HealthChecker
}

func challengeKeyPrefix(p challenge.Purpose) string {
	return "app:challenge:" + p.String()
}

// buildChallengeStores picks a backend per purpose from configuration.
func buildChallengeStores(ctx context.Context, cfg *config.Config, database *db.Database, redisClient *goredis.Client, logger *logrus.Logger) (*challengeStores, error) {
	out := &challengeStores{sweepable: make(map[string]ports.ChallengeStore)}

	switch cfg.Challenge.RegistrationStore {
	case config.StorePostgres:
		out.registrations = repositories.NewChallengePostgresStore(database, challenge.PurposeRegistration, logger)
		out.sweepable["registration"] = out.registrations
	case config.StoreRedis:
		out.registrations = repositories.NewChallengeRedisStore(redisClient, challengeKeyPrefix(challenge.PurposeRegistration), cfg.Challenge.RedisGrace)
	case config.StoreDynamoDB:
		client, err := dynamo.NewClient(ctx, &cfg.Dynamo)
		if err != nil {
			return nil, err
		}
		if cfg.Dynamo.AutoCreate {
			if err := dynamo.EnsureChallengeTable(ctx, client, cfg.Dynamo.Table, logger); err != nil {
				return nil, err
			}
		}
		out.registrations = dynamo.NewChallengeStore(client, cfg.Dynamo.Table, challenge.PurposeRegistration, cfg.Challenge.RedisGrace)
		out.healthCheckers = append(out.healthCheckers, health.NewDynamoHealthChecker(client, cfg.Dynamo.Table))
	default:
		return nil, fmt.Errorf("unsupported registration store %q", cfg.Challenge.RegistrationStore)
	}

	switch cfg.Challenge.LoginStore {
	case config.StoreMemory:
		out.logins = repositories.NewChallengeMemoryStore()
		out.sweepable["login"] = out.logins
	case config.StoreRedis:
		out.logins = repositories.NewChallengeRedisStore(redisClient, challengeKeyPrefix(challenge.PurposeLogin), cfg.Challenge.RedisGrace)
	default:
		return nil, fmt.Errorf("unsupported login store %q", cfg.Challenge.LoginStore)
	}

	if logger != nil {
		logger.WithFields(logrus.Fields{
			"registration_store": cfg.Challenge.RegistrationStore,
			"login_store":        cfg.Challenge.LoginStore,
		}).Info("challenge stores configured")
	}
	return out, nil
}

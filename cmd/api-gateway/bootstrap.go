package main

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"go.uber.org/zap"

	"github.com/noah-isme/csi-attendance-api/internal/repository"
	"github.com/noah-isme/csi-attendance-api/internal/repository/firestoredb"
	"github.com/noah-isme/csi-attendance-api/internal/repository/memory"
	"github.com/noah-isme/csi-attendance-api/pkg/cache"
	"github.com/noah-isme/csi-attendance-api/pkg/config"
	"github.com/noah-isme/csi-attendance-api/pkg/database"
	"github.com/noah-isme/csi-attendance-api/pkg/push"
)

// backends holds the external dependencies selected by configuration.
type backends struct {
	store  repository.Store
	redis  *repository.CacheRepository
	sender push.Sender
	logger *zap.Logger
}

func openBackends(ctx context.Context, cfg *config.Config, logr *zap.Logger) (*backends, error) {
	b := &backends{logger: logr}

	var app *firebase.App
	firebaseApp := func() (*firebase.App, error) {
		if app != nil {
			return app, nil
		}
		var err error
		app, err = database.NewFirebaseApp(ctx, cfg.Firebase)
		return app, err
	}

	switch cfg.Store.Driver {
	case config.StoreMemory, "":
		b.store = memory.NewStore()
	case config.StorePostgres:
		db, err := database.NewPostgres(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		b.store = repository.NewPostgresStore(db)
	case config.StoreFirestore:
		fbApp, err := firebaseApp()
		if err != nil {
			return nil, err
		}
		client, err := database.NewFirestore(ctx, fbApp)
		if err != nil {
			return nil, err
		}
		b.store = firestoredb.NewStore(client)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}

	switch cfg.Notifications.Driver {
	case config.PushFCM:
		fbApp, err := firebaseApp()
		if err != nil {
			b.Close()
			return nil, err
		}
		sender, err := push.NewFCMSender(ctx, fbApp, logr)
		if err != nil {
			b.Close()
			return nil, err
		}
		b.sender = sender
	default:
		b.sender = push.NewLogSender(logr)
	}

	if cfg.Stats.CacheEnabled {
		client, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("statistics cache disabled, redis unavailable", zap.Error(err))
		} else {
			b.redis = repository.NewCacheRepository(client, logr)
		}
	}

	return b, nil
}

// Close releases every opened backend.
func (b *backends) Close() {
	if b.redis != nil {
		if err := b.redis.Close(); err != nil {
			b.logger.Warn("close redis", zap.Error(err))
		}
	}
	if err := b.store.Close(); err != nil {
		b.logger.Warn("close store", zap.Error(err))
	}
}

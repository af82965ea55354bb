package database

import (
	"context"
	"fmt"
	"time"

	"tourbook/config"
	"tourbook/database/docstore"
	"tourbook/utils"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// ConnectMongo opens and verifies a MongoDB connection.
func ConnectMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}
	return client, nil
}

// NewStore builds the document store selected by STORE_BACKEND, bounded by STORE_TIMEOUT.
func NewStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (docstore.Store, error) {
	var store docstore.Store

	switch cfg.StoreBackend {
	case "memory":
		store = docstore.NewMemoryStore()
		logger.Warn("Using in-memory document store; data is lost on restart")

	case "mongo":
		client, err := ConnectMongo(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		mongoStore := docstore.NewMongoStore(client, cfg.DatabaseName)
		if err := EnsureIndexes(ctx, mongoStore.Database()); err != nil {
			return nil, err
		}
		store = mongoStore
		logger.Info("Connected to MongoDB", zap.String("database", cfg.DatabaseName))

	case "firestore":
		app, err := utils.NewFirebaseApp(ctx, cfg)
		if err != nil {
			return nil, err
		}
		client, err := app.Firestore(ctx)
		if err != nil {
			return nil, fmt.Errorf("firebase: error getting Firestore client: %w", err)
		}
		store = docstore.NewFirestoreStore(client)
		logger.Info("Connected to Firestore", zap.String("project", cfg.FirebaseProjectID))

	default:
		return nil, fmt.Errorf("unknown STORE_BACKEND %q", cfg.StoreBackend)
	}

	return docstore.WithTimeout(store, cfg.StoreTimeout), nil
}

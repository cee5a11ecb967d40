package database

import (
	"context"
	"fmt"
	stdlog "log"
	"os"
	"time"

	"ideahub/internal/config"
	"ideahub/internal/model"
	"ideahub/internal/repository"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// OpenStore connects the backend selected by configuration
func OpenStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (repository.Store, error) {
	switch cfg.StoreBackend {
	case config.BackendMongo:
		client, err := NewMongoClient(ctx, cfg.MongoURI)
		if err != nil {
			return nil, err
		}
		store, err := repository.NewMongoStore(ctx, client, cfg.MongoDB)
		if err != nil {
			_ = client.Disconnect(context.Background())
			return nil, err
		}
		log.Info("connected to MongoDB", zap.String("database", cfg.MongoDB))
		return store, nil
	default:
		var dialector gorm.Dialector
		if cfg.DBDriver == config.DriverSQLite {
			dialector = sqlite.Open(cfg.SQLitePath)
		} else {
			dialector = postgres.Open(cfg.DatabaseDSN)
		}
		db, err := NewConnection(dialector)
		if err != nil {
			return nil, err
		}
		log.Info("connected to SQL database", zap.String("driver", cfg.DBDriver))
		return repository.NewGormStore(db), nil
	}
}

// NewConnection opens a GORM connection and migrates the core models
func NewConnection(dialector gorm.Dialector) (*gorm.DB, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger: gormlogger.New(stdlog.New(os.Stdout, "\r\n", stdlog.LstdFlags), gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate creates or updates the tables of every persisted entity
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.User{},
		&model.Profile{},
		&model.Idea{},
		&model.Evaluation{},
	); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	return nil
}

// NewMongoClient connects to MongoDB with the decimal-aware registry and verifies the connection
func NewMongoClient(ctx context.Context, uri string) (*mongo.Client, error) {
	clientOptions := options.Client().
		ApplyURI(uri).
		SetRegistry(repository.NewBSONRegistry()).
		SetConnectTimeout(20 * time.Second).
		SetServerSelectionTimeout(15 * time.Second).
		SetMaxPoolSize(50)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to create MongoDB client: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}
	return client, nil
}

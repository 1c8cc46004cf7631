package milvus

import (
	"context"
	"fmt"
	"time"

	"github.com/milvus-io/milvus/client/v2/entity"
	"github.com/milvus-io/milvus/client/v2/index"
	"github.com/milvus-io/milvus/client/v2/milvusclient"
)

const maxContentLength = 65535

type Config struct {
	Address    string
	Username   string
	Password   string
	Database   string
	Collection string
	Dimension  int
}

func New(ctx context.Context, cfg Config) (*milvusclient.Client, error) {
	dialCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	client, err := milvusclient.New(dialCtx, &milvusclient.ClientConfig{
		Address:  cfg.Address,
		Username: cfg.Username,
		Password: cfg.Password,
		DBName:   cfg.Database,
	})
	if err != nil {
		return nil, fmt.Errorf("connect milvus failed: %w", err)
	}

	if err := EnsureCollection(ctx, client, cfg.Collection, cfg.Dimension); err != nil {
		_ = client.Close(ctx)
		return nil, err
	}
	return client, nil
}

// EnsureCollection creates the chunk collection with its vector index when missing and loads it.
func EnsureCollection(ctx context.Context, client *milvusclient.Client, name string, dim int) error {
	exists, err := client.HasCollection(ctx, milvusclient.NewHasCollectionOption(name))
	if err != nil {
		return fmt.Errorf("check milvus collection failed: %w", err)
	}

	if !exists {
		schema := entity.NewSchema().
			WithName(name).
			WithDescription("document chunks").
			WithAutoID(true).
			WithField(entity.NewField().
				WithName("id").
				WithDataType(entity.FieldTypeInt64).
				WithIsPrimaryKey(true).
				WithIsAutoID(true)).
			WithField(entity.NewField().
				WithName("embedding").
				WithDataType(entity.FieldTypeFloatVector).
				WithDim(int64(dim))).
			WithField(entity.NewField().
				WithName("document_id").
				WithDataType(entity.FieldTypeInt64)).
			WithField(entity.NewField().
				WithName("position").
				WithDataType(entity.FieldTypeInt64)).
			WithField(entity.NewField().
				WithName("content").
				WithDataType(entity.FieldTypeVarChar).
				WithMaxLength(maxContentLength))

		if err := client.CreateCollection(ctx, milvusclient.NewCreateCollectionOption(name, schema)); err != nil {
			return fmt.Errorf("create milvus collection failed: %w", err)
		}

		idx := index.NewIvfFlatIndex(entity.COSINE, 128)
		task, err := client.CreateIndex(ctx, milvusclient.NewCreateIndexOption(name, "embedding", idx))
		if err != nil {
			return fmt.Errorf("create milvus index failed: %w", err)
		}
		if err := task.Await(ctx); err != nil {
			return fmt.Errorf("wait milvus index failed: %w", err)
		}
	}

	loadTask, err := client.LoadCollection(ctx, milvusclient.NewLoadCollectionOption(name))
	if err != nil {
		return fmt.Errorf("load milvus collection failed: %w", err)
	}
	if err := loadTask.Await(ctx); err != nil {
		return fmt.Errorf("wait milvus collection load failed: %w", err)
	}
	return nil
}

package main

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/skosovsky/agentrun"
	"github.com/skosovsky/agentrun/internal/config"
	"github.com/skosovsky/agentrun/snsfn"
	"github.com/skosovsky/agentrun/threadstore/mongostore"
	"github.com/skosovsky/agentrun/threadstore/redisstore"
)

// lazyPublisher resolves AWS credentials on the first publish, so commands that
// never execute a function do not need them.
type lazyPublisher struct {
	once   sync.Once
	client *sns.Client
	err    error
}

func (p *lazyPublisher) Publish(ctx context.Context, in *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
	p.once.Do(func() {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			p.err = fmt.Errorf("load aws config: %w", err)
			return
		}
		p.client = sns.NewFromConfig(awsCfg)
	})
	if p.err != nil {
		return nil, p.err
	}
	return p.client.Publish(ctx, in, optFns...)
}

// buildFunctions constructs one SNS function per declaration, registering each
// with reg. All functions share one publisher; cfg.Log also turns on schema
// export reporting.
func buildFunctions(
	cfg *config.Config,
	reg *agentrun.Registry,
	logger *slog.Logger,
	opts ...agentrun.FunctionOption,
) ([]agentrun.Function, error) {
	pub := &lazyPublisher{}
	fns := make([]agentrun.Function, 0, len(cfg.Functions))
	for _, decl := range cfg.Functions {
		fn, err := snsfn.New(decl.Name, decl.Description, decl.Parameters,
			snsfn.Config{Publisher: pub, TopicARN: decl.TopicARN, Logger: logger},
			append([]agentrun.FunctionOption{
				agentrun.WithRegistry(reg),
				agentrun.WithSchemaDir(cfg.SchemaDir),
				agentrun.WithFunctionLog(cfg.Log),
			}, opts...)...,
		)
		if err != nil {
			return nil, fmt.Errorf("function %q: %w", decl.Name, err)
		}
		fns = append(fns, fn)
	}
	return fns, nil
}

// openThreadStore returns the configured store and a function releasing its
// connection.
func openThreadStore(_ context.Context, ts config.ThreadStore) (agentrun.ThreadStore, func(context.Context) error, error) {
	switch ts.Kind {
	case config.StoreRedis:
		opts, err := redis.ParseURL(ts.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("parse redis url: %w", err)
		}
		client := redis.NewClient(opts)
		store, err := redisstore.New(client, ts.Key, redisstore.WithTTL(ts.TTL))
		if err != nil {
			_ = client.Close()
			return nil, nil, err
		}
		return store, func(context.Context) error { return client.Close() }, nil
	case config.StoreMongo:
		client, err := mongo.Connect(options.Client().ApplyURI(ts.MongoURI))
		if err != nil {
			return nil, nil, fmt.Errorf("connect mongodb: %w", err)
		}
		store, err := mongostore.New(client.Database(ts.Database).Collection(ts.Collection), ts.Key)
		if err != nil {
			_ = client.Disconnect(context.Background())
			return nil, nil, err
		}
		return store, client.Disconnect, nil
	default:
		return agentrun.NewMemoryThreadStore(), func(context.Context) error { return nil }, nil
	}
}

package repository

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/v2/mongo"

	"blog-backend/internal/apperr"
)

// MongoTxnRunner executes a function inside a session transaction. Whether
// the deployment actually supports transactions is a configuration-time
// capability; on unsupported topologies the first write inside the session
// fails and Run reports it as a TransientStore error.
type MongoTxnRunner struct {
	client    *mongo.Client
	supported bool
}

func NewMongoTxnRunner(client *mongo.Client, supported bool) *MongoTxnRunner {
	return &MongoTxnRunner{client: client, supported: supported}
}

func (r *MongoTxnRunner) Supported() bool { return r.supported }

func (r *MongoTxnRunner) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	if !r.supported {
		return apperr.New(apperr.TransientStore, "transactions disabled")
	}
	session, err := r.client.StartSession()
	if err != nil {
		return apperr.FromMongo(err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(ctx context.Context) (any, error) {
		return nil, fn(ctx)
	})
	if err == nil {
		return nil
	}
	// A structured error from fn passes through unchanged; driver-level
	// failures get classified so the caller can pick the fallback path.
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return err
	}
	return apperr.FromMongo(err)
}

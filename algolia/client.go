// Package algolia runs connector search parameters against Algolia and keeps
// Algolia indices in sync with product records.
package algolia

import (
	"context"
	"os"
	"sync"

	"github.com/algolia/algoliasearch-client-go/v3/algolia/search"
	"github.com/cockroachdb/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Secrets holds the Algolia application credentials.
type Secrets struct {
	// AppID is the Algolia application ID.
	AppID string `json:"app_id"`
	// APIKey is an Algolia API key. Searching needs a search key; syncing
	// records needs a write key.
	APIKey string `json:"api_key"`
}

// FetchSecrets is a function type that retrieves Algolia credentials.
type FetchSecrets func() (Secrets, error)

// StaticSecrets returns a FetchSecrets function that provides static credentials.
func StaticSecrets(appID, apiKey string) FetchSecrets {
	return func() (Secrets, error) {
		return Secrets{
			AppID:  appID,
			APIKey: apiKey,
		}, nil
	}
}

// EnvSecrets reads the credentials from ALGOLIA_APP_ID and ALGOLIA_API_KEY.
func EnvSecrets() FetchSecrets {
	return func() (Secrets, error) {
		appID := os.Getenv("ALGOLIA_APP_ID")
		if appID == "" {
			return Secrets{}, errors.New("ALGOLIA_APP_ID environment variable is not set")
		}

		apiKey := os.Getenv("ALGOLIA_API_KEY")
		if apiKey == "" {
			return Secrets{}, errors.New("ALGOLIA_API_KEY environment variable is not set")
		}

		return Secrets{
			AppID:  appID,
			APIKey: apiKey,
		}, nil
	}
}

// Client is a lazily initialized, traced Algolia client. Credentials are
// fetched on first use.
type Client struct {
	getClient func() (*search.Client, error)
	tracer    trace.Tracer
}

// NewClient creates a client that fetches its credentials with fetchSecrets.
func NewClient(fetchSecrets FetchSecrets) *Client {
	getClient := sync.OnceValues(func() (*search.Client, error) {
		secrets, err := fetchSecrets()
		if err != nil {
			return nil, errors.Wrap(err, "failed to fetch secrets")
		}

		if secrets.AppID == "" {
			return nil, errors.New("AppID is empty")
		}

		if secrets.APIKey == "" {
			return nil, errors.New("APIKey is empty")
		}

		return search.NewClient(secrets.AppID, secrets.APIKey), nil
	})

	return &Client{
		getClient: getClient,
		tracer:    otel.Tracer("connectx-algolia"),
	}
}

// Search runs one query against indexName.
func (c *Client) Search(ctx context.Context, indexName, query string, opts ...interface{}) (search.QueryRes, error) {
	var res search.QueryRes
	err := c.do(ctx, "search", indexName, []attribute.KeyValue{
		attribute.Int("algolia.option_count", len(opts)),
	}, func(index *search.Index, span trace.Span) error {
		var err error
		if res, err = index.Search(query, opts...); err != nil {
			return err
		}
		span.SetAttributes(attribute.Int("algolia.nb_hits", res.NbHits))
		return nil
	})
	if err != nil {
		return search.QueryRes{}, err
	}
	return res, nil
}

// BatchSaveObjects saves or replaces objects in indexName.
func (c *Client) BatchSaveObjects(ctx context.Context, indexName string, objects []map[string]interface{}) error {
	if len(objects) == 0 {
		return nil
	}
	return c.do(ctx, "batch_save_objects", indexName, []attribute.KeyValue{
		attribute.Int("algolia.object_count", len(objects)),
	}, func(index *search.Index, _ trace.Span) error {
		_, err := index.SaveObjects(objects)
		return err
	})
}

// BatchDeleteObjects deletes objects from indexName by objectID.
func (c *Client) BatchDeleteObjects(ctx context.Context, indexName string, objectIDs []string) error {
	if len(objectIDs) == 0 {
		return nil
	}
	return c.do(ctx, "batch_delete_objects", indexName, []attribute.KeyValue{
		attribute.Int("algolia.object_count", len(objectIDs)),
	}, func(index *search.Index, _ trace.Span) error {
		_, err := index.DeleteObjects(objectIDs)
		return err
	})
}

// do runs fn on indexName inside a span named after op.
func (c *Client) do(ctx context.Context, op, indexName string, attrs []attribute.KeyValue, fn func(*search.Index, trace.Span) error) error {
	attrs = append(attrs, attribute.String("algolia.index_name", indexName))
	_, span := c.tracer.Start(ctx, "algolia."+op, trace.WithAttributes(attrs...))
	defer span.End()

	client, err := c.getClient()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to get Algolia client")
		return err
	}

	if err := fn(client.InitIndex(indexName), span); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, op+" failed")
		return errors.Wrapf(err, "algolia %s on index %s", op, indexName)
	}

	span.SetStatus(codes.Ok, op+" succeeded")
	return nil
}

package main

import (
	"context"
	"log/slog"
	"os"
	"sort"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/cockroachdb/errors"
	"github.com/urfave/cli/v2"

	"github.com/letmevibethatforyou/connectx/algolia"
	"github.com/letmevibethatforyou/connectx/internal/ddb"
)

// indexer is the part of the Algolia client the sync needs.
type indexer interface {
	BatchSaveObjects(ctx context.Context, indexName string, objects []map[string]interface{}) error
	BatchDeleteObjects(ctx context.Context, indexName string, objectIDs []string) error
}

type Handler struct {
	tableName   string
	indexer     indexer
	hierarchies []ddb.Hierarchy
}

func NewHandler(tableName string, indexer indexer, hierarchies []ddb.Hierarchy) *Handler {
	return &Handler{
		tableName:   tableName,
		indexer:     indexer,
		hierarchies: hierarchies,
	}
}

// pending holds the last operation seen per object of one index. A nil
// object marks a deletion.
type pending map[string]map[string]interface{}

func (h *Handler) HandleDynamoDBEvent(ctx context.Context, e ddb.DynamoDBEvent) error {
	slog.InfoContext(ctx, "Processing DynamoDB stream records", "record_count", len(e.Records), "table", h.tableName)

	batches := make(map[string]pending)
	for _, record := range e.Records {
		h.collect(ctx, record, batches)
	}

	indices := make([]string, 0, len(batches))
	for index := range batches {
		indices = append(indices, index)
	}
	sort.Strings(indices)

	for _, index := range indices {
		if err := h.flush(ctx, index, batches[index]); err != nil {
			slog.ErrorContext(ctx, "Error syncing index", "index", index, "error", err)
			return err
		}
	}
	return nil
}

func (h *Handler) collect(ctx context.Context, record ddb.DynamoDBEventRecord, batches map[string]pending) {
	add := func(index, id string, obj map[string]interface{}) {
		if batches[index] == nil {
			batches[index] = make(pending)
		}
		batches[index][id] = obj
	}

	switch ddb.DynamoDBOperationType(record.EventName) {
	case ddb.DynamoDBOperationTypeInsert, ddb.DynamoDBOperationTypeModify:
		if record.Change.NewImage == nil {
			slog.WarnContext(ctx, "No new image for insert/modify operation, skipping record", "event_id", record.EventID)
			return
		}

		parsed, err := ddb.UnmarshalRecord(record.Change.NewImage)
		if err != nil {
			slog.WarnContext(ctx, "Failed to unmarshal record, skipping", "event_id", record.EventID, "error", err)
			return
		}
		if parsed.ID == "" || parsed.IndexName == "" {
			slog.WarnContext(ctx, "Missing ID or IndexName in record, skipping record", "event_id", record.EventID)
			return
		}
		if parsed.Object == nil {
			slog.WarnContext(ctx, "Missing Object in record, skipping record", "id", parsed.ID, "index", parsed.IndexName)
			return
		}
		add(parsed.IndexName, parsed.ID, parsed.SearchObject(h.hierarchies...))

	case ddb.DynamoDBOperationTypeRemove:
		parsed, err := ddb.UnmarshalRecord(record.Change.Keys)
		if err != nil {
			slog.WarnContext(ctx, "Failed to unmarshal keys for delete operation, skipping", "event_id", record.EventID, "error", err)
			return
		}
		if parsed.ID == "" || parsed.IndexName == "" {
			slog.WarnContext(ctx, "Missing ID or IndexName in delete record, skipping record", "event_id", record.EventID)
			return
		}
		add(parsed.IndexName, parsed.ID, nil)

	default:
		slog.InfoContext(ctx, "Ignoring event type", "event_type", record.EventName)
	}
}

func (h *Handler) flush(ctx context.Context, index string, ops pending) error {
	ids := make([]string, 0, len(ops))
	for id := range ops {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var saves []map[string]interface{}
	var deletes []string
	for _, id := range ids {
		if obj := ops[id]; obj != nil {
			saves = append(saves, obj)
		} else {
			deletes = append(deletes, id)
		}
	}

	if len(saves) > 0 {
		slog.InfoContext(ctx, "Saving objects to Algolia", "index", index, "count", len(saves))
		if err := h.indexer.BatchSaveObjects(ctx, index, saves); err != nil {
			return errors.Wrapf(err, "failed to save %d objects", len(saves))
		}
	}
	if len(deletes) > 0 {
		slog.InfoContext(ctx, "Deleting objects from Algolia", "index", index, "count", len(deletes))
		if err := h.indexer.BatchDeleteObjects(ctx, index, deletes); err != nil {
			return errors.Wrapf(err, "failed to delete %d objects", len(deletes))
		}
	}
	return nil
}

func main() {
	if os.Getenv("AWS_LAMBDA_RUNTIME_API") != "" {
		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))
	}

	app := &cli.App{
		Name:  "dynamodb-algolia-sync",
		Usage: "Sync DynamoDB stream events to Algolia",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "table-name",
				Usage:    "DynamoDB table name to sync from",
				EnvVars:  []string{"TABLE_NAME"},
				Required: true,
			},
			&cli.StringFlag{
				Name:    "env",
				Usage:   "Environment name for AWS Secrets Manager (takes precedence over API key/ID flags)",
				EnvVars: []string{"ENV", "ENVIRONMENT"},
			},
			&cli.StringFlag{
				Name:    "algolia-app-id",
				Usage:   "Algolia application ID",
				EnvVars: []string{"ALGOLIA_APP_ID"},
			},
			&cli.StringFlag{
				Name:    "algolia-api-key",
				Usage:   "Algolia API key",
				EnvVars: []string{"ALGOLIA_API_KEY"},
			},
			&cli.StringSliceFlag{
				Name:    "hierarchy",
				Usage:   "Expand a category path attribute into hierarchical levels (source:target)",
				EnvVars: []string{"HIERARCHIES"},
			},
		},
		Action: runAction,
	}

	if err := app.Run(os.Args); err != nil {
		slog.Error("Application failed", "error", err)
		os.Exit(1)
	}
}

func runAction(c *cli.Context) error {
	ctx := c.Context
	tableName := c.String("table-name")
	env := c.String("env")

	slog.InfoContext(ctx, "Starting DynamoDB to Algolia sync", "table", tableName, "environment", env)

	var hierarchies []ddb.Hierarchy
	for _, raw := range c.StringSlice("hierarchy") {
		h, err := ddb.ParseHierarchy(raw)
		if err != nil {
			return err
		}
		hierarchies = append(hierarchies, h)
	}

	fetchSecrets, err := secretsFrom(c)
	if err != nil {
		return err
	}

	handler := NewHandler(tableName, algolia.NewClient(fetchSecrets), hierarchies)

	if os.Getenv("AWS_LAMBDA_RUNTIME_API") != "" {
		slog.InfoContext(ctx, "Running in Lambda environment")
		lambda.Start(handler.HandleDynamoDBEvent)
	} else {
		slog.InfoContext(ctx, "Function cannot run outside of AWS Lambda environment")
	}

	return nil
}

func secretsFrom(c *cli.Context) (algolia.FetchSecrets, error) {
	ctx := c.Context
	appID := c.String("algolia-app-id")
	apiKey := c.String("algolia-api-key")

	switch env := c.String("env"); {
	case env != "":
		slog.InfoContext(ctx, "Using AWS Secrets Manager for credentials", "environment", env)
		cfg, err := config.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "failed to load AWS config")
		}
		return algolia.AWSSecrets(ctx, secretsmanager.NewFromConfig(cfg), env), nil
	case appID != "" && apiKey != "":
		slog.InfoContext(ctx, "Using static credentials from flags")
		return algolia.StaticSecrets(appID, apiKey), nil
	default:
		slog.InfoContext(ctx, "Using environment variables for credentials")
		return algolia.EnvSecrets(), nil
	}
}

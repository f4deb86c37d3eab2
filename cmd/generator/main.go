package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"math"
	"math/rand/v2"
	"os"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	"github.com/segmentio/ksuid"
	"github.com/urfave/cli/v2"

	"github.com/letmevibethatforyou/connectx"
	"github.com/letmevibethatforyou/connectx/internal/ddb"
)

// Product is one generated catalog entry.
type Product struct {
	Name     string  `json:"name"`
	Brand    string  `json:"brand"`
	Price    float64 `json:"price"`
	Category string  `json:"category"`
}

// Object returns the product as a document.
func (p Product) Object() map[string]any {
	return map[string]any{
		"name":     p.Name,
		"brand":    p.Brand,
		"price":    p.Price,
		"category": p.Category,
	}
}

type category struct {
	path     []string
	brands   []string
	products []string
	minPrice float64
	maxPrice float64
}

var categories = []category{
	{[]string{"Electronics", "Phones", "Android"}, []string{"Google", "Samsung", "OnePlus"}, []string{"Pixel", "Galaxy", "Nord"}, 199, 1299},
	{[]string{"Electronics", "Phones", "iOS"}, []string{"Apple"}, []string{"iPhone", "iPhone Pro", "iPhone SE"}, 429, 1599},
	{[]string{"Electronics", "Laptops"}, []string{"Apple", "Lenovo", "Dell"}, []string{"MacBook Air", "ThinkPad", "XPS"}, 599, 2999},
	{[]string{"Electronics", "Audio", "Headphones"}, []string{"Sony", "Bose"}, []string{"WH-1000XM5", "QuietComfort"}, 49, 449},
	{[]string{"Books", "Programming"}, []string{"Acme Books", "No Starch"}, []string{"Go in Action", "The Go Programming Language"}, 19, 69},
	{[]string{"Books", "Science", "Physics"}, []string{"Acme Books"}, []string{"Cosmos", "QED"}, 9, 39},
	{[]string{"Home", "Kitchen"}, []string{"Ikea", "Bosch"}, []string{"Kettle", "Mixer", "Toaster"}, 15, 399},
	{[]string{"Home", "Furniture", "Desks"}, []string{"Ikea", "Herman Miller"}, []string{"Standing Desk", "Writing Desk"}, 89, 1899},
}

func generateRandomProduct(r *rand.Rand) Product {
	c := categories[r.IntN(len(categories))]
	price := c.minPrice + r.Float64()*(c.maxPrice-c.minPrice)

	return Product{
		Name:     c.products[r.IntN(len(c.products))],
		Brand:    c.brands[r.IntN(len(c.brands))],
		Price:    math.Round(price*100) / 100,
		Category: strings.Join(c.path, connectx.DefaultSeparator),
	}
}

// putter is the part of the DynamoDB client the generator needs.
type putter interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

func insertProduct(ctx context.Context, client putter, tableName, indexName string, product Product) error {
	record := ddb.Record{
		ID:        ksuid.New().String(),
		IndexName: indexName,
		Object:    product.Object(),
	}

	item, err := ddb.MarshalRecord(record)
	if err != nil {
		return errors.Wrap(err, "failed to marshal product record")
	}

	_, err = client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(tableName),
		Item:      item,
	})
	if err != nil {
		return errors.Wrap(err, "failed to put item in DynamoDB")
	}

	slog.InfoContext(ctx, "Successfully inserted product",
		"id", record.ID,
		"name", product.Name,
		"category", product.Category,
		"price", product.Price,
	)
	return nil
}

// documents renders products the way the sync function indexes them, keyed
// by object id, so the in-memory backend sees the same attributes.
func documents(products []Product, hierarchy ddb.Hierarchy) map[string]map[string]any {
	docs := make(map[string]map[string]any, len(products))
	for _, p := range products {
		record := ddb.Record{ID: ksuid.New().String(), Object: p.Object()}
		obj := record.SearchObject(hierarchy)
		delete(obj, "objectID")
		docs[record.ID] = obj
	}
	return docs
}

func writeFile(path string, docs map[string]map[string]any) error {
	ids := make([]string, 0, len(docs))
	for id := range docs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	type entry struct {
		ID     string         `json:"objectID"`
		Fields map[string]any `json:"fields"`
	}
	entries := make([]entry, 0, len(ids))
	for _, id := range ids {
		entries = append(entries, entry{ID: id, Fields: docs[id]})
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to encode products")
	}
	return errors.Wrapf(os.WriteFile(path, data, 0o644), "failed to write %s", path)
}

func runAction(c *cli.Context) error {
	ctx := c.Context
	env := c.String("env")
	tableName := c.String("table-name")
	indexName := c.String("index")
	count := c.Int("count")
	out := c.String("out")

	slog.InfoContext(ctx, "Starting product generator",
		"environment", env,
		"table", tableName,
		"index", indexName,
		"count", count,
	)

	r := rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	if c.IsSet("seed") {
		seed := c.Uint64("seed")
		r = rand.New(rand.NewPCG(seed, seed))
	}

	products := make([]Product, count)
	for i := range products {
		products[i] = generateRandomProduct(r)
	}

	if out != "" {
		hierarchy, err := ddb.ParseHierarchy(c.String("hierarchy"))
		if err != nil {
			return err
		}
		if err := writeFile(out, documents(products, hierarchy)); err != nil {
			return err
		}
		slog.InfoContext(ctx, "Wrote products", "path", out, "count", count)
		return nil
	}

	if tableName == "" {
		return errors.New("either --table-name or --out is required")
	}

	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to load AWS config")
	}

	client := dynamodb.NewFromConfig(cfg)

	for i, product := range products {
		if err := insertProduct(ctx, client, tableName, indexName, product); err != nil {
			return errors.Wrapf(err, "failed to insert product %d", i+1)
		}
	}

	slog.InfoContext(ctx, "Successfully generated and inserted all products", "count", count)
	return nil
}

func main() {
	_ = godotenv.Load()

	// Configure JSON logging for AWS environments
	if os.Getenv("AWS_LAMBDA_RUNTIME_API") != "" || os.Getenv("AWS_REGION") != "" {
		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))
	}

	app := &cli.App{
		Name:  "generator",
		Usage: "Generate random catalog products into DynamoDB or a JSON file",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "env",
				Aliases: []string{"e"},
				Usage:   "Environment name",
				EnvVars: []string{"ENVIRONMENT"},
			},
			&cli.StringFlag{
				Name:    "table-name",
				Aliases: []string{"t"},
				Usage:   "DynamoDB table name",
				EnvVars: []string{"TABLE_NAME"},
			},
			&cli.StringFlag{
				Name:    "index",
				Aliases: []string{"i"},
				Usage:   "Search index the products belong to",
				Value:   "products",
			},
			&cli.IntFlag{
				Name:    "count",
				Aliases: []string{"c"},
				Usage:   "Number of products to generate",
				Value:   1,
			},
			&cli.StringFlag{
				Name:    "out",
				Aliases: []string{"o"},
				Usage:   "Write products to a JSON file instead of DynamoDB",
			},
			&cli.StringFlag{
				Name:  "hierarchy",
				Usage: "Category expansion written to the JSON file (source:target)",
				Value: "category:categories",
			},
			&cli.Uint64Flag{
				Name:  "seed",
				Usage: "Seed for reproducible output",
			},
		},
		Action: runAction,
	}

	if err := app.Run(os.Args); err != nil {
		slog.Error("Application failed", "error", err)
		os.Exit(1)
	}
}

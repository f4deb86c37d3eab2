package main

import (
	"context"
	"errors"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"github.com/letmevibethatforyou/connectx"
	"github.com/letmevibethatforyou/connectx/inmemory"
	"github.com/letmevibethatforyou/connectx/internal/ddb"
)

type mockPutter struct {
	inputs []*dynamodb.PutItemInput
	err    error
}

func (m *mockPutter) PutItem(_ context.Context, params *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	m.inputs = append(m.inputs, params)
	return &dynamodb.PutItemOutput{}, m.err
}

func TestGenerateRandomProduct(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))

	for i := 0; i < 100; i++ {
		p := generateRandomProduct(r)
		if p.Name == "" || p.Brand == "" {
			t.Fatalf("Expected name and brand, got %+v", p)
		}
		if !strings.Contains(p.Category, connectx.DefaultSeparator) {
			t.Errorf("Expected a category path, got %q", p.Category)
		}
		if p.Price < 9 || p.Price > 2999 {
			t.Errorf("Price out of range: %v", p.Price)
		}
	}

	a := generateRandomProduct(rand.New(rand.NewPCG(7, 7)))
	b := generateRandomProduct(rand.New(rand.NewPCG(7, 7)))
	if a != b {
		t.Errorf("Expected the same seed to give the same product, got %+v and %+v", a, b)
	}
}

func TestInsertProduct(t *testing.T) {
	product := Product{Name: "Kettle", Brand: "Bosch", Price: 39.9, Category: "Home > Kitchen"}

	mock := &mockPutter{}
	if err := insertProduct(context.Background(), mock, "catalog", "products", product); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(mock.inputs) != 1 || *mock.inputs[0].TableName != "catalog" {
		t.Fatalf("Expected one put on catalog, got %+v", mock.inputs)
	}

	record, err := ddb.UnmarshalRecord(mock.inputs[0].Item)
	if err != nil {
		t.Fatalf("Failed to decode item: %v", err)
	}
	if record.ID == "" || record.IndexName != "products" {
		t.Errorf("Unexpected keys %q/%q", record.ID, record.IndexName)
	}
	if record.Object["category"] != "Home > Kitchen" || record.Object["price"] != 39.9 {
		t.Errorf("Unexpected object %v", record.Object)
	}

	mock = &mockPutter{err: errors.New("throttled")}
	if err := insertProduct(context.Background(), mock, "catalog", "products", product); err == nil {
		t.Error("Expected error, got nil")
	}
}

func TestWriteFileLoadsIntoMemory(t *testing.T) {
	products := []Product{
		{Name: "Pixel", Brand: "Google", Price: 699, Category: "Electronics > Phones > Android"},
		{Name: "Cosmos", Brand: "Acme Books", Price: 12.5, Category: "Books > Science > Physics"},
	}
	hierarchy, err := ddb.ParseHierarchy("category:categories")
	if err != nil {
		t.Fatalf("Failed to parse hierarchy: %v", err)
	}

	path := filepath.Join(t.TempDir(), "products.json")
	if err := writeFile(path, documents(products, hierarchy)); err != nil {
		t.Fatalf("writeFile failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file: %v", err)
	}

	searcher := inmemory.New()
	if n, err := searcher.LoadJSON("products", data); err != nil || n != 2 {
		t.Fatalf("Expected 2 documents, got %d, %v", n, err)
	}

	params := connectx.NewSearchParameters(connectx.WithIndex("products")).
		AddHierarchicalFacet(connectx.HierarchicalFacet{
			Name:       "categories.lvl0",
			Attributes: []string{"categories.lvl0", "categories.lvl1", "categories.lvl2"},
		}).
		ToggleHierarchicalFacetRefinement("categories.lvl0", "Books > Science")

	res, err := searcher.Search(context.Background(), params)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if res.Total != 1 || res.Items[0].Fields["name"] != "Cosmos" {
		t.Errorf("Expected the Cosmos book, got %+v", res.Items)
	}
}

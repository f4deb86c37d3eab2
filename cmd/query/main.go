package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/letmevibethatforyou/connectx"
	"github.com/letmevibethatforyou/connectx/algolia"
	"github.com/letmevibethatforyou/connectx/cache"
	widgetconfig "github.com/letmevibethatforyou/connectx/config"
	"github.com/letmevibethatforyou/connectx/hierarchicalmenu"
	"github.com/letmevibethatforyou/connectx/inmemory"
	"github.com/letmevibethatforyou/connectx/rangefilter"
	"github.com/letmevibethatforyou/connectx/urlstate"
)

const (
	defaultTimeout   = 5 * time.Second
	defaultCacheSize = 128
)

func main() {
	_ = godotenv.Load()

	if os.Getenv("AWS_LAMBDA_RUNTIME_API") != "" || os.Getenv("AWS_REGION") != "" {
		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))
	}

	app := &cli.App{
		Name:  "query",
		Usage: "Resolve widget props for a search state against Algolia or a local index",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "config",
				Aliases:  []string{"c"},
				Usage:    "Widget configuration file (YAML)",
				EnvVars:  []string{"CONNECTX_CONFIG"},
				Required: true,
			},
			&cli.StringFlag{
				Name:    "state",
				Aliases: []string{"s"},
				Usage:   "Search state as a URL query string, e.g. range[price][min]=10",
			},
			&cli.StringFlag{
				Name:  "state-file",
				Usage: "Search state as a JSON file",
			},
			&cli.StringFlag{
				Name:    "query",
				Aliases: []string{"q"},
				Usage:   "Query string to search for; positional arg is a fallback",
			},
			&cli.StringSliceFlag{
				Name:  "refine",
				Usage: "Refine a widget before searching: id=path for menus, id=min:max for ranges; repeatable",
			},
			&cli.BoolFlag{
				Name:  "clear",
				Usage: "Also print the state with every refinement cleared",
			},
			&cli.StringFlag{
				Name:  "data",
				Usage: "JSON documents for the in-memory backend instead of Algolia",
			},
			&cli.StringFlag{
				Name:    "algolia-secret-arn",
				Usage:   "ARN of AWS Secrets Manager secret containing Algolia credentials",
				EnvVars: []string{"ALGOLIA_SECRET_ARN"},
			},
			&cli.IntFlag{
				Name:  "cache-size",
				Usage: "Number of search responses kept in memory",
				Value: defaultCacheSize,
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "Timeout for the search requests",
				Value: defaultTimeout,
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

	cfg, err := widgetconfig.Parse(c.String("config"))
	if err != nil {
		return err
	}

	state, err := loadState(c.String("state"), c.String("state-file"))
	if err != nil {
		return err
	}

	query := strings.TrimSpace(c.String("query"))
	if query == "" && c.NArg() > 0 {
		query = strings.TrimSpace(c.Args().First())
	}

	timeout := c.Duration("timeout")
	if timeout <= 0 {
		slog.WarnContext(ctx, "timeout must be positive; using default", "timeout", timeout, "default", defaultTimeout)
		timeout = defaultTimeout
	}

	backend, err := newBackend(c, cfg.Index)
	if err != nil {
		return err
	}
	searcher, err := cache.New(backend, c.Int("cache-size"))
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	slog.InfoContext(ctx, "executing query",
		"index", cfg.Index,
		"widgets", len(cfg.Widgets),
		"query", query,
		"timeout", timeout,
	)

	return run(ctx, cfg, searcher, request{
		state:   state,
		query:   query,
		refines: c.StringSlice("refine"),
		clear:   c.Bool("clear"),
	}, os.Stdout)
}

func newBackend(c *cli.Context, mainIndex string) (connectx.Searcher, error) {
	ctx := c.Context

	if path := c.String("data"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read %s", path)
		}
		searcher := inmemory.New()
		n, err := searcher.LoadJSON(mainIndex, data)
		if err != nil {
			return nil, err
		}
		slog.InfoContext(ctx, "using in-memory index", "path", path, "documents", n)
		return searcher, nil
	}

	var fetchSecrets algolia.FetchSecrets
	if secretArn := strings.TrimSpace(c.String("algolia-secret-arn")); secretArn != "" {
		slog.InfoContext(ctx, "using AWS Secrets Manager for Algolia credentials", "secret_arn", secretArn)
		awsCfg, err := config.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "failed to load AWS config")
		}
		fetchSecrets = algolia.AWSSecretsFromARN(ctx, secretsmanager.NewFromConfig(awsCfg), secretArn)
	} else {
		fetchSecrets = algolia.EnvSecrets()
	}

	return algolia.NewSearcher(algolia.NewClient(fetchSecrets), mainIndex), nil
}

func loadState(query, path string) (connectx.SearchState, error) {
	switch {
	case query != "" && path != "":
		return nil, errors.New("use either --state or --state-file")
	case query != "":
		return urlstate.Decode(query)
	case path != "":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read %s", path)
		}
		var state connectx.SearchState
		if err := json.Unmarshal(data, &state); err != nil {
			return nil, errors.WithSecondaryError(connectx.ErrInvalidState, err)
		}
		if state == nil {
			state = connectx.SearchState{}
		}
		return state, nil
	default:
		return connectx.SearchState{}, nil
	}
}

type request struct {
	state   connectx.SearchState
	query   string
	refines []string
	clear   bool
}

type widgetOutput struct {
	ID    string `json:"id"`
	Type  string `json:"type"`
	Index string `json:"index"`
	Props any    `json:"props"`
}

type output struct {
	State        connectx.SearchState `json:"state"`
	URL          string               `json:"url"`
	Total        int64                `json:"total"`
	Hits         []connectx.Result    `json:"hits"`
	Widgets      []widgetOutput       `json:"widgets"`
	Metadata     []connectx.Metadata  `json:"metadata"`
	ClearedState connectx.SearchState `json:"clearedState,omitempty"`
}

// run resolves the request against the configured widgets and writes the
// result as JSON to w.
func run(ctx context.Context, cfg *widgetconfig.Config, searcher connectx.Searcher, req request, w io.Writer) error {
	host := connectx.NewHost(cfg.Index, searcher)
	cfg.Mount(host)

	state := req.state
	if state == nil {
		state = connectx.SearchState{}
	}
	if req.query != "" {
		next := make(connectx.SearchState, len(state)+1)
		for k, v := range state {
			next[k] = v
		}
		next["query"] = req.query
		state = next
	}

	for _, raw := range req.refines {
		var err error
		if state, err = refine(host, state, raw); err != nil {
			return err
		}
	}

	results, err := host.Search(ctx, state)
	if err != nil {
		return errors.Wrap(err, "search failed")
	}

	out := output{
		State:    state,
		URL:      urlstate.Encode(state),
		Hits:     []connectx.Result{},
		Metadata: host.Metadata(state),
	}
	if results.Single != nil {
		out.Hits = results.Single.Hits()
		if res, ok := results.Single.(*connectx.Response); ok {
			out.Total = res.Total
		}
	}
	for _, m := range host.Mounted() {
		wo := widgetOutput{ID: m.Widget.ID(), Index: m.Context.Index()}
		switch widget := m.Widget.(type) {
		case *hierarchicalmenu.Connector:
			wo.Type = widgetconfig.TypeHierarchicalMenu
			wo.Props = widget.ProvidedProps(m.Context, state, results)
		case *rangefilter.Connector:
			wo.Type = widgetconfig.TypeRange
			wo.Props = widget.ProvidedProps(m.Context, state, results)
		}
		out.Widgets = append(out.Widgets, wo)
	}
	if req.clear {
		out.ClearedState = host.ClearRefinements(state)
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal results")
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// refine applies "id=value" to the first mounted widget with that id.
func refine(host *connectx.Host, state connectx.SearchState, raw string) (connectx.SearchState, error) {
	id, value, ok := strings.Cut(raw, "=")
	id = strings.TrimSpace(id)
	if !ok || id == "" {
		return nil, errors.Newf("refine must be in id=value format: %q", raw)
	}

	for _, m := range host.Mounted() {
		if m.Widget.ID() != id {
			continue
		}
		switch widget := m.Widget.(type) {
		case *hierarchicalmenu.Connector:
			return widget.Refine(m.Context, state, value), nil
		case *rangefilter.Connector:
			r, err := parseRange(value)
			if err != nil {
				return nil, err
			}
			return widget.Refine(m.Context, state, r)
		}
	}
	return nil, errors.Newf("no widget with id %q", id)
}

// parseRange parses "min:max". Both sides are required.
func parseRange(s string) (rangefilter.Refinement, error) {
	lo, hi, ok := strings.Cut(s, ":")
	if !ok {
		return rangefilter.Refinement{}, errors.Newf("range must be in min:max format: %q", s)
	}

	var r rangefilter.Refinement
	for _, side := range []struct {
		raw string
		dst **float64
	}{{lo, &r.Min}, {hi, &r.Max}} {
		raw := strings.TrimSpace(side.raw)
		f, ok := connectx.ParseNumber(raw)
		if !ok {
			return rangefilter.Refinement{}, errors.Wrapf(connectx.ErrNonFiniteRange, "invalid bound %q", raw)
		}
		*side.dst = &f
	}
	return r, nil
}

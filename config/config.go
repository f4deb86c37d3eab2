// Package config declares the widgets of a search page in a YAML file.
//
//	index: products
//	widgets:
//	  - type: hierarchicalMenu
//	    attributes: [categories.lvl0, categories.lvl1]
//	  - type: range
//	    attribute: price
//	    index: deals
package config

import (
	"bytes"
	"os"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"

	"github.com/letmevibethatforyou/connectx"
	"github.com/letmevibethatforyou/connectx/hierarchicalmenu"
	"github.com/letmevibethatforyou/connectx/rangefilter"
)

// Widget types understood in the type key.
const (
	TypeHierarchicalMenu = "hierarchicalMenu"
	TypeRange            = "range"
)

// Defaults applied to hierarchical menus that leave the field out.
const (
	DefaultLimitMin = 10
	DefaultLimitMax = 20
)

// Config is a parsed widget file.
type Config struct {
	// Index is the main index searched by the host.
	Index string

	// Widgets are the built connectors in declaration order.
	Widgets []connectx.Mounted
}

type configFile struct {
	Index   string         `yaml:"index"`
	Widgets []widgetConfig `yaml:"widgets"`
}

type widgetConfig struct {
	Type string `yaml:"type"`

	// Index mounts the widget on another index than the main one.
	Index string `yaml:"index,omitempty"`

	// For hierarchicalMenu
	Attributes      []string `yaml:"attributes,omitempty"`
	Separator       string   `yaml:"separator,omitempty"`
	RootPath        string   `yaml:"rootPath,omitempty"`
	ShowParentLevel *bool    `yaml:"showParentLevel,omitempty"`
	ShowMore        bool     `yaml:"showMore,omitempty"`
	LimitMin        *int     `yaml:"limitMin,omitempty"`
	LimitMax        *int     `yaml:"limitMax,omitempty"`

	// For range
	Attribute string        `yaml:"attribute,omitempty"`
	Min       *float64      `yaml:"min,omitempty"`
	Max       *float64      `yaml:"max,omitempty"`
	Default   *rangeDefault `yaml:"defaultRefinement,omitempty"`
}

type rangeDefault struct {
	Min *float64 `yaml:"min,omitempty"`
	Max *float64 `yaml:"max,omitempty"`
}

// Parse reads and builds the widget file at path. Environment variables in
// the file are expanded before decoding.
func Parse(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read config %s", path)
	}
	return ParseBytes(data)
}

// ParseBytes builds a widget file already in memory.
func ParseBytes(data []byte) (*Config, error) {
	data = []byte(os.ExpandEnv(string(data)))

	var file configFile

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)

	if err := decoder.Decode(&file); err != nil {
		return nil, errors.Wrap(err, "failed to decode config")
	}

	if file.Index == "" {
		return nil, errors.New("config: index is required")
	}

	c := &Config{Index: file.Index}
	if err := c.registerWidgets(file.Widgets); err != nil {
		return nil, err
	}
	return c, nil
}

// Mount mounts every widget on host.
func (c *Config) Mount(host *connectx.Host) {
	for _, w := range c.Widgets {
		host.Mount(w.Context, w.Widget)
	}
}

func (c *Config) registerWidgets(configs []widgetConfig) error {
	for i, cfg := range configs {
		var w connectx.Widget
		var err error

		switch cfg.Type {
		case TypeHierarchicalMenu:
			w, err = createHierarchicalMenu(cfg)
		case TypeRange:
			w, err = createRange(cfg)
		default:
			err = errors.Wrapf(connectx.ErrInvalidWidget, "unknown widget type %q", cfg.Type)
		}

		if err != nil {
			return errors.Wrapf(err, "widget %d", i)
		}

		ictx := connectx.SingleIndex(c.Index)
		if cfg.Index != "" {
			ictx = connectx.MultiIndex(c.Index, cfg.Index)
		}
		c.Widgets = append(c.Widgets, connectx.Mounted{Context: ictx, Widget: w})
	}
	return nil
}

func createHierarchicalMenu(cfg widgetConfig) (connectx.Widget, error) {
	params := hierarchicalmenu.Params{
		Attributes:      cfg.Attributes,
		Separator:       cfg.Separator,
		RootPath:        cfg.RootPath,
		ShowParentLevel: true,
		ShowMore:        cfg.ShowMore,
		LimitMin:        DefaultLimitMin,
		LimitMax:        DefaultLimitMax,
	}
	if cfg.ShowParentLevel != nil {
		params.ShowParentLevel = *cfg.ShowParentLevel
	}
	if cfg.LimitMin != nil {
		params.LimitMin = *cfg.LimitMin
	}
	if cfg.LimitMax != nil {
		params.LimitMax = *cfg.LimitMax
	}
	if params.LimitMin < 0 || params.LimitMax < 0 {
		return nil, errors.Wrap(connectx.ErrInvalidWidget, "limits must not be negative")
	}
	menu, err := hierarchicalmenu.New(params)
	if err != nil {
		return nil, err
	}
	return menu, nil
}

func createRange(cfg widgetConfig) (connectx.Widget, error) {
	params := rangefilter.Params{
		Attribute: cfg.Attribute,
		Min:       cfg.Min,
		Max:       cfg.Max,
	}
	if cfg.Default != nil {
		params.DefaultRefinement = &rangefilter.Refinement{Min: cfg.Default.Min, Max: cfg.Default.Max}
	}
	r, err := rangefilter.New(params)
	if err != nil {
		return nil, err
	}
	return r, nil
}

package trading

import (
	"encoding/json"
	"os"
	"reflect"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
	"github.com/moznion/go-optional"
	"gopkg.in/yaml.v3"

	"github.com/rxtech-lab/tradestate/internal/record"
	"github.com/rxtech-lab/tradestate/internal/types"
	"github.com/rxtech-lab/tradestate/pkg/errors"
)

// TradingMode selects how a run sources data and executes orders.
type TradingMode string

const (
	// ModeBacktest replays historical bars against the paper exchange.
	ModeBacktest TradingMode = "backtest"
	// ModeSimulation pulls live bars but executes against the paper exchange.
	ModeSimulation TradingMode = "simulation"
	// ModeLive pulls live bars and executes against a real exchange.
	ModeLive TradingMode = "live"
)

// ParseTradingMode validates mode text against the supported set.
func ParseTradingMode(text string) (TradingMode, error) {
	switch mode := TradingMode(text); mode {
	case ModeBacktest, ModeSimulation, ModeLive:
		return mode, nil
	default:
		return "", errors.Newf(errors.ErrCodeInvalidConfig, "unknown trading mode %q", text)
	}
}

// FeedConfig selects and parameterizes the market data feed.
type FeedConfig struct {
	Name        string                     `yaml:"name" json:"name" jsonschema:"title=Feed Name,description=history replays a CSV file; exchange polls the live exchange,enum=history,enum=exchange" validate:"required,oneof=history exchange"`
	Path        string                     `yaml:"path" json:"path" jsonschema:"title=CSV Path,description=OHLCV file for the history feed" validate:"required_if=Name history"`
	Symbols     []string                   `yaml:"symbols" json:"symbols" jsonschema:"title=Symbols,description=Traded pairs in BASE/QUOTE form" validate:"required,min=1"`
	Timeframe   string                     `yaml:"timeframe" json:"timeframe" jsonschema:"title=Timeframe,description=Bar interval" validate:"required"`
	Start       optional.Option[time.Time] `yaml:"start" json:"start" jsonschema:"title=Start Time,description=Optional inclusive window start"`
	End         optional.Option[time.Time] `yaml:"end" json:"end" jsonschema:"title=End Time,description=Optional exclusive window end"`
	MaxAttempts uint64                     `yaml:"max_attempts" json:"max_attempts" jsonschema:"title=Max Attempts,description=Retry budget for one live pull,minimum=1" validate:"required,gte=1"`
}

// UnmarshalYAML implements custom unmarshaling for FeedConfig.
func (c *FeedConfig) UnmarshalYAML(unmarshal func(interface{}) error) error {
	type Config struct {
		Name        string     `yaml:"name"`
		Path        string     `yaml:"path"`
		Symbols     []string   `yaml:"symbols"`
		Timeframe   string     `yaml:"timeframe"`
		Start       *time.Time `yaml:"start"`
		End         *time.Time `yaml:"end"`
		MaxAttempts uint64     `yaml:"max_attempts"`
	}

	var config Config
	if err := unmarshal(&config); err != nil {
		return err
	}

	c.Name = config.Name
	c.Path = config.Path
	c.Symbols = config.Symbols
	c.Timeframe = config.Timeframe
	c.MaxAttempts = config.MaxAttempts

	if config.Start != nil {
		c.Start = optional.Some(*config.Start)
	}

	if config.End != nil {
		c.End = optional.Some(*config.End)
	}

	return nil
}

// ExchangeConfig selects and parameterizes the order execution venue.
type ExchangeConfig struct {
	ExchangeID string `yaml:"exchange_id" json:"exchange_id" jsonschema:"title=Exchange,description=Order execution venue,enum=paper,enum=binance" validate:"required,oneof=paper binance"`
	// Credentials never round-trip through snapshots.
	APIKey    string `yaml:"api_key" json:"-" jsonschema:"title=API Key,description=Exchange API key" validate:"required_if=ExchangeID binance"`
	SecretKey string `yaml:"secret_key" json:"-" jsonschema:"title=Secret Key,description=Exchange API secret key" validate:"required_if=ExchangeID binance"`
}

// Config is the full configuration of one trading run.
type Config struct {
	Experiment      string             `yaml:"experiment" json:"experiment" jsonschema:"title=Experiment,description=Name of the run; snapshots are stored under it" validate:"required"`
	Root            string             `yaml:"root" json:"root" jsonschema:"title=Root,description=Directory holding experiment output" validate:"required"`
	Store           string             `yaml:"store" json:"store" jsonschema:"title=Store,description=Snapshot store backend,enum=file,enum=duckdb" validate:"required,oneof=file duckdb"`
	CashCurrency    string             `yaml:"cash_currency" json:"cash_currency" jsonschema:"title=Cash Currency,description=Valuation currency of the ledger" validate:"required"`
	StartingCash    float64            `yaml:"starting_cash" json:"starting_cash" jsonschema:"title=Starting Cash,description=Free cash at the start of the run,minimum=0" validate:"gte=0"`
	Balances        map[string]float64 `yaml:"balances" json:"balances" jsonschema:"title=Balances,description=Extra starting holdings keyed by currency"`
	Feed            FeedConfig         `yaml:"feed" json:"feed" jsonschema:"title=Feed" validate:"required"`
	Exchange        ExchangeConfig     `yaml:"exchange" json:"exchange" jsonschema:"title=Exchange" validate:"required"`
	MaxOrderRetries int                `yaml:"max_order_retries" json:"max_order_retries" jsonschema:"title=Max Order Retries,description=Failed submissions beyond this are killed,minimum=0" validate:"gte=0"`
}

// DefaultConfig returns a runnable configuration for the given mode.
func DefaultConfig(mode TradingMode) Config {
	config := Config{
		Experiment:      "default",
		Root:            "experiments",
		Store:           record.StoreKindFile,
		CashCurrency:    string(types.USDT),
		StartingCash:    10000,
		MaxOrderRetries: 10,
		Feed: FeedConfig{
			Name:        "exchange",
			Symbols:     []string{"ETH/USDT"},
			Timeframe:   string(types.TimeframeOneMinute),
			MaxAttempts: 5,
		},
		Exchange: ExchangeConfig{
			ExchangeID: "paper",
		},
	}

	if mode == ModeBacktest {
		config.Feed.Name = "history"
	}

	if mode == ModeLive {
		config.Exchange.ExchangeID = "binance"
	}

	return config
}

// LoadConfig reads and validates a YAML configuration file.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(errors.ErrCodeInvalidConfig, err, "failed to read config %s", path)
	}

	return ParseConfig(data)
}

// ParseConfig parses and validates YAML configuration text.
func ParseConfig(data []byte) (Config, error) {
	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Config{}, errors.Wrap(errors.ErrCodeInvalidConfig, "failed to parse config", err)
	}

	if err := config.Validate(); err != nil {
		return Config{}, err
	}

	return config, nil
}

// Validate validates the Config struct. The returned error names the first
// offending field.
func (c *Config) Validate() error {
	validate := validator.New()

	if err := validate.Struct(c); err != nil {
		var fieldErrors validator.ValidationErrors
		if errors.As(err, &fieldErrors) && len(fieldErrors) > 0 {
			field := fieldErrors[0]

			return errors.Newf(errors.ErrCodeInvalidConfig, "invalid config: field %s failed on %s", field.Namespace(), field.Tag())
		}

		return errors.Wrap(errors.ErrCodeInvalidConfig, "invalid config", err)
	}

	if _, err := types.ParseTimeframe(c.Feed.Timeframe); err != nil {
		return errors.Wrapf(errors.ErrCodeInvalidConfig, err, "invalid config: field Feed.Timeframe")
	}

	if _, err := c.Assets(); err != nil {
		return errors.Wrapf(errors.ErrCodeInvalidConfig, err, "invalid config: field Feed.Symbols")
	}

	return nil
}

// Assets parses the configured symbols.
func (c *Config) Assets() ([]types.Asset, error) {
	assets := make([]types.Asset, 0, len(c.Feed.Symbols))

	for _, symbol := range c.Feed.Symbols {
		asset, err := types.ParseAsset(symbol)
		if err != nil {
			return nil, err
		}

		assets = append(assets, asset)
	}

	return assets, nil
}

// Timeframe parses the configured bar interval.
func (c *Config) Timeframe() (types.Timeframe, error) {
	return types.ParseTimeframe(c.Feed.Timeframe)
}

// GenerateSchema generates a JSON schema for the Config.
func (c *Config) GenerateSchema() (*jsonschema.Schema, error) {
	reflector := jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		ExpandedStruct:             true,
		AllowAdditionalProperties:  false,
		Mapper: func(t reflect.Type) *jsonschema.Schema {
			if t.String() == "optional.Option[time.Time]" {
				return &jsonschema.Schema{
					Type:   "string",
					Format: "date-time",
				}
			}

			return nil
		},
	}

	schema := reflector.Reflect(c)
	schema.Title = "trading-run-config"
	schema.Description = "Configuration schema for a trading run"
	schema.Version = "http://json-schema.org/draft-07/schema#"

	return schema, nil
}

// GenerateSchemaJSON generates a JSON schema string for the Config.
func (c *Config) GenerateSchemaJSON() (string, error) {
	schema, err := c.GenerateSchema()
	if err != nil {
		return "", err
	}

	schemaBytes, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return "", err
	}

	return string(schemaBytes), nil
}

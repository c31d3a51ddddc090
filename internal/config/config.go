package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/riskibarqy/epl-data-lake/internal/domain/catalog"
	"github.com/riskibarqy/epl-data-lake/internal/domain/lake"
	"github.com/riskibarqy/epl-data-lake/internal/domain/team"
	"github.com/riskibarqy/epl-data-lake/internal/platform/logging"
	"github.com/riskibarqy/epl-data-lake/internal/platform/resilience"
)

// Config stores runtime configuration for the data lake commands.
type Config struct {
	AppEnv         string `validate:"oneof=dev stage prod"`
	ServiceName    string `validate:"required"`
	ServiceVersion string

	SportsDataAPIKey      string `validate:"required"`
	SportsDataBaseURL     string `validate:"required,url"`
	SportsDataCompetition string `validate:"required"`
	SportsDataTimeout     time.Duration
	SportsDataCircuit     resilience.BreakerConfig

	Teams        []team.Team
	ExtraColumns []string

	AWSRegion     string `validate:"required"`
	Bucket        string `validate:"required,min=3,max=63,lowercase"`
	RawPrefix     string `validate:"required"`
	Database      string `validate:"required,max=255"`
	Table         string `validate:"required,max=255"`
	WorkGroup     string `validate:"required,max=128,ne=primary"`
	ResultsPrefix string `validate:"required"`
	PollInterval  time.Duration

	UptraceEnabled bool
	UptraceDSN     string

	LogLevel  logging.Level
	LogFormat logging.Format
}

// Layout names the lake resources described by the configuration.
func (c Config) Layout() lake.Layout {
	return lake.Layout{
		Bucket:        c.Bucket,
		RawPrefix:     c.RawPrefix,
		ResultsPrefix: c.ResultsPrefix,
		Database:      c.Database,
		Table:         c.Table,
		WorkGroup:     c.WorkGroup,
		Columns:       catalog.PlayerColumns(c.ExtraColumns),
	}
}

// Load reads the configuration from the environment. The provider key is only
// required when requireProvider is set, so teardown and query can run without
// it.
func Load(requireProvider bool) (Config, error) {
	appEnv, err := parseAppEnv(getEnv("APP_ENV", EnvDev))
	if err != nil {
		return Config{}, err
	}

	uptraceEnabled, err := strconv.ParseBool(getEnv("UPTRACE_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse UPTRACE_ENABLED: %w", err)
	}
	uptraceDSN := strings.TrimSpace(getEnv("UPTRACE_DSN", ""))
	if uptraceDSN == "" {
		uptraceDSN = parseUptraceDSNFromOTLPHeaders(getEnv("OTEL_EXPORTER_OTLP_HEADERS", ""))
	}
	if uptraceEnabled && uptraceDSN == "" {
		return Config{}, fmt.Errorf("UPTRACE_DSN is required when UPTRACE_ENABLED=true")
	}

	sportsDataTimeout, err := time.ParseDuration(getEnv("SPORTS_DATA_TIMEOUT", "20s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse SPORTS_DATA_TIMEOUT: %w", err)
	}
	if sportsDataTimeout <= 0 {
		return Config{}, fmt.Errorf("SPORTS_DATA_TIMEOUT must be > 0")
	}

	circuitEnabled, err := strconv.ParseBool(getEnv("SPORTS_DATA_CIRCUIT_ENABLED", strconv.FormatBool(resilience.DefaultBreakerConfig().Enabled)))
	if err != nil {
		return Config{}, fmt.Errorf("parse SPORTS_DATA_CIRCUIT_ENABLED: %w", err)
	}
	circuitFailureCount, err := getEnvAsInt("SPORTS_DATA_CIRCUIT_FAILURE_COUNT", 5)
	if err != nil {
		return Config{}, fmt.Errorf("parse SPORTS_DATA_CIRCUIT_FAILURE_COUNT: %w", err)
	}
	if circuitFailureCount < 1 {
		return Config{}, fmt.Errorf("SPORTS_DATA_CIRCUIT_FAILURE_COUNT must be >= 1")
	}
	circuitOpenTimeout, err := time.ParseDuration(getEnv("SPORTS_DATA_CIRCUIT_OPEN_TIMEOUT", "30s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse SPORTS_DATA_CIRCUIT_OPEN_TIMEOUT: %w", err)
	}
	if circuitOpenTimeout <= 0 {
		return Config{}, fmt.Errorf("SPORTS_DATA_CIRCUIT_OPEN_TIMEOUT must be > 0")
	}

	teams, err := team.ParseList(getEnv("DATALAKE_TEAMS", ""))
	if err != nil {
		return Config{}, fmt.Errorf("parse DATALAKE_TEAMS: %w", err)
	}

	pollInterval, err := time.ParseDuration(getEnv("ATHENA_POLL_INTERVAL", "1s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse ATHENA_POLL_INTERVAL: %w", err)
	}
	if pollInterval <= 0 {
		return Config{}, fmt.Errorf("ATHENA_POLL_INTERVAL must be > 0")
	}

	cfg := Config{
		AppEnv:                appEnv,
		ServiceName:           getEnv("SERVICE_NAME", "epl-data-lake"),
		ServiceVersion:        getEnv("SERVICE_VERSION", "dev"),
		SportsDataAPIKey:      strings.TrimSpace(getEnv("SPORTS_DATA_API_KEY", "")),
		SportsDataBaseURL:     strings.TrimSpace(getEnv("SPORTS_DATA_BASE_URL", "https://api.sportsdata.io/v4/soccer/scores/json")),
		SportsDataCompetition: strings.TrimSpace(getEnv("SPORTS_DATA_COMPETITION", "EPL")),
		SportsDataTimeout:     sportsDataTimeout,
		SportsDataCircuit: resilience.BreakerConfig{
			Enabled:          circuitEnabled,
			FailureThreshold: circuitFailureCount,
			Cooldown:         circuitOpenTimeout,
		},
		Teams:          teams,
		ExtraColumns:   splitCSV(getEnv("DATALAKE_EXTRA_COLUMNS", "")),
		AWSRegion:      strings.TrimSpace(getEnv("AWS_REGION", "eu-central-1")),
		Bucket:         strings.TrimSpace(getEnv("DATALAKE_BUCKET", "epl-analytics-data-lake")),
		RawPrefix:      strings.Trim(strings.TrimSpace(getEnv("DATALAKE_RAW_PREFIX", "raw-data")), "/"),
		Database:       strings.TrimSpace(getEnv("DATALAKE_DATABASE", "epl_data_lake")),
		Table:          strings.TrimSpace(getEnv("DATALAKE_TABLE", "epl_players")),
		WorkGroup:      strings.TrimSpace(getEnv("ATHENA_WORKGROUP", "epl-data-lake")),
		ResultsPrefix:  strings.Trim(strings.TrimSpace(getEnv("ATHENA_RESULTS_PREFIX", "athena-results")), "/"),
		PollInterval:   pollInterval,
		UptraceEnabled: uptraceEnabled,
		UptraceDSN:     uptraceDSN,
		LogLevel:       logging.ParseLevel(getEnv("APP_LOG_LEVEL", "info")),
		LogFormat:      logging.ParseFormat(getEnv("LOG_FORMAT", string(logging.FormatConsole))),
	}

	validateErr := validate.Struct(cfg)
	if !requireProvider {
		validateErr = validate.StructExcept(cfg, "SportsDataAPIKey")
	}
	if validateErr != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", validateErr)
	}
	if cfg.RawPrefix == cfg.ResultsPrefix {
		return Config{}, fmt.Errorf("DATALAKE_RAW_PREFIX and ATHENA_RESULTS_PREFIX must differ")
	}
	if err := cfg.Layout().TableDefinition().Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid table definition: %w", err)
	}

	return cfg, nil
}

var validate = validator.New()

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if strings.TrimSpace(value) == "" {
		return fallback
	}

	return value
}

func getEnvAsInt(key string, fallback int) (int, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback, nil
	}

	out, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}

	return out, nil
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		item := strings.TrimSpace(part)
		if item == "" {
			continue
		}
		out = append(out, item)
	}

	return out
}

func parseUptraceDSNFromOTLPHeaders(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}

	items := strings.Split(raw, ",")
	for _, item := range items {
		parts := strings.SplitN(strings.TrimSpace(item), "=", 2)
		if len(parts) != 2 {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(parts[0]), "uptrace-dsn") {
			value := strings.TrimSpace(parts[1])
			return strings.Trim(value, "\"'")
		}
	}

	return ""
}

const (
	EnvDev   = "dev"
	EnvStage = "stage"
	EnvProd  = "prod"
)

func parseAppEnv(v string) (string, error) {
	value := strings.ToLower(strings.TrimSpace(v))
	switch value {
	case EnvDev, EnvStage, EnvProd:
		return value, nil
	default:
		return "", fmt.Errorf("invalid APP_ENV %q: valid values are %s, %s, %s", v, EnvDev, EnvStage, EnvProd)
	}
}

package bootstrap

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	ServiceID string

	HTTPPort int
	GRPCPort int

	DatabaseURL string
	MaxDBConns  int32
	RedisURL    string

	TreasuryGRPCURL string
	OwnerSubject    string
	Beneficiary     string

	TokenSymbol   string
	TokenAddress  string
	TokenDecimals int

	KafkaBrokers              []string
	TopicFundsClaimed         string
	TopicCampaignRefunded     string
	TopicCampaignStarted      string
	TopicContributionMade     string
	TopicRefundBatchProcessed string

	RepayBatchSize     int
	IdempotencyTTL     time.Duration
	ProgressCacheTTL   time.Duration
	OutboxPollInterval time.Duration
	OutboxBatchSize    int
}

type configFile struct {
	Service struct {
		ID       string `yaml:"id"`
		HTTPPort int    `yaml:"http_port"`
		GRPCPort int    `yaml:"grpc_port"`
	} `yaml:"service"`
	Dependencies struct {
		DatabaseURL     string   `yaml:"database_url"`
		MaxDBConns      int32    `yaml:"max_db_conns"`
		RedisURL        string   `yaml:"redis_url"`
		TreasuryGRPCURL string   `yaml:"treasury_grpc_url"`
		KafkaBrokers    []string `yaml:"kafka_brokers"`
	} `yaml:"dependencies"`
	Funding struct {
		OwnerSubject     string `yaml:"owner_subject"`
		Beneficiary      string `yaml:"beneficiary"`
		TokenSymbol      string `yaml:"token_symbol"`
		TokenAddress     string `yaml:"token_address"`
		TokenDecimals    int    `yaml:"token_decimals"`
		RepayBatchSize   int    `yaml:"repay_batch_size"`
		ProgressCacheTTL int    `yaml:"progress_cache_ttl_seconds"`
	} `yaml:"funding"`
	Topics struct {
		FundsClaimed         string `yaml:"funds_claimed"`
		CampaignRefunded     string `yaml:"campaign_refunded"`
		CampaignStarted      string `yaml:"campaign_started"`
		ContributionMade     string `yaml:"contribution_made"`
		RefundBatchProcessed string `yaml:"refund_batch_processed"`
	} `yaml:"topics"`
}

func LoadConfig(path string) (Config, error) {
	cfg := Config{
		ServiceID:                 "M15-Campaign-Funding-Service",
		HTTPPort:                  8080,
		GRPCPort:                  9090,
		MaxDBConns:                10,
		TokenSymbol:               "VFT",
		TokenDecimals:             6,
		TopicFundsClaimed:         "campaign.funds_claimed",
		TopicCampaignRefunded:     "campaign.refunded",
		TopicCampaignStarted:      "campaign.started",
		TopicContributionMade:     "campaign.contribution_made",
		TopicRefundBatchProcessed: "campaign.refund_batch_processed",
		RepayBatchSize:            500,
		IdempotencyTTL:            7 * 24 * time.Hour,
		ProgressCacheTTL:          5 * time.Second,
		OutboxPollInterval:        2 * time.Second,
		OutboxBatchSize:           100,
	}

	raw, err := os.ReadFile(path)
	if err == nil {
		var f configFile
		if unmarshalErr := yaml.Unmarshal(raw, &f); unmarshalErr != nil {
			return Config{}, fmt.Errorf("parse config file: %w", unmarshalErr)
		}
		if f.Service.ID != "" {
			cfg.ServiceID = f.Service.ID
		}
		if f.Service.HTTPPort > 0 {
			cfg.HTTPPort = f.Service.HTTPPort
		}
		if f.Service.GRPCPort > 0 {
			cfg.GRPCPort = f.Service.GRPCPort
		}
		cfg.DatabaseURL = f.Dependencies.DatabaseURL
		if f.Dependencies.MaxDBConns > 0 {
			cfg.MaxDBConns = f.Dependencies.MaxDBConns
		}
		cfg.RedisURL = f.Dependencies.RedisURL
		cfg.TreasuryGRPCURL = f.Dependencies.TreasuryGRPCURL
		if len(f.Dependencies.KafkaBrokers) > 0 {
			cfg.KafkaBrokers = trimNonEmpty(f.Dependencies.KafkaBrokers)
		}
		cfg.OwnerSubject = f.Funding.OwnerSubject
		cfg.Beneficiary = f.Funding.Beneficiary
		if f.Funding.TokenSymbol != "" {
			cfg.TokenSymbol = f.Funding.TokenSymbol
		}
		cfg.TokenAddress = f.Funding.TokenAddress
		if f.Funding.TokenDecimals > 0 {
			cfg.TokenDecimals = f.Funding.TokenDecimals
		}
		if f.Funding.RepayBatchSize > 0 {
			cfg.RepayBatchSize = f.Funding.RepayBatchSize
		}
		if f.Funding.ProgressCacheTTL > 0 {
			cfg.ProgressCacheTTL = time.Duration(f.Funding.ProgressCacheTTL) * time.Second
		}
		if f.Topics.FundsClaimed != "" {
			cfg.TopicFundsClaimed = f.Topics.FundsClaimed
		}
		if f.Topics.CampaignRefunded != "" {
			cfg.TopicCampaignRefunded = f.Topics.CampaignRefunded
		}
		if f.Topics.CampaignStarted != "" {
			cfg.TopicCampaignStarted = f.Topics.CampaignStarted
		}
		if f.Topics.ContributionMade != "" {
			cfg.TopicContributionMade = f.Topics.ContributionMade
		}
		if f.Topics.RefundBatchProcessed != "" {
			cfg.TopicRefundBatchProcessed = f.Topics.RefundBatchProcessed
		}
	}

	cfg.DatabaseURL = envOrDefault("DATABASE_URL", cfg.DatabaseURL)
	cfg.RedisURL = envOrDefault("REDIS_URL", cfg.RedisURL)
	cfg.TreasuryGRPCURL = envOrDefault("TREASURY_GRPC_URL", cfg.TreasuryGRPCURL)
	cfg.OwnerSubject = envOrDefault("FUNDING_OWNER_SUBJECT", cfg.OwnerSubject)
	cfg.Beneficiary = envOrDefault("FUNDING_BENEFICIARY", cfg.Beneficiary)
	cfg.TokenSymbol = envOrDefault("FUNDING_TOKEN_SYMBOL", cfg.TokenSymbol)
	cfg.TokenAddress = envOrDefault("FUNDING_TOKEN_ADDRESS", cfg.TokenAddress)
	cfg.TokenDecimals = envInt("FUNDING_TOKEN_DECIMALS", cfg.TokenDecimals)
	cfg.KafkaBrokers = envCSV("KAFKA_BROKERS", cfg.KafkaBrokers)
	cfg.HTTPPort = envInt("HTTP_PORT", cfg.HTTPPort)
	cfg.GRPCPort = envInt("GRPC_PORT", cfg.GRPCPort)
	cfg.RepayBatchSize = envInt("FUNDING_REPAY_BATCH_SIZE", cfg.RepayBatchSize)
	cfg.IdempotencyTTL = time.Duration(envInt("IDEMPOTENCY_TTL_HOURS", int(cfg.IdempotencyTTL.Hours()))) * time.Hour
	cfg.OutboxPollInterval = time.Duration(envInt("OUTBOX_POLL_SECONDS", int(cfg.OutboxPollInterval.Seconds()))) * time.Second
	cfg.OutboxBatchSize = envInt("OUTBOX_BATCH_SIZE", cfg.OutboxBatchSize)

	return cfg, nil
}

func (c Config) TopicByEvent() map[string]string {
	return map[string]string{
		"campaign.funds_claimed":          c.TopicFundsClaimed,
		"campaign.refunded":               c.TopicCampaignRefunded,
		"campaign.started":                c.TopicCampaignStarted,
		"campaign.contribution_made":      c.TopicContributionMade,
		"campaign.refund_batch_processed": c.TopicRefundBatchProcessed,
	}
}

func envOrDefault(name, fallback string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	return fallback
}

func envInt(name string, fallback int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func envCSV(name string, fallback []string) []string {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	return trimNonEmpty(strings.Split(raw, ","))
}

func trimNonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		trimmed := strings.TrimSpace(v)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

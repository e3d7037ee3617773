package movers

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/wonny/movers/pkg/config"
)

// FromSettings builds the run configuration from environment settings and,
// when PolicyFile is set, overlays the YAML policy file on top.
func FromSettings(s config.SnapshotConfig) (Config, error) {
	cfg := DefaultConfig()
	cfg.TopN = s.TopN
	cfg.ChangeFormula = ChangeFormula(strings.ToUpper(strings.TrimSpace(s.ChangeFormula)))
	cfg.IncludeZeroInGainers = s.IncludeZeroInGainers
	cfg.OnAbsentChangeAmount = AbsentPolicy(strings.TrimSpace(s.OnAbsentChangeAmount))

	hour, minute, err := config.ParseClock(s.MarketClose)
	if err != nil {
		return Config{}, err
	}
	cfg.MarketCloseHour, cfg.MarketCloseMinute = hour, minute

	if s.Timezone != "" {
		loc, err := time.LoadLocation(s.Timezone)
		if err != nil {
			return Config{}, fmt.Errorf("load timezone %q: %w", s.Timezone, err)
		}
		cfg.Location = loc
	}

	if s.PolicyFile != "" {
		if cfg, err = LoadPolicyFile(s.PolicyFile, cfg); err != nil {
			return Config{}, err
		}
	}

	return cfg, cfg.Validate()
}

// policyFile is the YAML overlay. Unset keys keep the base value.
type policyFile struct {
	TopN                 *int    `yaml:"top_n"`
	MarketClose          *string `yaml:"market_close"`
	ChangeFormula        *string `yaml:"change_formula"`
	IncludeZeroInGainers *bool   `yaml:"include_zero_in_gainers"`
	OnAbsentChangeAmount *string `yaml:"on_absent_change_amount"`
	Timezone             *string `yaml:"timezone"`
}

// LoadPolicyFile reads a YAML policy and applies it over base.
// Unknown keys are rejected so a typo never silently falls back to a default.
func LoadPolicyFile(path string, base Config) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read policy file: %w", err)
	}
	return ParsePolicy(data, base)
}

// ParsePolicy applies YAML policy bytes over base.
func ParsePolicy(data []byte, base Config) (Config, error) {
	var pf policyFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&pf); err != nil {
		return Config{}, fmt.Errorf("decode policy: %w", err)
	}

	cfg := base
	if pf.TopN != nil {
		cfg.TopN = *pf.TopN
	}
	if pf.MarketClose != nil {
		hour, minute, err := config.ParseClock(*pf.MarketClose)
		if err != nil {
			return Config{}, err
		}
		cfg.MarketCloseHour, cfg.MarketCloseMinute = hour, minute
	}
	if pf.ChangeFormula != nil {
		cfg.ChangeFormula = ChangeFormula(strings.ToUpper(strings.TrimSpace(*pf.ChangeFormula)))
	}
	if pf.IncludeZeroInGainers != nil {
		cfg.IncludeZeroInGainers = *pf.IncludeZeroInGainers
	}
	if pf.OnAbsentChangeAmount != nil {
		cfg.OnAbsentChangeAmount = AbsentPolicy(strings.TrimSpace(*pf.OnAbsentChangeAmount))
	}
	if pf.Timezone != nil {
		loc, err := time.LoadLocation(*pf.Timezone)
		if err != nil {
			return Config{}, fmt.Errorf("load timezone %q: %w", *pf.Timezone, err)
		}
		cfg.Location = loc
	}

	return cfg, cfg.Validate()
}

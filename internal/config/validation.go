// Package config provides configuration management for the Value Tipster application.
package config

import (
	"fmt"
	"regexp"

	"github.com/go-playground/validator/v10"

	"github.com/yourusername/value-tipster/internal/models"
)

var seasonPattern = regexp.MustCompile(`^\d{4}([-/]\d{2}|[-/]\d{4})?$`)

// CustomValidator wraps the validator with custom validation rules
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator creates a new validator with custom validation functions
func NewValidator() *CustomValidator {
	v := validator.New()

	// Register custom validation functions
	_ = v.RegisterValidation("environment", validateEnvironment)
	_ = v.RegisterValidation("loglevel", validateLogLevel)
	_ = v.RegisterValidation("markets", validateMarkets)
	_ = v.RegisterValidation("season", validateSeason)
	_ = v.RegisterValidation("probmodel", validateProbabilityModel)

	return &CustomValidator{validator: v}
}

// Validate validates the entire configuration
func Validate(cfg *Config) error {
	cv := NewValidator()
	return cv.Validate(cfg)
}

// Validate validates the configuration using registered validation rules
func (cv *CustomValidator) Validate(cfg *Config) error {
	err := cv.validator.Struct(cfg)
	if err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			return formatValidationErrors(validationErrors)
		}
		return fmt.Errorf("validation failed: %w", err)
	}

	// Additional cross-field validations
	if err := validateCrossField(cfg); err != nil {
		return err
	}

	return nil
}

// validateEnvironment validates the environment field
func validateEnvironment(fl validator.FieldLevel) bool {
	env := fl.Field().String()
	switch env {
	case "development", "staging", "production":
		return true
	default:
		return false
	}
}

// validateLogLevel validates the log level field
func validateLogLevel(fl validator.FieldLevel) bool {
	level := fl.Field().String()
	switch level {
	case "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}

// validateMarkets validates market configuration
func validateMarkets(fl validator.FieldLevel) bool {
	markets, ok := fl.Field().Interface().([]string)
	if !ok || len(markets) == 0 {
		return false
	}

	validMarkets := map[string]bool{
		string(models.MarketMoneyline): true,
		string(models.MarketTotal):     true,
		string(models.MarketSpread):    true,
	}

	for _, market := range markets {
		if !validMarkets[market] {
			return false
		}
	}
	return true
}

// validateSeason accepts "2023", "2023-24", "2023/24" and "2023-2024"
func validateSeason(fl validator.FieldLevel) bool {
	return seasonPattern.MatchString(fl.Field().String())
}

func validateProbabilityModel(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case models.ProbabilityModelBucket, models.ProbabilityModelPoisson:
		return true
	default:
		return false
	}
}

// validateCrossField performs cross-field validations
func validateCrossField(cfg *Config) error {
	// Validate production environment requirements
	if cfg.IsProduction() && cfg.Database.Driver == "postgres" && cfg.Database.SSLMode == "disable" {
		return fmt.Errorf("production environment requires SSL mode to be 'require' or 'verify-full'")
	}

	// Validate connection pool settings
	if cfg.Database.MaxIdleConnections > cfg.Database.MaxConnections {
		return fmt.Errorf("max_idle_connections cannot exceed max_connections")
	}

	if cfg.Value.MinOdds > 0 && cfg.Value.MaxOdds > 0 && cfg.Value.MinOdds > cfg.Value.MaxOdds {
		return fmt.Errorf("min_odds cannot exceed max_odds")
	}

	switch cfg.Predictor.Mode {
	case "grpc":
		if cfg.Predictor.GRPCAddress == "" {
			return fmt.Errorf("predictor grpc_address is required in grpc mode")
		}
	case "http":
		if cfg.Predictor.HTTPAddress == "" {
			return fmt.Errorf("predictor http_address is required in http mode")
		}
	}

	if cfg.Predictor.CacheEnabled && cfg.Predictor.CacheTTLSeconds == 0 {
		return fmt.Errorf("predictor cache_ttl_seconds must be set when the cache is enabled")
	}

	if err := cfg.Value.Policy().Validate(); err != nil {
		return fmt.Errorf("invalid value policy: %w", err)
	}

	return nil
}

// formatValidationErrors formats validation errors into a readable string
func formatValidationErrors(validationErrors validator.ValidationErrors) error {
	var errMsg string
	for _, fieldError := range validationErrors {
		field := fieldError.StructField()
		tag := fieldError.Tag()
		value := fieldError.Value()

		switch tag {
		case "required", "required_if":
			errMsg += fmt.Sprintf("- Field '%s' is required\n", field)
		case "min", "max":
			errMsg += fmt.Sprintf("- Field '%s' validation failed: %s constraint violated\n", field, tag)
		case "gt", "gte", "lt", "lte":
			errMsg += fmt.Sprintf("- Field '%s' validation failed: numeric constraint %s violated\n", field, tag)
		case "environment":
			errMsg += fmt.Sprintf("- Field '%s' must be one of: development, staging, production\n", field)
		case "loglevel":
			errMsg += fmt.Sprintf("- Field '%s' must be one of: debug, info, warn, error\n", field)
		case "markets":
			errMsg += fmt.Sprintf("- Field '%s' must list markets from: moneyline, total, spread\n", field)
		case "season":
			errMsg += fmt.Sprintf("- Field '%s' must be a season such as 2023 or 2023-24, got '%v'\n", field, value)
		case "probmodel":
			errMsg += fmt.Sprintf("- Field '%s' must be one of: bucket, poisson\n", field)
		case "oneof":
			errMsg += fmt.Sprintf("- Field '%s' has invalid value '%v'\n", field, value)
		default:
			errMsg += fmt.Sprintf("- Field '%s' failed validation: %s\n", field, tag)
		}
	}
	return fmt.Errorf("configuration validation failed:\n%s", errMsg)
}

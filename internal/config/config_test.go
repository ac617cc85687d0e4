package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func validConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Host:     "127.0.0.1",
			Port:     3306,
			User:     "root",
			Database: "gridapi",
			TLSMode:  "false",
			Pool:     PoolConfig{MaxOpen: 25, MaxIdle: 5},
		},
		Server: ServerConfig{
			Port: 8080,
		},
		Observability: ObservabilityConfig{
			Logging: LoggingConfig{Level: "info", Format: "json"},
		},
	}
}

func TestValidateAcceptsDefaults(t *testing.T) {
	result := validConfig().Validate()
	assert.False(t, result.HasErrors(), result.Error())
	assert.Empty(t, result.Warnings)
}

func TestValidateRejectsMissingDatabase(t *testing.T) {
	cfg := validConfig()
	cfg.Database.Host = ""
	cfg.Database.Database = ""
	result := cfg.Validate()
	assert.True(t, result.HasErrors())
	assert.Contains(t, result.Error(), "database.host")
	assert.Contains(t, result.Error(), "database.database")
}

func TestValidateDSNBypassesDiscreteFields(t *testing.T) {
	cfg := validConfig()
	cfg.Database = DatabaseConfig{ConnectionString: "root:pw@tcp(db:3306)/grid"}
	result := cfg.Validate()
	assert.False(t, result.HasErrors(), result.Error())
}

func TestValidateRejectsBadTLSMode(t *testing.T) {
	cfg := validConfig()
	cfg.Database.TLSMode = "verify-everything"
	result := cfg.Validate()
	assert.True(t, result.HasErrors())
}

func TestValidateRateLimitNeedsPositiveValues(t *testing.T) {
	cfg := validConfig()
	cfg.Server.RateLimitEnabled = true
	result := cfg.Validate()
	assert.True(t, result.HasErrors())

	cfg.Server.RateLimitRPS = 50
	cfg.Server.RateLimitBurst = 100
	result = cfg.Validate()
	assert.False(t, result.HasErrors(), result.Error())
}

func TestValidateWarnsOnEmptyCORSOrigins(t *testing.T) {
	cfg := validConfig()
	cfg.Server.CORSEnabled = true
	result := cfg.Validate()
	assert.False(t, result.HasErrors())
	assert.NotEmpty(t, result.Warnings)
}

func TestDSNFromDiscreteFields(t *testing.T) {
	d := DatabaseConfig{
		Host: "db.example.com", Port: 4000, User: "app", Password: "secret", Database: "grid",
	}
	assert.Equal(t, "app:secret@tcp(db.example.com:4000)/grid?parseTime=true&loc=UTC", d.DSN())
}

func TestDSNAppendsRequiredParams(t *testing.T) {
	d := DatabaseConfig{ConnectionString: "app:pw@tcp(db:3306)/grid"}
	dsn := d.DSN()
	assert.Contains(t, dsn, "parseTime=true")
	assert.Contains(t, dsn, "loc=UTC")

	d = DatabaseConfig{ConnectionString: "app:pw@tcp(db:3306)/grid?parseTime=false"}
	assert.NotContains(t, d.DSN(), "parseTime=true")
}

func TestDSNTLSMode(t *testing.T) {
	d := DatabaseConfig{
		Host: "h", Port: 3306, User: "u", Database: "d", TLSMode: "skip-verify",
	}
	assert.Contains(t, d.DSN(), "tls=skip-verify")

	d.TLSMode = "false"
	assert.NotContains(t, d.DSN(), "tls=")
}

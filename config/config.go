package config

import (
	"os"
	"sync"

	"fleetdata/logutils"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`
	Database struct {
		// Driver selects the backing store: "postgres" (default) or "sqlite".
		Driver string `yaml:"driver"`
		// SQLitePath is the database file when driver is "sqlite".
		SQLitePath string `yaml:"sqlitePath"`
		Host       string `yaml:"host"`
		Port       string `yaml:"port"`
		DBName     string `yaml:"dbname"`
		User       string `yaml:"user"`
		Password   string `yaml:"password"`
		SSLMode    string `yaml:"sslmode"`
		TimeZone   string `yaml:"TimeZone"`
		// AutoMigrate runs schema migration on startup. Disable in
		// deployments where cmd/migrate owns the schema.
		AutoMigrate bool `yaml:"autoMigrate"`
	} `yaml:"database"`
	Auth struct {
		// TokenSecret enables the bearer-token middleware when non-empty.
		TokenSecret string `yaml:"tokenSecret"`
	} `yaml:"auth"`
	BulkInsertMax int `yaml:"bulkInsertMax"`
}

const (
	defaultAddr          = ":8080"
	defaultBulkInsertMax = 1000
)

var (
	once   sync.Once
	config *Config
)

func GetConfig() *Config {
	once.Do(func() {
		config = initConfig()
	})
	return config
}

// initConfig reads the configuration file, honoring the FLEETDATA_CONFIG
// environment variable as an override for the default path.
func initConfig() *Config {
	config := &Config{}
	configPath := "./etc/config.yaml"
	if p := os.Getenv("FLEETDATA_CONFIG"); p != "" {
		configPath = p
	}

	err := readConfig(configPath, config)
	if err != nil {
		logutils.Log.Error("init config", err)
		panic(err)
	}
	if config.Server.Addr == "" {
		config.Server.Addr = defaultAddr
	}
	if config.BulkInsertMax <= 0 {
		config.BulkInsertMax = defaultBulkInsertMax
	}
	return config
}

func readConfig(filePath string, config *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	err = yaml.Unmarshal(data, config)
	if err != nil {
		return err
	}
	return nil
}

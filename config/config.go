package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config contains application configuration parameters
type Config struct {
	// Server configuration
	Port         string        `json:"port"`
	Host         string        `json:"host"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
	IdleTimeout  time.Duration `json:"idle_timeout"`

	// Telegram Bot configuration
	Token           string `json:"token"`
	AdminTelegramID int64  `json:"admin_telegram_id"`

	// Database configuration
	DBName          string        `json:"db_name"`
	DBPath          string        `json:"db_path"`
	MaxOpenConns    int           `json:"max_open_conns"`
	MaxIdleConns    int           `json:"max_idle_conns"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime"`

	// Receipt processing configuration
	MinAmount   float64       `json:"min_amount"`
	RenderDPI   float64       `json:"render_dpi"`
	OCRLangs    []string      `json:"ocr_languages"`
	OCRWorkers  int           `json:"ocr_workers"`
	OCRTimeout  time.Duration `json:"ocr_timeout"`
	MaxFileSize int64         `json:"max_file_size"` // in bytes

	// Export configuration
	ExportPath  string `json:"export_path"`
	ExportSheet string `json:"export_sheet"`

	// App configuration
	Environment string `json:"environment"` // development, production
	LogLevel    string `json:"log_level"`   // debug, info, warn, error
}

// NewConfig creates and returns a new configuration instance
func NewConfig() (*Config, error) {
	cfg := &Config{
		// Server defaults
		Port:         ":8082",
		Host:         "0.0.0.0",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,

		// Database defaults
		DBName:          "chekbot.db",
		DBPath:          "./data/",
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,

		// Receipt processing defaults
		MinAmount:   7900,
		RenderDPI:   300,
		OCRLangs:    []string{"rus", "eng"},
		OCRWorkers:  2,
		OCRTimeout:  90 * time.Second,
		MaxFileSize: 10 * 1024 * 1024, // 10MB

		// Export defaults
		ExportPath:  "./data/userdata.xlsx",
		ExportSheet: "UserData",

		// App defaults
		Environment: "development",
		LogLevel:    "info",
	}

	// Override with environment variables if set
	if port := os.Getenv("PORT"); port != "" {
		if port[0] != ':' {
			cfg.Port = ":" + port
		} else {
			cfg.Port = port
		}
	}

	if host := os.Getenv("HOST"); host != "" {
		cfg.Host = host
	}

	if token := os.Getenv("BOT_TOKEN"); token != "" {
		cfg.Token = token
	}

	if adminID := os.Getenv("ADMIN_TELEGRAM_ID"); adminID != "" {
		if id, err := strconv.ParseInt(adminID, 10, 64); err == nil {
			cfg.AdminTelegramID = id
		}
	}

	if dbName := os.Getenv("DB_NAME"); dbName != "" {
		cfg.DBName = dbName
	}

	if dbPath := os.Getenv("DB_PATH"); dbPath != "" {
		cfg.DBPath = dbPath
	}

	if exportPath := os.Getenv("EXPORT_PATH"); exportPath != "" {
		cfg.ExportPath = exportPath
	}

	if exportSheet := os.Getenv("EXPORT_SHEET"); exportSheet != "" {
		cfg.ExportSheet = exportSheet
	}

	if env := os.Getenv("ENVIRONMENT"); env != "" {
		cfg.Environment = env
	}

	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		cfg.LogLevel = logLevel
	}

	// Parse numeric environment variables
	if minAmount := os.Getenv("MIN_AMOUNT"); minAmount != "" {
		if amount, err := strconv.ParseFloat(minAmount, 64); err == nil {
			cfg.MinAmount = amount
		}
	}

	if dpi := os.Getenv("RENDER_DPI"); dpi != "" {
		if v, err := strconv.ParseFloat(dpi, 64); err == nil {
			cfg.RenderDPI = v
		}
	}

	if langs := os.Getenv("OCR_LANGUAGES"); langs != "" {
		cfg.OCRLangs = strings.Split(langs, ",")
	}

	if workers := os.Getenv("OCR_WORKERS"); workers != "" {
		if v, err := strconv.Atoi(workers); err == nil {
			cfg.OCRWorkers = v
		}
	}

	if maxFileSize := os.Getenv("MAX_FILE_SIZE"); maxFileSize != "" {
		if size, err := strconv.ParseInt(maxFileSize, 10, 64); err == nil {
			cfg.MaxFileSize = size
		}
	}

	if maxOpenConns := os.Getenv("DB_MAX_OPEN_CONNS"); maxOpenConns != "" {
		if conns, err := strconv.Atoi(maxOpenConns); err == nil {
			cfg.MaxOpenConns = conns
		}
	}

	if maxIdleConns := os.Getenv("DB_MAX_IDLE_CONNS"); maxIdleConns != "" {
		if conns, err := strconv.Atoi(maxIdleConns); err == nil {
			cfg.MaxIdleConns = conns
		}
	}

	// Parse duration environment variables
	if ocrTimeout := os.Getenv("OCR_TIMEOUT"); ocrTimeout != "" {
		if timeout, err := time.ParseDuration(ocrTimeout); err == nil {
			cfg.OCRTimeout = timeout
		}
	}

	if readTimeout := os.Getenv("READ_TIMEOUT"); readTimeout != "" {
		if timeout, err := time.ParseDuration(readTimeout); err == nil {
			cfg.ReadTimeout = timeout
		}
	}

	if writeTimeout := os.Getenv("WRITE_TIMEOUT"); writeTimeout != "" {
		if timeout, err := time.ParseDuration(writeTimeout); err == nil {
			cfg.WriteTimeout = timeout
		}
	}

	if idleTimeout := os.Getenv("IDLE_TIMEOUT"); idleTimeout != "" {
		if timeout, err := time.ParseDuration(idleTimeout); err == nil {
			cfg.IdleTimeout = timeout
		}
	}

	if connMaxLifetime := os.Getenv("DB_CONN_MAX_LIFETIME"); connMaxLifetime != "" {
		if lifetime, err := time.ParseDuration(connMaxLifetime); err == nil {
			cfg.ConnMaxLifetime = lifetime
		}
	}

	return cfg, nil
}

// IsDevelopment returns true if the environment is development
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction returns true if the environment is production
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// GetDatabasePath returns the full path to the database file
func (c *Config) GetDatabasePath() string {
	return c.DBPath + c.DBName
}

// GetServerAddress returns the server address
func (c *Config) GetServerAddress() string {
	return c.Host + c.Port
}

// ValidateConfig validates the configuration
func (c *Config) ValidateConfig() error {
	if c.Token == "" {
		return fmt.Errorf("telegram bot token is required")
	}

	if c.DBName == "" {
		return fmt.Errorf("database name is required")
	}

	if c.MinAmount <= 0 {
		return fmt.Errorf("minimum receipt amount must be positive")
	}

	if c.RenderDPI <= 0 {
		return fmt.Errorf("render DPI must be positive")
	}

	if len(c.OCRLangs) == 0 {
		return fmt.Errorf("at least one OCR language is required")
	}

	if c.OCRWorkers <= 0 {
		return fmt.Errorf("OCR worker count must be positive")
	}

	if c.ExportPath == "" {
		return fmt.Errorf("export path is required")
	}

	if c.MaxFileSize <= 0 {
		return fmt.Errorf("maximum file size must be positive")
	}

	return nil
}

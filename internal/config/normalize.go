package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeBus()
	c.normalizePrinter()
	c.normalizeLedger()
	c.normalizeUnits()
	c.normalizeNotify()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeBus() {
	c.Bus.RedisAddr = strings.TrimSpace(c.Bus.RedisAddr)
	if c.Bus.RedisAddr == "" {
		if value, ok := os.LookupEnv("BATTRACK_REDIS_ADDR"); ok {
			c.Bus.RedisAddr = strings.TrimSpace(value)
		}
	}
	if c.Bus.RedisAddr == "" {
		c.Bus.RedisAddr = defaultRedisAddr
	}
	if c.Bus.RedisPassword == "" {
		if value, ok := os.LookupEnv("BATTRACK_REDIS_PASSWORD"); ok {
			c.Bus.RedisPassword = value
		}
	}
	c.Bus.TopicPrefix = strings.Trim(strings.TrimSpace(c.Bus.TopicPrefix), "/")
	if c.Bus.TopicPrefix == "" {
		c.Bus.TopicPrefix = defaultTopicPrefix
	}
	if c.Bus.StatusInterval <= 0 {
		c.Bus.StatusInterval = defaultStatusInterval
	}
}

func (c *Config) normalizePrinter() {
	c.Printer.Transport = strings.ToLower(strings.TrimSpace(c.Printer.Transport))
	if c.Printer.Transport == "" {
		c.Printer.Transport = defaultPrinterTransport
	}
	c.Printer.Address = strings.TrimSpace(c.Printer.Address)
	c.Printer.SerialDevice = strings.TrimSpace(c.Printer.SerialDevice)
	if c.Printer.SerialBaud <= 0 {
		c.Printer.SerialBaud = defaultSerialBaud
	}
	if c.Printer.SocketTimeout <= 0 {
		c.Printer.SocketTimeout = defaultSocketTimeout
	}
	if c.Printer.ConnectAttempts <= 0 {
		c.Printer.ConnectAttempts = defaultConnectAttempts
	}
	if c.Printer.ConnectBackoff <= 0 {
		c.Printer.ConnectBackoff = defaultConnectBackoff
	}
}

func (c *Config) normalizeLedger() {
	if strings.TrimSpace(c.Ledger.SerialFile) == "" {
		c.Ledger.SerialFile = filepath.Join(c.Paths.DataDir, "serials.csv")
	} else if expanded, err := expandPath(c.Ledger.SerialFile); err == nil {
		c.Ledger.SerialFile = expanded
	}
	if strings.TrimSpace(c.Ledger.SavFile) == "" {
		c.Ledger.SavFile = filepath.Join(c.Paths.DataDir, "sav.csv")
	} else if expanded, err := expandPath(c.Ledger.SavFile); err == nil {
		c.Ledger.SavFile = expanded
	}
	c.Ledger.SerialPrefix = strings.TrimSpace(c.Ledger.SerialPrefix)
	if c.Ledger.SerialPrefix == "" {
		c.Ledger.SerialPrefix = defaultSerialPrefix
	}
	c.Ledger.PlaceholderMarker = strings.TrimSpace(c.Ledger.PlaceholderMarker)
	if c.Ledger.PlaceholderMarker == "" {
		c.Ledger.PlaceholderMarker = defaultPlaceholderMarker
	}
}

func (c *Config) normalizeUnits() {
	if len(c.Units.Compatibility) == 0 {
		c.Units.Compatibility = defaultCompatibility()
		return
	}
	normalized := make(map[string][]string, len(c.Units.Compatibility))
	for unitType, codes := range c.Units.Compatibility {
		key := strings.ToUpper(strings.TrimSpace(unitType))
		if key == "" {
			continue
		}
		cleaned := make([]string, 0, len(codes))
		for _, code := range codes {
			code = strings.ReplaceAll(strings.TrimSpace(code), ".", "")
			if code == "" {
				continue
			}
			cleaned = append(cleaned, code)
		}
		// Empty rows stay so validation can reject them.
		normalized[key] = cleaned
	}
	c.Units.Compatibility = normalized
}

func (c *Config) normalizeNotify() {
	c.Notify.SMTPHost = strings.TrimSpace(c.Notify.SMTPHost)
	c.Notify.SMTPUsername = strings.TrimSpace(c.Notify.SMTPUsername)
	if c.Notify.SMTPPassword == "" {
		if value, ok := os.LookupEnv("BATTRACK_SMTP_PASSWORD"); ok {
			c.Notify.SMTPPassword = value
		}
	}
	if c.Notify.SMTPPort <= 0 {
		c.Notify.SMTPPort = defaultSMTPPort
	}
	c.Notify.From = strings.TrimSpace(c.Notify.From)
	recipients := make([]string, 0, len(c.Notify.Recipients))
	for _, addr := range c.Notify.Recipients {
		addr = strings.TrimSpace(addr)
		if addr != "" {
			recipients = append(recipients, addr)
		}
	}
	c.Notify.Recipients = recipients
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

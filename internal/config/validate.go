package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateBus(); err != nil {
		return err
	}
	if err := c.validatePrinter(); err != nil {
		return err
	}
	if err := c.validateQueue(); err != nil {
		return err
	}
	if err := c.validateLedger(); err != nil {
		return err
	}
	if err := c.validateScan(); err != nil {
		return err
	}
	if err := c.validateNotify(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateBus() error {
	if strings.TrimSpace(c.Bus.RedisAddr) == "" {
		return errors.New("bus.redis_addr must be set")
	}
	if c.Bus.StatusInterval <= 0 {
		return errors.New("bus.status_interval must be positive")
	}
	return nil
}

func (c *Config) validatePrinter() error {
	switch c.Printer.Transport {
	case "tcp":
		if c.Printer.Address == "" {
			return errors.New("printer.address must be set when printer.transport is \"tcp\"")
		}
	case "serial":
		if c.Printer.SerialDevice == "" {
			return errors.New("printer.serial_device must be set when printer.transport is \"serial\"")
		}
	default:
		return fmt.Errorf("printer.transport: unsupported value %q", c.Printer.Transport)
	}
	return ensurePositiveMap(map[string]int{
		"printer.socket_timeout":   c.Printer.SocketTimeout,
		"printer.connect_attempts": c.Printer.ConnectAttempts,
		"printer.connect_backoff":  c.Printer.ConnectBackoff,
	})
}

func (c *Config) validateQueue() error {
	return ensurePositiveMap(map[string]int{
		"queue.poll_interval":  c.Queue.PollInterval,
		"queue.retry_interval": c.Queue.RetryInterval,
		"queue.success_delay":  c.Queue.SuccessDelay,
	})
}

func (c *Config) validateLedger() error {
	if c.Ledger.SerialPrefix == "" {
		return errors.New("ledger.serial_prefix must be set")
	}
	if c.Ledger.PlaceholderMarker == "" {
		return errors.New("ledger.placeholder_marker must be set")
	}
	for unitType, codes := range c.Units.Compatibility {
		if len(codes) == 0 {
			return fmt.Errorf("units.compatibility.%s must list at least one capacity code", unitType)
		}
	}
	return nil
}

func (c *Config) validateScan() error {
	return ensurePositiveMap(map[string]int{
		"scan.session_timeout":     c.Scan.SessionTimeout,
		"scan.invalid_reset_delay": c.Scan.InvalidResetDelay,
	})
}

func (c *Config) validateNotify() error {
	if !c.Notify.Enabled {
		return nil
	}
	if c.Notify.SMTPHost == "" {
		return errors.New("notify.smtp_host must be set when notify.enabled is true")
	}
	if c.Notify.From == "" {
		return errors.New("notify.from must be set when notify.enabled is true")
	}
	if len(c.Notify.Recipients) == 0 {
		return errors.New("notify.recipients must include at least one address when notify.enabled is true")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}

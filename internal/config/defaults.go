package config

const (
	defaultDataDir            = "~/.local/share/battrack"
	defaultLogDir             = "~/.local/share/battrack/logs"
	defaultRedisAddr          = "localhost:6379"
	defaultTopicPrefix        = "printer"
	defaultStatusInterval     = 30
	defaultPrinterTransport   = "tcp"
	defaultPrinterAddress     = "192.168.1.50:9100"
	defaultSerialBaud         = 9600
	defaultSocketTimeout      = 5
	defaultConnectAttempts    = 3
	defaultConnectBackoff     = 5
	defaultQueuePollInterval  = 1
	defaultQueueRetryInterval = 10
	defaultQueueSuccessDelay  = 2
	defaultSerialPrefix       = "RW-48v"
	defaultPlaceholderMarker  = "XXX"
	defaultSessionTimeout     = 30
	defaultInvalidResetDelay  = 2
	defaultSMTPPort           = 465
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
)

func defaultCompatibility() map[string][]string {
	return map[string][]string{
		"A": {"13", "12"},
		"B": {"271", "230"},
		"C": {"86"},
	}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		Bus: Bus{
			RedisAddr:      defaultRedisAddr,
			TopicPrefix:    defaultTopicPrefix,
			StatusInterval: defaultStatusInterval,
		},
		Printer: Printer{
			Transport:       defaultPrinterTransport,
			Address:         defaultPrinterAddress,
			SerialBaud:      defaultSerialBaud,
			SocketTimeout:   defaultSocketTimeout,
			ConnectAttempts: defaultConnectAttempts,
			ConnectBackoff:  defaultConnectBackoff,
		},
		Queue: Queue{
			PollInterval:  defaultQueuePollInterval,
			RetryInterval: defaultQueueRetryInterval,
			SuccessDelay:  defaultQueueSuccessDelay,
		},
		Ledger: Ledger{
			SerialPrefix:      defaultSerialPrefix,
			PlaceholderMarker: defaultPlaceholderMarker,
		},
		Units: Units{
			Compatibility: defaultCompatibility(),
		},
		Scan: Scan{
			SessionTimeout:    defaultSessionTimeout,
			InvalidResetDelay: defaultInvalidResetDelay,
		},
		Notify: Notify{
			SMTPPort: defaultSMTPPort,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}

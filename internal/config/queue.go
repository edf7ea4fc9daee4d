package config

// QueueConfig holds the RabbitMQ settings for cross-instance notification
// fan-out.  When URL is empty the server notifies its own connections only.
type QueueConfig struct {
	URL      string
	Exchange string
}

// LoadQueueConfig reads RABBITMQ_URL (or AMQP_URL) and NOTIFY_EXCHANGE.
func LoadQueueConfig() QueueConfig {
	url := envStr("RABBITMQ_URL", "")
	if url == "" {
		url = envStr("AMQP_URL", "")
	}
	return QueueConfig{
		URL:      url,
		Exchange: envStr("NOTIFY_EXCHANGE", "notifications"),
	}
}

// Enabled reports whether a broker is configured.
func (q QueueConfig) Enabled() bool { return q.URL != "" }

package config

import "time"

// ElasticsearchConfig содержит конфигурацию для подключения к Elasticsearch
type ElasticsearchConfig struct {
	URL        string        `env:"ELASTICSEARCH_URL"`
	Index      string        `env:"ELASTICSEARCH_INDEX" envDefault:"ticketboss-reservations"`
	Username   string        `env:"ELASTICSEARCH_USERNAME"`
	Password   string        `env:"ELASTICSEARCH_PASSWORD"`
	MaxRetries int           `env:"ELASTICSEARCH_MAX_RETRIES" envDefault:"3"`
	Timeout    time.Duration `env:"ELASTICSEARCH_TIMEOUT" envDefault:"30s"`
}

// Enabled reports whether an Elasticsearch URL is configured
func (c ElasticsearchConfig) Enabled() bool {
	return c.URL != ""
}

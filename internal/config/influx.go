package config

import (
	influxdb3 "github.com/InfluxCommunity/influxdb3-go/v2/influxdb3"
	"github.com/pkg/errors"
)

// InfluxStore is the connection handle for time-series row storage.
type InfluxStore struct {
	Client   *influxdb3.Client
	Database string
}

// NewInfluxStore creates the InfluxDB v3 client. The token may be empty
// for a local no-auth instance.
func NewInfluxStore(cfg *Config) (*InfluxStore, error) {
	client, err := influxdb3.New(influxdb3.ClientConfig{
		Host:     cfg.InfluxURL,
		Token:    cfg.InfluxToken,
		Database: cfg.InfluxDatabase,
	})
	if err != nil {
		return nil, errors.Wrap(err, "creating influxdb client")
	}

	return &InfluxStore{
		Client:   client,
		Database: cfg.InfluxDatabase,
	}, nil
}

// Close releases the client.
func (i *InfluxStore) Close() error {
	if i.Client != nil {
		return i.Client.Close()
	}
	return nil
}

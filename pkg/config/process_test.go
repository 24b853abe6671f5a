package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPProfConfig_Validate(t *testing.T) {
	testCases := []struct {
		name    string
		cfg     PProfConfig
		wantErr bool
	}{
		{name: "disabled ignores address", cfg: PProfConfig{Addr: "nonsense"}},
		{name: "loopback", cfg: PProfConfig{Enabled: true, Addr: "localhost:6060"}},
		{name: "any interface", cfg: PProfConfig{Enabled: true, Addr: ":6060"}},
		{name: "missing port", cfg: PProfConfig{Enabled: true, Addr: "localhost"}, wantErr: true},
		{name: "empty", cfg: PProfConfig{Enabled: true}, wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// when
			err := tc.cfg.Validate()
			// then
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestShutdownConfig_Validate(t *testing.T) {
	assert.Error(t, (&ShutdownConfig{}).Validate())
	assert.NoError(t, (&ShutdownConfig{Timeout: time.Second}).Validate())
}

func TestSubscriberConfig(t *testing.T) {
	valid := SubscriberConfig{Enabled: true, Stream: "CATALOG", Subject: "catalog.products.updated", Consumer: "storefront", Batch: 10, Timeout: time.Second, Interval: time.Second, Workers: 1}

	testCases := []struct {
		name    string
		mutate  func(c *SubscriberConfig)
		wantErr bool
	}{
		{name: "valid", mutate: func(*SubscriberConfig) {}},
		{name: "disabled", mutate: func(c *SubscriberConfig) { c.Enabled = false; c.Stream = "" }},
		{name: "dotted consumer", mutate: func(c *SubscriberConfig) { c.Consumer = "store.front" }, wantErr: true},
		{name: "no workers", mutate: func(c *SubscriberConfig) { c.Workers = 0 }, wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			cfg := valid
			tc.mutate(&cfg)
			// when
			err := cfg.Validate()
			// then
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}

	assert.Equal(t, "storefront-abc", valid.DurableFor("abc"))
	assert.Equal(t, "storefront", valid.DurableFor(""))
}

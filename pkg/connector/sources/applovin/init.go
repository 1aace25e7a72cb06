package applovin

import (
	"github.com/ajitpratap0/nova/pkg/config"
	"github.com/ajitpratap0/nova/pkg/connector/core"
	"github.com/ajitpratap0/nova/pkg/connector/registry"
)

func init() {
	registry.RegisterSource("applovin", func(config *config.BaseConfig) (core.Source, error) {
		return NewApplovinSource("applovin", config)
	})
}

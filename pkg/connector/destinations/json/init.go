package json

import (
	"github.com/ajitpratap0/nova/pkg/config"
	"github.com/ajitpratap0/nova/pkg/connector/core"
	"github.com/ajitpratap0/nova/pkg/connector/registry"
)

func init() {
	registry.RegisterDestination("json", func(cfg *config.BaseConfig) (core.Destination, error) {
		return NewJSONDestination(cfg)
	})
}

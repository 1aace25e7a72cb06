package applovin

import (
	"fmt"

	"github.com/ajitpratap0/nova/pkg/errors"
)

// streamDescriptor is a data-driven description of one report stream: its
// column set, primary keys, optional replication key, and windowing strategy.
type streamDescriptor struct {
	Name           string
	Path           string
	Columns        []string
	PrimaryKeys    []string
	ReplicationKey string
	WindowMode     WindowMode
	MaxWindowDays  int
}

// decimalColumns lists monetary and ratio columns whose values must keep
// their exact decimal representation instead of being rounded through
// float64.
var decimalColumns = map[string]bool{
	"cost":               true,
	"ctr":                true,
	"conversion_rate":    true,
	"sales":              true,
	"campaign_roas_goal": true,
}

// integerColumns lists count columns.
var integerColumns = map[string]bool{
	"hour":        true,
	"impressions": true,
	"clicks":      true,
	"conversions": true,
}

var streams = []streamDescriptor{
	{
		Name: "reports",
		Path: "report",
		Columns: []string{
			"day",
			"campaign",
			"campaign_id_external",
			"cost",
			"country",
			"platform",
			"impressions",
			"clicks",
			"ctr",
			"conversions",
			"conversion_rate",
			"sales",
			"ad",
			"ad_id",
			"ad_type",
			"creative_set",
			"creative_set_id",
			"campaign_type",
			"campaign_roas_goal",
			"device_type",
		},
		PrimaryKeys: []string{"day", "campaign"},
		WindowMode:  WindowModeSingle,
	},
	{
		Name: "ad_reports",
		Path: "report",
		Columns: []string{
			"day",
			"hour",
			"campaign",
			"campaign_id_external",
			"ad",
			"ad_id",
			"ad_type",
			"cost",
			"country",
			"platform",
			"impressions",
			"clicks",
			"ctr",
			"conversions",
			"conversion_rate",
			"sales",
			"device_type",
		},
		PrimaryKeys:    []string{"day", "hour", "campaign", "ad_id"},
		ReplicationKey: "day",
		WindowMode:     WindowModeDailyChunks,
		MaxWindowDays:  1,
	},
}

// streamByName resolves a stream descriptor by its configured name.
func streamByName(name string) (streamDescriptor, error) {
	for _, s := range streams {
		if s.Name == name {
			return s, nil
		}
	}
	return streamDescriptor{}, errors.New(errors.ErrorTypeConfig,
		fmt.Sprintf("unknown report stream %q", name))
}

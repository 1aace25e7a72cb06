package applovin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamByName(t *testing.T) {
	reports, err := streamByName("reports")
	require.NoError(t, err)
	assert.Equal(t, "report", reports.Path)
	assert.Equal(t, []string{"day", "campaign"}, reports.PrimaryKeys)
	assert.Equal(t, WindowModeSingle, reports.WindowMode)
	assert.Empty(t, reports.ReplicationKey)

	adReports, err := streamByName("ad_reports")
	require.NoError(t, err)
	assert.Equal(t, WindowModeDailyChunks, adReports.WindowMode)
	assert.Equal(t, 1, adReports.MaxWindowDays)
	assert.Equal(t, "day", adReports.ReplicationKey)
	assert.Equal(t, []string{"day", "hour", "campaign", "ad_id"}, adReports.PrimaryKeys)

	_, err = streamByName("bogus")
	require.Error(t, err)
}

func TestDefaultColumns(t *testing.T) {
	reports, err := streamByName("reports")
	require.NoError(t, err)
	assert.Equal(t, "day", reports.Columns[0], "day leads so default ordering is stable")
	assert.Contains(t, reports.Columns, "campaign_roas_goal")
	assert.NotContains(t, reports.Columns, "hour")

	adReports, err := streamByName("ad_reports")
	require.NoError(t, err)
	assert.Contains(t, adReports.Columns, "hour")

	for column := range decimalColumns {
		assert.Contains(t, reports.Columns, column)
	}
}

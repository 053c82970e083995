package alloc_test

import (
	"testing"

	"github.com/TheRetikGM/ren-utils/alloc"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/stretchr/testify/require"
)

type fixedStats struct {
	total, used int
}

func (s fixedStats) StatsJson(json jwriter.ObjectState) {
	json.Name("TotalBytes").Int(s.total)
	json.Name("UsedBytes").Int(s.used)
}

func TestBuildStatsString(t *testing.T) {
	str := alloc.BuildStatsString(fixedStats{total: 100, used: 42})
	require.JSONEq(t, `{"TotalBytes":100,"UsedBytes":42}`, str)
}

func TestStatisticsAdd(t *testing.T) {
	var stats alloc.Statistics
	stats.Clear()

	stats.AddStatistics(&alloc.Statistics{TotalBytes: 100, UsedBytes: 40})
	stats.AddStatistics(&alloc.Statistics{TotalBytes: 50, UsedBytes: 10})
	require.Equal(t, alloc.Statistics{TotalBytes: 150, UsedBytes: 50}, stats)
}

func TestPoolStatisticsAdd(t *testing.T) {
	var stats alloc.PoolStatistics
	stats.Clear()

	stats.AddPoolStatistics(&alloc.PoolStatistics{
		Statistics: alloc.Statistics{TotalBytes: 160, UsedBytes: 32},
		TotalItems: 10,
		UsedItems:  2,
	})
	require.Equal(t, alloc.PoolStatistics{
		Statistics: alloc.Statistics{TotalBytes: 160, UsedBytes: 32},
		TotalItems: 10,
		UsedItems:  2,
	}, stats)
}

package alloc

import (
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
)

// Statistics describes the memory consumption of a single allocator.
type Statistics struct {
	TotalBytes int
	UsedBytes  int
}

func (s *Statistics) Clear() {
	s.TotalBytes = 0
	s.UsedBytes = 0
}

func (s *Statistics) AddStatistics(other *Statistics) {
	s.TotalBytes += other.TotalBytes
	s.UsedBytes += other.UsedBytes
}

// PoolStatistics extends Statistics with slot-level figures for fixed-slot allocators.
type PoolStatistics struct {
	Statistics
	TotalItems int
	UsedItems  int
}

func (s *PoolStatistics) Clear() {
	s.Statistics.Clear()
	s.TotalItems = 0
	s.UsedItems = 0
}

func (s *PoolStatistics) AddPoolStatistics(other *PoolStatistics) {
	s.Statistics.AddStatistics(&other.Statistics)
	s.TotalItems += other.TotalItems
	s.UsedItems += other.UsedItems
}

// StatsWriter is implemented by all allocators in this module and populates a json object
// with information about the allocator's current usage.
type StatsWriter interface {
	StatsJson(json jwriter.ObjectState)
}

// BuildStatsString builds a json document describing the current state of the provided
// allocator. The exact fields vary by allocator, but capacity and usage figures are always
// present.
func BuildStatsString(s StatsWriter) string {
	writer := jwriter.NewWriter()

	objState := writer.Object()
	s.StatsJson(objState)
	objState.End()

	return string(writer.Bytes())
}

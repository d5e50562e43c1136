package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSampleDisplay(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name   string
		sample Sample
		want   string
	}{
		{"percent", PercentSample(FieldCPUPercent, 50, now), "50%"},
		{"percent rounds", PercentSample(FieldCPUPercent, 49.6, now), "50%"},
		{"bytes small", BytesSample(FieldMemUsed, 512, now), "512 B"},
		{"bytes mib", BytesSample(FieldMemUsed, 8*1024*1024, now), "8.0 MiB"},
		{"bytes gib", BytesSample(FieldMemTotal, 16*1024*1024*1024, now), "16.0 GiB"},
		{"rate", RateSample(FieldNetRx, 2.5 * 1024 * 1024, now), "2.5 MiB/s"},
		{"gauge", GaugeSample(FieldLoad1, 1.26, now), "1.3"},
		{"gauge ties to even", GaugeSample(FieldLoad1, 1.25, now), "1.2"},
		{"text", TextSample(FieldHostname, "box", now), "box"},
		{"uptime days", DurationSample(FieldUptime, 26*time.Hour, now), "1d 2h"},
		{"uptime hours", DurationSample(FieldUptime, 90*time.Minute, now), "1h 30m"},
		{"uptime minutes", DurationSample(FieldUptime, 5*time.Minute, now), "5m"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.sample.Display())
		})
	}
}

func TestStorePublishLoad(t *testing.T) {
	st := NewStore()
	assert.Nil(t, st.Load())

	s1 := &Snapshot{Samples: map[Field]Sample{}}
	st.Publish(s1)
	got := st.Load()
	assert.Same(t, s1, got)
	assert.Equal(t, uint64(1), got.Version)

	s2 := &Snapshot{Samples: map[Field]Sample{}}
	st.Publish(s2)
	assert.Same(t, s2, st.Load())
	assert.Equal(t, uint64(2), s2.Version)
}

func TestSnapshotNilSafe(t *testing.T) {
	var s *Snapshot
	_, ok := s.Sample(FieldCPUPercent)
	assert.False(t, ok)
	_, ok = s.History(FieldNetRx)
	assert.False(t, ok)
}

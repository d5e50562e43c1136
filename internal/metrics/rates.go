package metrics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shirou/gopsutil/v4/disk"
	gopsnet "github.com/shirou/gopsutil/v4/net"

	"github.com/ep9io/ax206dash/internal/model"
)

// counters are the cumulative byte counts throughput rates derive from.
type counters struct {
	rxBytes    uint64
	txBytes    uint64
	readBytes  uint64
	writeBytes uint64
}

// pollRates reads the current counters and, when a previous reading exists,
// emits bytes-per-second samples from the delta. The first poll after start
// only primes the state and emits nothing.
func (s *SystemSource) pollRates(ctx context.Context, out map[model.Field]model.Sample, now time.Time) error {
	cur, err := s.readCounters(ctx)
	if err != nil {
		return err
	}

	defer func() {
		s.prev = cur
		s.prevAt = now
		s.havePrev = true
	}()

	if !s.havePrev {
		return nil
	}
	elapsed := now.Sub(s.prevAt).Seconds()
	if elapsed <= 0 {
		return nil
	}

	out[model.FieldNetRx] = model.RateSample(model.FieldNetRx, rate(s.prev.rxBytes, cur.rxBytes, elapsed), now)
	out[model.FieldNetTx] = model.RateSample(model.FieldNetTx, rate(s.prev.txBytes, cur.txBytes, elapsed), now)
	out[model.FieldDiskReadRate] = model.RateSample(model.FieldDiskReadRate, rate(s.prev.readBytes, cur.readBytes, elapsed), now)
	out[model.FieldDiskWriteRate] = model.RateSample(model.FieldDiskWriteRate, rate(s.prev.writeBytes, cur.writeBytes, elapsed), now)
	return nil
}

func (s *SystemSource) readCounters(ctx context.Context) (counters, error) {
	var cur counters
	var errs []error

	nics, err := gopsnet.IOCountersWithContext(ctx, true)
	if err != nil {
		errs = append(errs, fmt.Errorf("net counters: %w", err))
	} else {
		for _, nic := range nics {
			if !s.wantNIC(nic.Name) {
				continue
			}
			cur.rxBytes += nic.BytesRecv
			cur.txBytes += nic.BytesSent
		}
	}

	ios, err := disk.IOCountersWithContext(ctx)
	if err != nil {
		errs = append(errs, fmt.Errorf("disk counters: %w", err))
	} else {
		for _, io := range ios {
			cur.readBytes += io.ReadBytes
			cur.writeBytes += io.WriteBytes
		}
	}

	return cur, errors.Join(errs...)
}

// wantNIC applies the configured interface filter; with no filter everything
// except loopback counts.
func (s *SystemSource) wantNIC(name string) bool {
	if len(s.networks) == 0 {
		return name != "lo"
	}
	for _, want := range s.networks {
		if name == want {
			return true
		}
	}
	return false
}

// rate converts a counter delta to per-second, treating wraparound or reset
// as zero rather than a huge negative spike.
func rate(prev, cur uint64, elapsed float64) float64 {
	if cur < prev {
		return 0
	}
	return float64(cur-prev) / elapsed
}

// Package metrics produces the samples the dashboard renders. The system
// source reads host telemetry through gopsutil; the collector runs it on its
// own cadence and publishes immutable snapshots, so a slow poll can never
// stall the render/upload path.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/load"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/sensors"

	"github.com/ep9io/ax206dash/internal/config"
	"github.com/ep9io/ax206dash/internal/model"
)

// Source yields one batch of samples per poll. Partial results are allowed:
// a failed probe drops its fields and contributes to the joined error, which
// callers log and tolerate.
type Source interface {
	Poll(ctx context.Context) (map[model.Field]model.Sample, error)
	// Fields lists every field this source can produce, for layout
	// validation.
	Fields() []model.Field
}

// SystemSource reads host telemetry via gopsutil. It keeps the previous
// net/disk counters so throughput fields can be derived as rates.
type SystemSource struct {
	mounts   []string
	networks []string
	sensors  map[string]string

	prev     counters
	prevAt   time.Time
	havePrev bool
}

func NewSystemSource(cfg config.Metrics) *SystemSource {
	return &SystemSource{
		mounts:   cfg.Mounts,
		networks: cfg.Networks,
		sensors:  cfg.Sensors,
	}
}

func (s *SystemSource) Fields() []model.Field {
	fields := model.BaseFields()
	for _, name := range s.sensors {
		fields = append(fields, model.Field(model.SensorFieldPrefix+strings.ToLower(name)))
	}
	return fields
}

func (s *SystemSource) Poll(ctx context.Context) (map[model.Field]model.Sample, error) {
	now := time.Now()
	out := make(map[model.Field]model.Sample, 24)
	var errs []error

	if pct, err := cpu.PercentWithContext(ctx, 0, false); err != nil {
		errs = append(errs, fmt.Errorf("cpu percent: %w", err))
	} else if len(pct) > 0 {
		out[model.FieldCPUPercent] = model.PercentSample(model.FieldCPUPercent, pct[0], now)
	}

	if infos, err := cpu.InfoWithContext(ctx); err != nil {
		errs = append(errs, fmt.Errorf("cpu info: %w", err))
	} else if len(infos) > 0 {
		out[model.FieldCPUFreqMHz] = model.GaugeSample(model.FieldCPUFreqMHz, infos[0].Mhz, now)
	}

	if n, err := cpu.CountsWithContext(ctx, true); err != nil {
		errs = append(errs, fmt.Errorf("cpu count: %w", err))
	} else {
		out[model.FieldCPUCount] = model.GaugeSample(model.FieldCPUCount, float64(n), now)
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err != nil {
		errs = append(errs, fmt.Errorf("memory: %w", err))
	} else {
		out[model.FieldMemPercent] = model.PercentSample(model.FieldMemPercent, vm.UsedPercent, now)
		out[model.FieldMemUsed] = model.BytesSample(model.FieldMemUsed, float64(vm.Used), now)
		out[model.FieldMemTotal] = model.BytesSample(model.FieldMemTotal, float64(vm.Total), now)
	}

	if sw, err := mem.SwapMemoryWithContext(ctx); err != nil {
		errs = append(errs, fmt.Errorf("swap: %w", err))
	} else {
		out[model.FieldSwapPercent] = model.PercentSample(model.FieldSwapPercent, sw.UsedPercent, now)
	}

	if used, total, err := s.diskUsage(ctx); err != nil {
		errs = append(errs, err)
	} else if total > 0 {
		out[model.FieldDiskUsed] = model.BytesSample(model.FieldDiskUsed, used, now)
		out[model.FieldDiskTotal] = model.BytesSample(model.FieldDiskTotal, total, now)
		out[model.FieldDiskPercent] = model.PercentSample(model.FieldDiskPercent, used/total*100, now)
	}

	if avg, err := load.AvgWithContext(ctx); err != nil {
		errs = append(errs, fmt.Errorf("load avg: %w", err))
	} else {
		out[model.FieldLoad1] = model.GaugeSample(model.FieldLoad1, avg.Load1, now)
		out[model.FieldLoad5] = model.GaugeSample(model.FieldLoad5, avg.Load5, now)
		out[model.FieldLoad15] = model.GaugeSample(model.FieldLoad15, avg.Load15, now)
	}

	if info, err := host.InfoWithContext(ctx); err != nil {
		errs = append(errs, fmt.Errorf("host info: %w", err))
	} else {
		out[model.FieldHostname] = model.TextSample(model.FieldHostname, info.Hostname, now)
		out[model.FieldUptime] = model.DurationSample(model.FieldUptime, time.Duration(info.Uptime)*time.Second, now)
	}

	if err := s.pollTemps(ctx, out, now); err != nil {
		errs = append(errs, err)
	}

	if err := s.pollGPU(ctx, out, now); err != nil {
		errs = append(errs, err)
	}

	if err := s.pollRates(ctx, out, now); err != nil {
		errs = append(errs, err)
	}

	return out, errors.Join(errs...)
}

func (s *SystemSource) diskUsage(ctx context.Context) (used, total float64, err error) {
	mounts := s.mounts
	if len(mounts) == 0 {
		mounts = []string{"/"}
	}
	var errs []error
	for _, m := range mounts {
		u, uerr := disk.UsageWithContext(ctx, m)
		if uerr != nil {
			errs = append(errs, fmt.Errorf("disk usage %s: %w", m, uerr))
			continue
		}
		used += float64(u.Used)
		total += float64(u.Total)
	}
	return used, total, errors.Join(errs...)
}

func (s *SystemSource) pollTemps(ctx context.Context, out map[model.Field]model.Sample, now time.Time) error {
	temps, err := sensors.TemperaturesWithContext(ctx)
	if err != nil {
		return fmt.Errorf("sensors: %w", err)
	}
	for _, t := range temps {
		key := strings.ToLower(t.SensorKey)
		for match, name := range s.sensors {
			if strings.Contains(key, strings.ToLower(match)) {
				f := model.Field(model.SensorFieldPrefix + strings.ToLower(name))
				if _, seen := out[f]; !seen {
					out[f] = model.GaugeSample(f, t.Temperature, now)
				}
			}
		}
		if _, seen := out[model.FieldCPUTemp]; !seen && isCPUTempKey(key) {
			out[model.FieldCPUTemp] = model.GaugeSample(model.FieldCPUTemp, t.Temperature, now)
		}
	}
	return nil
}

// isCPUTempKey recognizes the common Linux CPU temperature hwmon names.
func isCPUTempKey(key string) bool {
	for _, probe := range []string{"coretemp", "k10temp", "cpu_thermal", "zenpower"} {
		if strings.Contains(key, probe) {
			return true
		}
	}
	return false
}

package model

import (
	"fmt"
	"time"
)

// Field identifies one metric a widget can bind to.
type Field string

const (
	FieldCPUPercent    Field = "cpu_percent"
	FieldCPUFreqMHz    Field = "cpu_freq_mhz"
	FieldCPUCount      Field = "cpu_count"
	FieldCPUTemp       Field = "cpu_temp"
	FieldMemPercent    Field = "mem_percent"
	FieldMemUsed       Field = "mem_used"
	FieldMemTotal      Field = "mem_total"
	FieldSwapPercent   Field = "swap_percent"
	FieldDiskPercent   Field = "disk_percent"
	FieldDiskUsed      Field = "disk_used"
	FieldDiskTotal     Field = "disk_total"
	FieldDiskReadRate  Field = "disk_read_rate"
	FieldDiskWriteRate Field = "disk_write_rate"
	FieldGPUName       Field = "gpu_name"
	FieldGPUPercent    Field = "gpu_percent"
	FieldGPUTemp       Field = "gpu_temp"
	FieldGPUMemPercent Field = "gpu_mem_percent"
	FieldGPUMemUsed    Field = "gpu_mem_used"
	FieldGPUMemTotal   Field = "gpu_mem_total"
	FieldNetRx         Field = "net_rx"
	FieldNetTx         Field = "net_tx"
	FieldLoad1         Field = "load_1"
	FieldLoad5         Field = "load_5"
	FieldLoad15        Field = "load_15"
	FieldUptime        Field = "uptime"
	FieldHostname      Field = "hostname"

	// SensorFieldPrefix prefixes per-sensor temperature fields, e.g. temp_cpu.
	SensorFieldPrefix = "temp_"
)

// BaseFields lists every field the system source always attempts to produce.
// Sensor fields are added per configuration on top of these.
func BaseFields() []Field {
	return []Field{
		FieldCPUPercent, FieldCPUFreqMHz, FieldCPUCount, FieldCPUTemp,
		FieldMemPercent, FieldMemUsed, FieldMemTotal, FieldSwapPercent,
		FieldDiskPercent, FieldDiskUsed, FieldDiskTotal,
		FieldDiskReadRate, FieldDiskWriteRate,
		FieldGPUName, FieldGPUPercent, FieldGPUTemp,
		FieldGPUMemPercent, FieldGPUMemUsed, FieldGPUMemTotal,
		FieldNetRx, FieldNetTx,
		FieldLoad1, FieldLoad5, FieldLoad15,
		FieldUptime, FieldHostname,
	}
}

// Kind describes how a sample's value is interpreted and displayed.
type Kind int

const (
	KindGauge Kind = iota
	KindPercent
	KindBytes
	KindBytesRate
	KindDuration
	KindText
)

// Sample is a single point-in-time reading of one field. Samples are value
// types: a new poll cycle produces new samples, it never mutates old ones.
type Sample struct {
	Field Field
	Kind  Kind
	Num   float64
	Text  string
	At    time.Time
}

func GaugeSample(f Field, v float64, at time.Time) Sample {
	return Sample{Field: f, Kind: KindGauge, Num: v, At: at}
}

func PercentSample(f Field, v float64, at time.Time) Sample {
	return Sample{Field: f, Kind: KindPercent, Num: v, At: at}
}

func BytesSample(f Field, v float64, at time.Time) Sample {
	return Sample{Field: f, Kind: KindBytes, Num: v, At: at}
}

func RateSample(f Field, v float64, at time.Time) Sample {
	return Sample{Field: f, Kind: KindBytesRate, Num: v, At: at}
}

func DurationSample(f Field, d time.Duration, at time.Time) Sample {
	return Sample{Field: f, Kind: KindDuration, Num: d.Seconds(), At: at}
}

func TextSample(f Field, s string, at time.Time) Sample {
	return Sample{Field: f, Kind: KindText, Text: s, At: at}
}

// Display renders the sample for a text widget.
func (s Sample) Display() string {
	switch s.Kind {
	case KindPercent:
		return fmt.Sprintf("%.0f%%", s.Num)
	case KindBytes:
		return FormatBytes(s.Num)
	case KindBytesRate:
		return FormatBytes(s.Num) + "/s"
	case KindDuration:
		return FormatDuration(time.Duration(s.Num * float64(time.Second)))
	case KindText:
		return s.Text
	default:
		return fmt.Sprintf("%.1f", s.Num)
	}
}

// FormatBytes renders a byte count in binary units, one decimal.
func FormatBytes(v float64) string {
	const unit = 1024.0
	if v < unit {
		return fmt.Sprintf("%.0f B", v)
	}
	div, exp := unit, 0
	for n := v / unit; n >= unit && exp < 4; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", v/div, "KMGTP"[exp])
}

// FormatDuration renders an uptime-style duration, largest two units.
func FormatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	days := d / (24 * time.Hour)
	d -= days * 24 * time.Hour
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh", days, h)
	case h > 0:
		return fmt.Sprintf("%dh %dm", h, m)
	default:
		return fmt.Sprintf("%dm", m)
	}
}

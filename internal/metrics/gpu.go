package metrics

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/ep9io/ax206dash/internal/model"
)

// gpuQuery is the nvidia-smi CSV contract parseGPULine expects: name,
// temperature (C), utilization (%), memory used and total (MiB).
const gpuQuery = "gpu_name,temperature.gpu,utilization.gpu,memory.used,memory.total"

// pollGPU samples the first NVIDIA GPU through nvidia-smi. A host without the
// tool or without a device contributes no GPU fields and no error.
func (s *SystemSource) pollGPU(ctx context.Context, out map[model.Field]model.Sample, now time.Time) error {
	raw, err := exec.CommandContext(ctx, "nvidia-smi",
		"--query-gpu="+gpuQuery, "--format=csv,noheader,nounits").Output()
	if err != nil {
		return nil
	}
	return parseGPULine(string(raw), out, now)
}

// parseGPULine decodes the first line of nvidia-smi CSV output into samples.
// Unparseable individual values ([N/A], empty) drop their field only.
func parseGPULine(raw string, out map[model.Field]model.Sample, now time.Time) error {
	line, _, _ := strings.Cut(strings.TrimSpace(raw), "\n")
	if line == "" {
		return nil
	}
	fields := strings.Split(line, ",")
	if len(fields) != 5 {
		return fmt.Errorf("gpu: nvidia-smi returned %d fields, want 5", len(fields))
	}

	if name := strings.TrimSpace(fields[0]); name != "" {
		out[model.FieldGPUName] = model.TextSample(model.FieldGPUName, name, now)
	}
	if temp, ok := gpuNum(fields[1]); ok {
		out[model.FieldGPUTemp] = model.GaugeSample(model.FieldGPUTemp, temp, now)
	}
	if util, ok := gpuNum(fields[2]); ok {
		out[model.FieldGPUPercent] = model.PercentSample(model.FieldGPUPercent, util, now)
	}

	used, okUsed := gpuNum(fields[3])
	total, okTotal := gpuNum(fields[4])
	const mib = 1024 * 1024
	if okUsed {
		out[model.FieldGPUMemUsed] = model.BytesSample(model.FieldGPUMemUsed, used*mib, now)
	}
	if okTotal {
		out[model.FieldGPUMemTotal] = model.BytesSample(model.FieldGPUMemTotal, total*mib, now)
	}
	if okUsed && okTotal && total > 0 {
		out[model.FieldGPUMemPercent] = model.PercentSample(model.FieldGPUMemPercent, used/total*100, now)
	}
	return nil
}

func gpuNum(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "[N/A]") {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

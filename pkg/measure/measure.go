package measure

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/cpu"
	"github.com/shirou/gopsutil/mem"
	"github.com/shirou/gopsutil/net"
)

const ResultsFile = "oracle_measurements.csv"

type Config struct {
	NumIterations  int
	OutputDir      string
	MeasureNetwork bool
	MeasureSystem  bool
	Pause          time.Duration
}

// Probe is one remote operation whose latency is measured.
type Probe struct {
	Name string
	Run  func(ctx context.Context) error
}

type Result struct {
	Probe           string
	Iteration       int
	Latency         time.Duration
	Err             error
	MemoryUsage     uint64
	CPUUsage        float64
	NetworkBytesIn  uint64
	NetworkBytesOut uint64
	Timestamp       time.Time
}

type Runner struct {
	config  Config
	results []Result
	log     zerolog.Logger
}

func NewRunner(config Config, log zerolog.Logger) *Runner {
	if config.NumIterations <= 0 {
		config.NumIterations = 1
	}
	return &Runner{config: config, log: log}
}

func (mr *Runner) Results() []Result {
	return mr.results
}

// Run executes every probe once per iteration and, if an output directory is
// configured, writes all results to ResultsFile inside it.
func (mr *Runner) Run(ctx context.Context, probes ...Probe) error {
	mr.log.Info().Int("iterations", mr.config.NumIterations).Int("probes", len(probes)).Msg("starting oracle measurements")

	for iteration := 1; iteration <= mr.config.NumIterations; iteration++ {
		for _, p := range probes {
			if err := ctx.Err(); err != nil {
				return err
			}
			mr.results = append(mr.results, mr.measure(ctx, iteration, p))
		}
		if mr.config.Pause > 0 && iteration < mr.config.NumIterations {
			time.Sleep(mr.config.Pause)
		}
	}

	if mr.config.OutputDir == "" {
		return nil
	}
	return mr.saveResults(ResultsFile)
}

func (mr *Runner) measure(ctx context.Context, iteration int, p Probe) Result {
	result := Result{Probe: p.Name, Iteration: iteration, Timestamp: time.Now()}

	var inStart, outStart uint64
	if mr.config.MeasureNetwork {
		inStart, outStart, _ = getNetworkBytes()
	}

	start := time.Now()
	result.Err = p.Run(ctx)
	result.Latency = time.Since(start)
	if result.Err != nil {
		mr.log.Warn().Err(result.Err).Str("probe", p.Name).Int("iteration", iteration).Msg("probe failed")
	}

	if mr.config.MeasureSystem {
		addSystemMeasurements(&result)
	}

	if mr.config.MeasureNetwork {
		inBytes, outBytes, err := getNetworkBytes()
		if err != nil {
			mr.log.Warn().Err(err).Msg("failed to get network bytes")
		} else {
			result.NetworkBytesIn = inBytes - inStart
			result.NetworkBytesOut = outBytes - outStart
		}
	}
	return result
}

func addSystemMeasurements(result *Result) {
	if vmstat, err := mem.VirtualMemory(); err == nil {
		result.MemoryUsage = vmstat.Used
	}
	if cpuPercent, err := cpu.Percent(0, false); err == nil && len(cpuPercent) > 0 {
		result.CPUUsage = cpuPercent[0]
	}
}

func getNetworkBytes() (inBytes, outBytes uint64, err error) {
	counters, err := net.IOCounters(true)
	if err != nil {
		return 0, 0, err
	}
	for _, c := range counters {
		inBytes += c.BytesRecv
		outBytes += c.BytesSent
	}
	return inBytes, outBytes, nil
}

func (mr *Runner) saveResults(filename string) error {
	if err := os.MkdirAll(mr.config.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	path := filepath.Join(mr.config.OutputDir, filename)

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file %s: %w", path, err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	header := []string{
		"probe", "iteration", "latency_ms", "ok", "memory_bytes", "cpu_percent",
		"network_bytes_in", "network_bytes_out", "timestamp",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, result := range mr.results {
		row := []string{
			result.Probe,
			strconv.Itoa(result.Iteration),
			strconv.FormatFloat(float64(result.Latency.Microseconds())/1000, 'f', 3, 64),
			strconv.FormatBool(result.Err == nil),
			strconv.FormatUint(result.MemoryUsage, 10),
			strconv.FormatFloat(result.CPUUsage, 'f', 2, 64),
			strconv.FormatUint(result.NetworkBytesIn, 10),
			strconv.FormatUint(result.NetworkBytesOut, 10),
			result.Timestamp.Format(time.RFC3339),
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return err
	}

	mr.log.Info().Str("file", path).Msg("results saved")
	return nil
}

// PrintSummary writes per-probe latency statistics and host usage to w.
func (mr *Runner) PrintSummary(w io.Writer) {
	if len(mr.results) == 0 {
		fmt.Fprintln(w, "No results to summarize")
		return
	}

	fmt.Fprintln(w, "=== Measurement Summary ===")
	fmt.Fprintf(w, "Total measurements: %d\n", len(mr.results))

	var order []string
	latencies := make(map[string][]float64)
	failures := make(map[string]int)
	for _, result := range mr.results {
		if _, seen := latencies[result.Probe]; !seen {
			order = append(order, result.Probe)
			latencies[result.Probe] = nil
		}
		if result.Err != nil {
			failures[result.Probe]++
			continue
		}
		latencies[result.Probe] = append(latencies[result.Probe], float64(result.Latency.Microseconds())/1000)
	}
	for _, name := range order {
		avg, min, max := calculateStats(latencies[name])
		fmt.Fprintf(w, "%s (ms): avg=%.2f, min=%.2f, max=%.2f, failures=%d\n", name, avg, min, max, failures[name])
	}

	var memoryUsage, cpuUsage []float64
	for _, result := range mr.results {
		if result.MemoryUsage > 0 {
			memoryUsage = append(memoryUsage, float64(result.MemoryUsage))
		}
		if result.CPUUsage > 0 {
			cpuUsage = append(cpuUsage, result.CPUUsage)
		}
	}
	if len(memoryUsage) > 0 {
		avg, min, max := calculateStats(memoryUsage)
		fmt.Fprintf(w, "Memory Usage (bytes): avg=%.0f, min=%.0f, max=%.0f\n", avg, min, max)
	}
	if len(cpuUsage) > 0 {
		avg, min, max := calculateStats(cpuUsage)
		fmt.Fprintf(w, "CPU Usage (%%): avg=%.2f, min=%.2f, max=%.2f\n", avg, min, max)
	}

	fmt.Fprintln(w, "===========================")
}

func calculateStats(values []float64) (avg, min, max float64) {
	if len(values) == 0 {
		return 0, 0, 0
	}

	min = values[0]
	max = values[0]
	sum := 0.0
	for _, v := range values {
		sum += v
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	return sum / float64(len(values)), min, max
}

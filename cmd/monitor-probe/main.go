// Command monitor-probe initialises the GPU monitor once, prints the
// static device information and optionally a telemetry sample, then
// exits. It is a diagnostic aid for checking driver access outside the
// web dashboard.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/nvgputop/nvgputop-web/internal/monitor"
)

type options struct {
	deviceIndex int
	sample      bool
	jsonOutput  bool
}

func parseFlags() options {
	defaultIndex := 0
	if value := os.Getenv("APP_DEVICE_INDEX"); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil && parsed >= 0 {
			defaultIndex = parsed
		}
	}

	var opts options
	flag.IntVar(&opts.deviceIndex, "device", defaultIndex, "GPU device index to probe")
	flag.BoolVar(&opts.sample, "sample", false, "Collect one telemetry sample")
	flag.BoolVar(&opts.jsonOutput, "json", false, "Emit results as JSON")
	flag.Parse()
	return opts
}

func main() {
	opts := parseFlags()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	mon, err := monitor.NewNVML(opts.deviceIndex, logger.With("component", "monitor"))
	if err != nil {
		logger.Error("gpu monitor init failed", "device_index", opts.deviceIndex, "err", err)
		os.Exit(1)
	}
	defer func() {
		if err := mon.Close(); err != nil {
			logger.Warn("monitor close", "err", err)
		}
	}()

	info := mon.StaticInfo()

	if opts.jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(info); err != nil {
			logger.Error("encode device info", "err", err)
			os.Exit(1)
		}
	} else {
		fmt.Printf("Device %d: %s\n", opts.deviceIndex, info.Name)
		fmt.Printf("  UUID:   %s\n", info.UUID)
		fmt.Printf("  Driver: %s\n", info.DriverVersion)
		fmt.Printf("  VBIOS:  %s\n", info.VBIOSVersion)
		fmt.Printf("  PCIe:   gen %d x%d\n", info.PCIeGen, info.PCIeWidth)
	}

	if !opts.sample {
		return
	}

	sample, procs, err := mon.Sample()
	if err != nil {
		logger.Error("sampling failed", "err", err)
		os.Exit(1)
	}

	if opts.jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		payload := struct {
			Sample    monitor.Sample         `json:"sample"`
			Processes []monitor.ProcessEntry `json:"processes"`
		}{Sample: sample, Processes: procs}
		if err := enc.Encode(payload); err != nil {
			logger.Error("encode sample", "err", err)
			os.Exit(1)
		}
		return
	}

	fmt.Println()
	fmt.Printf("Sample at %s\n", time.Now().UTC().Format(time.RFC3339))
	fmt.Printf("  Utilization: %.0f %%\n", sample.Utilization)
	fmt.Printf("  Memory:      %d / %d MiB\n", sample.MemoryUsed>>20, sample.MemoryTotal>>20)
	fmt.Printf("  Temperature: %.0f C\n", sample.Temperature)
	fmt.Printf("  Clocks:      core %d MHz, mem %d MHz\n", sample.CoreClockMHz, sample.MemoryClockMHz)
	if sample.PowerLimit > 0 {
		fmt.Printf("  Power:       %.1f / %.1f W\n", sample.PowerUsage, sample.PowerLimit)
	} else {
		fmt.Printf("  Power:       N/A\n")
	}
	fmt.Printf("  Fan:         %d %%\n", sample.FanSpeed)
	fmt.Printf("  PCIe:        tx %.0f KB/s, rx %.0f KB/s\n", sample.PCIeTxKBps, sample.PCIeRxKBps)

	if len(procs) == 0 {
		fmt.Println("  Processes:   none")
		return
	}
	fmt.Println("  Processes:")
	for _, p := range procs {
		fmt.Printf("    %6d  %-24s %d MiB\n", p.PID, p.Name, p.MemoryBytes>>20)
	}
}

package console

import (
	"context"
	"encoding/csv"
	"fmt"
	"math"
	"math/rand/v2"
	"os"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/ValentinKolb/dBook/cmd/util"
	"github.com/ValentinKolb/dBook/lib/common"
	"github.com/ValentinKolb/dBook/lib/model"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	simulateCmd = &cobra.Command{
		Use:   "simulate",
		Short: "Runs concurrent bookings against the data API and reports how the engine reconciled them",
		Long: util.WrapString(`Starts several workers that book, cancel, reschedule and delete random slots at the same time.
Combine with --fail-rate and --latency to watch rollbacks, and with --retain-failures to retry rejected bookings at the end.`),
		PreRunE: processSimulateConfig,
		RunE:    runSimulation,
	}
	simThreads    = 10
	simOps        = 50
	simFacilities = 3
	simSeed       uint64
)

// Simulated operations
const (
	opBook       = "book"
	opCancel     = "cancel"
	opReschedule = "reschedule"
	opDelete     = "delete"
	opRetry      = "retry"
)

func init() {
	key := "threads"
	simulateCmd.Flags().Int(key, 10, util.WrapString("Number of concurrent workers"))
	key = "ops"
	simulateCmd.Flags().Int(key, 50, util.WrapString("Number of operations per worker"))
	key = "facilities"
	simulateCmd.Flags().Int(key, 3, util.WrapString("Number of facilities to create if the tenant has none"))
	key = "sim-seed"
	simulateCmd.Flags().Uint64(key, 0, util.WrapString("Seed of the random operation mix (0 = random)"))
	key = "csv"
	simulateCmd.Flags().String(key, "", util.WrapString("Optional path to save the results as CSV"))
}

func processSimulateConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	simThreads = viper.GetInt("threads")
	simOps = viper.GetInt("ops")
	simFacilities = viper.GetInt("facilities")
	simSeed = viper.GetUint64("sim-seed")
	if simThreads <= 0 || simOps <= 0 {
		return fmt.Errorf("threads and ops must be positive")
	}
	if simSeed == 0 {
		simSeed = rand.Uint64()
	}
	quiet = true
	return nil
}

// opResult aggregates the outcome of one operation type.
type opResult struct {
	count    int
	failures int
	total    time.Duration
}

// simulation collects the results of all workers.
type simulation struct {
	mu      sync.Mutex
	results map[string]*opResult
}

func (s *simulation) record(op string, start time.Time, err error) {
	elapsed := time.Since(start)
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.results[op]
	if !ok {
		r = &opResult{}
		s.results[op] = r
	}
	r.count++
	r.total += elapsed
	if err != nil {
		r.failures++
		Logger.Debugf("(%s) - %v", op, err)
	}
}

func runSimulation(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	fmt.Println(styles.title.Render("Booking simulation"))
	fmt.Println("Configuration:")
	fmt.Println(current.config.String())
	fmt.Printf("Threads: %d, operations per thread: %d, seed: %d\n\n", simThreads, simOps, simSeed)

	facilities, err := simulationFacilities(ctx)
	if err != nil {
		return err
	}

	sim := &simulation{results: make(map[string]*opResult)}
	start := time.Now()

	var wg sync.WaitGroup
	for worker := range simThreads {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rng := rand.New(rand.NewPCG(simSeed, uint64(worker)))
			sim.work(ctx, rng, worker, facilities)
		}()
	}
	wg.Wait()

	if current.config.RetainFailures {
		failed := len(current.bookings.Failed())
		retryStart := time.Now()
		confirmed := current.bookings.RetryAll(ctx)
		for i := range failed {
			var err error
			if i >= len(confirmed) {
				err = fmt.Errorf("retry rejected")
			}
			sim.record(opRetry, retryStart, err)
		}
	}

	elapsed := time.Since(start)
	fmt.Println()
	printSimulationResults(sim.results, elapsed)
	fmt.Println()
	renderStats(os.Stdout, current.dashboard.Stats())

	if csvPath := viper.GetString("csv"); csvPath != "" {
		fmt.Printf("\nExporting results to CSV: %s\n", csvPath)
		if err := writeSimulationCSV(csvPath, sim.results, current.config); err != nil {
			return fmt.Errorf("failed to export results to CSV: %w", err)
		}
		fmt.Println("Export complete")
	}
	return nil
}

// work runs the operations of one worker. Every worker only touches the bookings it created.
func (s *simulation) work(ctx context.Context, rng *rand.Rand, worker int, facilities []model.Facility) {
	var own []string
	day := time.Now().UTC().Truncate(24 * time.Hour).Add(24 * time.Hour)

	for i := 0; i < simOps && ctx.Err() == nil; i++ {
		roll := rng.IntN(100)
		if len(own) == 0 {
			roll = 0
		}

		var (
			op    string
			start = time.Now()
			err   error
		)
		switch {
		case roll < 50:
			op = opBook
			f := facilities[rng.IntN(len(facilities))]
			from := day.Add(time.Duration(rng.IntN(14))*24*time.Hour + time.Duration(8+rng.IntN(12))*time.Hour)
			var created model.Booking
			created, err = current.bookings.Create(ctx, model.Booking{
				FacilityID: f.ID,
				Title:      fmt.Sprintf("Simulation %d/%d", worker, i),
				Customer:   fmt.Sprintf("worker-%d", worker),
				Start:      from,
				End:        from.Add(time.Duration(1+rng.IntN(2)) * time.Hour),
			})
			if err == nil {
				own = append(own, created.ID)
			}
		case roll < 70:
			op = opCancel
			_, err = current.bookings.Cancel(ctx, own[rng.IntN(len(own))])
		case roll < 85:
			op = opReschedule
			target := own[rng.IntN(len(own))]
			_, err = current.bookings.RescheduleMany(ctx, []string{target}, 24*time.Hour)
		default:
			op = opDelete
			j := rng.IntN(len(own))
			if err = current.bookings.Delete(ctx, own[j]); err == nil {
				own = append(own[:j], own[j+1:]...)
			}
		}
		s.record(op, start, err)
	}
}

// simulationFacilities returns the active facilities of the tenant, creating some if needed.
func simulationFacilities(ctx context.Context) ([]model.Facility, error) {
	var active []model.Facility
	for _, f := range current.facilities.List() {
		if f.Active && f.ID != "" {
			active = append(active, f)
		}
	}
	for attempt := 0; len(active) < simFacilities && attempt < 3*simFacilities; attempt++ {
		f, err := current.facilities.Create(ctx, model.Facility{
			Name:            fmt.Sprintf("Simulation Court %d", len(active)+1),
			Kind:            "court",
			Capacity:        4,
			HourlyRateCents: 2000,
		})
		if err != nil {
			// fault injection applies to facilities too
			Logger.Warningf("could not create facility: %v", err)
			continue
		}
		active = append(active, f)
	}
	if len(active) == 0 {
		return nil, fmt.Errorf("no active facility to book")
	}
	return active, nil
}

// printSimulationResults prints the result of every operation type in a formatted way
func printSimulationResults(results map[string]*opResult, elapsed time.Duration) {
	ops := make([]string, 0, len(results))
	total := 0
	for op, r := range results {
		ops = append(ops, op)
		total += r.count
	}
	sort.Strings(ops)

	t := &table{headers: []string{"OPERATION", "OPS", "FAILED", "FAIL RATE", "AVG/OP"}}
	for _, op := range ops {
		r := results[op]
		failRate := styles.success.Render("0 %")
		if r.failures > 0 {
			failRate = styles.danger.Render(fmt.Sprintf("%.0f %%", 100*float64(r.failures)/float64(r.count)))
		}
		t.add(op, strconv.Itoa(r.count), strconv.Itoa(r.failures), failRate, round(r.total/time.Duration(r.count)))
	}
	t.render(os.Stdout)

	opsPerSec := float64(total) / math.Max(elapsed.Seconds(), 1e-9)
	fmt.Printf("\n%d operations in %s (%.0f ops/sec)\n", total, elapsed.Round(time.Millisecond), opsPerSec)
}

// writeSimulationCSV writes the simulation results to a CSV file
func writeSimulationCSV(csvPath string, results map[string]*opResult, config *common.ConsoleConfig) error {
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer func() { _ = file.Close() }()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{
		"Operation", "Ops", "Failures", "AvgNsPerOp",
		"Threads", "OpsPerThread", "Seed",
		"Driver", "FailRate", "LatencyMs", "AutoRollback", "RollbackDelayMs", "RetainFailures",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for op, r := range results {
		row := []string{
			op,
			strconv.Itoa(r.count),
			strconv.Itoa(r.failures),
			strconv.FormatInt(int64(r.total)/int64(max(r.count, 1)), 10),
			strconv.Itoa(simThreads),
			strconv.Itoa(simOps),
			strconv.FormatUint(simSeed, 10),
			config.Driver,
			strconv.FormatFloat(config.FailRate, 'f', 2, 64),
			strconv.FormatInt(config.Latency.Milliseconds(), 10),
			strconv.FormatBool(config.AutoRollback),
			strconv.FormatInt(config.RollbackDelay.Milliseconds(), 10),
			strconv.FormatBool(config.RetainFailures),
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row for operation %s: %w", op, err)
		}
	}

	return writer.Error()
}

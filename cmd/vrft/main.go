package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"

	"github.com/san-kum/vrft/internal/analysis"
	"github.com/san-kum/vrft/internal/config"
	"github.com/san-kum/vrft/internal/iddata"
	"github.com/san-kum/vrft/internal/logging"
	"github.com/san-kum/vrft/internal/metrics"
	"github.com/san-kum/vrft/internal/report"
	"github.com/san-kum/vrft/internal/sim"
	"github.com/san-kum/vrft/internal/storage"
	"github.com/san-kum/vrft/internal/tf"
	"github.com/san-kum/vrft/internal/vrft"
)

var (
	dataDir    string
	configFile string
	verbose    bool

	basis      string
	signal     string
	steps      int
	seed       int64
	noise      float64
	instrument bool
	inputFile  string
	simOut     string
	exportOut  string
	noSave     bool
	plot       bool
	runs       int
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, report.Bad.Render("error:"), err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "vrft",
		Short:         "data-driven controller tuning by virtual reference feedback",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".vrft", "data directory")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "job file (yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	tuneCmd := &cobra.Command{
		Use:   "tune",
		Short: "tune a controller from one experiment",
		RunE:  runTune,
	}
	experimentFlags(tuneCmd)
	tuneCmd.Flags().StringVar(&inputFile, "input", "", "experiment csv (t,u,y); simulated when empty")
	tuneCmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the run")
	tuneCmd.Flags().BoolVar(&plot, "plot", false, "plot residuals")

	simulateCmd := &cobra.Command{
		Use:   "simulate",
		Short: "simulate an open-loop experiment and write it as csv",
		RunE:  runSimulate,
	}
	experimentFlags(simulateCmd)
	simulateCmd.Flags().StringVarP(&simOut, "out", "o", "experiment.csv", "output file")

	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "tune, then compare the closed loop with the reference model",
		RunE:  runValidate,
	}
	experimentFlags(validateCmd)
	validateCmd.Flags().StringVar(&inputFile, "input", "", "experiment csv (t,u,y); simulated when empty")
	validateCmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the run")

	montecarloCmd := &cobra.Command{
		Use:   "montecarlo",
		Short: "estimate the spread of the parameters over noise realisations",
		RunE:  runMonteCarlo,
	}
	experimentFlags(montecarloCmd)
	montecarloCmd.Flags().IntVar(&runs, "runs", 100, "number of experiments per estimator")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		RunE:  listRuns,
	}

	showCmd := &cobra.Command{
		Use:   "show [run_id]",
		Short: "show a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  showRun,
	}

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export a stored run as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}
	exportJSONCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output file (stdout when empty)")

	initCmd := &cobra.Command{
		Use:   "init [path]",
		Short: "write the effective job configuration as yaml",
		Args:  cobra.ExactArgs(1),
		RunE:  initConfig,
	}
	experimentFlags(initCmd)

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list controller basis presets",
		RunE:  listPresets,
	}

	rootCmd.AddCommand(tuneCmd, simulateCmd, validateCmd, montecarloCmd, listCmd, showCmd, exportJSONCmd, initCmd, presetsCmd)
	return rootCmd
}

func experimentFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&basis, "basis", config.DefaultBasis, "controller basis preset")
	cmd.Flags().StringVar(&signal, "signal", "square", "excitation: square, prbs or step")
	cmd.Flags().IntVar(&steps, "steps", config.DefaultSteps, "experiment length in samples")
	cmd.Flags().Int64Var(&seed, "seed", 0, "noise and excitation seed")
	cmd.Flags().Float64Var(&noise, "noise", 0, "measurement noise standard deviation")
	cmd.Flags().BoolVar(&instrument, "iv", false, "use instrumental variables")
}

// loadConfig starts from the defaults, applies the job file and then any
// flag given explicitly on the command line.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if configFile != "" {
		var err error
		if cfg, err = config.Load(configFile); err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	flags := cmd.Flags()
	if flags.Changed("basis") {
		cfg.Basis = basis
		cfg.CustomBasis = nil
	}
	if flags.Changed("signal") {
		cfg.Experiment.Signal = signal
	}
	if flags.Changed("steps") {
		cfg.Experiment.Steps = steps
	}
	if flags.Changed("seed") {
		cfg.Experiment.Seed = seed
		cfg.Simulation.Seed = seed
	}
	if flags.Changed("noise") {
		cfg.Experiment.NoiseStd = noise
	}
	if flags.Changed("iv") {
		cfg.Instrument = instrument
	}
	if flags.Changed("runs") {
		cfg.Simulation.Runs = runs
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

type job struct {
	cfg       *config.Config
	plant     tf.TransferFunction
	model     tf.TransferFunction
	basis     []tf.TransferFunction
	prefilter tf.TransferFunction
	history   int
	log       *zap.Logger
}

func newJob(cmd *cobra.Command) (*job, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	j := &job{cfg: cfg, log: logging.Must(verbose)}

	if j.plant, err = cfg.GetPlant(); err != nil {
		return nil, err
	}
	if j.model, err = cfg.GetReferenceModel(); err != nil {
		return nil, err
	}
	if j.basis, err = cfg.GetBasis(); err != nil {
		return nil, err
	}
	l, err := cfg.GetPrefilter()
	if err != nil {
		return nil, err
	}
	if l != nil {
		j.prefilter = *l
	} else if j.prefilter, err = vrft.DefaultPrefilter(j.model); err != nil {
		return nil, fmt.Errorf("default prefilter: %w", err)
	}
	need, err := vrft.RequiredHistory(j.model, j.basis, j.prefilter)
	if err != nil {
		return nil, err
	}
	j.history = max(cfg.History, need)

	j.log.Debug("job configured",
		zap.Stringer("plant", j.plant),
		zap.Stringer("model", j.model),
		zap.Stringer("prefilter", j.prefilter),
		zap.String("basis", j.basisName()),
		zap.Int("history", j.history),
	)
	return j, nil
}

func (j *job) basisName() string {
	if len(j.cfg.CustomBasis) > 0 {
		return "custom"
	}
	return j.cfg.Basis
}

// simulate runs one open-loop experiment on the configured plant.
func (j *job) simulate(ctx context.Context, seedOffset int64) (*iddata.Data, error) {
	u, err := j.cfg.GetExcitation(seedOffset)
	if err != nil {
		return nil, err
	}
	run, err := sim.New(j.plant, nil).Run(ctx, u, j.cfg.GetSimConfig(j.cfg.Experiment.Seed+seedOffset))
	if err != nil {
		return nil, err
	}
	return run.Data(j.history)
}

// experiment returns the data to tune on and, when instrumental variables
// are enabled, the instrument experiment. A recorded experiment is split in
// two; a simulated one is repeated with an independent noise seed.
func (j *job) experiment(ctx context.Context) (*iddata.Data, *iddata.Data, error) {
	if inputFile != "" {
		data, err := storage.LoadExperiment(inputFile, j.cfg.Dt)
		if err != nil {
			return nil, nil, fmt.Errorf("load experiment: %w", err)
		}
		j.log.Info("experiment loaded", zap.String("file", inputFile), zap.Int("samples", data.Len()))
		if !j.cfg.Instrument {
			return data, nil, nil
		}
		return data.Split()
	}

	data, err := j.simulate(ctx, 0)
	if err != nil {
		return nil, nil, err
	}
	j.log.Info("experiment simulated", zap.Int("samples", data.Len()), zap.Float64("noise", j.cfg.Experiment.NoiseStd))
	if !j.cfg.Instrument {
		return data, nil, nil
	}
	instr, err := j.simulate(ctx, 1)
	if err != nil {
		return nil, nil, err
	}
	return data, instr, nil
}

// excitationTol is the relative power below which a spectral line is not
// counted as exciting.
const excitationTol = 1e-8

func (j *job) checkExcitation(u []float64) {
	order := analysis.ExcitationOrder(u, excitationTol)
	if order < len(j.basis) {
		j.log.Warn("input is not persistently exciting for this basis",
			zap.Int("order", order),
			zap.Int("parameters", len(j.basis)),
		)
		return
	}
	j.log.Debug("excitation checked", zap.Int("order", order))
}

func (j *job) tune(data, instr *iddata.Data) (*vrft.Result, error) {
	opts := []vrft.Option{vrft.WithLogger(j.log)}
	if instr != nil {
		opts = append(opts, vrft.WithInstrument(instr))
	}
	if j.cfg.ConditionLimit > 0 {
		opts = append(opts, vrft.WithConditionLimit(j.cfg.ConditionLimit))
	}
	return vrft.Compute(data, j.model, j.basis, j.prefilter, opts...)
}

func runTune(cmd *cobra.Command, args []string) error {
	j, err := newJob(cmd)
	if err != nil {
		return err
	}
	defer j.log.Sync()

	data, instr, err := j.experiment(cmd.Context())
	if err != nil {
		return err
	}
	j.checkExcitation(data.U())
	res, err := j.tune(data, instr)
	if err != nil {
		return err
	}

	fmt.Println(report.Summary(j.basisName(), res))
	if plot {
		fmt.Println()
		fmt.Println(report.Plot(res.Estimate.Residuals, 10, "residuals"))
		fmt.Println()
		fmt.Println(report.Plot(res.VirtualReference, 10, "virtual reference"))
	}

	if noSave {
		return nil
	}
	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}
	runID, err := st.Save(j.basisName(), res, nil)
	if err != nil {
		return err
	}
	fmt.Printf("run id: %s\n", runID)
	return nil
}

func runSimulate(cmd *cobra.Command, args []string) error {
	j, err := newJob(cmd)
	if err != nil {
		return err
	}
	defer j.log.Sync()

	data, err := j.simulate(cmd.Context(), 0)
	if err != nil {
		return err
	}
	if err := storage.SaveExperiment(simOut, data); err != nil {
		return err
	}

	u := data.U()
	fmt.Println(report.Plot(data.Y(), 10, "plant output"))
	fmt.Println()
	fmt.Println(report.Plot(analysis.PowerSpectrum(u), 8, "input power spectrum"))
	fmt.Printf("\nexcitation order: %d, dominant frequency: %.3f Hz\n",
		analysis.ExcitationOrder(u, excitationTol), analysis.DominantFrequency(u, data.Dt()))
	fmt.Printf("wrote %d samples to %s\n", data.Len(), simOut)
	return nil
}

const separatorWidth = 60

func runValidate(cmd *cobra.Command, args []string) error {
	j, err := newJob(cmd)
	if err != nil {
		return err
	}
	defer j.log.Sync()

	data, instr, err := j.experiment(cmd.Context())
	if err != nil {
		return err
	}
	j.checkExcitation(data.U())
	res, err := j.tune(data, instr)
	if err != nil {
		return err
	}
	fmt.Println(report.Summary(j.basisName(), res))

	loop, err := res.Controller.Multiply(j.plant)
	if err != nil {
		return err
	}
	closed, err := loop.Feedback()
	if err != nil {
		return err
	}

	n := 100
	want, err := j.model.Step(n)
	if err != nil {
		return err
	}
	got, err := closed.Step(n)
	if err != nil {
		return err
	}
	worst := 0.0
	for k := range want {
		worst = max(worst, math.Abs(want[k]-got[k]))
	}

	tracking, err := metrics.NewTrackingError(j.model)
	if err != nil {
		return err
	}
	s := sim.New(j.plant, &res.Controller)
	s.AddMetric(tracking)
	s.AddMetric(metrics.NewControlEffort())
	s.AddMetric(metrics.NewStability(10 * max(1, math.Abs(j.cfg.Experiment.Amplitude))))
	ref := sim.Square(j.cfg.Experiment.Steps, j.cfg.Experiment.Period, j.cfg.Experiment.Amplitude)
	run, err := s.Run(cmd.Context(), ref, j.cfg.GetSimConfig(j.cfg.Experiment.Seed))
	if err != nil {
		return err
	}

	fmt.Println(report.Separator(separatorWidth))
	fmt.Println(report.Compare(want, got, 12, "step response"))
	fmt.Println(report.Separator(separatorWidth))
	fmt.Printf("closed loop: %s\n", closed)
	fmt.Printf("dc gain: %.6f (model %.6f)\n", closed.DCGain(), j.model.DCGain())
	fmt.Printf("max step deviation: %.6f\n", worst)
	fmt.Println("\nmetrics:")
	for _, name := range []string{"tracking_error", "control_effort", "stability"} {
		fmt.Printf("  %s: %.6f\n", name, run.Metrics[name])
	}

	if noSave {
		return nil
	}
	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}
	runID, err := st.Save(j.basisName(), res, run.Metrics)
	if err != nil {
		return err
	}
	fmt.Printf("run id: %s\n", runID)
	return nil
}

func runMonteCarlo(cmd *cobra.Command, args []string) error {
	j, err := newJob(cmd)
	if err != nil {
		return err
	}
	defer j.log.Sync()

	if j.cfg.Simulation.Runs < 1 {
		return fmt.Errorf("%w: need at least one run", config.ErrInvalidConfig)
	}
	if j.cfg.Experiment.NoiseStd == 0 {
		j.log.Warn("noise-free experiments give identical estimates")
	}

	u, err := j.cfg.GetExcitation(0)
	if err != nil {
		return err
	}
	j.checkExcitation(u)
	// runs [0, n) are tuned on, runs [n, 2n) serve as instruments
	n := j.cfg.Simulation.Runs
	results, err := sim.NewEnsemble(sim.New(j.plant, nil), 2*n, j.cfg.Simulation.Seed).
		Run(cmd.Context(), u, j.cfg.GetSimConfig(0))
	if err != nil {
		return err
	}

	thetas := map[vrft.Method][][]float64{}
	for i := 0; i < n; i++ {
		data, err := results[i].Data(j.history)
		if err != nil {
			return err
		}
		instr, err := results[n+i].Data(j.history)
		if err != nil {
			return err
		}
		for _, in := range []*iddata.Data{nil, instr} {
			res, err := j.tune(data, in)
			if err != nil {
				return fmt.Errorf("run %d: %w", i, err)
			}
			thetas[res.Estimate.Method] = append(thetas[res.Estimate.Method], res.Theta)
		}
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "METHOD\tPARAM\tMEAN\tSTD")
	for _, method := range []vrft.Method{vrft.MethodOLS, vrft.MethodIV} {
		for p := range j.basis {
			col := make([]float64, len(thetas[method]))
			for i, th := range thetas[method] {
				col[i] = th[p]
			}
			mean, std := stat.MeanStdDev(col, nil)
			fmt.Fprintf(w, "%s\tθ[%d]\t%+.6f\t%.6f\n", method, p, mean, std)
		}
	}
	return w.Flush()
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tBASIS\tTIME\tMETHOD\tSAMPLES\tLOSS\tTHETA")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%.3g\t%s\n",
			run.ID,
			run.Basis,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Method,
			run.Samples,
			run.Loss,
			formatTheta(run.Theta),
		)
	}
	return w.Flush()
}

func showRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	residuals, _, err := st.LoadResiduals(runID)
	if err != nil {
		return err
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("basis: %s\n", meta.Basis)
	fmt.Printf("method: %s\n", meta.Method)
	fmt.Printf("samples: %d (warm-up %d)\n", meta.Samples, meta.Warmup)
	fmt.Printf("theta: %s\n", formatTheta(meta.Theta))
	fmt.Printf("controller: %s\n", meta.Controller)
	fmt.Printf("loss: %.6g\n", meta.Loss)
	fmt.Printf("cond: %.3g\n", meta.Cond)
	if len(meta.Metrics) > 0 {
		names := make([]string, 0, len(meta.Metrics))
		for name := range meta.Metrics {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Printf("%s: %.6f\n", name, meta.Metrics[name])
		}
	}
	fmt.Println()
	fmt.Println(report.Plot(residuals, 10, "residuals"))
	return nil
}

func exportJSON(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	data, err := st.LoadExport(args[0])
	if err != nil {
		return err
	}

	if exportOut == "" {
		return storage.WriteExport(os.Stdout, data)
	}
	file, err := os.Create(exportOut)
	if err != nil {
		return err
	}
	defer file.Close()
	return storage.WriteExport(file, data)
}

func initConfig(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := config.Save(args[0], cfg); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", args[0])
	return nil
}

func listPresets(cmd *cobra.Command, args []string) error {
	for _, name := range config.ListPresets() {
		terms := make([]string, 0)
		for _, spec := range config.GetPreset(name) {
			g, err := spec.Build(config.DefaultDt)
			if err != nil {
				return err
			}
			terms = append(terms, g.String())
		}
		fmt.Printf("  %-4s %s\n", name, strings.Join(terms, ", "))
	}
	return nil
}

func formatTheta(theta []float64) string {
	parts := make([]string, len(theta))
	for i, v := range theta {
		parts[i] = fmt.Sprintf("%.4g", v)
	}
	return "[" + strings.Join(parts, " ") + "]"
}

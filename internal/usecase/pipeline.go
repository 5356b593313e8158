package usecase

import (
	"context"
	"fmt"
	"runtime/debug"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"BondPanel/internal/domain/models"
	drepo "BondPanel/internal/domain/repository"
	"BondPanel/pkg/calendar"
	"BondPanel/pkg/logger"
	"BondPanel/pkg/util"
)

// Pipeline stages, used for metrics labels and failure records.
const (
	StageReference = "reference"
	StageReconcile = "reconcile"
	StageDaily     = "daily"
	StageValuation = "valuation"
	StageMonthly   = "monthly"
	StageLiquidity = "liquidity"
	StagePanel     = "panel"
	StageFactors   = "factors"
)

type PipelineConfig struct {
	Workers   int
	ChunkSize int
	Reference ReferenceFilterConfig
	Reconcile ReconcileConfig
	Valuation ValuationConfig
	Monthly   MonthlyConfig
	Liquidity LiquidityConfig
	Panel     PanelConfig
	Factors   FactorConfig
	// History extends the benchmark and credit lookups before the run window.
	History time.Duration
}

func (c PipelineConfig) withDefaults() PipelineConfig {
	if c.Workers <= 0 {
		c.Workers = 8
	}
	if c.ChunkSize <= 0 {
		c.ChunkSize = 500
	}
	return c
}

// Sources groups the external collaborators a run reads from.
type Sources struct {
	Reference drepo.ReferenceSource
	Trades    drepo.TradeSource
	Benchmark drepo.BenchmarkSource
	Credit    drepo.CreditSource
}

// Pipeline runs every stage from raw trade messages to factor returns.
type Pipeline struct {
	cfg     PipelineConfig
	src     Sources
	sink    *ResultSink
	metrics drepo.Metrics
	log     *logger.Logger

	filter     *ReferenceFilter
	reconciler *Reconciler
	aggregator *DailyAggregator
	valuer     *Valuer
	monthly    *MonthlyConstructor
	liquidity  *LiquidityEstimator
	panel      *PanelAssembler
	factors    *FactorBuilder
}

// NewPipeline wires the stages. Settlement and month boundaries follow the
// exchange calendar; daily liquidity gaps follow the federal calendar.
func NewPipeline(cfg PipelineConfig, src Sources, sink *ResultSink, metrics drepo.Metrics, log *logger.Logger, exchange, federal *calendar.Calendar) *Pipeline {
	cfg = cfg.withDefaults()
	if log == nil {
		log = logger.Nop()
	}
	return &Pipeline{
		cfg:        cfg,
		src:        src,
		sink:       sink,
		metrics:    metrics,
		log:        log,
		filter:     NewReferenceFilter(cfg.Reference),
		reconciler: NewReconciler(cfg.Reconcile),
		aggregator: NewDailyAggregator(),
		valuer:     NewValuer(cfg.Valuation, exchange),
		monthly:    NewMonthlyConstructor(cfg.Monthly, exchange),
		liquidity:  NewLiquidityEstimator(cfg.Liquidity, federal),
		panel:      NewPanelAssembler(cfg.Panel),
		factors:    NewFactorBuilder(cfg.Factors),
	}
}

// bondOutput is everything the per-bond stages produce for one bond.
type bondOutput struct {
	clean     []models.CleanTradeEvent
	valued    []models.ValuedBondObservation
	returns   []models.MonthlyReturn
	daily     []DailyReturn
	liquidity []models.MonthlyLiquidity
}

// runState accumulates worker results under a lock.
type runState struct {
	mu        sync.Mutex
	report    *models.RunReport
	returns   map[string][]models.MonthlyReturn
	daily     map[string][]DailyReturn
	liquidity map[PSKey]models.MonthlyLiquidity
}

func (s *runState) drop(stage string, counts map[string]int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for reason, n := range counts {
		if n > 0 {
			s.report.Dropped[stage+"/"+reason] += n
		}
	}
}

func (s *runState) fail(f models.BondFailure) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.report.Failures = append(s.report.Failures, f)
}

// NewRunReport starts a report for req with a fresh identifier.
func NewRunReport(req models.RunRequest) *models.RunReport {
	return &models.RunReport{
		ID:        uuid.NewString(),
		From:      req.From,
		To:        req.To,
		Status:    models.RunPending,
		StartedAt: time.Now().UTC(),
		Dropped:   map[string]int{},
	}
}

// Run executes a full run and returns its report. Failing bonds are
// recorded and skipped; only source, storage or context errors fail the run.
func (p *Pipeline) Run(ctx context.Context, req models.RunRequest) (*models.RunReport, error) {
	report := NewRunReport(req)
	err := p.Execute(ctx, report)
	return report, err
}

// Execute runs the pipeline, filling in report as it goes.
func (p *Pipeline) Execute(ctx context.Context, report *models.RunReport) error {
	if report.Dropped == nil {
		report.Dropped = map[string]int{}
	}
	report.Status = models.RunRunning
	log := p.log.With(logger.String("run_id", report.ID))
	log.Info("run started", logger.Date("from", report.From), logger.Date("to", report.To))
	start := time.Now()

	err := p.execute(ctx, report, log)

	report.FinishedAt = time.Now().UTC()
	p.metrics.RecordLatency("run", time.Since(start).Seconds())
	if err != nil {
		report.Status = models.RunFailed
		report.Error = err.Error()
		p.metrics.RecordError("run")
		log.Error("run failed", logger.Error(err))
		return err
	}
	report.Status = models.RunSucceeded
	p.metrics.RecordRunCompleted(report.FinishedAt)
	log.Info("run finished",
		logger.Int("bonds", report.Bonds),
		logger.Int("clean_trades", report.CleanTrades),
		logger.Int("monthly_rows", report.MonthlyRows),
		logger.Int("factors", report.Factors),
		logger.Int("failures", len(report.Failures)),
		logger.Duration("elapsed", time.Since(start)),
	)
	return nil
}

func (p *Pipeline) execute(ctx context.Context, report *models.RunReport, log *logger.Logger) error {
	if report.To.Before(report.From) {
		return fmt.Errorf("invalid window: %s after %s", report.From.Format(util.DateLayout), report.To.Format(util.DateLayout))
	}

	raw, err := p.src.Reference.Issues(ctx)
	if err != nil {
		return fmt.Errorf("load issues: %w", err)
	}
	issues, dropped := p.filter.Filter(raw)
	p.metrics.RecordProcessed(StageReference, len(issues))
	for reason, n := range dropped {
		p.metrics.RecordDropped(StageReference, reason, n)
		report.Dropped[StageReference+"/"+reason] += n
	}
	report.Bonds = len(issues)
	log.Info("universe selected", logger.Int("eligible", len(issues)), logger.Int("issues", len(raw)))

	byCusip := make(map[string]models.BondIssue, len(issues))
	cusips := make([]string, len(issues))
	for i, b := range issues {
		byCusip[b.Cusip] = b
		cusips[i] = b.Cusip
	}

	state := &runState{
		report:    report,
		returns:   make(map[string][]models.MonthlyReturn),
		daily:     make(map[string][]DailyReturn),
		liquidity: make(map[PSKey]models.MonthlyLiquidity),
	}

	for i, chunk := range util.Chunk(cusips, p.cfg.ChunkSize) {
		if err := p.runChunk(ctx, chunk, byCusip, state, log); err != nil {
			return fmt.Errorf("chunk %d: %w", i, err)
		}
	}

	return p.crossSection(ctx, issues, state, log)
}

func (p *Pipeline) runChunk(ctx context.Context, chunk []string, issues map[string]models.BondIssue, state *runState, log *logger.Logger) error {
	start := time.Now()
	msgs, err := p.src.Trades.Trades(ctx, chunk, state.report.From, state.report.To)
	if err != nil {
		return fmt.Errorf("load trades: %w", err)
	}
	p.metrics.RecordLatency("extract_trades", time.Since(start).Seconds())

	byBond := make(map[string][]models.TradeMessage)
	for _, m := range msgs {
		byBond[m.Cusip] = append(byBond[m.Cusip], m)
	}

	var (
		mu     sync.Mutex
		clean  []models.CleanTradeEvent
		valued []models.ValuedBondObservation
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Workers)
	for _, cusip := range chunk {
		bondMsgs, ok := byBond[cusip]
		if !ok {
			continue
		}
		issue := issues[cusip]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out, stage, err := p.safeProcessBond(issue, bondMsgs, state)
			if err != nil {
				p.metrics.RecordBondFailure(stage)
				state.fail(models.BondFailure{Cusip: issue.Cusip, Stage: stage, Error: err.Error()})
				log.Warn("bond skipped", logger.String("cusip", issue.Cusip), logger.String("stage", stage), logger.Error(err))
				return nil
			}

			mu.Lock()
			clean = append(clean, out.clean...)
			valued = append(valued, out.valued...)
			mu.Unlock()

			state.mu.Lock()
			state.report.CleanTrades += len(out.clean)
			state.report.DailyObs += len(out.valued)
			if len(out.returns) > 0 {
				state.returns[issue.Cusip] = out.returns
			}
			if len(out.daily) > 0 {
				state.daily[issue.Cusip] = out.daily
			}
			for _, l := range out.liquidity {
				state.liquidity[PSKey{Cusip: l.Cusip, MonthEnd: l.MonthEnd}] = l
			}
			state.mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	sort.Slice(clean, func(i, j int) bool {
		if clean[i].Cusip != clean[j].Cusip {
			return clean[i].Cusip < clean[j].Cusip
		}
		return models.ReportLess(clean[i], clean[j])
	})
	sort.Slice(valued, func(i, j int) bool {
		if valued[i].Cusip != valued[j].Cusip {
			return valued[i].Cusip < valued[j].Cusip
		}
		return valued[i].Date.Before(valued[j].Date)
	})
	if err := p.sink.CleanTrades(ctx, clean); err != nil {
		return err
	}
	return p.sink.Daily(ctx, valued)
}

// safeProcessBond turns a panic in any per-bond stage into a failure.
func (p *Pipeline) safeProcessBond(issue models.BondIssue, msgs []models.TradeMessage, state *runState) (out bondOutput, stage string, err error) {
	stage = StageReconcile
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v\n%s", r, debug.Stack())
		}
	}()
	out, err = p.processBond(issue, msgs, state, &stage)
	return out, stage, err
}

func (p *Pipeline) processBond(issue models.BondIssue, msgs []models.TradeMessage, state *runState, stage *string) (bondOutput, error) {
	var out bondOutput

	*stage = StageReconcile
	rec, err := p.reconciler.Reconcile(msgs)
	if err != nil {
		return out, err
	}
	state.drop(StageReconcile, rec.Dropped)
	p.recordStage(StageReconcile, len(rec.Events), rec.Dropped)
	out.clean = rec.Events

	*stage = StageDaily
	daily := p.aggregator.Aggregate(rec.Events)
	p.metrics.RecordProcessed(StageDaily, len(daily))

	*stage = StageValuation
	val := p.valuer.ValueBond(issue, daily)
	state.drop(StageValuation, val.Dropped)
	p.recordStage(StageValuation, len(val.Observations), val.Dropped)
	for reason, n := range val.Failed {
		p.metrics.RecordDropped(StageValuation, "null_"+reason, n)
	}
	out.valued = val.Observations

	*stage = StageMonthly
	out.returns = p.monthly.Build(val.Observations)
	p.metrics.RecordProcessed(StageMonthly, len(out.returns))

	*stage = StageLiquidity
	out.daily = p.liquidity.DailyReturns(daily)
	out.liquidity = p.liquidity.Monthly(out.daily)
	p.metrics.RecordProcessed(StageLiquidity, len(out.liquidity))
	return out, nil
}

func (p *Pipeline) recordStage(stage string, processed int, dropped map[string]int) {
	p.metrics.RecordProcessed(stage, processed)
	for reason, n := range dropped {
		if n > 0 {
			p.metrics.RecordDropped(stage, reason, n)
		}
	}
}

// crossSection runs the stages that need every bond at once.
func (p *Pipeline) crossSection(ctx context.Context, issues []models.BondIssue, state *runState, log *logger.Logger) error {
	report := state.report
	from := report.From.Add(-p.cfg.History)

	gammas := p.liquidity.PastorStambaugh(state.daily)
	MergeGammas(state.liquidity, gammas)

	in, err := p.panelInputs(ctx, issues, state, from, report.To)
	if err != nil {
		return err
	}

	start := time.Now()
	panel := p.panel.Assemble(state.returns, in)
	p.metrics.RecordProcessed(StagePanel, len(panel))
	p.metrics.RecordLatency(StagePanel, time.Since(start).Seconds())
	report.MonthlyRows = len(panel)
	if err := p.sink.Monthly(ctx, panel); err != nil {
		return err
	}

	start = time.Now()
	factors := p.factors.Build(panel)
	p.metrics.RecordProcessed(StageFactors, len(factors))
	p.metrics.RecordLatency(StageFactors, time.Since(start).Seconds())
	report.Factors = len(factors)
	if err := p.sink.Factors(ctx, factors); err != nil {
		return err
	}
	log.Debug("cross-section done", logger.Int("gammas", len(gammas)), logger.Int("panel", len(panel)))
	return nil
}

func (p *Pipeline) panelInputs(ctx context.Context, issues []models.BondIssue, state *runState, from, to time.Time) (PanelInputs, error) {
	in := PanelInputs{
		Issues:    make(map[string]models.BondIssue, len(issues)),
		Curves:    make(map[time.Time]models.BenchmarkCurve),
		RiskFree:  make(map[time.Time]float64),
		Liquidity: state.liquidity,
	}
	var cusips []string
	for _, b := range issues {
		if _, ok := state.returns[b.Cusip]; ok {
			in.Issues[b.Cusip] = b
			cusips = append(cusips, b.Cusip)
		}
	}

	curves, err := p.src.Benchmark.Curves(ctx, from, to)
	if err != nil {
		return in, fmt.Errorf("load benchmark curves: %w", err)
	}
	for _, c := range curves {
		in.Curves[util.MonthEnd(c.MonthEnd)] = c
	}
	rf, err := p.src.Benchmark.RiskFree(ctx, from, to)
	if err != nil {
		return in, fmt.Errorf("load risk-free rates: %w", err)
	}
	for _, r := range rf {
		in.RiskFree[util.MonthEnd(r.MonthEnd)] = r.Rate
	}

	var ratings []models.RatingEvent
	var actions []models.AmountAction
	for _, chunk := range util.Chunk(cusips, p.cfg.ChunkSize) {
		r, err := p.src.Credit.Ratings(ctx, chunk)
		if err != nil {
			return in, fmt.Errorf("load ratings: %w", err)
		}
		ratings = append(ratings, r...)
		a, err := p.src.Credit.AmountActions(ctx, chunk)
		if err != nil {
			return in, fmt.Errorf("load amount actions: %w", err)
		}
		actions = append(actions, a...)
	}
	in.Ratings = NewRatingHistory(ratings)
	in.Amounts = NewAmountHistory(issues, actions)
	return in, nil
}

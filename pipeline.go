package autostudent

import (
	"context"

	"github.com/google/uuid"
	llmsdk "github.com/hoangvvo/llm-sdk/sdk-go"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Pipeline drives the stage sequence that turns one assignment descriptor
// into a solution draft: parallel resource fetches, transcript enrichment,
// size-aware summarization, context assembly, the ethics gate, and the final
// generation call. A single resource failure never aborts a run; only a
// rejected gate or exhausted generation retries do.
//
// A Pipeline is safe for concurrent runs: each run owns its outcomes and
// bundle exclusively, and the completion-call rate budget is the only shared
// state.
type Pipeline struct {
	cfg        *Config
	fetcher    *ResourceFetcher
	enricher   *TranscriptEnricher
	summarizer *Summarizer
	generator  *SolutionGenerator
	events     eventBroadcaster
	logger     *zap.Logger
}

// NewPipeline wires the pipeline over its external collaborators: a resource
// source, a transcript service, a light condensation model, and a strong
// generation model.
func NewPipeline(
	source ResourceSource,
	transcripts TranscriptService,
	condensationModel llmsdk.LanguageModel,
	generationModel llmsdk.LanguageModel,
	options ...Option,
) (*Pipeline, error) {
	cfg, err := NewConfig(options...)
	if err != nil {
		return nil, err
	}

	// One budget for every completion call the process issues, shared by
	// condensation and generation.
	limiter := rate.NewLimiter(cfg.CompletionRateLimit, cfg.CompletionRateBurst)

	return &Pipeline{
		cfg:        cfg,
		fetcher:    NewResourceFetcher(source, cfg),
		enricher:   NewTranscriptEnricher(transcripts, cfg),
		summarizer: NewSummarizer(condensationModel, limiter, cfg),
		generator:  NewSolutionGenerator(generationModel, limiter, cfg),
		logger:     cfg.Logger,
	}, nil
}

// NewGate creates a pending ethics gate using the configured timeout. One
// gate belongs to exactly one run.
func (p *Pipeline) NewGate() *EthicsGate {
	return NewEthicsGate(p.cfg.EthicsGateTimeout)
}

// Subscribe registers an observer for run events. The returned cancel
// function closes the channel. Delivery is best-effort: size the buffer for
// the expected event volume.
func (p *Pipeline) Subscribe(buffer int) (<-chan RunEvent, func()) {
	return p.events.subscribe(buffer)
}

// Run processes one assignment end to end. The caller drives the gate
// (interactively or programmatically); Run blocks on it after assembly and
// before any generation call. Cancelling the context aborts the run at the
// next suspension point and no partial draft is emitted.
func (p *Pipeline) Run(ctx context.Context, assignment Assignment, gate *EthicsGate) (*SolutionDraft, error) {
	runID := uuid.NewString()
	p.logger.Info("pipeline run started",
		zap.String("run", runID), zap.String("assignment", assignment.ID))

	return traceRun(ctx, runID, assignment.ID, func(ctx context.Context) (*SolutionDraft, error) {
		outcomes, err := p.fetchStage(ctx, runID, assignment)
		if err != nil {
			return nil, err
		}

		outcomes, err = p.enrichStage(ctx, runID, assignment, outcomes)
		if err != nil {
			return nil, err
		}

		// An already-declined gate ends the run before any completion call
		// is spent on condensation.
		if gate.State() == GateStateRejected {
			p.logger.Info("pipeline run rejected at ethics gate", zap.String("run", runID))
			return nil, NewEthicsGateRejectedError("declined before context assembly")
		}

		artifacts, err := p.summarizeStage(ctx, runID, assignment, outcomes)
		if err != nil {
			return nil, err
		}

		var bundle ContextBundle
		_ = traceStage(ctx, StageAssemble, func(ctx context.Context) error {
			p.emitStage(runID, assignment.ID, StageAssemble, false)
			bundle = AssembleContext(runID, assignment, outcomes, artifacts)
			p.emitStage(runID, assignment.ID, StageAssemble, true)
			return nil
		})

		var state GateState
		_ = traceStage(ctx, StageEthicsGate, func(ctx context.Context) error {
			p.emitStage(runID, assignment.ID, StageEthicsGate, false)
			state = gate.Await(ctx)
			p.emitStage(runID, assignment.ID, StageEthicsGate, true)
			return nil
		})
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if state != GateStateAcknowledged {
			p.logger.Info("pipeline run rejected at ethics gate", zap.String("run", runID))
			return nil, NewEthicsGateRejectedError("no explicit acknowledgment for this run")
		}

		var draft *SolutionDraft
		err = traceStage(ctx, StageGenerate, func(ctx context.Context) error {
			p.emitStage(runID, assignment.ID, StageGenerate, false)
			var genErr error
			draft, genErr = p.generator.Generate(ctx, bundle)
			if genErr != nil {
				return genErr
			}
			p.emitStage(runID, assignment.ID, StageGenerate, true)
			return nil
		})
		if err != nil {
			return nil, err
		}

		p.logger.Info("pipeline run completed",
			zap.String("run", runID),
			zap.Int("included", len(draft.Manifest.Included)),
			zap.Int("omitted", len(draft.Manifest.Omitted)))
		return draft, nil
	})
}

// fetchStage fans non-video resource fetches out over the bounded worker
// pool and fans them back in. Video resources keep their outcome slot and
// are resolved by the enrich stage.
func (p *Pipeline) fetchStage(ctx context.Context, runID string, assignment Assignment) ([]FetchOutcome, error) {
	outcomes := make([]FetchOutcome, len(assignment.Resources))

	err := traceStage(ctx, StageFetch, func(ctx context.Context) error {
		p.emitStage(runID, assignment.ID, StageFetch, false)

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(p.cfg.MaxConcurrentFetches)
		for i, res := range assignment.Resources {
			if res.Kind == ResourceKindVideo {
				continue
			}
			g.Go(func() error {
				outcomes[i] = p.fetcher.Fetch(gctx, res)
				p.emitResourceResolved(runID, assignment.ID, outcomes[i])
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		p.emitStage(runID, assignment.ID, StageFetch, true)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return outcomes, nil
}

// enrichStage resolves explicit video resources into their original outcome
// slots and appends outcomes for video references discovered in the
// assignment text and fetched resource text. References are processed
// independently; one missing transcript never blocks the others.
func (p *Pipeline) enrichStage(ctx context.Context, runID string, assignment Assignment, outcomes []FetchOutcome) ([]FetchOutcome, error) {
	type slotRef struct {
		slot int
		ref  VideoReference
	}

	var explicit []slotRef
	seen := make(map[string]struct{})

	for i, res := range assignment.Resources {
		if res.Kind != ResourceKindVideo {
			continue
		}
		id, ok := ParseVideoID(res.URL)
		if !ok {
			outcomes[i] = NewFailureOutcome(res.ID, FailureNoTranscript,
				"no recognizable video id in "+res.URL)
			p.emitResourceResolved(runID, assignment.ID, outcomes[i])
			continue
		}
		seen[id] = struct{}{}
		explicit = append(explicit, slotRef{slot: i, ref: VideoReference{
			ResourceID: res.ID,
			VideoID:    id,
			SourceURL:  res.URL,
		}})
	}

	var discovered []VideoReference
	scan := func(text string) {
		for _, ref := range p.enricher.FindReferences(text) {
			if _, dup := seen[ref.VideoID]; dup {
				continue
			}
			seen[ref.VideoID] = struct{}{}
			discovered = append(discovered, ref)
		}
	}
	scan(assignment.Description)
	for _, outcome := range outcomes {
		if outcome.Content != nil {
			scan(outcome.Content.Text)
		}
	}

	extra := make([]FetchOutcome, len(discovered))

	err := traceStage(ctx, StageEnrich, func(ctx context.Context) error {
		p.emitStage(runID, assignment.ID, StageEnrich, false)

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(p.cfg.MaxConcurrentFetches)
		for _, sr := range explicit {
			g.Go(func() error {
				outcomes[sr.slot] = p.enricher.Enrich(gctx, sr.ref)
				p.emitResourceResolved(runID, assignment.ID, outcomes[sr.slot])
				return nil
			})
		}
		for i, ref := range discovered {
			g.Go(func() error {
				extra[i] = p.enricher.Enrich(gctx, ref)
				p.emitResourceResolved(runID, assignment.ID, extra[i])
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		p.emitStage(runID, assignment.ID, StageEnrich, true)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return append(outcomes, extra...), nil
}

// summarizeStage condenses each successful text unit serially. It only
// starts once every fetch and enrichment outcome for the assignment is
// known, since the size decision depends on the collected text.
func (p *Pipeline) summarizeStage(ctx context.Context, runID string, assignment Assignment, outcomes []FetchOutcome) ([]SummaryArtifact, error) {
	var artifacts []SummaryArtifact

	err := traceStage(ctx, StageSummarize, func(ctx context.Context) error {
		p.emitStage(runID, assignment.ID, StageSummarize, false)
		for _, outcome := range outcomes {
			if err := ctx.Err(); err != nil {
				return err
			}
			switch outcome.Type() {
			case FetchOutcomeTypeContent:
				artifacts = append(artifacts,
					p.summarizer.Summarize(ctx, outcome.ResourceID, outcome.Content.Text, false))
			case FetchOutcomeTypeTranscript:
				artifacts = append(artifacts,
					p.summarizer.Summarize(ctx, outcome.ResourceID, outcome.Transcript.Text, true))
			}
		}
		p.emitStage(runID, assignment.ID, StageSummarize, true)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return artifacts, nil
}

func (p *Pipeline) emitStage(runID, assignmentID string, stage Stage, completed bool) {
	event := RunEvent{RunID: runID, AssignmentID: assignmentID}
	if completed {
		event.StageCompleted = &StageCompletedEvent{Stage: stage}
	} else {
		event.StageEntered = &StageEnteredEvent{Stage: stage}
	}
	p.events.emit(event)
}

func (p *Pipeline) emitResourceResolved(runID, assignmentID string, outcome FetchOutcome) {
	p.events.emit(RunEvent{
		RunID:            runID,
		AssignmentID:     assignmentID,
		ResourceResolved: &ResourceResolvedEvent{Outcome: outcome},
	})
}

package autostudent

import "sync"

// Stage names one phase of the pipeline.
type Stage string

const (
	StageFetch      Stage = "fetch"
	StageEnrich     Stage = "enrich"
	StageSummarize  Stage = "summarize"
	StageAssemble   Stage = "assemble"
	StageEthicsGate Stage = "ethics_gate"
	StageGenerate   Stage = "generate"
)

// RunEvent is one progress event emitted by the orchestrator. Exactly one of
// StageEntered, ResourceResolved, or StageCompleted is set. Any observer
// (UI, logger, test harness) can subscribe without the pipeline depending on
// it.
type RunEvent struct {
	RunID            string
	AssignmentID     string
	StageEntered     *StageEnteredEvent
	ResourceResolved *ResourceResolvedEvent
	StageCompleted   *StageCompletedEvent
}

type RunEventType string

const (
	RunEventTypeStageEntered     RunEventType = "stage_entered"
	RunEventTypeResourceResolved RunEventType = "resource_resolved"
	RunEventTypeStageCompleted   RunEventType = "stage_completed"
)

func (e RunEvent) Type() RunEventType {
	switch {
	case e.StageEntered != nil:
		return RunEventTypeStageEntered
	case e.ResourceResolved != nil:
		return RunEventTypeResourceResolved
	case e.StageCompleted != nil:
		return RunEventTypeStageCompleted
	default:
		return ""
	}
}

type StageEnteredEvent struct {
	Stage Stage
}

type ResourceResolvedEvent struct {
	Outcome FetchOutcome
}

type StageCompletedEvent struct {
	Stage Stage
}

// eventBroadcaster fans run events out to subscribers. Delivery is
// best-effort: a subscriber whose buffer is full misses the event rather
// than stalling the pipeline.
type eventBroadcaster struct {
	mu   sync.Mutex
	subs map[int]chan RunEvent
	next int
}

func (b *eventBroadcaster) subscribe(buffer int) (<-chan RunEvent, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.subs == nil {
		b.subs = make(map[int]chan RunEvent)
	}
	id := b.next
	b.next++
	ch := make(chan RunEvent, buffer)
	b.subs[id] = ch

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

func (b *eventBroadcaster) emit(event RunEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, sub := range b.subs {
		select {
		case sub <- event:
		default:
		}
	}
}

package engine

import (
	"context"
	"errors"

	"github.com/omvyx/voice-receptionist/internal/directory"
	"github.com/omvyx/voice-receptionist/internal/scheduling"
	"github.com/omvyx/voice-receptionist/pkg/logging"
)

// Extractor pulls a structured field value out of free text.
// Implementations must be pure and side-effect-free.
type Extractor interface {
	Extract(field, text string) (string, bool)
}

// Classifier labels an utterance with a coarse intent.
// Implementations must be pure and side-effect-free.
type Classifier interface {
	Classify(text string) string
}

// Directory is the slice of the client directory the pipeline needs.
// Lookup returns (nil, nil) when no record matches.
type Directory interface {
	Lookup(ctx context.Context, identifier string) (*directory.Client, error)
	Create(ctx context.Context, fields map[string]string) (*directory.Client, error)
	Update(ctx context.Context, identifier string, fields map[string]string) (*directory.Client, error)
}

// Availability is the scheduling backend interface used for bookings.
type Availability interface {
	CheckAvailability(ctx context.Context, slot string) (scheduling.Result, error)
	Book(ctx context.Context, slot, identifier string) (scheduling.Receipt, error)
}

// Knowledge answers free-text questions. ok is false when no answer exists.
type Knowledge interface {
	Search(ctx context.Context, query string) (answer string, ok bool, err error)
}

// Pipeline runs the fixed stage sequence for one turn: initialize,
// universal extraction, identity resolution, checklist routing, one action
// stage, persist-and-save, respond.
type Pipeline struct {
	extractor    Extractor
	classifier   Classifier
	directory    Directory
	availability Availability
	knowledge    Knowledge
	logger       *logging.Logger
}

// PipelineConfig wires the pipeline's collaborators.
type PipelineConfig struct {
	Extractor    Extractor
	Classifier   Classifier
	Directory    Directory
	Availability Availability
	Knowledge    Knowledge
	Logger       *logging.Logger
}

// NewPipeline constructs a turn pipeline.
func NewPipeline(cfg PipelineConfig) *Pipeline {
	if cfg.Extractor == nil {
		panic("engine: extractor required")
	}
	if cfg.Classifier == nil {
		panic("engine: classifier required")
	}
	if cfg.Directory == nil {
		panic("engine: directory required")
	}
	if cfg.Availability == nil {
		panic("engine: availability service required")
	}
	if cfg.Knowledge == nil {
		panic("engine: knowledge base required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	return &Pipeline{
		extractor:    cfg.Extractor,
		classifier:   cfg.Classifier,
		directory:    cfg.Directory,
		availability: cfg.Availability,
		knowledge:    cfg.Knowledge,
		logger:       cfg.Logger,
	}
}

// TurnResult is the outcome of a completed turn: the next state to commit
// and the utterances to flush, in speaking order.
type TurnResult struct {
	State      CallState
	Utterances []string
}

// turnOutput accumulates the agent utterances produced by a turn.
type turnOutput struct {
	utterances []string
}

func (o *turnOutput) say(text string) {
	o.utterances = append(o.utterances, text)
}

// RunTurn executes the pipeline over a working copy of prior state. On
// success the returned state carries the whole turn delta; on error
// (including cancellation) nothing of the turn survives and the caller
// must not commit.
func (p *Pipeline) RunTurn(ctx context.Context, prior CallState, userText string) (*TurnResult, error) {
	st := prior.Clone()
	out := &turnOutput{}

	stageInitialize(&st)

	st.AppendTurn(RoleUser, userText)
	st.TurnCount++

	p.stageExtract(&st, userText)
	hydrated, err := p.stageResolveIdentity(ctx, &st)
	if err != nil {
		return nil, err
	}
	p.stageRoute(&st, userText)

	switch st.Intent {
	case IntentGreeting:
		p.actionGreet(&st, out)
	case IntentFAQ:
		err = p.actionFAQ(ctx, &st, out, userText)
	case IntentBooking:
		err = p.actionBooking(ctx, &st, out, userText)
	case IntentEndCall:
		p.actionEnd(&st, out)
	default:
		// collect_data, and unknown while the checklist is already complete
		p.actionCollect(&st, out)
	}
	if err != nil {
		return nil, err
	}

	if err := p.stagePersist(ctx, &st, prior.Profile, hydrated); err != nil {
		return nil, err
	}

	// Respond: single convergence point. The utterances join the transcript
	// here so a turn that aborted earlier leaves no partial agent entries.
	for _, u := range out.utterances {
		st.AppendTurn(RoleAgent, u)
	}

	return &TurnResult{State: st, Utterances: out.utterances}, nil
}

// stageInitialize injects the opening directive exactly once per call.
// Re-running with Initialized set is a no-op.
func stageInitialize(st *CallState) {
	if st.Initialized {
		return
	}
	st.AppendTurn(RoleSystem, openingDirective)
	st.Initialized = true
}

// stageExtract runs before routing on every turn: callers volunteer
// checklist fields unprompted, sometimes several in one utterance. A field
// already known is skipped entirely, which is what prevents re-asking.
func (p *Pipeline) stageExtract(st *CallState, text string) {
	for _, field := range st.RequiredChecklist {
		if st.Profile.Data[field] != "" {
			continue
		}
		value, ok := p.extractor.Extract(field, text)
		if !ok {
			continue
		}
		st.Profile.Data[field] = value
		if field == PrimaryIdentityField && st.Profile.IdentityKey == "" {
			st.Profile.IdentityKey = value
		}
	}
	st.RecomputeMissing()
}

// stageResolveIdentity hydrates the profile from the directory the first
// time the primary identifier is known. The Verified guard makes every
// later run a no-op. It returns the field values the directory supplied so
// persist can tell them apart from locally gathered changes.
func (p *Pipeline) stageResolveIdentity(ctx context.Context, st *CallState) (map[string]string, error) {
	identifier := st.Profile.Data[PrimaryIdentityField]
	if st.Profile.Verified || identifier == "" {
		return nil, nil
	}

	client, err := p.directory.Lookup(ctx, identifier)
	if err != nil {
		if isCancellation(err) {
			return nil, err
		}
		p.logger.Warn("engine: directory lookup failed",
			"call_id", st.CallID, "stage", "identity_resolution", "error", err)
		return nil, nil
	}
	if client == nil {
		st.Profile.IsNewRecord = true
		return nil, nil
	}

	// Directory values are authoritative: non-empty fields overwrite
	// whatever extraction guessed earlier.
	hydrated := make(map[string]string, len(client.Fields))
	for field, value := range client.Fields {
		if value != "" {
			st.Profile.Data[field] = value
			hydrated[field] = value
		}
	}
	st.Profile.IdentityKey = client.Key
	st.Profile.History = append([]string(nil), client.History...)
	st.Profile.Verified = true
	st.Profile.IsNewRecord = false
	st.RecomputeMissing()
	return hydrated, nil
}

// stagePersist is the directory sync guard that runs after the action
// stage. It pushes local changes for verified callers and creates exactly
// one record for new callers once a display name is known.
func (p *Pipeline) stagePersist(ctx context.Context, st *CallState, prior ClientProfile, hydrated map[string]string) error {
	switch {
	case st.Profile.Verified && st.Profile.IdentityKey != "":
		// Values the directory supplied this turn are already stored;
		// only genuinely local changes sync back.
		base := make(map[string]string, len(prior.Data)+len(hydrated))
		for field, value := range prior.Data {
			base[field] = value
		}
		for field, value := range hydrated {
			base[field] = value
		}
		changed := changedFields(base, st.Profile.Data)
		if len(changed) == 0 {
			return nil
		}
		if _, err := p.directory.Update(ctx, st.Profile.IdentityKey, changed); err != nil {
			if isCancellation(err) {
				return err
			}
			p.logger.Warn("engine: directory update failed",
				"call_id", st.CallID, "stage", "persist_and_save", "error", err)
		}

	case st.Profile.IsNewRecord && st.Profile.Data[DisplayNameField] != "":
		client, err := p.directory.Create(ctx, st.Profile.Data)
		if err != nil {
			if isCancellation(err) {
				return err
			}
			p.logger.Warn("engine: directory create failed",
				"call_id", st.CallID, "stage", "persist_and_save", "error", err)
			return nil
		}
		st.Profile.Verified = true
		st.Profile.IsNewRecord = false
		if st.Profile.IdentityKey == "" {
			st.Profile.IdentityKey = client.Key
		}
	}
	return nil
}

// changedFields returns the entries of next that are non-empty and differ
// from prior.
func changedFields(prior, next map[string]string) map[string]string {
	changed := make(map[string]string)
	for field, value := range next {
		if value != "" && prior[field] != value {
			changed[field] = value
		}
	}
	return changed
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

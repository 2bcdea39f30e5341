package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omvyx/voice-receptionist/internal/directory"
	"github.com/omvyx/voice-receptionist/internal/knowledge"
	"github.com/omvyx/voice-receptionist/internal/nlu"
	"github.com/omvyx/voice-receptionist/internal/scheduling"
	"github.com/omvyx/voice-receptionist/pkg/logging"
)

type fakeAvailability struct {
	check func(ctx context.Context, slot string) (scheduling.Result, error)
	book  func(ctx context.Context, slot, identifier string) (scheduling.Receipt, error)
}

func (f *fakeAvailability) CheckAvailability(ctx context.Context, slot string) (scheduling.Result, error) {
	if f.check != nil {
		return f.check(ctx, slot)
	}
	return scheduling.Result{Available: true, Requested: slot}, nil
}

func (f *fakeAvailability) Book(ctx context.Context, slot, identifier string) (scheduling.Receipt, error) {
	if f.book != nil {
		return f.book(ctx, slot, identifier)
	}
	return scheduling.Receipt{Slot: slot, Identifier: identifier}, nil
}

type fakeKnowledge struct {
	answer string
	ok     bool
	err    error
}

func (f *fakeKnowledge) Search(context.Context, string) (string, bool, error) {
	return f.answer, f.ok, f.err
}

type failingDirectory struct{ err error }

func (f *failingDirectory) Lookup(context.Context, string) (*directory.Client, error) {
	return nil, f.err
}

func (f *failingDirectory) Create(context.Context, map[string]string) (*directory.Client, error) {
	return nil, f.err
}

func (f *failingDirectory) Update(context.Context, string, map[string]string) (*directory.Client, error) {
	return nil, f.err
}

// recordingDirectory captures Update calls while delegating to a real
// directory implementation.
type recordingDirectory struct {
	Directory
	updates []map[string]string
}

func (r *recordingDirectory) Update(ctx context.Context, identifier string, fields map[string]string) (*directory.Client, error) {
	r.updates = append(r.updates, fields)
	return r.Directory.Update(ctx, identifier, fields)
}

type testPipelineOpts struct {
	dir          Directory
	availability Availability
	knowledge    Knowledge
}

func newTestPipeline(opts testPipelineOpts) *Pipeline {
	if opts.dir == nil {
		opts.dir = directory.NewSeededService()
	}
	if opts.availability == nil {
		opts.availability = scheduling.NewCalendarWithBusy("2026-02-09 10:00")
	}
	if opts.knowledge == nil {
		opts.knowledge = knowledge.NewDefaultBase()
	}
	return NewPipeline(PipelineConfig{
		Extractor:    nlu.NewRegexExtractor(),
		Classifier:   nlu.NewKeywordClassifier(),
		Directory:    opts.dir,
		Availability: opts.availability,
		Knowledge:    opts.knowledge,
		Logger:       logging.New("error"),
	})
}

func countRole(transcript []TurnRecord, role Role) int {
	n := 0
	for _, rec := range transcript {
		if rec.Role == role {
			n++
		}
	}
	return n
}

func TestInitializeRunsExactlyOnce(t *testing.T) {
	p := newTestPipeline(testPipelineOpts{})
	st := NewCallState("call-1")

	first, err := p.RunTurn(context.Background(), st, "Hola")
	require.NoError(t, err)
	assert.True(t, first.State.Initialized)
	assert.Equal(t, 1, countRole(first.State.Transcript, RoleSystem))

	second, err := p.RunTurn(context.Background(), first.State, "Buenas")
	require.NoError(t, err)
	assert.Equal(t, 1, countRole(second.State.Transcript, RoleSystem))
}

func TestGreetingTurn(t *testing.T) {
	p := newTestPipeline(testPipelineOpts{})

	result, err := p.RunTurn(context.Background(), NewCallState("call-1"), "Hola")
	require.NoError(t, err)
	assert.Equal(t, IntentGreeting, result.State.Intent)
	require.Len(t, result.Utterances, 1)
	assert.Contains(t, result.Utterances[0], "Bienvenido/a")
}

func TestChecklistNeverShrinksAndNeverReasks(t *testing.T) {
	p := newTestPipeline(testPipelineOpts{})
	ctx := context.Background()

	first, err := p.RunTurn(ctx, NewCallState("call-1"), "Me llamo Ana Torres")
	require.NoError(t, err)
	assert.Equal(t, "Ana Torres", first.State.Profile.Data[FieldName])
	assert.Equal(t, []string{FieldDNI, FieldEmail, FieldPhone}, first.State.MissingFields)
	assert.Equal(t, FieldDNI, first.State.ActiveSlot)
	require.Len(t, first.Utterances, 1)
	assert.Equal(t, PromptFor(FieldDNI), first.Utterances[0])

	second, err := p.RunTurn(ctx, first.State, "Mi DNI es 99999999Z")
	require.NoError(t, err)
	// Known fields stay known; the next prompt moves down the checklist
	// instead of circling back.
	assert.Equal(t, "Ana Torres", second.State.Profile.Data[FieldName])
	assert.Equal(t, "99999999Z", second.State.Profile.Data[FieldDNI])
	assert.Equal(t, []string{FieldEmail, FieldPhone}, second.State.MissingFields)
	require.Len(t, second.Utterances, 1)
	assert.Equal(t, PromptFor(FieldEmail), second.Utterances[0])
	assert.Subset(t, first.State.MissingFields, second.State.MissingFields)
}

func TestTwoFieldsInOneUtteranceAbsorbedTogether(t *testing.T) {
	p := newTestPipeline(testPipelineOpts{})

	result, err := p.RunTurn(context.Background(), NewCallState("call-1"),
		"Mi DNI es 99999999Z y mi correo es ana@example.com")
	require.NoError(t, err)

	profile := result.State.Profile
	assert.Equal(t, "99999999Z", profile.Data[FieldDNI])
	assert.Equal(t, "ana@example.com", profile.Data[FieldEmail])
	assert.Empty(t, profile.Data[FieldName])
	assert.Equal(t, []string{FieldName, FieldPhone}, result.State.MissingFields)
	// One prompt for the first still-missing field; neither absorbed field
	// is ever asked for.
	require.Len(t, result.Utterances, 1)
	assert.Equal(t, PromptFor(FieldName), result.Utterances[0])
	assert.Equal(t, FieldName, result.State.ActiveSlot)
}

func TestDirectoryHydrationOverridesExtractedGuess(t *testing.T) {
	p := newTestPipeline(testPipelineOpts{})
	st := NewCallState("call-1")
	st.Profile.Data[FieldName] = "Mari Garcia"
	st.RecomputeMissing()

	result, err := p.RunTurn(context.Background(), st, "Mi DNI es 12345678A")
	require.NoError(t, err)

	profile := result.State.Profile
	assert.Equal(t, "María García", profile.Data[FieldName])
	assert.Equal(t, "12345678A", profile.IdentityKey)
	assert.True(t, profile.Verified)
	assert.False(t, profile.IsNewRecord)
	assert.Len(t, profile.History, 2)
	assert.Empty(t, result.State.MissingFields)
}

func TestHydrationTurnDoesNotEchoDirectoryValues(t *testing.T) {
	dir := &recordingDirectory{Directory: directory.NewSeededService()}
	p := newTestPipeline(testPipelineOpts{dir: dir})
	st := NewCallState("call-1")
	st.Profile.Data[FieldName] = "Mari Garcia"
	st.RecomputeMissing()

	result, err := p.RunTurn(context.Background(), st, "Mi DNI es 12345678A")
	require.NoError(t, err)
	assert.True(t, result.State.Profile.Verified)
	// Everything in the profile came from the directory itself this turn,
	// so nothing syncs back.
	assert.Empty(t, dir.updates)
}

func TestVerifiedCallerLocalChangeSyncsToDirectory(t *testing.T) {
	dir := &recordingDirectory{Directory: directory.NewSeededService()}
	p := newTestPipeline(testPipelineOpts{dir: dir})
	st := completeCallState()
	st.Profile.Data[FieldEmail] = ""
	st.RecomputeMissing()

	_, err := p.RunTurn(context.Background(), st, "Mi correo es nuevo@example.com")
	require.NoError(t, err)
	require.Len(t, dir.updates, 1)
	assert.Equal(t, map[string]string{FieldEmail: "nuevo@example.com"}, dir.updates[0])
}

func TestVerifiedCallerRecognizedInOneTurn(t *testing.T) {
	p := newTestPipeline(testPipelineOpts{})

	result, err := p.RunTurn(context.Background(), NewCallState("call-1"), "Hola, mi DNI es 12345678A")
	require.NoError(t, err)

	assert.Empty(t, result.State.MissingFields)
	assert.True(t, result.State.Profile.Verified)
	require.Len(t, result.Utterances, 1)
	assert.Contains(t, result.Utterances[0], "María García")
	assert.Contains(t, result.Utterances[0], "cita de seguimiento")
}

func TestFAQDigressionResumesExactPrompt(t *testing.T) {
	p := newTestPipeline(testPipelineOpts{})
	st := NewCallState("call-1")
	st.ActiveSlot = FieldName

	result, err := p.RunTurn(context.Background(), st, "¿Dónde están ubicados?")
	require.NoError(t, err)

	require.Len(t, result.Utterances, 2)
	assert.Contains(t, result.Utterances[0], "Gran Vía")
	assert.Equal(t, PromptFor(FieldName), result.Utterances[1])
	assert.False(t, result.State.PendingFAQInterrupt)
	assert.Equal(t, FieldName, result.State.ActiveSlot)
}

func TestFAQWithoutAnswerFallsBack(t *testing.T) {
	p := newTestPipeline(testPipelineOpts{knowledge: &fakeKnowledge{ok: false}})
	st := NewCallState("call-1")

	result, err := p.RunTurn(context.Background(), st, "¿Cuál es el horario?")
	require.NoError(t, err)
	require.Len(t, result.Utterances, 1)
	assert.Equal(t, fallbackAnswer, result.Utterances[0])
}

func TestKnowledgeFailureDegradesGracefully(t *testing.T) {
	p := newTestPipeline(testPipelineOpts{knowledge: &fakeKnowledge{err: errors.New("backend down")}})
	st := NewCallState("call-1")

	result, err := p.RunTurn(context.Background(), st, "¿Cuál es el horario?")
	require.NoError(t, err)
	require.Len(t, result.Utterances, 1)
	assert.Equal(t, serviceDownReply, result.Utterances[0])
}

func TestDirectoryFailureDoesNotAbortTurn(t *testing.T) {
	p := newTestPipeline(testPipelineOpts{dir: &failingDirectory{err: errors.New("connection refused")}})

	result, err := p.RunTurn(context.Background(), NewCallState("call-1"), "Mi DNI es 12345678A")
	require.NoError(t, err)
	// Lookup failed, so the caller stays unverified and the checklist
	// continues as for a new caller.
	assert.False(t, result.State.Profile.Verified)
	assert.Equal(t, "12345678A", result.State.Profile.Data[FieldDNI])
	require.NotEmpty(t, result.Utterances)
}

func TestCancellationAbortsWithoutResult(t *testing.T) {
	p := newTestPipeline(testPipelineOpts{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := p.RunTurn(ctx, NewCallState("call-1"), "¿Dónde están ubicados?")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, result)
}

func TestNewCallerCreatedOnceNameKnown(t *testing.T) {
	dir := directory.NewInMemoryService()
	p := newTestPipeline(testPipelineOpts{dir: dir})

	result, err := p.RunTurn(context.Background(), NewCallState("call-1"), "Me llamo Ana Torres")
	require.NoError(t, err)
	assert.True(t, result.State.Profile.Verified)
	assert.False(t, result.State.Profile.IsNewRecord)
	require.NotEmpty(t, result.State.Profile.IdentityKey)

	stored, err := dir.Lookup(context.Background(), result.State.Profile.IdentityKey)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "Ana Torres", stored.Fields[FieldName])
}

func TestFarewellTurn(t *testing.T) {
	p := newTestPipeline(testPipelineOpts{})
	st := NewCallState("call-1")
	st.Profile.Data[FieldName] = "Ana"
	st.RecomputeMissing()

	result, err := p.RunTurn(context.Background(), st, "Eso es todo, adiós")
	require.NoError(t, err)
	assert.Equal(t, IntentEndCall, result.State.Intent)
	require.Len(t, result.Utterances, 1)
	assert.Contains(t, result.Utterances[0], "Ana")
}

func TestAgentUtterancesJoinTranscriptInOrder(t *testing.T) {
	p := newTestPipeline(testPipelineOpts{})
	st := NewCallState("call-1")
	st.ActiveSlot = FieldName

	result, err := p.RunTurn(context.Background(), st, "¿Dónde están ubicados?")
	require.NoError(t, err)

	agentEntries := make([]string, 0, 2)
	for _, rec := range result.State.Transcript {
		if rec.Role == RoleAgent {
			agentEntries = append(agentEntries, rec.Text)
		}
	}
	assert.Equal(t, result.Utterances, agentEntries)
}

package core

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/contract-extractor/constants"
	"github.com/joseph-ayodele/contract-extractor/internal/common"
	coreasync "github.com/joseph-ayodele/contract-extractor/internal/core/async"
	"github.com/joseph-ayodele/contract-extractor/internal/entity"
	"github.com/joseph-ayodele/contract-extractor/internal/extract"
	"github.com/joseph-ayodele/contract-extractor/internal/llm"
	"github.com/joseph-ayodele/contract-extractor/internal/repository"
	"github.com/joseph-ayodele/contract-extractor/internal/rules"
	"github.com/joseph-ayodele/contract-extractor/internal/storage"
	"github.com/joseph-ayodele/contract-extractor/internal/textextract"
)

const acmeText = "SERVICE AGREEMENT\n\nThis agreement is made on January 1, 2025 between Acme Corp (\"Vendor\") and BlueSky Inc (\"Client\")."

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// stubExtractor is a scriptable FieldExtractor that counts its calls.
type stubExtractor struct {
	strategy    constants.Strategy
	bundle      entity.FieldBundle
	err         error
	panicMsg    string
	unavailable bool
	gate        chan struct{}
	calls       atomic.Int32
}

func (s *stubExtractor) Strategy() constants.Strategy { return s.strategy }
func (s *stubExtractor) Available() bool              { return !s.unavailable }

func (s *stubExtractor) ExtractFields(ctx context.Context, _ extract.ExtractRequest) (entity.FieldBundle, []byte, error) {
	s.calls.Add(1)
	if s.gate != nil {
		select {
		case <-s.gate:
		case <-ctx.Done():
			return entity.FieldBundle{}, nil, ctx.Err()
		}
	}
	if s.panicMsg != "" {
		panic(s.panicMsg)
	}
	if s.err != nil {
		return entity.FieldBundle{}, nil, s.err
	}
	return s.bundle, []byte(`{"stub":true}`), nil
}

// countingRules wraps the real rule-based extractor.
type countingRules struct {
	*rules.Extractor
	calls atomic.Int32
}

func (c *countingRules) ExtractFields(ctx context.Context, req extract.ExtractRequest) (entity.FieldBundle, []byte, error) {
	c.calls.Add(1)
	return c.Extractor.ExtractFields(ctx, req)
}

type harness struct {
	records   repository.AnalysisRecordStore
	documents repository.DocumentRepository
	contracts repository.ContractRepository
	blobs     storage.BlobStore
	proc      *Processor
	queue     *coreasync.ProcessorQueue
	orch      *Orchestrator
}

func newHarness(t *testing.T, primary, fallback extract.FieldExtractor) *harness {
	t.Helper()
	ctx := context.Background()
	log := quietLogger()

	db, err := repository.Open(ctx, common.DatabaseConfig{
		Driver: "sqlite",
		DSN:    filepath.Join(t.TempDir(), "core.db"),
	}, log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Migrate(ctx))

	blobs, err := storage.NewLocalStore(t.TempDir(), log)
	require.NoError(t, err)

	h := &harness{
		records:   repository.NewAnalysisRecordStore(db, log),
		documents: repository.NewDocumentRepository(db, log),
		contracts: repository.NewContractRepository(db, log),
		blobs:     blobs,
	}
	h.proc = NewProcessor(log, h.records, h.documents, h.contracts, blobs,
		textextract.NewExtractor(textextract.Config{}, log), primary, fallback)
	h.queue = coreasync.NewProcessorQueue(h.proc, log, coreasync.WithWorkers(2), coreasync.WithProcessTimeout(10*time.Second))
	t.Cleanup(func() { h.queue.Shutdown(context.Background()) })
	h.orch = NewOrchestrator(log, h.records, h.documents, h.queue)
	return h
}

func (h *harness) addDocument(t *testing.T, tenant, title, text string) uuid.UUID {
	t.Helper()
	ctx := context.Background()
	key := tenant + "/" + uuid.NewString() + ".txt"
	require.NoError(t, h.blobs.Put(ctx, key, strings.NewReader(text), int64(len(text)), "text/plain"))
	doc, err := h.documents.Create(ctx, &entity.Document{
		TenantID:   tenant,
		Title:      title,
		Filename:   "contract.txt",
		MimeType:   "text/plain",
		ContentRef: key,
		SizeBytes:  int64(len(text)),
	})
	require.NoError(t, err)
	return doc.ID
}

// drain waits for every queued job and returns the final record.
func (h *harness) drain(t *testing.T, id uuid.UUID) *entity.AnalysisRecord {
	t.Helper()
	h.queue.Shutdown(context.Background())
	rec, err := h.orch.GetStatus(context.Background(), id)
	require.NoError(t, err)
	return rec
}

func rawAttempts(t *testing.T, rec *entity.AnalysisRecord) []Attempt {
	t.Helper()
	var payload struct {
		Attempts []Attempt `json:"attempts"`
	}
	require.NoError(t, json.Unmarshal(rec.RawResult, &payload))
	return payload.Attempts
}

func TestSubmit_EndToEndWithAIUnavailable(t *testing.T) {
	ctx := context.Background()
	rulesX := &countingRules{Extractor: rules.NewExtractor(quietLogger())}
	h := newHarness(t, llm.NewExtractor(nil, quietLogger()), rulesX)

	acme, err := h.contracts.Create(ctx, &entity.Contract{TenantID: "t1", CounterpartyName: "acme corp"})
	require.NoError(t, err)
	docID := h.addDocument(t, "t1", "", acmeText)

	rec, err := h.orch.Submit(ctx, docID, "u1", "t1")
	require.NoError(t, err)
	assert.Equal(t, constants.AnalysisStatusPending, rec.Status)

	final := h.drain(t, rec.ID)
	assert.Equal(t, constants.AnalysisStatusCompleted, final.Status)
	require.NotNil(t, final.DocType)
	assert.Equal(t, string(constants.DocTypeServiceAgreement), *final.DocType)
	require.NotNil(t, final.Vendor)
	assert.Contains(t, *final.Vendor, "Acme Corp")
	require.NotNil(t, final.EffectiveDate)
	assert.Equal(t, "2025-01-01", *final.EffectiveDate)
	assert.Equal(t, string(constants.StrategyRules), *final.Strategy)
	require.NotNil(t, final.SuggestedContractID)
	assert.Equal(t, acme.ID, *final.SuggestedContractID)
	assert.Nil(t, final.Error)
	assert.Equal(t, int32(1), rulesX.calls.Load())

	attempts := rawAttempts(t, final)
	require.Len(t, attempts, 2)
	assert.Equal(t, constants.StrategyAI, attempts[0].Strategy)
	assert.True(t, attempts[0].Skipped)
	assert.Equal(t, constants.StrategyRules, attempts[1].Strategy)
	assert.Empty(t, attempts[1].Error)
}

func TestFallback_AIErrorCompletesWithRules(t *testing.T) {
	ctx := context.Background()
	ai := &stubExtractor{strategy: constants.StrategyAI, err: errors.New("upstream 503")}
	rulesX := &countingRules{Extractor: rules.NewExtractor(quietLogger())}
	h := newHarness(t, ai, rulesX)

	rec, err := h.orch.Submit(ctx, h.addDocument(t, "t1", "", acmeText), "u1", "t1")
	require.NoError(t, err)

	final := h.drain(t, rec.ID)
	assert.Equal(t, constants.AnalysisStatusCompleted, final.Status)
	assert.Equal(t, string(constants.StrategyRules), *final.Strategy)
	assert.Equal(t, int32(1), ai.calls.Load())
	assert.Equal(t, int32(1), rulesX.calls.Load())

	attempts := rawAttempts(t, final)
	require.Len(t, attempts, 2)
	assert.Contains(t, attempts[0].Error, "upstream 503")
	assert.False(t, attempts[0].Skipped)
}

func TestFallback_AIPanicCompletesWithRules(t *testing.T) {
	ai := &stubExtractor{strategy: constants.StrategyAI, panicMsg: "nil map"}
	h := newHarness(t, ai, rules.NewExtractor(quietLogger()))

	rec, err := h.orch.Submit(context.Background(), h.addDocument(t, "t1", "", acmeText), "u1", "t1")
	require.NoError(t, err)

	final := h.drain(t, rec.ID)
	assert.Equal(t, constants.AnalysisStatusCompleted, final.Status)
	assert.Equal(t, string(constants.StrategyRules), *final.Strategy)
}

func TestAIPreferredWhenItSucceeds(t *testing.T) {
	b := entity.NewFieldBundle(0)
	b.Set(constants.FieldVendor, "Globex LLC", 0.9)
	b.Set(constants.FieldDocType, string(constants.DocTypeNDA), 0.8)
	b.Confidence[constants.FieldContractTitle] = 1.7
	b.Confidence[constants.FieldEffectiveDate] = -0.2
	ai := &stubExtractor{strategy: constants.StrategyAI, bundle: b}
	rulesX := &countingRules{Extractor: rules.NewExtractor(quietLogger())}
	h := newHarness(t, ai, rulesX)

	rec, err := h.orch.Submit(context.Background(), h.addDocument(t, "t1", "", acmeText), "u1", "t1")
	require.NoError(t, err)

	final := h.drain(t, rec.ID)
	assert.Equal(t, constants.AnalysisStatusCompleted, final.Status)
	assert.Equal(t, string(constants.StrategyAI), *final.Strategy)
	assert.Equal(t, "Globex LLC", *final.Vendor)
	assert.Equal(t, int32(0), rulesX.calls.Load())
	assert.Nil(t, final.SuggestedContractID)

	for f, c := range final.Confidence {
		assert.GreaterOrEqual(t, c, 0.0, f)
		assert.LessOrEqual(t, c, 1.0, f)
	}
	assert.Equal(t, 1.0, final.Confidence[constants.FieldContractTitle])
	assert.Equal(t, 0.0, final.Confidence[constants.FieldEffectiveDate])
}

func TestBothStrategiesFail(t *testing.T) {
	ai := &stubExtractor{strategy: constants.StrategyAI, err: errors.New("timeout")}
	broken := &stubExtractor{strategy: constants.StrategyRules, panicMsg: "regex bug"}
	h := newHarness(t, ai, broken)

	rec, err := h.orch.Submit(context.Background(), h.addDocument(t, "t1", "", acmeText), "u1", "t1")
	require.NoError(t, err)

	final := h.drain(t, rec.ID)
	assert.Equal(t, constants.AnalysisStatusFailed, final.Status)
	require.NotNil(t, final.Error)
	assert.Contains(t, *final.Error, "timeout")
	assert.Contains(t, *final.Error, "regex bug")
	assert.Nil(t, final.Vendor)
	assert.Equal(t, int32(1), ai.calls.Load())
	assert.Equal(t, int32(1), broken.calls.Load())
}

func TestSubmit_DocumentNotFound(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil, rules.NewExtractor(quietLogger()))

	_, err := h.orch.Submit(ctx, uuid.New(), "u1", "t1")
	assert.ErrorIs(t, err, common.ErrDocumentNotFound)

	// another tenant's document is invisible
	docID := h.addDocument(t, "t2", "", acmeText)
	_, err = h.orch.Submit(ctx, docID, "u1", "t1")
	assert.ErrorIs(t, err, common.ErrDocumentNotFound)

	recs, err := h.records.List(ctx, entity.AnalysisFilter{})
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestSubmit_Validation(t *testing.T) {
	h := newHarness(t, nil, rules.NewExtractor(quietLogger()))
	docID := h.addDocument(t, "t1", "", acmeText)

	_, err := h.orch.Submit(context.Background(), docID, "", "t1")
	assert.ErrorIs(t, err, common.ErrInvalidInput)

	_, err = h.orch.Submit(context.Background(), uuid.Nil, "u1", "t1")
	assert.ErrorIs(t, err, common.ErrInvalidInput)

	_, err = h.orch.Submit(context.Background(), docID, "u1", strings.Repeat("x", 65))
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestGetStatus_NotFound(t *testing.T) {
	h := newHarness(t, nil, rules.NewExtractor(quietLogger()))
	_, err := h.orch.GetStatus(context.Background(), uuid.New())
	assert.ErrorIs(t, err, common.ErrAnalysisNotFound)
}

func statusRank(s constants.AnalysisStatus) int {
	switch s {
	case constants.AnalysisStatusPending:
		return 0
	case constants.AnalysisStatusProcessing:
		return 1
	default:
		return 2
	}
}

func TestStatusNeverRegresses(t *testing.T) {
	ctx := context.Background()
	ai := &stubExtractor{strategy: constants.StrategyAI, err: errors.New("nope"), gate: make(chan struct{})}
	h := newHarness(t, ai, rules.NewExtractor(quietLogger()))

	rec, err := h.orch.Submit(ctx, h.addDocument(t, "t1", "", acmeText), "u1", "t1")
	require.NoError(t, err)

	var (
		mu       sync.Mutex
		observed []constants.AnalysisStatus
	)
	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-stop:
				return
			default:
			}
			r, err := h.orch.GetStatus(ctx, rec.ID)
			if err == nil {
				mu.Lock()
				observed = append(observed, r.Status)
				mu.Unlock()
			}
			time.Sleep(time.Millisecond)
		}
	}()

	require.Eventually(t, func() bool { return ai.calls.Load() == 1 }, 5*time.Second, 5*time.Millisecond)
	close(ai.gate)
	require.Eventually(t, func() bool {
		r, err := h.orch.GetStatus(ctx, rec.ID)
		return err == nil && r.Status.IsTerminal()
	}, 5*time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(stop)
	<-done

	// a duplicate job for a finished record must not move it
	require.NoError(t, h.proc.Process(ctx, rec.ID))
	r, err := h.orch.GetStatus(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.AnalysisStatusCompleted, r.Status)

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, observed)
	for i := 1; i < len(observed); i++ {
		assert.GreaterOrEqual(t, statusRank(observed[i]), statusRank(observed[i-1]), "regression at read %d: %v", i, observed)
	}
	assert.Equal(t, constants.AnalysisStatusCompleted, observed[len(observed)-1])
}

func TestProcess_JobDeadlineStillPersistsRulesResult(t *testing.T) {
	// the completion call holds until the job deadline passes
	ai := &stubExtractor{strategy: constants.StrategyAI, gate: make(chan struct{})}
	rulesX := &countingRules{Extractor: rules.NewExtractor(quietLogger())}
	h := newHarness(t, ai, rulesX)

	rec, err := h.records.Create(context.Background(), &entity.AnalysisRecord{
		DocumentID: h.addDocument(t, "t1", "", acmeText),
		TenantID:   "t1",
		UserID:     "u1",
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	require.NoError(t, h.proc.Process(ctx, rec.ID))
	require.Error(t, ctx.Err())

	final, err := h.orch.GetStatus(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.AnalysisStatusCompleted, final.Status)
	assert.Equal(t, string(constants.StrategyRules), *final.Strategy)
	require.NotNil(t, final.Vendor)
	assert.Contains(t, *final.Vendor, "Acme Corp")
	assert.Equal(t, int32(1), ai.calls.Load())
	assert.Equal(t, int32(1), rulesX.calls.Load())

	attempts := rawAttempts(t, final)
	require.Len(t, attempts, 2)
	assert.Contains(t, attempts[0].Error, context.DeadlineExceeded.Error())
}

func TestProcess_SecondRunForSameRecordIsRefused(t *testing.T) {
	ai := &stubExtractor{strategy: constants.StrategyAI, err: errors.New("nope"), gate: make(chan struct{})}
	rulesX := &countingRules{Extractor: rules.NewExtractor(quietLogger())}
	h := newHarness(t, ai, rulesX)

	rec, err := h.records.Create(context.Background(), &entity.AnalysisRecord{
		DocumentID: h.addDocument(t, "t1", "", acmeText),
		TenantID:   "t1",
		UserID:     "u1",
	})
	require.NoError(t, err)

	first := make(chan error, 1)
	go func() { first <- h.proc.Process(context.Background(), rec.ID) }()
	require.Eventually(t, func() bool { return ai.calls.Load() == 1 }, 5*time.Second, 5*time.Millisecond)

	// PROCESSING -> PROCESSING is a legal reclaim, so only the in-flight guard stops this run
	require.NoError(t, h.proc.Process(context.Background(), rec.ID))
	assert.Equal(t, int32(1), ai.calls.Load())

	close(ai.gate)
	select {
	case err := <-first:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("first run did not finish")
	}
	assert.Equal(t, int32(1), rulesX.calls.Load())

	final, err := h.orch.GetStatus(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.AnalysisStatusCompleted, final.Status)

	// the guard is released once the run ends
	require.NoError(t, h.proc.Process(context.Background(), rec.ID))
	assert.Equal(t, int32(1), ai.calls.Load())
}

func TestRecover_RequeuesUnfinished(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil, rules.NewExtractor(quietLogger()))
	docID := h.addDocument(t, "t1", "", acmeText)

	// simulate a crash: records written but never processed
	pending, err := h.records.Create(ctx, &entity.AnalysisRecord{DocumentID: docID, TenantID: "t1", UserID: "u1"})
	require.NoError(t, err)
	inflight, err := h.records.Create(ctx, &entity.AnalysisRecord{DocumentID: docID, TenantID: "t1", UserID: "u1"})
	require.NoError(t, err)
	require.NoError(t, h.records.UpdateStatus(ctx, inflight.ID, constants.AnalysisStatusProcessing, entity.AnalysisUpdate{}))
	done, err := h.records.Create(ctx, &entity.AnalysisRecord{DocumentID: docID, TenantID: "t1", UserID: "u1"})
	require.NoError(t, err)
	require.NoError(t, h.records.UpdateStatus(ctx, done.ID, constants.AnalysisStatusProcessing, entity.AnalysisUpdate{}))
	msg := "earlier failure"
	require.NoError(t, h.records.UpdateStatus(ctx, done.ID, constants.AnalysisStatusFailed, entity.AnalysisUpdate{Error: &msg}))

	n, err := h.orch.Recover(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	h.queue.Shutdown(ctx)
	for _, id := range []uuid.UUID{pending.ID, inflight.ID} {
		r, err := h.orch.GetStatus(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, constants.AnalysisStatusCompleted, r.Status)
	}
	r, err := h.orch.GetStatus(ctx, done.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.AnalysisStatusFailed, r.Status)
}

func TestList(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil, rules.NewExtractor(quietLogger()))
	docID := h.addDocument(t, "t1", "", acmeText)
	for i := 0; i < 3; i++ {
		_, err := h.orch.Submit(ctx, docID, "u1", "t1")
		require.NoError(t, err)
	}
	h.queue.Shutdown(ctx)

	all, err := h.orch.List(ctx, "t1", "", 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	done, err := h.orch.List(ctx, "t1", constants.AnalysisStatusCompleted, 2)
	require.NoError(t, err)
	assert.Len(t, done, 2)

	_, err = h.orch.List(ctx, "t1", "DONE", 0)
	assert.ErrorIs(t, err, common.ErrInvalidInput)

	_, err = h.orch.List(ctx, "", "", 0)
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestSubmit_QueueClosedLeavesRecordPending(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil, rules.NewExtractor(quietLogger()))
	docID := h.addDocument(t, "t1", "", acmeText)
	h.queue.Shutdown(ctx)

	rec, err := h.orch.Submit(ctx, docID, "u1", "t1")
	require.NoError(t, err)
	got, err := h.orch.GetStatus(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.AnalysisStatusPending, got.Status)
}

func TestProcess_MissingContentFallsBackToMetadata(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil, rules.NewExtractor(quietLogger()))
	doc, err := h.documents.Create(ctx, &entity.Document{
		TenantID:   "t1",
		Title:      "Mutual Non-Disclosure Agreement",
		Filename:   "nda.txt",
		MimeType:   "text/plain",
		ContentRef: "t1/missing.txt",
	})
	require.NoError(t, err)

	rec, err := h.orch.Submit(ctx, doc.ID, "u1", "t1")
	require.NoError(t, err)
	final := h.drain(t, rec.ID)

	assert.Equal(t, constants.AnalysisStatusCompleted, final.Status)
	require.NotNil(t, final.ContractTitle)
	assert.Equal(t, "Mutual Non-Disclosure Agreement", *final.ContractTitle)
	require.NotNil(t, final.DocType)
	assert.Equal(t, string(constants.DocTypeNDA), *final.DocType)
}

func TestExtract_FallbackAttemptedExactlyOnce(t *testing.T) {
	tests := []struct {
		name string
		ai   *stubExtractor
	}{
		{"nil primary", nil},
		{"unavailable", &stubExtractor{strategy: constants.StrategyAI, unavailable: true}},
		{"error", &stubExtractor{strategy: constants.StrategyAI, err: errors.New("bad json")}},
		{"panic", &stubExtractor{strategy: constants.StrategyAI, panicMsg: "boom"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rulesX := &countingRules{Extractor: rules.NewExtractor(quietLogger())}
			var primary extract.FieldExtractor
			if tt.ai != nil {
				primary = tt.ai
			}
			p := NewProcessor(quietLogger(), nil, nil, nil, nil, nil, primary, rulesX)
			out := p.Extract(context.Background(), extract.ExtractRequest{Text: acmeText})

			require.NoError(t, out.Err)
			require.NotNil(t, out.Bundle)
			assert.Equal(t, constants.StrategyRules, out.Strategy)
			assert.Equal(t, int32(1), rulesX.calls.Load())
			if tt.ai != nil && tt.ai.unavailable {
				assert.Equal(t, int32(0), tt.ai.calls.Load())
			}
		})
	}
}

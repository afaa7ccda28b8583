package preferences

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/jonathan/taskhub/internal/catalog"
	"github.com/jonathan/taskhub/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// failingPersistence returns errors on demand.
type failingPersistence struct {
	loadErr error
	saveErr error
	saves   int
}

func (f *failingPersistence) Load(_ context.Context, _ string) (string, bool, error) {
	return "", false, f.loadErr
}

func (f *failingPersistence) Save(_ context.Context, _, _ string) error {
	f.saves++
	return f.saveErr
}

func TestNew_EmptyPersistenceUsesDefaults(t *testing.T) {
	s := New(context.Background(), NewMemoryPersistence(), nil)

	for _, task := range types.AllTasks {
		assert.Equal(t, catalog.TaskDefault(task), s.Get(task))
	}
}

func TestNew_MalformedSnapshotFallsBack(t *testing.T) {
	tests := []struct {
		name  string
		value string
	}{
		{name: "not json", value: "{{{"},
		{name: "array", value: `["gpt-4o"]`},
		{name: "wrong value types", value: `{"resume_analysis": 42}`},
		{name: "empty string", value: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewMemoryPersistence()
			require.NoError(t, p.Save(context.Background(), StorageKey, tt.value))

			s := New(context.Background(), p, nil)
			assert.Equal(t, Defaults(), s.Snapshot())
		})
	}
}

func TestNew_LoadErrorFallsBack(t *testing.T) {
	s := New(context.Background(), &failingPersistence{loadErr: errors.New("disk gone")}, nil)
	assert.Equal(t, Defaults(), s.Snapshot())
	assert.Error(t, s.LoadErr())
}

// flakyPersistence fails the first failLoads reads, then delegates to a memory store.
type flakyPersistence struct {
	*MemoryPersistence
	failLoads int
}

func (f *flakyPersistence) Load(ctx context.Context, key string) (string, bool, error) {
	if f.failLoads > 0 {
		f.failLoads--
		return "", false, errors.New("connection reset")
	}
	return f.MemoryPersistence.Load(ctx, key)
}

func TestSet_ReloadsAfterFailedLoad(t *testing.T) {
	ctx := context.Background()
	p := &flakyPersistence{MemoryPersistence: NewMemoryPersistence(), failLoads: 1}
	require.NoError(t, p.Save(ctx, StorageKey, `{"resume_analysis":"claude-3-opus","custom_prompt":"claude-3-opus"}`))

	s := New(ctx, p, nil)
	require.Error(t, s.LoadErr())
	assert.Equal(t, catalog.TaskDefault(types.TaskResumeAnalysis), s.Get(types.TaskResumeAnalysis))

	require.NoError(t, s.Set(ctx, types.TaskSentimentAnalysis, "gpt-4o"))
	assert.NoError(t, s.LoadErr())
	assert.Equal(t, "claude-3-opus", s.Get(types.TaskResumeAnalysis))

	raw, _, err := p.MemoryPersistence.Load(ctx, StorageKey)
	require.NoError(t, err)
	var saved map[string]string
	require.NoError(t, json.Unmarshal([]byte(raw), &saved))
	assert.Equal(t, "claude-3-opus", saved["resume_analysis"])
	assert.Equal(t, "claude-3-opus", saved["custom_prompt"])
	assert.Equal(t, "gpt-4o", saved["sentiment_analysis"])
}

func TestSet_RefusesToWriteWhileUnreadable(t *testing.T) {
	ctx := context.Background()
	p := &flakyPersistence{MemoryPersistence: NewMemoryPersistence(), failLoads: 2}
	require.NoError(t, p.Save(ctx, StorageKey, `{"resume_analysis":"claude-3-opus"}`))

	s := New(ctx, p, nil)
	assert.Error(t, s.Set(ctx, types.TaskSentimentAnalysis, "gpt-4o"))

	raw, _, err := p.MemoryPersistence.Load(ctx, StorageKey)
	require.NoError(t, err)
	assert.JSONEq(t, `{"resume_analysis":"claude-3-opus"}`, raw)
	assert.Equal(t, catalog.TaskDefault(types.TaskSentimentAnalysis), s.Get(types.TaskSentimentAnalysis))
}

func TestNew_PartialSnapshotKeepsDefaultsForMissing(t *testing.T) {
	p := NewMemoryPersistence()
	require.NoError(t, p.Save(context.Background(), StorageKey,
		`{"sentiment_analysis":"gpt-4o","unknown_task":"gpt-4o","custom_prompt":"retired-model"}`))

	s := New(context.Background(), p, nil)

	assert.Equal(t, "gpt-4o", s.Get(types.TaskSentimentAnalysis))
	assert.Equal(t, catalog.TaskDefault(types.TaskCustomPrompt), s.Get(types.TaskCustomPrompt))
	assert.Equal(t, catalog.TaskDefault(types.TaskResumeAnalysis), s.Get(types.TaskResumeAnalysis))
	assert.Len(t, s.Snapshot(), len(types.AllTasks))
}

func TestSet_ThenGet(t *testing.T) {
	ctx := context.Background()
	s := New(ctx, NewMemoryPersistence(), nil)

	for _, task := range types.AllTasks {
		for _, m := range catalog.Default().All() {
			require.NoError(t, s.Set(ctx, task, m.ID))
			assert.Equal(t, m.ID, s.Get(task))
		}
	}
}

func TestSet_WritesFullSnapshot(t *testing.T) {
	ctx := context.Background()
	p := NewMemoryPersistence()
	s := New(ctx, p, nil)

	require.NoError(t, s.Set(ctx, types.TaskCustomPrompt, "claude-3-opus"))

	raw, found, err := p.Load(ctx, StorageKey)
	require.NoError(t, err)
	require.True(t, found)

	var stored map[string]string
	require.NoError(t, json.Unmarshal([]byte(raw), &stored))
	assert.Len(t, stored, len(types.AllTasks))
	assert.Equal(t, "claude-3-opus", stored["custom_prompt"])
}

func TestSet_RoundTripThroughPersistence(t *testing.T) {
	ctx := context.Background()
	p := NewMemoryPersistence()
	s := New(ctx, p, nil)

	require.NoError(t, s.Set(ctx, types.TaskResumeAnalysis, "claude-3-opus"))
	require.NoError(t, s.Set(ctx, types.TaskTextSummarization, "gemini-1.5-flash"))

	reloaded := New(ctx, p, nil)
	assert.Equal(t, s.Snapshot(), reloaded.Snapshot())
}

func TestSet_RejectsUnknownTaskAndModel(t *testing.T) {
	ctx := context.Background()
	p := &failingPersistence{}
	s := New(ctx, p, nil)

	err := s.Set(ctx, types.TaskType("translation"), "gpt-4o")
	var taskErr *ErrUnknownTask
	assert.ErrorAs(t, err, &taskErr)

	err = s.Set(ctx, types.TaskCustomPrompt, "no-such-model")
	var modelErr *ErrUnknownModel
	assert.ErrorAs(t, err, &modelErr)

	assert.Equal(t, 0, p.saves, "rejected updates must not write")
}

func TestSet_SaveFailureKeepsPreviousSelection(t *testing.T) {
	ctx := context.Background()
	p := &failingPersistence{saveErr: errors.New("quota exceeded")}
	s := New(ctx, p, nil)
	before := s.Get(types.TaskCustomPrompt)

	err := s.Set(ctx, types.TaskCustomPrompt, "claude-3-opus")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")
	assert.Equal(t, before, s.Get(types.TaskCustomPrompt))
}

func TestReset(t *testing.T) {
	ctx := context.Background()
	p := NewMemoryPersistence()
	s := New(ctx, p, nil)
	require.NoError(t, s.Set(ctx, types.TaskObjectDetection, "gemini-1.5-pro"))

	require.NoError(t, s.Reset(ctx))
	assert.Equal(t, Defaults(), s.Snapshot())
	assert.Equal(t, Defaults(), New(ctx, p, nil).Snapshot())
}

func TestModel(t *testing.T) {
	s := New(context.Background(), nil, nil)
	m, ok := s.Model(types.TaskSentimentAnalysis)
	require.True(t, ok)
	assert.Equal(t, catalog.TaskDefault(types.TaskSentimentAnalysis), m.ID)
}

func TestSnapshot_IsCopy(t *testing.T) {
	s := New(context.Background(), nil, nil)
	snap := s.Snapshot()
	snap[types.TaskCustomPrompt] = "tampered"
	assert.NotEqual(t, "tampered", s.Get(types.TaskCustomPrompt))
}

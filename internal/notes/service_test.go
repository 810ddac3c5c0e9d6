package notes_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/giyikalim/smart-notes/internal/ai"
	"github.com/giyikalim/smart-notes/internal/apperr"
	"github.com/giyikalim/smart-notes/internal/models"
	"github.com/giyikalim/smart-notes/internal/notes"
	"github.com/giyikalim/smart-notes/internal/query"
	"github.com/giyikalim/smart-notes/internal/testutil"
)

const (
	meeting  = "Toplantı notları. Proje takvimi gözden geçirildi ve yeni hedefler belirlendi."
	shopping = "Alışveriş listesi: süt, ekmek ve peynir alınacak."
)

type recorder struct {
	mu     sync.Mutex
	events []notes.Event
}

func (r *recorder) Publish(e notes.Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func (r *recorder) kinds() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, e := range r.events {
		out = append(out, e.Kind)
	}
	return out
}

type fakeSuggester struct {
	sug *ai.Suggestion
	err error
}

func (f fakeSuggester) Suggest(context.Context, string) (*ai.Suggestion, error) {
	return f.sug, f.err
}

func str(s string) *string { return &s }

func create(t *testing.T, svc *notes.Service, in notes.CreateInput) *models.Note {
	t.Helper()
	n, err := svc.Create(context.Background(), in)
	require.NoError(t, err)
	return n
}

func TestCreateAndGet(t *testing.T) {
	clock := testutil.NewClock()
	svc := testutil.TestService(t, clock)
	ctx := context.Background()

	n := create(t, svc, notes.CreateInput{OwnerID: "u1", Content: meeting})
	assert.NotEmpty(t, n.StoreID)
	assert.True(t, strings.HasPrefix(n.ID, "note_"))
	assert.Equal(t, "Toplantı notları", n.Title)
	assert.Equal(t, models.ProvenanceDerived, models.ProvenanceOf(n))

	byStore, err := svc.Get(ctx, "u1", n.StoreID)
	require.NoError(t, err)
	byApp, err := svc.Get(ctx, "u1", n.ID)
	require.NoError(t, err)

	for _, got := range []*models.Note{byStore, byApp} {
		assert.Equal(t, n.StoreID, got.StoreID)
		assert.Equal(t, meeting, got.Content)
		assert.Equal(t, "u1", got.OwnerID)
		assert.True(t, got.ExpiresAt.Equal(testutil.Epoch.AddDate(0, 3, 0)))
		assert.False(t, got.IsExpired)
		assert.NotNil(t, got.Keywords)
		assert.Nil(t, got.Metadata.AIMetadata)
	}
}

func TestCreateValidation(t *testing.T) {
	svc := testutil.TestService(t, testutil.NewClock())
	ctx := context.Background()

	_, err := svc.Create(ctx, notes.CreateInput{OwnerID: "u1", Content: "   "})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = svc.Create(ctx, notes.CreateInput{Content: meeting})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestCreateWithSuggestion(t *testing.T) {
	svc := testutil.TestService(t, testutil.NewClock())
	sug := &ai.Suggestion{Title: "Proje toplantısı", Summary: "Takvim gözden geçirildi", Language: "tr", WordCount: 10}

	accepted := create(t, svc, notes.CreateInput{OwnerID: "u1", Content: meeting, Suggestion: sug})
	assert.Equal(t, "Proje toplantısı", accepted.Title)
	assert.Equal(t, 10, accepted.Metadata.WordCount)
	require.NotNil(t, accepted.Metadata.AIMetadata)
	assert.True(t, accepted.Metadata.AIMetadata.IsAISuggested)
	assert.False(t, accepted.Metadata.AIMetadata.UserEdited)
	assert.Equal(t, models.ProvenanceAISuggested, models.ProvenanceOf(accepted))

	overridden := create(t, svc, notes.CreateInput{OwnerID: "u1", Content: meeting, Title: "Benim başlığım", Suggestion: sug})
	assert.Equal(t, "Benim başlığım", overridden.Title)
	assert.Equal(t, "Takvim gözden geçirildi", overridden.Summary)
	require.NotNil(t, overridden.Metadata.AIMetadata)
	assert.True(t, overridden.Metadata.AIMetadata.UserEdited)
	assert.NotNil(t, overridden.Metadata.AIMetadata.EditedAt)
	assert.Equal(t, models.ProvenanceAIEdited, models.ProvenanceOf(overridden))
}

func TestUpdateDivergenceIsMonotonic(t *testing.T) {
	svc := testutil.TestService(t, testutil.NewClock())
	ctx := context.Background()
	n := create(t, svc, notes.CreateInput{
		OwnerID:    "u1",
		Content:    meeting,
		Suggestion: &ai.Suggestion{Title: "New", Summary: "Özet"},
	})

	same, err := svc.Update(ctx, "u1", n.StoreID, notes.Patch{Title: str("New")})
	require.NoError(t, err)
	assert.False(t, same.Metadata.AIMetadata.UserEdited)
	assert.NotNil(t, same.Metadata.LastEdited)

	diff, err := svc.Update(ctx, "u1", n.StoreID, notes.Patch{Title: str("Different")})
	require.NoError(t, err)
	assert.Equal(t, "Different", diff.Title)
	assert.True(t, diff.Metadata.AIMetadata.UserEdited)
	assert.Equal(t, "New", diff.Metadata.AIMetadata.SuggestedTitle)

	back, err := svc.Update(ctx, "u1", n.StoreID, notes.Patch{Title: str("New")})
	require.NoError(t, err)
	assert.True(t, back.Metadata.AIMetadata.UserEdited)
}

func TestUpdateIgnoresFieldsTheAILeftEmpty(t *testing.T) {
	svc := testutil.TestService(t, testutil.NewClock())
	ctx := context.Background()
	n := create(t, svc, notes.CreateInput{
		OwnerID:    "u1",
		Content:    meeting,
		Summary:    "Kendi özetim",
		Suggestion: &ai.Suggestion{Title: "New"},
	})
	require.NotNil(t, n.Metadata.AIMetadata)
	assert.Empty(t, n.Metadata.AIMetadata.SuggestedSummary)
	assert.Equal(t, "Kendi özetim", n.Summary)
	assert.False(t, n.Metadata.AIMetadata.UserEdited)

	got, err := svc.Update(ctx, "u1", n.ID, notes.Patch{Title: str("New")})
	require.NoError(t, err)
	assert.False(t, got.Metadata.AIMetadata.UserEdited)
	assert.Equal(t, models.ProvenanceAISuggested, models.ProvenanceOf(got))

	got, err = svc.Update(ctx, "u1", n.ID, notes.Patch{Title: str("Başka")})
	require.NoError(t, err)
	assert.True(t, got.Metadata.AIMetadata.UserEdited)
}

func TestUpdateContentRederives(t *testing.T) {
	svc := testutil.TestService(t, testutil.NewClock())
	ctx := context.Background()
	n := create(t, svc, notes.CreateInput{OwnerID: "u1", Content: meeting})

	got, err := svc.Update(ctx, "u1", n.ID, notes.Patch{Content: str(shopping)})
	require.NoError(t, err)
	assert.Equal(t, shopping, got.Content)
	assert.Equal(t, svc.Analyzer().Title(shopping), got.Title)
	assert.Equal(t, svc.Analyzer().Summary(shopping), got.Summary)
	assert.Equal(t, svc.Analyzer().Keywords(shopping), got.Keywords)
	assert.Equal(t, 7, got.Metadata.WordCount)
	assert.Nil(t, got.Metadata.AIMetadata)

	kept, err := svc.Update(ctx, "u1", n.ID, notes.Patch{Content: str(meeting), Title: str("Elle")})
	require.NoError(t, err)
	assert.Equal(t, "Elle", kept.Title)
}

func TestUpdateValidation(t *testing.T) {
	svc := testutil.TestService(t, testutil.NewClock())
	ctx := context.Background()
	n := create(t, svc, notes.CreateInput{OwnerID: "u1", Content: meeting})

	_, err := svc.Update(ctx, "u1", n.StoreID, notes.Patch{})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = svc.Update(ctx, "u1", n.StoreID, notes.Patch{Content: str(" ")})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestOwnerIsolation(t *testing.T) {
	svc := testutil.TestService(t, testutil.NewClock())
	ctx := context.Background()
	n := create(t, svc, notes.CreateInput{OwnerID: "u1", Content: meeting})

	_, err := svc.Get(ctx, "u2", n.StoreID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = svc.Get(ctx, "u2", n.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = svc.Update(ctx, "u2", n.StoreID, notes.Patch{Title: str("x")})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, "u2", n.StoreID), apperr.ErrNotFound)

	page, err := svc.List(ctx, "u2", 1, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, page.Total)
}

func TestExpirySweepAndExtend(t *testing.T) {
	clock := testutil.NewClock()
	events := &recorder{}
	svc := testutil.TestService(t, clock, notes.WithPublisher(events))
	ctx := context.Background()
	n := create(t, svc, notes.CreateInput{OwnerID: "u1", Content: meeting})

	clock.Advance(100 * 24 * time.Hour)

	page, err := svc.List(ctx, "u1", 1, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, page.Total)

	got, err := svc.Get(ctx, "u1", n.StoreID)
	require.NoError(t, err)
	assert.True(t, got.IsExpired)

	swept, err := svc.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, swept)

	swept, err = svc.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, swept)

	extended, err := svc.ExtendExpiry(ctx, "u1", n.ID)
	require.NoError(t, err)
	assert.False(t, extended.IsExpired)
	assert.True(t, extended.ExpiresAt.Equal(clock.Now().AddDate(0, 3, 0)))

	page, err = svc.List(ctx, "u1", 1, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)

	assert.Equal(t, []string{notes.EventCreated, notes.EventExpired, notes.EventExtended}, events.kinds())
}

func TestDelete(t *testing.T) {
	svc := testutil.TestService(t, testutil.NewClock())
	ctx := context.Background()
	n := create(t, svc, notes.CreateInput{OwnerID: "u1", Content: meeting})

	require.NoError(t, svc.Delete(ctx, "u1", n.ID))
	_, err := svc.Get(ctx, "u1", n.StoreID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, "u1", n.StoreID), apperr.ErrNotFound)
}

func TestListAndSearch(t *testing.T) {
	clock := testutil.NewClock()
	svc := testutil.TestService(t, clock)
	ctx := context.Background()

	first := create(t, svc, notes.CreateInput{OwnerID: "u1", Content: meeting})
	clock.Advance(time.Minute)
	second := create(t, svc, notes.CreateInput{OwnerID: "u1", Content: shopping, Language: "en"})
	create(t, svc, notes.CreateInput{OwnerID: "u2", Content: meeting})

	page, err := svc.List(ctx, "u1", 1, 0)
	require.NoError(t, err)
	require.Len(t, page.Notes, 2)
	assert.Equal(t, second.ID, page.Notes[0].ID)
	assert.Equal(t, query.DefaultListSize, page.PageSize)

	found, err := svc.Search(ctx, "u1", "proje", 1, 0)
	require.NoError(t, err)
	require.Len(t, found.Notes, 1)
	assert.Equal(t, first.ID, found.Notes[0].ID)
	assert.Greater(t, found.Notes[0].RelevanceScore, 0.0)
	assert.NotEmpty(t, found.Notes[0].Highlight["content"])

	blank, err := svc.Search(ctx, "u1", "  ", 1, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, blank.Total)

	english, err := svc.ListByLanguage(ctx, "u1", "en", 1, 0)
	require.NoError(t, err)
	require.Len(t, english.Notes, 1)
	assert.Equal(t, second.ID, english.Notes[0].ID)

	_, err = svc.ListByLanguage(ctx, "u1", "", 1, 0)
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestAIListings(t *testing.T) {
	svc := testutil.TestService(t, testutil.NewClock())
	ctx := context.Background()
	sug := &ai.Suggestion{Title: "Öneri", Summary: "Özet"}

	create(t, svc, notes.CreateInput{OwnerID: "u1", Content: meeting})
	plain := create(t, svc, notes.CreateInput{OwnerID: "u1", Content: meeting, Suggestion: sug})
	edited := create(t, svc, notes.CreateInput{OwnerID: "u1", Content: meeting, Suggestion: sug, Title: "Başka"})

	flagged, err := svc.ListAIFlagged(ctx, "u1", 1, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, flagged.Total)

	userEdited, err := svc.ListUserEdited(ctx, "u1", 1, 0)
	require.NoError(t, err)
	require.Len(t, userEdited.Notes, 1)
	assert.Equal(t, edited.ID, userEdited.Notes[0].ID)
	assert.NotEqual(t, plain.ID, userEdited.Notes[0].ID)
}

func TestStats(t *testing.T) {
	clock := testutil.NewClock()
	svc := testutil.TestService(t, clock)
	ctx := context.Background()

	create(t, svc, notes.CreateInput{OwnerID: "u1", Content: meeting, Suggestion: &ai.Suggestion{Title: "A"}})
	create(t, svc, notes.CreateInput{OwnerID: "u1", Content: shopping})
	clock.Advance(100 * 24 * time.Hour)
	latest := create(t, svc, notes.CreateInput{OwnerID: "u1", Content: shopping})
	_, err := svc.SweepExpired(ctx)
	require.NoError(t, err)

	st, err := svc.Stats(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 3, st.TotalNotes)
	assert.Equal(t, 1, st.ActiveNotes)
	assert.Equal(t, 2, st.ExpiredNotes)
	assert.Equal(t, 1, st.AIGeneratedNotes)
	assert.Equal(t, 0, st.UserEditedNotes)
	assert.Greater(t, st.AvgWordsPerNote, 0.0)
	assert.True(t, st.LastUpdated.Equal(latest.CreatedAt))

	empty, err := svc.Stats(ctx, "nobody")
	require.NoError(t, err)
	assert.Equal(t, 0, empty.TotalNotes)
	assert.True(t, empty.LastUpdated.Equal(clock.Now()))
}

func TestResetToAI(t *testing.T) {
	svc := testutil.TestService(t, testutil.NewClock())
	ctx := context.Background()
	n := create(t, svc, notes.CreateInput{
		OwnerID:    "u1",
		Content:    meeting,
		Suggestion: &ai.Suggestion{Title: "Öneri", Summary: "Özet"},
	})
	_, err := svc.Update(ctx, "u1", n.StoreID, notes.Patch{Title: str("Başka"), Summary: str("Farklı")})
	require.NoError(t, err)

	reset, err := svc.ResetToAI(ctx, "u1", n.StoreID, []string{notes.ResetTitle})
	require.NoError(t, err)
	assert.Equal(t, "Öneri", reset.Title)
	assert.Equal(t, "Farklı", reset.Summary)
	assert.True(t, reset.Metadata.AIMetadata.UserEdited)

	_, err = svc.ResetToAI(ctx, "u1", n.StoreID, []string{"keywords"})
	assert.ErrorIs(t, err, apperr.ErrValidation)
	_, err = svc.ResetToAI(ctx, "u1", n.StoreID, []string{notes.ResetContent})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	plain := create(t, svc, notes.CreateInput{OwnerID: "u1", Content: meeting})
	_, err = svc.ResetToAI(ctx, "u1", plain.StoreID, nil)
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestSuggest(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		want := &ai.Suggestion{Title: "Başlık", Summary: "Özet"}
		svc := testutil.TestService(t, testutil.NewClock(), notes.WithSuggester(fakeSuggester{sug: want}))
		got, err := svc.Suggest(ctx, meeting)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("fallback on error", func(t *testing.T) {
		failing := fakeSuggester{err: &apperr.AIServiceError{Message: "quota exceeded"}}
		svc := testutil.TestService(t, testutil.NewClock(), notes.WithSuggester(failing))
		got, err := svc.Suggest(ctx, meeting)
		require.NoError(t, err)
		assert.True(t, got.Fallback)
		assert.Contains(t, got.Error, "quota exceeded")
		assert.Equal(t, "Toplantı notları", got.Title)
		assert.Equal(t, meeting, got.Summary)
		assert.Equal(t, "tr", got.Language)
		assert.Equal(t, 10, got.WordCount)
	})

	t.Run("no suggester", func(t *testing.T) {
		svc := testutil.TestService(t, testutil.NewClock())
		got, err := svc.Suggest(ctx, strings.Repeat("uzun ", 60))
		require.NoError(t, err)
		assert.True(t, got.Fallback)
		assert.Empty(t, got.Error)
		assert.True(t, strings.HasSuffix(got.Title, "..."))
	})

	t.Run("blank", func(t *testing.T) {
		svc := testutil.TestService(t, testutil.NewClock())
		_, err := svc.Suggest(ctx, " ")
		assert.True(t, errors.Is(err, apperr.ErrValidation))
	})
}

package lectures

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ar-classroom/backend/internal/models"
	"github.com/ar-classroom/backend/pkg/docstore"
	"github.com/ar-classroom/backend/pkg/gateway"
	"github.com/ar-classroom/backend/pkg/upload"
)

const lecturesColl = "lecture-entries"

// countingStore records writes on top of the in-memory store.
type countingStore struct {
	*docstore.Memory
	mu      sync.Mutex
	inserts int
	updates int
}

func (s *countingStore) Insert(ctx context.Context, collection string, doc any) error {
	s.mu.Lock()
	s.inserts++
	s.mu.Unlock()
	return s.Memory.Insert(ctx, collection, doc)
}

func (s *countingStore) UpdateOne(ctx context.Context, collection string, filter docstore.Filter, set docstore.Fields) (int64, error) {
	s.mu.Lock()
	s.updates++
	s.mu.Unlock()
	return s.Memory.UpdateOne(ctx, collection, filter, set)
}

func (s *countingStore) writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inserts + s.updates
}

type fakeGateway struct {
	mu sync.Mutex

	transcript    string
	transcribeErr error
	summary       string
	summaryErr    error
	questions     []gateway.QA
	questionsErr  error

	transcribed [][]byte
	mimeTypes   []string
	summarized  []string
	asked       []string
	counts      []int
}

func (g *fakeGateway) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := ctx.Deadline(); !ok {
		return "", errors.New("gateway call without deadline")
	}
	g.transcribed = append(g.transcribed, audio)
	g.mimeTypes = append(g.mimeTypes, mimeType)
	return g.transcript, g.transcribeErr
}

func (g *fakeGateway) Summarize(_ context.Context, transcript string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.summarized = append(g.summarized, transcript)
	return g.summary, g.summaryErr
}

func (g *fakeGateway) GenerateQuestions(_ context.Context, transcript string, count int) ([]gateway.QA, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.asked = append(g.asked, transcript)
	g.counts = append(g.counts, count)
	return g.questions, g.questionsErr
}

func newTestService(t *testing.T, policy Policy) (*Service, *countingStore, *fakeGateway) {
	t.Helper()
	store := &countingStore{Memory: docstore.NewMemory()}
	gw := &fakeGateway{transcript: "today we discuss entropy"}
	svc := NewService(store, gw, Config{Policy: policy, GatewayTimeout: time.Second}, nil)
	return svc, store, gw
}

func getSession(t *testing.T, store docstore.Store, sessionID string) models.LectureSession {
	t.Helper()
	var s models.LectureSession
	require.NoError(t, store.FindOne(context.Background(), lecturesColl, docstore.Filter{models.FieldSessionID: sessionID}, &s))
	return s
}

func wav(data string) *upload.File {
	return &upload.File{Name: "chunk.wav", ContentType: "audio/wav", Data: []byte(data)}
}

func png(data string) *upload.File {
	return &upload.File{Name: "slide.png", ContentType: "image/png", Data: []byte(data)}
}

func TestStartCreatesActiveSession(t *testing.T) {
	svc, store, _ := newTestService(t, PolicyAllowMultiple)
	fixed := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	id, err := svc.Start(context.Background(), "u1")
	require.NoError(t, err)
	require.NotEmpty(t, id)

	s := getSession(t, store, id)
	assert.Equal(t, "u1", s.OwnerID)
	assert.True(t, s.IsActive)
	assert.Nil(t, s.EndTime)
	assert.Nil(t, s.Transcript)
	assert.True(t, fixed.Equal(s.StartTime))
}

func TestStartRequiresOwner(t *testing.T) {
	svc, store, _ := newTestService(t, PolicyAllowMultiple)

	_, err := svc.Start(context.Background(), "")
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Zero(t, store.writes())
}

func TestStartIssuesUniqueIDs(t *testing.T) {
	svc, _, _ := newTestService(t, PolicyAllowMultiple)
	ctx := context.Background()

	seen := make(map[string]struct{})
	for i := 0; i < 200; i++ {
		id, err := svc.Start(ctx, "u1")
		require.NoError(t, err)
		_, dup := seen[id]
		require.False(t, dup, "duplicate session id %s", id)
		seen[id] = struct{}{}
	}
}

func TestStartRecordsUser(t *testing.T) {
	svc, store, _ := newTestService(t, PolicyAllowMultiple)
	ctx := context.Background()
	first := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return first }
	_, err := svc.Start(ctx, "u1")
	require.NoError(t, err)

	later := first.Add(time.Hour)
	svc.now = func() time.Time { return later }
	_, err = svc.Start(ctx, "u1")
	require.NoError(t, err)

	var user models.User
	require.NoError(t, store.FindOne(ctx, "user-entries", docstore.Filter{models.FieldOwnerID: "u1"}, &user))
	assert.True(t, first.Equal(user.CreatedAt))
	assert.True(t, later.Equal(user.LastSeen))
}

func TestUpdateUnknownSessionIsNotFound(t *testing.T) {
	svc, store, gw := newTestService(t, PolicyAllowMultiple)
	ctx := context.Background()
	id, err := svc.Start(ctx, "u1")
	require.NoError(t, err)
	before := store.writes()

	tests := []struct {
		name string
		req  UpdateRequest
	}{
		{"unknown session", UpdateRequest{OwnerID: "u1", SessionID: "nope", Image: png("x")}},
		{"wrong owner", UpdateRequest{OwnerID: "u2", SessionID: id, Audio: wav("a")}},
		{"bad audio on unknown session", UpdateRequest{OwnerID: "u1", SessionID: "nope", Audio: &upload.File{Name: "a.mp3"}}},
		{"no payload", UpdateRequest{OwnerID: "u2", SessionID: id}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.Update(ctx, tt.req)
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
	assert.Equal(t, before, store.writes())
	assert.Empty(t, gw.transcribed)
}

func TestUpdateInactiveSessionIsNotFound(t *testing.T) {
	svc, _, _ := newTestService(t, PolicyAllowMultiple)
	ctx := context.Background()
	id, err := svc.Start(ctx, "u1")
	require.NoError(t, err)
	require.NoError(t, svc.End(ctx, "u1", ""))

	err = svc.Update(ctx, UpdateRequest{OwnerID: "u1", SessionID: id, Image: png("x")})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateRejectsNonWavAudioWithoutWriting(t *testing.T) {
	svc, store, gw := newTestService(t, PolicyAllowMultiple)
	ctx := context.Background()
	id, err := svc.Start(ctx, "u1")
	require.NoError(t, err)
	before := store.writes()

	err = svc.Update(ctx, UpdateRequest{
		OwnerID:   "u1",
		SessionID: id,
		Audio:     &upload.File{Name: "chunk.mp3", Data: []byte("id3")},
		Image:     png("slide"),
	})
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Equal(t, before, store.writes())
	assert.Empty(t, gw.transcribed)
	assert.Nil(t, getSession(t, store, id).ImageData)
}

func TestUpdateStoresTranscriptAndImage(t *testing.T) {
	svc, store, gw := newTestService(t, PolicyAllowMultiple)
	ctx := context.Background()
	id, err := svc.Start(ctx, "u1")
	require.NoError(t, err)

	require.NoError(t, svc.Update(ctx, UpdateRequest{OwnerID: "u1", SessionID: id, Audio: wav("RIFF1"), Image: png("img-1")}))

	s := getSession(t, store, id)
	require.NotNil(t, s.Transcript)
	assert.Equal(t, "today we discuss entropy", *s.Transcript)
	assert.Equal(t, []byte("img-1"), s.ImageData)
	assert.Equal(t, [][]byte{[]byte("RIFF1")}, gw.transcribed)
	assert.Equal(t, []string{"audio/wav"}, gw.mimeTypes)

	// Later updates overwrite.
	gw.transcript = "second chunk"
	require.NoError(t, svc.Update(ctx, UpdateRequest{OwnerID: "u1", SessionID: id, Audio: wav("RIFF2")}))
	require.NoError(t, svc.Update(ctx, UpdateRequest{OwnerID: "u1", SessionID: id, Image: png("img-2")}))

	s = getSession(t, store, id)
	assert.Equal(t, "second chunk", *s.Transcript)
	assert.Equal(t, []byte("img-2"), s.ImageData)
}

func TestUpdateGatewayFailureKeepsTranscript(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"error-shaped reply", gateway.ErrTranscription},
		{"transport failure", errors.New("connection refused")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store, gw := newTestService(t, PolicyAllowMultiple)
			ctx := context.Background()
			id, err := svc.Start(ctx, "u1")
			require.NoError(t, err)
			require.NoError(t, svc.Update(ctx, UpdateRequest{OwnerID: "u1", SessionID: id, Audio: wav("ok")}))

			gw.transcribeErr = tt.err
			gw.transcript = ""
			writes := store.writes()
			require.NoError(t, svc.Update(ctx, UpdateRequest{OwnerID: "u1", SessionID: id, Audio: wav("bad")}))

			assert.Equal(t, writes, store.writes(), "nothing to write")
			s := getSession(t, store, id)
			assert.Equal(t, "today we discuss entropy", s.TranscriptText())
		})
	}
}

func TestUpdateGatewayFailureStillStoresImage(t *testing.T) {
	svc, store, gw := newTestService(t, PolicyAllowMultiple)
	ctx := context.Background()
	gw.transcribeErr = gateway.ErrTranscription
	id, err := svc.Start(ctx, "u1")
	require.NoError(t, err)

	require.NoError(t, svc.Update(ctx, UpdateRequest{OwnerID: "u1", SessionID: id, Audio: wav("a"), Image: png("img")}))

	s := getSession(t, store, id)
	assert.Nil(t, s.Transcript)
	assert.Equal(t, []byte("img"), s.ImageData)
}

func TestUpdateWithoutPayloadDoesNotWrite(t *testing.T) {
	svc, store, _ := newTestService(t, PolicyAllowMultiple)
	ctx := context.Background()
	id, err := svc.Start(ctx, "u1")
	require.NoError(t, err)
	writes := store.writes()

	require.NoError(t, svc.Update(ctx, UpdateRequest{OwnerID: "u1", SessionID: id}))
	assert.Equal(t, writes, store.writes())
}

func TestEndLifecycle(t *testing.T) {
	svc, store, _ := newTestService(t, PolicyAllowMultiple)
	ctx := context.Background()

	err := svc.End(ctx, "u1", "")
	assert.ErrorIs(t, err, ErrNotFound, "no session yet")

	id, err := svc.Start(ctx, "u1")
	require.NoError(t, err)
	require.NoError(t, svc.End(ctx, "u1", ""))

	s := getSession(t, store, id)
	assert.False(t, s.IsActive)
	require.NotNil(t, s.EndTime)

	err = svc.End(ctx, "u1", "")
	assert.ErrorIs(t, err, ErrNotFound, "second end")
}

func TestScenarioStartUpdateEndUpdate(t *testing.T) {
	svc, store, _ := newTestService(t, PolicyAllowMultiple)
	ctx := context.Background()
	img := []byte{0x89, 'P', 'N', 'G', 0x00, 0x01}

	id, err := svc.Start(ctx, "u1")
	require.NoError(t, err)
	require.NoError(t, svc.Update(ctx, UpdateRequest{OwnerID: "u1", SessionID: id, Image: &upload.File{Name: "s.png", Data: img}}))
	assert.Equal(t, img, getSession(t, store, id).ImageData)

	require.NoError(t, svc.End(ctx, "u1", ""))
	err = svc.Update(ctx, UpdateRequest{OwnerID: "u1", SessionID: id, Image: &upload.File{Name: "s.png", Data: img}})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAllowMultipleEndClosesOne(t *testing.T) {
	svc, store, _ := newTestService(t, PolicyAllowMultiple)
	ctx := context.Background()

	first, err := svc.Start(ctx, "u1")
	require.NoError(t, err)
	second, err := svc.Start(ctx, "u1")
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
	assert.True(t, getSession(t, store, first).IsActive)
	assert.True(t, getSession(t, store, second).IsActive)

	require.NoError(t, svc.End(ctx, "u1", ""))
	active := 0
	for _, id := range []string{first, second} {
		if getSession(t, store, id).IsActive {
			active++
		}
	}
	assert.Equal(t, 1, active)

	require.NoError(t, svc.End(ctx, "u1", ""))
	assert.ErrorIs(t, svc.End(ctx, "u1", ""), ErrNotFound)
}

func TestEndBySessionID(t *testing.T) {
	svc, store, _ := newTestService(t, PolicyAllowMultiple)
	ctx := context.Background()
	first, err := svc.Start(ctx, "u1")
	require.NoError(t, err)
	second, err := svc.Start(ctx, "u1")
	require.NoError(t, err)

	require.NoError(t, svc.End(ctx, "u1", second))
	assert.True(t, getSession(t, store, first).IsActive)
	assert.False(t, getSession(t, store, second).IsActive)

	assert.ErrorIs(t, svc.End(ctx, "u1", second), ErrNotFound)
	assert.ErrorIs(t, svc.End(ctx, "u2", first), ErrNotFound, "other owner")
}

func TestRejectPolicy(t *testing.T) {
	svc, _, _ := newTestService(t, PolicyReject)
	ctx := context.Background()

	_, err := svc.Start(ctx, "u1")
	require.NoError(t, err)
	_, err = svc.Start(ctx, "u1")
	assert.ErrorIs(t, err, ErrActiveSessionExists)

	_, err = svc.Start(ctx, "u2")
	assert.NoError(t, err, "other owners are independent")

	require.NoError(t, svc.End(ctx, "u1", ""))
	_, err = svc.Start(ctx, "u1")
	assert.NoError(t, err)
}

func TestAutoClosePolicy(t *testing.T) {
	svc, store, _ := newTestService(t, PolicyAutoClose)
	ctx := context.Background()

	first, err := svc.Start(ctx, "u1")
	require.NoError(t, err)
	second, err := svc.Start(ctx, "u1")
	require.NoError(t, err)

	closed := getSession(t, store, first)
	assert.False(t, closed.IsActive)
	assert.NotNil(t, closed.EndTime)
	assert.True(t, getSession(t, store, second).IsActive)

	require.NoError(t, svc.End(ctx, "u1", ""))
	assert.False(t, getSession(t, store, second).IsActive)
}

func TestSummaryUsesStoredTranscript(t *testing.T) {
	svc, _, gw := newTestService(t, PolicyAllowMultiple)
	ctx := context.Background()
	gw.summary = "Entropy measures disorder."
	id, err := svc.Start(ctx, "u1")
	require.NoError(t, err)
	require.NoError(t, svc.Update(ctx, UpdateRequest{OwnerID: "u1", SessionID: id, Audio: wav("a")}))

	got, err := svc.Summary(ctx, "u1", id)
	require.NoError(t, err)
	assert.Equal(t, "Entropy measures disorder.", got.Text)
	assert.NotNil(t, got.Slides)
	assert.Empty(t, got.Slides)
	assert.Equal(t, []string{"today we discuss entropy"}, gw.summarized)

	// Still available once the lecture has ended.
	require.NoError(t, svc.End(ctx, "u1", id))
	_, err = svc.Summary(ctx, "u1", id)
	assert.NoError(t, err)
}

func TestSummaryWithoutTranscriptSkipsGateway(t *testing.T) {
	svc, _, gw := newTestService(t, PolicyAllowMultiple)
	ctx := context.Background()
	id, err := svc.Start(ctx, "u1")
	require.NoError(t, err)

	got, err := svc.Summary(ctx, "u1", id)
	require.NoError(t, err)
	assert.Equal(t, "", got.Text)
	assert.Empty(t, gw.summarized)
}

func TestSummaryAndQuestionsNotFound(t *testing.T) {
	svc, _, _ := newTestService(t, PolicyAllowMultiple)
	ctx := context.Background()
	id, err := svc.Start(ctx, "u1")
	require.NoError(t, err)

	_, err = svc.Summary(ctx, "u1", "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = svc.Summary(ctx, "u2", id)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = svc.Questions(ctx, "u1", "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = svc.Questions(ctx, "u2", id)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestQuestionsAfterEnd(t *testing.T) {
	svc, _, gw := newTestService(t, PolicyAllowMultiple)
	ctx := context.Background()
	gw.questions = []gateway.QA{{Question: "What is entropy?", Answer: "Disorder."}}
	id, err := svc.Start(ctx, "u1")
	require.NoError(t, err)
	require.NoError(t, svc.Update(ctx, UpdateRequest{OwnerID: "u1", SessionID: id, Audio: wav("a")}))
	require.NoError(t, svc.End(ctx, "u1", id))

	got, err := svc.Questions(ctx, "u1", id)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "What is entropy?", got[0].Question)
	assert.Equal(t, []string{"today we discuss entropy"}, gw.asked)
}

func TestQuestionsAfterEndWithoutTranscript(t *testing.T) {
	svc, _, gw := newTestService(t, PolicyAllowMultiple)
	ctx := context.Background()
	id, err := svc.Start(ctx, "u1")
	require.NoError(t, err)
	require.NoError(t, svc.End(ctx, "u1", ""))

	got, err := svc.Questions(ctx, "u1", id)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Empty(t, gw.asked)
}

func TestSummaryGatewayFailurePropagates(t *testing.T) {
	svc, _, gw := newTestService(t, PolicyAllowMultiple)
	ctx := context.Background()
	id, err := svc.Start(ctx, "u1")
	require.NoError(t, err)
	require.NoError(t, svc.Update(ctx, UpdateRequest{OwnerID: "u1", SessionID: id, Audio: wav("a")}))
	gw.summaryErr = errors.New("quota exceeded")

	_, err = svc.Summary(ctx, "u1", id)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestQuestions(t *testing.T) {
	svc, _, gw := newTestService(t, PolicyAllowMultiple)
	ctx := context.Background()
	gw.questions = []gateway.QA{
		{Question: "What is entropy?", Answer: "Disorder."},
		{Question: "Why?", Answer: ""},
	}
	id, err := svc.Start(ctx, "u1")
	require.NoError(t, err)

	empty, err := svc.Questions(ctx, "u1", id)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
	assert.Empty(t, gw.asked)

	require.NoError(t, svc.Update(ctx, UpdateRequest{OwnerID: "u1", SessionID: id, Audio: wav("a")}))
	got, err := svc.Questions(ctx, "u1", id)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "What is entropy?", got[0].Question)
	require.NotNil(t, got[0].PreSearchedAnswer)
	assert.Equal(t, "Disorder.", *got[0].PreSearchedAnswer)
	assert.Nil(t, got[1].PreSearchedAnswer)
	assert.Equal(t, []int{3}, gw.counts)

	gw.questionsErr = errors.New("unavailable")
	_, err = svc.Questions(ctx, "u1", id)
	assert.Error(t, err)
}

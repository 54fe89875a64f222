package services

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yoockh/sightline/internal/models"
	"github.com/yoockh/sightline/internal/utils"
)

const (
	visualQuery  = "what is in front of me"
	generalQuery = "who is the prime minister of India"
)

func TestTalk_SeparateUploadsThenVisualQueryConsumesPair(t *testing.T) {
	h := newTalkHarness(t, nil)
	ctx := context.Background()

	ready, err := h.svc.UploadImage(ctx, "dev1", models.TagPrevious, jpegA)
	require.NoError(t, err)
	assert.False(t, ready)
	assert.False(t, h.ready(t, "dev1"))

	ready, err = h.svc.UploadImage(ctx, "dev1", models.TagCurrent, jpegB)
	require.NoError(t, err)
	assert.True(t, ready)
	assert.True(t, h.ready(t, "dev1"))

	out, err := h.svc.Query(ctx, "dev1", visualQuery)
	require.NoError(t, err)
	assert.Equal(t, "There is a chair ahead.\nNext step:\nWalk around it.", out.Reply)
	assert.Equal(t, models.DecisionVisualContext, out.Decision)
	assert.True(t, out.Consumed)
	assert.False(t, out.Fallback)

	assert.False(t, h.ready(t, "dev1"))
	for _, tag := range models.ImageTags {
		_, err := h.store.Get(ctx, "dev1", tag)
		assert.ErrorIs(t, err, utils.ErrNotFound)
	}

	reqs := h.reasoner.requests()
	require.Len(t, reqs, 1)
	imgs := reqs[0].ImageParts()
	require.Len(t, imgs, 2)
	assert.Equal(t, models.TagPrevious, imgs[0].Tag)
	assert.Equal(t, jpegA, imgs[0].Data)
	assert.Equal(t, models.TagCurrent, imgs[1].Tag)
	assert.Equal(t, jpegB, imgs[1].Data)
	assert.Equal(t, "image/jpeg", imgs[0].MIMEType)
	assert.Equal(t, visualQuery, reqs[0].Parts[len(reqs[0].Parts)-1].Text)
	assert.Contains(t, reqs[0].SystemInstruction, "Next step:")

	assert.Equal(t, []models.EventType{models.EventReady, models.EventNotReady, models.EventReply}, h.pub.types())
	require.Len(t, h.logs.queries, 1)
	assert.Equal(t, visualQuery, h.logs.queries[0])
}

func TestTalk_VisualQueryWithoutUploadIsNotReady(t *testing.T) {
	h := newTalkHarness(t, nil)

	out, err := h.svc.Query(context.Background(), "dev1", visualQuery)
	require.NoError(t, err)
	assert.Equal(t, NotReadyReply, out.Reply)
	assert.True(t, out.NotReady)
	assert.False(t, out.Consumed)
	assert.Empty(t, h.reasoner.requests())
}

func TestTalk_GeneralQueryLeavesPairUntouched(t *testing.T) {
	for _, withPair := range []bool{true, false} {
		h := newTalkHarness(t, nil)
		ctx := context.Background()
		if withPair {
			require.NoError(t, h.svc.UploadBatch(ctx, "dev1", models.UploadBatch{Previous: jpegA, Current: jpegB}))
		}
		h.reasoner.reply = "Narendra Modi."

		out, err := h.svc.Query(ctx, "dev1", generalQuery)
		require.NoError(t, err)
		assert.Equal(t, models.DecisionGeneralKnowledge, out.Decision)
		assert.Equal(t, "Narendra Modi.", out.Reply)
		assert.False(t, out.Consumed)

		reqs := h.reasoner.requests()
		require.Len(t, reqs, 1)
		assert.Empty(t, reqs[0].ImageParts())
		assert.Equal(t, generalInstruction, reqs[0].SystemInstruction)

		assert.Equal(t, withPair, h.ready(t, "dev1"))
		if withPair {
			got, err := h.store.Get(ctx, "dev1", models.TagCurrent)
			require.NoError(t, err)
			assert.Equal(t, jpegB, got)
		}
	}
}

func TestTalk_FallbackStillConsumesPair(t *testing.T) {
	h := newTalkHarness(t, nil)
	ctx := context.Background()
	h.reasoner.reply = "I am not able to understand the scene clearly."
	h.reasoner.fallback = true

	require.NoError(t, h.svc.UploadBatch(ctx, "dev1", models.UploadBatch{Previous: jpegA, Current: pngC}))

	out, err := h.svc.Query(ctx, "dev1", visualQuery)
	require.NoError(t, err)
	assert.True(t, out.Fallback)
	assert.True(t, out.Consumed)
	assert.False(t, h.ready(t, "dev1"))

	_, err = h.store.Get(ctx, "dev1", models.TagPrevious)
	assert.ErrorIs(t, err, utils.ErrNotFound)

	imgs := h.reasoner.requests()[0].ImageParts()
	assert.Equal(t, "image/png", imgs[1].MIMEType)
}

func TestTalk_CleanupSurvivesCallerCancellation(t *testing.T) {
	h := newTalkHarness(t, nil)
	require.NoError(t, h.svc.UploadBatch(context.Background(), "dev1", models.UploadBatch{Previous: jpegA, Current: jpegB}))

	ctx, cancel := context.WithCancel(context.Background())
	h.reasoner.onSend = func(context.Context) { cancel() }

	out, err := h.svc.Query(ctx, "dev1", visualQuery)
	require.NoError(t, err)
	assert.True(t, out.Consumed)
	assert.False(t, h.ready(t, "dev1"))
	_, err = h.store.Get(context.Background(), "dev1", models.TagCurrent)
	assert.ErrorIs(t, err, utils.ErrNotFound)
}

func TestTalk_IncompleteBatchIsRejected(t *testing.T) {
	h := newTalkHarness(t, nil)
	ctx := context.Background()

	cases := map[string]models.UploadBatch{
		"missing current":  {Previous: jpegA},
		"missing previous": {Current: jpegB},
		"not an image":     {Previous: jpegA, Current: []byte("hello")},
	}
	for name, b := range cases {
		t.Run(name, func(t *testing.T) {
			err := h.svc.UploadBatch(ctx, "dev1", b)
			require.Error(t, err)
			assert.True(t, utils.IsCode(err, utils.CodeInvalidArgument))
			assert.ErrorIs(t, err, utils.ErrIncompleteUploadBatch)
			assert.False(t, h.ready(t, "dev1"))
		})
	}

	out, err := h.svc.Query(ctx, "dev1", visualQuery)
	require.NoError(t, err)
	assert.True(t, out.NotReady)
	assert.Empty(t, h.reasoner.requests())
}

func TestTalk_DesyncResetsGate(t *testing.T) {
	h := newTalkHarness(t, nil)
	ctx := context.Background()
	require.NoError(t, h.svc.UploadBatch(ctx, "dev1", models.UploadBatch{Previous: jpegA, Current: jpegB}))

	// images vanish behind the controller's back
	require.NoError(t, h.store.DeleteAll(ctx, "dev1"))
	require.True(t, h.ready(t, "dev1"))

	out, err := h.svc.Query(ctx, "dev1", visualQuery)
	require.NoError(t, err)
	assert.Equal(t, NotReadyReply, out.Reply)
	assert.False(t, h.ready(t, "dev1"))
	assert.Empty(t, h.reasoner.requests())
}

func TestTalk_StartCaptureInvalidatesPair(t *testing.T) {
	h := newTalkHarness(t, nil)
	ctx := context.Background()
	require.NoError(t, h.svc.UploadBatch(ctx, "dev1", models.UploadBatch{Previous: jpegA, Current: jpegB}))

	require.NoError(t, h.svc.StartCapture(ctx, "dev1"))
	require.NoError(t, h.svc.StartCapture(ctx, "dev1"))

	assert.False(t, h.ready(t, "dev1"))
	_, err := h.store.Get(ctx, "dev1", models.TagPrevious)
	assert.ErrorIs(t, err, utils.ErrNotFound)
	assert.Equal(t, []models.EventType{
		models.EventReady,
		models.EventBeginCapture, models.EventNotReady,
		models.EventBeginCapture, models.EventNotReady,
	}, h.pub.types())
}

func TestTalk_SessionsAreIsolated(t *testing.T) {
	h := newTalkHarness(t, nil)
	ctx := context.Background()
	require.NoError(t, h.svc.UploadBatch(ctx, "a", models.UploadBatch{Previous: jpegA, Current: jpegB}))

	out, err := h.svc.Query(ctx, "b", visualQuery)
	require.NoError(t, err)
	assert.True(t, out.NotReady)
	assert.True(t, h.ready(t, "a"))
}

func TestTalk_EmptySessionUsesDefault(t *testing.T) {
	h := newTalkHarness(t, nil)
	ctx := context.Background()
	require.NoError(t, h.svc.UploadBatch(ctx, "", models.UploadBatch{Previous: jpegA, Current: jpegB}))
	assert.True(t, h.ready(t, models.DefaultSessionID))

	out, err := h.svc.Query(ctx, "  ", visualQuery)
	require.NoError(t, err)
	assert.Equal(t, models.DefaultSessionID, out.SessionID)
	assert.True(t, out.Consumed)
}

func TestTalk_EmptyQueryIsInvalid(t *testing.T) {
	h := newTalkHarness(t, nil)
	_, err := h.svc.Query(context.Background(), "dev1", "   ")
	assert.True(t, utils.IsCode(err, utils.CodeInvalidArgument))
}

func TestTalk_ConcurrentVisualQueriesConsumeOnce(t *testing.T) {
	h := newTalkHarness(t, nil)
	ctx := context.Background()
	require.NoError(t, h.svc.UploadBatch(ctx, "dev1", models.UploadBatch{Previous: jpegA, Current: jpegB}))

	const n = 8
	replies := make([]*models.TalkReply, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			out, err := h.svc.Query(ctx, "dev1", visualQuery)
			if err == nil {
				replies[i] = out
			}
		}(i)
	}
	wg.Wait()

	consumed, notReady := 0, 0
	for _, r := range replies {
		require.NotNil(t, r)
		if r.Consumed {
			consumed++
		}
		if r.NotReady {
			notReady++
		}
	}
	assert.Equal(t, 1, consumed)
	assert.Equal(t, n-1, notReady)
	assert.Len(t, h.reasoner.requests(), 1)
}

func TestTalk_AlwaysVisualAttachesPairToFactualQuestion(t *testing.T) {
	h := newTalkHarness(t, AlwaysVisual)
	ctx := context.Background()
	require.NoError(t, h.svc.UploadBatch(ctx, "dev1", models.UploadBatch{Previous: jpegA, Current: jpegB}))

	out, err := h.svc.Query(ctx, "dev1", generalQuery)
	require.NoError(t, err)
	assert.Equal(t, models.DecisionVisualContext, out.Decision)
	assert.Len(t, h.reasoner.requests()[0].ImageParts(), 2)
}

func TestTalk_LookalikeSessionIDsDoNotShareImages(t *testing.T) {
	h := newTalkHarness(t, nil)
	ctx := context.Background()

	err := h.svc.UploadBatch(ctx, "dev.1", models.UploadBatch{Previous: jpegA, Current: jpegA})
	assert.True(t, utils.IsCode(err, utils.CodeInvalidArgument))
	require.NoError(t, h.svc.UploadBatch(ctx, "dev_1", models.UploadBatch{Previous: jpegB, Current: jpegB}))

	_, err = h.svc.Query(ctx, "dev.1", visualQuery)
	assert.True(t, utils.IsCode(err, utils.CodeInvalidArgument))
	_, err = h.svc.IsReady(ctx, "dev.1")
	assert.True(t, utils.IsCode(err, utils.CodeInvalidArgument))
	assert.Error(t, h.svc.StartCapture(ctx, "dev.1"))
	_, err = h.svc.UploadImage(ctx, "dev/1", models.TagCurrent, jpegA)
	assert.True(t, utils.IsCode(err, utils.CodeInvalidArgument))
	assert.Empty(t, h.reasoner.requests())

	assert.True(t, h.ready(t, "dev_1"))
	out, err := h.svc.Query(ctx, "dev_1", visualQuery)
	require.NoError(t, err)
	assert.True(t, out.Consumed)
	imgs := h.reasoner.requests()[0].ImageParts()
	require.Len(t, imgs, 2)
	assert.Equal(t, jpegB, imgs[0].Data)
	assert.Equal(t, jpegB, imgs[1].Data)
}

func TestSessionKey(t *testing.T) {
	tests := map[string]string{
		"dev1":      "dev1",
		"  pi-7_a ": "pi-7_a",
		"":          models.DefaultSessionID,
		"   ":       models.DefaultSessionID,
	}
	for in, want := range tests {
		got, err := SessionKey(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}

	for _, bad := range []string{"dev.1", "dev 1", "a/b", "session:1", "ü", strings.Repeat("x", 129)} {
		_, err := SessionKey(bad)
		assert.True(t, utils.IsCode(err, utils.CodeInvalidArgument), bad)
	}
}

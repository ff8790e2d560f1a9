package segmentation

import (
	"context"
	"errors"
	"image"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"pothole-watch/internal/domain/entity"
)

type fakePredictor struct {
	loadErr  error
	pred     Prediction
	predErr  error
	calls    atomic.Int32
	inFlight atomic.Int32
	maxSeen  atomic.Int32
	lastSeen Prompt
	mu       sync.Mutex
	delay    time.Duration
}

func (f *fakePredictor) Load(ctx context.Context) error { return f.loadErr }

func (f *fakePredictor) Predict(ctx context.Context, p Prompt) (Prediction, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		m := f.maxSeen.Load()
		if n <= m || f.maxSeen.CompareAndSwap(m, n) {
			break
		}
	}
	f.calls.Add(1)
	f.mu.Lock()
	f.lastSeen = p
	f.mu.Unlock()
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	return f.pred, f.predErr
}

func fullMask(w, h, n int) entity.Mask {
	m := entity.NewMask(w, h)
	for i := 0; i < n && i < len(m.Bits); i++ {
		m.Bits[i] = true
	}
	return m
}

func startedAdapter(t *testing.T, p Predictor) *Adapter {
	t.Helper()
	a := NewAdapter(p, time.Second)
	a.Start(context.Background())
	<-a.Loaded()
	return a
}

func TestAdapter_NotReadyBeforeStart(t *testing.T) {
	a := NewAdapter(&fakePredictor{}, 0)
	require.False(t, a.Ready())

	_, err := a.Segment(context.Background(), image.NewRGBA(image.Rect(0, 0, 4, 4)), image.Pt(2, 2))
	require.ErrorIs(t, err, entity.ErrModelNotReady)
}

func TestAdapter_LoadFailureKeepsNotReady(t *testing.T) {
	p := &fakePredictor{loadErr: errors.New("checkpoint missing")}
	a := startedAdapter(t, p)
	require.False(t, a.Ready())

	a.Start(context.Background()) // повторный запуск не перезагружает
	_, err := a.Segment(context.Background(), image.NewRGBA(image.Rect(0, 0, 4, 4)), image.Pt(2, 2))
	require.ErrorIs(t, err, entity.ErrModelNotReady)
	require.Zero(t, p.calls.Load())
}

func TestAdapter_SegmentSingleMask(t *testing.T) {
	p := &fakePredictor{pred: Prediction{Masks: []entity.Mask{fullMask(4, 4, 3)}, Scores: []float64{0.82}}}
	a := startedAdapter(t, p)
	require.True(t, a.Ready())

	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	seg, err := a.Segment(context.Background(), img, Center(img))
	require.NoError(t, err)
	require.Equal(t, 0.82, seg.Confidence)
	require.Equal(t, 3, seg.Mask.Count())

	require.Equal(t, image.Pt(2, 2), p.lastSeen.Point)
	require.Equal(t, ForegroundLabel, p.lastSeen.Label)
	require.False(t, p.lastSeen.MultiMask)
}

func TestAdapter_NoDetection(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))

	for name, pred := range map[string]Prediction{
		"no masks":   {},
		"empty mask": {Masks: []entity.Mask{entity.NewMask(4, 4)}, Scores: []float64{0.4}},
		"zero size":  {Masks: []entity.Mask{{}}, Scores: []float64{0.4}},
	} {
		t.Run(name, func(t *testing.T) {
			a := startedAdapter(t, &fakePredictor{pred: pred})
			_, err := a.Segment(context.Background(), img, Center(img))
			require.ErrorIs(t, err, entity.ErrNoDetection)
		})
	}
}

func TestAdapter_Failures(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))

	for name, p := range map[string]*fakePredictor{
		"predict error":  {predErr: errors.New("cuda oom")},
		"size mismatch":  {pred: Prediction{Masks: []entity.Mask{fullMask(2, 2, 1)}, Scores: []float64{0.9}}},
		"bad confidence": {pred: Prediction{Masks: []entity.Mask{fullMask(4, 4, 1)}, Scores: []float64{1.5}}},
		"missing score":  {pred: Prediction{Masks: []entity.Mask{fullMask(4, 4, 1)}}},
	} {
		t.Run(name, func(t *testing.T) {
			a := startedAdapter(t, p)
			_, err := a.Segment(context.Background(), img, Center(img))
			require.ErrorIs(t, err, entity.ErrAdapterFailure)
			require.Equal(t, entity.KindAdapterFailure, entity.KindOf(err))
		})
	}
}

func TestAdapter_SerializesPredictions(t *testing.T) {
	p := &fakePredictor{
		pred:  Prediction{Masks: []entity.Mask{fullMask(4, 4, 2)}, Scores: []float64{0.5}},
		delay: 5 * time.Millisecond,
	}
	a := startedAdapter(t, p)
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := a.Segment(context.Background(), img, Center(img))
			require.NoError(t, err)
		}()
	}
	wg.Wait()

	require.Equal(t, int32(8), p.calls.Load())
	require.Equal(t, int32(1), p.maxSeen.Load())
}

func TestAdapter_WaitHonoursContext(t *testing.T) {
	p := &fakePredictor{
		pred:  Prediction{Masks: []entity.Mask{fullMask(4, 4, 2)}, Scores: []float64{0.5}},
		delay: 200 * time.Millisecond,
	}
	a := startedAdapter(t, p)
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))

	go func() { _, _ = a.Segment(context.Background(), img, Center(img)) }()
	require.Eventually(t, func() bool { return p.inFlight.Load() == 1 }, time.Second, time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := a.Segment(ctx, img, Center(img))
	require.ErrorIs(t, err, entity.ErrAdapterFailure)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

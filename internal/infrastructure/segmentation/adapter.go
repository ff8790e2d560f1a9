package segmentation

import (
	"context"
	"fmt"
	"image"
	"math"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"

	"pothole-watch/internal/domain/entity"
	"pothole-watch/internal/domain/port"
)

// ForegroundLabel метка точки переднего плана
const ForegroundLabel = 1

// Prompt запрос к модели: изображение и одна точка-подсказка
type Prompt struct {
	Image     image.Image
	Point     image.Point
	Label     int
	MultiMask bool
}

// Prediction кандидаты масок и их оценки
type Prediction struct {
	Masks  []entity.Mask
	Scores []float64
}

// Predictor внешняя модель сегментации. Не обязана быть потокобезопасной.
type Predictor interface {
	// Load загружает модель, вызывается один раз
	Load(ctx context.Context) error

	// Predict сегментирует изображение по подсказке
	Predict(ctx context.Context, prompt Prompt) (Prediction, error)
}

// Adapter оборачивает единственный экземпляр модели.
// Готовность выставляется один раз после успешной загрузки и больше не сбрасывается.
type Adapter struct {
	predictor   Predictor
	loadTimeout time.Duration

	ready  atomic.Bool
	once   sync.Once
	loaded chan struct{}
	slot   chan struct{} // одна сегментация за раз
}

// NewAdapter создаёт адаптер. при loadTimeout <= 0 загрузка без ограничения на загрузку.
func NewAdapter(predictor Predictor, loadTimeout time.Duration) *Adapter {
	return &Adapter{
		predictor:   predictor,
		loadTimeout: loadTimeout,
		loaded:      make(chan struct{}),
		slot:        make(chan struct{}, 1),
	}
}

// Start запускает фоновую загрузку модели. Повторные вызовы ничего не делают.
func (a *Adapter) Start(ctx context.Context) {
	a.once.Do(func() {
		go a.load(ctx)
	})
}

func (a *Adapter) load(ctx context.Context) {
	defer close(a.loaded)

	if a.loadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.loadTimeout)
		defer cancel()
	}

	started := time.Now()
	if err := a.predictor.Load(ctx); err != nil {
		log.WithError(err).Error("Segmentation model failed to load, detection stays disabled")
		return
	}
	a.ready.Store(true)
	log.WithField("took", time.Since(started).Round(time.Millisecond)).Info("Segmentation model loaded")
}

// Loaded закрывается, когда попытка загрузки завершилась (успешно или нет)
func (a *Adapter) Loaded() <-chan struct{} {
	return a.loaded
}

// Ready не блокирует
func (a *Adapter) Ready() bool {
	return a.ready.Load()
}

// Segment запрашивает одну маску для точки prompt
func (a *Adapter) Segment(ctx context.Context, img image.Image, prompt image.Point) (entity.Segmentation, error) {
	if !a.Ready() {
		return entity.Segmentation{}, entity.ErrModelNotReady
	}
	if img == nil {
		return entity.Segmentation{}, fmt.Errorf("%w: nil image", entity.ErrInvalidInput)
	}

	select {
	case a.slot <- struct{}{}:
	case <-ctx.Done():
		return entity.Segmentation{}, fmt.Errorf("%w: waiting for model: %w", entity.ErrAdapterFailure, ctx.Err())
	}
	defer func() { <-a.slot }()

	pred, err := a.predictor.Predict(ctx, Prompt{
		Image:     img,
		Point:     prompt,
		Label:     ForegroundLabel,
		MultiMask: false,
	})
	if err != nil {
		return entity.Segmentation{}, fmt.Errorf("%w: %w", entity.ErrAdapterFailure, err)
	}

	return validate(img, pred)
}

func validate(img image.Image, pred Prediction) (entity.Segmentation, error) {
	if len(pred.Masks) == 0 || pred.Masks[0].Empty() {
		return entity.Segmentation{}, entity.ErrNoDetection
	}
	if len(pred.Scores) == 0 {
		return entity.Segmentation{}, fmt.Errorf("%w: no score for mask", entity.ErrAdapterFailure)
	}

	mask, score := pred.Masks[0], pred.Scores[0]
	size := img.Bounds().Size()
	if mask.Width != size.X || mask.Height != size.Y || len(mask.Bits) != mask.Width*mask.Height {
		return entity.Segmentation{}, fmt.Errorf("%w: mask %dx%d does not match image %dx%d",
			entity.ErrAdapterFailure, mask.Width, mask.Height, size.X, size.Y)
	}
	if math.IsNaN(score) || score < 0 || score > 1 {
		return entity.Segmentation{}, fmt.Errorf("%w: confidence %v out of [0,1]", entity.ErrAdapterFailure, score)
	}

	return entity.Segmentation{Mask: mask, Confidence: score}, nil
}

// Center геометрический центр изображения, подсказка по умолчанию
func Center(img image.Image) image.Point {
	size := img.Bounds().Size()
	return image.Pt(size.X/2, size.Y/2)
}

// Проверка реализации интерфейса
var _ port.Segmenter = (*Adapter)(nil)

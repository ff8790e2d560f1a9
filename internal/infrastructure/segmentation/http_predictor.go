package segmentation

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"net/http"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"pothole-watch/internal/domain/entity"
)

const defaultPollInterval = 2 * time.Second

// HTTPPredictor клиент сервиса инференса SAM
type HTTPPredictor struct {
	baseURL      string
	client       *http.Client
	pollInterval time.Duration
}

// NewHTTPPredictor создаёт клиент. timeout ограничивает один HTTP-запрос.
func NewHTTPPredictor(baseURL string, timeout time.Duration) *HTTPPredictor {
	return &HTTPPredictor{
		baseURL:      strings.TrimRight(baseURL, "/"),
		client:       &http.Client{Timeout: timeout},
		pollInterval: defaultPollInterval,
	}
}

type healthResponse struct {
	Ready bool `json:"ready"`
}

type predictRequest struct {
	Image           string   `json:"image"`
	PointCoords     [][2]int `json:"point_coords"`
	PointLabels     []int    `json:"point_labels"`
	MultimaskOutput bool     `json:"multimask_output"`
}

type predictResponse struct {
	Masks  []string  `json:"masks"`
	Scores []float64 `json:"scores"`
}

// Load ждёт, пока сервис инференса сообщит о готовности модели
func (p *HTTPPredictor) Load(ctx context.Context) error {
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		ready, err := p.health(ctx)
		if err == nil && ready {
			return nil
		}
		if err != nil {
			log.WithError(err).Debug("Segmentation service health check failed")
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("wait for segmentation service: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}

func (p *HTTPPredictor) health(ctx context.Context) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/health", nil)
	if err != nil {
		return false, err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("health: unexpected status %d", resp.StatusCode)
	}
	var h healthResponse
	if err := json.NewDecoder(resp.Body).Decode(&h); err != nil {
		return false, fmt.Errorf("decode health: %w", err)
	}
	return h.Ready, nil
}

// Predict отправляет изображение и подсказку, возвращает маски
func (p *HTTPPredictor) Predict(ctx context.Context, prompt Prompt) (Prediction, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, prompt.Image); err != nil {
		return Prediction{}, fmt.Errorf("encode image: %w", err)
	}

	body, err := json.Marshal(predictRequest{
		Image:           base64.StdEncoding.EncodeToString(buf.Bytes()),
		PointCoords:     [][2]int{{prompt.Point.X, prompt.Point.Y}},
		PointLabels:     []int{prompt.Label},
		MultimaskOutput: prompt.MultiMask,
	})
	if err != nil {
		return Prediction{}, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/predict", bytes.NewReader(body))
	if err != nil {
		return Prediction{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return Prediction{}, fmt.Errorf("predict: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Prediction{}, fmt.Errorf("predict: status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var pr predictResponse
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		return Prediction{}, fmt.Errorf("decode prediction: %w", err)
	}

	out := Prediction{Scores: pr.Scores, Masks: make([]entity.Mask, 0, len(pr.Masks))}
	for i, encoded := range pr.Masks {
		mask, err := decodeMask(encoded)
		if err != nil {
			return Prediction{}, fmt.Errorf("mask %d: %w", i, err)
		}
		out.Masks = append(out.Masks, mask)
	}
	return out, nil
}

// decodeMask превращает PNG маски в entity.Mask: любой ненулевой пиксель относится к переднему плану
func decodeMask(encoded string) (entity.Mask, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return entity.Mask{}, fmt.Errorf("base64: %w", err)
	}
	if len(raw) == 0 {
		return entity.Mask{}, nil
	}
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return entity.Mask{}, fmt.Errorf("decode: %w", err)
	}
	if img == nil {
		return entity.Mask{}, errors.New("decode: nil image")
	}

	b := img.Bounds()
	mask := entity.NewMask(b.Dx(), b.Dy())
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			if r|g|bl != 0 {
				mask.Set(x, y, true)
			}
		}
	}
	return mask, nil
}

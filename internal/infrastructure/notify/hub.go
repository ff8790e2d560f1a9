package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"

	"pothole-watch/internal/domain/entity"
	"pothole-watch/internal/domain/port"
)

// EventNewPothole тип сообщения о новом отчёте
const EventNewPothole = "new_pothole"

const clientBuffer = 256

// ErrHubStopped хаб остановлен, рассылка невозможна
var ErrHubStopped = errors.New("notification hub stopped")

// BroadcastMessage конверт сообщения для наблюдателей
type BroadcastMessage struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}

// Hub рассылает сообщения всем наблюдателям, подключённым в момент публикации.
// Истории нет: подключившиеся позже прошлых событий не получают.
type Hub struct {
	// Registered clients
	clients map[*Client]bool

	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	stopOnce   sync.Once

	mutex     sync.RWMutex
	published atomic.Int64
}

// NewHub создаёт хаб. Рассылка начинается после Run.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run главный цикл хаба, работает до отмены ctx
func (h *Hub) Run(ctx context.Context) {
	defer h.stop()

	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mutex.Unlock()
			log.WithField("clients", total).Debug("Observer connected")

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			total := len(h.clients)
			h.mutex.Unlock()
			log.WithField("clients", total).Debug("Observer disconnected")

		case message := <-h.broadcast:
			h.mutex.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// медленный наблюдатель отключается
					close(client.send)
					delete(h.clients, client)
				}
			}
			h.mutex.Unlock()
		}
	}
}

func (h *Hub) stop() {
	h.stopOnce.Do(func() {
		close(h.done)
		h.mutex.Lock()
		for client := range h.clients {
			close(client.send)
			delete(h.clients, client)
		}
		h.mutex.Unlock()
	})
}

// Publish отправляет событие всем текущим наблюдателям. Доставка без подтверждений.
func (h *Hub) Publish(ctx context.Context, event entity.ReportEvent) error {
	data, err := json.Marshal(BroadcastMessage{
		Type:      EventNewPothole,
		Data:      event,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal broadcast message: %w", err)
	}

	select {
	case h.broadcast <- data:
	case <-h.done:
		return ErrHubStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	h.published.Add(1)
	log.WithFields(log.Fields{"report_id": event.ID, "clients": h.ConnectedClients()}).Info("Broadcasted new pothole")
	return nil
}

// Subscribe регистрирует in-process наблюдателя. Возвращается после регистрации.
func (h *Hub) Subscribe(ctx context.Context) (*Client, error) {
	client := newClient(h, nil)
	if err := h.add(ctx, client); err != nil {
		return nil, err
	}
	return client, nil
}

func (h *Hub) add(ctx context.Context, client *Client) error {
	select {
	case h.register <- client:
		return nil
	case <-h.done:
		return ErrHubStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Hub) remove(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// ConnectedClients число подключённых наблюдателей
func (h *Hub) ConnectedClients() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// Published число разосланных событий
func (h *Hub) Published() int64 {
	return h.published.Load()
}

// Проверка реализации интерфейса
var _ port.Notifier = (*Hub)(nil)

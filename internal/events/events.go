package events

import (
	"context"
	"encoding/json"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

type Type string

const (
	OrderCreated       Type = "order.created"
	OrderStatusChanged Type = "order.status_changed"
	OrderDeleted       Type = "order.deleted"
	StockRestocked     Type = "stock.restocked"
)

type Event struct {
	Type            Type      `json:"type"`
	EstablishmentID uint      `json:"establishmentId"`
	OrderID         uint      `json:"orderId,omitempty"`
	ProductID       uint      `json:"productId,omitempty"`
	Status          string    `json:"status,omitempty"`
	Quantity        int       `json:"quantity,omitempty"`
	At              time.Time `json:"at"`
}

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// messageWriter: *kafka.Writer'ın kullandığımız kısmı
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaPublisher struct {
	Writer messageWriter
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{Writer: &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 50 * time.Millisecond,
	}}
}

// Publish: Aynı işletmenin event'leri aynı partition'a düşsün diye key = establishment id
func (p *KafkaPublisher) Publish(ctx context.Context, ev Event) error {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return p.Writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(strconv.FormatUint(uint64(ev.EstablishmentID), 10)),
		Value: payload,
	})
}

func (p *KafkaPublisher) Close() error {
	return p.Writer.Close()
}

// NopPublisher: Broker tanımlı değilse
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }

// inflight: PublishAsync ile başlatılıp henüz bitmemiş yayınlar
var inflight sync.WaitGroup

// PublishAsync: Commit sonrası yayın; hata olursa loglanır, isteği etkilemez
func PublishAsync(p Publisher, ev Event) {
	if p == nil {
		return
	}
	inflight.Add(1)
	go func() {
		defer inflight.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := p.Publish(ctx, ev); err != nil {
			log.Printf("[WARN] event yayınlanamadı (%s): %v", ev.Type, err)
		}
	}()
}

// Drain: Bekleyen asenkron yayınların bitmesini en fazla timeout kadar bekler.
// Publisher kapatılmadan önce çağrılmalı; süre dolarsa false döner.
func Drain(timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}

package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"docflow/internal/app"
	"docflow/internal/model"
)

// Ingestor runs the ingestion pipeline for one source object.
type Ingestor interface {
	Ingest(ctx context.Context, input app.IngestInput) (*app.IngestResult, error)
}

// ObjectFetcher reads the raw bytes of a source object.
type ObjectFetcher interface {
	Fetch(ctx context.Context, bucket, key string) (io.ReadCloser, error)
}

// IngestWorker consumes ingest requests from the queue, fetches the source
// object and drives it through the ingestion pipeline.
type IngestWorker struct {
	conn      *amqp.Connection
	service   Ingestor
	objects   ObjectFetcher
	queueName string

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewIngestWorker(conn *amqp.Connection, service Ingestor, objects ObjectFetcher, queueName string) *IngestWorker {
	return &IngestWorker{
		conn:      conn,
		service:   service,
		objects:   objects,
		queueName: queueName,
	}
}

func (w *IngestWorker) Start(ctx context.Context) error {
	if w.cancel != nil {
		return nil
	}

	workerCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	ch, err := w.conn.Channel()
	if err != nil {
		cancel()
		return fmt.Errorf("open worker channel failed: %w", err)
	}

	_, err = ch.QueueDeclare(
		w.queueName,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("declare worker queue failed: %w", err)
	}

	deliveries, err := ch.Consume(
		w.queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("consume queue failed: %w", err)
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer ch.Close()

		for {
			select {
			case <-workerCtx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					return
				}

				if err := w.process(workerCtx, d.Body); err != nil {
					if requeue(err) {
						_ = d.Nack(false, true)
						continue
					}
					_ = d.Nack(false, false)
					continue
				}
				_ = d.Ack(false)
			}
		}
	}()

	return nil
}

// process decodes one ingest request, fetches the object and ingests it.
func (w *IngestWorker) process(ctx context.Context, body []byte) error {
	var req model.IngestRequest
	if err := json.Unmarshal(body, &req); err != nil {
		log.Printf("worker decode ingest request failed: %v", err)
		return fmt.Errorf("%w: malformed ingest request: %v", app.ErrInvalidInput, err)
	}

	obj, err := w.objects.Fetch(ctx, req.SourceBucket, req.SourceKey)
	if err != nil {
		log.Printf("worker fetch object %s/%s failed: %v", req.SourceBucket, req.SourceKey, err)
		return err
	}
	content, err := io.ReadAll(obj)
	_ = obj.Close()
	if err != nil {
		return fmt.Errorf("read object %s/%s failed: %w", req.SourceBucket, req.SourceKey, err)
	}

	_, err = w.service.Ingest(ctx, app.IngestInput{
		SourceBucket: req.SourceBucket,
		SourceKey:    req.SourceKey,
		Name:         req.DocumentName,
		Content:      content,
		TenantID:     req.TenantID,
		UserID:       req.UserID,
		ProjectID:    req.ProjectID,
		ThreadID:     req.ThreadID,
		Extra:        req.Metadata,
	})
	if err != nil {
		log.Printf("worker ingest %s/%s failed: %v", req.SourceBucket, req.SourceKey, err)
		return err
	}
	return nil
}

// requeue reports whether a failed delivery is worth another attempt.
// Malformed or invalid requests never become valid, and an ingest already in
// flight for the same source will resolve the document itself. Pipeline
// failures are recorded on the document row, so they are not retried either;
// only a dropped context leaves the request undone.
func requeue(err error) bool {
	if errors.Is(err, app.ErrInvalidInput) || errors.Is(err, app.ErrIngestInProgress) {
		return false
	}
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func (w *IngestWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}

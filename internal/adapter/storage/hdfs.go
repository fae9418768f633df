package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"path"
	"time"

	"github.com/colinmarc/hdfs/v2"
	"github.com/niksmo/parentshop/internal/core/domain"
	"github.com/niksmo/parentshop/internal/core/port"
	"github.com/niksmo/parentshop/pkg/retry"
)

var _ port.ClientEventsStorage = (*HDFSEventsRepository)(nil)

type hdfsStorage interface {
	Append(name string) (io.WriteCloser, error)
	Create(name string) (io.WriteCloser, error)
}

// An HDFSClient adapts [hdfs.Client] to the archive needs.
type HDFSClient struct {
	cl *hdfs.Client
}

func NewHDFSClient(addresses []string, user string) (HDFSClient, error) {
	const op = "NewHDFSClient"

	cl, err := hdfs.NewClient(hdfs.ClientOptions{
		Addresses: addresses,
		User:      user,
	})
	if err != nil {
		return HDFSClient{}, fmt.Errorf("%s: %w", op, err)
	}
	return HDFSClient{cl}, nil
}

func (c HDFSClient) Append(name string) (io.WriteCloser, error) {
	return c.cl.Append(name)
}

func (c HDFSClient) Create(name string) (io.WriteCloser, error) {
	return c.cl.Create(name)
}

func (c HDFSClient) Close() {
	const op = "HDFSClient.Close"
	log := slog.With("op", op)

	log.Info("closing hdfs client...")
	if err := c.cl.Close(); err != nil {
		log.Error("failed to close", "err", err)
		return
	}
	log.Info("hdfs client is closed")
}

type hdfsEvent struct {
	MessageID   string            `json:"message_id"`
	Type        string            `json:"type"`
	Name        string            `json:"name"`
	AnonymousID string            `json:"anonymous_id"`
	UserID      string            `json:"user_id,omitempty"`
	Properties  domain.Properties `json:"properties"`
	PageURL     string            `json:"page_url,omitempty"`
	PageTitle   string            `json:"page_title,omitempty"`
	SentAt      time.Time         `json:"sent_at"`
}

// An HDFSEventsRepository archives analytics events as JSON lines, one
// file per session under its root directory.
type HDFSEventsRepository struct {
	hdfs     hdfsStorage
	root     string
	retryCfg retry.RetryConfig
}

func NewHDFSEventsRepository(
	hdfs hdfsStorage, root string,
) HDFSEventsRepository {
	return HDFSEventsRepository{
		hdfs: hdfs,
		root: path.Clean("/" + root),
		retryCfg: retry.RetryConfig{
			MaxAttempts: 5,
			Backoff:     retry.LinearBackoff(50 * time.Millisecond),
			ShouldRetry: isReplicating,
		},
	}
}

func (r HDFSEventsRepository) StoreEvents(
	ctx context.Context, evts []domain.Event,
) error {
	const op = "HDFSEventsRepository.StoreEvents"

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	sessions, bySession := groupBySession(evts)
	for _, id := range sessions {
		err := r.storeSessionEvents(ctx, id, bySession[id])
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}
	return nil
}

func (r HDFSEventsRepository) storeSessionEvents(
	ctx context.Context, sessionID string, evts []domain.Event,
) error {
	w, err := r.createWriter(r.fileName(sessionID))
	if err != nil {
		return err
	}

	if err := r.saveEvents(w, evts); err != nil {
		_ = w.Close()
		return err
	}

	return r.closeWriter(ctx, w)
}

func (r HDFSEventsRepository) fileName(sessionID string) string {
	return path.Join(r.root, path.Base("/"+sessionID)+".jsonl")
}

func (r HDFSEventsRepository) createWriter(filepath string) (io.WriteCloser, error) {
	w, err := r.hdfs.Append(filepath)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		w, err = r.hdfs.Create(filepath)
		if err != nil {
			return nil, err
		}
	}
	return w, nil
}

func (r HDFSEventsRepository) saveEvents(
	w io.Writer, evts []domain.Event,
) error {
	enc := json.NewEncoder(w)
	for _, evt := range evts {
		if err := enc.Encode(toHDFSEvent(evt)); err != nil {
			return err
		}
	}
	return nil
}

func (r HDFSEventsRepository) closeWriter(
	ctx context.Context, w io.WriteCloser,
) error {
	return retry.Do(ctx, r.retryCfg, w.Close)
}

func isReplicating(err error) bool {
	return errors.Is(err, hdfs.ErrReplicating)
}

func groupBySession(evts []domain.Event) ([]string, map[string][]domain.Event) {
	var order []string
	m := make(map[string][]domain.Event)
	for _, evt := range evts {
		if _, ok := m[evt.AnonymousID]; !ok {
			order = append(order, evt.AnonymousID)
		}
		m[evt.AnonymousID] = append(m[evt.AnonymousID], evt)
	}
	return order, m
}

func toHDFSEvent(evt domain.Event) hdfsEvent {
	return hdfsEvent{
		MessageID:   evt.MessageID,
		Type:        string(evt.Type),
		Name:        evt.Name,
		AnonymousID: evt.AnonymousID,
		UserID:      evt.UserID,
		Properties:  evt.Properties,
		PageURL:     evt.Page.URL,
		PageTitle:   evt.Page.Title,
		SentAt:      evt.Timestamp,
	}
}

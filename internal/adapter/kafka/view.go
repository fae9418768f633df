package kafka

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"sync"

	"github.com/lovoo/goka"
	"github.com/niksmo/parentshop/internal/core/domain"
	"github.com/niksmo/parentshop/internal/core/port"
)

var _ port.SessionActivityReader = (*SessionActivityView)(nil)

// A SessionActivityViewConfig used for setup [SessionActivityView].
//
// TLSConfig is optional.
type SessionActivityViewConfig struct {
	SeedBrokers []string
	Group       string
	TLSConfig   *tls.Config
}

// A SessionActivityView reads the group table of
// [SessionActivityProcessor].
type SessionActivityView struct {
	gv *goka.View
}

func NewSessionActivityView(
	config SessionActivityViewConfig,
) (*SessionActivityView, error) {
	const op = "NewSessionActivityView"

	gokaConfig(config.TLSConfig)

	gv, err := goka.NewView(
		config.SeedBrokers,
		goka.GroupTable(goka.Group(config.Group)),
		eventCountCodec{},
		withNonlogViewOpt(),
	)
	if err != nil {
		return nil, opErr(err, op)
	}

	return &SessionActivityView{gv}, nil
}

func (v *SessionActivityView) Run(ctx context.Context, wg *sync.WaitGroup) {
	const op = "SessionActivityView.Run"
	log := slog.With("op", op)

	defer wg.Done()

	log.Info("running")
	err := v.gv.Run(ctx)
	if err != nil {
		log.Error("unexpected fail on run", "err", err)
		return
	}
	log.Info("stopped")
}

// Activity returns the number of events counted for the session. Until the
// view has recovered the table it reports [domain.ErrActivityUnavailable].
func (v *SessionActivityView) Activity(
	ctx context.Context, sessionID string,
) (domain.SessionActivity, error) {
	const op = "SessionActivityView.Activity"

	if err := ctx.Err(); err != nil {
		return domain.SessionActivity{}, opErr(err, op)
	}

	if !v.gv.Recovered() {
		return domain.SessionActivity{}, opErr(domain.ErrActivityUnavailable, op)
	}

	value, err := v.gv.Get(sessionID)
	if err != nil {
		return domain.SessionActivity{}, opErr(err, op)
	}

	a := domain.SessionActivity{SessionID: sessionID}
	if value == nil {
		return a, nil
	}

	n, ok := value.(eventCount)
	if !ok {
		err := fmt.Errorf("%w: %T", ErrInvalidValueType, value)
		return domain.SessionActivity{}, opErr(err, op)
	}
	a.Events = int64(n)
	return a, nil
}

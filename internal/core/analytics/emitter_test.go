package analytics_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/niksmo/parentshop/internal/core/analytics"
	"github.com/niksmo/parentshop/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockSink struct {
	mock.Mock
}

func (s *MockSink) Track(ctx context.Context, evt domain.Event) error {
	return s.Called(ctx, evt).Error(0)
}

func (s *MockSink) Page(ctx context.Context, evt domain.Event) error {
	return s.Called(ctx, evt).Error(0)
}

func (s *MockSink) Identify(ctx context.Context, evt domain.Event) error {
	return s.Called(ctx, evt).Error(0)
}

var fixedNow = time.Date(2025, 3, 14, 9, 26, 53, 589_000_000, time.UTC)

func newTestEmitter(sink *MockSink, opts ...analytics.EmitterOpt) *analytics.Emitter {
	opts = append([]analytics.EmitterOpt{
		analytics.WithClock(func() time.Time { return fixedNow }),
		analytics.WithIDGenerator(func() string { return "msg-1" }),
	}, opts...)
	if sink == nil {
		return analytics.NewEmitter(nil, opts...)
	}
	return analytics.NewEmitter(sink, opts...)
}

func runAndClose(e *analytics.Emitter) {
	var wg sync.WaitGroup
	wg.Add(1)
	go e.Run(context.Background(), &wg)
	e.Close()
	wg.Wait()
}

var visitor = domain.Visitor{
	SessionID: "sid-1",
	Page:      domain.PageContext{URL: "http://shop.local/shop.html", Title: "Shop"},
}

func TestEmitterDeliversAugmentedEvent(t *testing.T) {
	sink := new(MockSink)
	e := newTestEmitter(sink)

	sink.On("Track", mock.Anything, mock.MatchedBy(func(evt domain.Event) bool {
		return evt.MessageID == "msg-1" &&
			evt.AnonymousID == "sid-1" &&
			evt.Timestamp.Equal(fixedNow) &&
			evt.Properties["timestamp"] == "2025-03-14T09:26:53.589Z" &&
			evt.Properties["page_url"] == "http://shop.local/shop.html" &&
			evt.Properties["page_title"] == "Shop" &&
			evt.Properties["depth"] == "25%"
	})).Return(nil).Once()

	props := domain.Properties{"depth": "25%"}
	e.Emit(t.Context(), domain.TrackEvent(visitor, "", domain.EventPageScroll, props))
	runAndClose(e)

	sink.AssertExpectations(t)
	assert.Len(t, props, 1, "caller properties must not be modified")
}

func TestEmitterDispatchesByType(t *testing.T) {
	sink := new(MockSink)
	e := newTestEmitter(sink)

	sink.On("Page", mock.Anything, mock.Anything).Return(nil).Once()
	sink.On("Identify", mock.Anything, mock.Anything).Return(nil).Once()

	e.Emit(t.Context(), domain.PageEvent(visitor, "", domain.PageHomepage, nil))
	e.Emit(t.Context(), domain.IdentifyEvent(visitor, "a@b.c", domain.Properties{"email": "a@b.c"}))
	runAndClose(e)

	sink.AssertExpectations(t)
	sink.AssertNotCalled(t, "Track", mock.Anything, mock.Anything)
}

func TestEmitterDropsInvalidEvent(t *testing.T) {
	sink := new(MockSink)
	e := newTestEmitter(sink)

	e.Emit(t.Context(), domain.TrackEvent(visitor, "", "Unknown Event", nil))
	runAndClose(e)

	sink.AssertNotCalled(t, "Track", mock.Anything, mock.Anything)
}

func TestEmitterWithoutSink(t *testing.T) {
	e := newTestEmitter(nil)
	require.NotPanics(t, func() {
		e.Emit(t.Context(), domain.TrackEvent(visitor, "", domain.EventPageScroll, domain.Properties{"depth": "50%"}))
		runAndClose(e)
	})
}

func TestEmitterQueueFull(t *testing.T) {
	sink := new(MockSink)
	e := newTestEmitter(sink, analytics.WithQueueSize(1))

	sink.On("Track", mock.Anything, mock.Anything).Return(nil).Once()

	evt := domain.TrackEvent(visitor, "", domain.EventPageScroll, domain.Properties{"depth": "50%"})
	e.Emit(t.Context(), evt)
	e.Emit(t.Context(), evt)
	runAndClose(e)

	sink.AssertNumberOfCalls(t, "Track", 1)
}

func TestEmitterSinkErrorIsSwallowed(t *testing.T) {
	sink := new(MockSink)
	e := newTestEmitter(sink)

	sink.On("Track", mock.Anything, mock.Anything).Return(errors.New("unavailable")).Twice()

	evt := domain.TrackEvent(visitor, "", domain.EventPageScroll, domain.Properties{"depth": "75%"})
	e.Emit(t.Context(), evt)
	e.Emit(t.Context(), evt)
	runAndClose(e)

	sink.AssertExpectations(t)
}

func TestEmitterClosed(t *testing.T) {
	sink := new(MockSink)
	e := newTestEmitter(sink)
	runAndClose(e)

	require.NotPanics(t, func() {
		e.Emit(t.Context(), domain.PageEvent(visitor, "", domain.PageHomepage, nil))
		e.Close()
	})
	sink.AssertNotCalled(t, "Page", mock.Anything, mock.Anything)
}

package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/niksmo/parentshop/internal/core/domain"
	"github.com/niksmo/parentshop/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"
)

type MockProducerClient struct {
	mock.Mock
}

func (m *MockProducerClient) ProduceSync(
	ctx context.Context, rs ...*kgo.Record,
) kgo.ProduceResults {
	args := m.Called(ctx, rs)
	return args.Get(0).(kgo.ProduceResults)
}

func (m *MockProducerClient) Close() {
	m.Called()
}

type MockEventsSaver struct {
	mock.Mock
}

func (m *MockEventsSaver) SaveEvents(ctx context.Context, evts []domain.Event) error {
	args := m.Called(ctx, evts)
	return args.Error(0)
}

// jsonSerde stands in for the registry framed avro serde.
type jsonSerde struct{}

func (jsonSerde) Encode(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonSerde) Decode(b []byte, v any) error {
	return json.Unmarshal(b, v)
}

func testEvent() domain.Event {
	return domain.Event{
		MessageID:   "msg-1",
		Type:        domain.EventTrack,
		Name:        domain.EventCartOpened,
		AnonymousID: "sid-1",
		Properties:  domain.Properties{"cart_total": 83.0, "cart_size": 2},
		Page:        domain.PageContext{URL: "/shop.html", Title: "Shop"},
		Timestamp:   time.Date(2025, 3, 14, 9, 26, 53, 589e6, time.UTC),
	}
}

func clientOpt(cl ProducerClient) ProducerOpt {
	return func(opts *producerOpts) error {
		opts.cl = cl
		return nil
	}
}

func TestClientEventsProducer(t *testing.T) {
	t.Run("TooFewOpts", func(t *testing.T) {
		assert.Panics(t, func() {
			_, _ = NewClientEventsProducer(ProducerEncoderOpt(jsonSerde{}))
		})
	})

	t.Run("NilEncoder", func(t *testing.T) {
		_, err := NewClientEventsProducer(
			clientOpt(new(MockProducerClient)), ProducerEncoderOpt(nil),
		)
		require.Error(t, err)
	})

	t.Run("Track", func(t *testing.T) {
		cl := new(MockProducerClient)
		var produced []*kgo.Record
		cl.On("ProduceSync", mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) {
				produced = args.Get(1).([]*kgo.Record)
			}).
			Return(kgo.ProduceResults{})

		p, err := NewClientEventsProducer(
			clientOpt(cl), ProducerEncoderOpt(jsonSerde{}),
		)
		require.NoError(t, err)

		require.NoError(t, p.Track(t.Context(), testEvent()))
		require.Len(t, produced, 1)
		assert.Equal(t, "sid-1", string(produced[0].Key))

		var s schema.ClientEventV1
		require.NoError(t, json.Unmarshal(produced[0].Value, &s))
		assert.Equal(t, "Cart Opened", s.Name)
		assert.JSONEq(t, `{"cart_total":83,"cart_size":2}`, s.Properties)
	})

	t.Run("ProduceError", func(t *testing.T) {
		cl := new(MockProducerClient)
		errBroker := errors.New("broker down")
		cl.On("ProduceSync", mock.Anything, mock.Anything).
			Return(kgo.ProduceResults{{Err: errBroker}})

		p, err := NewClientEventsProducer(
			clientOpt(cl), ProducerEncoderOpt(jsonSerde{}),
		)
		require.NoError(t, err)
		assert.ErrorIs(t, p.Page(t.Context(), testEvent()), errBroker)
	})

	t.Run("Close", func(t *testing.T) {
		cl := new(MockProducerClient)
		cl.On("Close").Return()
		p, err := NewClientEventsProducer(
			clientOpt(cl), ProducerEncoderOpt(jsonSerde{}),
		)
		require.NoError(t, err)
		p.Close()
		cl.AssertExpectations(t)
	})
}

func TestClientEventsConsumerProcessFetches(t *testing.T) {
	s, err := eventToSchemaV1(testEvent())
	require.NoError(t, err)
	good, err := jsonSerde{}.Encode(s)
	require.NoError(t, err)

	fetches := kgo.Fetches{{
		Topics: []kgo.FetchTopic{{
			Topic: "client-events",
			Partitions: []kgo.FetchPartition{{
				Records: []*kgo.Record{
					{Value: good},
					{Value: []byte("not json")},
				},
			}},
		}},
	}}

	saver := new(MockEventsSaver)
	saver.On("SaveEvents", mock.Anything, mock.MatchedBy(func(evts []domain.Event) bool {
		return len(evts) == 1 && evts[0].MessageID == "msg-1"
	})).Return(nil)

	withClient := func(co *consumerOpts) error { return nil }
	c, err := NewClientEventsConsumer(
		withClient,
		ConsumerDecoderOpt(jsonSerde{}),
		ClientEventsConsumerSaverOpt(saver),
	)
	require.NoError(t, err)

	require.NoError(t, c.processFetches(t.Context(), fetches))
	saver.AssertExpectations(t)
}

func TestEventSchemaConversion(t *testing.T) {
	want := testEvent()
	s, err := eventToSchemaV1(want)
	require.NoError(t, err)

	got, err := schemaV1ToEvent(s)
	require.NoError(t, err)

	assert.Equal(t, want.MessageID, got.MessageID)
	assert.Equal(t, want.Type, got.Type)
	assert.Equal(t, want.Page, got.Page)
	assert.True(t, want.Timestamp.Equal(got.Timestamp))
	assert.Equal(t, 83.0, got.Properties["cart_total"])

	t.Run("NilProperties", func(t *testing.T) {
		evt := testEvent()
		evt.Properties = nil
		s, err := eventToSchemaV1(evt)
		require.NoError(t, err)
		assert.Equal(t, "{}", s.Properties)
	})
}

func TestEventCountCodec(t *testing.T) {
	var c eventCountCodec

	b, err := c.Encode(eventCount(41))
	require.NoError(t, err)
	assert.Equal(t, "41", string(b))

	v, err := c.Decode(b)
	require.NoError(t, err)
	assert.Equal(t, eventCount(42), countEvent(v))
	assert.Equal(t, eventCount(1), countEvent(nil))

	_, err = c.Encode(int64(1))
	assert.ErrorIs(t, err, ErrInvalidValueType)

	_, err = c.Decode([]byte("x"))
	assert.Error(t, err)
}

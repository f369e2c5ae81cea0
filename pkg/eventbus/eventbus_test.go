package eventbus

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

type importFinished struct {
	entity string
}

type otherEvent struct{}

func bufferedLogger(level logrus.Level) (*logrus.Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	log := logrus.New()
	log.SetOutput(buf)
	log.SetLevel(level)
	return log, buf
}

func TestPublish_WarnsWhenNoSubscriberMatches(t *testing.T) {
	log, buf := bufferedLogger(logrus.WarnLevel)
	publisher := NewEventPublisher(log)
	publisher.Subscribe(func(e *importFinished) {
		t.Error("should not be called")
	})

	publisher.Publish(&otherEvent{})

	require.Contains(t, buf.String(), "eventbus.Publish: no matching subscribers")
}

func TestPublish_DeliversToMatchingHandler(t *testing.T) {
	publisher := NewEventPublisher(nil)
	var got string
	publisher.Subscribe(func(e *importFinished) { got = e.entity })

	publisher.Publish(&importFinished{entity: "clients"})

	require.Equal(t, "clients", got)
}

func TestPublish_PanicIsLoggedAndOtherHandlersRun(t *testing.T) {
	log, buf := bufferedLogger(logrus.ErrorLevel)
	publisher := NewEventPublisher(log)
	called := false
	publisher.Subscribe(func(e *importFinished) { panic("intentional panic") })
	publisher.Subscribe(func(e *importFinished) { called = true })

	require.NotPanics(t, func() { publisher.Publish(&importFinished{}) })

	require.True(t, called)
	require.Contains(t, buf.String(), "panicked")
	require.Contains(t, buf.String(), "intentional panic")
}

func TestMatchSignature(t *testing.T) {
	require.True(t, MatchSignature(func(e *importFinished) {}, []interface{}{&importFinished{}}))
	require.False(t, MatchSignature(func(e *importFinished) {}, []interface{}{&otherEvent{}}))
	require.False(t, MatchSignature(func(e *importFinished) {}, []interface{}{}))
	require.False(t, MatchSignature(func(e *importFinished) {}, []interface{}{&importFinished{}, &importFinished{}}))
	require.True(t, MatchSignature(func(ctx context.Context) {}, []interface{}{context.Background()}))
	require.True(t, MatchSignature(func(e *importFinished) {}, []interface{}{nil}))
	require.False(t, MatchSignature("not a func", []interface{}{}))
}

func TestPublishE(t *testing.T) {
	t.Run("no subscribers", func(t *testing.T) {
		err := NewEventPublisher(nil).PublishE(&importFinished{})
		require.ErrorIs(t, err, ErrNoSubscribers)
	})

	t.Run("joined handler errors", func(t *testing.T) {
		publisher := NewEventPublisher(nil)
		err1 := errors.New("err1")
		err2 := errors.New("err2")
		publisher.Subscribe(func(e *importFinished) error { return err1 })
		publisher.Subscribe(func(e *importFinished) error { return err2 })

		err := publisher.PublishE(&importFinished{})
		require.ErrorIs(t, err, err1)
		require.ErrorIs(t, err, err2)
	})

	t.Run("invalid return", func(t *testing.T) {
		publisher := NewEventPublisher(nil)
		publisher.Subscribe(func(e *importFinished) int { return 1 })

		require.ErrorIs(t, publisher.PublishE(&importFinished{}), ErrInvalidHandlerReturn)
	})

	t.Run("nil argument", func(t *testing.T) {
		publisher := NewEventPublisher(nil)
		var got *importFinished = &importFinished{}
		publisher.Subscribe(func(e *importFinished) { got = e })

		require.NoError(t, publisher.PublishE(nil))
		require.Nil(t, got)
	})
}

func TestUnsubscribeAndClear(t *testing.T) {
	publisher := NewEventPublisher(nil)
	handler := func(e *importFinished) {}
	publisher.Subscribe(handler)
	publisher.Subscribe(func(e *otherEvent) {})
	require.Equal(t, 2, publisher.SubscribersCount())

	publisher.Unsubscribe(handler)
	require.Equal(t, 1, publisher.SubscribersCount())

	publisher.Clear()
	require.Equal(t, 0, publisher.SubscribersCount())
}

func TestPublish_ConcurrentSubscribeIsSafe(t *testing.T) {
	publisher := NewEventPublisher(nil)
	var mu sync.Mutex
	count := 0
	publisher.Subscribe(func(e *importFinished) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			publisher.Publish(&importFinished{})
		}()
		go func() {
			defer wg.Done()
			publisher.Subscribe(func(e *otherEvent) {})
		}()
	}
	wg.Wait()

	require.Equal(t, 10, count)
	require.Equal(t, 11, publisher.SubscribersCount())
}

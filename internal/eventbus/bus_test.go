package eventbus

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus_PublishInSubscriptionOrder(t *testing.T) {
	t.Parallel()

	b := New()
	var got []string
	_, err := b.Subscribe("image:loaded", func(e Event) { got = append(got, "first:"+e.Payload.(string)) })
	require.NoError(t, err)
	_, err = b.Subscribe("image:loaded", func(e Event) { got = append(got, "second:"+e.Payload.(string)) })
	require.NoError(t, err)
	_, err = b.Subscribe("other", func(Event) { got = append(got, "other") })
	require.NoError(t, err)

	b.Publish("image:loaded", "a.png")

	assert.Equal(t, []string{"first:a.png", "second:a.png"}, got)
	assert.EqualValues(t, 1, b.Published())
}

func TestBus_Unsubscribe(t *testing.T) {
	t.Parallel()

	b := New()
	calls := 0
	cancel, err := b.Subscribe("t", func(Event) { calls++ })
	require.NoError(t, err)

	b.Publish("t", nil)
	cancel()
	b.Publish("t", nil)

	assert.Equal(t, 1, calls)
}

func TestBus_HandlerPanicReported(t *testing.T) {
	t.Parallel()

	b := New()
	var reported error
	b.OnError(func(err error) { reported = err })
	after := false
	_, _ = b.Subscribe("t", func(Event) { panic("bad listener") })
	_, _ = b.Subscribe("t", func(Event) { after = true })

	b.Publish("t", nil)

	require.Error(t, reported)
	assert.Contains(t, reported.Error(), "bad listener")
	assert.True(t, after, "a panicking handler must not stop delivery")
}

func TestBus_Closed(t *testing.T) {
	t.Parallel()

	b := New()
	b.Close()

	_, err := b.Subscribe("t", func(Event) {})
	require.True(t, errors.Is(err, ErrBusClosed))
	b.Publish("t", nil)
	assert.Zero(t, b.Published())

	_, err = New().Subscribe("t", nil)
	require.ErrorIs(t, err, ErrNilFunc)
}

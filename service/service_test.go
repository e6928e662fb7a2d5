package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runar-labs/runar-node/errors"
	"github.com/runar-labs/runar-node/eventbus"
	"github.com/runar-labs/runar-node/value"
)

// fakeNode records the calls a service makes through its context
type fakeNode struct {
	published    []string
	subscribed   []string
	unsubscribed []string
	subErr       error
	nextID       int
}

func (f *fakeNode) Request(_ context.Context, address string, _ value.Value) (Response, error) {
	return Success("ok:"+address, value.Null()), nil
}

func (f *fakeNode) Publish(_ context.Context, topic string, _ value.Value) error {
	f.published = append(f.published, topic)
	return nil
}

func (f *fakeNode) PublishSync(ctx context.Context, topic string, data value.Value) error {
	return f.Publish(ctx, topic, data)
}

func (f *fakeNode) SubscribeAs(owner, topic string, _ eventbus.Handler, _ eventbus.Options) (string, error) {
	if f.subErr != nil {
		return "", f.subErr
	}
	f.nextID++
	f.subscribed = append(f.subscribed, owner+"|"+topic)
	return string(rune('a' + f.nextID - 1)), nil
}

func (f *fakeNode) Unsubscribe(topic, id string) {
	f.unsubscribed = append(f.unsubscribed, topic+"|"+id)
}

func noopHandler(context.Context, *Context, value.Value) (Response, error) {
	return Success("", value.Null()), nil
}

func noopEvent(context.Context, value.Value) error { return nil }

func TestNewValidation(t *testing.T) {
	_, err := New(Config{})
	assert.True(t, errors.Is(err, errors.ErrEmptyPath))

	svc, err := New(Config{Path: "math"})
	require.NoError(t, err)
	assert.Equal(t, "math", svc.Name(), "name defaults to path")
	assert.Equal(t, "0.1.0", svc.Metadata().Version)
	assert.Equal(t, StateCreated, svc.State())
}

func TestDuplicateOperationRejected(t *testing.T) {
	_, err := New(Config{Path: "math"},
		WithOperation("add", noopHandler),
		WithOperation("add", noopHandler),
	)
	assert.Error(t, err)
}

func TestOperationTable(t *testing.T) {
	svc, err := New(Config{Path: "math", Name: "Math", Description: "arithmetic"},
		WithOperation("add", noopHandler, "a", "b"),
		WithOperation("negate", noopHandler, "value"),
	)
	require.NoError(t, err)

	op, ok := svc.Operation("add")
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, op.Params)

	_, ok = svc.Operation("divide")
	assert.False(t, ok)

	ops := svc.Operations()
	require.Len(t, ops, 2)
	assert.Equal(t, "add", ops[0].Name)
	assert.Equal(t, "negate", ops[1].Name)

	md := svc.Metadata()
	assert.Equal(t, []string{"add", "negate"}, md.Operations)
	assert.Equal(t, "created", md.State)
}

func TestLifecycle(t *testing.T) {
	node := &fakeNode{}
	var initRan, stopRan bool

	svc, err := New(Config{Path: "events"},
		WithSubscription("created", noopEvent),
		WithSubscription("", noopEvent),
		WithInitHook(func(context.Context, *Context) error { initRan = true; return nil }),
		WithStopHook(func(context.Context, *Context) error { stopRan = true; return nil }),
	)
	require.NoError(t, err)

	rc := NewContext("events", node, nil)
	require.NoError(t, svc.Init(context.Background(), rc))
	assert.True(t, initRan)
	assert.Equal(t, StateInitialized, svc.State())
	// the empty topic resolves to the service's own path
	assert.Equal(t, []string{"events|created", "events|events"}, node.subscribed)

	require.NoError(t, svc.Start(context.Background()))
	assert.Equal(t, StateRunning, svc.State())

	require.NoError(t, svc.Stop(context.Background()))
	assert.True(t, stopRan)
	assert.Equal(t, StateStopped, svc.State())
	assert.Len(t, node.unsubscribed, 2)

	// stopping again is a no-op
	require.NoError(t, svc.Stop(context.Background()))
	assert.Len(t, node.unsubscribed, 2)
}

func TestInitHookFailureRollsBackSubscriptions(t *testing.T) {
	node := &fakeNode{}
	svc, err := New(Config{Path: "events"},
		WithSubscription("created", noopEvent),
		WithInitHook(func(context.Context, *Context) error {
			return errors.New("wiring failed")
		}),
	)
	require.NoError(t, err)

	err = svc.Init(context.Background(), NewContext("events", node, nil))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrLifecycle))
	assert.Equal(t, StateCreated, svc.State())
	assert.Len(t, node.unsubscribed, 1, "registered subscription is rolled back")
}

func TestSubscriptionFailureAbortsInit(t *testing.T) {
	node := &fakeNode{subErr: errors.New("bus rejected")}
	svc, err := New(Config{Path: "events"},
		WithSubscription("created", noopEvent),
	)
	require.NoError(t, err)

	err = svc.Init(context.Background(), NewContext("events", node, nil))
	require.Error(t, err)
	assert.Equal(t, StateCreated, svc.State())
}

func TestDoubleInitRejected(t *testing.T) {
	svc, err := New(Config{Path: "p"})
	require.NoError(t, err)

	rc := NewContext("p", &fakeNode{}, nil)
	require.NoError(t, svc.Init(context.Background(), rc))

	err = svc.Init(context.Background(), rc)
	assert.True(t, errors.Is(err, errors.ErrInvalidTransition))
}

func TestStartBeforeInitRejected(t *testing.T) {
	svc, err := New(Config{Path: "p"})
	require.NoError(t, err)
	assert.True(t, errors.Is(svc.Start(context.Background()), errors.ErrInvalidTransition))
}

func TestContextTopicQualification(t *testing.T) {
	node := &fakeNode{}
	rc := NewContext("events", node, nil)

	require.NoError(t, rc.Publish(context.Background(), "created", value.Null()))
	require.NoError(t, rc.Publish(context.Background(), "other/created", value.Null()))
	assert.Equal(t, []string{"events/created", "other/created"}, node.published)
}

func TestContextRequestDelegates(t *testing.T) {
	rc := NewContext("a", &fakeNode{}, nil)
	resp, err := rc.Request(context.Background(), "math/add", value.Null())
	require.NoError(t, err)
	assert.Equal(t, "ok:math/add", resp.Message)
}

func TestResponseWireForm(t *testing.T) {
	ok := Success("done", value.NewMap().Set("n", value.Int(1)).Build())
	data, err := json.Marshal(ok)
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"Success","message":"done","data":{"n":1}}`, string(data))

	fail := Errorf("bad %s", "input")
	data, err = json.Marshal(fail)
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"Error","message":"bad input","data":null}`, string(data))

	var back Response
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, StatusError, back.Status)
	assert.False(t, back.IsSuccess())
}

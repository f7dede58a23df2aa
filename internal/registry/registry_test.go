package registry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/imgboot/internal/ctxlog"
)

func testContext() context.Context {
	return ctxlog.WithLogger(context.Background(), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

type initManager struct {
	name  string
	log   *[]string
	fails bool
}

func (m *initManager) Initialize(context.Context) error {
	*m.log = append(*m.log, "init:"+m.name)
	if m.fails {
		return errors.New("init failed")
	}
	return nil
}

func TestRegistry_AddGetLookup(t *testing.T) {
	t.Parallel()

	r := New()
	require.NoError(t, r.Add("bus", "the-bus"))
	require.Error(t, r.Add("bus", "again"))

	v, ok := r.Get("bus")
	require.True(t, ok)
	assert.Equal(t, "the-bus", v)

	s, err := Lookup[string](r, "bus")
	require.NoError(t, err)
	assert.Equal(t, "the-bus", s)

	_, err = Lookup[int](r, "bus")
	require.ErrorContains(t, err, "has type string")

	_, err = Lookup[string](r, "ui")
	require.ErrorIs(t, err, ErrNotFound)

	assert.Equal(t, 1, r.Len())
}

func TestConstruct_OrderAndInitialize(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	var log []string
	step := func(name string) Step {
		return Step{Name: name, Build: func(ctx context.Context, r *Registry) (any, error) {
			log = append(log, "build:"+name)
			return &initManager{name: name, log: &log}, nil
		}}
	}
	plain := Step{Name: "plain", Build: func(ctx context.Context, r *Registry) (any, error) {
		log = append(log, "build:plain")
		_, err := Lookup[*initManager](r, "first")
		return 1, err
	}}
	r := New()

	// --- Act ---
	err := r.Construct(testContext(), []Step{step("first"), plain, step("last")}, nil)

	// --- Assert ---
	require.NoError(t, err)
	want := []string{"build:first", "init:first", "build:plain", "build:last", "init:last"}
	if diff := cmp.Diff(want, log); diff != "" {
		t.Fatalf("construction order mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []string{"first", "plain", "last"}, r.Names())
}

func TestConstruct_StopsAtFirstFailure(t *testing.T) {
	t.Parallel()

	built := 0
	ok := func(name string) Step {
		return Step{Name: name, Build: func(context.Context, *Registry) (any, error) { built++; return name, nil }}
	}
	boom := errors.New("boom")
	failing := Step{Name: "ui", Build: func(context.Context, *Registry) (any, error) { return nil, boom }}

	r := New()
	err := r.Construct(testContext(), []Step{ok("bus"), failing, ok("surface")}, nil)

	var cErr *ConstructionError
	require.ErrorAs(t, err, &cErr)
	assert.Equal(t, "ui", cErr.Step)
	assert.Equal(t, "construct", cErr.Phase)
	require.ErrorIs(t, err, boom)
	require.ErrorIs(t, err, ErrConstruction)
	assert.Equal(t, 1, built)
	assert.Equal(t, []string{"bus"}, r.Names())
}

func TestConstruct_InitializeFailure(t *testing.T) {
	t.Parallel()

	var log []string
	steps := []Step{{Name: "surface", Build: func(context.Context, *Registry) (any, error) {
		return &initManager{name: "surface", log: &log, fails: true}, nil
	}}}

	r := New()
	err := r.Construct(testContext(), steps, nil)

	var cErr *ConstructionError
	require.ErrorAs(t, err, &cErr)
	assert.Equal(t, "initialize", cErr.Phase)
	assert.Zero(t, r.Len(), "a manager that failed to initialize is not registered")
}

func TestConstruct_GuardConvertsPanics(t *testing.T) {
	t.Parallel()

	guard := func(fn func() error) (err error) {
		defer func() {
			if p := recover(); p != nil {
				err = fmt.Errorf("recovered: %v", p)
			}
		}()
		return fn()
	}
	steps := []Step{{Name: "analyzer", Build: func(context.Context, *Registry) (any, error) { panic("bad config") }}}

	err := New().Construct(testContext(), steps, guard)

	require.ErrorContains(t, err, "recovered: bad config")
}

func TestConstruct_NilInstance(t *testing.T) {
	t.Parallel()

	steps := []Step{{Name: "pool", Build: func(context.Context, *Registry) (any, error) { return nil, nil }}}

	err := New().Construct(testContext(), steps, nil)

	require.ErrorContains(t, err, "constructor returned nil")
}

package resolva_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/resolva"
)

func newTestExecutor(t *testing.T, tool resolva.Tool, opts ...resolva.ExecutorOption) *resolva.Executor {
	t.Helper()
	registry, err := resolva.NewRegistry(tool)
	gt.NoError(t, err)
	opts = append([]resolva.ExecutorOption{
		resolva.WithExecutorBackoffBase(time.Millisecond),
	}, opts...)
	return resolva.NewExecutor(registry, opts...)
}

func TestExecutorSuccess(t *testing.T) {
	exec := newTestExecutor(t, &echoTool{name: "echo"})

	result, failure, err := exec.Execute(context.Background(), "echo", map[string]any{"query": "hi"})
	gt.NoError(t, err)
	gt.Value(t, failure).Nil()
	gt.Equal(t, result["echo"], "hi")
}

func TestExecutorUnknownTool(t *testing.T) {
	exec := newTestExecutor(t, &echoTool{name: "echo"})

	_, _, err := exec.Execute(context.Background(), "nope", map[string]any{"query": "hi"})
	gt.Error(t, err)
	gt.True(t, errors.Is(err, resolva.ErrUnknownTool))
}

func TestExecutorValidatesBeforeCall(t *testing.T) {
	calls := 0
	tool := &echoTool{name: "echo", run: func(_ context.Context, _ map[string]any) (map[string]any, error) {
		calls++
		return nil, nil
	}}
	exec := newTestExecutor(t, tool)

	_, _, err := exec.Execute(context.Background(), "echo", map[string]any{"bogus": 1})
	gt.Error(t, err)
	gt.True(t, errors.Is(err, resolva.ErrInvalidArgument))
	gt.Equal(t, calls, 0)
}

func TestExecutorRetriesTransient(t *testing.T) {
	calls := 0
	tool := &echoTool{name: "echo", run: func(_ context.Context, args map[string]any) (map[string]any, error) {
		calls++
		if calls <= 2 {
			return nil, resolva.Transient(errors.New("connection reset"))
		}
		return map[string]any{"echo": args["query"]}, nil
	}}
	exec := newTestExecutor(t, tool, resolva.WithExecutorRetryLimit(2))

	result, failure, err := exec.Execute(context.Background(), "echo", map[string]any{"query": "hi"})
	gt.NoError(t, err)
	gt.Value(t, failure).Nil()
	gt.Equal(t, result["echo"], "hi")
	gt.Equal(t, calls, 3)
}

func TestExecutorRetryExhaustion(t *testing.T) {
	calls := 0
	tool := &echoTool{name: "echo", run: func(_ context.Context, _ map[string]any) (map[string]any, error) {
		calls++
		return nil, resolva.Transient(errors.New("connection reset"))
	}}
	exec := newTestExecutor(t, tool, resolva.WithExecutorRetryLimit(2))

	result, failure, err := exec.Execute(context.Background(), "echo", map[string]any{"query": "hi"})
	gt.NoError(t, err)
	gt.Value(t, result).Nil()
	gt.Value(t, failure).NotNil()
	gt.Equal(t, failure.Tool, "echo")
	gt.True(t, failure.Temporary)
	gt.Equal(t, failure.Attempts, 3)
	gt.Equal(t, calls, 3)
}

func TestExecutorPermanentFailureNoRetry(t *testing.T) {
	calls := 0
	tool := &echoTool{name: "echo", run: func(_ context.Context, _ map[string]any) (map[string]any, error) {
		calls++
		return nil, errors.New("schema mismatch")
	}}
	exec := newTestExecutor(t, tool, resolva.WithExecutorRetryLimit(2))

	_, failure, err := exec.Execute(context.Background(), "echo", map[string]any{"query": "hi"})
	gt.NoError(t, err)
	gt.Value(t, failure).NotNil()
	gt.True(t, !failure.Temporary)
	gt.Equal(t, calls, 1)
}

func TestExecutorContextCancellation(t *testing.T) {
	tool := &echoTool{name: "echo", run: func(ctx context.Context, _ map[string]any) (map[string]any, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	exec := newTestExecutor(t, tool)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, _, err := exec.Execute(ctx, "echo", map[string]any{"query": "hi"})
	gt.Error(t, err)
	gt.True(t, errors.Is(err, context.Canceled))
}

func TestExecutorAppliesDefaults(t *testing.T) {
	var got map[string]any
	tool := &defaultingTool{run: func(_ context.Context, args map[string]any) (map[string]any, error) {
		got = args
		return map[string]any{}, nil
	}}
	registry, err := resolva.NewRegistry(tool)
	gt.NoError(t, err)
	exec := resolva.NewExecutor(registry)

	_, failure, err := exec.Execute(context.Background(), "search", map[string]any{"query": "x"})
	gt.NoError(t, err)
	gt.Value(t, failure).Nil()
	gt.Equal(t, got["top_k"], 5)
}

type defaultingTool struct {
	run func(ctx context.Context, args map[string]any) (map[string]any, error)
}

func (t *defaultingTool) Spec() resolva.ToolSpec {
	return resolva.ToolSpec{
		Name:        "search",
		Description: "search with a default limit",
		Parameters: map[string]*resolva.Parameter{
			"query": {Type: resolva.TypeString},
			"top_k": {Type: resolva.TypeInteger, Default: 5},
		},
		Required:   []string{"query"},
		Idempotent: true,
	}
}

func (t *defaultingTool) Run(ctx context.Context, args map[string]any) (map[string]any, error) {
	return t.run(ctx, args)
}

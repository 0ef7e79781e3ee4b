package sandbox

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vizlet/vizlet/internal/types"
)

func newTestRuntime(t *testing.T) *Runtime {
	t.Helper()
	rt, err := New(DefaultConfig())
	require.NoError(t, err)
	t.Cleanup(func() { rt.Close() })
	return rt
}

func ready(msgs []types.Message) bool {
	for _, m := range msgs {
		if m.Type == types.MessageReady {
			return true
		}
	}
	return false
}

func errorMessage(msgs []types.Message) (types.Message, bool) {
	for _, m := range msgs {
		if m.Type == types.MessageError {
			return m, true
		}
	}
	return types.Message{}, false
}

func TestExecuteRendersWidget(t *testing.T) {
	rt := newTestRuntime(t)

	result, err := rt.Execute(context.Background(), Program{
		WidgetID:    "w1",
		Fingerprint: 1,
		Source:      `function Widget({data}) { return React.createElement('div', null, data.length + ' items'); }`,
		Data:        []any{map[string]any{}, map[string]any{}, map[string]any{}},
	})
	require.NoError(t, err)

	assert.True(t, result.Mounted)
	assert.Contains(t, result.HTML, "3 items")
	assert.True(t, ready(result.Messages))
	_, hasErr := errorMessage(result.Messages)
	assert.False(t, hasErr)
}

func TestExecuteThrowingWidget(t *testing.T) {
	rt := newTestRuntime(t)

	result, err := rt.Execute(context.Background(), Program{
		WidgetID:    "w1",
		Fingerprint: 2,
		Source:      `function Widget({data}) { throw new Error('boom'); }`,
		Data:        []any{},
	})
	// The harness catches the throw; the execution itself succeeds.
	require.NoError(t, err)

	assert.False(t, result.Mounted)
	msg, hasErr := errorMessage(result.Messages)
	require.True(t, hasErr)
	assert.Contains(t, msg.Error, "boom")
	assert.False(t, ready(result.Messages))
}

func TestExecuteMissingEntryFunction(t *testing.T) {
	rt := newTestRuntime(t)

	result, err := rt.Execute(context.Background(), Program{
		WidgetID: "w1",
		Source:   `function NotWidget() {}`,
	})
	require.NoError(t, err)

	msg, hasErr := errorMessage(result.Messages)
	require.True(t, hasErr)
	assert.Contains(t, msg.Error, "Widget")
}

func TestExecuteSyntaxError(t *testing.T) {
	rt := newTestRuntime(t)

	result, err := rt.Execute(context.Background(), Program{
		WidgetID: "w1",
		Source:   `function Widget({data}) { return <div>broken; }`,
	})
	assert.Error(t, err)

	// Even uncatchable failures surface as an error message.
	_, hasErr := errorMessage(result.Messages)
	assert.True(t, hasErr)
}

func TestExecuteMessagesCarryIdentity(t *testing.T) {
	rt := newTestRuntime(t)

	result, err := rt.Execute(context.Background(), Program{
		WidgetID:    "widget-42",
		Fingerprint: 9001,
		Source:      `function Widget({data}) { return React.createElement('span'); }`,
	})
	require.NoError(t, err)
	require.NotEmpty(t, result.Messages)

	for _, msg := range result.Messages {
		assert.Equal(t, "widget-42", msg.WidgetID)
		assert.Equal(t, uint64(9001), msg.Fingerprint)
	}
}

func TestExecuteHooks(t *testing.T) {
	rt := newTestRuntime(t)

	result, err := rt.Execute(context.Background(), Program{
		WidgetID: "w1",
		Source: `function Widget({data}) {
			var state = useState(7);
			var count = state[0];
			var ref = useRef('r');
			useEffect(function () { console.log('effect ran'); }, []);
			return React.createElement('div', null, count + ':' + ref.current);
		}`,
	})
	require.NoError(t, err)

	assert.Contains(t, result.HTML, "7:r")
	assert.True(t, ready(result.Messages))

	found := false
	for _, entry := range result.Console {
		if entry.Message == "effect ran" {
			found = true
		}
	}
	assert.True(t, found, "effect should run once after mount")
}

func TestExecuteChartPrimitives(t *testing.T) {
	rt := newTestRuntime(t)

	result, err := rt.Execute(context.Background(), Program{
		WidgetID: "w1",
		Source: `function Widget({data}) {
			return React.createElement('div', null,
				React.createElement(BarChart, { data: { labels: ['a'], datasets: [] } }),
				React.createElement(PieChart, { data: { labels: ['b'], datasets: [] } }));
		}`,
	})
	require.NoError(t, err)

	require.Len(t, result.Charts, 2)
	assert.Equal(t, "bar", result.Charts[0].Kind)
	assert.Equal(t, "pie", result.Charts[1].Kind)
	// One canvas per chart wrapper.
	assert.Equal(t, 2, countOccurrences(result.HTML, "<canvas"))
}

func countOccurrences(s, sub string) int {
	count := 0
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			count++
		}
	}
	return count
}

func TestExecuteNestedComponents(t *testing.T) {
	rt := newTestRuntime(t)

	result, err := rt.Execute(context.Background(), Program{
		WidgetID: "w1",
		Source: `function Row(props) { return React.createElement('li', null, props.label); }
		function Widget({data}) {
			return React.createElement('ul', null,
				data.map(function (item, i) {
					return React.createElement(Row, { label: item.name, key: i });
				}));
		}`,
		Data: []any{
			map[string]any{"name": "alpha"},
			map[string]any{"name": "beta"},
		},
	})
	require.NoError(t, err)

	assert.Contains(t, result.HTML, "<li>alpha</li>")
	assert.Contains(t, result.HTML, "<li>beta</li>")
}

func TestExecuteEscapesTextContent(t *testing.T) {
	rt := newTestRuntime(t)

	result, err := rt.Execute(context.Background(), Program{
		WidgetID: "w1",
		Source:   `function Widget({data}) { return React.createElement('div', null, data[0].label); }`,
		Data:     []any{map[string]any{"label": "<script>alert(1)</script>"}},
	})
	require.NoError(t, err)

	assert.NotContains(t, result.HTML, "<script>")
	assert.Contains(t, result.HTML, "&lt;script&gt;")
}

func TestExecuteAttributesAndStyle(t *testing.T) {
	rt := newTestRuntime(t)

	result, err := rt.Execute(context.Background(), Program{
		WidgetID: "w1",
		Source: `function Widget({data}) {
			return React.createElement('div', {
				className: 'data-card',
				style: { backgroundColor: 'red', fontSize: '12px' },
				onClick: function () {},
			}, 'x');
		}`,
	})
	require.NoError(t, err)

	assert.Contains(t, result.HTML, `class="data-card"`)
	assert.Contains(t, result.HTML, "background-color: red")
	assert.Contains(t, result.HTML, "font-size: 12px")
	assert.NotContains(t, result.HTML, "onClick")
}

func TestExecuteSecurity(t *testing.T) {
	rt := newTestRuntime(t)

	dangerous := []struct {
		name   string
		source string
	}{
		{"require blocked", `function Widget({data}) { return React.createElement('div', null, typeof require); }`},
		{"process blocked", `function Widget({data}) { return React.createElement('div', null, typeof process); }`},
		{"fetch blocked", `function Widget({data}) { return React.createElement('div', null, typeof fetch); }`},
	}

	for _, tt := range dangerous {
		t.Run(tt.name, func(t *testing.T) {
			result, err := rt.Execute(context.Background(), Program{
				WidgetID: "w1",
				Source:   tt.source,
			})
			require.NoError(t, err)
			assert.Contains(t, result.HTML, "undefined")
		})
	}
}

func TestExecuteTimeout(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Timeout = 100 * time.Millisecond
	rt, err := New(cfg)
	require.NoError(t, err)
	defer rt.Close()

	start := time.Now()
	result, err := rt.Execute(context.Background(), Program{
		WidgetID: "w1",
		Source:   `function Widget({data}) { while (true) {} }`,
	})
	assert.Error(t, err)
	assert.Less(t, time.Since(start), 3*time.Second)
	_, hasErr := errorMessage(result.Messages)
	assert.True(t, hasErr)
}

func TestExecuteCleanSlateBetweenRuns(t *testing.T) {
	rt := newTestRuntime(t)

	_, err := rt.Execute(context.Background(), Program{
		WidgetID: "w1",
		Source:   `var leaked = 'secret'; function Widget({data}) { return React.createElement('div'); }`,
	})
	require.NoError(t, err)
	require.NoError(t, rt.Reset())

	result, err := rt.Execute(context.Background(), Program{
		WidgetID: "w2",
		Source:   `function Widget({data}) { return React.createElement('div', null, typeof leaked); }`,
	})
	require.NoError(t, err)
	assert.Contains(t, result.HTML, "undefined")
}

func TestExecuteStaleCancelNeverAbortsNextRun(t *testing.T) {
	rt := newTestRuntime(t)

	// A cancelled context aborts its own execution only. The following
	// execution on the same runtime must be untouched, every time.
	for i := 0; i < 200; i++ {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		rt.Execute(ctx, Program{
			WidgetID:    "doomed",
			Fingerprint: uint64(i),
			Source:      `function Widget({data}) { return React.createElement('div'); }`,
		})
		require.NoError(t, rt.Reset())

		result, err := rt.Execute(context.Background(), Program{
			WidgetID:    "innocent",
			Fingerprint: uint64(i),
			Source:      `function Widget({data}) { return React.createElement('div', null, 'ok'); }`,
		})
		require.NoError(t, err, "iteration %d", i)
		require.True(t, ready(result.Messages), "iteration %d", i)
		require.Contains(t, result.HTML, "ok")
	}
}

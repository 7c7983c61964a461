package logger

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type staticConfig struct {
	levels      map[string]string
	development bool
}

func (c staticConfig) GetComponentLevel(component string) string { return c.levels[component] }
func (c staticConfig) GetDefaultLevel() string                   { return c.levels[""] }
func (c staticConfig) IsDevelopment() bool                       { return c.development }

func TestNewLogger(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error"} {
		for _, dev := range []bool{false, true} {
			l, err := NewLogger(level, dev)
			require.NoError(t, err)
			require.Equal(t, level, l.GetLevel())
		}
	}

	l, err := NewLogger("verbose", false)
	require.Error(t, err)
	require.Nil(t, l)
}

func TestLogger_LevelIsSharedWithChildren(t *testing.T) {
	root, err := NewLogger("info", false)
	require.NoError(t, err)

	engine := root.WithComponent("engine")
	syncer := root.WithComponent("syncer")
	require.Equal(t, "engine", engine.GetComponent())
	require.Empty(t, root.GetComponent())

	require.NoError(t, engine.SetLevel("error"))
	require.Equal(t, "error", root.GetLevel())
	require.Equal(t, "error", syncer.GetLevel())
	require.False(t, syncer.Desugar().Core().Enabled(-1))

	require.Error(t, syncer.SetLevel("loud"))
	require.Equal(t, "error", syncer.GetLevel(), "failed SetLevel keeps the old level")
}

func TestNewComponentLogger(t *testing.T) {
	l := NewComponentLogger("fetcher", "warn", true)
	require.Equal(t, "fetcher", l.GetComponent())
	require.Equal(t, "warn", l.GetLevel())

	require.Panics(t, func() { NewComponentLogger("fetcher", "nope", false) })
}

func TestNewComponentLoggerFromConfig(t *testing.T) {
	cfg := staticConfig{levels: map[string]string{
		"":       "info",
		"rpc":    " DEBUG ",
		"engine": "",
	}}

	tests := []struct {
		name      string
		component string
		cfg       LoggingConfig
		want      string
	}{
		{name: "component override is normalized", component: "rpc", cfg: cfg, want: "debug"},
		{name: "empty level falls back", component: "engine", cfg: cfg, want: "info"},
		{name: "nil config", component: "api", cfg: nil, want: "info"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewComponentLoggerFromConfig(tt.component, tt.cfg)
			require.Equal(t, tt.want, l.GetLevel())
			require.Equal(t, tt.component, l.GetComponent())
		})
	}
}

func TestNewNopLogger(t *testing.T) {
	l := NewNopLogger()
	require.NotPanics(t, func() {
		l.Infow("discarded", "pools", 3)
		l.Errorf("discarded %d", 1)
	})
	require.NoError(t, l.Close())
}

func TestDefaultLogger(t *testing.T) {
	prev := log.Load()
	t.Cleanup(func() { log.Store(prev) })

	log.Store(nil)
	require.Equal(t, "debug", GetDefaultLogger().GetLevel())

	custom := NewComponentLogger("store", "warn", false)
	SetDefaultLogger(custom)
	require.Same(t, custom, GetDefaultLogger())
}

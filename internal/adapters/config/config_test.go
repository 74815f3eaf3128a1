package config

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewViperProviderFallsBackToDefaults(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p, err := NewViperProvider(ctx, zap.NewNop())
	require.NoError(t, err)

	cfg := p.Get()
	require.NotNil(t, cfg)
	assert.Equal(t, 8099, cfg.Server.HTTPPort)
	assert.Equal(t, "https://api.trakt.tv", cfg.Trakt.APIHost)
	assert.Equal(t, 24, cfg.Cache.MediaTTLHours)
	assert.Equal(t, "televault", cfg.App.ServiceName)
}

func TestGetIsSafeDuringReload(t *testing.T) {
	p := &viperProvider{logger: zap.NewNop()}
	p.config.Store(&Config{App: AppConfig{ServiceName: "televault"}})

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				cfg := p.Get()
				if cfg == nil || cfg.App.ServiceName == "" {
					t.Error("observed a torn config snapshot")
					return
				}
			}
		}()
	}
	for j := 0; j < 1000; j++ {
		p.config.Store(&Config{App: AppConfig{ServiceName: "televault"}})
	}
	wg.Wait()
}

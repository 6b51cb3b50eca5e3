package metadata

import (
	"context"
	"runtime"
	"sync"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
	"go.uber.org/zap"

	"rtcscope/internal/core/domain"
)

// Provider gathers static platform facts for outgoing samples. Probes run
// once on first use and the result is cached; a failed probe leaves its
// fields empty rather than failing the whole lookup.
type Provider struct {
	logger *zap.SugaredLogger

	once   sync.Once
	cached *domain.ClientMetadata
}

// New creates a metadata provider.
func New(logger *zap.SugaredLogger) *Provider {
	return &Provider{logger: logger}
}

// Metadata returns the cached platform facts, probing on the first call.
func (p *Provider) Metadata(ctx context.Context) (*domain.ClientMetadata, error) {
	p.once.Do(func() {
		p.cached = p.probe(ctx)
	})
	return p.cached, nil
}

func (p *Provider) probe(ctx context.Context) *domain.ClientMetadata {
	meta := &domain.ClientMetadata{
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
		Cores:     runtime.NumCPU(),
		GoVersion: runtime.Version(),
	}

	if info, err := host.InfoWithContext(ctx); err == nil {
		meta.Hostname = info.Hostname
		meta.Platform = info.Platform
		meta.PlatformFamily = info.PlatformFamily
		meta.KernelVersion = info.KernelVersion
	} else {
		p.logger.Debugw("host probe failed", "error", err)
	}

	if infos, err := cpu.InfoWithContext(ctx); err == nil && len(infos) > 0 {
		meta.CPUModel = infos[0].ModelName
	} else if err != nil {
		p.logger.Debugw("cpu probe failed", "error", err)
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		meta.TotalMemBytes = vm.Total
	} else {
		p.logger.Debugw("memory probe failed", "error", err)
	}

	return meta
}

// Package probes exposes readiness and liveness as files for exec probes.
package probes

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/abgdnv/stockbook/pkg/config"
)

type Probes struct {
	cfg    config.ProbesConfig
	logger *slog.Logger
}

func New(cfg config.ProbesConfig, logger *slog.Logger) *Probes {
	return &Probes{cfg: cfg, logger: logger.With("component", "probes")}
}

// touch creates name or refreshes its modification time.
func touch(name string) error {
	now := time.Now()
	if err := os.Chtimes(name, now, now); err == nil {
		return nil
	}
	f, err := os.Create(name)
	if err != nil {
		return fmt.Errorf("failed to create probe file %s: %w", name, err)
	}
	return f.Close()
}

// MarkReady creates the readiness file.
func (p *Probes) MarkReady() error {
	if err := touch(p.cfg.ReadinessFileName); err != nil {
		return err
	}
	p.logger.Info("Service is ready", "file", p.cfg.ReadinessFileName)
	return nil
}

// RunLiveness refreshes the liveness file every interval and removes both files when ctx is done.
func (p *Probes) RunLiveness(ctx context.Context) error {
	defer p.cleanup()
	if err := touch(p.cfg.LivenessFileName); err != nil {
		return err
	}
	ticker := time.NewTicker(p.cfg.LivenessInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := touch(p.cfg.LivenessFileName); err != nil {
				p.logger.Error("Failed to refresh liveness file", "error", err)
			}
		}
	}
}

func (p *Probes) cleanup() {
	for _, name := range []string{p.cfg.ReadinessFileName, p.cfg.LivenessFileName} {
		if err := os.Remove(name); err != nil && !os.IsNotExist(err) {
			p.logger.Warn("Failed to remove probe file", "file", name, "error", err)
		}
	}
}

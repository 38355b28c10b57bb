package telegram

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/hryarih32/mediacatalogbot/internal/arr"
	"github.com/hryarih32/mediacatalogbot/internal/formatter"
	"github.com/hryarih32/mediacatalogbot/pkg/models"
)

// healthChecker is an adapter with a configuration and a health probe
type healthChecker interface {
	IsConfigured() bool
	Health(ctx context.Context) error
}

type checkedService struct {
	name   string
	client healthChecker
	dst    *bool
}

type arrDescriber struct {
	name string
	c    *arr.Client
}

// probe computes the available features. Services are probed in parallel
// under PROBE_TIMEOUT; one that does not answer in time counts as down.
func (b *Bot) probe(ctx context.Context) models.Features {
	cfg := b.config.Current()
	ctx, cancel := context.WithTimeout(ctx, cfg.ProbeTimeout)
	defer cancel()

	f := models.Features{
		Power: cfg.PowerEnabled && b.power.PowerSupported(),
		Media: cfg.MediaEnabled && b.power.MediaAvailable(),
	}
	f.Volume = f.Media && b.power.VolumeAvailable()

	g, gctx := errgroup.WithContext(ctx)
	for _, svc := range []checkedService{
		{models.ServiceRadarr, b.radarr, &f.Radarr},
		{models.ServiceSonarr, b.sonarr, &f.Sonarr},
		{models.ServicePlex, b.plex, &f.Plex},
	} {
		if !svc.client.IsConfigured() {
			continue
		}
		g.Go(func() error {
			if err := svc.client.Health(gctx); err != nil {
				b.logger.Debug("service probe failed", "service", svc.name, "error", err)
				return nil
			}
			*svc.dst = true
			return nil
		})
	}
	_ = g.Wait()
	return f
}

// available gates routes. Services only need to be configured here; a
// service that is down fails its call and is reported as unreachable.
func (b *Bot) available(ctx context.Context, feature string) bool {
	cfg := b.config.Current()
	switch feature {
	case models.ServiceRadarr:
		return b.radarr.IsConfigured()
	case models.ServiceSonarr:
		return b.sonarr.IsConfigured()
	case models.ServicePlex:
		return b.plex.IsConfigured()
	case models.ServicePower:
		return cfg.PowerEnabled && b.power.PowerSupported()
	case models.ServiceMedia:
		return cfg.MediaEnabled && b.power.MediaAvailable()
	}
	return false
}

// healthLines describes every adapter for /status
func (b *Bot) healthLines(ctx context.Context, chatID int64) []formatter.HealthLine {
	cfg := b.config.Current()
	ctx, cancel := context.WithTimeout(ctx, cfg.ProbeTimeout)
	defer cancel()

	lines := make([]formatter.HealthLine, 5)
	g, gctx := errgroup.WithContext(ctx)

	for i, client := range []*arrDescriber{
		{models.ServiceRadarr, b.radarr},
		{models.ServiceSonarr, b.sonarr},
	} {
		lines[i] = formatter.HealthLine{Service: client.name, Detail: "not configured"}
		if !client.c.IsConfigured() {
			continue
		}
		g.Go(func() error {
			desc, err := client.c.Describe(gctx)
			if err != nil {
				lines[i].Detail = "unreachable"
				return nil
			}
			lines[i] = formatter.HealthLine{Service: client.name, Detail: desc, OK: true}
			return nil
		})
	}

	lines[2] = formatter.HealthLine{Service: models.ServicePlex, Detail: "not configured"}
	if b.plex.IsConfigured() {
		g.Go(func() error {
			info, err := b.plex.ServerInfo(gctx)
			if err != nil {
				lines[2].Detail = "unreachable"
				return nil
			}
			lines[2] = formatter.HealthLine{
				Service: models.ServicePlex,
				Detail:  info.Name + " " + info.Version,
				OK:      true,
			}
			return nil
		})
	}
	_ = g.Wait()

	powerOK := cfg.PowerEnabled && b.power.PowerSupported()
	lines[3] = formatter.HealthLine{Service: models.ServicePower, Detail: "disabled", OK: powerOK}
	if powerOK {
		lines[3].Detail = b.confirm.State(chatID)
	}

	mediaOK := cfg.MediaEnabled && b.power.MediaAvailable()
	lines[4] = formatter.HealthLine{Service: models.ServiceMedia, Detail: "not available", OK: mediaOK}
	if mediaOK {
		lines[4].Detail = "volume not available"
		if b.power.VolumeAvailable() {
			lines[4].Detail = "available"
		}
	}
	return lines
}

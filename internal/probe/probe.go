// Package probe answers "is this effect already present?" for the external
// systems a release touches. Probes are read-only and tolerant: a lookup that
// cannot be answered is logged and reported as not yet present, so the step
// runs and surfaces the real failure if there is one.
package probe

import (
	"context"
	"log/slog"

	"shipwright/internal/logging"
	"shipwright/internal/version"
)

// StateProbe reports whether registry and release host effects exist.
type StateProbe interface {
	IsPublishedToRegistry(ctx context.Context, v version.Version) bool
	DoesHostedReleaseExist(ctx context.Context, tag string) bool
}

// RegistryLookup checks a package index for a published version number.
type RegistryLookup interface {
	Exists(ctx context.Context, number string) (bool, error)
}

// ReleaseLookup checks a release host for a release attached to a tag.
type ReleaseLookup interface {
	ReleaseExists(ctx context.Context, tag string) (bool, error)
}

// Combined implements StateProbe over a registry and a release host. A nil
// lookup is treated as unconfigured.
type Combined struct {
	registry RegistryLookup
	host     ReleaseLookup
	logger   *slog.Logger
}

// New returns a Combined probe.
func New(registry RegistryLookup, host ReleaseLookup, logger *slog.Logger) *Combined {
	return &Combined{
		registry: registry,
		host:     host,
		logger:   logging.NewComponentLogger(logger, "probe"),
	}
}

// IsPublishedToRegistry reports whether v's bare number is on the registry.
func (c *Combined) IsPublishedToRegistry(ctx context.Context, v version.Version) bool {
	if c.registry == nil {
		c.unavailable(ctx, "registry", v.Number(), "registry not configured")
		return false
	}
	ok, err := c.registry.Exists(ctx, v.Number())
	if err != nil {
		c.unavailable(ctx, "registry", v.Number(), err.Error())
		return false
	}
	logging.WithContext(ctx, c.logger).Debug("registry probe",
		logging.String("version", v.Number()),
		logging.Bool("present", ok),
	)
	return ok
}

// DoesHostedReleaseExist reports whether the release host has a release for tag.
func (c *Combined) DoesHostedReleaseExist(ctx context.Context, tag string) bool {
	if c.host == nil {
		c.unavailable(ctx, "release_host", tag, "release host not configured")
		return false
	}
	ok, err := c.host.ReleaseExists(ctx, tag)
	if err != nil {
		c.unavailable(ctx, "release_host", tag, err.Error())
		return false
	}
	logging.WithContext(ctx, c.logger).Debug("release host probe",
		logging.String("tag", tag),
		logging.Bool("present", ok),
	)
	return ok
}

func (c *Combined) unavailable(ctx context.Context, target, subject, reason string) {
	logging.WarnWithContext(logging.WithContext(ctx, c.logger), "probe unavailable; treating as not yet present", "probe_unavailable",
		logging.String("target", target),
		logging.String("subject", subject),
		logging.String("reason", reason),
		logging.String(logging.FieldErrorHint, "check network access and credentials"),
		logging.String(logging.FieldImpact, "the step will run and fail if the effect really exists"),
	)
}

// Static is a StateProbe with fixed answers, for tests and offline previews.
type Static struct {
	Published map[string]bool
	Releases  map[string]bool
}

func (s Static) IsPublishedToRegistry(_ context.Context, v version.Version) bool {
	return s.Published[v.Number()]
}

func (s Static) DoesHostedReleaseExist(_ context.Context, tag string) bool {
	return s.Releases[tag]
}

package probe

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"shipwright/internal/logging"
	"shipwright/internal/version"
)

type registryStub struct {
	present map[string]bool
	err     error
}

func (r registryStub) Exists(_ context.Context, number string) (bool, error) {
	return r.present[number], r.err
}

type hostStub struct {
	present map[string]bool
	err     error
}

func (h hostStub) ReleaseExists(_ context.Context, tag string) (bool, error) {
	return h.present[tag], h.err
}

func TestCombinedReportsPresence(t *testing.T) {
	p := New(
		registryStub{present: map[string]bool{"1.0.0": true}},
		hostStub{present: map[string]bool{"v1.0.0": true}},
		logging.NewNop(),
	)
	ctx := context.Background()
	if !p.IsPublishedToRegistry(ctx, version.MustParse("v1.0.0")) {
		t.Fatal("expected 1.0.0 published")
	}
	if p.IsPublishedToRegistry(ctx, version.MustParse("v1.1.0")) {
		t.Fatal("expected 1.1.0 absent")
	}
	if !p.DoesHostedReleaseExist(ctx, "v1.0.0") {
		t.Fatal("expected release v1.0.0")
	}
	if p.DoesHostedReleaseExist(ctx, "v1.1.0") {
		t.Fatal("expected no release v1.1.0")
	}
}

func TestCombinedToleratesErrors(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "json", Level: "info", Output: &buf})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	p := New(
		registryStub{present: map[string]bool{"1.0.0": true}, err: errors.New("dial tcp: connection refused")},
		nil,
		logger,
	)
	ctx := context.Background()
	if p.IsPublishedToRegistry(ctx, version.MustParse("v1.0.0")) {
		t.Fatal("errors must be reported as not present")
	}
	if p.DoesHostedReleaseExist(ctx, "v1.0.0") {
		t.Fatal("unconfigured host must be reported as not present")
	}
	out := buf.String()
	if strings.Count(out, `"event_type":"probe_unavailable"`) != 2 {
		t.Fatalf("expected two probe_unavailable warnings, got %s", out)
	}
	if !strings.Contains(out, "connection refused") {
		t.Fatalf("expected reason in log, got %s", out)
	}
}

func TestStatic(t *testing.T) {
	var p StateProbe = Static{Published: map[string]bool{"1.1.0": true}}
	if !p.IsPublishedToRegistry(context.Background(), version.MustParse("v1.1.0")) {
		t.Fatal("expected static published answer")
	}
	if p.DoesHostedReleaseExist(context.Background(), "v1.1.0") {
		t.Fatal("expected static absent release")
	}
}

package utilities

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// Version is git commit or release tag from which this binary was built.
var Version string

// InitVersionMetrics publishes the components of Version as gauges. An
// unparsable version is reported as 0.0.0.
func InitVersionMetrics(ctx context.Context) error {
	vi, err := parseSemver(Version)
	if err != nil {
		vi = &versionInfo{Original: Version}
	}
	return errors.Join(
		initGauge(ctx, "major", vi.Major),
		initGauge(ctx, "minor", vi.Minor),
		initGauge(ctx, "patch", vi.Patch),
		initGauge(ctx, "rc", vi.RC),
	)
}

func initGauge(ctx context.Context, typ string, val uint64) error {
	name := fmt.Sprintf("siwx_version_%v", typ)
	desc := fmt.Sprintf("Set to the %v version number of this siwx build.", typ)

	g, err := otel.Meter("siwx").Int64Gauge(name, metric.WithDescription(desc))
	if err != nil {
		return err
	}
	if val > math.MaxInt64 {
		return errors.New("value is > math.MaxInt64")
	}

	g.Record(ctx, int64(val))
	return nil
}

type versionInfo struct {
	Original string
	Major    uint64
	Minor    uint64
	Patch    uint64
	RC       uint64
}

func parseSemver(ver string) (*versionInfo, error) {
	vi := &versionInfo{
		Original: ver,
	}

	sv, err := semver.NewVersion(normalizeVersion(ver))
	if err != nil {
		return nil, err
	}

	if pre := sv.Prerelease(); strings.HasPrefix(pre, "rc") {
		pre = strings.TrimLeft(strings.TrimPrefix(pre, "rc"), ".-")
		if i := strings.IndexAny(pre, ".-"); i >= 0 {
			pre = pre[:i]
		}
		if rc, err := strconv.ParseUint(pre, 10, 64); err == nil {
			vi.RC = rc
		}
	}

	vi.Major = sv.Major()
	vi.Minor = sv.Minor()
	vi.Patch = sv.Patch()
	return vi, nil
}

func normalizeVersion(ver string) string {
	ver = strings.TrimSpace(ver)
	if strings.HasPrefix(ver, "v") {
		return ver
	}
	return "v" + ver
}

package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveJob(t *testing.T) {
	beforeJobs := testutil.ToFloat64(JobsTotal.WithLabelValues("unit", "done"))
	beforeEnvs := testutil.ToFloat64(EnvelopesTotal.WithLabelValues("unit"))

	ObserveJob("unit", "done", 3, 250*time.Millisecond)
	ObserveJob("unit", "done", 0, time.Second)

	assert.Equal(t, beforeJobs+2, testutil.ToFloat64(JobsTotal.WithLabelValues("unit", "done")))
	assert.Equal(t, beforeEnvs+3, testutil.ToFloat64(EnvelopesTotal.WithLabelValues("unit")))
}

func TestObserveRun(t *testing.T) {
	at := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	before := testutil.ToFloat64(RunsTotal.WithLabelValues("manual", "failed"))

	ObserveRun("manual", "failed", at)

	assert.Equal(t, before+1, testutil.ToFloat64(RunsTotal.WithLabelValues("manual", "failed")))
	assert.Equal(t, float64(at.Unix()), testutil.ToFloat64(LastRunTimestamp))
}

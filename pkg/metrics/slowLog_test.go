// Copyright Contributors to the Open Cluster Management project
package metrics

import (
	"bytes"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/klog/v2"
)

// Should log only when the function took longer than expected.
func Test_SlowLog(t *testing.T) {
	var buf bytes.Buffer
	klog.LogToStderr(false)
	klog.SetOutput(&buf)
	defer func() {
		klog.SetOutput(os.Stderr)
		klog.LogToStderr(true)
	}()

	SlowLog("fast call", time.Hour)()
	klog.Flush()
	assert.NotContains(t, buf.String(), "fast call")

	done := SlowLog("slow call", time.Millisecond)
	time.Sleep(5 * time.Millisecond)
	done()
	klog.Flush()
	assert.Contains(t, buf.String(), "slow call")
}

func Test_ObserveKubeRequest(t *testing.T) {
	ObserveKubeRequest("get", "Namespace", "get Namespace team-a")()

	duration := findMetric(t, "hnc_relay_kube_request_duration")
	require.NotNil(t, duration)
	assert.GreaterOrEqual(t, len(duration.GetMetric()), 1)
}

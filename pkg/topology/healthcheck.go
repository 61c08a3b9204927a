package topology

import (
	"fmt"

	"github.com/gpustack/runtime/pkg/engine"
	"github.com/gpustack/runtime/pkg/plan"
)

// buildHealthCheck synthesizes an engine.HealthCheck from a container's
// first declared Check. Only the first check drives the container's
// native health check and autoheal eligibility; any further checks in
// the slice are reserved for future out-of-band probing.
func buildHealthCheck(c plan.Check) *engine.HealthCheck {
	hc := &engine.HealthCheck{
		Interval:    c.Interval,
		Timeout:     c.Timeout,
		Retries:     c.Retries,
		StartPeriod: c.Delay,
	}

	switch {
	case c.Execution != nil && len(c.Execution.Command) > 0:
		hc.Test = append([]string{"CMD"}, c.Execution.Command...)
	case c.TCP != nil:
		hc.Test = []string{"CMD", "sh", "-c", tcpProbeScript(portOrDefault(c.TCP.Port))}
	case c.HTTP != nil:
		hc.Test = []string{"CMD", "sh", "-c", httpProbeScript("http", c.HTTP.Port, c.HTTP.Path, c.HTTP.Headers)}
	case c.HTTPS != nil:
		hc.Test = []string{"CMD", "sh", "-c", httpProbeScript("https", c.HTTPS.Port, c.HTTPS.Path, c.HTTPS.Headers)}
	default:
		return nil
	}
	return hc
}

func portOrDefault(p int) int {
	if p == 0 {
		return 80
	}
	return p
}

// tcpProbeScript prefers netstat, falls back to nc, and finally greps
// /etc/services - the same fallback chain most minimal container base
// images support one of.
func tcpProbeScript(port int) string {
	return fmt.Sprintf(
		"if [ `command -v netstat` ]; then netstat -an | grep -w %[1]d >/dev/null || exit 1; "+
			"elif [ `command -v nc` ]; then nc -z localhost %[1]d >/dev/null || exit 1 ; "+
			"else cat /etc/services | grep -w %[1]d/tcp >/dev/null || exit 1 ; "+
			"fi",
		port,
	)
}

func httpProbeScript(scheme string, port int, path string, headers map[string]string) string {
	curlOpts := "-fsSL -o /dev/null"
	wgetOpts := "-q -O /dev/null"
	if scheme == "https" {
		curlOpts += " -k"
		wgetOpts += " --no-check-certificate"
	}
	for hk, hv := range headers {
		curlOpts += fmt.Sprintf(" -H '%s: %s'", hk, hv)
		wgetOpts += fmt.Sprintf(" --header='%s: %s'", hk, hv)
	}
	if path == "" {
		path = "/"
	}
	url := fmt.Sprintf("%s://localhost:%d%s", scheme, portOrDefault(port), path)
	return fmt.Sprintf(
		"if [ `command -v curl` ]; then curl %s %s; else wget %s %s; fi",
		curlOpts, url, wgetOpts, url,
	)
}

func firstCheckEnablesAutoheal(c plan.Container) bool {
	return len(c.Checks) > 0 && c.Checks[0].Teardown
}

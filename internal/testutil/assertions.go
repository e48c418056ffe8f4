package testutil

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// AssertStepRan checks the log output to confirm that a step finished.
func AssertStepRan(t *testing.T, result *HarnessResult, runnerType, stepName string) {
	t.Helper()

	stepAttr := fmt.Sprintf("step=step.%s.%s", runnerType, stepName)
	for _, line := range strings.Split(result.LogOutput, "\n") {
		if strings.Contains(line, stepAttr) && strings.Contains(line, "Finished step") {
			return
		}
	}
	require.Fail(t, "step did not finish", "expected a finished log line for step '%s.%s'", runnerType, stepName)
}

// AssertStepNotRan checks that a step never started.
func AssertStepNotRan(t *testing.T, result *HarnessResult, runnerType, stepName string) {
	t.Helper()

	stepAttr := fmt.Sprintf("step=step.%s.%s", runnerType, stepName)
	for _, line := range strings.Split(result.LogOutput, "\n") {
		if strings.Contains(line, stepAttr) && strings.Contains(line, "Starting step") {
			require.Fail(t, "step ran", "step '%s.%s' was not expected to start", runnerType, stepName)
		}
	}
}

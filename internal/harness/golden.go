package harness

import (
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// RunWithGolden executes a scenario file and compares its trace against
// the golden file testdata/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenarioPath string) {
	t.Helper()

	sc, err := LoadScenario(scenarioPath)
	if err != nil {
		t.Fatalf("loading scenario: %v", err)
	}

	runner := &Runner{TempDir: t.TempDir()}
	trace, err := runner.Run(sc)
	if err != nil {
		t.Fatalf("running scenario %s: %v", sc.Name, err)
	}

	data, err := json.MarshalIndent(trace, "", "  ")
	if err != nil {
		t.Fatalf("marshaling trace: %v", err)
	}
	data = append(data, '\n')

	g := goldie.New(t)
	g.Assert(t, sc.Name, data)
}

package harness

import (
	"path/filepath"
	"testing"
)

func TestGolden_StockFlowBasic(t *testing.T) {
	RunWithGolden(t, filepath.Join("testdata", "stock-flow-basic.yaml"))
}

func TestGolden_BranchInvalidation(t *testing.T) {
	RunWithGolden(t, filepath.Join("testdata", "branch-invalidation.yaml"))
}

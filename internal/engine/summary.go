package engine

import (
	"strconv"
	"strings"

	"stubtester/internal/patterns"
	"stubtester/internal/types"
)

// ParseSummary reads the engine's final summary line, for example
// "==== 1 failed, 3 passed in 0.12s ====", into a TestResult. Expected
// failures and unexpected passes count as passed; failures and collection
// errors count against the total; skips are not counted. ok is false when
// no summary line is present.
func ParseSummary(output string) (result types.TestResult, ok bool) {
	lines := strings.Split(strings.TrimRight(output, "\n"), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := lines[i]
		if !strings.Contains(line, " in ") && !strings.Contains(line, "no tests ran") {
			continue
		}
		matches := patterns.SummaryCount.FindAllStringSubmatch(line, -1)
		if len(matches) == 0 {
			if strings.Contains(line, "no tests ran") {
				return types.TestResult{}, true
			}
			continue
		}
		for _, m := range matches {
			n, err := strconv.Atoi(m[1])
			if err != nil {
				continue
			}
			switch m[2] {
			case "passed", "xpassed", "xfailed":
				result.Passed += n
				result.Total += n
			case "failed", "error", "errors":
				result.Total += n
			}
		}
		return result, true
	}
	return types.TestResult{}, false
}

package taxonomy

import (
	"fmt"
	"strings"
)

// WarningCode identifies a data-quality condition.
type WarningCode string

const (
	WarnBatchSize        WarningCode = "batch_size"
	WarnL1Count          WarningCode = "l1_count"
	WarnL2Count          WarningCode = "l2_count"
	WarnDeclaredCount    WarningCode = "declared_count"
	WarnDuplicateName    WarningCode = "duplicate_name"
	WarnMalformedL2      WarningCode = "malformed_l2"
	WarnIndustryMismatch WarningCode = "industry_mismatch"
)

// Warning is a non-fatal data-quality finding. Warnings travel with a
// successful result and never abort a run.
type Warning struct {
	Code    WarningCode `json:"code"`
	Message string      `json:"message"`
	L0      string      `json:"l0,omitempty"`
	L1      string      `json:"l1,omitempty"`
}

func (w Warning) String() string {
	return fmt.Sprintf("[%s] %s", w.Code, w.Message)
}

// CheckBatch compares one L0 batch against the requested shape.
func CheckBatch(b *Batch, industry string, wantL0, wantL1 int) []Warning {
	var warnings []Warning
	if got := strings.TrimSpace(b.Industry); got != "" && !strings.EqualFold(got, strings.TrimSpace(industry)) {
		warnings = append(warnings, Warning{
			Code:    WarnIndustryMismatch,
			Message: fmt.Sprintf("batch names industry %q, requested %q", got, industry),
		})
	}
	if wantL0 > 0 && len(b.L0) != wantL0 {
		warnings = append(warnings, Warning{
			Code:    WarnBatchSize,
			Message: fmt.Sprintf("batch has %d L0 capabilities, requested %d", len(b.L0), wantL0),
		})
	}
	for _, l0 := range b.L0 {
		if wantL1 > 0 && len(l0.L1) != wantL1 {
			warnings = append(warnings, Warning{
				Code:    WarnL1Count,
				Message: fmt.Sprintf("L0 %q has %d L1 capabilities, expected %d", l0.Name, len(l0.L1), wantL1),
				L0:      l0.Name,
			})
		}
	}
	return warnings
}

// CheckL2 inspects the L2 entries returned for one L1. Repeated names are
// only checked within that L1.
func CheckL2(l0, l1 string, entries []L2Entry, want int) []Warning {
	var warnings []Warning
	if want > 0 && len(entries) != want {
		warnings = append(warnings, Warning{
			Code:    WarnL2Count,
			Message: fmt.Sprintf("L1 %q has %d L2 capabilities, expected %d", l1, len(entries), want),
			L0:      l0,
			L1:      l1,
		})
	}
	malformed := 0
	seen := make(map[string]int)
	var dups []string
	for _, e := range entries {
		c, ok := e.Capability()
		if !ok {
			malformed++
			continue
		}
		key := normalizeName(c.Name)
		seen[key]++
		if seen[key] == 2 {
			dups = append(dups, c.Name)
		}
	}
	if malformed > 0 {
		warnings = append(warnings, Warning{
			Code:    WarnMalformedL2,
			Message: fmt.Sprintf("L1 %q has %d malformed L2 entries that will not be exported", l1, malformed),
			L0:      l0,
			L1:      l1,
		})
	}
	for _, name := range dups {
		warnings = append(warnings, Warning{
			Code:    WarnDuplicateName,
			Message: fmt.Sprintf("L2 name %q appears more than once under L1 %q", name, l1),
			L0:      l0,
			L1:      l1,
		})
	}
	return warnings
}

// CheckDeclaredCounts compares the model's declared L0/L1 counts with the
// tree. L2 is skipped because L0 batches always declare 0.
func CheckDeclaredCounts(ind *Industry) []Warning {
	actual := ind.Counts()
	var warnings []Warning
	if ind.Declared.L0 != actual.L0 {
		warnings = append(warnings, Warning{
			Code:    WarnDeclaredCount,
			Message: fmt.Sprintf("declared %d L0 capabilities, found %d", ind.Declared.L0, actual.L0),
		})
	}
	if ind.Declared.L1 != actual.L1 {
		warnings = append(warnings, Warning{
			Code:    WarnDeclaredCount,
			Message: fmt.Sprintf("declared %d L1 capabilities, found %d", ind.Declared.L1, actual.L1),
		})
	}
	return warnings
}

// CheckDuplicates reports L0 and L1 names used more than once
// (case-insensitive). Duplicates are legal data.
func CheckDuplicates(ind *Industry) []Warning {
	var warnings []Warning
	seenL0 := make(map[string]int)
	seenL1 := make(map[string]int)
	for _, l0 := range ind.L0 {
		key := normalizeName(l0.Name)
		seenL0[key]++
		if seenL0[key] == 2 {
			warnings = append(warnings, Warning{
				Code:    WarnDuplicateName,
				Message: fmt.Sprintf("L0 name %q appears more than once", l0.Name),
				L0:      l0.Name,
			})
		}
		for _, l1 := range l0.L1 {
			key := normalizeName(l1.Name)
			seenL1[key]++
			if seenL1[key] == 2 {
				warnings = append(warnings, Warning{
					Code:    WarnDuplicateName,
					Message: fmt.Sprintf("L1 name %q appears more than once", l1.Name),
					L0:      l0.Name,
					L1:      l1.Name,
				})
			}
		}
	}
	return warnings
}

func normalizeName(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

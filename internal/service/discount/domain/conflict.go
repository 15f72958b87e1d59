package domain

import (
	"fmt"
	"strings"
)

// ConflictKind 描述叠加冲突的类型。
type ConflictKind string

const (
	ConflictDuplicateSource ConflictKind = "DUPLICATE_SOURCE_TYPE"
	ConflictNonStackable    ConflictKind = "NON_STACKABLE"
)

// Conflict 是一条叠加冲突，只作报告用，不阻止计算。
type Conflict struct {
	Kind         ConflictKind
	SourceType   SourceType
	CandidateIDs []string
	Message      string
}

// DetectConflicts 检查同一来源出现多个候选、以及不可叠加的候选与其他候选同时出现的情况。
// 输出顺序只取决于候选本身，与输入顺序无关。
func DetectConflicts(candidates []DiscountCandidate) []Conflict {
	conflicts := []Conflict{}
	if len(candidates) < 2 {
		return conflicts
	}
	ordered := SortByPriority(candidates)

	byType := make(map[SourceType][]string)
	for _, c := range ordered {
		byType[c.SourceType] = append(byType[c.SourceType], c.ID)
	}
	for _, st := range AllSourceTypes() {
		ids := byType[st]
		if len(ids) > 1 {
			conflicts = append(conflicts, Conflict{
				Kind:         ConflictDuplicateSource,
				SourceType:   st,
				CandidateIDs: ids,
				Message:      fmt.Sprintf("%d %s discounts apply: %s", len(ids), st, strings.Join(ids, ", ")),
			})
		}
	}

	for _, c := range ordered {
		if c.Stackable {
			continue
		}
		conflicts = append(conflicts, Conflict{
			Kind:         ConflictNonStackable,
			SourceType:   c.SourceType,
			CandidateIDs: []string{c.ID},
			Message:      fmt.Sprintf("discount %q is not stackable but %d other discounts apply", c.Name, len(ordered)-1),
		})
	}
	return conflicts
}

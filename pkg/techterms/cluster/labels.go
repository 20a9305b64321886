package cluster

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/cognicore/techterms/pkg/techterms/lexicon"
)

// SuggestLabel names a cluster after the anchor category sharing the most
// members with it. Ties go to the category declared first. With no overlap
// the label falls back to "Cluster (<first term>)".
func SuggestLabel(terms []string, anchors []lexicon.Anchor) string {
	members := make(map[string]struct{}, len(terms))
	for _, t := range terms {
		members[strings.ToLower(t)] = struct{}{}
	}

	best, bestOverlap := "", 0
	for _, a := range anchors {
		overlap := 0
		for _, t := range a.Terms {
			if _, ok := members[strings.ToLower(t)]; ok {
				overlap++
			}
		}
		if overlap > bestOverlap {
			best, bestOverlap = a.Name, overlap
		}
	}
	if bestOverlap > 0 {
		return cases.Title(language.English).String(strings.ReplaceAll(best, "_", " "))
	}
	if len(terms) == 0 {
		return "Cluster"
	}
	return "Cluster (" + terms[0] + ")"
}

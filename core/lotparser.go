package core

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	mappingPattern      = regexp.MustCompile(`"([^"]+)":"([^"]+)"`)
	mappingMixedPattern = regexp.MustCompile(`"([^"]+)":'([^']+)'`)
	slicePattern        = regexp.MustCompile(`\[(\d+):(\d+)\]`)
)

// LotParser compiles the obfuscated script's lot-number mapping once and
// evaluates it against each lot number. A key pattern is groups joined by
// "+.+", each group a "+"-joined list of n[start:end] slices; the value
// side is a single slice program.
type LotParser struct {
	keyGroups [][][2]int
	value     [][2]int
}

func NewLotParser(mapping string) (*LotParser, error) {
	match := mappingPattern.FindStringSubmatch(mapping)
	if match == nil {
		match = mappingMixedPattern.FindStringSubmatch(mapping)
	}
	if match == nil {
		return nil, fmt.Errorf("invalid lot mapping: %s", mapping)
	}
	keyPattern, valuePattern := match[1], match[2]

	parser := &LotParser{
		value: parseSlices(valuePattern),
	}
	for _, group := range strings.Split(keyPattern, "+.+") {
		parser.keyGroups = append(parser.keyGroups, parseSlices(group))
	}
	return parser, nil
}

func parseSlices(program string) [][2]int {
	var slices [][2]int
	for _, token := range strings.Split(program, "+") {
		m := slicePattern.FindStringSubmatch(token)
		if m == nil {
			continue
		}
		start, _ := strconv.Atoi(m[1])
		end, _ := strconv.Atoi(m[2])
		slices = append(slices, [2]int{start, end})
	}
	return slices
}

// buildString evaluates a slice program against the lot number. Slice ends
// are inclusive and clamp to the lot number length.
func buildString(slices [][2]int, lot string) string {
	var b strings.Builder
	for _, s := range slices {
		start, end := s[0], s[1]+1
		if start > len(lot) {
			start = len(lot)
		}
		if end > len(lot) {
			end = len(lot)
		}
		if start < end {
			b.WriteString(lot[start:end])
		}
	}
	return b.String()
}

// Dict builds the nested map the verify payload carries: one level per
// "."-separated key segment, the value string at every leaf.
func (p *LotParser) Dict(lot string) map[string]interface{} {
	groups := make([]string, 0, len(p.keyGroups))
	for _, g := range p.keyGroups {
		groups = append(groups, buildString(g, lot))
	}
	key := strings.Join(groups, ".")
	value := buildString(p.value, lot)

	result := map[string]interface{}{}
	if key == "" {
		return result
	}

	current := result
	segments := strings.Split(key, ".")
	for i, segment := range segments {
		if i == len(segments)-1 {
			current[segment] = value
			break
		}
		next := map[string]interface{}{}
		current[segment] = next
		current = next
	}
	return result
}

package core

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// DeviceGroup is the instrument family a result column belongs to.
type DeviceGroup string

const (
	GroupPHLFTIT DeviceGroup = "pH-LF-TIT"
	GroupTOC     DeviceGroup = "TOC"
	GroupIC      DeviceGroup = "IC"
	GroupICPOES  DeviceGroup = "ICP-OES"
	GroupOther   DeviceGroup = "Sonstige"
)

// DeviceGroups lists every group in display and sort order.
var DeviceGroups = []DeviceGroup{GroupPHLFTIT, GroupTOC, GroupIC, GroupICPOES, GroupOther}

// Rank returns the position of g in DeviceGroups. Unknown groups sort last.
func (g DeviceGroup) Rank() int {
	for i, dg := range DeviceGroups {
		if dg == g {
			return i
		}
	}
	return len(DeviceGroups)
}

// ParseDeviceGroup accepts a group name case-insensitively.
func ParseDeviceGroup(s string) (DeviceGroup, error) {
	for _, g := range DeviceGroups {
		if strings.EqualFold(string(g), strings.TrimSpace(s)) {
			return g, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownDeviceGroup, s)
}

var phLFTITMarkers = []string{"TIT", "M1.", "M3.", "M8.", "HH+PHM", "LFLFM"}

// Classify maps a header or base parameter name to its device group.
//
// The checks run in a fixed order and the first match wins. "ICP" must be
// tested before "IC" because every ICP header also contains "IC".
func Classify(name string) DeviceGroup {
	upper := strings.ToUpper(name)

	for _, marker := range phLFTITMarkers {
		if strings.Contains(upper, marker) {
			return GroupPHLFTIT
		}
	}
	switch {
	case strings.Contains(upper, "TOC"):
		return GroupTOC
	case strings.Contains(upper, "ICP"):
		return GroupICPOES
	case strings.Contains(upper, "IC"):
		return GroupIC
	default:
		return GroupOther
	}
}

// replicateSuffix matches the instrument-run suffix such as "2.1" in "ICCa2.1".
var replicateSuffix = regexp.MustCompile(`\d+\.\d+$`)

// BaseName strips the replicate suffix from a header, so that repeated
// measurement channels of one analyte collapse to a single parameter.
func BaseName(header string) string {
	return strings.TrimSpace(replicateSuffix.ReplaceAllString(header, ""))
}

var displayPrefix = regexp.MustCompile(`(?i)^(TIT|ICP|IC|TOC)`)

// DisplayLabel removes the instrument prefix for human-readable labels.
// It is cosmetic only and never used for matching.
func DisplayLabel(name string) string {
	label := strings.TrimSpace(displayPrefix.ReplaceAllString(name, ""))
	if label == "" {
		return name
	}
	return label
}

// sortByDeviceGroup orders headers or base names by device group rank, then
// alphabetically. Headers are classified by their base name so that a header
// and its parameter always land in the same group.
func sortByDeviceGroup(names []string) {
	coll := newGermanCollator()
	sort.SliceStable(names, func(i, j int) bool {
		ri, rj := Classify(BaseName(names[i])).Rank(), Classify(BaseName(names[j])).Rank()
		if ri != rj {
			return ri < rj
		}
		return coll.CompareString(names[i], names[j]) < 0
	})
}

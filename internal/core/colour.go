package core

// colour.go assigns every report row a highlight colour from its active
// parameter set. Priority panels (P, S, N) are checked before the device
// group combinations, and the first matching rule wins.

// RowColour is the colour class of a report row.
type RowColour string

const (
	ColourNone     RowColour = ""
	ColourP        RowColour = "P"
	ColourS        RowColour = "S"
	ColourN        RowColour = "N"
	ColourPHLFTIT  RowColour = "pH-LF-TIT"
	ColourTOCIC    RowColour = "TOC+IC"
	ColourICICP    RowColour = "IC+ICP"
	ColourAllGroup RowColour = "ALL"
)

// LegendEntry describes one colour class for report legends.
type LegendEntry struct {
	Colour RowColour `json:"colour"`
	Label  string    `json:"label"`
	Fill   string    `json:"fill"`
}

// Legend lists the colour classes in rule order with their fill colours.
var Legend = []LegendEntry{
	{Colour: ColourP, Label: "Phosphor (PO4, Pges)", Fill: "#F8CBAD"},
	{Colour: ColourS, Label: "Schwefel (SO4, Sges)", Fill: "#FFE699"},
	{Colour: ColourN, Label: "Stickstoff (Nges, NH4, NO2, NO3, Cges)", Fill: "#C6E0B4"},
	{Colour: ColourPHLFTIT, Label: "nur pH-LF-TIT", Fill: "#DDEBF7"},
	{Colour: ColourTOCIC, Label: "TOC + IC", Fill: "#E2CFEA"},
	{Colour: ColourICICP, Label: "IC + ICP-OES", Fill: "#FCE4D6"},
	{Colour: ColourAllGroup, Label: "TOC + IC + ICP-OES", Fill: "#D9D9D9"},
}

// Fill returns the hex fill of c, or "" for ColourNone.
func (c RowColour) Fill() string {
	for _, e := range Legend {
		if e.Colour == c {
			return e.Fill
		}
	}
	return ""
}

// ResolveColour applies the colouring rules to an active parameter set.
func ResolveColour(active ParamSet) RowColour {
	if len(active) == 0 {
		return ColourNone
	}

	for _, set := range ChemicalSets {
		if allMatch(active, set) {
			return colourForSet(set)
		}
	}

	// Sonstige parameters only break the exact-pair rules.
	groups := make(map[DeviceGroup]bool)
	for p := range active {
		groups[Classify(p)] = true
	}
	toc, ic, icp, ph := groups[GroupTOC], groups[GroupIC], groups[GroupICPOES], groups[GroupPHLFTIT]
	other := groups[GroupOther]

	switch {
	case ph && !toc && !ic && !icp:
		return ColourPHLFTIT
	case toc && ic && !icp && !ph && !other:
		return ColourTOCIC
	case ic && icp && !toc && !ph && !other:
		return ColourICICP
	case toc && ic && icp:
		return ColourAllGroup
	default:
		return ColourNone
	}
}

func allMatch(active ParamSet, set ChemicalSet) bool {
	for p := range active {
		if !set.Matches(p) {
			return false
		}
	}
	return true
}

func colourForSet(set ChemicalSet) RowColour {
	switch set {
	case SetPhosphorus:
		return ColourP
	case SetSulfur:
		return ColourS
	default:
		return ColourN
	}
}

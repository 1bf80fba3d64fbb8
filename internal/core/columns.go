package core

import (
	"fmt"
	"math"
	"strings"

	"github.com/hashicorp/go-multierror"
)

// Semantic identifies a column with a fixed meaning in the ion-balance check.
type Semantic string

const (
	ColumnAlkalinity    Semantic = "alkalinity"
	ColumnCorg          Semantic = "corg"
	ColumnLFPrimary     Semantic = "lf_primary"
	ColumnLFFallback    Semantic = "lf_fallback"
	ColumnIonQuotient   Semantic = "ion_quotient"
	ColumnELFQuotient   Semantic = "elf_quotient"
	ColumnTheoreticalLF Semantic = "theoretical_lf"
)

var semanticColumns = []Semantic{
	ColumnAlkalinity, ColumnCorg, ColumnLFPrimary, ColumnLFFallback,
	ColumnIonQuotient, ColumnELFQuotient, ColumnTheoreticalLF,
}

// ColumnNames holds the exact header names of the semantic columns.
// Alkalinity is matched by case-insensitive prefix, the rest exactly.
type ColumnNames struct {
	IonQuotient      string
	ELFQuotient      string
	TheoreticalLF    string
	Corg             string
	LFPrimary        string
	LFFallback       string
	AlkalinityPrefix string
}

// DefaultColumnNames returns the header names used by the lab exports.
func DefaultColumnNames() ColumnNames {
	return ColumnNames{
		IonQuotient:      "Ionenbilanz Quotient",
		ELFQuotient:      "ELF Quotient",
		TheoreticalLF:    "LF theoretisch",
		Corg:             "Corg berechnet",
		LFPrimary:        "LFLFLFM3.1",
		LFFallback:       "LFLFLFM1.3",
		AlkalinityPrefix: "alkalinität-gran",
	}
}

// ColumnResolver locates semantic columns in a dataset's header list.
// Lookups of columns that are not present fail with ErrColumnNotFound
// instead of yielding an empty value.
type ColumnResolver struct {
	headers map[Semantic]string
	names   ColumnNames
}

// NewColumnResolver resolves every semantic column against headers.
func NewColumnResolver(headers []string, names ColumnNames) *ColumnResolver {
	present := make(map[string]bool, len(headers))
	for _, h := range headers {
		present[h] = true
	}

	resolved := make(map[Semantic]string, len(semanticColumns))
	exact := map[Semantic]string{
		ColumnCorg:          names.Corg,
		ColumnLFPrimary:     names.LFPrimary,
		ColumnLFFallback:    names.LFFallback,
		ColumnIonQuotient:   names.IonQuotient,
		ColumnELFQuotient:   names.ELFQuotient,
		ColumnTheoreticalLF: names.TheoreticalLF,
	}
	for sem, name := range exact {
		if present[name] {
			resolved[sem] = name
		}
	}

	prefix := strings.ToLower(names.AlkalinityPrefix)
	for _, h := range headers {
		if strings.HasPrefix(strings.ToLower(h), prefix) {
			resolved[ColumnAlkalinity] = h
			break
		}
	}

	return &ColumnResolver{headers: resolved, names: names}
}

// Header returns the header name of a semantic column.
func (c *ColumnResolver) Header(sem Semantic) (string, error) {
	h, ok := c.headers[sem]
	if !ok {
		return "", fmt.Errorf("%w: %s (%q)", ErrColumnNotFound, sem, c.expected(sem))
	}
	return h, nil
}

// Value returns the record's raw value in a semantic column.
func (c *ColumnResolver) Value(rec LabRecord, sem Semantic) (string, error) {
	h, err := c.Header(sem)
	if err != nil {
		return "", err
	}
	return rec.Value(h), nil
}

// Number parses the record's value in a semantic column. A column that is
// not present yields NaN together with the lookup error.
func (c *ColumnResolver) Number(rec LabRecord, sem Semantic) (float64, error) {
	v, err := c.Value(rec, sem)
	if err != nil {
		return math.NaN(), err
	}
	return ParseDecimal(v), nil
}

// Missing reports every semantic column absent from the dataset, or nil.
func (c *ColumnResolver) Missing() error {
	var result *multierror.Error
	for _, sem := range semanticColumns {
		if _, err := c.Header(sem); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

// MissingColumns lists the expected names of absent semantic columns.
func (c *ColumnResolver) MissingColumns() []string {
	var missing []string
	for _, sem := range semanticColumns {
		if _, ok := c.headers[sem]; !ok {
			missing = append(missing, c.expected(sem))
		}
	}
	return missing
}

func (c *ColumnResolver) expected(sem Semantic) string {
	switch sem {
	case ColumnAlkalinity:
		return c.names.AlkalinityPrefix + "*"
	case ColumnCorg:
		return c.names.Corg
	case ColumnLFPrimary:
		return c.names.LFPrimary
	case ColumnLFFallback:
		return c.names.LFFallback
	case ColumnIonQuotient:
		return c.names.IonQuotient
	case ColumnELFQuotient:
		return c.names.ELFQuotient
	case ColumnTheoreticalLF:
		return c.names.TheoreticalLF
	}
	return string(sem)
}

package lens

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// labelLines returns the tree label as diffable lines, most specific frame first.
func labelLines(v *Variant) []string {
	lines := make([]string, len(v.TreeLabel))
	for i, l := range v.TreeLabel {
		lines[i] = l.String() + "\n"
	}
	return lines
}

// DiffVariants provides a unified diff of the tree labels of two variants. If the labels are identical an empty string
// is returned.
func DiffVariants(fromName VariantName, from *Variant, toName VariantName, to *Variant) (string, error) {
	a, b := labelLines(from), labelLines(to)
	if strings.Join(a, "") == strings.Join(b, "") {
		return "", nil
	}
	diff := difflib.UnifiedDiff{
		A:        a,
		B:        b,
		FromFile: string(fromName),
		ToFile:   string(toName),
		Context:  1,
	}
	return difflib.GetUnifiedDiffString(diff)
}

// VariantDiff explains what each depth adds by diffing every variant against the next deeper one. Depths producing an
// identical label are skipped.
func VariantDiff(variants Variants) (string, error) {
	names := variants.Names()
	var sb strings.Builder
	for i := 1; i < len(names); i++ {
		diff, err := DiffVariants(names[i-1], variants[names[i-1]], names[i], variants[names[i]])
		if err != nil {
			return "", err
		}
		sb.WriteString(diff)
	}
	return sb.String(), nil
}

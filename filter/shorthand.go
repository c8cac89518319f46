package filter

import (
	"fmt"
	"regexp"
	"strings"
)

// shorthandRule rewrites one field:"value" term into expr syntax
type shorthandRule struct {
	pattern *regexp.Regexp
	rewrite func(m []string) string
}

// Rules are applied in order; each consumes its terms before the next runs
var shorthandRules = []shorthandRule{
	// tag:"water" or tag!:"water"
	{regexp.MustCompile(`\btag(!?):"([^"]+)"`), func(m []string) string {
		return negate(m[1], fmt.Sprintf(`hasTag(%q)`, m[2]))
	}},
	// file:"*.csv"
	{regexp.MustCompile(`\bfile(!?):"([^"]+)"`), func(m []string) string {
		return negate(m[1], fmt.Sprintf(`hasFile(%q)`, m[2]))
	}},
	// facet:"Shapefile"
	{regexp.MustCompile(`\bfacet(!?):"([^"]+)"`), func(m []string) string {
		return negate(m[1], fmt.Sprintf(`hasFacet(%q)`, m[2]))
	}},
	// type:"Data Release"
	{regexp.MustCompile(`\btype(!?):"([^"]+)"`), func(m []string) string {
		return negate(m[1], fmt.Sprintf(`isType(%q)`, m[2]))
	}},
	// title:"lake" is a case-insensitive substring match
	{regexp.MustCompile(`\btitle(!?):"([^"]+)"`), func(m []string) string {
		return negate(m[1], fmt.Sprintf(`containsFold(Title, %q)`, m[2]))
	}},
	// parent:"4f4e..."
	{regexp.MustCompile(`\bparent(!?):"([^"]+)"`), func(m []string) string {
		return negate(m[1], fmt.Sprintf(`ParentID == %q`, m[2]))
	}},
	// created_before:"2020-01-01", updated_after:"2023-06-30"
	{regexp.MustCompile(`\b(created|updated)_(before|after):"([^"]+)"`), func(m []string) string {
		op := "<"
		if m[2] == "after" {
			op = ">"
		}
		field := "Created"
		if m[1] == "updated" {
			field = "Updated"
		}
		return fmt.Sprintf(`(!%s.IsZero() and %s %s parseDate(%q))`, field, field, op, m[3])
	}},
	// files:>3
	{regexp.MustCompile(`\bfiles:([<>]=?|==)(\d+)`), func(m []string) string {
		return fmt.Sprintf(`FileCount %s %s`, m[1], m[2])
	}},
}

var shorthandMarkers = []string{
	"tag:", "tag!:", "file:", "file!:", "facet:", "facet!:", "type:", "type!:",
	"title:", "title!:", "parent:", "parent!:", "created_before:", "created_after:",
	"updated_before:", "updated_after:", "files:",
}

func negate(bang, expression string) string {
	if bang == "!" {
		return "not " + expression
	}
	return expression
}

// IsShorthand reports whether expression uses the field:"value" syntax
func IsShorthand(expression string) bool {
	for _, marker := range shorthandMarkers {
		if strings.Contains(expression, marker) {
			return true
		}
	}
	return false
}

// ConvertShorthand rewrites field:"value" terms joined by AND, OR and NOT
// into an expr expression
func ConvertShorthand(expression string) string {
	out := strings.TrimSpace(expression)
	if out == "" {
		return ""
	}

	out = strings.ReplaceAll(out, " AND ", " and ")
	out = strings.ReplaceAll(out, " OR ", " or ")
	out = strings.ReplaceAll(out, "NOT ", "not ")

	for _, rule := range shorthandRules {
		out = rule.pattern.ReplaceAllStringFunc(out, func(match string) string {
			return rule.rewrite(rule.pattern.FindStringSubmatch(match))
		})
	}
	return out
}

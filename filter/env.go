package filter

import (
	"path"
	"slices"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"github.com/usgs/sbgo/sciencebase"
)

// addHelperFunctions adds the item-independent helpers to env
func addHelperFunctions(env map[string]any) {
	env["daysSince"] = func(t time.Time) int {
		if t.IsZero() {
			return 0
		}
		return int(time.Since(t).Hours() / 24)
	}
	env["daysAgo"] = func(days int) time.Time {
		return time.Now().AddDate(0, 0, -days)
	}
	env["monthsAgo"] = func(months int) time.Time {
		return time.Now().AddDate(0, -months, 0)
	}
	env["yearsAgo"] = func(years int) time.Time {
		return time.Now().AddDate(-years, 0, 0)
	}
	env["parseDate"] = func(s string) time.Time {
		t, _ := dateparse.ParseAny(s)
		return t
	}
	env["containsFold"] = func(s, substr string) bool {
		return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
	}
	env["lower"] = strings.ToLower
	env["upper"] = strings.ToUpper
	env["now"] = time.Now
}

// itemFacts is what the filter environment exposes about one item
type itemFacts struct {
	tags        []string
	fileNames   []string
	size        int64
	facets      []string
	systemTypes []string
	categories  []string
	created     time.Time
	updated     time.Time
	createdBy   string
	updatedBy   string
}

func collectFacts(item sciencebase.Item) itemFacts {
	var f itemFacts

	f.tags = names(item["tags"], "name")
	f.systemTypes = strs(item["systemTypes"])
	f.categories = strs(item["browseCategories"])

	if files, err := item.Files(); err == nil {
		for _, file := range files {
			f.fileNames = append(f.fileNames, file.Name)
			f.size += file.Size
		}
	}
	if facets, err := item.Facets(); err == nil {
		for _, facet := range facets {
			f.facets = append(f.facets, facet.ClassName)
			for _, file := range facet.Files {
				f.fileNames = append(f.fileNames, file.Name)
				f.size += file.Size
			}
		}
	}

	if prov, ok := item["provenance"].(map[string]any); ok {
		f.created = parseTime(prov["dateCreated"])
		f.updated = parseTime(prov["lastUpdated"])
		f.createdBy, _ = prov["createdBy"].(string)
		f.updatedBy, _ = prov["lastUpdatedBy"].(string)
	}
	return f
}

func parseTime(v any) time.Time {
	s, ok := v.(string)
	if !ok || s == "" {
		return time.Time{}
	}
	t, err := dateparse.ParseAny(s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// names pulls key out of every object in a JSON array
func names(v any, key string) []string {
	list, _ := v.([]any)
	out := make([]string, 0, len(list))
	for _, entry := range list {
		if m, ok := entry.(map[string]any); ok {
			if s, ok := m[key].(string); ok {
				out = append(out, s)
			}
		}
	}
	return out
}

func strs(v any) []string {
	list, _ := v.([]any)
	out := make([]string, 0, len(list))
	for _, entry := range list {
		if s, ok := entry.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// createRuntimeEnvironment builds the variables and item helpers one
// evaluation sees
func createRuntimeEnvironment(item sciencebase.Item) map[string]any {
	facts := collectFacts(item)

	env := make(map[string]any, 40)
	addHelperFunctions(env)

	env["Item"] = map[string]any(item)
	env["ID"] = item.ID()
	env["Title"] = item.Title()
	env["ParentID"] = item.ParentID()
	env["Summary"], _ = item["summary"].(string)
	env["HasChildren"], _ = item["hasChildren"].(bool)
	env["Tags"] = facts.tags
	env["Files"] = facts.fileNames
	env["FileCount"] = len(facts.fileNames)
	env["Size"] = facts.size
	env["Facets"] = facts.facets
	env["SystemTypes"] = facts.systemTypes
	env["Categories"] = facts.categories
	env["Created"] = facts.created
	env["Updated"] = facts.updated
	env["CreatedBy"] = facts.createdBy
	env["UpdatedBy"] = facts.updatedBy

	env["hasTag"] = createHasTagFunc(facts.tags)
	env["hasFile"] = createHasFileFunc(facts.fileNames)
	env["hasFacet"] = createHasFacetFunc(facts.facets)
	env["isType"] = createIsTypeFunc(facts.systemTypes)
	env["field"] = func(key string) any {
		return item[key]
	}

	return env
}

func createHasTagFunc(tags []string) func(string) bool {
	lowerTags := make([]string, len(tags))
	for i, tag := range tags {
		lowerTags[i] = strings.ToLower(tag)
	}
	return func(tag string) bool {
		return slices.Contains(lowerTags, strings.ToLower(tag))
	}
}

// createHasFileFunc matches file names against a shell pattern such as "*.csv"
func createHasFileFunc(fileNames []string) func(string) bool {
	return func(pattern string) bool {
		for _, name := range fileNames {
			if ok, _ := path.Match(pattern, name); ok {
				return true
			}
		}
		return false
	}
}

// createHasFacetFunc matches the full facet class name or its last segment
func createHasFacetFunc(facets []string) func(string) bool {
	return func(name string) bool {
		for _, class := range facets {
			short := class[strings.LastIndex(class, ".")+1:]
			if strings.EqualFold(class, name) || strings.EqualFold(short, name) {
				return true
			}
		}
		return false
	}
}

func createIsTypeFunc(systemTypes []string) func(string) bool {
	return func(t string) bool {
		for _, st := range systemTypes {
			if strings.EqualFold(st, t) {
				return true
			}
		}
		return false
	}
}

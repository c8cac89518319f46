package filter

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/usgs/sbgo/sciencebase"
)

func testItem() sciencebase.Item {
	return sciencebase.Item{
		"id":          "item-1",
		"title":       "Lake Survey 2023",
		"parentId":    "parent-1",
		"summary":     "Bathymetry of small lakes",
		"hasChildren": true,
		"tags": []any{
			map[string]any{"type": "Theme", "name": "Water"},
			map[string]any{"type": "Place", "name": "Minnesota"},
		},
		"systemTypes":      []any{"Data Release"},
		"browseCategories": []any{"Data"},
		"files": []any{
			map[string]any{"name": "depths.csv", "size": float64(1500)},
			map[string]any{"name": "readme.txt", "size": float64(200)},
		},
		"facets": []any{
			map[string]any{
				"className": "gov.sciencebase.catalog.item.facet.ShapefileFacet",
				"name":      "shorelines",
				"files": []any{
					map[string]any{"name": "shorelines.shp", "size": float64(300)},
				},
			},
		},
		"provenance": map[string]any{
			"dateCreated":   time.Now().AddDate(-1, 0, 0).UTC().Format(time.RFC3339),
			"lastUpdated":   time.Now().AddDate(0, 0, -2).UTC().Format(time.RFC3339),
			"createdBy":     "jdoe@usgs.gov",
			"lastUpdatedBy": "asmith@usgs.gov",
		},
		"customKey": "custom",
	}
}

func TestCompileFilter(t *testing.T) {
	tests := []struct {
		name        string
		expression  string
		wantErr     bool
		errContains string
	}{
		{
			name:       "valid expression",
			expression: `hasTag("water")`,
		},
		{
			name:        "empty expression",
			expression:  "   ",
			wantErr:     true,
			errContains: "empty expression",
		},
		{
			name:       "invalid syntax",
			expression: `hasTag("unclosed`,
			wantErr:    true,
		},
		{
			name:       "not a bool",
			expression: `FileCount + 1`,
			wantErr:    true,
		},
		{
			name:       "complex expression",
			expression: `hasTag("water") and FileCount > 1 and Created < daysAgo(30) and hasFacet("ShapefileFacet")`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			filter, err := CompileFilter(tt.expression)

			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error but got none")
				}
				var compErr *CompilationError
				if !errors.As(err, &compErr) {
					t.Errorf("expected CompilationError, got %T", err)
				}
				if tt.errContains != "" && !strings.Contains(err.Error(), tt.errContains) {
					t.Errorf("error %q does not contain %q", err.Error(), tt.errContains)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if filter.Expression() != tt.expression {
				t.Errorf("Expression() = %q, want %q", filter.Expression(), tt.expression)
			}
		})
	}
}

func TestFilterEvaluation(t *testing.T) {
	item := testItem()

	tests := []struct {
		name       string
		expression string
		want       bool
	}{
		{"has tag case insensitive", `hasTag("water")`, true},
		{"missing tag", `hasTag("geology")`, false},
		{"tag membership", `"Minnesota" in Tags`, true},
		{"file pattern", `hasFile("*.csv")`, true},
		{"facet file pattern", `hasFile("*.shp")`, true},
		{"no matching file", `hasFile("*.nc")`, false},
		{"facet short name", `hasFacet("ShapefileFacet")`, true},
		{"facet full name", `hasFacet("gov.sciencebase.catalog.item.facet.ShapefileFacet")`, true},
		{"system type", `isType("data release")`, true},
		{"created before", `Created < daysAgo(30)`, true},
		{"updated recently", `Updated > daysAgo(7)`, true},
		{"days since created", `daysSince(Created) >= 364`, true},
		{"file count", `FileCount == 3`, true},
		{"total size", `Size == 2000`, true},
		{"title contains fold", `containsFold(Title, "LAKE")`, true},
		{"parent", `ParentID == "parent-1"`, true},
		{"creator", `CreatedBy == "jdoe@usgs.gov" and UpdatedBy != CreatedBy`, true},
		{"raw field", `field("customKey") == "custom"`, true},
		{"raw item map", `Item.summary == Summary`, true},
		{"has children", `HasChildren`, true},
		{"category", `"Data" in Categories`, true},
		{"parse date", `Created > parseDate("2001-01-01")`, true},
		{"negation", `not hasTag("water")`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			filter, err := CompileFilter(tt.expression)
			if err != nil {
				t.Fatalf("failed to compile filter: %v", err)
			}

			got, err := filter.Match(item)
			if err != nil {
				t.Fatalf("failed to evaluate filter: %v", err)
			}
			if got != tt.want {
				t.Errorf("Match() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFilterEvaluationSparseItem(t *testing.T) {
	item := sciencebase.Item{"id": "bare", "title": "Bare"}

	tests := []struct {
		expression string
		want       bool
	}{
		{`Created.IsZero()`, true},
		{`FileCount == 0`, true},
		{`hasTag("water")`, false},
		{`len(Tags) == 0`, true},
		{`ParentID == ""`, true},
	}

	for _, tt := range tests {
		filter, err := CompileFilter(tt.expression)
		if err != nil {
			t.Fatalf("failed to compile %q: %v", tt.expression, err)
		}
		got, err := filter.Match(item)
		if err != nil {
			t.Fatalf("failed to evaluate %q: %v", tt.expression, err)
		}
		if got != tt.want {
			t.Errorf("%s: Match() = %v, want %v", tt.expression, got, tt.want)
		}
	}
}

func TestEvaluationError(t *testing.T) {
	errBoom := errors.New("boom")
	compiler := NewExprCompiler(WithCustomFunctions(map[string]any{
		"check": func(id string) (bool, error) {
			if id == "item-bad" {
				return false, errBoom
			}
			return true, nil
		},
	}))

	filter, err := compiler.Compile(`check(ID)`)
	if err != nil {
		t.Fatalf("failed to compile filter: %v", err)
	}

	_, err = filter.Match(sciencebase.Item{"id": "item-bad"})
	var evalErr *EvaluationError
	if !errors.As(err, &evalErr) {
		t.Fatalf("expected EvaluationError, got %v", err)
	}
	if evalErr.ItemID != "item-bad" {
		t.Errorf("ItemID = %q, want item-bad", evalErr.ItemID)
	}

	items := []sciencebase.Item{{"id": "item-1"}, {"id": "item-bad"}, {"id": "item-2"}}
	evaluator := NewConcurrentEvaluator()
	defer evaluator.Stop(context.Background())

	matches, err := evaluator.Evaluate(context.Background(), filter, items)
	if err == nil {
		t.Fatal("expected aggregated error")
	}
	if len(matches) != 2 || matches[0].ID() != "item-1" || matches[1].ID() != "item-2" {
		t.Errorf("unexpected matches: %v", matches)
	}
}

func TestConcurrentEvaluator(t *testing.T) {
	ctx := context.Background()
	items := generateTestItems(1000)

	filter, err := CompileFilter(`hasTag("geology") and hasFile("*.csv")`)
	if err != nil {
		t.Fatalf("failed to compile filter: %v", err)
	}

	sequential := NewConcurrentEvaluator(WithWorkers(1), WithBatchSize(len(items)+1))
	defer sequential.Stop(ctx)
	concurrent := NewConcurrentEvaluator(WithWorkers(4), WithBatchSize(50))
	defer concurrent.Stop(ctx)

	want, err := sequential.Evaluate(ctx, filter, items)
	if err != nil {
		t.Fatalf("sequential evaluation failed: %v", err)
	}
	got, err := concurrent.Evaluate(ctx, filter, items)
	if err != nil {
		t.Fatalf("concurrent evaluation failed: %v", err)
	}

	if len(want) == 0 {
		t.Fatal("expected some matches")
	}
	if len(got) != len(want) {
		t.Fatalf("got %d matches, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].ID() != want[i].ID() {
			t.Errorf("match %d = %s, want %s", i, got[i].ID(), want[i].ID())
		}
	}
}

func TestConcurrentEvaluatorEmpty(t *testing.T) {
	evaluator := NewConcurrentEvaluator()
	defer evaluator.Stop(context.Background())

	filter, err := CompileFilter(`true`)
	if err != nil {
		t.Fatalf("failed to compile filter: %v", err)
	}

	got, err := evaluator.Evaluate(context.Background(), filter, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil result, got %v", got)
	}
}

func TestConcurrentEvaluatorCancelled(t *testing.T) {
	evaluator := NewConcurrentEvaluator(WithWorkers(2), WithBatchSize(10))
	defer evaluator.Stop(context.Background())

	filter, err := CompileFilter(`true`)
	if err != nil {
		t.Fatalf("failed to compile filter: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = evaluator.Evaluate(ctx, filter, generateTestItems(100))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestCompilerCache(t *testing.T) {
	compiler := NewExprCompiler(WithCache(2))

	first, err := compiler.Compile(`hasTag("water")`)
	if err != nil {
		t.Fatalf("failed to compile: %v", err)
	}
	second, err := compiler.Compile(`hasTag("water")`)
	if err != nil {
		t.Fatalf("failed to compile: %v", err)
	}
	if first != second {
		t.Error("expected cached filter to be reused")
	}
	if compiler.Size() != 1 {
		t.Errorf("Size() = %d, want 1", compiler.Size())
	}

	for _, expr := range []string{`FileCount > 1`, `Size > 0`} {
		if _, err := compiler.Compile(expr); err != nil {
			t.Fatalf("failed to compile %q: %v", expr, err)
		}
	}
	if compiler.Size() != 2 {
		t.Errorf("Size() = %d after eviction, want 2", compiler.Size())
	}

	compiler.Clear()
	if compiler.Size() != 0 {
		t.Errorf("Size() = %d after Clear, want 0", compiler.Size())
	}

	uncached := NewExprCompiler()
	if _, err := uncached.Compile(`true`); err != nil {
		t.Fatalf("failed to compile: %v", err)
	}
	if uncached.Size() != 0 {
		t.Errorf("uncached Size() = %d, want 0", uncached.Size())
	}
}

func TestLRUCacheEviction(t *testing.T) {
	cache := newLRUCache[int](2)
	cache.Put("a", 1)
	cache.Put("b", 2)

	// Touch a so b is the oldest
	if v, ok := cache.Get("a"); !ok || v != 1 {
		t.Fatalf("Get(a) = %d, %v", v, ok)
	}
	cache.Put("c", 3)

	if _, ok := cache.Get("b"); ok {
		t.Error("expected b to be evicted")
	}
	if _, ok := cache.Get("a"); !ok {
		t.Error("expected a to survive")
	}
	if _, ok := cache.Get("c"); !ok {
		t.Error("expected c to be cached")
	}
}

func TestManager(t *testing.T) {
	ctx := context.Background()
	manager := NewManager()
	defer manager.Close(ctx)

	err := manager.RegisterFilters(map[string]string{
		"csv":   `hasFile("*.csv")`,
		"water": `tag:"water"`,
	})
	if err != nil {
		t.Fatalf("failed to register filters: %v", err)
	}

	names := manager.ListFilters()
	if fmt.Sprint(names) != "[csv water]" {
		t.Errorf("ListFilters() = %v", names)
	}

	filter, ok := manager.GetFilter("water")
	if !ok {
		t.Fatal("expected water filter")
	}
	if filter.Expression() != `hasTag("water")` {
		t.Errorf("shorthand not converted: %q", filter.Expression())
	}

	items := []sciencebase.Item{testItem(), {"id": "dry", "title": "Dry"}}
	matches, err := manager.EvaluateFilter(ctx, "water", items)
	if err != nil {
		t.Fatalf("failed to evaluate: %v", err)
	}
	if len(matches) != 1 || matches[0].ID() != "item-1" {
		t.Errorf("unexpected matches: %v", matches)
	}

	if _, err := manager.EvaluateFilter(ctx, "missing", items); err == nil {
		t.Error("expected error for unknown filter")
	}
}

func TestManagerRegisterAllOrNothing(t *testing.T) {
	manager := NewManager()
	defer manager.Close(context.Background())

	err := manager.RegisterFilters(map[string]string{
		"good": `hasTag("water")`,
		"bad":  `hasTag(`,
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if len(manager.ListFilters()) != 0 {
		t.Errorf("expected no filters registered, got %v", manager.ListFilters())
	}
}

func TestConvertShorthand(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{`tag:"water"`, `hasTag("water")`},
		{`tag!:"water"`, `not hasTag("water")`},
		{`tag:"water" AND file:"*.csv"`, `hasTag("water") and hasFile("*.csv")`},
		{`facet:"Shapefile" OR type:"Data Release"`, `hasFacet("Shapefile") or isType("Data Release")`},
		{`NOT title:"draft"`, `not containsFold(Title, "draft")`},
		{`parent:"abc123"`, `ParentID == "abc123"`},
		{`created_before:"2020-01-01"`, `(!Created.IsZero() and Created < parseDate("2020-01-01"))`},
		{`updated_after:"2023-06-30"`, `(!Updated.IsZero() and Updated > parseDate("2023-06-30"))`},
		{`files:>3`, `FileCount > 3`},
		{`files:==0 AND tag:"x"`, `FileCount == 0 and hasTag("x")`},
		{`  `, ``},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ConvertShorthand(tt.input); got != tt.want {
				t.Errorf("ConvertShorthand(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestShorthandEvaluation(t *testing.T) {
	manager := NewManager()
	defer manager.Close(context.Background())

	tests := []struct {
		expression string
		want       bool
	}{
		{`tag:"water" AND file:"*.csv"`, true},
		{`created_before:"2000-01-01"`, false},
		{`updated_after:"2000-01-01"`, true},
		{`files:>5`, false},
		{`title:"lake" AND NOT tag:"geology"`, true},
	}

	for _, tt := range tests {
		filter, err := manager.Compile(tt.expression)
		if err != nil {
			t.Fatalf("failed to compile %q: %v", tt.expression, err)
		}
		got, err := filter.Match(testItem())
		if err != nil {
			t.Fatalf("failed to evaluate %q: %v", tt.expression, err)
		}
		if got != tt.want {
			t.Errorf("%s: Match() = %v, want %v", tt.expression, got, tt.want)
		}
	}
}

func TestIsShorthand(t *testing.T) {
	if !IsShorthand(`tag:"water"`) {
		t.Error("expected tag term to be shorthand")
	}
	if IsShorthand(`hasTag("water")`) {
		t.Error("expected expr syntax not to be shorthand")
	}
}

func TestWorkerPoolStop(t *testing.T) {
	pool := NewWorkerPool(2)

	done := make(chan struct{}, 4)
	for range 4 {
		if err := pool.Submit(context.Background(), func() { done <- struct{}{} }); err != nil {
			t.Fatalf("submit failed: %v", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.Stop(ctx); err != nil {
		t.Fatalf("stop failed: %v", err)
	}
	if len(done) != 4 {
		t.Errorf("expected queued work to finish, %d of 4 ran", len(done))
	}

	if err := pool.Submit(context.Background(), func() {}); !errors.Is(err, ErrPoolStopped) {
		t.Errorf("expected ErrPoolStopped, got %v", err)
	}
	if err := pool.Stop(ctx); err != nil {
		t.Errorf("second stop failed: %v", err)
	}
}

package logger

import (
	"fmt"
	"strings"
	"sync/atomic"
)

// Category is a bit in the logging category mask.
type Category uint64

// Logging categories.
const (
	CategoryError      Category = 1 << 0
	CategoryInfo       Category = 1 << 1
	CategoryDebug      Category = 1 << 2
	CategoryLiteVNA    Category = 1 << 3
	CategoryHTTPServer Category = 1 << 4

	CategoryAll Category = ^Category(0)

	// DefaultCategories is the mask used when none is configured.
	DefaultCategories = CategoryInfo | CategoryError
)

var categoryNames = []struct {
	name string
	cat  Category
}{
	{"error", CategoryError},
	{"info", CategoryInfo},
	{"debug", CategoryDebug},
	{"lite_vna", CategoryLiteVNA},
	{"http_server", CategoryHTTPServer},
}

// Has reports whether every bit of other is set in c.
func (c Category) Has(other Category) bool {
	return other != 0 && c&other == other
}

// String returns the comma separated category names set in c.
func (c Category) String() string {
	if c == CategoryAll {
		return "all"
	}

	names := make([]string, 0, len(categoryNames))
	for _, cn := range categoryNames {
		if c&cn.cat != 0 {
			names = append(names, cn.name)
		}
	}

	return strings.Join(names, ",")
}

// ParseCategories parses a comma separated list such as "lite_vna,info,error".
// Empty entries are ignored; "all" enables every category.
func ParseCategories(s string) (Category, error) {
	var mask Category

	for _, entry := range strings.Split(s, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		if entry == "all" {
			mask |= CategoryAll
			continue
		}

		found := false
		for _, cn := range categoryNames {
			if cn.name == entry {
				mask |= cn.cat
				found = true

				break
			}
		}

		if !found {
			return 0, fmt.Errorf("category `%s` is invalid", entry)
		}
	}

	return mask, nil
}

// categoryFilter is the mask shared by a logger and all of its children.
type categoryFilter struct {
	mask atomic.Uint64
}

func newCategoryFilter(mask Category) *categoryFilter {
	f := &categoryFilter{}
	f.mask.Store(uint64(mask))

	return f
}

func (f *categoryFilter) get() Category {
	return Category(f.mask.Load())
}

func (f *categoryFilter) set(mask Category) {
	f.mask.Store(uint64(mask))
}

// allows applies the category rules to a record at level logged by a logger bound to component.
func (f *categoryFilter) allows(level LogLevel, component Category) bool {
	mask := f.get()

	switch {
	case level >= ErrorLevel:
		return mask.Has(CategoryError)
	case level >= InfoLevel:
		return mask.Has(CategoryInfo)
	case component != 0:
		return mask.Has(component)
	default:
		return mask.Has(CategoryDebug)
	}
}

package tags

import (
	"regexp"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/sahilm/fuzzy"
)

var tagRE = regexp.MustCompile(`#[\p{L}\p{N}_-]+`)

// Extract returns the distinct #tags found in text, in first-seen order.
func Extract(text string) []string {
	found := tagRE.FindAllString(text, -1)
	seen := make(map[string]bool, len(found))
	out := make([]string, 0, len(found))
	for _, t := range found {
		if seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// Normalize returns tag with a leading '#', or "" for blank input.
func Normalize(tag string) string {
	tag = strings.TrimSpace(tag)
	if tag == "" || tag == "#" {
		return ""
	}
	if !strings.HasPrefix(tag, "#") {
		tag = "#" + tag
	}
	return tag
}

// Has reports whether text contains tag as a whole token.
func Has(text, tag string) bool {
	tag = Normalize(tag)
	if tag == "" {
		return false
	}
	for _, t := range tagRE.FindAllString(text, -1) {
		if t == tag {
			return true
		}
	}
	return false
}

// Registry accumulates the tags seen across a session.
type Registry struct {
	mu   sync.Mutex
	tags map[string]struct{}
}

func NewRegistry() *Registry {
	return &Registry{tags: map[string]struct{}{}}
}

// Add records tags; blank entries are ignored. It reports whether anything new was added.
func (r *Registry) Add(tags ...string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	added := false
	for _, t := range tags {
		t = Normalize(t)
		if t == "" {
			continue
		}
		if _, ok := r.tags[t]; !ok {
			r.tags[t] = struct{}{}
			added = true
		}
	}
	return added
}

// All returns every known tag sorted alphabetically.
func (r *Registry) All() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.tags))
	for t := range r.tags {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Suggest returns known tags matching the partial tag prefix (e.g. "#t"), sorted alphabetically.
// Matching is fuzzy but anchored: the first typed character must start the tag name.
func (r *Registry) Suggest(prefix string) []string {
	prefix = Normalize(prefix)
	if prefix == "" {
		return nil
	}
	all := r.All()
	out := []string{}
	for _, m := range fuzzy.Find(prefix, all) {
		if len(m.MatchedIndexes) > 1 && m.MatchedIndexes[1] != 1 {
			continue
		}
		if m.Str == prefix {
			continue
		}
		out = append(out, m.Str)
	}
	sort.Strings(out)
	return out
}

// At finds the partial tag ending at cursor (a byte offset into text).
// ok is false when the cursor is not inside a #tag token.
func At(text string, cursor int) (start int, partial string, ok bool) {
	if cursor < 0 || cursor > len(text) {
		return 0, "", false
	}
	i := strings.LastIndexFunc(text[:cursor], func(r rune) bool {
		return r == '#' || unicode.IsSpace(r)
	})
	if i < 0 || text[i] != '#' {
		return 0, "", false
	}
	if i > 0 && !unicode.IsSpace(rune(text[i-1])) {
		return 0, "", false
	}
	return i, text[i:cursor], true
}

// InsertAt replaces text[tagStart:cursor] with tag followed by a space.
// It returns the new text and the cursor position after the inserted tag.
func InsertAt(text string, tagStart, cursor int, tag string) (string, int) {
	if tagStart < 0 {
		tagStart = 0
	}
	if cursor > len(text) {
		cursor = len(text)
	}
	if cursor < tagStart {
		cursor = tagStart
	}
	tag = Normalize(tag)
	ins := tag + " "
	return text[:tagStart] + ins + text[cursor:], tagStart + len(ins)
}

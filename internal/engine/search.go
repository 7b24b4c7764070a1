package engine

import (
	"context"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/cases"

	"github.com/wayfind/intent-engine/internal/intent"
	"github.com/wayfind/intent-engine/internal/store"
)

// DefaultSearchLimit is the page size when the caller sets none.
const DefaultSearchLimit = 20

// SearchOptions carry pagination and time filters.
type SearchOptions struct {
	Limit  int
	Offset int
	Since  *time.Time
	Until  *time.Time
}

// cjkRanges covers the codepoints for which 1–2 character queries
// cannot form a trigram token: CJK unified ideographs and extensions,
// kana, and hangul syllables.
var cjkRanges = &unicode.RangeTable{
	R16: []unicode.Range16{
		{Lo: 0x3040, Hi: 0x309F, Stride: 1}, // Hiragana
		{Lo: 0x30A0, Hi: 0x30FF, Stride: 1}, // Katakana
		{Lo: 0x3400, Hi: 0x4DBF, Stride: 1}, // CJK Extension A
		{Lo: 0x4E00, Hi: 0x9FFF, Stride: 1}, // CJK Unified Ideographs
		{Lo: 0xAC00, Hi: 0xD7AF, Stride: 1}, // Hangul syllables
	},
	R32: []unicode.Range32{
		{Lo: 0x20000, Hi: 0x2EBEF, Stride: 1}, // CJK Extensions B–F
	},
}

func isCJK(r rune) bool { return unicode.Is(cjkRanges, r) }

// needsLikeFallback reports whether a query must take the substring
// path: a single CJK character, or exactly two characters that are both
// CJK. Trigram FTS would silently under-match those.
func needsLikeFallback(query string) bool {
	runes := []rune(query)
	switch len(runes) {
	case 1:
		return isCJK(runes[0])
	case 2:
		return isCJK(runes[0]) && isCJK(runes[1])
	default:
		return false
	}
}

// statusFilter returns the statuses named by a status-only query, or
// nil when any token is not a status keyword.
func statusFilter(query string) []intent.Status {
	var statuses []intent.Status
	seen := map[intent.Status]bool{}
	for _, tok := range strings.Fields(query) {
		s, err := intent.ParseStatus(tok)
		if err != nil {
			return nil
		}
		if !seen[s] {
			seen[s] = true
			statuses = append(statuses, s)
		}
	}
	return statuses
}

// isNoise reports whether the query carries no searchable content.
func isNoise(query string) bool {
	for _, r := range query {
		if !unicode.IsSpace(r) && !unicode.IsPunct(r) {
			return false
		}
	}
	return true
}

// Search routes a query through the status-filter, substring-fallback
// or trigram-FTS path and returns a merged, paginated hit list.
func (e *Engine) Search(ctx context.Context, query string, opts SearchOptions) (*intent.SearchPage, error) {
	if opts.Limit <= 0 {
		opts.Limit = DefaultSearchLimit
	}
	if opts.Offset < 0 {
		opts.Offset = 0
	}

	page := &intent.SearchPage{Hits: []intent.SearchHit{}, Limit: opts.Limit, Offset: opts.Offset}

	query = strings.TrimSpace(query)
	if query == "" || isNoise(query) {
		return page, nil
	}

	err := e.store.WithTx(ctx, func(tx *store.Tx) error {
		if statuses := statusFilter(query); statuses != nil {
			return searchByStatus(ctx, tx, statuses, opts, page)
		}
		if needsLikeFallback(query) {
			return searchLike(ctx, tx, query, opts, page)
		}
		return searchFTS(ctx, tx, query, opts, page)
	})
	if err != nil {
		return nil, err
	}

	page.HasMore = opts.Offset+opts.Limit < page.TotalTasks ||
		opts.Offset+opts.Limit < page.TotalEvents
	return page, nil
}

func searchByStatus(ctx context.Context, tx *store.Tx, statuses []intent.Status, opts SearchOptions, page *intent.SearchPage) error {
	tasks, total, err := tx.TasksByStatus(ctx, statuses, opts.Limit, opts.Offset)
	if err != nil {
		return err
	}
	page.TotalTasks = total
	for _, t := range tasks {
		page.Hits = append(page.Hits, intent.SearchHit{
			Kind:    intent.HitTask,
			ID:      t.ID,
			TaskID:  t.ID,
			Name:    t.Name,
			Status:  t.Status,
			Snippet: t.Name,
			Field:   "status",
		})
	}
	return nil
}

func searchFTS(ctx context.Context, tx *store.Tx, query string, opts SearchOptions, page *intent.SearchPage) error {
	taskHits, taskTotal, err := tx.SearchTasksFTS(ctx, query, opts.Limit, opts.Offset)
	if err != nil {
		return err
	}
	eventHits, eventTotal, err := tx.SearchEventsFTS(ctx, query, opts.Limit, opts.Offset, opts.Since, opts.Until)
	if err != nil {
		return err
	}
	page.TotalTasks = taskTotal
	page.TotalEvents = eventTotal
	page.Hits = append(page.Hits, taskHits...)
	page.Hits = append(page.Hits, eventHits...)
	return nil
}

func searchLike(ctx context.Context, tx *store.Tx, query string, opts SearchOptions, page *intent.SearchPage) error {
	tasks, taskTotal, err := tx.SearchTasksLike(ctx, query, opts.Limit, opts.Offset)
	if err != nil {
		return err
	}
	events, eventTotal, err := tx.SearchEventsLike(ctx, query, opts.Limit, opts.Offset, opts.Since, opts.Until)
	if err != nil {
		return err
	}
	page.TotalTasks = taskTotal
	page.TotalEvents = eventTotal

	for _, t := range tasks {
		snippet, field := synthesizeSnippet(t.Name, t.Spec, query)
		page.Hits = append(page.Hits, intent.SearchHit{
			Kind:    intent.HitTask,
			ID:      t.ID,
			TaskID:  t.ID,
			Name:    t.Name,
			Status:  t.Status,
			Snippet: snippet,
			Field:   field,
		})
	}
	for _, ev := range events {
		snippet, _ := synthesizeSnippet("", ev.Message, query)
		page.Hits = append(page.Hits, intent.SearchHit{
			Kind:    intent.HitEvent,
			ID:      ev.ID,
			TaskID:  ev.TaskID,
			LogType: ev.LogType,
			Snippet: snippet,
			Field:   "message",
		})
	}
	return nil
}

// snippetContext is how many runes of context surround a synthesized
// match on each side.
const snippetContext = 24

var foldCaser = cases.Fold()

// synthesizeSnippet builds a **…** delimited snippet for the substring
// path, preferring the spec field over the name. Matching is
// case-insensitive via Unicode case folding.
func synthesizeSnippet(name, spec, query string) (snippet, field string) {
	if s, ok := highlight(spec, query); ok {
		return s, "spec"
	}
	if s, ok := highlight(name, query); ok {
		return s, "name"
	}
	if name != "" {
		return name, "name"
	}
	return spec, "spec"
}

func highlight(text, query string) (string, bool) {
	if text == "" {
		return "", false
	}
	foldedText := foldCaser.String(text)
	foldedQuery := foldCaser.String(query)
	idx := strings.Index(foldedText, foldedQuery)
	if idx < 0 {
		return "", false
	}

	// Case folding preserves offsets for the scripts the fallback serves;
	// clamp to rune boundaries to stay safe on mixed input.
	start := clampRuneBoundary(text, idx)
	end := clampRuneBoundary(text, start+len(foldedQuery))

	pre := text[:start]
	match := text[start:end]
	post := text[end:]

	preRunes := []rune(pre)
	if len(preRunes) > snippetContext {
		pre = "…" + string(preRunes[len(preRunes)-snippetContext:])
	}
	postRunes := []rune(post)
	if len(postRunes) > snippetContext {
		post = string(postRunes[:snippetContext]) + "…"
	}

	return pre + "**" + match + "**" + post, true
}

func clampRuneBoundary(s string, idx int) int {
	if idx >= len(s) {
		return len(s)
	}
	for idx > 0 && !isRuneStart(s[idx]) {
		idx--
	}
	return idx
}

func isRuneStart(b byte) bool { return b&0xC0 != 0x80 }

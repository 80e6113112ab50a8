package window

import (
	"regexp"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/bryanchriswhite/tabscout/internal/ax"
	"github.com/bryanchriswhite/tabscout/internal/search"
)

// Placeholders used when a tab has no readable text
const (
	UntitledTab    = "(untitled tab)"
	UntitledWindow = "Unknown Window"
)

const (
	maxTitleLen   = 120
	truncateTo    = 117
	maxPathSuffix = 50
)

var (
	debugNoise = []string{"darwin-debug", "bash -c", "/Applications/Xcode.app"}
	appSuffix  = regexp.MustCompile(`\.app\b`)
	spaces     = regexp.MustCompile(`\s+`)
	nonLetters = regexp.MustCompile(`[^A-Za-z]+`)

	// suffixes holds the compiled " - App" suffix pattern per app name
	suffixes sync.Map
)

// suffixPattern matches a trailing separator followed by name
func suffixPattern(name string) *regexp.Regexp {
	if re, ok := suffixes.Load(name); ok {
		return re.(*regexp.Regexp)
	}
	re := regexp.MustCompile(`(?i)\s?[-—–]\s?\b` + regexp.QuoteMeta(name) + `\b\s*$`)
	actual, _ := suffixes.LoadOrStore(name, re)
	return actual.(*regexp.Regexp)
}

// ResolveTitle walks the title fallback chain for n: title, value, help,
// description, the first static-text descendant, then placeholder.
func ResolveTitle(acc *ax.Accessor, n ax.Node, placeholder string) string {
	for _, read := range []func(ax.Node) string{acc.Title, acc.Value, acc.Help, acc.Description} {
		if s := strings.TrimSpace(read(n)); s != "" {
			return s
		}
	}
	if s := staticText(acc, n); s != "" {
		return s
	}
	return placeholder
}

func staticText(acc *ax.Accessor, n ax.Node) string {
	var text string
	search.Walk(acc, n, search.Options{MaxDepth: 3}, func(c ax.Node, _ int) bool {
		if text != "" {
			return false
		}
		if acc.Role(c) != ax.RoleStaticText {
			return true
		}
		for _, s := range []string{acc.Value(c), acc.Title(c), acc.Description(c)} {
			if s = strings.TrimSpace(s); s != "" {
				text = s
				return false
			}
		}
		return true
	})
	return text
}

// AppName derives a display name from an application identifier: the last
// dotted component with non-letters turned into spaces, title-cased.
func AppName(appID string) string {
	parts := strings.Split(appID, ".")
	last := strings.TrimSpace(nonLetters.ReplaceAllString(parts[len(parts)-1], " "))
	if last == "" {
		return ""
	}
	words := strings.Fields(last)
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + strings.ToLower(w[size:])
	}
	return strings.Join(words, " ")
}

// CleanTitle normalizes a raw window title for an application
func CleanTitle(title, appID string) string {
	title = strings.TrimSpace(title)

	for _, noise := range debugNoise {
		if !strings.Contains(title, noise) {
			continue
		}
		if i := strings.LastIndex(title, "—"); i >= 0 {
			title = strings.TrimSpace(title[i+len("—"):])
		} else if loc := appSuffix.FindStringIndex(title); loc != nil {
			title = title[:loc[1]]
		}
		break
	}

	if segs := strings.Split(title, "/"); len(segs) > 2 {
		if last := segs[len(segs)-1]; utf8.RuneCountInString(last) < maxPathSuffix {
			title = last
		}
	}

	name := AppName(appID)
	if name != "" {
		title = suffixPattern(name).ReplaceAllString(title, "")
	}

	title = strings.TrimSpace(spaces.ReplaceAllString(title, " "))

	if utf8.RuneCountInString(title) > maxTitleLen {
		title = string([]rune(title)[:truncateTo]) + "…"
	}

	if title == "" {
		if name != "" {
			return name
		}
		return UntitledWindow
	}
	return title
}

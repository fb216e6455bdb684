package syntax

import (
	"fmt"
	"regexp"
	"sort"
	"sync"
)

// Level separates block rules from inline rules.
type Level int

const (
	LevelBlock Level = iota
	LevelInline
)

func (l Level) String() string {
	if l == LevelInline {
		return "inline"
	}
	return "block"
}

// Rule is one entry of the rule table.
type Rule struct {
	Kind  Kind
	Level Level

	// Triggers lists the bytes that may start the rule. A rule with no
	// triggers is only reached from inside another rule.
	Triggers string

	// Precedence is the static precedence. Higher wins.
	Precedence int

	// Dynamic is the content-dependent precedence used among rules that
	// share a shape.
	Dynamic int

	// Shape names the rule whose recognizer matches this rule's text.
	// Rules sharing a shape are resolved after the match.
	Shape Kind

	// Classes is the class pattern that refines a shared shape into this
	// rule. Nil means the rule is the generic fallback of its group.
	Classes *regexp.Regexp

	StartOnly bool // only at the start of the document
	Indent    bool // may be preceded by leading whitespace
	Extension bool // Pandoc extension, see Options.PandocExtensions
	LinkText  bool // allowed inside link text
}

// Conflict is a declared pair of rules expected to compete for the same
// input.
type Conflict struct {
	A, B Kind
}

func makeConflict(a, b Kind) Conflict {
	if b < a {
		a, b = b, a
	}
	return Conflict{A: a, B: b}
}

// RuleTable is the compiled rule set. It is immutable after construction
// and safe for concurrent use.
type RuleTable struct {
	rules     map[Kind]*Rule
	order     []*Rule
	groups    [2][256][][]*Rule
	conflicts map[Conflict]struct{}
	modes     map[Mode][]TokenType
	refTypes  []string
}

// NewRuleTable compiles and validates a rule table. Rules that share a
// trigger byte at equal static precedence must share a shape and be
// declared as conflicts.
func NewRuleTable(rules []Rule, conflicts []Conflict, modes map[Mode][]TokenType, refTypes []string) (*RuleTable, error) {
	t := &RuleTable{
		rules:     make(map[Kind]*Rule, len(rules)),
		conflicts: make(map[Conflict]struct{}, len(conflicts)),
		modes:     make(map[Mode][]TokenType, len(modes)),
		refTypes:  append([]string(nil), refTypes...),
	}

	for i := range rules {
		r := rules[i]
		if r.Kind == "" {
			return nil, fmt.Errorf("rule %d has no kind", i)
		}
		if _, exists := t.rules[r.Kind]; exists {
			return nil, fmt.Errorf("rule already registered: %s", r.Kind)
		}
		if r.Shape == "" {
			r.Shape = r.Kind
		}
		t.rules[r.Kind] = &r
		t.order = append(t.order, &r)
	}

	for _, c := range conflicts {
		if _, ok := t.rules[c.A]; !ok {
			return nil, fmt.Errorf("conflict names unknown rule: %s", c.A)
		}
		if _, ok := t.rules[c.B]; !ok {
			return nil, fmt.Errorf("conflict names unknown rule: %s", c.B)
		}
		t.conflicts[makeConflict(c.A, c.B)] = struct{}{}
	}

	for _, r := range t.order {
		for i := 0; i < len(r.Triggers); i++ {
			b := r.Triggers[i]
			t.groups[r.Level][b] = insertRule(t.groups[r.Level][b], r)
		}
	}

	for level := range t.groups {
		for b := range t.groups[level] {
			for _, group := range t.groups[level][b] {
				if err := t.validateGroup(group); err != nil {
					return nil, fmt.Errorf("trigger %q: %w", rune(b), err)
				}
			}
		}
	}

	for m, tokens := range modes {
		seen := make(map[TokenType]bool, len(tokens))
		for _, tok := range tokens {
			if seen[tok] {
				return nil, fmt.Errorf("token %s listed twice in mode %s", tok, m)
			}
			seen[tok] = true
		}
		t.modes[m] = append([]TokenType(nil), tokens...)
	}

	return t, nil
}

// insertRule places r into the precedence groups, highest first.
func insertRule(groups [][]*Rule, r *Rule) [][]*Rule {
	for i, g := range groups {
		switch {
		case g[0].Precedence == r.Precedence:
			groups[i] = append(g, r)
			return groups
		case g[0].Precedence < r.Precedence:
			groups = append(groups, nil)
			copy(groups[i+1:], groups[i:])
			groups[i] = []*Rule{r}
			return groups
		}
	}
	return append(groups, []*Rule{r})
}

func (t *RuleTable) validateGroup(group []*Rule) error {
	if len(group) < 2 {
		return nil
	}
	generic := 0
	for i, a := range group {
		if a.Classes == nil {
			generic++
		}
		for _, b := range group[i+1:] {
			if !t.Declared(a.Kind, b.Kind) {
				return fmt.Errorf("undeclared ambiguity between %s and %s", a.Kind, b.Kind)
			}
			if a.Shape != b.Shape {
				return fmt.Errorf("%s and %s compete at equal precedence with different shapes", a.Kind, b.Kind)
			}
		}
	}
	if generic == 0 {
		return fmt.Errorf("group %s has no generic rule", group[0].Shape)
	}
	return nil
}

// Rule returns the rule for kind.
func (t *RuleTable) Rule(kind Kind) (*Rule, bool) {
	r, ok := t.rules[kind]
	return r, ok
}

// Candidates returns the rule groups that may start with b, highest
// static precedence first.
func (t *RuleTable) Candidates(level Level, b byte) [][]*Rule {
	return t.groups[level][b]
}

// InlineTrigger reports whether any inline rule may start with b.
func (t *RuleTable) InlineTrigger(b byte) bool {
	return len(t.groups[LevelInline][b]) > 0
}

// Declared reports whether a and b are a declared conflict pair.
func (t *RuleTable) Declared(a, b Kind) bool {
	_, ok := t.conflicts[makeConflict(a, b)]
	return ok
}

// Conflicts returns the declared conflict pairs in a stable order.
func (t *RuleTable) Conflicts() []Conflict {
	out := make([]Conflict, 0, len(t.conflicts))
	for c := range t.conflicts {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].A != out[j].A {
			return out[i].A < out[j].A
		}
		return out[i].B < out[j].B
	})
	return out
}

// Tokens returns the lexer tokens legal in mode m, in scan order.
func (t *RuleTable) Tokens(m Mode) []TokenType {
	return t.modes[m]
}

// ReferenceTypes returns the cross-reference type prefixes.
func (t *RuleTable) ReferenceTypes() []string {
	return t.refTypes
}

// Refine picks the member of a shape group that wins for the given class
// names. The highest dynamic precedence wins; ties go to the class that
// appears first. The generic rule wins when nothing matches.
func (t *RuleTable) Refine(group []*Rule, classes []string) *Rule {
	var generic, best *Rule
	bestClass := len(classes)
	for _, r := range group {
		if r.Classes == nil {
			if generic == nil || r.Dynamic > generic.Dynamic {
				generic = r
			}
			continue
		}
		for i, c := range classes {
			if !r.Classes.MatchString(c) {
				continue
			}
			if best == nil || r.Dynamic > best.Dynamic || (r.Dynamic == best.Dynamic && i < bestClass) {
				best, bestClass = r, i
			}
			break
		}
	}
	if best != nil && (generic == nil || best.Dynamic > generic.Dynamic) {
		return best
	}
	return generic
}

var (
	calloutClass     = regexp.MustCompile(`^callout-(note|warning|important|tip|caution)$`)
	tabsetClass      = regexp.MustCompile(`^panel-tabset$`)
	conditionalClass = regexp.MustCompile(`^content-(visible|hidden)$`)
)

var defaultRules = []Rule{
	// Front matter, document start only.
	{Kind: KindYAMLFrontMatter, Triggers: "-", Precedence: 3, StartOnly: true},
	{Kind: KindPercentMetadata, Triggers: "%", Precedence: 3, StartOnly: true},

	{Kind: KindBlankLine, Triggers: "\n\r \t", Precedence: 1},
	{Kind: KindThematicBreak, Triggers: "-*_", Precedence: 2},
	{Kind: KindUnorderedList, Triggers: "-*+", Indent: true},
	{Kind: KindOrderedList, Triggers: "0123456789", Indent: true},
	{Kind: KindATXHeading, Triggers: "#"},
	{Kind: KindSetextHeading},
	{Kind: KindBlockQuote, Triggers: ">"},

	{Kind: KindRawBlock, Triggers: "`", Precedence: 2},
	{Kind: KindExecutableCodeCell, Triggers: "`", Precedence: 1},
	{Kind: KindFencedCodeBlock, Triggers: "`~", Precedence: -1},

	{Kind: KindFencedDiv, Triggers: ":"},
	{Kind: KindCalloutBlock, Triggers: ":", Dynamic: 3, Shape: KindFencedDiv, Classes: calloutClass},
	{Kind: KindTabsetBlock, Triggers: ":", Dynamic: 3, Shape: KindFencedDiv, Classes: tabsetClass},
	{Kind: KindConditionalBlock, Triggers: ":", Dynamic: 3, Shape: KindFencedDiv, Classes: conditionalClass},

	{Kind: KindDisplayMath, Triggers: "$"},
	{Kind: KindPipeTable, Triggers: "|"},
	{Kind: KindPipeTableHeader},
	{Kind: KindShortcodeBlock, Triggers: "{"},
	{Kind: KindHTMLBlock, Triggers: "<"},
	{Kind: KindFootnoteDefinition, Triggers: "[", Precedence: 1},
	{Kind: KindLinkReferenceDef, Triggers: "["},

	// Paragraph is the fallback of every block choice.
	{Kind: KindParagraph, Precedence: -10},

	{Kind: KindInline, Level: LevelInline},
	{Kind: KindLinkText, Level: LevelInline},
	{Kind: KindInlineCodeCell, Level: LevelInline, Triggers: "`", Precedence: 1},
	{Kind: KindCodeSpan, Level: LevelInline, Triggers: "`", LinkText: true},
	{Kind: KindInlineMath, Level: LevelInline, Triggers: "$", LinkText: true},
	{Kind: KindEmphasis, Level: LevelInline, Triggers: "*_", LinkText: true},
	{Kind: KindStrongEmphasis, Level: LevelInline, Triggers: "*_", Shape: KindEmphasis, LinkText: true},
	{Kind: KindStrikethrough, Level: LevelInline, Triggers: "~", Shape: KindEmphasis, Extension: true, LinkText: true},
	{Kind: KindSubscript, Level: LevelInline, Triggers: "~", Shape: KindEmphasis, Extension: true, LinkText: true},
	{Kind: KindHighlight, Level: LevelInline, Triggers: "=", Shape: KindEmphasis, Extension: true, LinkText: true},
	{Kind: KindInlineFootnote, Level: LevelInline, Triggers: "^", Precedence: 1, Extension: true},
	{Kind: KindSuperscript, Level: LevelInline, Triggers: "^", Shape: KindEmphasis, Extension: true, LinkText: true},
	{Kind: KindFootnoteReference, Level: LevelInline, Triggers: "[", Precedence: 2},
	{Kind: KindLink, Level: LevelInline, Triggers: "[", Precedence: 1},
	{Kind: KindCitationGroup, Level: LevelInline, Triggers: "["},
	{Kind: KindImage, Level: LevelInline, Triggers: "!", LinkText: true},
	{Kind: KindCrossReference, Level: LevelInline, Triggers: "@", Precedence: 1},
	{Kind: KindCitation, Level: LevelInline, Triggers: "@"},
	{Kind: KindShortcodeInline, Level: LevelInline, Triggers: "{"},
	{Kind: KindURIAutolink, Level: LevelInline, Triggers: "<"},
	{Kind: KindHardLineBreak, Level: LevelInline, Triggers: "\\", Precedence: 1, LinkText: true},
	{Kind: KindBackslashEscape, Level: LevelInline, Triggers: "\\", LinkText: true},
}

var defaultConflicts = []Conflict{
	{KindInline, KindLinkText},
	{KindPipeTable, KindParagraph},
	{KindPipeTableHeader, KindInline},
	{KindExecutableCodeCell, KindFencedCodeBlock},
	{KindShortcodeBlock, KindShortcodeInline},
	{KindInlineCodeCell, KindCodeSpan},
	{KindCalloutBlock, KindFencedDiv},
	{KindTabsetBlock, KindFencedDiv},
	{KindConditionalBlock, KindFencedDiv},
	{KindCalloutBlock, KindTabsetBlock},
	{KindCalloutBlock, KindConditionalBlock},
	{KindTabsetBlock, KindConditionalBlock},
	{KindYAMLFrontMatter, KindThematicBreak},
	{KindSetextHeading, KindThematicBreak},
	{KindSetextHeading, KindParagraph},
	{KindThematicBreak, KindUnorderedList},
	{KindEmphasis, KindStrongEmphasis},
	{KindStrikethrough, KindSubscript},
	{KindCrossReference, KindCitation},
	{KindLink, KindCitationGroup},
}

var defaultModes = map[Mode][]TokenType{
	ModeDefault:     {TokenTableStart},
	ModeTableProbe:  {},
	ModeCellOptions: {TokenChunkOptionMarker, TokenCellBoundary},
	ModeCellBody:    {TokenCellBoundary},
}

var defaultRefTypes = []string{"fig", "tbl", "eq", "sec", "lst"}

var (
	defaultTableOnce sync.Once
	defaultTable     *RuleTable
)

// Rules returns the process-wide rule table.
func Rules() *RuleTable {
	defaultTableOnce.Do(func() {
		t, err := NewRuleTable(defaultRules, defaultConflicts, defaultModes, defaultRefTypes)
		if err != nil {
			panic(fmt.Sprintf("syntax: invalid rule table: %v", err))
		}
		defaultTable = t
	})
	return defaultTable
}

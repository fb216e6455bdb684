package syntax

import "strings"

// Kind is the type tag carried by every node in the tree.
type Kind string

// Anonymous kinds. They cover punctuation, whitespace and line endings so
// that the leaves of a tree always partition the input.
const (
	KindPunctuation Kind = "_punctuation"
	KindWhitespace  Kind = "_whitespace"
	KindNewline     Kind = "_newline"
	KindRaw         Kind = "_raw"
)

// KindError marks a region the grammar could not match.
const KindError Kind = "ERROR"

// Block kinds.
const (
	KindDocument                Kind = "document"
	KindYAMLFrontMatter         Kind = "yaml_front_matter"
	KindYAMLFrontMatterStart    Kind = "yaml_front_matter_start"
	KindYAMLFrontMatterContent  Kind = "yaml_front_matter_content"
	KindYAMLFrontMatterEnd      Kind = "yaml_front_matter_end"
	KindPercentMetadata         Kind = "percent_metadata"
	KindMetadataLine            Kind = "metadata_line"
	KindATXHeading              Kind = "atx_heading"
	KindATXHeadingMarker        Kind = "atx_heading_marker"
	KindSetextHeading           Kind = "setext_heading"
	KindSetextHeadingMarker     Kind = "setext_heading_marker"
	KindBlockQuote              Kind = "block_quote"
	KindBlockQuoteLine          Kind = "block_quote_line"
	KindBlockQuoteMarker        Kind = "block_quote_marker"
	KindOrderedList             Kind = "ordered_list"
	KindUnorderedList           Kind = "unordered_list"
	KindListItem                Kind = "list_item"
	KindListMarker              Kind = "list_marker"
	KindTaskMarker              Kind = "task_list_marker"
	KindFencedDiv               Kind = "fenced_div"
	KindCalloutBlock            Kind = "callout_block"
	KindTabsetBlock             Kind = "tabset_block"
	KindConditionalBlock        Kind = "conditional_block"
	KindFencedDivDelimiter      Kind = "fenced_div_delimiter"
	KindExecutableCodeCell      Kind = "executable_code_cell"
	KindFencedCodeBlock         Kind = "fenced_code_block"
	KindCodeFenceDelimiter      Kind = "code_fence_delimiter"
	KindInfoString              Kind = "info_string"
	KindCodeContent             Kind = "code_content"
	KindCodeLine                Kind = "code_line"
	KindCellContent             Kind = "cell_content"
	KindChunkLabel              Kind = "chunk_label"
	KindChunkOptions            Kind = "chunk_options"
	KindChunkOption             Kind = "chunk_option"
	KindChunkOptionMarker       Kind = "chunk_option_marker"
	KindChunkOptionKey          Kind = "chunk_option_key"
	KindChunkOptionValue        Kind = "chunk_option_value"
	KindChunkOptionContinuation Kind = "chunk_option_continuation"
	KindRawBlock                Kind = "raw_block"
	KindRawBlockDelimiter       Kind = "raw_block_delimiter"
	KindRawBlockContent         Kind = "raw_block_content"
	KindRawFormat               Kind = "raw_format"
	KindDisplayMath             Kind = "display_math"
	KindPipeTable               Kind = "pipe_table"
	KindPipeTableHeader         Kind = "pipe_table_header"
	KindPipeTableDelimiter      Kind = "pipe_table_delimiter"
	KindPipeTableRow            Kind = "pipe_table_row"
	KindTableCell               Kind = "table_cell"
	KindTableDelimiterCell      Kind = "table_delimiter_cell"
	KindShortcodeBlock          Kind = "shortcode_block"
	KindHTMLBlock               Kind = "html_block"
	KindHTMLBlockContent        Kind = "html_block_content"
	KindLinkReferenceDef        Kind = "link_reference_definition"
	KindFootnoteDefinition      Kind = "footnote_definition"
	KindThematicBreak           Kind = "thematic_break"
	KindParagraph               Kind = "paragraph"
	KindBlankLine               Kind = "blank_line"
	KindByteOrderMark           Kind = "byte_order_mark"
)

// Inline kinds.
const (
	KindInline             Kind = "inline"
	KindText               Kind = "text"
	KindCodeSpan           Kind = "code_span"
	KindCodeSpanDelimiter  Kind = "code_span_delimiter"
	KindCodeSpanContent    Kind = "code_span_content"
	KindRawInline          Kind = "raw_inline"
	KindInlineMath         Kind = "inline_math"
	KindMathDelimiter      Kind = "math_delimiter"
	KindMathContent        Kind = "math_content"
	KindEmphasis           Kind = "emphasis"
	KindStrongEmphasis     Kind = "strong_emphasis"
	KindStrikethrough      Kind = "strikethrough"
	KindHighlight          Kind = "highlight"
	KindSubscript          Kind = "subscript"
	KindSuperscript        Kind = "superscript"
	KindEmphasisDelimiter  Kind = "emphasis_delimiter"
	KindLink               Kind = "link"
	KindLinkText           Kind = "link_text"
	KindLinkDestination    Kind = "link_destination"
	KindLinkTitle          Kind = "link_title"
	KindReferenceLabel     Kind = "reference_label"
	KindImage              Kind = "image"
	KindImageAlt           Kind = "image_alt"
	KindURIAutolink        Kind = "uri_autolink"
	KindCitation           Kind = "citation"
	KindCitationKey        Kind = "citation_key"
	KindCitationGroup      Kind = "citation_group"
	KindCrossReference     Kind = "cross_reference"
	KindReferenceType      Kind = "reference_type"
	KindReferenceID        Kind = "reference_id"
	KindInlineCodeCell     Kind = "inline_code_cell"
	KindInlineCellDelim    Kind = "inline_cell_delimiter"
	KindLanguageName       Kind = "language_name"
	KindShortcodeInline    Kind = "shortcode_inline"
	KindShortcodeOpen      Kind = "shortcode_open"
	KindShortcodeName      Kind = "shortcode_name"
	KindShortcodeArguments Kind = "shortcode_arguments"
	KindShortcodeClose     Kind = "shortcode_close"
	KindFootnoteReference  Kind = "footnote_reference"
	KindFootnoteLabel      Kind = "footnote_label"
	KindInlineFootnote     Kind = "inline_footnote"
	KindBackslashEscape    Kind = "backslash_escape"
	KindHardLineBreak      Kind = "hard_line_break"
)

// Attribute kinds.
const (
	KindAttributeList     Kind = "attribute_list"
	KindAttributeID       Kind = "attribute_id"
	KindAttributeClass    Kind = "attribute_class"
	KindKeyValueAttribute Kind = "key_value_attribute"
	KindAttributeKey      Kind = "attribute_key"
	KindAttributeValue    Kind = "attribute_value"
)

// Named reports whether k is a grammar variant rather than an anonymous
// token.
func (k Kind) Named() bool {
	return !strings.HasPrefix(string(k), "_")
}

// ErrorKind classifies error-marker nodes and diagnostics.
type ErrorKind int

const (
	ErrorNone ErrorKind = iota
	ErrorLexical
	ErrorStructural
	ErrorAttribute
)

// String returns the string representation of the error kind.
func (e ErrorKind) String() string {
	switch e {
	case ErrorLexical:
		return "lexical"
	case ErrorStructural:
		return "structural"
	case ErrorAttribute:
		return "attribute"
	default:
		return "none"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (e ErrorKind) MarshalText() ([]byte, error) {
	return []byte(e.String()), nil
}

package routepattern

import (
	"errors"
	"fmt"
)

// Diagnostic categories. Use errors.Is on Diagnostic.Err.
var (
	ErrLiteralQuestionMark    = errors.New("literal contains '?'")
	ErrDuplicateParameter     = errors.New("duplicate parameter name")
	ErrCatchAllNotLast        = errors.New("catch-all not in last segment")
	ErrCatchAllOptional       = errors.New("catch-all marked optional")
	ErrCatchAllDefault        = errors.New("catch-all has default value")
	ErrCatchAllComplexSegment = errors.New("catch-all in complex segment")
	ErrOptionalWithDefault    = errors.New("optional parameter has default value")
	ErrOptionalPrecededBy     = errors.New("optional parameter preceded by invalid part")
	ErrOptionalNotLast        = errors.New("optional parameter not at end of segment")
	ErrInvalidParameterName   = errors.New("invalid parameter name")
	ErrUnescapedBrace         = errors.New("unescaped brace in parameter")
	ErrConsecutiveParameters  = errors.New("consecutive parameters")
	ErrIncompleteParameter    = errors.New("incomplete parameter")
	ErrTildeStart             = errors.New("pattern starts with '~'")
	ErrConsecutiveSeparators  = errors.New("consecutive separators")
	ErrUnclosedPolicyArgument = errors.New("unclosed policy argument")
	ErrUnbalancedPolicyParen  = errors.New("unmatched ')' in policy")
	ErrEmptyPolicy            = errors.New("empty policy")
	ErrEmptyDefaultValue      = errors.New("empty default value")
	ErrReplacementNotClosed   = errors.New("replacement not closed")
	ErrReplacementEmpty       = errors.New("empty replacement")
	ErrReplacementInvalid     = errors.New("invalid replacement token")
	ErrUnmatchedCloseBracket  = errors.New("unmatched ']'")
	ErrEndAnchorNotLast       = errors.New("end anchor not at end")
)

const (
	msgLiteralQuestionMark = "The literal section '%s' is invalid. " +
		"Literal sections cannot contain the '?' character."
	msgDuplicateParameter = "The route parameter name '%s' appears more than one time " +
		"in the route template."
	msgCatchAllNotLast = "A catch-all parameter can only appear as the last segment " +
		"of the route template."
	msgCatchAllOptional       = "A catch-all parameter cannot be marked optional."
	msgCatchAllDefault        = "A catch-all parameter cannot have a default value."
	msgCatchAllComplexSegment = "A path segment that contains more than one section, " +
		"such as a literal section or a parameter, cannot contain a catch-all parameter."
	msgOptionalWithDefault = "An optional parameter cannot have default value."
	msgOptionalPrecededBy  = "In the segment '%s', the optional parameter '%s' is preceded " +
		"by an invalid segment '%s'. Only a period (.) can precede an optional parameter."
	msgOptionalNotLast = "An optional parameter must be at the end of the segment. " +
		"In the segment '%s', optional parameter '%s' is followed by '%s'."
	msgInvalidParameterName = "The route parameter name '%s' is invalid. Route parameter " +
		"names must be non-empty and cannot contain these characters: '{', '}', '/'. " +
		"The '?' character marks a parameter as optional, and can occur only at the end " +
		"of the parameter. The '*' character marks a parameter as catch-all, and can " +
		"occur only at the start of the parameter."
	msgParameterNameShape = "The route parameter name '%s' is invalid. Route parameter " +
		"names must start with a letter or underscore and contain only letters, " +
		"digits and underscores."
	msgUnescapedBrace        = "In a route parameter, '{' and '}' must be escaped with '{{' and '}}'."
	msgConsecutiveParameters = "A path segment cannot contain two consecutive parameters. " +
		"They must be separated by a '/' or by a literal string."
	msgIncompleteParameter = "There is an incomplete parameter in the route template. " +
		"Check that each '{' character has a matching '}' character."
	msgTildeStart = "The route template cannot start with a '~' character " +
		"unless followed by a '/'."
	msgConsecutiveSeparators = "The route template separator character '/' cannot appear " +
		"consecutively. It must be separated by either a parameter or a literal value."
	msgUnclosedPolicyArgument = "A policy argument list is not closed. " +
		"Check that each '(' character has a matching ')' character, " +
		"or escape it with '\\('."
	msgUnbalancedPolicyParen = "A route parameter policy contains an unmatched ')'. " +
		"Check that each ')' character has a matching '(' character, " +
		"or escape it with '\\)'."
	msgEmptyPolicy          = "A route parameter policy must not be empty. A policy name must follow ':'."
	msgEmptyDefaultValue    = "A route parameter default value must not be empty. A value must follow '='."
	msgReplacementNotClosed = "There is an incomplete replacement token in the route template. " +
		"Check that each '[' character has a matching ']' character."
	msgReplacementEmpty   = "An empty replacement token ('[]') is not allowed."
	msgReplacementInvalid = "The replacement token '%s' is invalid. Replacement tokens " +
		"must start with a letter or underscore and contain only letters, " +
		"digits and underscores."
	msgUnmatchedCloseBracket = "There is an unmatched ']' in the route template. " +
		"Use ']]' to escape a literal ']'."
	msgEndAnchorNotLast = "The '{$}' wildcard can only appear at the end of the route template."
)

// Diagnostic is an error found while parsing a route pattern.
type Diagnostic struct {
	Span    Span
	Message string

	// Err classifies the diagnostic.
	Err error
}

func (d Diagnostic) Error() string {
	return fmt.Sprintf("[%d..%d): %s", d.Span.Start, d.Span.End, d.Message)
}

func (d Diagnostic) Unwrap() error { return d.Err }

func newDiagnostic(span Span, kind error, format string, args ...any) Diagnostic {
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	return Diagnostic{Span: span, Message: msg, Err: kind}
}

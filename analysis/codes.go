package analysis

import (
	"errors"
	"fmt"
	"strings"

	"github.com/romshark/routelint/routepattern"
)

// Severity defines the importance of a diagnostic.
type Severity uint8

const (
	// SevInfo is for informational diagnostics.
	SevInfo Severity = iota
	// SevWarning is for warning diagnostics.
	SevWarning
	SevError
)

func (s Severity) String() string {
	switch s {
	case SevInfo:
		return "INFO"
	case SevWarning:
		return "WARNING"
	case SevError:
		return "ERROR"
	}
	return "UNKNOWN"
}

// ParseSeverity parses the String form of a severity, ignoring case.
func ParseSeverity(s string) (Severity, error) {
	switch strings.ToLower(s) {
	case "info":
		return SevInfo, nil
	case "warning":
		return SevWarning, nil
	case "error":
		return SevError, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownSeverity, s)
}

var ErrUnknownSeverity = errors.New("unknown severity")

type Code uint16

const (
	UnknownCode Code = 0

	// Pattern syntax.
	SynInvalidPattern         Code = 1000
	SynLiteralQuestionMark    Code = 1001
	SynDuplicateParameter     Code = 1002
	SynCatchAllNotLast        Code = 1003
	SynCatchAllOptional       Code = 1004
	SynCatchAllDefault        Code = 1005
	SynCatchAllComplexSegment Code = 1006
	SynOptionalWithDefault    Code = 1007
	SynOptionalPrecededBy     Code = 1008
	SynOptionalNotLast        Code = 1009
	SynInvalidParameterName   Code = 1010
	SynUnescapedBrace         Code = 1011
	SynConsecutiveParameters  Code = 1012
	SynIncompleteParameter    Code = 1013
	SynTildeStart             Code = 1014
	SynConsecutiveSeparators  Code = 1015
	SynUnclosedPolicyArgument Code = 1016
	SynEmptyPolicy            Code = 1017
	SynEmptyDefaultValue      Code = 1018
	SynReplacementNotClosed   Code = 1019
	SynReplacementEmpty       Code = 1020
	SynReplacementInvalid     Code = 1021
	SynUnmatchedCloseBracket  Code = 1022
	SynEndAnchorNotLast       Code = 1023
	SynUnbalancedPolicyParen  Code = 1024

	// Usage.
	UseUnknownConstraint     Code = 2001
	UseConstraintArity       Code = 2002
	UseConstraintNotAllowed  Code = 2003
	UseUnboundParameter      Code = 2004
	UseNotBindable           Code = 2005
	UseMissingRouteParameter Code = 2006
	UsePathValueNotInRoute   Code = 2007
)

var syntaxCodes = []struct {
	err  error
	code Code
}{
	{routepattern.ErrLiteralQuestionMark, SynLiteralQuestionMark},
	{routepattern.ErrDuplicateParameter, SynDuplicateParameter},
	{routepattern.ErrCatchAllNotLast, SynCatchAllNotLast},
	{routepattern.ErrCatchAllOptional, SynCatchAllOptional},
	{routepattern.ErrCatchAllDefault, SynCatchAllDefault},
	{routepattern.ErrCatchAllComplexSegment, SynCatchAllComplexSegment},
	{routepattern.ErrOptionalWithDefault, SynOptionalWithDefault},
	{routepattern.ErrOptionalPrecededBy, SynOptionalPrecededBy},
	{routepattern.ErrOptionalNotLast, SynOptionalNotLast},
	{routepattern.ErrInvalidParameterName, SynInvalidParameterName},
	{routepattern.ErrUnescapedBrace, SynUnescapedBrace},
	{routepattern.ErrConsecutiveParameters, SynConsecutiveParameters},
	{routepattern.ErrIncompleteParameter, SynIncompleteParameter},
	{routepattern.ErrTildeStart, SynTildeStart},
	{routepattern.ErrConsecutiveSeparators, SynConsecutiveSeparators},
	{routepattern.ErrUnclosedPolicyArgument, SynUnclosedPolicyArgument},
	{routepattern.ErrEmptyPolicy, SynEmptyPolicy},
	{routepattern.ErrEmptyDefaultValue, SynEmptyDefaultValue},
	{routepattern.ErrReplacementNotClosed, SynReplacementNotClosed},
	{routepattern.ErrReplacementEmpty, SynReplacementEmpty},
	{routepattern.ErrReplacementInvalid, SynReplacementInvalid},
	{routepattern.ErrUnmatchedCloseBracket, SynUnmatchedCloseBracket},
	{routepattern.ErrEndAnchorNotLast, SynEndAnchorNotLast},
	{routepattern.ErrUnbalancedPolicyParen, SynUnbalancedPolicyParen},
}

// CodeOf maps a pattern diagnostic to its code.
func CodeOf(d routepattern.Diagnostic) Code {
	for _, c := range syntaxCodes {
		if errors.Is(d.Err, c.err) {
			return c.code
		}
	}
	return SynInvalidPattern
}

var codeDescription = map[Code]string{
	UnknownCode:               "Unknown error",
	SynInvalidPattern:         "Invalid route pattern",
	SynLiteralQuestionMark:    "Literal contains '?'",
	SynDuplicateParameter:     "Duplicate route parameter",
	SynCatchAllNotLast:        "Catch-all parameter not in last segment",
	SynCatchAllOptional:       "Catch-all parameter marked optional",
	SynCatchAllDefault:        "Catch-all parameter with default value",
	SynCatchAllComplexSegment: "Catch-all parameter in complex segment",
	SynOptionalWithDefault:    "Optional parameter with default value",
	SynOptionalPrecededBy:     "Optional parameter preceded by invalid part",
	SynOptionalNotLast:        "Optional parameter not at end of segment",
	SynInvalidParameterName:   "Invalid route parameter name",
	SynUnescapedBrace:         "Unescaped brace in route parameter",
	SynConsecutiveParameters:  "Consecutive route parameters",
	SynIncompleteParameter:    "Incomplete route parameter",
	SynTildeStart:             "Route pattern starts with '~'",
	SynConsecutiveSeparators:  "Consecutive separators",
	SynUnclosedPolicyArgument: "Unclosed constraint argument",
	SynEmptyPolicy:            "Empty constraint",
	SynEmptyDefaultValue:      "Empty default value",
	SynReplacementNotClosed:   "Unclosed token replacement",
	SynReplacementEmpty:       "Empty token replacement",
	SynReplacementInvalid:     "Invalid token replacement",
	SynUnmatchedCloseBracket:  "Unmatched ']'",
	SynEndAnchorNotLast:       "End anchor not at end of pattern",
	SynUnbalancedPolicyParen:  "Unmatched ')' in constraint",
	UseUnknownConstraint:      "Unknown route constraint",
	UseConstraintArity:        "Wrong number of constraint arguments",
	UseConstraintNotAllowed:   "Constraint not allowed for page routes",
	UseUnboundParameter:       "Route parameter not bound",
	UseNotBindable:            "Handler parameter cannot be bound from route",
	UseMissingRouteParameter:  "Handler parameter has no route parameter",
	UsePathValueNotInRoute:    "PathValue name has no route parameter",
}

func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 1000 && ic < 2000:
		return fmt.Sprintf("RPS%04d", ic)
	case ic >= 2000 && ic < 3000:
		return fmt.Sprintf("RPU%04d", ic)
	}
	return "RP0000"
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[UnknownCode]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}

// Package script parses, renders and normalizes bulk update scripts.
//
// A script is a list of lines, one directive per line:
//
//	create alias [[A]] -> [[B]]
//	remove alias [[A]] -> [[B]]
//	create implication [[A]] -> [[B]]
//	remove implication [[A]] -> [[B]]
//	mass update {{query}} -> replacement
//
// Only the script text is persisted; tokens are derived from it on demand.
package script

import "fmt"

// Kind identifies a directive.
type Kind string

const (
	CreateAlias       Kind = "create_alias"
	RemoveAlias       Kind = "remove_alias"
	CreateImplication Kind = "create_implication"
	RemoveImplication Kind = "remove_implication"
	MassUpdate        Kind = "mass_update"
)

// Token is one parsed directive. For aliases and implications A is the
// antecedent and B the consequent; for mass updates A is the query and B the
// replacement.
type Token struct {
	Kind Kind
	A    string
	B    string
}

// SyntaxError reports a script line that matches no directive.
type SyntaxError struct {
	Line int
	Text string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("Unparseable line: %s", e.Text)
}

// InvariantError is raised when a token kind outside the grammar reaches the
// renderer.
type InvariantError struct {
	Kind Kind
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("Unknown token: %s", e.Kind)
}

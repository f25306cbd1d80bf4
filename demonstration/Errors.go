package demonstration

import "fmt"

// ParseError reports a malformed record in a demonstration file
type ParseError struct {
	File string
	Line int // 1-indexed line or step number of the record
	Err  error
}

// Error satisfies the error interface
func (p *ParseError) Error() string {
	return fmt.Sprintf("%v:%v: %v", p.File, p.Line, p.Err)
}

// Unwrap returns the underlying error
func (p *ParseError) Unwrap() error {
	return p.Err
}

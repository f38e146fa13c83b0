package graph

import "fmt"

var (
	ErrNodeNotFound      = fmt.Errorf("node not found")
	ErrPredicateNotFound = fmt.Errorf("predicate not found")
	ErrInvalidTriple     = fmt.Errorf("invalid triple")
	ErrInvalidLabel      = fmt.Errorf("invalid label")
	ErrReadOnly          = fmt.Errorf("store is read-only")
	ErrStoreClosed       = fmt.Errorf("store is closed")
)

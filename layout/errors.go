package layout

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration marks an invalid page template or document setup.
	// It is always reported before any page exists.
	ErrConfiguration = errors.New("layout: invalid configuration")
	// ErrNoProgress is returned when a page pass places nothing while work
	// remains, for instance a chain that no template binds after page 1.
	ErrNoProgress = errors.New("layout: page made no progress")
	// ErrUnknownChain is returned when a template binds a chain the
	// document does not have.
	ErrUnknownChain = errors.New("layout: unknown chain")
	// ErrDuplicateChain is returned by AddChain for a name already in use.
	ErrDuplicateChain = errors.New("layout: duplicate chain")
	// ErrEmptyCommit is returned when a chain is asked to commit a
	// placement that placed nothing.
	ErrEmptyCommit = errors.New("layout: commit of empty placement")
)

// GeometryError describes an impossible template: non-positive sizes,
// margins larger than the page, or a cyclic edge binding.
type GeometryError struct {
	Template  string
	Container string
	Reason    string
}

func (e *GeometryError) Error() string {
	if e.Container != "" {
		return fmt.Sprintf("模板 %s 的容器 %s 几何无效：%s", e.Template, e.Container, e.Reason)
	}
	return fmt.Sprintf("模板 %s 几何无效：%s", e.Template, e.Reason)
}

func (e *GeometryError) Unwrap() error { return ErrConfiguration }

// WarningKind classifies recoverable problems found during pagination.
type WarningKind string

const (
	// WarnOverflow: a unit taller than its container was placed anyway.
	WarnOverflow WarningKind = "overflow-tolerated"
	// WarnUnresolvedReference: a ${...} reference had no target.
	WarnUnresolvedReference WarningKind = "unresolved-reference"
	// WarnChainStarvation: a chain-bound container got nothing because its
	// chain was already drained.
	WarnChainStarvation WarningKind = "chain-starvation"
	// WarnTruncated: static header/footer content did not fit its region.
	WarnTruncated WarningKind = "truncated"
)

// Warning is one entry of the document's warning log.
type Warning struct {
	Kind      WarningKind `json:"kind"`
	Page      int         `json:"page"`
	Container string      `json:"container,omitempty"`
	Flowable  string      `json:"flowable,omitempty"`
	Message   string      `json:"message"`
}

func (w Warning) String() string {
	return fmt.Sprintf("page %d %s: %s", w.Page, w.Kind, w.Message)
}

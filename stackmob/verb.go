package stackmob

import (
	"fmt"
	"strings"
)

// Verb is the HTTP verb of a request.
type Verb string

const (
	VerbGet    Verb = "GET"
	VerbPost   Verb = "POST"
	VerbPut    Verb = "PUT"
	VerbDelete Verb = "DELETE"
)

func (v Verb) isValid() bool {
	switch v {
	case VerbGet, VerbPost, VerbPut, VerbDelete:
		return true
	default:
		return false
	}
}

func (v Verb) String() string {
	return string(v)
}

// ParseVerb accepts the verb name in any case.
func ParseVerb(s string) (Verb, error) {
	v := Verb(strings.ToUpper(s))
	if !v.isValid() {
		return "", fmt.Errorf("unsupported http verb %q", s)
	}
	return v, nil
}

// Placement says where a verb carries its arguments.
type Placement int

const (
	// PlacementQuery puts arguments in the URL query string; there is no body.
	PlacementQuery Placement = iota
	// PlacementBody puts arguments in a JSON body.
	PlacementBody
)

func (p Placement) String() string {
	if p == PlacementBody {
		return "body"
	}
	return "query"
}

// BodyPlacement returns where arguments go for v.
func BodyPlacement(v Verb) Placement {
	switch v {
	case VerbPost, VerbPut:
		return PlacementBody
	default:
		return PlacementQuery
	}
}

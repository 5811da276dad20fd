package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"
)

// maxPeekBytes bounds how much of a GraphQL body is read to pick a tier.
const maxPeekBytes = 64 << 10

// strictFields are the root fields that spend credentials or money.
var strictFields = map[string]bool{
	"signin":        true,
	"signup":        true,
	"requestReset":  true,
	"resetPassword": true,
	"createOrder":   true,
}

// hasStrictField reports whether the GraphQL request in r selects a strict
// root field. The body is restored for the next handler. Bodies that do not
// parse are left to the GraphQL server to reject.
func hasStrictField(r *http.Request) bool {
	if r.Method != http.MethodPost || r.Body == nil {
		return false
	}

	head, err := io.ReadAll(io.LimitReader(r.Body, maxPeekBytes))
	r.Body = struct {
		io.Reader
		io.Closer
	}{io.MultiReader(bytes.NewReader(head), r.Body), r.Body}
	if err != nil {
		return false
	}

	var params struct {
		Query         string `json:"query"`
		OperationName string `json:"operationName"`
	}
	if json.Unmarshal(head, &params) != nil || params.Query == "" {
		return false
	}

	doc, perr := parser.ParseQuery(&ast.Source{Input: params.Query})
	if perr != nil {
		return false
	}

	for _, op := range doc.Operations {
		if params.OperationName != "" && op.Name != params.OperationName {
			continue
		}
		if selectsStrict(doc, op.SelectionSet, map[string]bool{}) {
			return true
		}
	}
	return false
}

func selectsStrict(doc *ast.QueryDocument, set ast.SelectionSet, seen map[string]bool) bool {
	for _, sel := range set {
		switch s := sel.(type) {
		case *ast.Field:
			if strictFields[s.Name] {
				return true
			}
		case *ast.InlineFragment:
			if selectsStrict(doc, s.SelectionSet, seen) {
				return true
			}
		case *ast.FragmentSpread:
			if seen[s.Name] {
				continue
			}
			seen[s.Name] = true
			if frag := doc.Fragments.ForName(s.Name); frag != nil && selectsStrict(doc, frag.SelectionSet, seen) {
				return true
			}
		}
	}
	return false
}

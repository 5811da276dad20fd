package graph

import (
	_ "embed"

	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"
)

//go:embed schema.graphqls
var SchemaSDL string

// Schema is the validated storefront schema.
var Schema = gqlparser.MustLoadSchema(&ast.Source{Name: "schema.graphqls", Input: SchemaSDL})

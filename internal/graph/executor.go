package graph

import (
	"bytes"
	"context"
	"fmt"
	"reflect"
	"strings"
	"time"

	"sickfits-be/internal/apperr"

	"github.com/99designs/gqlgen/graphql"
	"github.com/vektah/gqlparser/v2/ast"
)

var errIntrospectionDisabled = apperr.New(apperr.KindForbidden, "introspection is disabled")

// FieldFunc resolves one field of a parent value. obj is nil for root fields.
type FieldFunc func(ctx context.Context, obj any, args map[string]any) (any, error)

type Config struct {
	Resolvers *Resolver
}

// NewExecutableSchema binds the storefront schema to cfg's resolvers. Fields
// without a binding resolve to the parent struct field of the same name
// (case-insensitive, underscores ignored) or the parent map key.
func NewExecutableSchema(cfg Config) graphql.ExecutableSchema {
	return &executableSchema{
		schema:    Schema,
		resolvers: cfg.Resolvers.fieldTable(),
	}
}

type executableSchema struct {
	schema    *ast.Schema
	resolvers map[string]map[string]FieldFunc
}

func (e *executableSchema) Schema() *ast.Schema {
	return e.schema
}

// Complexity leaves every field at the default cost.
func (e *executableSchema) Complexity(ctx context.Context, typeName, field string, childComplexity int, rawArgs map[string]any) (int, bool) {
	return 0, false
}

// Exec runs the operation the server already parsed, validated and coerced.
// Root fields run one after another, which mutations require anyway.
func (e *executableSchema) Exec(ctx context.Context) graphql.ResponseHandler {
	opCtx := graphql.GetOperationContext(ctx)
	ec := executionContext{opCtx, e}

	var root *ast.Definition
	switch opCtx.Operation.Operation {
	case ast.Query:
		root = e.schema.Query
	case ast.Mutation:
		root = e.schema.Mutation
	}
	if root == nil {
		return graphql.OneShot(graphql.ErrorResponse(ctx, "unsupported GraphQL operation"))
	}

	first := true
	return func(ctx context.Context) *graphql.Response {
		if !first {
			return nil
		}
		first = false

		data, ok := ec._Object(ctx, root, opCtx.Operation.SelectionSet, nil)
		if !ok {
			data = graphql.Null
		}

		var buf bytes.Buffer
		data.MarshalGQL(&buf)
		return &graphql.Response{Data: buf.Bytes()}
	}
}

type executionContext struct {
	*graphql.OperationContext
	*executableSchema
}

// _Object resolves every selected field of def on obj. ok is false when a
// non-null field came back null and the whole object must become null.
func (ec *executionContext) _Object(ctx context.Context, def *ast.Definition, sel ast.SelectionSet, obj any) (graphql.Marshaler, bool) {
	fields := graphql.CollectFields(ec.OperationContext, sel, []string{def.Name})
	out := graphql.NewFieldSet(fields)

	for i, field := range fields {
		if field.Name == "__typename" {
			out.Values[i] = graphql.MarshalString(def.Name)
			continue
		}

		val, ok := ec._Field(ctx, def, field, obj)
		if !ok {
			return graphql.Null, false
		}
		out.Values[i] = val
	}
	return out, true
}

func (ec *executionContext) _Field(ctx context.Context, parent *ast.Definition, field graphql.CollectedField, obj any) (graphql.Marshaler, bool) {
	fc := &graphql.FieldContext{
		Object: parent.Name,
		Field:  field,
		Args:   field.ArgumentMap(ec.Variables),
	}
	ctx = graphql.WithFieldContext(ctx, fc)

	typ := field.Definition.Type
	res, err := ec.resolve(ctx, parent.Name, field, fc.Args, obj)
	if err != nil {
		graphql.AddError(ctx, err)
		return graphql.Null, !typ.NonNull
	}
	fc.Result = res

	return ec.complete(ctx, typ, field.Selections, res)
}

func (ec *executionContext) resolve(ctx context.Context, typeName string, field graphql.CollectedField, args map[string]any, obj any) (res any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = ec.Recover(ctx, r)
		}
	}()

	if field.Name == "__schema" || field.Name == "__type" {
		return nil, errIntrospectionDisabled
	}
	if fn, ok := ec.resolvers[typeName][field.Name]; ok {
		return fn(ctx, obj, args)
	}
	return defaultResolve(obj, field.Name)
}

// complete shapes val to typ. ok is false when val is null at a non-null position.
func (ec *executionContext) complete(ctx context.Context, typ *ast.Type, sel ast.SelectionSet, val any) (graphql.Marshaler, bool) {
	rv := reflect.ValueOf(val)
	for rv.IsValid() && (rv.Kind() == reflect.Ptr || rv.Kind() == reflect.Interface) {
		if rv.IsNil() {
			rv = reflect.Value{}
			break
		}
		if typ.Elem == nil && rv.Kind() == reflect.Ptr && rv.Elem().Kind() == reflect.Struct {
			// Field resolvers take struct pointers.
			break
		}
		rv = rv.Elem()
	}

	if !rv.IsValid() || (rv.Kind() == reflect.Map && rv.IsNil()) {
		if typ.NonNull {
			graphql.AddErrorf(ctx, "must not be null")
			return graphql.Null, false
		}
		return graphql.Null, true
	}

	if typ.Elem != nil {
		if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
			graphql.AddError(ctx, fmt.Errorf("expected a list for %s, got %T", typ.String(), val))
			return graphql.Null, !typ.NonNull
		}

		out := make(graphql.Array, rv.Len())
		for i := range out {
			idx := i
			elem := rv.Index(i).Interface()
			ctx := graphql.WithFieldContext(ctx, &graphql.FieldContext{Index: &idx, Result: elem})

			v, ok := ec.complete(ctx, typ.Elem, sel, elem)
			if !ok {
				return graphql.Null, !typ.NonNull
			}
			out[i] = v
		}
		return out, true
	}

	def := ec.schema.Types[typ.NamedType]
	if def == nil {
		graphql.AddError(ctx, fmt.Errorf("unknown type %s", typ.NamedType))
		return graphql.Null, !typ.NonNull
	}

	switch def.Kind {
	case ast.Scalar, ast.Enum:
		leaf, err := marshalLeaf(def.Name, rv)
		if err != nil {
			graphql.AddError(ctx, err)
			return graphql.Null, !typ.NonNull
		}
		return leaf, true
	case ast.Object:
		m, ok := ec._Object(ctx, def, sel, rv.Interface())
		if !ok {
			return graphql.Null, !typ.NonNull
		}
		return m, true
	default:
		graphql.AddError(ctx, fmt.Errorf("unsupported output type %s", def.Name))
		return graphql.Null, !typ.NonNull
	}
}

func marshalLeaf(typeName string, rv reflect.Value) (graphql.Marshaler, error) {
	for rv.Kind() == reflect.Ptr {
		rv = rv.Elem()
	}
	if t, ok := rv.Interface().(time.Time); ok {
		return graphql.MarshalTime(t.UTC()), nil
	}

	switch rv.Kind() {
	case reflect.String:
		if typeName == "ID" {
			return graphql.MarshalID(rv.String()), nil
		}
		return graphql.MarshalString(rv.String()), nil
	case reflect.Bool:
		return graphql.MarshalBoolean(rv.Bool()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return graphql.MarshalInt64(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32:
		return graphql.MarshalInt64(int64(rv.Uint())), nil
	case reflect.Float32, reflect.Float64:
		return graphql.MarshalFloat(rv.Float()), nil
	}
	return nil, fmt.Errorf("cannot serialize %s as %s", rv.Type(), typeName)
}

func defaultResolve(obj any, name string) (any, error) {
	rv := reflect.ValueOf(obj)
	for rv.Kind() == reflect.Ptr || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil, nil
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() == reflect.String {
			v := rv.MapIndex(reflect.ValueOf(name).Convert(rv.Type().Key()))
			if !v.IsValid() {
				return nil, nil
			}
			return v.Interface(), nil
		}
	case reflect.Struct:
		goName := strings.ReplaceAll(name, "_", "")
		f := rv.FieldByNameFunc(func(n string) bool { return strings.EqualFold(n, goName) })
		if f.IsValid() && f.CanInterface() {
			return f.Interface(), nil
		}
	}
	return nil, fmt.Errorf("no resolver for field %q on %T", name, obj)
}

package enumvalidator

import (
	"go/ast"
	"go/token"
	"go/types"
	"strconv"

	"golang.org/x/tools/go/analysis"
)

// enumTypes are the string enums whose values must come from their declared
// constants. Matched by type name.
var enumTypes = map[string]bool{
	"Category":               true,
	"TargetKind":             true,
	"AnalysisStatus":         true,
	"WarningKind":            true,
	"RecommendationCategory": true,
	"Priority":               true,
	"Kind":                   true,
	"FailureKind":            true,
}

var Analyzer = &analysis.Analyzer{
	Name: "enumvalidator",
	Doc:  "checks that enum values use defined constants, not string literals",
	Run:  run,
}

func run(pass *analysis.Pass) (interface{}, error) {
	for _, file := range pass.Files {
		ast.Inspect(file, func(n ast.Node) bool {
			switch node := n.(type) {
			case *ast.AssignStmt:
				checkAssign(pass, node)
			case *ast.CompositeLit:
				checkCompositeLit(pass, node)
			case *ast.BinaryExpr:
				checkComparison(pass, node)
			}
			return true
		})
	}
	return nil, nil
}

func checkAssign(pass *analysis.Pass, assign *ast.AssignStmt) {
	if len(assign.Lhs) != len(assign.Rhs) {
		return
	}
	for i, lhs := range assign.Lhs {
		sel, ok := lhs.(*ast.SelectorExpr)
		if !ok {
			continue
		}
		if name, ok := enumName(pass.TypesInfo.TypeOf(sel)); ok && isStringLiteral(assign.Rhs[i]) {
			pass.Reportf(assign.Pos(),
				"enum field %s (%s) assigned string literal; use defined constant instead",
				sel.Sel.Name, name)
		}
	}
}

func checkCompositeLit(pass *analysis.Pass, lit *ast.CompositeLit) {
	for _, elt := range lit.Elts {
		kv, ok := elt.(*ast.KeyValueExpr)
		if !ok || !isStringLiteral(kv.Value) {
			continue
		}
		key, ok := kv.Key.(*ast.Ident)
		if !ok {
			continue
		}
		field, ok := pass.TypesInfo.ObjectOf(key).(*types.Var)
		if !ok || !field.IsField() {
			continue
		}
		if name, ok := enumName(field.Type()); ok {
			pass.Reportf(kv.Pos(),
				"enum field %s (%s) set to string literal; use defined constant instead",
				key.Name, name)
		}
	}
}

// checkComparison flags enum == "literal". Comparing against "" is a zero
// value check and allowed.
func checkComparison(pass *analysis.Pass, expr *ast.BinaryExpr) {
	if expr.Op != token.EQL && expr.Op != token.NEQ {
		return
	}
	for _, pair := range [][2]ast.Expr{{expr.X, expr.Y}, {expr.Y, expr.X}} {
		operand, lit := pair[0], pair[1]
		if !isStringLiteral(lit) || isEmptyString(lit) {
			continue
		}
		if name, ok := enumName(pass.TypesInfo.TypeOf(operand)); ok {
			pass.Reportf(expr.Pos(), "%s compared with string literal; use defined constant instead", name)
			return
		}
	}
}

func enumName(t types.Type) (string, bool) {
	if t == nil {
		return "", false
	}
	named, ok := t.(*types.Named)
	if !ok {
		return "", false
	}
	basic, ok := named.Underlying().(*types.Basic)
	if !ok || basic.Kind() != types.String {
		return "", false
	}
	name := named.Obj().Name()
	return name, enumTypes[name]
}

func isStringLiteral(expr ast.Expr) bool {
	lit, ok := expr.(*ast.BasicLit)
	return ok && lit.Kind == token.STRING
}

func isEmptyString(expr ast.Expr) bool {
	s, err := strconv.Unquote(expr.(*ast.BasicLit).Value)
	return err == nil && s == ""
}

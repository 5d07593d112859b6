package sql

import (
	"fmt"
	"strconv"

	"github.com/relite/relite/internal/value"
)

type parser struct {
	toks   []Token
	pos    int
	nextParam uint32
}

// Parse lexes and parses a single SQL statement.
func Parse(sqlText string) (Statement, error) {
	toks, err := Tokenize(sqlText)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	stmt, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	return stmt, nil
}

func (p *parser) cur() Token { return p.toks[p.pos] }

func (p *parser) advance() Token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *parser) atKeyword(kw string) bool {
	t := p.cur()
	return t.Kind == TokKeyword && t.Val == kw
}

func (p *parser) atSymbol(sym string) bool {
	t := p.cur()
	return t.Kind == TokSymbol && t.Val == sym
}

func (p *parser) expectKeyword(kw string) error {
	if !p.atKeyword(kw) {
		return fmt.Errorf("sql: expected %s at %d: %w", kw, p.cur().Pos, ErrUnexpectedToken)
	}
	p.advance()
	return nil
}

func (p *parser) expectSymbol(sym string) error {
	if !p.atSymbol(sym) {
		return fmt.Errorf("sql: expected %q at %d: %w", sym, p.cur().Pos, ErrUnexpectedToken)
	}
	p.advance()
	return nil
}

func (p *parser) expectIdent() (string, error) {
	t := p.cur()
	if t.Kind != TokIdent {
		return "", fmt.Errorf("sql: at %d: %w", t.Pos, ErrExpectedIdentifier)
	}
	p.advance()
	return t.Val, nil
}

func (p *parser) parseStatement() (Statement, error) {
	t := p.cur()
	if t.Kind != TokKeyword {
		return nil, fmt.Errorf("sql: at %d: %w", t.Pos, ErrUnexpectedToken)
	}
	var stmt Statement
	var err error
	switch t.Val {
	case "SELECT":
		stmt, err = p.parseSelect()
	case "INSERT":
		stmt, err = p.parseInsert()
	case "CREATE":
		stmt, err = p.parseCreateTable()
	case "UPDATE":
		stmt, err = p.parseUpdate()
	case "DELETE":
		stmt, err = p.parseDelete()
	default:
		return nil, fmt.Errorf("sql: at %d: %w", t.Pos, ErrUnexpectedToken)
	}
	if err != nil {
		return nil, err
	}
	if p.atSymbol(";") {
		p.advance()
	}
	return stmt, nil
}

// ── SELECT ───────────────────────────────────────────────────────────────

func (p *parser) parseSelect() (*SelectStmt, error) {
	if err := p.expectKeyword("SELECT"); err != nil {
		return nil, err
	}
	cols, err := p.parseSelectColumns()
	if err != nil {
		return nil, err
	}
	if err := p.expectKeyword("FROM"); err != nil {
		return nil, err
	}
	table, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	stmt := &SelectStmt{Table: table, Columns: cols}
	if p.atKeyword("WHERE") {
		p.advance()
		cond, err := p.parseCondition()
		if err != nil {
			return nil, err
		}
		stmt.Where = cond
	}
	if p.atKeyword("LIMIT") {
		p.advance()
		n, err := p.parseIntLiteral()
		if err != nil {
			return nil, err
		}
		stmt.Limit = &n
	}
	if p.atKeyword("OFFSET") {
		p.advance()
		n, err := p.parseIntLiteral()
		if err != nil {
			return nil, err
		}
		stmt.Offset = &n
	}
	return stmt, nil
}

func (p *parser) parseSelectColumns() ([]SelectColumn, error) {
	if p.atSymbol("*") {
		p.advance()
		return []SelectColumn{{Name: "*"}}, nil
	}
	var cols []SelectColumn
	for {
		name, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		col := SelectColumn{Name: name}
		if p.atKeyword("AS") {
			p.advance()
			alias, err := p.expectIdent()
			if err != nil {
				return nil, err
			}
			col.Alias = alias
		} else if p.cur().Kind == TokIdent {
			alias, _ := p.expectIdent()
			col.Alias = alias
		}
		cols = append(cols, col)
		if p.atSymbol(",") {
			p.advance()
			continue
		}
		break
	}
	return cols, nil
}

func (p *parser) parseIntLiteral() (int, error) {
	t := p.cur()
	if t.Kind != TokNumber {
		return 0, fmt.Errorf("sql: at %d: %w", t.Pos, ErrExpectedNumber)
	}
	p.advance()
	n, err := strconv.Atoi(t.Val)
	if err != nil {
		return 0, fmt.Errorf("sql: at %d: %w", t.Pos, ErrExpectedNumber)
	}
	return n, nil
}

// ── INSERT ───────────────────────────────────────────────────────────────

func (p *parser) parseInsert() (*InsertStmt, error) {
	if err := p.expectKeyword("INSERT"); err != nil {
		return nil, err
	}
	if err := p.expectKeyword("INTO"); err != nil {
		return nil, err
	}
	table, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	stmt := &InsertStmt{Table: table}
	if p.atSymbol("(") {
		p.advance()
		cols, err := p.parseIdentList()
		if err != nil {
			return nil, err
		}
		stmt.Columns = cols
		if err := p.expectSymbol(")"); err != nil {
			return nil, err
		}
	}
	if err := p.expectKeyword("VALUES"); err != nil {
		return nil, err
	}
	for {
		if err := p.expectSymbol("("); err != nil {
			return nil, err
		}
		row, err := p.parseValueList()
		if err != nil {
			return nil, err
		}
		if err := p.expectSymbol(")"); err != nil {
			return nil, err
		}
		stmt.Rows = append(stmt.Rows, row)
		if p.atSymbol(",") {
			p.advance()
			continue
		}
		break
	}
	return stmt, nil
}

func (p *parser) parseIdentList() ([]string, error) {
	var names []string
	for {
		name, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		names = append(names, name)
		if p.atSymbol(",") {
			p.advance()
			continue
		}
		break
	}
	return names, nil
}

func (p *parser) parseValueList() ([]Expr, error) {
	var vals []Expr
	for {
		v, err := p.parseValueExpr()
		if err != nil {
			return nil, err
		}
		vals = append(vals, v)
		if p.atSymbol(",") {
			p.advance()
			continue
		}
		break
	}
	return vals, nil
}

func (p *parser) parseValueExpr() (Expr, error) {
	t := p.cur()
	switch {
	case t.Kind == TokNumber:
		p.advance()
		return Literal{Value: numberValue(t.Val)}, nil
	case t.Kind == TokString:
		p.advance()
		return Literal{Value: value.Text(t.Val)}, nil
	case t.Kind == TokKeyword && t.Val == "NULL":
		p.advance()
		return Literal{Value: value.Null()}, nil
	case t.Kind == TokSymbol && t.Val == "?":
		p.advance()
		idx := p.nextParam
		p.nextParam++
		return ParamExpr{Index: idx}, nil
	default:
		return nil, fmt.Errorf("sql: at %d: %w", t.Pos, ErrExpectedValue)
	}
}

func numberValue(lit string) value.Value {
	if i, err := strconv.ParseInt(lit, 10, 64); err == nil {
		return value.Int(i)
	}
	f, _ := strconv.ParseFloat(lit, 64)
	return value.Real(f)
}

// ── CREATE TABLE ─────────────────────────────────────────────────────────

func (p *parser) parseCreateTable() (*CreateTableStmt, error) {
	if err := p.expectKeyword("CREATE"); err != nil {
		return nil, err
	}
	if err := p.expectKeyword("TABLE"); err != nil {
		return nil, err
	}
	stmt := &CreateTableStmt{}
	if p.atKeyword("IF") {
		p.advance()
		if err := p.expectKeyword("NOT"); err != nil {
			return nil, err
		}
		if err := p.expectKeyword("EXISTS"); err != nil {
			return nil, err
		}
		stmt.IfNotExists = true
	}
	table, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	stmt.Table = table
	if err := p.expectSymbol("("); err != nil {
		return nil, err
	}
	for {
		col, err := p.parseColumnDef()
		if err != nil {
			return nil, err
		}
		stmt.Columns = append(stmt.Columns, col)
		if p.atSymbol(",") {
			p.advance()
			continue
		}
		break
	}
	if err := p.expectSymbol(")"); err != nil {
		return nil, err
	}
	return stmt, nil
}

var dataTypes = map[string]bool{"INTEGER": true, "TEXT": true, "REAL": true, "BLOB": true}

func (p *parser) parseColumnDef() (ColumnDef, error) {
	name, err := p.expectIdent()
	if err != nil {
		return ColumnDef{}, err
	}
	t := p.cur()
	if t.Kind != TokKeyword || !dataTypes[t.Val] {
		return ColumnDef{}, fmt.Errorf("sql: at %d: %w", t.Pos, ErrUnknownDataType)
	}
	p.advance()
	col := ColumnDef{Name: name, Type: t.Val}
	for {
		switch {
		case p.atKeyword("PRIMARY"):
			p.advance()
			if err := p.expectKeyword("KEY"); err != nil {
				return ColumnDef{}, err
			}
			col.PrimaryKey = true
		case p.atKeyword("NOT"):
			p.advance()
			if err := p.expectKeyword("NULL"); err != nil {
				return ColumnDef{}, err
			}
			col.NotNull = true
		case p.atKeyword("UNIQUE"):
			p.advance()
			col.Unique = true
		case p.atKeyword("DEFAULT"):
			p.advance()
			def, err := p.parseDefault()
			if err != nil {
				return ColumnDef{}, err
			}
			col.Default = &def
		default:
			return col, nil
		}
	}
}

func (p *parser) parseDefault() (DefaultClause, error) {
	if p.atSymbol("(") {
		p.advance()
		inner, err := p.parseDefault()
		if err != nil {
			return DefaultClause{}, err
		}
		if err := p.expectSymbol(")"); err != nil {
			return DefaultClause{}, err
		}
		return inner, nil
	}
	t := p.cur()
	if t.Kind == TokIdent && p.pos+1 < len(p.toks) && p.toks[p.pos+1].Kind == TokSymbol && p.toks[p.pos+1].Val == "(" {
		name := t.Val
		p.advance()
		p.advance() // "("
		var args []value.Value
		if !p.atSymbol(")") {
			for {
				arg, err := p.parseFuncArg()
				if err != nil {
					return DefaultClause{}, err
				}
				args = append(args, arg)
				if p.atSymbol(",") {
					p.advance()
					continue
				}
				break
			}
		}
		if err := p.expectSymbol(")"); err != nil {
			return DefaultClause{}, err
		}
		return DefaultClause{IsFunc: true, FuncName: name, FuncArgs: args}, nil
	}
	lit, err := p.parseDefaultLiteral()
	if err != nil {
		return DefaultClause{}, err
	}
	return DefaultClause{Literal: lit}, nil
}

func (p *parser) parseFuncArg() (value.Value, error) {
	t := p.cur()
	switch {
	case t.Kind == TokString:
		p.advance()
		return value.Text(t.Val), nil
	case t.Kind == TokNumber:
		p.advance()
		return numberValue(t.Val), nil
	default:
		return value.Value{}, fmt.Errorf("sql: at %d: %w", t.Pos, ErrExpectedValue)
	}
}

func (p *parser) parseDefaultLiteral() (value.Value, error) {
	t := p.cur()
	switch {
	case t.Kind == TokNumber:
		p.advance()
		return numberValue(t.Val), nil
	case t.Kind == TokString:
		p.advance()
		return value.Text(t.Val), nil
	case t.Kind == TokKeyword && t.Val == "NULL":
		p.advance()
		return value.Null(), nil
	default:
		return value.Value{}, fmt.Errorf("sql: at %d: %w", t.Pos, ErrExpectedValue)
	}
}

// ── UPDATE ───────────────────────────────────────────────────────────────

func (p *parser) parseUpdate() (*UpdateStmt, error) {
	if err := p.expectKeyword("UPDATE"); err != nil {
		return nil, err
	}
	table, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	if err := p.expectKeyword("SET"); err != nil {
		return nil, err
	}
	stmt := &UpdateStmt{Table: table}
	for {
		col, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		if err := p.expectSymbol("="); err != nil {
			return nil, err
		}
		val, err := p.parseValueExpr()
		if err != nil {
			return nil, err
		}
		stmt.Assignments = append(stmt.Assignments, Assignment{Column: col, Value: val})
		if p.atSymbol(",") {
			p.advance()
			continue
		}
		break
	}
	if p.atKeyword("WHERE") {
		p.advance()
		cond, err := p.parseCondition()
		if err != nil {
			return nil, err
		}
		stmt.Where = cond
	}
	return stmt, nil
}

// ── DELETE ───────────────────────────────────────────────────────────────

func (p *parser) parseDelete() (*DeleteStmt, error) {
	if err := p.expectKeyword("DELETE"); err != nil {
		return nil, err
	}
	if err := p.expectKeyword("FROM"); err != nil {
		return nil, err
	}
	table, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	stmt := &DeleteStmt{Table: table}
	if p.atKeyword("WHERE") {
		p.advance()
		cond, err := p.parseCondition()
		if err != nil {
			return nil, err
		}
		stmt.Where = cond
	}
	return stmt, nil
}

// ── Conditions & expressions ─────────────────────────────────────────────

func (p *parser) parseCondition() (Cond, error) {
	left, err := p.parseComparison()
	if err != nil {
		return nil, err
	}
	for p.atKeyword("AND") || p.atKeyword("OR") {
		op := p.advance().Val
		right, err := p.parseComparison()
		if err != nil {
			return nil, err
		}
		left = &Logical{Left: left, Op: op, Right: right}
	}
	return left, nil
}

var comparisonOps = map[string]bool{"=": true, "!=": true, "<": true, "<=": true, ">": true, ">=": true}

func (p *parser) parseComparison() (Cond, error) {
	left, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	t := p.cur()
	if t.Kind != TokSymbol || !comparisonOps[t.Val] {
		return nil, fmt.Errorf("sql: at %d: %w", t.Pos, ErrExpectedOperator)
	}
	p.advance()
	right, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	return &Comparison{Left: left, Op: t.Val, Right: right}, nil
}

func (p *parser) parseExpr() (Expr, error) {
	t := p.cur()
	switch {
	case t.Kind == TokIdent:
		p.advance()
		return ColumnRef{Name: t.Val}, nil
	case t.Kind == TokNumber:
		p.advance()
		return Literal{Value: numberValue(t.Val)}, nil
	case t.Kind == TokString:
		p.advance()
		return Literal{Value: value.Text(t.Val)}, nil
	case t.Kind == TokKeyword && t.Val == "NULL":
		p.advance()
		return Literal{Value: value.Null()}, nil
	case t.Kind == TokSymbol && t.Val == "?":
		p.advance()
		idx := p.nextParam
		p.nextParam++
		return ParamExpr{Index: idx}, nil
	default:
		return nil, fmt.Errorf("sql: at %d: %w", t.Pos, ErrExpectedValue)
	}
}

package sql

import "testing"

func TestTokenize_KeywordsIdentifiersNumbersStrings(t *testing.T) {
	toks, err := Tokenize(`SELECT id, name FROM t WHERE id = 1 AND name = 'bob'`)
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}
	want := []struct {
		kind TokenKind
		val  string
	}{
		{TokKeyword, "SELECT"},
		{TokIdent, "id"},
		{TokSymbol, ","},
		{TokIdent, "name"},
		{TokKeyword, "FROM"},
		{TokIdent, "t"},
		{TokKeyword, "WHERE"},
		{TokIdent, "id"},
		{TokSymbol, "="},
		{TokNumber, "1"},
		{TokKeyword, "AND"},
		{TokIdent, "name"},
		{TokSymbol, "="},
		{TokString, "bob"},
		{TokEOF, ""},
	}
	if len(toks) != len(want) {
		t.Fatalf("got %d tokens, want %d: %+v", len(toks), len(want), toks)
	}
	for i, w := range want {
		if toks[i].Kind != w.kind || toks[i].Val != w.val {
			t.Fatalf("token %d: got {%s %q}, want {%s %q}", i, toks[i].Kind, toks[i].Val, w.kind, w.val)
		}
	}
}

func TestTokenize_DoubleAndSingleQuotedStringsAreBothStrings(t *testing.T) {
	toks, err := Tokenize(`"double" 'single'`)
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}
	if toks[0].Kind != TokString || toks[0].Val != "double" {
		t.Fatalf("got %+v", toks[0])
	}
	if toks[1].Kind != TokString || toks[1].Val != "single" {
		t.Fatalf("got %+v", toks[1])
	}
}

func TestTokenize_UnterminatedStringIsAnError(t *testing.T) {
	if _, err := Tokenize(`'unterminated`); err == nil {
		t.Fatal("expected an unterminated-string error")
	}
}

func TestTokenize_OperatorsIncludingTwoCharForms(t *testing.T) {
	toks, err := Tokenize(`<= >= != < > =`)
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}
	want := []string{"<=", ">=", "!=", "<", ">", "="}
	for i, w := range want {
		if toks[i].Val != w {
			t.Fatalf("token %d: got %q, want %q", i, toks[i].Val, w)
		}
	}
}

func TestTokenize_UnexpectedCharacterIsAnError(t *testing.T) {
	if _, err := Tokenize(`SELECT @`); err == nil {
		t.Fatal("expected an unexpected-character error for '@'")
	}
}

func TestTokenize_PositionalParameterSymbol(t *testing.T) {
	toks, err := Tokenize(`? ?`)
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}
	if toks[0].Kind != TokSymbol || toks[0].Val != "?" {
		t.Fatalf("got %+v", toks[0])
	}
	if toks[1].Kind != TokSymbol || toks[1].Val != "?" {
		t.Fatalf("got %+v", toks[1])
	}
}

func TestTokenize_NumberWithDecimalPoint(t *testing.T) {
	toks, err := Tokenize(`3.14`)
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}
	if toks[0].Kind != TokNumber || toks[0].Val != "3.14" {
		t.Fatalf("got %+v", toks[0])
	}
}

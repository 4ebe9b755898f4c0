package schemalang

import "fmt"

// Parser turns a token stream from a Lexer into a File.
type Parser struct {
	lex     *Lexer
	tok     Token
	started bool
}

// NewParser prepares a Parser reading from lex.
func NewParser(lex *Lexer) *Parser {
	return &Parser{lex: lex}
}

func (p *Parser) next() error {
	for {
		tok, err := p.lex.Next()
		if err != nil {
			return err
		}
		if tok.Type == TokenComment {
			continue
		}
		p.tok = tok
		return nil
	}
}

func (p *Parser) advance() error {
	return p.next()
}

// Parse consumes filename's source in full and returns the declared
// records.
func Parse(filename, src string) (*File, error) {
	p := NewParser(NewLexer(filename, src))
	return p.Parse()
}

// Parse runs the parser to completion.
func (p *Parser) Parse() (*File, error) {
	if err := p.advance(); err != nil {
		return nil, err
	}
	file := &File{}
	for p.tok.Type != TokenEOF {
		rec, err := p.parseRecord()
		if err != nil {
			return nil, err
		}
		file.Records = append(file.Records, rec)
	}
	return file, nil
}

func (p *Parser) expect(t TokenType) (Token, error) {
	if p.tok.Type != t {
		return Token{}, fmt.Errorf("%s:%d:%d: expected %s, got %s %q", p.tok.Position.Filename, p.tok.Position.Line, p.tok.Position.Column, t, p.tok.Type, p.tok.Value)
	}
	tok := p.tok
	if err := p.advance(); err != nil {
		return Token{}, err
	}
	return tok, nil
}

func (p *Parser) parseRecord() (*Record, error) {
	if _, err := p.expect(TokenRecord); err != nil {
		return nil, err
	}
	name, err := p.expect(TokenIdent)
	if err != nil {
		return nil, err
	}
	rec := &Record{Position: name.Position, Name: name.Value}
	if _, err := p.expect(TokenLBrace); err != nil {
		return nil, err
	}
	for p.tok.Type != TokenRBrace {
		if p.tok.Type == TokenEOF {
			return nil, fmt.Errorf("%s:%d:%d: unterminated record %q: expected '}'", name.Position.Filename, p.tok.Position.Line, p.tok.Position.Column, rec.Name)
		}
		field, err := p.parseField()
		if err != nil {
			return nil, err
		}
		rec.Fields = append(rec.Fields, field)
	}
	if _, err := p.expect(TokenRBrace); err != nil {
		return nil, err
	}
	return rec, nil
}

func (p *Parser) parseField() (*Field, error) {
	name, err := p.expect(TokenIdent)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokenColon); err != nil {
		return nil, err
	}
	typeName, err := p.expect(TokenIdent)
	if err != nil {
		return nil, err
	}
	field := &Field{Position: name.Position, Name: name.Value, TypeName: typeName.Value}
	if p.tok.Type == TokenQuestion {
		field.Optional = true
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
	return field, nil
}

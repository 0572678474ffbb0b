package server

import (
	"strings"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/msto63/callexpr/foundation/callexpr/ast"
	"github.com/msto63/callexpr/foundation/callexpr/parser"
	"github.com/msto63/callexpr/foundation/callexpr/token"
	mdwerror "github.com/msto63/callexpr/foundation/core/error"
	"github.com/msto63/callexpr/internal/service"
)

// Message fields.
//
//	ParseRequest       {expression}
//	ParseResponse      {request_id, tree, canonical, depth, commands, tokens, duration_us}
//	ParseBatchRequest  {expressions: [string]}
//	ParseBatchResponse {results: [{index, ok, tree?, canonical?, error?}]}
//	TokenizeRequest    {expression}
//	TokenizeResponse   {tokens: [{kind, text, offset}]}
//	error              {code, message, offset?}
const (
	FieldExpression  = "expression"
	FieldExpressions = "expressions"
	FieldRequestID   = "request_id"
	FieldTree        = "tree"
	FieldCanonical   = "canonical"
	FieldDepth       = "depth"
	FieldCommands    = "commands"
	FieldTokens      = "tokens"
	FieldDurationUS  = "duration_us"
	FieldResults     = "results"
	FieldIndex       = "index"
	FieldOK          = "ok"
	FieldError       = "error"
	FieldCode        = "code"
	FieldMessage     = "message"
	FieldOffset      = "offset"
	FieldKind        = "kind"
	FieldText        = "text"
)

func invalidRequest(format string, args ...interface{}) error {
	return mdwerror.Newf(format, args...).
		WithCode(mdwerror.CodeInvalidInput).
		WithOperation("server.decode")
}

// expressionOf extracts the expression field of a request
func expressionOf(req *structpb.Struct) (string, error) {
	v, ok := req.GetFields()[FieldExpression]
	if !ok {
		return "", invalidRequest("field %q is required", FieldExpression)
	}
	s, ok := v.GetKind().(*structpb.Value_StringValue)
	if !ok {
		return "", invalidRequest("field %q must be a string", FieldExpression)
	}
	return s.StringValue, nil
}

// expressionsOf extracts the expressions list of a batch request
func expressionsOf(req *structpb.Struct) ([]string, error) {
	v, ok := req.GetFields()[FieldExpressions]
	if !ok {
		return nil, invalidRequest("field %q is required", FieldExpressions)
	}
	list := v.GetListValue()
	if list == nil {
		return nil, invalidRequest("field %q must be a list", FieldExpressions)
	}
	exprs := make([]string, len(list.GetValues()))
	for i, item := range list.GetValues() {
		s, ok := item.GetKind().(*structpb.Value_StringValue)
		if !ok {
			return nil, invalidRequest("%s[%d] must be a string", FieldExpressions, i)
		}
		exprs[i] = s.StringValue
	}
	return exprs, nil
}

// ExpressionRequest builds a Parse or Tokenize request
func ExpressionRequest(expr string) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		FieldExpression: structpb.NewStringValue(expr),
	}}
}

// BatchRequest builds a ParseBatch request
func BatchRequest(exprs []string) *structpb.Struct {
	values := make([]*structpb.Value, len(exprs))
	for i, expr := range exprs {
		values[i] = structpb.NewStringValue(expr)
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		FieldExpressions: structpb.NewListValue(&structpb.ListValue{Values: values}),
	}}
}

func resultMap(result *service.Result) map[string]interface{} {
	return map[string]interface{}{
		FieldRequestID:  result.RequestID,
		FieldTree:       result.Command.ToMap(),
		FieldCanonical:  result.Command.String(),
		FieldDepth:      result.Depth,
		FieldCommands:   result.Commands,
		FieldTokens:     result.Tokens,
		FieldDurationUS: result.Duration.Microseconds(),
	}
}

func errorMap(err error) map[string]interface{} {
	m := map[string]interface{}{
		FieldCode:    mdwerror.GetCode(err).String(),
		FieldMessage: err.Error(),
	}
	if offset, ok := parser.ErrorOffset(err); ok {
		m[FieldOffset] = offset
	}
	return m
}

func batchMap(items []service.BatchItem) map[string]interface{} {
	results := make([]interface{}, len(items))
	for i, item := range items {
		entry := map[string]interface{}{
			FieldIndex: item.Index,
			FieldOK:    item.Err == nil,
		}
		if item.Err != nil {
			entry[FieldError] = errorMap(item.Err)
		} else {
			entry[FieldTree] = item.Result.Command.ToMap()
			entry[FieldCanonical] = item.Result.Command.String()
		}
		results[i] = entry
	}
	return map[string]interface{}{FieldResults: results}
}

func tokensMap(tokens []token.Token) map[string]interface{} {
	list := make([]interface{}, len(tokens))
	for i, tok := range tokens {
		list[i] = map[string]interface{}{
			FieldKind:   tok.Kind.String(),
			FieldText:   tok.Text,
			FieldOffset: tok.Offset,
		}
	}
	return map[string]interface{}{FieldTokens: list}
}

// ParseReply is the decoded form of a ParseResponse
type ParseReply struct {
	RequestID  string
	Command    *ast.Command
	Canonical  string
	Depth      int
	Commands   int
	Tokens     int
	DurationUS int64
}

// BatchReply is one decoded ParseBatch result
type BatchReply struct {
	Index   int
	Command *ast.Command
	Err     error
}

func decodeParseReply(resp *structpb.Struct) (*ParseReply, error) {
	m := resp.AsMap()
	tree, ok := m[FieldTree].(map[string]interface{})
	if !ok {
		return nil, invalidResponse("missing %q", FieldTree)
	}
	cmd, err := ast.FromMap(tree)
	if err != nil {
		return nil, invalidResponse("bad tree: %v", err)
	}
	return &ParseReply{
		RequestID:  stringOf(m[FieldRequestID]),
		Command:    cmd,
		Canonical:  stringOf(m[FieldCanonical]),
		Depth:      intOf(m[FieldDepth]),
		Commands:   intOf(m[FieldCommands]),
		Tokens:     intOf(m[FieldTokens]),
		DurationUS: int64(intOf(m[FieldDurationUS])),
	}, nil
}

func decodeBatchReply(resp *structpb.Struct) ([]BatchReply, error) {
	raw, ok := resp.AsMap()[FieldResults].([]interface{})
	if !ok {
		return nil, invalidResponse("missing %q", FieldResults)
	}
	replies := make([]BatchReply, len(raw))
	for i, item := range raw {
		m, _ := item.(map[string]interface{})
		reply := BatchReply{Index: intOf(m[FieldIndex])}
		if e, ok := m[FieldError].(map[string]interface{}); ok {
			err := mdwerror.New(stringOf(e[FieldMessage])).WithCode(mdwerror.Code(stringOf(e[FieldCode])))
			if offset, ok := e[FieldOffset].(float64); ok {
				err = err.WithDetail(parser.DetailOffset, int(offset))
			}
			reply.Err = err
		} else {
			tree, _ := m[FieldTree].(map[string]interface{})
			cmd, err := ast.FromMap(tree)
			if err != nil {
				return nil, invalidResponse("bad tree in result %d: %v", i, err)
			}
			reply.Command = cmd
		}
		replies[i] = reply
	}
	return replies, nil
}

func decodeTokens(resp *structpb.Struct) ([]token.Token, error) {
	raw, ok := resp.AsMap()[FieldTokens].([]interface{})
	if !ok {
		return nil, invalidResponse("missing %q", FieldTokens)
	}
	tokens := make([]token.Token, len(raw))
	for i, item := range raw {
		m, _ := item.(map[string]interface{})
		kind, ok := kindOf(stringOf(m[FieldKind]))
		if !ok {
			return nil, invalidResponse("unknown token kind %q", m[FieldKind])
		}
		tokens[i] = token.Token{Kind: kind, Text: stringOf(m[FieldText]), Offset: intOf(m[FieldOffset])}
	}
	return tokens, nil
}

func kindOf(name string) (token.Kind, bool) {
	for _, k := range []token.Kind{token.Literal, token.Comma, token.ParenOpen, token.ParenClose, token.Quote} {
		if strings.EqualFold(k.String(), name) {
			return k, true
		}
	}
	return token.Literal, false
}

func invalidResponse(format string, args ...interface{}) error {
	return mdwerror.Newf("invalid response: "+format, args...).
		WithCode(mdwerror.CodeInternal).
		WithOperation("server.Client")
}

func stringOf(v interface{}) string {
	s, _ := v.(string)
	return s
}

// intOf reads a Struct number, which always decodes as float64
func intOf(v interface{}) int {
	f, _ := v.(float64)
	return int(f)
}

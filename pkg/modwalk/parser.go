package modwalk

import (
	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_rust "github.com/tree-sitter/tree-sitter-rust/bindings/go"

	"cratefiles/pkg/errors"
)

var rustLanguage = sitter.NewLanguage(tree_sitter_rust.Language())

// extractModules parses one Rust source file and returns, in declaration
// order, every file-backed module declaration not gated out of the build.
// Inline modules (`mod foo { ... }`) contribute no entry of their own; their
// bodies are visited with the enclosing chain pushed on the component stack,
// mirroring how the compiler nests their submodule paths.
func extractModules(path string, source []byte, cfg Config) ([]module, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(rustLanguage)

	tree := parser.Parse(source, nil)
	if tree == nil {
		return nil, errors.New(errors.CodeParseError, "parse failed").
			WithContext(errors.CtxPath, path)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root == nil || root.HasError() {
		return nil, errors.New(errors.CodeParseError, "source file has syntax errors").
			WithContext(errors.CtxPath, path)
	}

	e := &extractor{source: source, path: path, cfg: cfg, gates: newCfgEvaluator(cfg)}
	if err := e.walk(root); err != nil {
		return nil, err
	}
	return e.modules, nil
}

type extractor struct {
	source  []byte
	path    string
	cfg     Config
	gates   *cfgEvaluator
	stack   []pathComponent
	modules []module
}

func (e *extractor) walk(node *sitter.Node) error {
	var attrs []*sitter.Node

	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)

		switch child.Kind() {
		case "attribute_item":
			attrs = append(attrs, child)
			continue
		case "line_comment", "block_comment":
			// Doc comments between an attribute and its item must not
			// detach the attribute.
			continue
		case "mod_item":
			if err := e.handleMod(child, attrs); err != nil {
				return err
			}
		default:
			if err := e.walk(child); err != nil {
				return err
			}
		}
		attrs = nil
	}
	return nil
}

func (e *extractor) handleMod(node *sitter.Node, attrs []*sitter.Node) error {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return nil
	}

	decl := ModDecl{
		Name: e.text(nameNode),
		File: e.path,
		Line: int(node.StartPosition().Row) + 1,
	}

	var override string
	var hasOverride bool

	for _, attrItem := range attrs {
		attr := childOfKind(attrItem, "attribute")
		if attr == nil {
			continue
		}

		switch e.attributeName(attr) {
		case "path":
			if value := attr.ChildByFieldName("value"); value != nil {
				override = e.stringValue(value)
				hasOverride = true
			}
		case "cfg":
			if args := attr.ChildByFieldName("arguments"); args != nil {
				if e.gates.Excluded(e.text(args)) {
					// The whole subtree is out of the build.
					return nil
				}
			}
		case "cfg_attr":
			args := attr.ChildByFieldName("arguments")
			if args == nil || !e.tokenTreeMentionsPath(args) {
				continue
			}
			// A definitively false predicate means the attribute never
			// expands; the declaration resolves by convention.
			if e.gates.Excluded(e.text(args)) {
				continue
			}
			// The backing file depends on which branch of the cfg_attr
			// expands; that is not statically determinable here.
			if e.cfg.Resolver != nil {
				if resolved, ok := e.cfg.Resolver(decl); ok {
					override = resolved
					hasOverride = true
					continue
				}
			}
			return errors.New(errors.CodeUnsupportedConstruct, "module path depends on cfg_attr expansion").
				WithContext(errors.CtxModule, decl.Name).
				WithContext(errors.CtxPath, decl.File).
				WithContext(errors.CtxLine, decl.Line)
		}
	}

	comp := pathComponent{name: decl.Name, override: override, hasOverride: hasOverride}

	if body := node.ChildByFieldName("body"); body != nil {
		e.stack = append(e.stack, comp)
		err := e.walk(body)
		e.stack = e.stack[:len(e.stack)-1]
		return err
	}

	parts := make([]pathComponent, 0, len(e.stack)+1)
	parts = append(parts, e.stack...)
	parts = append(parts, comp)
	e.modules = append(e.modules, module{parts: parts, decl: decl})
	return nil
}

// attributeName returns the attribute's path text ("path", "cfg", ...).
func (e *extractor) attributeName(attr *sitter.Node) string {
	first := attr.Child(0)
	if first == nil {
		return ""
	}
	return e.text(first)
}

func (e *extractor) stringValue(node *sitter.Node) string {
	if content := childOfKind(node, "string_content"); content != nil {
		return e.text(content)
	}
	text := e.text(node)
	if len(text) >= 2 && text[0] == '"' && text[len(text)-1] == '"' {
		return text[1 : len(text)-1]
	}
	return text
}

// tokenTreeMentionsPath walks a cfg_attr token tree looking for a `path`
// identifier, the marker of a conditional path override.
func (e *extractor) tokenTreeMentionsPath(node *sitter.Node) bool {
	if node.Kind() == "identifier" && e.text(node) == "path" {
		return true
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		if e.tokenTreeMentionsPath(node.Child(i)) {
			return true
		}
	}
	return false
}

func (e *extractor) text(node *sitter.Node) string {
	return string(e.source[node.StartByte():node.EndByte()])
}

func childOfKind(node *sitter.Node, kind string) *sitter.Node {
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child.Kind() == kind {
			return child
		}
	}
	return nil
}

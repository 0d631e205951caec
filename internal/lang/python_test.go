package lang

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mgrier/spyglass/internal/tree"
)

const pySample = `"""Top doc."""

import os.path
from collections import OrderedDict as OD
from junk import *

TOP = 1

class Base:
    pass

class Greeter(Base):
    """Says hello."""

    def greet(self, prefix="hi"):
        return os.path.join(prefix, self.name)

def shout(msg: str) -> str:
    return msg.upper()
`

func scanPy(t *testing.T, src string) *tree.SymbolTree {
	t.Helper()
	st, err := NewPythonAdapter().Scan(context.Background(), []byte(src), ScanContext{
		ModuleName:      "sample",
		IndentSensitive: true,
	})
	require.NoError(t, err)
	require.NoError(t, st.Validate())
	return st
}

func TestPythonScan_ModuleDocstring(t *testing.T) {
	st := scanPy(t, pySample)
	assert.Equal(t, "sample", st.Root().Name)
	assert.Equal(t, "Top doc.", st.Root().Doc)
	assert.Empty(t, st.Failures)
}

func TestPythonScan_Imports(t *testing.T) {
	module := scanPy(t, pySample).Root()

	dotted := findCitation(module, tree.CiteImport, "os", "path")
	require.NotNil(t, dotted)
	assert.Empty(t, dotted.Alias)

	aliased := findCitation(module, tree.CiteImport, "collections", "OrderedDict")
	require.NotNil(t, aliased)
	assert.Equal(t, "OD", aliased.Alias)

	wildcard := findCitation(module, tree.CiteImport, "junk")
	require.NotNil(t, wildcard)
	assert.True(t, wildcard.Wildcard)
}

func TestPythonScan_FromImportBindsMemberName(t *testing.T) {
	module := scanPy(t, "from helpers import shout\n").Root()

	cit := findCitation(module, tree.CiteImport, "helpers", "shout")
	require.NotNil(t, cit)
	assert.Equal(t, "shout", cit.LocalName(),
		"a from-import binds the member, not the module")
	assert.False(t, cit.Wildcard)
}

func TestPythonScan_ClassAndInheritance(t *testing.T) {
	module := scanPy(t, pySample).Root()

	greeter := module.Child("Greeter")
	require.NotNil(t, greeter)
	assert.Equal(t, tree.KindClass, greeter.Kind)
	assert.Equal(t, "Says hello.", greeter.Doc)
	assert.NotNil(t, findCitation(greeter, tree.CiteInherit, "Base"))

	greet := greeter.Child("greet")
	require.NotNil(t, greet)
	require.NotNil(t, greet.Signature)
	require.Len(t, greet.Signature.Params, 2)
	assert.Equal(t, "self", greet.Signature.Params[0].Name)
	assert.Equal(t, "prefix", greet.Signature.Params[1].Name)
	assert.True(t, greet.Signature.Params[1].HasDefault)
}

func TestPythonScan_BodyCitations(t *testing.T) {
	module := scanPy(t, pySample).Root()

	greet := module.Child("Greeter").Child("greet")
	require.NotNil(t, greet)
	assert.NotNil(t, findCitation(greet, tree.CiteCall, "os", "path", "join"))
	assert.NotNil(t, findCitation(greet, tree.CiteMember, "self", "name"))

	shout := module.Child("shout")
	require.NotNil(t, shout)
	assert.NotNil(t, findCitation(shout, tree.CiteCall, "msg", "upper"))
}

func TestPythonScan_TypedSignature(t *testing.T) {
	module := scanPy(t, pySample).Root()
	shout := module.Child("shout")
	require.NotNil(t, shout)
	require.NotNil(t, shout.Signature)
	require.Len(t, shout.Signature.Params, 1)
	assert.Equal(t, "msg", shout.Signature.Params[0].Name)
	assert.Equal(t, "str", shout.Signature.Params[0].Type)
	assert.Equal(t, "str", shout.Signature.Returns)
}

func TestPythonScan_ModuleVariables(t *testing.T) {
	module := scanPy(t, pySample).Root()
	top := findSymbol(module, "TOP")
	require.NotNil(t, top)
	assert.Equal(t, tree.KindVariable, top.Kind)
	assert.True(t, top.IsDecl)
}

func TestPythonScan_DecoratedDefinition(t *testing.T) {
	src := `@deco
def f():
    pass
`
	st := scanPy(t, src)
	f := st.Root().Child("f")
	require.NotNil(t, f)
	// Span widens to cover the decorator so containment holds.
	assert.Equal(t, 0, f.Span.StartLine)
}

func TestPythonScan_PartialOnSyntaxError(t *testing.T) {
	src := `def good():
    pass

def bad(:
`
	st, err := NewPythonAdapter().Scan(context.Background(), []byte(src), ScanContext{ModuleName: "broken"})
	require.NoError(t, err)
	assert.NotEmpty(t, st.Failures)
	assert.NotNil(t, st.Root().Child("good"))
}

package lang

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mgrier/spyglass/internal/tree"
)

const jsSample = `import React from 'react';
import * as utils from './lib/utils.js';
import { parse as parseIt, walk } from './ast';

const MAX = 10;

export class Widget extends React.Component {
  render() {
    return utils.format(MAX);
  }
}

export function shout(msg, loud = true) {
  return msg.toUpperCase();
}
`

func scanJS(t *testing.T, src string) *tree.SymbolTree {
	t.Helper()
	st, err := NewJavaScriptAdapter().Scan(context.Background(), []byte(src), ScanContext{ModuleName: "sample"})
	require.NoError(t, err)
	require.NoError(t, st.Validate())
	return st
}

func TestJavaScriptScan_Imports(t *testing.T) {
	module := scanJS(t, jsSample).Root()

	deflt := findCitation(module, tree.CiteImport, "react")
	require.NotNil(t, deflt)
	assert.Equal(t, "React", deflt.Alias)
	assert.False(t, deflt.Wildcard)

	ns := findCitation(module, tree.CiteImport, "utils")
	require.NotNil(t, ns)
	assert.Equal(t, "utils", ns.Alias)
	assert.True(t, ns.Wildcard)

	aliased := findCitation(module, tree.CiteImport, "ast", "parse")
	require.NotNil(t, aliased)
	assert.Equal(t, "parseIt", aliased.Alias)

	plain := findCitation(module, tree.CiteImport, "ast", "walk")
	require.NotNil(t, plain)
	assert.Equal(t, "walk", plain.LocalName(),
		"a named import binds the member, not the module")
}

func TestJavaScriptScan_ExportedClass(t *testing.T) {
	module := scanJS(t, jsSample).Root()

	widget := module.Child("Widget")
	require.NotNil(t, widget, "export statements recurse into the declaration")
	assert.Equal(t, tree.KindClass, widget.Kind)
	assert.NotNil(t, findCitation(widget, tree.CiteInherit, "React", "Component"))

	render := widget.Child("render")
	require.NotNil(t, render)
	assert.Equal(t, tree.KindFunction, render.Kind)
	assert.NotNil(t, findCitation(render, tree.CiteCall, "utils", "format"))
}

func TestJavaScriptScan_ExportedFunction(t *testing.T) {
	module := scanJS(t, jsSample).Root()

	shout := module.Child("shout")
	require.NotNil(t, shout)
	require.NotNil(t, shout.Signature)
	require.Len(t, shout.Signature.Params, 2)
	assert.Equal(t, "msg", shout.Signature.Params[0].Name)
	assert.Equal(t, "loud", shout.Signature.Params[1].Name)
	assert.True(t, shout.Signature.Params[1].HasDefault)
	assert.NotNil(t, findCitation(shout, tree.CiteCall, "msg", "toUpperCase"))
}

func TestJavaScriptScan_ModuleVariables(t *testing.T) {
	module := scanJS(t, jsSample).Root()
	max := findSymbol(module, "MAX")
	require.NotNil(t, max)
	assert.Equal(t, tree.KindVariable, max.Kind)
	assert.True(t, max.IsDecl)
}

func TestJavaScriptScan_PartialOnSyntaxError(t *testing.T) {
	src := `function good() {}

function bad( {
`
	st, err := NewJavaScriptAdapter().Scan(context.Background(), []byte(src), ScanContext{ModuleName: "broken"})
	require.NoError(t, err)
	assert.NotEmpty(t, st.Failures)
	assert.NotNil(t, st.Root().Child("good"))
}

package convert

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func findSymbol(symbols []ExtractedSymbol, name string) (ExtractedSymbol, bool) {
	for _, s := range symbols {
		if s.Name == name {
			return s, true
		}
	}
	return ExtractedSymbol{}, false
}

// TestExtractSwiftSymbols_ObservableStore mirrors the canonical extraction
// scenario: an @Observable class with an async throwing method.
func TestExtractSwiftSymbols_ObservableStore(t *testing.T) {
	source := `
@Observable class Store {
    func load() async throws -> [Item] {
        return []
    }
}
`
	result := ExtractSwiftSymbols(source)
	require.False(t, result.HasErrors)

	store, ok := findSymbol(result.Symbols, "Store")
	require.True(t, ok)
	assert.Equal(t, SymbolClass, store.Kind)
	assert.Equal(t, []string{"@Observable"}, store.Attributes)
	assert.False(t, store.IsPublic)

	load, ok := findSymbol(result.Symbols, "load")
	require.True(t, ok)
	assert.Equal(t, SymbolMethod, load.Kind)
	assert.True(t, load.IsAsync)
	assert.True(t, load.IsThrows)
	assert.Contains(t, load.Signature, "func load()")
}

func TestExtractSwiftSymbols_FreeFunctionNotMethod(t *testing.T) {
	source := `func topLevel() -> Int { return 1 }`

	result := ExtractSwiftSymbols(source)

	fn, ok := findSymbol(result.Symbols, "topLevel")
	require.True(t, ok)
	assert.Equal(t, SymbolFunction, fn.Kind)
}

func TestExtractSwiftSymbols_StructWithConformancesAndGenerics(t *testing.T) {
	source := `
public struct Box<T: Equatable>: Codable, Hashable {
    public var value: T
}
`
	result := ExtractSwiftSymbols(source)

	box, ok := findSymbol(result.Symbols, "Box")
	require.True(t, ok)
	assert.Equal(t, SymbolStruct, box.Kind)
	assert.True(t, box.IsPublic)
	assert.Equal(t, []string{"T"}, box.GenericParameters)
	assert.Equal(t, []string{"Codable", "Hashable"}, box.Conformances)

	value, ok := findSymbol(result.Symbols, "value")
	require.True(t, ok)
	assert.Equal(t, SymbolProperty, value.Kind)
	assert.True(t, value.IsPublic)
}

func TestExtractSwiftSymbols_MultipleBindingsOnePerPattern(t *testing.T) {
	source := `var width, height: Double`

	result := ExtractSwiftSymbols(source)

	_, okW := findSymbol(result.Symbols, "width")
	_, okH := findSymbol(result.Symbols, "height")
	assert.True(t, okW)
	assert.True(t, okH)
}

func TestExtractSwiftSymbols_EnumCasesOnePerElement(t *testing.T) {
	source := `
enum Direction {
    case north, south
    case east(degrees: Int)
}
`
	result := ExtractSwiftSymbols(source)

	for _, name := range []string{"north", "south", "east"} {
		sym, ok := findSymbol(result.Symbols, name)
		require.True(t, ok, "expected case %s", name)
		assert.Equal(t, SymbolCase, sym.Kind)
	}
}

func TestExtractSwiftSymbols_StaticAndClassModifiers(t *testing.T) {
	source := `
class Counter {
    static var shared = Counter()
    class func reset() {}
}
`
	result := ExtractSwiftSymbols(source)

	shared, ok := findSymbol(result.Symbols, "shared")
	require.True(t, ok)
	assert.True(t, shared.IsStatic)

	reset, ok := findSymbol(result.Symbols, "reset")
	require.True(t, ok)
	assert.True(t, reset.IsStatic)
	assert.Equal(t, SymbolMethod, reset.Kind)
}

func TestExtractSwiftSymbols_InitializerAndSubscript(t *testing.T) {
	source := `
struct Matrix {
    init(rows: Int, columns: Int) throws {}
    subscript(row: Int, col: Int) -> Double { return 0 }
}
`
	result := ExtractSwiftSymbols(source)

	initSym, ok := findSymbol(result.Symbols, "init")
	require.True(t, ok)
	assert.Equal(t, SymbolInitializer, initSym.Kind)
	assert.True(t, initSym.IsThrows)

	sub, ok := findSymbol(result.Symbols, "subscript")
	require.True(t, ok)
	assert.Equal(t, SymbolSubscript, sub.Kind)
}

func TestExtractSwiftSymbols_TypealiasAndAssociatedtype(t *testing.T) {
	source := `
protocol Repository {
    associatedtype Entity
    typealias Handler = (Entity) -> Void
}
`
	result := ExtractSwiftSymbols(source)

	entity, ok := findSymbol(result.Symbols, "Entity")
	require.True(t, ok)
	assert.Equal(t, SymbolAssociatedtype, entity.Kind)

	handler, ok := findSymbol(result.Symbols, "Handler")
	require.True(t, ok)
	assert.Equal(t, SymbolTypealias, handler.Kind)
}

func TestExtractSwiftSymbols_Imports(t *testing.T) {
	source := `
import Foundation
@_exported import SwiftUI
public import CoreData
`
	result := ExtractSwiftSymbols(source)

	require.Len(t, result.Imports, 3)
	assert.Equal(t, "Foundation", result.Imports[0].ModuleName)
	assert.False(t, result.Imports[0].IsExported)
	assert.Equal(t, "SwiftUI", result.Imports[1].ModuleName)
	assert.True(t, result.Imports[1].IsExported)
	assert.Equal(t, "CoreData", result.Imports[2].ModuleName)
	assert.True(t, result.Imports[2].IsExported)
}

func TestExtractSwiftSymbols_ExtensionAddsConformance(t *testing.T) {
	source := `
extension Store: Codable {
    func encode() {}
}
`
	result := ExtractSwiftSymbols(source)

	ext, ok := findSymbol(result.Symbols, "Store")
	require.True(t, ok)
	assert.Equal(t, SymbolExtension, ext.Kind)
	assert.Equal(t, []string{"Codable"}, ext.Conformances)

	method, ok := findSymbol(result.Symbols, "encode")
	require.True(t, ok)
	assert.Equal(t, SymbolMethod, method.Kind)
}

func TestExtractSwiftSymbols_MalformedInputDoesNotPanic(t *testing.T) {
	source := `class { func ( }`

	require.NotPanics(t, func() {
		result := ExtractSwiftSymbols(source)
		assert.NotNil(t, result)
	})
}

func TestExtractSwiftSymbols_UnterminatedStringDoesNotHang(t *testing.T) {
	source := "let x = \"unterminated"

	done := make(chan struct{})
	go func() {
		ExtractSwiftSymbols(source)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("extraction did not terminate on unterminated string literal")
	}
}
